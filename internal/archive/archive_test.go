package archive

import (
	"testing"
	"time"
)

func TestObjectName(t *testing.T) {
	runAt := time.Date(2025, time.June, 3, 14, 30, 0, 0, time.UTC)
	got := ObjectName("user-42", runAt)
	want := "alerts/2025/06/03/user-42.json"
	if got != want {
		t.Errorf("ObjectName = %q, want %q", got, want)
	}
}

func TestSplitURI(t *testing.T) {
	tests := []struct {
		uri     string
		bucket  string
		object  string
		wantErr bool
	}{
		{uri: "gs://my-bucket/alerts/2025/06/03/user-42.json", bucket: "my-bucket", object: "alerts/2025/06/03/user-42.json"},
		{uri: "gs://my-bucket", wantErr: true},
		{uri: "https://example.com/x", wantErr: true},
	}
	for _, tt := range tests {
		bucket, object, err := splitURI(tt.uri)
		if tt.wantErr {
			if err == nil {
				t.Errorf("splitURI(%q): expected error", tt.uri)
			}
			continue
		}
		if err != nil {
			t.Errorf("splitURI(%q): %v", tt.uri, err)
			continue
		}
		if bucket != tt.bucket || object != tt.object {
			t.Errorf("splitURI(%q) = %q, %q", tt.uri, bucket, object)
		}
	}
}

func TestFilename(t *testing.T) {
	if got := Filename("gs://b/alerts/2025/06/03/user-42.json"); got != "user-42.json" {
		t.Errorf("Filename = %q", got)
	}
}
