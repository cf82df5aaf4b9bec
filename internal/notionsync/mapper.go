package notionsync

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/jomei/notionapi"

	"github.com/dpaiva/centavo/internal/domain"
)

func richText(content string) []notionapi.RichText {
	return []notionapi.RichText{
		{
			Type: notionapi.ObjectTypeText,
			Text: &notionapi.Text{
				Content: content,
			},
		},
	}
}

func notionDate(d civil.Date) *notionapi.Date {
	nd := notionapi.Date(time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC))
	return &nd
}

// AlertToNotionProperties converts one alert to Notion page properties.
// The Alert ID property carries the deterministic rule:key identifier and
// is what makes repeated syncs idempotent.
func AlertToNotionProperties(alert domain.Alert, day civil.Date) notionapi.Properties {
	props := notionapi.Properties{
		"Title": notionapi.TitleProperty{
			Title: richText(alert.Title),
		},
		"Alert ID": notionapi.RichTextProperty{
			RichText: richText(alert.ID),
		},
		"Rule": notionapi.SelectProperty{
			Select: notionapi.Option{
				Name: alert.Rule,
			},
		},
		"Severity": notionapi.SelectProperty{
			Select: notionapi.Option{
				Name: string(alert.Severity),
			},
		},
		"Date": notionapi.DateProperty{
			Date: &notionapi.DateObject{
				Start: notionDate(day),
			},
		},
	}

	if alert.Message != "" {
		props["Message"] = notionapi.RichTextProperty{
			RichText: richText(alert.Message),
		}
	}

	if alert.Action != "" {
		props["Suggested Action"] = notionapi.RichTextProperty{
			RichText: richText(alert.Action),
		}
	}

	return props
}

// extractAlertID pulls the Alert ID property back out of a Notion page.
// Returns "" for pages created outside the sync.
func extractAlertID(page notionapi.Page) string {
	prop, ok := page.Properties["Alert ID"]
	if !ok {
		return ""
	}

	rt, ok := prop.(*notionapi.RichTextProperty)
	if !ok || len(rt.RichText) == 0 {
		return ""
	}

	if rt.RichText[0].Text != nil && rt.RichText[0].Text.Content != "" {
		return rt.RichText[0].Text.Content
	}
	return rt.RichText[0].PlainText
}
