// Package insights wraps the AI collaborator that turns ledger context
// into natural-language feedback. Model output is untrusted free text:
// it is cleaned, parsed and shape-checked before anything uses it, and
// never drives control flow.
package insights

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/genai"

	"github.com/dpaiva/centavo/internal/errs"
)

// Kind selects the analysis the model is asked for.
type Kind string

const (
	KindAccountAnalysis     Kind = "account_analysis"
	KindInvoiceAnalysis     Kind = "invoice_analysis"
	KindSavingsGoalFeedback Kind = "savings_goal_feedback"
	KindWeeklySummary       Kind = "weekly_summary"
)

// Valid reports whether k is a known insight kind.
func (k Kind) Valid() bool {
	switch k {
	case KindAccountAnalysis, KindInvoiceAnalysis, KindSavingsGoalFeedback, KindWeeklySummary:
		return true
	}
	return false
}

// DefaultModelName is the Gemini model used for insight generation.
const DefaultModelName = "gemini-2.0-flash"

// Insight is the validated, structured result of one generation.
type Insight struct {
	Kind        Kind     `json:"kind"`
	Title       string   `json:"title"`
	Summary     string   `json:"summary"`
	Suggestions []string `json:"suggestions"`
}

// Generator calls the model and validates its output.
type Generator struct {
	model string
}

// NewGenerator creates a Generator for the given model name; empty means
// DefaultModelName.
func NewGenerator(model string) *Generator {
	if model == "" {
		model = DefaultModelName
	}
	return &Generator{model: model}
}

// Generate asks the model for one insight over the given context object.
// The context is serialized to JSON and embedded in the prompt; the reply
// must be a strict JSON object matching the Insight shape.
func (g *Generator) Generate(ctx context.Context, kind Kind, contextObject any) (*Insight, error) {
	if !kind.Valid() {
		return nil, errs.Validation("unknown insight kind %q", kind)
	}

	payload, err := json.Marshal(contextObject)
	if err != nil {
		return nil, fmt.Errorf("Generate: marshaling context: %w", err)
	}

	prompt := buildPrompt(kind, string(payload))

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, errs.Upstream("creating genai client", err)
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: prompt},
			},
		},
	}

	resp, err := client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return nil, errs.Upstream("generating insight", err)
	}

	rawText := resp.Text()
	if rawText == "" {
		return nil, errs.Upstream("generating insight", fmt.Errorf("empty response from model"))
	}

	insight, err := ParseInsight(cleanModelJSON(rawText))
	if err != nil {
		return nil, fmt.Errorf("Generate: %w (raw response: %s)", err, rawText)
	}
	insight.Kind = kind
	return insight, nil
}

// ParseInsight unmarshals and shape-checks a cleaned model reply.
func ParseInsight(clean string) (*Insight, error) {
	var insight Insight
	if err := json.Unmarshal([]byte(clean), &insight); err != nil {
		return nil, fmt.Errorf("ParseInsight: unmarshal JSON: %w", err)
	}
	if insight.Title == "" {
		return nil, fmt.Errorf("ParseInsight: model reply missing title")
	}
	if insight.Summary == "" {
		return nil, fmt.Errorf("ParseInsight: model reply missing summary")
	}
	return &insight, nil
}
