package domain

import "github.com/shopspring/decimal"

// AlertSeverity ranks an alert. Ordering (critical first) is the display
// order the evaluator emits.
type AlertSeverity string

const (
	SeverityCritical AlertSeverity = "critical"
	SeverityWarning  AlertSeverity = "warning"
	SeverityInfo     AlertSeverity = "info"
)

// Rank returns the sort weight of a severity, lowest first.
func (s AlertSeverity) Rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityWarning:
		return 1
	default:
		return 2
	}
}

// Alert is one derived warning. Alerts are recomputed fresh on every
// evaluation and never mutated in place; a new set fully replaces the old.
// Rule is the stable identifier that makes repeated evaluations diffable.
type Alert struct {
	ID       string        `json:"id"`
	Rule     string        `json:"rule"`
	Severity AlertSeverity `json:"severity"`
	Title    string        `json:"title"`
	Message  string        `json:"message"`
	Action   string        `json:"action,omitempty"`
}

// ScenarioItem is a hypothetical income or expense a user layers onto a
// projection. Ephemeral: consumed only by the simulation, never persisted.
type ScenarioItem struct {
	Type        TransactionType `json:"type"` // income or expense
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}
