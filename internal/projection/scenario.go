package projection

import (
	"context"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/dpaiva/centavo/internal/datemath"
	"github.com/dpaiva/centavo/internal/domain"
	"github.com/dpaiva/centavo/internal/errs"
)

// ScenarioMonth carries one month's original and simulated figures so the
// caller can render a before/after comparison.
type ScenarioMonth struct {
	Month            civil.Date      `json:"month"`
	OriginalInitial  decimal.Decimal `json:"original_initial"`
	OriginalFinal    decimal.Decimal `json:"original_final"`
	SimulatedInitial decimal.Decimal `json:"simulated_initial"`
	SimulatedFinal   decimal.Decimal `json:"simulated_final"`
	ScenarioNet      decimal.Decimal `json:"scenario_net"`
}

// Simulation is a hypothetical overlay across a span of months. BaseMonth
// is the navigation floor: the simulated view never moves earlier.
type Simulation struct {
	BaseMonth civil.Date            `json:"base_month"`
	Months    []ScenarioMonth       `json:"months"`
	Items     []domain.ScenarioItem `json:"items"`
}

// scenarioNet sums the hypothetical items, income positive.
func scenarioNet(items []domain.ScenarioItem) (decimal.Decimal, error) {
	net := decimal.Zero
	for _, item := range items {
		if item.Amount.IsNegative() {
			return decimal.Zero, errs.Validation("scenario item %q has negative amount", item.Description)
		}
		switch item.Type {
		case domain.TypeIncome:
			net = net.Add(item.Amount)
		case domain.TypeExpense:
			net = net.Sub(item.Amount)
		default:
			return decimal.Zero, errs.Validation("scenario item %q must be income or expense, got %q",
				item.Description, item.Type)
		}
	}
	return net, nil
}

// ComputeSimulation overlays the items onto every month from baseMonth to
// targetMonth inclusive. Each item repeats monthly; month k's simulated
// initial is month k−1's simulated final, so the effect compounds. The
// original (item-free) chain is computed alongside from the same records.
func ComputeSimulation(accounts []domain.Account, txs []domain.Transaction, baseMonth, targetMonth civil.Date, items []domain.ScenarioItem, today civil.Date) (*Simulation, error) {
	base := datemath.MonthStart(baseMonth)
	target := datemath.MonthStart(targetMonth)
	if target.Before(base) {
		return nil, errs.Validation("target month %v precedes scenario base month %v", target, base)
	}

	net, err := scenarioNet(items)
	if err != nil {
		return nil, err
	}

	baseView, err := ComputeMonthView(accounts, txs, base, today)
	if err != nil {
		return nil, err
	}

	// The base month's final is its projected balance; walking that back
	// by the month's own pending net gives the starting point both chains
	// share.
	baseInitial := baseView.ProjectedBalance.Sub(pendingNet(txs, base))

	span := datemath.MonthsBetween(base, target) + 1
	sim := &Simulation{BaseMonth: base, Items: items, Months: make([]ScenarioMonth, 0, span)}

	originalRunning := baseInitial
	simulatedRunning := baseInitial
	for k := 0; k < span; k++ {
		month := datemath.AddMonths(base, k)
		monthNet := pendingNet(txs, month)

		entry := ScenarioMonth{
			Month:            month,
			OriginalInitial:  originalRunning,
			OriginalFinal:    originalRunning.Add(monthNet),
			SimulatedInitial: simulatedRunning,
			SimulatedFinal:   simulatedRunning.Add(monthNet).Add(net),
			ScenarioNet:      net,
		}
		sim.Months = append(sim.Months, entry)

		originalRunning = entry.OriginalFinal
		simulatedRunning = entry.SimulatedFinal
	}
	return sim, nil
}

// Simulate fetches the user's records and overlays the scenario items
// across [baseMonth, targetMonth].
func (e *Engine) Simulate(ctx context.Context, userID string, baseMonth, targetMonth civil.Date, items []domain.ScenarioItem, today civil.Date) (*Simulation, error) {
	accounts, txs, err := e.fetch(ctx, userID)
	if err != nil {
		return nil, err
	}
	return ComputeSimulation(accounts, txs, baseMonth, targetMonth, items, today)
}
