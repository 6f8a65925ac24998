package notify

import (
	"fmt"
	"sort"

	"github.com/olekukonko/tablewriter"

	"github.com/alejandrodnm/predictor/internal/domain"
)

// PrintPerformance imprime el resumen de rendimiento y el desglose por estrategia.
func (c *Console) PrintPerformance(perf domain.Performance) error {
	fmt.Fprintf(c.out, "\n=== PERFORMANCE since %s ===\n", perf.Since.Format("2006-01-02"))
	if perf.TotalPredictions == 0 {
		fmt.Fprintln(c.out, "  No settled predictions in range.")
		return nil
	}
	fmt.Fprintf(c.out, "  Settled: %d  Wins: %d  Accuracy: %.1f%%  Brier: %.4f  PnL: $%.2f\n\n",
		perf.TotalPredictions, perf.Wins, perf.Accuracy*100, perf.BrierScore, perf.TotalPnL)

	names := make([]string, 0, len(perf.ByStrategy))
	for name := range perf.ByStrategy {
		names = append(names, name)
	}
	sort.Strings(names)

	table := tablewriter.NewWriter(c.out)
	table.Header("Strategy", "Count", "Wins", "Accuracy", "PnL")
	for _, name := range names {
		s := perf.ByStrategy[name]
		if err := table.Append(
			name,
			fmt.Sprintf("%d", s.Count),
			fmt.Sprintf("%d", s.Wins),
			fmt.Sprintf("%.1f%%", s.Accuracy*100),
			fmt.Sprintf("$%.2f", s.PnL),
		); err != nil {
			return fmt.Errorf("notify.PrintPerformance: %w", err)
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("notify.PrintPerformance: %w", err)
	}
	return nil
}

// PrintCalibration imprime un snapshot de calibración con sus puntos.
func (c *Console) PrintCalibration(snap domain.CalibrationSnapshot) error {
	fmt.Fprintf(c.out, "\n=== CALIBRATION #%d (%s) ===\n", snap.ID, snap.Table.Version)
	fmt.Fprintf(c.out, "  Created: %s  Bin width: %.2f  Brier: %.4f  ECE: %.4f\n\n",
		snap.CreatedAt.Format("2006-01-02 15:04"), snap.BinWidth, snap.BrierScore, snap.ECE)

	table := tablewriter.NewWriter(c.out)
	table.Header("Raw", "Actual", "Samples", "Shift")
	for _, pt := range snap.Table.Points {
		if err := table.Append(
			fmt.Sprintf("%.3f", pt.Breakpoint),
			fmt.Sprintf("%.3f", pt.Rate),
			fmt.Sprintf("%d", pt.Samples),
			fmt.Sprintf("%+.3f", pt.Rate-pt.Breakpoint),
		); err != nil {
			return fmt.Errorf("notify.PrintCalibration: %w", err)
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("notify.PrintCalibration: %w", err)
	}
	return nil
}

// PrintPredictions imprime predicciones almacenadas (pendientes o recientes).
func (c *Console) PrintPredictions(preds []domain.Prediction) error {
	if len(preds) == 0 {
		fmt.Fprintln(c.out, "  No predictions.")
		return nil
	}
	table := tablewriter.NewWriter(c.out)
	table.Header("ID", "Created", "Strategy", "Market", "Side", "Qty", "Cost", "Status")
	for _, p := range preds {
		status := "OPEN"
		switch {
		case p.Outcome != nil && p.PnL != nil:
			status = fmt.Sprintf("%s $%+.2f", *p.Outcome, *p.PnL)
		case p.Outcome != nil:
			status = string(*p.Outcome)
		case p.RecommendedContracts == 0:
			status = "REJECTED " + string(p.RejectedBy)
		}
		if err := table.Append(
			p.ID,
			p.CreatedAt.Format("01-02 15:04"),
			p.Strategy,
			compactName(label(p), 30),
			string(p.Side),
			fmt.Sprintf("%d", p.RecommendedContracts),
			"$"+p.RecommendedCost.StringFixed(2),
			status,
		); err != nil {
			return fmt.Errorf("notify.PrintPredictions: %w", err)
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("notify.PrintPredictions: %w", err)
	}
	return nil
}
