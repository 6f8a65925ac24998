package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/alejandrodnm/predictor/internal/domain"
)

// Console implementa ports.Notifier.
type Console struct {
	out   io.Writer
	table bool
	now   func() time.Time
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole(table bool) *Console {
	return NewConsoleWriter(os.Stdout, table)
}

// NewConsoleWriter crea un notificador sobre w (tests, ficheros).
func NewConsoleWriter(w io.Writer, table bool) *Console {
	return &Console{out: w, table: table, now: time.Now}
}

// NotifyDecisions imprime el lote en el modo configurado.
func (c *Console) NotifyDecisions(_ context.Context, decisions []domain.Decision) error {
	if len(decisions) == 0 {
		fmt.Fprintf(c.out, "[%s] no signals evaluated\n", c.now().Format("15:04:05"))
		return nil
	}

	if c.table {
		return c.printFull(decisions)
	}
	c.printCompact(decisions)
	return nil
}

// printCompact imprime una línea de resumen y las mejores aceptadas.
func (c *Console) printCompact(decisions []domain.Decision) {
	accepted, high := countAccepted(decisions)

	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %d signals → accepted:%d high:%d rejected:%d",
		c.now().Format("15:04:05"), len(decisions), accepted, high, len(decisions)-accepted)

	shown := 0
	for _, d := range decisions {
		if shown >= 4 {
			break
		}
		if !d.IsAccepted() {
			continue
		}
		p := d.Prediction
		fmt.Fprintf(&sb, " | %s %s %s x%d $%s conf%.2f",
			urgencyIcon(p.Urgency()), compactName(label(p), 25), strings.ToUpper(string(p.Side)),
			p.RecommendedContracts, p.RecommendedCost.StringFixed(2), p.ConfidenceScore)
		shown++
	}

	fmt.Fprintln(c.out, sb.String())
}

// printFull imprime la tabla completa más el desglose de rechazos.
func (c *Console) printFull(decisions []domain.Decision) error {
	accepted, high := countAccepted(decisions)
	fmt.Fprintf(c.out, "\n[%s] %d signals | accepted:%d high:%d rejected:%d\n",
		c.now().Format("15:04:05"), len(decisions), accepted, high, len(decisions)-accepted)

	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Urg", "Market", "Side", "Mkt", "Ours", "Edge", "Conf", "Kelly", "Qty", "Cost", "Result")

	for i, d := range decisions {
		p := d.Prediction
		result := "OK"
		if !d.IsAccepted() {
			result = fmt.Sprintf("G%d %s", d.Rejection.Gate.Index(), d.Rejection.Code)
		}
		if err := table.Append(
			fmt.Sprintf("%d", i+1),
			string(p.Urgency()),
			compactName(label(p), 32),
			strings.ToUpper(string(p.Side)),
			fmt.Sprintf("%.2f", p.MarketPrice),
			fmt.Sprintf("%.3f", p.OurProbability),
			fmt.Sprintf("%+.3f", p.Edge),
			fmt.Sprintf("%.3f", p.ConfidenceScore),
			fmt.Sprintf("%.4f", p.KellyFraction),
			fmt.Sprintf("%d", p.RecommendedContracts),
			"$"+p.RecommendedCost.StringFixed(2),
			result,
		); err != nil {
			return fmt.Errorf("notify.NotifyDecisions: append row: %w", err)
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("notify.NotifyDecisions: render: %w", err)
	}

	fmt.Fprintln(c.out, "  Mkt = YES price | Ours = calibrated probability | Kelly = fractional Kelly")
	c.printReasons(decisions)
	return nil
}

// printReasons lista las razones de las aceptadas (máx 5).
func (c *Console) printReasons(decisions []domain.Decision) {
	shown := 0
	for _, d := range decisions {
		if shown >= 5 {
			break
		}
		if !d.IsAccepted() {
			continue
		}
		reasons := d.Prediction.Reasons()
		if len(reasons) == 0 {
			continue
		}
		fmt.Fprintf(c.out, "  %s: %s\n", truncate(label(d.Prediction), 40), strings.Join(reasons, "; "))
		shown++
	}
	fmt.Fprintln(c.out)
}

// --- helpers ---

func countAccepted(decisions []domain.Decision) (accepted, high int) {
	for _, d := range decisions {
		if !d.IsAccepted() {
			continue
		}
		accepted++
		if d.Prediction.Urgency() == domain.UrgencyHigh {
			high++
		}
	}
	return
}

func urgencyIcon(u domain.Urgency) string {
	switch u {
	case domain.UrgencyHigh:
		return "[!]"
	case domain.UrgencyMedium:
		return "[+]"
	}
	return "[-]"
}

func label(p domain.Prediction) string {
	if p.Title != "" {
		return p.Title
	}
	return p.Market
}

func compactName(s string, max int) string {
	s = strings.TrimPrefix(s, "Will ")
	s = strings.TrimSuffix(s, "?")
	return truncate(s, max)
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
