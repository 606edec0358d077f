package notify

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/alejandrodnm/swipebot/internal/domain"
	"github.com/olekukonko/tablewriter"
)

// Console implementa ports.BatchNotifier e imprime los reportes del CLI.
// Los eventos llegan desde varias goroutines; cada línea se escribe bajo lock.
type Console struct {
	mu  sync.Mutex
	out io.Writer
	now func() time.Time
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole() *Console {
	return NewConsoleWriter(os.Stdout)
}

// NewConsoleWriter crea un notificador sobre w (tests).
func NewConsoleWriter(w io.Writer) *Console {
	return &Console{out: w, now: time.Now}
}

func (c *Console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, "[%s] ", c.now().Format("15:04:05"))
	fmt.Fprintf(c.out, format, args...)
	fmt.Fprintln(c.out)
}

func (c *Console) OnBatchQueued(_ string, count int) {
	c.printf("queued: %d/%d", count, domain.MaxBatchSize)
}

func (c *Console) OnBatchFlushed(_, batchID string) {
	c.printf("submitted batch %s", shortID(batchID))
}

func (c *Console) OnBatchResolved(_, batchID string, outcome domain.BatchOutcome, reason string) {
	if reason == "" {
		c.printf("batch %s %s", shortID(batchID), outcome)
		return
	}
	c.printf("batch %s %s: %s", shortID(batchID), outcome, reason)
}

func (c *Console) OnIntentDropped(_ string, in domain.Intent, reason string) {
	c.printf("dropped %s %s $%s: %s",
		in.Side, domain.TruncateQuestion(in.Question, in.MarketID, 40), in.Stake.StringFixed(2), reason)
}

// PrintMarkets imprime el feed de mercados.
func (c *Console) PrintMarkets(markets []domain.Market) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(markets) == 0 {
		fmt.Fprintln(c.out, "No active markets found")
		return
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Market", "YES", "NO", "Ends", "Condition")
	for i, m := range markets {
		table.Append(
			fmt.Sprintf("%d", i+1),
			domain.MarketLabel(m),
			fmt.Sprintf("%.2f", m.YesToken().Price),
			fmt.Sprintf("%.2f", m.NoToken().Price),
			endDateLabel(m),
			m.ConditionID,
		)
	}
	table.Render()
}

// PrintPositions imprime las posiciones persistidas. questions mapea
// conditionID → pregunta; puede ser nil.
func (c *Console) PrintPositions(positions []domain.Position, questions map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(positions) == 0 {
		fmt.Fprintln(c.out, "No positions yet")
		return
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("Market", "YES $", "NO $", "Total $", "Updated")
	for _, p := range positions {
		table.Append(
			domain.TruncateQuestion(questions[p.MarketID], p.MarketID, 45),
			p.YesStake.StringFixed(2),
			p.NoStake.StringFixed(2),
			p.TotalInvested.StringFixed(2),
			p.UpdatedAt.Local().Format("2006-01-02 15:04"),
		)
	}
	table.Render()
}

// PrintUnresolved lista los envíos sin estado terminal.
func (c *Console) PrintUnresolved(entries []domain.SubmissionEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(entries) == 0 {
		return
	}
	fmt.Fprintf(c.out, "\n%d submission(s) need reconciliation:\n", len(entries))
	table := tablewriter.NewWriter(c.out)
	table.Header("Batch", "State", "Receipt", "Calls", "Submitted", "Flagged")
	for _, e := range entries {
		flagged := ""
		if e.NeedsReconciliation {
			flagged = "yes"
		}
		table.Append(
			shortID(e.BatchID),
			string(e.State),
			e.ReceiptID,
			fmt.Sprintf("%d", e.Calls),
			e.SubmittedAt.Local().Format("2006-01-02 15:04"),
			flagged,
		)
	}
	table.Render()
}

func endDateLabel(m domain.Market) string {
	h := m.HoursToResolution()
	switch {
	case h == 0:
		return "-"
	case h < 48:
		return fmt.Sprintf("%.0fh", h)
	default:
		return fmt.Sprintf("%.0fd", h/24)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
