package kot

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"restaurant-pos/internal/kafka"
	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/models"
)

const slipWidth = 32

// Printer renders KOT events from the event stream as fixed-width kitchen
// slips. Only newly created tickets and cancellations are printed.
type Printer struct {
	mu       sync.Mutex
	out      io.Writer
	stations map[string]bool
	log      *logger.Logger
}

// NewPrinter prints every station when stations is empty.
func NewPrinter(out io.Writer, stations []string, log *logger.Logger) *Printer {
	p := &Printer{out: out, stations: map[string]bool{}, log: log}
	for _, s := range stations {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			p.stations[s] = true
		}
	}
	return p
}

// Handle is a kafka.Consumer handler.
func (p *Printer) Handle(_ context.Context, env kafka.Envelope) error {
	if env.Type != models.KOTEventCreated && env.Type != models.KOTEventUpdated {
		return nil
	}

	var ev models.KOTEvent
	if err := json.Unmarshal(env.Data, &ev); err != nil {
		return fmt.Errorf("decode kot event %s: %w", env.ID, err)
	}
	if ev.KOT == nil {
		return fmt.Errorf("kot event %s has no ticket", env.ID)
	}
	if len(p.stations) > 0 && !p.stations[ev.KOT.Station] {
		return nil
	}
	if ev.Type == models.KOTEventUpdated && ev.KOT.Status != models.KOTStatusCancelled {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, err := io.WriteString(p.out, FormatSlip(&ev)); err != nil {
		return err
	}
	p.log.LogKOT("PRINTED", ev.KOT.KOTNumber, ev.KOT.Station)
	return nil
}

// FormatSlip lays out one ticket for a thermal printer.
func FormatSlip(ev *models.KOTEvent) string {
	k := ev.KOT
	var b strings.Builder
	rule := strings.Repeat("-", slipWidth) + "\n"

	title := strings.ToUpper(k.Station)
	if k.Status == models.KOTStatusCancelled {
		title = "*** CANCELLED *** " + title
	}
	fmt.Fprintf(&b, "%s\n", center(title))
	b.WriteString(rule)
	fmt.Fprintf(&b, "KOT    %s\n", k.KOTNumber)
	if ev.OrderNumber != "" {
		fmt.Fprintf(&b, "Order  %s\n", ev.OrderNumber)
	}
	if ev.TableName != "" {
		fmt.Fprintf(&b, "Table  %s\n", ev.TableName)
	}
	fmt.Fprintf(&b, "Time   %s\n", k.CreatedAt.Format("15:04"))
	b.WriteString(rule)
	for _, it := range k.Items {
		fmt.Fprintf(&b, "%3dx %s\n", it.Quantity, it.Name)
		if it.Notes != "" {
			fmt.Fprintf(&b, "     > %s\n", it.Notes)
		}
	}
	b.WriteString(rule)
	b.WriteString("\n")
	return b.String()
}

func center(s string) string {
	if len(s) >= slipWidth {
		return s
	}
	return strings.Repeat(" ", (slipWidth-len(s))/2) + s
}
