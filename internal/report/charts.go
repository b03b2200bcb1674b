package report

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/wcharczuk/go-chart/v2"

	"github.com/crivera/joistsync/internal/model"
)

// monthValue is one (YYYY-MM, value) point, shared by count and total rows.
type monthValue struct {
	month string
	value float64
}

// RenderCharts writes one PNG per aggregate under dir, each chart a line per
// calendar year across the twelve months so years can be compared directly.
// An empty years slice means every year present in the data.
func (s *Stats) RenderCharts(dir string, years []int) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create charts directory: %w", err)
	}

	charts := []struct {
		name   string
		title  string
		points []monthValue
	}{
		{"clients_joined_per_month", "Clients joined per month", countPoints(s.ClientsJoined)},
		{"estimates_per_month", "Estimates issued per month", countPoints(s.Estimates)},
		{"invoices_per_month", "Invoices issued per month", countPoints(s.Invoices)},
		{"invoice_totals_per_month", "Invoice totals per month", totalPoints(s.InvoiceTotals)},
	}
	for _, c := range charts {
		path := filepath.Join(dir, c.name+".png")
		if err := renderYearChart(path, c.title, c.points, years); err != nil {
			return err
		}
	}
	return nil
}

func countPoints(rows []model.MonthlyCount) []monthValue {
	out := make([]monthValue, 0, len(rows))
	for _, r := range rows {
		out = append(out, monthValue{month: r.Month, value: float64(r.Count)})
	}
	return out
}

func totalPoints(rows []model.MonthlyTotal) []monthValue {
	out := make([]monthValue, 0, len(rows))
	for _, r := range rows {
		f, _ := r.Total.Float64()
		out = append(out, monthValue{month: r.Month, value: f})
	}
	return out
}

// renderYearChart draws one series per year over months 1..12. Months absent
// from the data plot as zero so the lines stay comparable.
func renderYearChart(path, title string, points []monthValue, years []int) error {
	byYear := make(map[int][12]float64)
	for _, p := range points {
		t, err := time.Parse("2006-01", p.month)
		if err != nil {
			continue
		}
		vals := byYear[t.Year()]
		vals[int(t.Month())-1] = p.value
		byYear[t.Year()] = vals
	}

	selected := years
	if len(selected) == 0 {
		for y := range byYear {
			selected = append(selected, y)
		}
		sort.Ints(selected)
	}

	xs := make([]float64, 12)
	ticks := make([]chart.Tick, 12)
	for m := 0; m < 12; m++ {
		xs[m] = float64(m + 1)
		ticks[m] = chart.Tick{
			Value: float64(m + 1),
			Label: time.Month(m + 1).String()[:3],
		}
	}

	var series []chart.Series
	for _, year := range selected {
		vals, ok := byYear[year]
		if !ok {
			continue
		}
		ys := make([]float64, 12)
		copy(ys, vals[:])
		series = append(series, chart.ContinuousSeries{
			Name:    strconv.Itoa(year),
			XValues: xs,
			YValues: ys,
		})
	}
	// An aggregate can legitimately be empty (no join dates backfilled
	// yet, no invoices for the requested years). Skip the chart.
	if len(series) == 0 {
		slog.Warn("No data to chart, skipping", "chart", title)
		return nil
	}

	graph := chart.Chart{
		Title:  title,
		Width:  1024,
		Height: 576,
		XAxis: chart.XAxis{
			Ticks: ticks,
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := graph.Render(chart.PNG, f); err != nil {
		f.Close()
		return fmt.Errorf("failed to render %s: %w", path, err)
	}
	return f.Close()
}
