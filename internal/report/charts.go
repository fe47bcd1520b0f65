package report

import (
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/wcharczuk/go-chart/v2"

	"tracker/internal/aggregate"
)

var ErrNotEnoughData = errors.New("not enough data to draw a chart")

const (
	chartWidth  = 960
	chartHeight = 480
)

// RenderTrendPNG draws the trend as a time series. It needs at least two
// points.
func RenderTrendPNG(w io.Writer, t aggregate.Trend) error {
	if len(t.Points) < 2 {
		return ErrNotEnoughData
	}
	layout, axisLayout := "2006-01-02", "Jan 2"
	if t.Bucket == aggregate.BucketMonth {
		layout, axisLayout = "2006-01", "Jan 2006"
	}

	xs := make([]time.Time, 0, len(t.Points))
	ys := make([]float64, 0, len(t.Points))
	maxY := 0.0
	for _, p := range t.Points {
		at, err := time.Parse(layout, p.Label)
		if err != nil {
			return fmt.Errorf("trend label %q: %w", p.Label, err)
		}
		xs = append(xs, at)
		ys = append(ys, p.Total)
		maxY = math.Max(maxY, p.Total)
	}

	graph := chart.Chart{
		Title:  "Spending trend",
		Width:  chartWidth,
		Height: chartHeight,
		Background: chart.Style{
			Padding: chart.Box{Top: 50, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatterWithFormat(axisLayout),
		},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: axisMax(maxY)},
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Spent",
				XValues: xs,
				YValues: ys,
				Style: chart.Style{
					StrokeWidth: 2,
				},
			},
		},
	}
	return graph.Render(chart.PNG, w)
}

// RenderBreakdownPNG draws one bar per category, largest first.
func RenderBreakdownPNG(w io.Writer, b aggregate.Breakdown) error {
	if len(b.Categories) == 0 {
		return ErrNotEnoughData
	}
	bars := make([]chart.Value, 0, len(b.Categories))
	maxY := 0.0
	for _, c := range b.Categories {
		bars = append(bars, chart.Value{Label: c.Category, Value: c.Total})
		maxY = math.Max(maxY, c.Total)
	}

	graph := chart.BarChart{
		Title:  "Spending by category",
		Width:  chartWidth,
		Height: chartHeight,
		Background: chart.Style{
			Padding: chart.Box{Top: 50},
		},
		BarWidth: 60,
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: axisMax(maxY)},
		},
		Bars: bars,
	}
	return graph.Render(chart.PNG, w)
}

// axisMax keeps the value range non-empty when everything is zero.
func axisMax(v float64) float64 {
	if v <= 0 || !isFinite(v) {
		return 1
	}
	return v * 1.1
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
