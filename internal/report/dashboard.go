package report

import (
	"bytes"
	"fmt"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// missing is ECharts' marker for an absent data point.
const missing = "-"

// WriteDashboard renders an HTML page with the angle traces (thresholds
// as mark lines) and the cumulative push-up and squat counts.
func WriteDashboard(t *Trace, path string, title string) error {
	if t.Len() == 0 {
		return fmt.Errorf("no frames to chart")
	}

	frames := make([]int, t.Len())
	for i, p := range t.points {
		frames[i] = p.Frame
	}

	page := components.NewPage()
	page.SetPageTitle(title)
	page.AddCharts(angleChart(t, frames, title), countChart(t, frames))

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return fmt.Errorf("render dashboard: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func angleChart(t *Trace, frames []int, title string) *charts.Line {
	pushups, squats := t.totals()
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "1200px", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{Title: "Joint angles", Subtitle: fmt.Sprintf("%s: %d pushups, %d squats", title, pushups, squats)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Frame", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Angle (deg)", Min: 0, Max: 180}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", Start: 0, End: 100}),
	)

	noSymbol := charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)})
	line.SetXAxis(frames).
		AddSeries("elbow", angleData(t, func(p Point) *float64 { return p.Elbow }), noSymbol,
			charts.WithMarkLineNameYAxisItemOpts(
				opts.MarkLineNameYAxisItem{Name: "elbow down", YAxis: t.cfg.Pushup.ElbowDown},
				opts.MarkLineNameYAxisItem{Name: "elbow up", YAxis: t.cfg.Pushup.ElbowUp},
			)).
		AddSeries("body", angleData(t, func(p Point) *float64 { return p.Body }), noSymbol,
			charts.WithMarkLineNameYAxisItemOpts(
				opts.MarkLineNameYAxisItem{Name: "torso straight", YAxis: t.cfg.Pushup.TorsoStraight},
			)).
		AddSeries("knee", angleData(t, func(p Point) *float64 { return p.Knee }), noSymbol,
			charts.WithMarkLineNameYAxisItemOpts(
				opts.MarkLineNameYAxisItem{Name: "knee up", YAxis: t.cfg.Squat.KneeUp},
				opts.MarkLineNameYAxisItem{Name: "knee down", YAxis: t.cfg.Squat.KneeDown},
			))
	return line
}

func countChart(t *Trace, frames []int) *charts.Line {
	pushups := make([]opts.LineData, t.Len())
	squats := make([]opts.LineData, t.Len())
	for i, p := range t.points {
		pushups[i] = opts.LineData{Value: p.Pushups}
		squats[i] = opts.LineData{Value: p.Squats}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "1200px", Height: "320px"}),
		charts.WithTitleOpts(opts.Title{Title: "Reps"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Count", Min: 0}),
	)
	step := charts.WithLineChartOpts(opts.LineChart{Step: "end", ShowSymbol: opts.Bool(false)})
	line.SetXAxis(frames).
		AddSeries("pushups", pushups, step).
		AddSeries("squats", squats, step)
	return line
}

// angleData converts one trace to chart points. Miss frames are gaps.
func angleData(t *Trace, get func(Point) *float64) []opts.LineData {
	out := make([]opts.LineData, t.Len())
	for i, p := range t.points {
		v := get(p)
		if !p.Present || v == nil {
			out[i] = opts.LineData{Value: missing}
			continue
		}
		out[i] = opts.LineData{Value: *v}
	}
	return out
}
