package report

import (
	"fmt"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// anglePadding is added around the measured angle range on the Y axis.
const anglePadding = 10.0

// WriteAnglePlot renders the elbow, body and knee traces with the
// session thresholds as dashed lines and counted reps as markers. The
// image format follows the file extension (png, svg, pdf).
func WriteAnglePlot(t *Trace, path string) error {
	if t.Len() == 0 {
		return fmt.Errorf("no frames to plot")
	}

	p := plot.New()
	pushups, squats := t.totals()
	p.Title.Text = fmt.Sprintf("Joint angles: %d pushups, %d squats", pushups, squats)
	p.X.Label.Text = "Frame"
	p.Y.Label.Text = "Angle (deg)"

	series := []struct {
		name string
		get  func(Point) *float64
	}{
		{"elbow (smoothed)", func(pt Point) *float64 { return pt.Elbow }},
		{"body (raw)", func(pt Point) *float64 { return pt.Body }},
		{"knee (smoothed)", func(pt Point) *float64 { return pt.Knee }},
	}
	for i, s := range series {
		segs := segments(t.points, s.get)
		for j, seg := range segs {
			line, err := plotter.NewLine(seg)
			if err != nil {
				return fmt.Errorf("%s line: %w", s.name, err)
			}
			line.Color = plotutil.Color(i)
			line.Width = vg.Points(1)
			p.Add(line)
			if j == 0 {
				p.Legend.Add(s.name, line)
			}
		}
	}

	for i, th := range t.thresholds() {
		v := th.value
		fn := plotter.NewFunction(func(float64) float64 { return v })
		fn.Color = plotutil.Color(i + len(series))
		fn.Width = vg.Points(0.5)
		fn.Dashes = plotutil.Dashes(1)
		p.Add(fn)
		p.Legend.Add(fmt.Sprintf("%s %.0f", th.name, v), fn)
	}

	if counted := t.Counted(); len(counted) > 0 {
		pts := make(plotter.XYs, len(counted))
		for i, tr := range counted {
			pts[i] = plotter.XY{X: float64(tr.Frame), Y: tr.Angle}
		}
		sc, err := plotter.NewScatter(pts)
		if err != nil {
			return fmt.Errorf("rep markers: %w", err)
		}
		sc.GlyphStyle = draw.GlyphStyle{Color: plotutil.Color(0), Radius: vg.Points(3), Shape: draw.CircleGlyph{}}
		p.Add(sc)
		p.Legend.Add("rep counted", sc)
	}

	p.X.Min = float64(t.points[0].Frame)
	p.X.Max = float64(t.points[len(t.points)-1].Frame)
	if p.X.Max <= p.X.Min {
		p.X.Max = p.X.Min + 1
	}
	p.Y.Min, p.Y.Max = 0, 180
	if lo, hi, ok := t.angleRange(); ok {
		p.Y.Min = math.Max(0, math.Min(lo, minThreshold(t))-anglePadding)
		p.Y.Max = math.Min(180, math.Max(hi, maxThreshold(t))+anglePadding)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	if err := p.Save(14*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

// segments splits a trace into continuous runs of measured frames. Miss
// frames and unmeasured values break the line rather than repeating the
// last known value.
func segments(points []Point, get func(Point) *float64) []plotter.XYs {
	var out []plotter.XYs
	var cur plotter.XYs
	for _, pt := range points {
		v := get(pt)
		if !pt.Present || v == nil {
			if len(cur) > 0 {
				out = append(out, cur)
				cur = nil
			}
			continue
		}
		cur = append(cur, plotter.XY{X: float64(pt.Frame), Y: *v})
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}

func minThreshold(t *Trace) float64 {
	m := math.Inf(1)
	for _, th := range t.thresholds() {
		m = math.Min(m, th.value)
	}
	return m
}

func maxThreshold(t *Trace) float64 {
	m := math.Inf(-1)
	for _, th := range t.thresholds() {
		m = math.Max(m, th.value)
	}
	return m
}
