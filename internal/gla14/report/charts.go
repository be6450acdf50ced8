package report

import (
	"fmt"
	"image/color"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/gla14/internal/gla14"
)

// WriteRejectionChart renders an HTML bar chart of rejected shots per rule.
func (a *Accumulator) WriteRejectionChart(w io.Writer, title string) error {
	x := make([]string, 0, len(gla14.AllRules))
	y := make([]opts.BarData, 0, len(gla14.AllRules))
	for _, r := range gla14.AllRules {
		x = append(x, r.String())
		y = append(y, opts.BarData{Value: a.Rejections[r]})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "GLA14 rejections", Width: "100%", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: fmt.Sprintf("records=%d shots=%d kept=%d", a.Records, a.Shots, a.Kept)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "rule", AxisLabel: &opts.AxisLabel{Rotate: 30}}),
		charts.WithYAxisOpts(opts.YAxis{Name: "shots"}),
	)
	bar.SetXAxis(x).
		AddSeries("rejected", y,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)
	return bar.Render(w)
}

// WriteProfilePlot renders a PNG of kept-shot elevation against latitude.
func (a *Accumulator) WriteProfilePlot(w io.Writer, title string) error {
	if len(a.latitude) == 0 {
		return fmt.Errorf("profile plot: no kept shots")
	}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Latitude (deg)"
	p.Y.Label.Text = "Elevation (m)"

	pts := make(plotter.XYs, len(a.latitude))
	for i := range a.latitude {
		pts[i] = plotter.XY{X: a.latitude[i], Y: a.elevation[i]}
	}
	sc, err := plotter.NewScatter(pts)
	if err != nil {
		return err
	}
	sc.GlyphStyle.Radius = vg.Points(1)
	sc.GlyphStyle.Color = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	p.Add(sc, plotter.NewGrid())

	wt, err := p.WriterTo(14*vg.Inch, 6*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("profile plot: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write profile plot: %w", err)
	}
	return nil
}
