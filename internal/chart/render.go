package chart

import (
	"bytes"
	"fmt"
	"image/color"
	"math"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	apperrors "esgboard/internal/errors"
	"esgboard/pkg/contracts/domain"
)

// palette cycles across series; trend overlays reuse their series color.
var palette = []color.RGBA{
	{R: 70, G: 130, B: 180, A: 255},
	{R: 34, G: 139, B: 34, A: 255},
	{R: 255, G: 140, B: 0, A: 255},
	{R: 148, G: 0, B: 211, A: 255},
	{R: 220, G: 20, B: 60, A: 255},
}

// goalColor is the neutral gray used for target reference lines.
var goalColor = color.RGBA{R: 105, G: 105, B: 105, A: 255}

func seriesColor(i int) color.RGBA { return palette[i%len(palette)] }

// RenderPNG draws a chart spec onto a width x height point canvas and
// returns the encoded PNG. The output depends only on the spec and
// dimensions.
func RenderPNG(spec *domain.ChartSpec, width, height int) ([]byte, error) {
	if spec == nil || spec.Rows() == 0 {
		return nil, apperrors.NewAppValidationError("chart spec has no data")
	}
	if width <= 0 || height <= 0 {
		return nil, apperrors.NewAppValidationError("chart dimensions must be positive")
	}

	p := plot.New()
	p.Title.Text = spec.Title
	p.Title.TextStyle.Font.Size = vg.Points(14)
	p.X.Label.Text = "Date"
	p.Y.Label.Text = "Value"
	p.Add(plotter.NewGrid())
	p.Legend.Top = true

	var err error
	switch spec.Kind {
	case domain.ChartBar:
		err = addBars(p, spec)
	case domain.ChartScatter:
		err = addScatter(p, spec)
	default:
		err = addLines(p, spec)
	}
	if err != nil {
		return nil, err
	}
	if spec.Kind != domain.ChartBar {
		p.X.Tick.Marker = dateTicks(spec.Dates)
	}

	if err := addGoals(p, spec); err != nil {
		return nil, err
	}
	if err := addTrends(p, spec); err != nil {
		return nil, err
	}

	wt, err := p.WriterTo(vg.Points(float64(width)), vg.Points(float64(height)), "png")
	if err != nil {
		return nil, apperrors.NewInternalAppError("failed to render chart", err)
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, apperrors.NewInternalAppError("failed to encode chart", err)
	}
	return buf.Bytes(), nil
}

func addLines(p *plot.Plot, spec *domain.ChartSpec) error {
	for i, s := range spec.Series {
		line, err := plotter.NewLine(seriesXYs(s.Values))
		if err != nil {
			return apperrors.NewInternalAppError(fmt.Sprintf("failed to plot series %s", s.Name), err)
		}
		line.Color = seriesColor(i)
		line.Width = vg.Points(2)
		if spec.Kind == domain.ChartArea {
			fill := seriesColor(i)
			fill.A = 96
			line.FillColor = fill
		}
		p.Add(line)
		p.Legend.Add(s.Name, line)
	}
	return nil
}

func addScatter(p *plot.Plot, spec *domain.ChartSpec) error {
	for i, s := range spec.Series {
		points, err := plotter.NewScatter(seriesXYs(s.Values))
		if err != nil {
			return apperrors.NewInternalAppError(fmt.Sprintf("failed to plot series %s", s.Name), err)
		}
		points.GlyphStyle.Color = seriesColor(i)
		points.GlyphStyle.Radius = vg.Points(3)
		points.GlyphStyle.Shape = draw.CircleGlyph{}
		p.Add(points)
		p.Legend.Add(s.Name, points)
	}
	return nil
}

// addBars draws one bar group per timestamp, offsetting each series so the
// group centers on its index position. NominalX keeps the date labels under
// the groups.
func addBars(p *plot.Plot, spec *domain.ChartSpec) error {
	n := len(spec.Series)
	if n == 0 {
		return nil
	}
	barWidth := vg.Points(18) / vg.Length(n)
	for i, s := range spec.Series {
		bars, err := plotter.NewBarChart(plotter.Values(s.Values), barWidth)
		if err != nil {
			return apperrors.NewInternalAppError(fmt.Sprintf("failed to plot series %s", s.Name), err)
		}
		bars.Color = seriesColor(i)
		bars.LineStyle.Width = vg.Length(0)
		bars.Offset = vg.Length(float64(i)-float64(n-1)/2) * barWidth
		p.Add(bars)
		p.Legend.Add(s.Name, bars)
	}

	labels := make([]string, len(spec.Dates))
	for i, d := range spec.Dates {
		labels[i] = d.Format("2006-01")
	}
	p.NominalX(labels...)
	p.X.Tick.Label.Rotation = math.Pi / 3
	p.X.Tick.Label.YAlign = draw.YCenter
	p.X.Tick.Label.XAlign = draw.XRight
	return nil
}

func addGoals(p *plot.Plot, spec *domain.ChartSpec) error {
	for _, g := range spec.Goals {
		line, err := plotter.NewLine(horizontalXYs(g.Value, spec.Rows()))
		if err != nil {
			return apperrors.NewInternalAppError(fmt.Sprintf("failed to plot goal for %s", g.Metric), err)
		}
		line.Color = goalColor
		line.Width = vg.Points(1)
		line.Dashes = []vg.Length{vg.Points(6), vg.Points(4)}
		p.Add(line)
		p.Legend.Add(g.Label, line)
	}
	return nil
}

func addTrends(p *plot.Plot, spec *domain.ChartSpec) error {
	for i, tr := range spec.Trends {
		points := make(plotter.XYs, spec.Rows())
		for x := range points {
			points[x].X = float64(x)
			points[x].Y = tr.Intercept + tr.Slope*float64(x)
		}
		line, err := plotter.NewLine(points)
		if err != nil {
			return apperrors.NewInternalAppError(fmt.Sprintf("failed to plot trend for %s", tr.Metric), err)
		}
		line.Color = seriesColor(i)
		line.Width = vg.Points(1)
		line.Dashes = []vg.Length{vg.Points(3), vg.Points(3)}
		p.Add(line)
		p.Legend.Add(tr.Label, line)
	}
	return nil
}

func seriesXYs(values []float64) plotter.XYs {
	points := make(plotter.XYs, len(values))
	for i, v := range values {
		points[i].X = float64(i)
		points[i].Y = v
	}
	return points
}

func horizontalXYs(y float64, rows int) plotter.XYs {
	right := float64(rows - 1)
	if right <= 0 {
		right = 1
	}
	return plotter.XYs{{X: 0, Y: y}, {X: right, Y: y}}
}

// dateTicks labels index positions with their dates, thinning long axes to
// keep labels readable.
type dateTicks []time.Time

func (d dateTicks) Ticks(min, max float64) []plot.Tick {
	const maxTicks = 9
	step := 1
	if len(d) > maxTicks {
		step = (len(d) + maxTicks - 1) / maxTicks
	}
	var ticks []plot.Tick
	for i := 0; i < len(d); i += step {
		v := float64(i)
		if v < min || v > max {
			continue
		}
		ticks = append(ticks, plot.Tick{Value: v, Label: d[i].Format("2006-01")})
	}
	return ticks
}
