// Package chart renders the dashboard charts as PNG images. The browser
// draws the interactive versions from the JSON API; these are the
// server-side fallback and the images used by exports.
package chart

import (
	"bytes"
	"fmt"
	"image/color"
	"io"
	"math"
	"strconv"

	"ocorrencias/internal/core"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// Chart names accepted by Render.
const (
	Gender = "genero"
	ByYear = "ano"
	Time   = "tempo"
)

const (
	TitleGender = "Distribuição de Gênero por Ocorrência"
	TitleByYear = "Total de Vítimas por Gênero por Ano"
	TitleTime   = "Quantidade de Vítimas ao Longo do Tempo"
)

// DonutHole is the inner radius as a fraction of the outer one.
const DonutHole = 0.4

var (
	// Qualitative palettes: donut slices, then the paired bars.
	donutColors = []color.Color{rgb(0x33, 0x66, 0xcc), rgb(0xdc, 0x39, 0x12)}
	barColors   = []color.Color{rgb(0xe4, 0x1a, 0x1c), rgb(0x37, 0x7e, 0xb8)}
	lineColor   = rgb(0x63, 0x6e, 0xfa)
)

func rgb(r, g, b uint8) color.RGBA { return color.RGBA{R: r, G: g, B: b, A: 255} }

// Size of rendered images.
type Size struct {
	Width, Height vg.Length
}

var DefaultSize = Size{Width: 6 * vg.Inch, Height: 4 * vg.Inch}

// Names lists the chart names in page order.
func Names() []string { return []string{Gender, ByYear, Time} }

// Render writes the named chart of s as PNG to w.
func Render(w io.Writer, name string, s core.Summary, size Size) error {
	var (
		p   *plot.Plot
		err error
	)
	switch name {
	case Gender:
		p = GenderDonut(s.Gender)
	case ByYear:
		p, err = YearBars(s.ByYear)
	case Time:
		p, err = TimeLine(s.Series)
	default:
		return fmt.Errorf("unknown chart %q", name)
	}
	if err != nil {
		return fmt.Errorf("build %s chart: %w", name, err)
	}

	wt, err := p.WriterTo(size.Width, size.Height, "png")
	if err != nil {
		return fmt.Errorf("render %s chart: %w", name, err)
	}
	_, err = wt.WriteTo(w)
	return err
}

// PNG renders the named chart into a byte slice.
func PNG(name string, s core.Summary, size Size) ([]byte, error) {
	var buf bytes.Buffer
	if err := Render(&buf, name, s, size); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GenderDonut builds the proportional chart of the two gender totals,
// each slice annotated with its percentage and label.
func GenderDonut(t core.GenderTotals) *plot.Plot {
	p := plot.New()
	p.Title.Text = TitleGender
	p.HideAxes()

	d := &donut{shares: t.Shares(), colors: donutColors, hole: DonutHole}
	p.Add(d)
	for i, s := range d.shares {
		p.Legend.Add(s.Label, swatch{donutColors[i%len(donutColors)]})
	}
	p.Legend.Top = true
	return p
}

// YearBars builds the paired per-year bars.
func YearBars(years []core.YearTotals) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = TitleByYear
	p.Y.Label.Text = "Total de Vítimas"
	p.X.Label.Text = "ano"

	if len(years) == 0 {
		return p, nil
	}

	fem := make(plotter.Values, len(years))
	mas := make(plotter.Values, len(years))
	labels := make([]string, len(years))
	for i, y := range years {
		fem[i] = float64(y.Feminino)
		mas[i] = float64(y.Masculino)
		labels[i] = strconv.Itoa(y.Ano)
	}

	w := vg.Points(18)
	fb, err := plotter.NewBarChart(fem, w)
	if err != nil {
		return nil, err
	}
	fb.Color = barColors[0]
	fb.LineStyle.Width = 0
	fb.Offset = -w / 2

	mb, err := plotter.NewBarChart(mas, w)
	if err != nil {
		return nil, err
	}
	mb.Color = barColors[1]
	mb.LineStyle.Width = 0
	mb.Offset = w / 2

	p.Add(fb, mb)
	p.Legend.Add(core.ColFeminino, fb)
	p.Legend.Add(core.ColMasculino, mb)
	p.Legend.Top = true
	p.NominalX(labels...)
	return p, nil
}

// TimeLine builds the monthly victims series, one marker per month.
func TimeLine(series []core.TimePoint) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = TitleTime
	p.X.Label.Text = "Data"
	p.Y.Label.Text = "Quantidade de Vítimas"
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01"}

	if len(series) == 0 {
		return p, nil
	}

	xys := make(plotter.XYs, len(series))
	for i, pt := range series {
		xys[i].X = float64(pt.Data.Unix())
		xys[i].Y = float64(pt.TotalVitimas)
	}
	line, points, err := plotter.NewLinePoints(xys)
	if err != nil {
		return nil, err
	}
	line.Color = lineColor
	points.Color = lineColor
	points.Shape = draw.CircleGlyph{}
	p.Add(line, points, plotter.NewGrid())
	return p, nil
}

// donut draws annular slices clockwise from twelve o'clock.
type donut struct {
	shares []core.GenderShare
	colors []color.Color
	hole   float64
}

func (d *donut) Plot(c draw.Canvas, plt *plot.Plot) {
	var total int
	for _, s := range d.shares {
		total += s.Total
	}
	if total == 0 {
		return
	}

	size := c.Size()
	radius := vg.Length(math.Min(float64(size.X), float64(size.Y))) / 2 * 0.9
	inner := radius * vg.Length(d.hole)
	center := vg.Point{X: (c.Min.X + c.Max.X) / 2, Y: (c.Min.Y + c.Max.Y) / 2}

	sty := plt.Title.TextStyle
	sty.Font.Size = vg.Points(10)
	sty.Color = color.White
	sty.XAlign = draw.XCenter
	sty.YAlign = draw.YCenter

	start := math.Pi / 2
	for i, s := range d.shares {
		if s.Total == 0 {
			continue
		}
		sweep := -2 * math.Pi * float64(s.Total) / float64(total)

		var path vg.Path
		path.Arc(center, radius, start, sweep)
		path.Arc(center, inner, start+sweep, -sweep)
		path.Close()
		c.SetColor(d.colors[i%len(d.colors)])
		c.Fill(path)

		mid := start + sweep/2
		r := (radius + inner) / 2
		at := vg.Point{
			X: center.X + r*vg.Length(math.Cos(mid)),
			Y: center.Y + r*vg.Length(math.Sin(mid)),
		}
		c.FillText(sty, at, fmt.Sprintf("%s\n%.1f%%", s.Label, s.Percent))

		start += sweep
	}
}

// swatch is a legend thumbnail filled with a solid color.
type swatch struct{ color color.Color }

func (s swatch) Thumbnail(c *draw.Canvas) {
	pts := []vg.Point{
		{X: c.Min.X, Y: c.Min.Y},
		{X: c.Min.X, Y: c.Max.Y},
		{X: c.Max.X, Y: c.Max.Y},
		{X: c.Max.X, Y: c.Min.Y},
	}
	c.FillPolygon(s.color, c.ClipPolygonXY(pts))
}
