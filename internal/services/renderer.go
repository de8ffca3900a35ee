package services

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/fogleman/gg"
	"golang.org/x/image/colornames"

	"chartgpt-backend/internal/models"
)

const (
	exportWidth  = 1200
	exportHeight = 800

	plotLeft   = 120.0
	plotRight  = 1140.0
	plotTop    = 90.0
	plotBottom = 680.0

	gridLinesCount = 4
	pointRadius    = 6.0
	lineWidth      = 3.0

	ExportFilename = "chart.png"
)

var fallbackPalette = []string{
	"#4285F4", "#34A853", "#FBBC05", "#EA4335",
	"#8E44AD", "#16A085", "#F39C12", "#2C3E50",
}

var (
	hexColorRe = regexp.MustCompile(`^#(?:[0-9a-f]{3}|[0-9a-f]{6})$`)
	rgbColorRe = regexp.MustCompile(`^rgba?\(\s*(\d{1,3})\s*,\s*(\d{1,3})\s*,\s*(\d{1,3})\s*(?:,\s*([0-9]*\.?[0-9]+)\s*)?\)$`)
)

type renderFamily int

const (
	familyBars renderFamily = iota
	familyLine
	familyPie
)

func familyOf(t models.ChartType) renderFamily {
	switch t {
	case models.ChartPie:
		return familyPie
	case models.ChartLine, models.ChartArea, models.ChartScatter, models.ChartRadar:
		return familyLine
	default:
		return familyBars
	}
}

// RenderChartPNG rasterizes a successful result. Points are drawn in array
// order; missing colors and values fall back to the palette and zero.
func RenderChartPNG(w io.Writer, chartType models.ChartType, points []models.ChartDataPoint) error {
	dc := gg.NewContext(exportWidth, exportHeight)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	dc.SetRGB(0.2, 0.2, 0.2)
	dc.DrawStringAnchored(fmt.Sprintf("%s chart", chartType), exportWidth/2, 40, 0.5, 0.5)

	if len(points) > 0 {
		switch familyOf(chartType) {
		case familyPie:
			drawPie(dc, points)
		case familyLine:
			drawLine(dc, chartType, points)
		default:
			drawBars(dc, points)
		}
	}

	if err := dc.EncodePNG(w); err != nil {
		return fmt.Errorf("failed to encode chart png: %w", err)
	}
	return nil
}

// pointColor honors the CSS forms a generator emits: #rgb, #rrggbb,
// rgb()/rgba() and named colors. Anything else gets a palette color.
func pointColor(p models.ChartDataPoint, i int) color.Color {
	if c, ok := parseCSSColor(p.Color); ok {
		return c
	}
	c, _ := parseCSSColor(fallbackPalette[i%len(fallbackPalette)])
	return c
}

func parseCSSColor(raw string) (color.Color, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))

	if hexColorRe.MatchString(s) {
		hex := s[1:]
		if len(hex) == 3 {
			hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
		}
		v, _ := strconv.ParseUint(hex, 16, 32)
		return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, true
	}

	if m := rgbColorRe.FindStringSubmatch(s); m != nil {
		var rgb [3]uint8
		for i := range rgb {
			v, _ := strconv.Atoi(m[i+1])
			if v > 255 {
				return nil, false
			}
			rgb[i] = uint8(v)
		}
		alpha := uint8(255)
		if m[4] != "" {
			a, err := strconv.ParseFloat(m[4], 64)
			if err != nil || a > 1 {
				return nil, false
			}
			alpha = uint8(math.Round(a * 255))
		}
		return color.NRGBA{R: rgb[0], G: rgb[1], B: rgb[2], A: alpha}, true
	}

	if c, ok := colornames.Map[s]; ok {
		return c, true
	}
	return nil, false
}

func pointValue(p models.ChartDataPoint) float64 {
	v, _ := p.Numeric()
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// valueRange always includes zero so bars grow from a visible baseline.
func valueRange(points []models.ChartDataPoint) (lo, hi float64) {
	for _, p := range points {
		v := pointValue(p)
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if hi == lo {
		hi = lo + 1
	}
	return lo, hi
}

func scaleY(v, lo, hi float64) float64 {
	return plotBottom - (v-lo)/(hi-lo)*(plotBottom-plotTop)
}

func drawAxes(dc *gg.Context, lo, hi float64) {
	dc.SetRGB(0.85, 0.85, 0.85)
	dc.SetLineWidth(1)
	for i := 0; i <= gridLinesCount; i++ {
		v := lo + (hi-lo)*float64(i)/gridLinesCount
		y := scaleY(v, lo, hi)
		dc.DrawLine(plotLeft, y, plotRight, y)
		dc.Stroke()

		dc.SetRGB(0.4, 0.4, 0.4)
		dc.DrawStringAnchored(strconv.FormatFloat(v, 'g', 4, 64), plotLeft-12, y, 1, 0.5)
		dc.SetRGB(0.85, 0.85, 0.85)
	}
}

func drawCategoryLabel(dc *gg.Context, name string, x float64) {
	dc.SetRGB(0.2, 0.2, 0.2)
	dc.DrawStringAnchored(name, x, plotBottom+24, 0.5, 0.5)
}

func drawBars(dc *gg.Context, points []models.ChartDataPoint) {
	lo, hi := valueRange(points)
	drawAxes(dc, lo, hi)

	slot := (plotRight - plotLeft) / float64(len(points))
	barWidth := slot * 0.6
	baseline := scaleY(0, lo, hi)

	for i, p := range points {
		x := plotLeft + slot*float64(i) + (slot-barWidth)/2
		y := scaleY(pointValue(p), lo, hi)

		dc.SetColor(pointColor(p, i))
		dc.DrawRectangle(x, math.Min(y, baseline), barWidth, math.Abs(baseline-y))
		dc.Fill()

		drawCategoryLabel(dc, p.Name, x+barWidth/2)
	}
}

func drawLine(dc *gg.Context, chartType models.ChartType, points []models.ChartDataPoint) {
	lo, hi := valueRange(points)
	drawAxes(dc, lo, hi)

	slot := (plotRight - plotLeft) / float64(len(points))
	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		xs[i] = plotLeft + slot*float64(i) + slot/2
		ys[i] = scaleY(pointValue(p), lo, hi)
	}

	lineColor := pointColor(points[0], 0)

	if chartType == models.ChartArea {
		baseline := scaleY(0, lo, hi)
		dc.MoveTo(xs[0], baseline)
		for i := range xs {
			dc.LineTo(xs[i], ys[i])
		}
		dc.LineTo(xs[len(xs)-1], baseline)
		dc.ClosePath()
		dc.SetColor(lineColor)
		dc.Fill()
	}

	if chartType != models.ChartScatter && len(points) > 1 {
		dc.SetColor(lineColor)
		dc.SetLineWidth(lineWidth)
		dc.MoveTo(xs[0], ys[0])
		for i := 1; i < len(xs); i++ {
			dc.LineTo(xs[i], ys[i])
		}
		dc.Stroke()
	}

	for i, p := range points {
		dc.SetColor(pointColor(p, i))
		dc.DrawCircle(xs[i], ys[i], pointRadius)
		dc.Fill()
		drawCategoryLabel(dc, p.Name, xs[i])
	}
}

func drawPie(dc *gg.Context, points []models.ChartDataPoint) {
	cx, cy := exportWidth/2.0, (plotTop+plotBottom)/2
	radius := (plotBottom - plotTop) / 2

	total := 0.0
	for _, p := range points {
		total += math.Max(pointValue(p), 0)
	}
	if total == 0 {
		dc.SetRGB(0.85, 0.85, 0.85)
		dc.DrawCircle(cx, cy, radius)
		dc.Stroke()
		return
	}

	angle := -math.Pi / 2
	for i, p := range points {
		v := math.Max(pointValue(p), 0)
		if v == 0 {
			continue
		}
		sweep := v / total * 2 * math.Pi

		dc.SetColor(pointColor(p, i))
		dc.MoveTo(cx, cy)
		dc.DrawArc(cx, cy, radius, angle, angle+sweep)
		dc.ClosePath()
		dc.Fill()

		mid := angle + sweep/2
		dc.SetRGB(0.2, 0.2, 0.2)
		dc.DrawStringAnchored(p.Name, cx+math.Cos(mid)*(radius+30), cy+math.Sin(mid)*(radius+30), 0.5, 0.5)

		angle += sweep
	}
}
