package app

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/inconsolata"
	"golang.org/x/image/math/fixed"
)

const (
	dpi            = 96.0
	fontSize       = 12.0
	tickMarkLength = 5
	pixelsPerLabel = 120.0

	defaultTopBorder    = 30
	defaultLeftBorder   = 70
	defaultBottomBorder = 30
	defaultRightBorder  = 30
)

// BorderConfig defines the sizes of white space around the waterfall
type BorderConfig struct {
	Top    int // Space for frequency scale
	Left   int // Space for time scale
	Bottom int // Space for information bar
	Right  int // Right padding
}

func defaultBorders() BorderConfig {
	return BorderConfig{
		Top:    defaultTopBorder,
		Left:   defaultLeftBorder,
		Bottom: defaultBottomBorder,
		Right:  defaultRightBorder,
	}
}

// Renderer draws a waterfall with frequency and time scales. Labels use a
// TTF font when one is configured and a built-in bitmap font otherwise.
type Renderer struct {
	theme   ColorTheme
	borders BorderConfig
	face    font.Face
}

func NewRenderer(theme ColorTheme, fontFile string) (*Renderer, error) {
	face := font.Face(inconsolata.Regular8x16)
	if fontFile != "" {
		fontBytes, err := os.ReadFile(fontFile)
		if err != nil {
			return nil, fmt.Errorf("reading font: %w", err)
		}
		parsedFont, err := freetype.ParseFont(fontBytes)
		if err != nil {
			return nil, fmt.Errorf("parsing font: %w", err)
		}
		face = truetype.NewFace(parsedFont, &truetype.Options{
			Size:    fontSize,
			DPI:     dpi,
			Hinting: font.HintingNone,
		})
	}

	return &Renderer{
		theme:   theme,
		borders: defaultBorders(),
		face:    face,
	}, nil
}

func (r *Renderer) Close() error {
	return r.face.Close()
}

// Render produces the annotated image: one pixel per FFT bin horizontally,
// one row per FFT vertically.
func (r *Renderer) Render(w *Waterfall, bounds PowerBounds) *image.RGBA {
	width := w.FFTSize
	height := len(w.Rows)

	fullWidth := width + r.borders.Left + r.borders.Right
	fullHeight := height + r.borders.Top + r.borders.Bottom
	img := image.NewRGBA(image.Rect(0, 0, fullWidth, fullHeight))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	mapper := newColorMapper(r.theme, bounds)
	for y, row := range w.Rows {
		imgY := r.borders.Top + y
		for x, power := range row {
			img.Set(r.borders.Left+x, imgY, mapper.Color(power))
		}
	}

	r.drawFrequencyScale(img, w)
	r.drawTimeScale(img, w)
	r.drawInfoBar(img, w, bounds)

	return img
}

func (r *Renderer) drawString(img *image.RGBA, label string, x, y int) {
	d := font.Drawer{
		Dst:  img,
		Src:  image.Black,
		Face: r.face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(label)
}

func (r *Renderer) measureString(label string) int {
	d := font.Drawer{Face: r.face}
	return d.MeasureString(label).Round()
}

func (r *Renderer) fontHeight() int {
	metrics := r.face.Metrics()
	return (metrics.Ascent + metrics.Descent).Round()
}

func (r *Renderer) drawFrequencyScale(img *image.RGBA, w *Waterfall) {
	minFreq := w.CenterFreq - w.SampleRate/2
	maxFreq := w.CenterFreq + w.SampleRate/2
	step := niceFrequencyStep(w.SampleRate, w.FFTSize)
	startFreq := math.Ceil(minFreq/step) * step

	textY := r.borders.Top - tickMarkLength - 4

	for freq := startFreq; freq <= maxFreq; freq += step {
		xRatio := (freq - minFreq) / w.SampleRate
		x := r.borders.Left + int(xRatio*float64(w.FFTSize))

		for y := r.borders.Top - tickMarkLength; y < r.borders.Top; y++ {
			img.Set(x, y, color.Black)
		}

		label := formatFrequency(freq)
		r.drawString(img, label, x-r.measureString(label)/2, textY)
	}
}

func (r *Renderer) drawTimeScale(img *image.RGBA, w *Waterfall) {
	rowDuration := float64(w.FFTSize) / w.SampleRate
	step := niceTimeStep(rowDuration*float64(len(w.Rows)), len(w.Rows))
	rowsPerStep := int(math.Max(1, math.Round(step/rowDuration)))

	fontHeight := r.fontHeight()

	for row := 0; row < len(w.Rows); row += rowsPerStep {
		imgY := r.borders.Top + row

		for x := r.borders.Left - tickMarkLength; x < r.borders.Left; x++ {
			img.Set(x, imgY, color.Black)
		}

		label := formatSeconds(float64(row) * rowDuration)
		r.drawString(img, label, 8, imgY+fontHeight/2)
	}
}

func (r *Renderer) drawInfoBar(img *image.RGBA, w *Waterfall, bounds PowerBounds) {
	minFreq := w.CenterFreq - w.SampleRate/2
	maxFreq := w.CenterFreq + w.SampleRate/2
	binWidth := w.SampleRate / float64(w.FFTSize)

	label := fmt.Sprintf("Freq: %s - %s; 1px = %s; Power: %.0f to %.0f dBFS",
		formatFrequency(minFreq), formatFrequency(maxFreq),
		formatFrequency(binWidth), bounds.Min, bounds.Max)

	textY := img.Bounds().Max.Y - (r.borders.Bottom-r.fontHeight())/2 - 2
	r.drawString(img, label, r.borders.Left, textY)
}

// niceFrequencyStep picks a 1/2/5 decade step that yields roughly one label
// per pixelsPerLabel pixels.
func niceFrequencyStep(span float64, width int) float64 {
	target := span * pixelsPerLabel / float64(width)
	decade := math.Pow(10, math.Floor(math.Log10(target)))
	for _, mult := range []float64{1, 2, 5, 10} {
		if decade*mult >= target {
			return decade * mult
		}
	}
	return decade * 10
}

func niceTimeStep(duration float64, rows int) float64 {
	target := duration * pixelsPerLabel / float64(rows)
	steps := []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300, 600, 1800, 3600}
	for _, step := range steps {
		if step >= target {
			return step
		}
	}
	return 7200
}

func formatFrequency(freq float64) string {
	if freq == 0 {
		return "0 Hz"
	}
	value, prefix := humanize.ComputeSI(freq)
	return fmt.Sprintf("%.4g %sHz", value, prefix)
}

func formatSeconds(seconds float64) string {
	if seconds >= 60 {
		return fmt.Sprintf("%dm%02.0fs", int(seconds)/60, math.Mod(seconds, 60))
	}
	return fmt.Sprintf("%.2fs", seconds)
}
