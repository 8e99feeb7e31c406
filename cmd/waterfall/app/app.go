// Package app renders a cf32 recording of the wideband stream into a
// waterfall image for offline inspection.
package app

import (
	"context"
	"fmt"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"

	"github.com/tejeez/sdrglue/internal/iqfile"
)

// Waterfall holds the computed rows plus the metadata needed to label them.
type Waterfall struct {
	Rows       [][]float64
	SampleRate float64
	CenterFreq float64
	FFTSize    int
}

func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	waterfall, bounds, total, err := computeWaterfall(ctx, config)
	if err != nil {
		return err
	}
	if len(waterfall.Rows) == 0 {
		return fmt.Errorf("recording '%s' is shorter than one FFT", config.InputFile)
	}
	logger.Info("recording read",
		slog.String("samples", humanize.Comma(int64(total))),
		slog.Int("rows", len(waterfall.Rows)))

	if config.MinPower != nil {
		bounds.Min = *config.MinPower
	}
	if config.MaxPower != nil {
		bounds.Max = *config.MaxPower
	}

	logger.Info("rendering waterfall",
		slog.Group("image",
			slog.String("destination", config.OutputFile),
			slog.String("format", string(config.Format)),
			slog.String("theme", string(config.Theme)),
			slog.Int("width", waterfall.FFTSize),
			slog.Int("height", len(waterfall.Rows)),
		),
		slog.Group("power",
			slog.String("min", fmt.Sprintf("%.1fdBFS", bounds.Min)),
			slog.String("max", fmt.Sprintf("%.1fdBFS", bounds.Max)),
		))

	renderer, err := NewRenderer(config.Theme, config.FontFile)
	if err != nil {
		return fmt.Errorf("creating renderer: %w", err)
	}
	defer renderer.Close()

	img := renderer.Render(waterfall, bounds)

	out, err := os.Create(config.OutputFile)
	if err != nil {
		return err
	}
	defer out.Close()

	switch config.Format {
	case ImagePNG:
		err = png.Encode(out, img)

	case ImageJPEG:
		err = jpeg.Encode(out, img, &jpeg.Options{
			Quality: 98,
		})
	}
	return err
}

func computeWaterfall(ctx context.Context, config *Config) (*Waterfall, PowerBounds, int, error) {
	reader, err := iqfile.OpenReader(config.InputFile)
	if err != nil {
		return nil, PowerBounds{}, 0, err
	}
	defer reader.Close()

	waterfall := &Waterfall{
		SampleRate: config.SampleRate,
		CenterFreq: config.CenterFreq,
		FFTSize:    config.FFTSize,
	}

	row := newSpectralRow(config.FFTSize)
	hist := newPowerHistogram()
	samples := make([]complex64, config.FFTSize)
	total := 0

	for {
		if err := ctx.Err(); err != nil {
			return nil, PowerBounds{}, 0, err
		}

		n, err := reader.ReadBlock(samples)
		if n == config.FFTSize {
			powers := row.compute(samples, make([]float64, 0, config.FFTSize))
			for _, p := range powers {
				hist.Update(p)
			}
			waterfall.Rows = append(waterfall.Rows, powers)
			total += n
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, PowerBounds{}, 0, fmt.Errorf("reading recording: %w", err)
		}
	}

	// A trailing partial FFT is dropped; the waterfall covers whole rows
	// only.
	return waterfall, hist.PercentileBounds(), total, nil
}
