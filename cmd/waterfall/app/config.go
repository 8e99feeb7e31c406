package app

import (
	"errors"
	"flag"
	"fmt"
	"strings"
)

const (
	ImagePNG  = "png"
	ImageJPEG = "jpeg"
)

type ImageFormat string

type Config struct {
	InputFile  string
	SampleRate float64
	CenterFreq float64
	FFTSize    int
	OutputFile string
	Format     ImageFormat
	Theme      ColorTheme
	FontFile   string
	MinPower   *float64
	MaxPower   *float64
}

var validImageFormats = map[ImageFormat]struct{}{
	ImagePNG:  {},
	ImageJPEG: {},
}

func NewConfig() *Config {
	return &Config{
		Format:  ImagePNG,
		Theme:   ClassicTheme,
		FFTSize: 1024,
	}
}

func NewConfigFromCLI() (*Config, error) {
	c := NewConfig()

	var imageFormat, theme string
	var minPower, maxPower float64
	flag.StringVar(&c.InputFile, "in", "", "Path to the cf32 recording")
	flag.Float64Var(&c.SampleRate, "rate", 0, "Sample rate of the recording in Hz")
	flag.Float64Var(&c.CenterFreq, "center", 0, "Center frequency of the recording in Hz")
	flag.IntVar(&c.FFTSize, "fft", c.FFTSize, "FFT size (one output row per FFT)")
	flag.StringVar(&c.OutputFile, "o", "", "Path to the output file")
	flag.StringVar(&imageFormat, "f", string(ImagePNG), "Output image format. [png, jpeg]")
	flag.StringVar(&theme, "theme", string(ClassicTheme), "Color theme. [classic, grayscale, thermal]")
	flag.StringVar(&c.FontFile, "font", "", "Path to a TTF font for labels (built-in bitmap font if empty)")
	flag.Float64Var(&minPower, "min-power", 0, "Define a manual minimum power in dBFS (format -nn.n)")
	flag.Float64Var(&maxPower, "max-power", 0, "Define a manual maximum power in dBFS (format -nn.n)")
	flag.Parse()

	imageFormat = strings.ToLower(imageFormat)

	flag.Visit(func(f *flag.Flag) {
		if f.Name == "min-power" {
			c.MinPower = &minPower
		}
		if f.Name == "max-power" {
			c.MaxPower = &maxPower
		}
	})

	var err error
	if c.InputFile == "" {
		err = errors.New("input file is required")
	} else if c.SampleRate <= 0 {
		err = errors.New("sample rate is required")
	} else if c.FFTSize < 16 || c.FFTSize&(c.FFTSize-1) != 0 {
		err = fmt.Errorf("FFT size must be a power of two, at least 16: %d given", c.FFTSize)
	} else if c.OutputFile == "" {
		err = errors.New("output file is required")
	} else if _, ok := validImageFormats[ImageFormat(imageFormat)]; !ok {
		err = fmt.Errorf("invalid image format: %s", imageFormat)
	} else if _, ok := validThemes[ColorTheme(theme)]; !ok {
		err = fmt.Errorf("invalid color theme: %s", theme)
	}

	if err != nil {
		flag.Usage()
		return nil, err
	}

	c.Format = ImageFormat(imageFormat)
	c.Theme = ColorTheme(theme)
	c.OutputFile = fmt.Sprintf("%s.%s", c.OutputFile, c.Format)
	return c, nil
}
