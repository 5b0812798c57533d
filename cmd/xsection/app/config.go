package app

import (
	"errors"
	"flag"
	"fmt"
	"strings"
)

const (
	ImagePNG  ImageFormat = "png"
	ImageJPEG ImageFormat = "jpeg"
)

type ImageFormat string

type Config struct {
	DBPath        string
	MeasurementID int64
	TransectIndex int
	OutputFile    string
	Format        ImageFormat
	Theme         ColorTheme
	FontPath      string
	MaxSpeed      *float64
	MinSpeed      *float64
	NoAnnotations bool
}

var validImageFormats = map[ImageFormat]struct{}{
	ImagePNG:  {},
	ImageJPEG: {},
}

func NewConfig() *Config {
	return &Config{
		Format: ImagePNG,
		Theme:  MarineTheme,
	}
}

func NewConfigFromCLI() (*Config, error) {
	c := NewConfig()

	var imageFormat, theme string
	var minSpeed, maxSpeed float64
	flag.StringVar(&c.DBPath, "db", "", "Path to the archive database file")
	flag.Int64Var(&c.MeasurementID, "id", 1, "Measurement ID")
	flag.IntVar(&c.TransectIndex, "t", 0, "Transect index within the measurement")
	flag.StringVar(&c.OutputFile, "o", "", "Path to the output file")
	flag.StringVar(&imageFormat, "f", string(ImagePNG), "Output image format. [png, jpeg]")
	flag.StringVar(&theme, "theme", string(MarineTheme), "Color theme. [classic, grayscale, thermal, marine]")
	flag.StringVar(&c.FontPath, "font", "", "Path to a TTF font for annotations")
	flag.Float64Var(&minSpeed, "min-speed", 0, "Define a manual minimum speed in m/s")
	flag.Float64Var(&maxSpeed, "max-speed", 0, "Define a manual maximum speed in m/s")
	flag.BoolVar(&c.NoAnnotations, "no-annotations", false, "Disable annotations such as station and depth scales")
	flag.Parse()

	imageFormat = strings.ToLower(imageFormat)

	flag.Visit(func(f *flag.Flag) {
		if f.Name == "min-speed" {
			c.MinSpeed = &minSpeed
		}
		if f.Name == "max-speed" {
			c.MaxSpeed = &maxSpeed
		}
	})

	var err error
	if c.DBPath == "" {
		err = errors.New("db path is required")
	} else if c.MeasurementID <= 0 {
		err = errors.New("measurement id is required")
	} else if c.TransectIndex < 0 {
		err = errors.New("transect index must not be negative")
	} else if c.OutputFile == "" {
		err = errors.New("output file is required")
	} else if _, ok := validImageFormats[ImageFormat(imageFormat)]; !ok {
		err = fmt.Errorf("invalid image format: %s", imageFormat)
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
