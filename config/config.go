package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Generation GenerationConfig         `yaml:"generation"`
	Assets     AssetsConfig             `yaml:"assets"`
	Upload     UploadConfig             `yaml:"upload"`
	Publish    PublishConfig            `yaml:"publish"`
	Paths      PathsConfig              `yaml:"paths"`
	Variants   map[string]VariantConfig `yaml:"variants"`
}

type GenerationConfig struct {
	Endpoint    string  `yaml:"endpoint"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// AssetsConfig holds the default static assets; a variant may override any of them.
type AssetsConfig struct {
	BackgroundImage string `yaml:"background_image"`
	BackgroundMusic string `yaml:"background_music"`
	FontFile        string `yaml:"font_file"`
}

type UploadConfig struct {
	S3        bool `yaml:"s3"`
	Drive     bool `yaml:"drive"`
	KeepLocal bool `yaml:"keep_local"`
}

type PublishConfig struct {
	Facebook     bool   `yaml:"facebook"`
	Instagram    bool   `yaml:"instagram"`
	CaptionSheet bool   `yaml:"caption_sheet"`
	SheetName    string `yaml:"sheet_name"`
}

type PathsConfig struct {
	Output string `yaml:"output"`
	Logs   string `yaml:"logs"`
}

// VariantConfig describes one run variant. Zero fields fall back to the
// defaults applied in normalize.
type VariantConfig struct {
	Mode            string  `yaml:"mode"` // video | carousel
	DurationSec     float64 `yaml:"duration_sec"`
	Count           int     `yaml:"count"`
	SlideSec        float64 `yaml:"slide_sec"`
	Width           int     `yaml:"width"`
	Height          int     `yaml:"height"`
	FPS             int     `yaml:"fps"`
	FontSize        int     `yaml:"font_size"`
	FadeFraction    float64 `yaml:"fade_fraction"`
	MusicVolume     float64 `yaml:"music_volume"`
	StyleHint       string  `yaml:"style_hint"`
	MaxChars        int     `yaml:"max_chars"`
	BackgroundImage string  `yaml:"background_image"`
	BackgroundMusic string  `yaml:"background_music"`
	FontFile        string  `yaml:"font_file"`
}

// Load reads the yaml config and fills in per-variant defaults
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.normalize()
	return &cfg, nil
}

func (c *Config) normalize() {
	if c.Generation.Endpoint == "" {
		c.Generation.Endpoint = "https://api.openai.com/v1/chat/completions"
	}
	if c.Generation.Model == "" {
		c.Generation.Model = "gpt-4"
	}
	if c.Generation.MaxTokens == 0 {
		c.Generation.MaxTokens = 1024
	}
	if c.Paths.Output == "" {
		c.Paths.Output = "output"
	}
	if c.Paths.Logs == "" {
		c.Paths.Logs = "logs"
	}
	if c.Publish.SheetName == "" {
		c.Publish.SheetName = "Video Captions"
	}
	for name, v := range c.Variants {
		if v.Mode == "" {
			v.Mode = "video"
		}
		if v.Count == 0 {
			v.Count = 5
		}
		if v.Width == 0 {
			v.Width = 1080
		}
		if v.Height == 0 {
			if v.Mode == "carousel" {
				v.Height = 1350 // 4:5 feed aspect
			} else {
				v.Height = 1920
			}
		}
		if v.FPS == 0 {
			v.FPS = 30
		}
		if v.FontSize == 0 {
			v.FontSize = 75
		}
		if v.FadeFraction == 0 {
			v.FadeFraction = 0.1
		}
		if v.MusicVolume == 0 {
			v.MusicVolume = 0.3
		}
		if v.MaxChars == 0 {
			if v.Mode == "carousel" {
				v.MaxChars = 30
			} else {
				v.MaxChars = 60
			}
		}
		if v.DurationSec == 0 && v.Mode != "carousel" {
			if v.SlideSec > 0 {
				v.DurationSec = v.SlideSec * float64(v.Count)
			} else {
				v.DurationSec = 30
			}
		}
		if v.BackgroundImage == "" {
			v.BackgroundImage = c.Assets.BackgroundImage
		}
		if v.BackgroundMusic == "" {
			v.BackgroundMusic = c.Assets.BackgroundMusic
		}
		if v.FontFile == "" {
			v.FontFile = c.Assets.FontFile
		}
		c.Variants[name] = v
	}
}

// Variant returns the named run variant
func (c *Config) Variant(name string) (VariantConfig, error) {
	v, ok := c.Variants[name]
	if !ok {
		return VariantConfig{}, fmt.Errorf("unknown variant %q", name)
	}
	return v, nil
}
