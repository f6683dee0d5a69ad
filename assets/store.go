package assets

import (
	"context"
	"fmt"
	"log"
	"os"

	"affirmation-pipeline/config"
	"affirmation-pipeline/types"
)

// Prober measures a media file's duration; satisfied by compose.FFmpeg
type Prober interface {
	Probe(ctx context.Context, file string) (float64, error)
}

// Bundle is a variant's resolved, validated static assets
type Bundle struct {
	BackgroundImage  string
	BackgroundMusic  string
	FontFile         string
	MusicDurationSec float64
}

// Store validates the fixed local assets a variant renders with. Assets
// are static and don't transiently fail, so every problem here is fatal.
type Store struct {
	prober Prober
}

func NewStore(prober Prober) *Store {
	return &Store{prober: prober}
}

// Resolve checks that the variant's assets exist and are readable, and
// probes the music duration. Carousel variants carry no music.
func (s *Store) Resolve(ctx context.Context, v config.VariantConfig) (*Bundle, error) {
	b := &Bundle{
		BackgroundImage: v.BackgroundImage,
		BackgroundMusic: v.BackgroundMusic,
		FontFile:        v.FontFile,
	}

	if err := checkFile(b.BackgroundImage, "background image"); err != nil {
		return nil, err
	}
	if err := checkFile(b.FontFile, "font"); err != nil {
		return nil, err
	}

	if v.Mode != "carousel" {
		if err := checkFile(b.BackgroundMusic, "background music"); err != nil {
			return nil, err
		}
		dur, err := s.prober.Probe(ctx, b.BackgroundMusic)
		if err != nil {
			return nil, fmt.Errorf("%w: probe background music %s: %v", types.ErrAsset, b.BackgroundMusic, err)
		}
		b.MusicDurationSec = dur
		if dur < v.DurationSec {
			log.Printf("[assets] Music is %.1fs but the video is %.1fs — it will be looped", dur, v.DurationSec)
		}
	}

	log.Printf("[assets] Assets resolved: image=%s font=%s", b.BackgroundImage, b.FontFile)
	return b, nil
}

func checkFile(path, kind string) error {
	if path == "" {
		return fmt.Errorf("%w: no %s configured", types.ErrAsset, kind)
	}
	fi, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", types.ErrAsset, kind, path, err)
	}
	if fi.IsDir() || fi.Size() == 0 {
		return fmt.Errorf("%w: %s %s is empty or a directory", types.ErrAsset, kind, path)
	}
	return nil
}
