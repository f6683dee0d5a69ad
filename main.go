package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"

	"affirmation-pipeline/assets"
	"affirmation-pipeline/compose"
	"affirmation-pipeline/config"
	"affirmation-pipeline/content"
	"affirmation-pipeline/monitor"
	"affirmation-pipeline/pipeline"
	"affirmation-pipeline/publish"
	"affirmation-pipeline/store"
)

const memoryCeilingMB = 2048

func main() {
	// Load .env (local dev only — the scheduler injects real secrets)
	_ = godotenv.Load()

	configPath := flag.String("config", "config.yaml", "path to the yaml config")
	variantName := flag.String("variant", "classic-30s", "run variant to produce")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	secrets := config.SecretsFromEnv()
	if err := secrets.Validate(cfg); err != nil {
		log.Fatalf("Startup check failed: %v", err)
	}

	ctx := context.Background()

	deps, err := buildDeps(ctx, cfg, secrets)
	if err != nil {
		log.Fatalf("Failed to build pipeline: %v", err)
	}

	p, err := pipeline.New(cfg, *variantName, deps)
	if err != nil {
		log.Fatalf("Failed to initialize run: %v", err)
	}

	state, err := p.Run(ctx)
	if err != nil {
		log.Printf("❌ Pipeline failed at stage %s: %v", state.FailedStage, err)
		os.Exit(1)
	}
}

// buildDeps wires the stage components from config and secrets. Anything
// disabled in config is simply not constructed.
func buildDeps(ctx context.Context, cfg *config.Config, secrets *config.Secrets) (pipeline.Deps, error) {
	tools := compose.FFmpeg{}

	var stores []store.ObjectStore
	if cfg.Upload.S3 || cfg.Publish.Instagram {
		s3Store, err := store.NewS3Store(ctx, secrets.AWSAccessKeyID, secrets.AWSSecretAccessKey, secrets.AWSRegion, secrets.S3Bucket)
		if err != nil {
			return pipeline.Deps{}, err
		}
		stores = append(stores, s3Store)
	}
	if cfg.Upload.Drive {
		driveStore, err := store.NewDriveStore(ctx, secrets.GoogleClientID, secrets.GoogleClientSecret, secrets.GoogleRefreshToken, secrets.DriveFolderID)
		if err != nil {
			return pipeline.Deps{}, err
		}
		stores = append(stores, driveStore)
	}

	var platforms []publish.Platform
	if cfg.Publish.Facebook {
		platforms = append(platforms, publish.NewFacebook(publish.DefaultGraphURL, secrets.FacebookPageID, secrets.FacebookToken))
	}
	if cfg.Publish.Instagram {
		platforms = append(platforms, publish.NewInstagram(publish.DefaultGraphURL, secrets.FacebookPageID, secrets.FacebookToken))
	}

	var captions publish.CaptionLogger
	if cfg.Publish.CaptionSheet {
		sheet, err := publish.NewSheetLog(ctx, secrets.GoogleClientID, secrets.GoogleClientSecret, secrets.GoogleRefreshToken, secrets.SpreadsheetID, cfg.Publish.SheetName)
		if err != nil {
			return pipeline.Deps{}, err
		}
		captions = sheet
	}

	return pipeline.Deps{
		Generator: content.NewGenerator(content.NewOpenAIClient(cfg.Generation, secrets.OpenAIKey)),
		Assets:    assets.NewStore(tools),
		Composer:  compose.New(tools),
		Monitor:   monitor.New(memoryCeilingMB),
		Uploader:  store.NewUploader(stores...),
		Publisher: publish.NewPublisher(platforms, captions),
	}, nil
}
