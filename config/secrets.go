package config

import (
	"fmt"
	"os"
	"strings"
)

// Secrets carries every credential the pipeline can need. They come only
// from the environment (.env locally, scheduler secrets in production) and
// are validated once at startup — a missing value for an enabled feature
// is a fatal startup condition, never a per-run error.
type Secrets struct {
	OpenAIKey          string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	AWSRegion          string
	S3Bucket           string
	FacebookPageID     string
	FacebookToken      string
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRefreshToken string
	DriveFolderID      string
	SpreadsheetID      string
}

// SecretsFromEnv snapshots the process environment
func SecretsFromEnv() *Secrets {
	return &Secrets{
		OpenAIKey:          os.Getenv("OPENAI_API_KEY"),
		AWSAccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
		AWSSecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		AWSRegion:          os.Getenv("AWS_DEFAULT_REGION"),
		S3Bucket:           os.Getenv("S3_BUCKET_NAME"),
		FacebookPageID:     os.Getenv("FACEBOOK_PAGE_ID"),
		FacebookToken:      os.Getenv("FACEBOOK_ACCESS_TOKEN"),
		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleRefreshToken: os.Getenv("GOOGLE_REFRESH_TOKEN"),
		DriveFolderID:      os.Getenv("GOOGLE_DRIVE_FOLDER_ID"),
		SpreadsheetID:      os.Getenv("GOOGLE_SHEETS_SPREADSHEET_ID"),
	}
}

// Validate checks that every feature enabled in cfg has its credentials.
// Disabled destinations need nothing.
func (s *Secrets) Validate(cfg *Config) error {
	var missing []string
	require := func(value, name string) {
		if value == "" {
			missing = append(missing, name)
		}
	}

	require(s.OpenAIKey, "OPENAI_API_KEY")

	if cfg.Upload.S3 || cfg.Publish.Instagram {
		// Instagram needs a public media URL, which comes from S3
		require(s.AWSAccessKeyID, "AWS_ACCESS_KEY_ID")
		require(s.AWSSecretAccessKey, "AWS_SECRET_ACCESS_KEY")
		require(s.AWSRegion, "AWS_DEFAULT_REGION")
		require(s.S3Bucket, "S3_BUCKET_NAME")
	}
	if cfg.Publish.Facebook || cfg.Publish.Instagram {
		require(s.FacebookPageID, "FACEBOOK_PAGE_ID")
		require(s.FacebookToken, "FACEBOOK_ACCESS_TOKEN")
	}
	if cfg.Upload.Drive || cfg.Publish.CaptionSheet {
		require(s.GoogleClientID, "GOOGLE_CLIENT_ID")
		require(s.GoogleClientSecret, "GOOGLE_CLIENT_SECRET")
		require(s.GoogleRefreshToken, "GOOGLE_REFRESH_TOKEN")
	}
	if cfg.Upload.Drive {
		require(s.DriveFolderID, "GOOGLE_DRIVE_FOLDER_ID")
	}
	if cfg.Publish.CaptionSheet {
		require(s.SpreadsheetID, "GOOGLE_SHEETS_SPREADSHEET_ID")
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required environment: %s", strings.Join(missing, ", "))
	}
	return nil
}
