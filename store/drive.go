package store

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"affirmation-pipeline/types"
)

// DriveStore uploads artifacts into a fixed Drive folder. Re-uploading the
// same name updates the existing file, keeping the destination idempotent.
type DriveStore struct {
	svc      *drive.Service
	folderID string
}

func NewDriveStore(ctx context.Context, clientID, clientSecret, refreshToken, folderID string) (*DriveStore, error) {
	conf := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{drive.DriveFileScope},
	}
	token := &oauth2.Token{
		RefreshToken: refreshToken,
		Expiry:       time.Now().Add(-time.Hour), // force refresh
	}
	httpClient := &http.Client{
		Transport: &oauth2.Transport{Source: conf.TokenSource(ctx, token)},
	}

	svc, err := drive.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("drive service: %w", err)
	}
	return &DriveStore{svc: svc, folderID: folderID}, nil
}

func (d *DriveStore) Name() string { return "drive" }

// Put creates the file in the configured folder, or updates it in place if
// a file with the same name already exists there
func (d *DriveStore) Put(ctx context.Context, key, path, contentType string) (*types.RemoteReference, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &PermanentError{Err: fmt.Errorf("open %s: %w", path, err)}
	}
	defer f.Close()

	existing, err := d.findExisting(ctx, key)
	if err != nil {
		return nil, classifyDriveError("list", err)
	}

	media := googleapi.ContentType(contentType)
	if existing != "" {
		file, err := d.svc.Files.Update(existing, &drive.File{}).Media(f, media).Context(ctx).Do()
		if err != nil {
			return nil, classifyDriveError("update", err)
		}
		return &types.RemoteReference{DriveFileID: file.Id}, nil
	}

	file, err := d.svc.Files.Create(&drive.File{
		Name:    key,
		Parents: []string{d.folderID},
	}).Media(f, media).Context(ctx).Do()
	if err != nil {
		return nil, classifyDriveError("create", err)
	}
	return &types.RemoteReference{DriveFileID: file.Id}, nil
}

func (d *DriveStore) findExisting(ctx context.Context, name string) (string, error) {
	query := fmt.Sprintf("name = '%s' and '%s' in parents and trashed = false",
		strings.ReplaceAll(name, "'", `\'`), d.folderID)
	list, err := d.svc.Files.List().Q(query).Fields("files(id)").PageSize(1).Context(ctx).Do()
	if err != nil {
		return "", err
	}
	if len(list.Files) == 0 {
		return "", nil
	}
	return list.Files[0].Id, nil
}

func classifyDriveError(op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && (gerr.Code == http.StatusUnauthorized || gerr.Code == http.StatusForbidden) {
		return &PermanentError{Err: fmt.Errorf("drive %s: %w", op, err)}
	}
	return fmt.Errorf("drive %s: %w", op, err)
}
