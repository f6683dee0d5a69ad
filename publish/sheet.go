package publish

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// SheetLog appends (video name, caption) rows to a spreadsheet so captions
// can be reused or audited later. Failures are logged by the publisher and
// never fail a run.
type SheetLog struct {
	svc           *sheets.Service
	spreadsheetID string
	sheetName     string
}

func NewSheetLog(ctx context.Context, clientID, clientSecret, refreshToken, spreadsheetID, sheetName string) (*SheetLog, error) {
	conf := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{sheets.SpreadsheetsScope},
	}
	token := &oauth2.Token{
		RefreshToken: refreshToken,
		Expiry:       time.Now().Add(-time.Hour), // force refresh
	}
	httpClient := &http.Client{
		Transport: &oauth2.Transport{Source: conf.TokenSource(ctx, token)},
	}

	svc, err := sheets.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &SheetLog{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
	}, nil
}

// Append adds one row to the caption sheet
func (s *SheetLog) Append(ctx context.Context, videoName, caption string) error {
	values := &sheets.ValueRange{
		Values: [][]interface{}{{videoName, caption}},
	}
	_, err := s.svc.Spreadsheets.Values.
		Append(s.spreadsheetID, s.sheetName+"!A:B", values).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append caption row: %w", err)
	}
	return nil
}
