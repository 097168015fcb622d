// Package google loads the occurrence table from a Google Sheets range.
// The first row of the range is the header.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"ocorrencias/internal/core"
	"ocorrencias/internal/dataset"
	"ocorrencias/internal/dataset/frame"
	applog "ocorrencias/internal/log"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// DefaultRange is read when no range is configured.
const DefaultRange = "ocorrencias!A:Z"

type Config struct {
	SpreadsheetID      string
	Range              string
	ServiceAccountJSON string
	ServiceAccountFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	rng           string
}

var _ dataset.Source = (*Client)(nil)

// NewFromConfig creates a read-only Sheets client using service account
// credentials (inline JSON, file, or GOOGLE_APPLICATION_CREDENTIALS).
func NewFromConfig(ctx context.Context, cfg Config) (*Client, error) {
	creds, err := credentialsJSON(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return New(ctx, cfg.SpreadsheetID, cfg.Range,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
}

// New creates a client with explicit API options.
func New(ctx context.Context, spreadsheetID, rng string, opts ...goption.ClientOption) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	if strings.TrimSpace(rng) == "" {
		rng = DefaultRange
	}
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &Client{svc: svc, spreadsheetID: spreadsheetID, rng: rng}, nil
}

func credentialsJSON(ctx context.Context, cfg Config) ([]byte, error) {
	inline := strings.TrimSpace(cfg.ServiceAccountJSON)
	file := strings.TrimSpace(cfg.ServiceAccountFile)
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case inline != "":
		slog.DebugContext(ctx, "Using inline service account credentials", "json_length", len(inline))
		return []byte(inline), nil
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		slog.DebugContext(ctx, "Read service account file", "path", file, "size", len(b))
		return b, nil
	}
	return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
}

func (c *Client) Load(ctx context.Context) (*core.Dataset, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, c.rng).Context(ctx).Do()
	if err != nil {
		return nil, dataset.Error.Wrap(fmt.Errorf("read %s: %w", c.rng, err))
	}
	ds, err := parseValues(resp.Values)
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "Loaded occurrences from Google Sheets",
		applog.FieldComponent, applog.ComponentSheets,
		"spreadsheet_id", c.spreadsheetID,
		"range", c.rng,
		applog.FieldRows, ds.Len())
	return ds, nil
}

// parseValues converts a values matrix (as returned by the Sheets API)
// into a dataset. Trailing empty cells are omitted by the API, so short
// rows are padded to the header width.
func parseValues(values [][]interface{}) (*core.Dataset, error) {
	if len(values) == 0 {
		return nil, dataset.Error.New("sheet range is empty")
	}
	header := toStrings(values[0])
	records := make([][]string, 0, len(values))
	records = append(records, header)
	for _, v := range values[1:] {
		row := toStrings(v)
		if isBlank(row) {
			continue
		}
		if len(row) > len(header) {
			return nil, dataset.Error.New("row %d has %d cells, header has %d", len(records), len(row), len(header))
		}
		for len(row) < len(header) {
			row = append(row, "")
		}
		records = append(records, row)
	}
	return frame.FromRecords(records)
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func isBlank(row []string) bool {
	for _, v := range row {
		if v != "" {
			return false
		}
	}
	return true
}
