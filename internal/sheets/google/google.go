// Package google reads order tables from a Google spreadsheet.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"

	"google.golang.org/api/googleapi"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"courtstats/internal/ingest"
	applog "courtstats/internal/log"
	"courtstats/internal/sheets"
	"courtstats/internal/validation"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	// Tab read when a caller passes no ref.
	defaultSheet string
	logger       *slog.Logger
}

var _ sheets.Source = (*Client)(nil)

// Config selects the spreadsheet and how to authenticate against it.
// Exactly one of CredentialsJSON and CredentialsFile is normally set.
type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
	Logger          *slog.Logger
}

// New creates a read-only Sheets client authenticated with a service account.
func New(ctx context.Context, cfg Config, opts ...goption.ClientOption) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(applog.FieldComponent, applog.ComponentSheets)

	if len(opts) == 0 {
		creds, err := credentials(ctx, logger, cfg)
		if err != nil {
			return nil, err
		}
		opts = []goption.ClientOption{
			goption.WithCredentialsJSON(creds),
			goption.WithScopes(gsheet.SpreadsheetsReadonlyScope),
		}
	}

	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	sheet := strings.TrimSpace(cfg.SheetName)
	if sheet == "" {
		sheet = "订单"
	}
	logger.InfoContext(ctx, "Google Sheets source ready", "spreadsheet_id", cfg.SpreadsheetID, "sheet", sheet)

	return &Client{svc: svc, spreadsheetID: cfg.SpreadsheetID, defaultSheet: sheet, logger: logger}, nil
}

func credentials(ctx context.Context, logger *slog.Logger, cfg Config) ([]byte, error) {
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		logger.DebugContext(ctx, "Using inline service account credentials")
		return []byte(cfg.CredentialsJSON), nil
	case strings.TrimSpace(cfg.CredentialsFile) != "":
		b, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		logger.DebugContext(ctx, "Read service account credentials", "path", cfg.CredentialsFile)
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// ReadTable reads a whole tab. An empty ref reads the default tab.
// Cells come back unformatted so amounts stay numeric and dates arrive as
// serial numbers, the same shape an exported workbook has.
func (c *Client) ReadTable(ctx context.Context, ref string) (ingest.Table, error) {
	if c.svc == nil {
		return ingest.Table{}, errors.New("sheets service not initialized")
	}
	sheet := strings.TrimSpace(ref)
	if sheet == "" {
		sheet = c.defaultSheet
	}
	if !validation.ValidSourceRef(sheet) {
		return ingest.Table{}, fmt.Errorf("%w: %q", sheets.ErrInvalidRef, ref)
	}

	rng := quoteSheet(sheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("SERIAL_NUMBER").
		Context(ctx).Do()
	if err != nil {
		if isNotFound(err) {
			return ingest.Table{}, fmt.Errorf("%w: %s", sheets.ErrSourceNotFound, sheet)
		}
		return ingest.Table{}, fmt.Errorf("read %s: %w", rng, err)
	}

	grid := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		grid[i] = toStrings(row)
	}
	c.logger.DebugContext(ctx, "Read sheet", applog.FieldSourceRef, sheet, "rows", len(grid))
	return ingest.NewTable(grid), nil
}

// List returns the tab titles of the spreadsheet.
func (c *Client) List(ctx context.Context) ([]sheets.SourceInfo, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("get spreadsheet: %w", err)
	}
	out := make([]sheets.SourceInfo, 0, len(ss.Sheets))
	for _, sh := range ss.Sheets {
		if sh.Properties == nil || sh.Properties.Title == "" {
			continue
		}
		out = append(out, sheets.SourceInfo{Ref: sh.Properties.Title})
	}
	return out, nil
}

// quoteSheet turns a tab title into an A1 range covering the whole tab.
func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		switch x := v.(type) {
		case nil:
			out[i] = ""
		case float64:
			out[i] = strconv.FormatFloat(x, 'f', -1, 64)
		case bool:
			out[i] = strconv.FormatBool(x)
		case string:
			out[i] = strings.TrimSpace(x)
		default:
			out[i] = strings.TrimSpace(fmt.Sprint(x))
		}
	}
	return out
}

// isNotFound recognises a missing spreadsheet or tab. The API reports an
// unknown tab as a 400 with a range parse message.
func isNotFound(err error) bool {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return false
	}
	return gerr.Code == http.StatusNotFound ||
		(gerr.Code == http.StatusBadRequest && strings.Contains(gerr.Message, "Unable to parse range"))
}
