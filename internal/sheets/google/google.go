package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"rewards/internal/core"
	ports "rewards/internal/sheets"
)

const defaultCacheDuration = 2 * time.Minute

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string

	// Row index cache: customer id -> sheet row, refreshed when expired.
	mu                 sync.Mutex
	rowIndex           map[int64]int
	cachedRowCount     int
	cacheExpiresAt     time.Time
	cacheValidDuration time.Duration
}

// Ensure interface conformance
var (
	_ ports.RewardsWriter = (*Client)(nil)
	_ ports.RewardsLister = (*Client)(nil)
)

// NewFromEnv creates a Sheets client using environment variables.
// Required: GOOGLE_SPREADSHEET_ID
// Optional: GOOGLE_SHEET_NAME (default "Rewards")
// Credentials: GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_APPLICATION_CREDENTIALS.
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	sheetName := strings.TrimSpace(os.Getenv("GOOGLE_SHEET_NAME"))
	if sheetName == "" {
		sheetName = "Rewards"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return New(svc, spreadsheetID, sheetName), nil
}

func New(svc *gsheet.Service, spreadsheetID, sheetName string) *Client {
	return &Client{
		svc:                svc,
		spreadsheetID:      spreadsheetID,
		sheetName:          sheetName,
		cacheValidDuration: defaultCacheDuration,
	}
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))

	// Also check the standard Google Cloud environment variable
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error

	switch {
	case serviceAccountJSON != "":
		slog.DebugContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		slog.DebugContext(ctx, "Reading credentials from file", "path", serviceAccountFile)
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets service created successfully")
	return service, nil
}

// UpsertRewards rewrites the customer's row in place, appending it when the
// customer has no row yet. The header is written on an empty sheet.
func (c *Client) UpsertRewards(ctx context.Context, r core.RewardsResult, updatedAt time.Time) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	row, isNew, err := c.rowFor(ctx, r.CustomerID)
	if err != nil {
		return "", err
	}

	if isNew && row == 2 {
		if err := c.writeRow(ctx, 1, toAny(ports.Header)); err != nil {
			c.InvalidateRowCache()
			return "", fmt.Errorf("write header: %w", err)
		}
	}

	if err := c.writeRow(ctx, row, rowValues(ports.NewRow(r, updatedAt))); err != nil {
		// Another writer may have moved rows
		c.InvalidateRowCache()
		return "", err
	}

	ref := fmt.Sprintf("%s!A%d:E%d", c.sheetName, row, row)
	slog.InfoContext(ctx, "Rewards row written to Google Sheets",
		"customer_id", r.CustomerID,
		"total_points", r.TotalPoints,
		"sheets_ref", ref,
		"appended", isNew)
	return ref, nil
}

// rowFor returns the sheet row of a customer and reserves a new one when absent.
func (c *Client) rowFor(ctx context.Context, customerID int64) (int, bool, error) {
	c.mu.Lock()
	valid := time.Now().Before(c.cacheExpiresAt) && c.rowIndex != nil
	c.mu.Unlock()

	if !valid {
		if err := c.refreshRowIndex(ctx); err != nil {
			return 0, false, err
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if row, ok := c.rowIndex[customerID]; ok {
		return row, false, nil
	}
	// Row 1 is the header
	next := max(c.cachedRowCount, 1) + 1
	c.rowIndex[customerID] = next
	c.cachedRowCount = next
	return next, true, nil
}

func (c *Client) refreshRowIndex(ctx context.Context) error {
	rng := fmt.Sprintf("%s!A:A", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read %s: %w", rng, err)
	}

	index, count := parseRowIndex(resp.Values)

	c.mu.Lock()
	c.rowIndex = index
	c.cachedRowCount = count
	c.cacheExpiresAt = time.Now().Add(c.cacheValidDuration)
	c.mu.Unlock()
	return nil
}

// InvalidateRowCache forces the next write to re-read the customer column.
func (c *Client) InvalidateRowCache() {
	c.mu.Lock()
	c.cacheExpiresAt = time.Time{}
	c.mu.Unlock()
}

func (c *Client) writeRow(ctx context.Context, row int, values []any) error {
	rng := fmt.Sprintf("%s!A%d:E%d", c.sheetName, row, row)
	vr := &gsheet.ValueRange{Values: [][]any{values}}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", rng, err)
	}
	return nil
}

// ListRewards implements sheets.RewardsLister
func (c *Client) ListRewards(ctx context.Context) ([]ports.Row, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!A2:E", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return parseRows(resp.Values), nil
}
