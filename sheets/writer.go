package sheets

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"review-scraper/models"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Writer writes each target's reviews to a new sheet of one spreadsheet
type Writer struct {
	service       *sheets.Service
	spreadsheetID string
	logger        *zap.Logger
	now           func() time.Time
}

// NewWriter creates a Google Sheets writer. spreadsheet may be a full
// spreadsheet URL or a bare ID. Service account credentials come from
// credentialsPath, or from GOOGLE_SHEETS_CREDENTIALS when the path is empty.
func NewWriter(ctx context.Context, spreadsheet string, credentialsPath string, logger *zap.Logger) (*Writer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	spreadsheetID := ExtractSpreadsheetID(spreadsheet)
	if spreadsheetID == "" {
		spreadsheetID = strings.TrimSpace(spreadsheet)
	}
	if spreadsheetID == "" {
		return nil, fmt.Errorf("no spreadsheet given")
	}

	credsJSON, err := readCredentials(credentialsPath, logger)
	if err != nil {
		return nil, err
	}

	// Validate that it's a service account credentials file
	var creds map[string]interface{}
	if err := json.Unmarshal(credsJSON, &creds); err != nil {
		return nil, fmt.Errorf("invalid credentials JSON (check if JSON is properly formatted): %w", err)
	}
	if creds["type"] != "service_account" {
		return nil, fmt.Errorf("credentials must be a service account JSON file (type: service_account), got type: %v", creds["type"])
	}

	service, err := sheets.NewService(ctx, option.WithCredentialsJSON(credsJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &Writer{
		service:       service,
		spreadsheetID: spreadsheetID,
		logger:        logger,
		now:           time.Now,
	}, nil
}

func readCredentials(path string, logger *zap.Logger) ([]byte, error) {
	if path != "" {
		credsJSON, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read credentials file: %w", err)
		}
		return credsJSON, nil
	}

	// Trim whitespace and newlines that might be in the environment variable
	credsEnv := strings.TrimSpace(os.Getenv("GOOGLE_SHEETS_CREDENTIALS"))
	if credsEnv == "" {
		return nil, fmt.Errorf("credentials not found: GOOGLE_SHEETS_CREDENTIALS environment variable is empty or not set")
	}
	logger.Debug("reading sheets credentials from GOOGLE_SHEETS_CREDENTIALS", zap.Int("bytes", len(credsEnv)))
	return []byte(credsEnv), nil
}

// Write implements output.Sink. The sheet is inserted at the beginning of
// the spreadsheet and named after the target and the current time.
func (w *Writer) Write(ctx context.Context, job models.TargetJob, records []models.ReviewRecord) error {
	sheetName := SheetName(job.Name, w.now())

	addSheetRequest := &sheets.AddSheetRequest{
		Properties: &sheets.SheetProperties{
			Title: sheetName,
			Index: 0,
		},
	}
	batchUpdateRequest := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{AddSheet: addSheetRequest}},
	}

	batchUpdateResp, err := w.service.Spreadsheets.BatchUpdate(w.spreadsheetID, batchUpdateRequest).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	var sheetID int64
	if len(batchUpdateResp.Replies) > 0 && batchUpdateResp.Replies[0].AddSheet != nil {
		sheetID = batchUpdateResp.Replies[0].AddSheet.Properties.SheetId
	}

	valueRange := &sheets.ValueRange{
		Values: Values(job, records),
	}
	_, err = w.service.Spreadsheets.Values.Update(w.spreadsheetID, fmt.Sprintf("'%s'!A1", sheetName), valueRange).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to write to sheet: %w", err)
	}

	w.logger.Info("wrote reviews to sheet",
		zap.String("sheet", sheetName),
		zap.Int("reviews", len(records)),
		zap.String("url", SheetURL(w.spreadsheetID, sheetID)))
	return nil
}

// SheetName builds a valid, unique-per-run sheet title for a target
func SheetName(target string, at time.Time) string {
	name := sanitizeSheetName(fmt.Sprintf("%s_%s", target, at.Format("20060102_150405")))
	if len(name) > 100 {
		name = name[:100]
	}
	return name
}

// Values lays out a metadata row, the schema header and one row per review
func Values(job models.TargetJob, records []models.ReviewRecord) [][]interface{} {
	values := make([][]interface{}, 0, len(records)+2)
	values = append(values, []interface{}{"URL", job.URL, "Reviews", len(records)})

	header := make([]interface{}, len(models.Schema))
	for i, name := range models.Schema {
		header[i] = name
	}
	values = append(values, header)

	for _, rec := range records {
		fields := rec.Row()
		row := make([]interface{}, len(fields))
		for i, f := range fields {
			row[i] = f
		}
		values = append(values, row)
	}
	return values
}

// sanitizeSheetName removes invalid characters from sheet name
func sanitizeSheetName(name string) string {
	// Google Sheets sheet names cannot contain: / \ ? * [ ] '
	invalidChars := []string{"/", "\\", "?", "*", "[", "]", "'"}
	result := name
	for _, char := range invalidChars {
		result = strings.ReplaceAll(result, char, "_")
	}
	result = strings.TrimSpace(result)
	if result == "" {
		result = "Sheet1"
	}
	return result
}

// SheetURL returns a link that opens a specific sheet of the spreadsheet
func SheetURL(spreadsheetID string, sheetID int64) string {
	return fmt.Sprintf("https://docs.google.com/spreadsheets/d/%s/edit#gid=%d", spreadsheetID, sheetID)
}

// ExtractSpreadsheetID extracts the spreadsheet ID from a Google Sheets URL
func ExtractSpreadsheetID(url string) string {
	// Handle various URL formats:
	// https://docs.google.com/spreadsheets/d/SPREADSHEET_ID/edit
	// https://docs.google.com/spreadsheets/d/SPREADSHEET_ID/edit?usp=sharing
	parts := strings.Split(url, "/d/")
	if len(parts) < 2 {
		return ""
	}

	idPart := parts[1]
	if idx := strings.Index(idPart, "/"); idx != -1 {
		idPart = idPart[:idx]
	}
	if idx := strings.Index(idPart, "?"); idx != -1 {
		idPart = idPart[:idx]
	}

	return strings.TrimSpace(idPart)
}
