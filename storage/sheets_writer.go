package storage

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"ev-subsidy-scraper/models"
	"ev-subsidy-scraper/utils"
)

// SheetsWriter mirrors scraped regions into a Google spreadsheet, one sheet
// per region plus a summary. Every API call waits on the throttle first.
type SheetsWriter struct {
	srv           *sheets.Service
	spreadsheetID string
	throttle      *utils.Throttle
	logger        *utils.Logger
	now           func() time.Time

	mu      sync.Mutex
	sheets  map[string]int64 // title -> sheetId, nil until first listed
	written map[string][]models.Vehicle
}

// NewSheetsWriter connects to the spreadsheet. Callers pass
// option.WithCredentialsFile for a service account, or an endpoint and
// HTTP client in tests.
func NewSheetsWriter(ctx context.Context, spreadsheetID string, throttle *utils.Throttle, logger *utils.Logger, opts ...option.ClientOption) (*SheetsWriter, error) {
	if spreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheet id is empty")
	}
	opts = append([]option.ClientOption{option.WithScopes(sheets.SpreadsheetsScope)}, opts...)
	srv, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	return &SheetsWriter{
		srv:           srv,
		spreadsheetID: spreadsheetID,
		throttle:      throttle,
		logger:        logger,
		now:           time.Now,
		written:       make(map[string][]models.Vehicle),
	}, nil
}

// URL is the browser link of the spreadsheet
func (w *SheetsWriter) URL() string {
	return "https://docs.google.com/spreadsheets/d/" + w.spreadsheetID
}

// a1 quotes a sheet title for A1 notation
func a1(title, cells string) string {
	return fmt.Sprintf("'%s'!%s", strings.ReplaceAll(title, "'", "''"), cells)
}

func (w *SheetsWriter) listSheets(ctx context.Context) (map[string]int64, error) {
	if w.sheets != nil {
		return w.sheets, nil
	}
	if err := w.throttle.Wait(ctx); err != nil {
		return nil, err
	}
	doc, err := w.srv.Spreadsheets.Get(w.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read spreadsheet: %w", err)
	}
	w.sheets = make(map[string]int64, len(doc.Sheets))
	for _, s := range doc.Sheets {
		if s.Properties != nil {
			w.sheets[s.Properties.Title] = s.Properties.SheetId
		}
	}
	return w.sheets, nil
}

// SheetExists reports whether a sheet with title is already in the spreadsheet
func (w *SheetsWriter) SheetExists(ctx context.Context, title string) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	known, err := w.listSheets(ctx)
	if err != nil {
		return false, err
	}
	_, ok := known[title]
	return ok, nil
}

func (w *SheetsWriter) ensureSheet(ctx context.Context, title string) (int64, error) {
	known, err := w.listSheets(ctx)
	if err != nil {
		return 0, err
	}
	if id, ok := known[title]; ok {
		return id, nil
	}

	if err := w.throttle.Wait(ctx); err != nil {
		return 0, err
	}
	resp, err := w.srv.Spreadsheets.BatchUpdate(w.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{Properties: &sheets.SheetProperties{Title: title}},
		}},
	}).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("failed to add sheet %s: %w", title, err)
	}
	if len(resp.Replies) == 0 || resp.Replies[0].AddSheet == nil || resp.Replies[0].AddSheet.Properties == nil {
		return 0, fmt.Errorf("add sheet %s: empty reply", title)
	}
	id := resp.Replies[0].AddSheet.Properties.SheetId
	known[title] = id
	w.logger.Info("Created sheet %s", title)
	return id, nil
}

func (w *SheetsWriter) clear(ctx context.Context, title string) error {
	if err := w.throttle.Wait(ctx); err != nil {
		return err
	}
	_, err := w.srv.Spreadsheets.Values.Clear(w.spreadsheetID, a1(title, "A1:Z1000"), &sheets.ClearValuesRequest{}).Context(ctx).Do()
	return err
}

func (w *SheetsWriter) formatHeader(ctx context.Context, sheetID int64, columns int64) error {
	if err := w.throttle.Wait(ctx); err != nil {
		return err
	}
	_, err := w.srv.Spreadsheets.BatchUpdate(w.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{
			{
				RepeatCell: &sheets.RepeatCellRequest{
					Range: &sheets.GridRange{
						SheetId:         sheetID,
						StartRowIndex:   0,
						EndRowIndex:     1,
						ForceSendFields: []string{"SheetId", "StartRowIndex"},
					},
					Cell: &sheets.CellData{
						UserEnteredFormat: &sheets.CellFormat{
							BackgroundColor: &sheets.Color{Red: 0.2, Green: 0.5, Blue: 0.8},
							TextFormat: &sheets.TextFormat{
								ForegroundColor: &sheets.Color{Red: 1, Green: 1, Blue: 1},
								Bold:            true,
							},
						},
					},
					Fields: "userEnteredFormat(backgroundColor,textFormat)",
				},
			},
			{
				AutoResizeDimensions: &sheets.AutoResizeDimensionsRequest{
					Dimensions: &sheets.DimensionRange{
						SheetId:         sheetID,
						Dimension:       "COLUMNS",
						StartIndex:      0,
						EndIndex:        columns,
						ForceSendFields: []string{"SheetId", "StartIndex"},
					},
				},
			},
		},
	}).Context(ctx).Do()
	return err
}

// WriteRegion replaces the "{year} {region}" sheet with the given vehicles
func (w *SheetsWriter) WriteRegion(ctx context.Context, year int, region models.Region, vehicles []models.Vehicle) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	title := RegionSheetTitle(year, region.Name)
	sheetID, err := w.ensureSheet(ctx, title)
	if err != nil {
		return err
	}
	if err := w.clear(ctx, title); err != nil {
		w.logger.Warn("Failed to clear %s, continuing: %v", title, err)
	}

	rows := regionRows(vehicles, w.now())
	if err := w.throttle.Wait(ctx); err != nil {
		return err
	}
	_, err = w.srv.Spreadsheets.Values.Update(w.spreadsheetID, a1(title, "A1"), &sheets.ValueRange{Values: rows}).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", title, err)
	}

	if err := w.formatHeader(ctx, sheetID, int64(len(RegionSheetHeader))); err != nil {
		w.logger.Warn("Failed to format %s, ignoring: %v", title, err)
	}

	w.written[region.Name] = vehicles
	w.logger.Info("Sheet %s: %d vehicles uploaded", title, len(vehicles))
	return nil
}

// WriteSummary rewrites the 요약 sheet from regions, or from every region
// written so far when regions is nil
func (w *SheetsWriter) WriteSummary(ctx context.Context, regions map[string][]models.Vehicle) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if regions == nil {
		regions = w.written
	}
	if len(regions) == 0 {
		return nil
	}

	sheetID, err := w.ensureSheet(ctx, SummarySheet)
	if err != nil {
		return err
	}
	if err := w.clear(ctx, SummarySheet); err != nil {
		w.logger.Warn("Failed to clear summary sheet, continuing: %v", err)
	}

	rows := summaryRows(regions, w.now())
	if err := w.throttle.Wait(ctx); err != nil {
		return err
	}
	_, err = w.srv.Spreadsheets.Values.BatchUpdate(w.spreadsheetID, &sheets.BatchUpdateValuesRequest{
		ValueInputOption: "RAW",
		Data: []*sheets.ValueRange{{
			Range:  a1(SummarySheet, fmt.Sprintf("A1:G%d", len(rows))),
			Values: rows,
		}},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}

	if err := w.formatHeader(ctx, sheetID, int64(len(SummaryHeader))); err != nil {
		w.logger.Warn("Failed to format summary sheet, ignoring: %v", err)
	}
	w.logger.Info("Summary sheet updated with %d regions", len(rows)-1)
	return nil
}
