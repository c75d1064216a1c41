package refdata

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"ldb/internal/config"
)

// SheetsSource reads reference tabs straight from the Google spreadsheet.
// The sheet is shared read-only, so an API key is enough.
type SheetsSource struct {
	service       *sheets.Service
	spreadsheetID string
}

func NewSheetsSource(ctx context.Context, cfg config.Config) (*SheetsSource, error) {
	if err := cfg.Require("GOOGLE_SPREADSHEET_ID", cfg.SpreadsheetID); err != nil {
		return nil, err
	}
	if err := cfg.Require("GOOGLE_SHEETS_API_KEY", cfg.SheetsAPIKey); err != nil {
		return nil, err
	}

	svc, err := sheets.NewService(ctx, option.WithAPIKey(cfg.SheetsAPIKey))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &SheetsSource{service: svc, spreadsheetID: cfg.SpreadsheetID}, nil
}

func (s *SheetsSource) Rows(ctx context.Context, tab string) ([][]string, error) {
	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, tab).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read tab %q: %w", tab, err)
	}

	rows := make([][]string, 0, len(resp.Values))
	for _, raw := range resp.Values {
		row := make([]string, 0, len(raw))
		for _, v := range raw {
			row = append(row, fmt.Sprint(v))
		}
		rows = append(rows, row)
	}
	return rows, nil
}
