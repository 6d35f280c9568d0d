package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/operacoes-b2b/chamado-service/internal/config"
)

// Gateway abstracts the operational spreadsheet. The sheet mirrors chamado
// rows by line number; row 1 is the header, so chamado linha N lives on
// sheet row N+1.
type Gateway interface {
	ReadRows(ctx context.Context, rangeRef string) ([][]string, error)
	UpdateCell(ctx context.Context, row, column int, value string) error
	AppendRow(ctx context.Context, values []string) error
	Info(ctx context.Context) (*SpreadsheetInfo, error)
}

// SpreadsheetInfo summarizes the configured spreadsheet.
type SpreadsheetInfo struct {
	SpreadsheetID string `json:"spreadsheetId"`
	SheetName     string `json:"sheetName"`
	Title         string `json:"title"`
}

// Client talks to the Google Sheets values API over HTTP.
type Client struct {
	cfg    config.SheetsConfig
	http   *http.Client
	logger *zap.Logger
}

// NewClient builds the gateway.
func NewClient(cfg config.SheetsConfig, logger *zap.Logger) *Client {
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: 15 * time.Second},
		logger: logger,
	}
}

type valueRange struct {
	Range          string     `json:"range,omitempty"`
	MajorDimension string     `json:"majorDimension,omitempty"`
	Values         [][]string `json:"values"`
}

// ReadRows fetches the values of rangeRef (A1 notation, without the sheet
// name prefix).
func (c *Client) ReadRows(ctx context.Context, rangeRef string) ([][]string, error) {
	endpoint := fmt.Sprintf("%s/spreadsheets/%s/values/%s",
		c.cfg.BaseURL, c.cfg.SpreadsheetID, url.PathEscape(c.rangeWithSheet(rangeRef)))

	body, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	var result valueRange
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode sheet values: %w", err)
	}
	return result.Values, nil
}

// UpdateCell writes a single cell. Row is 1-based, column is 0-based.
func (c *Client) UpdateCell(ctx context.Context, row, column int, value string) error {
	cell := fmt.Sprintf("%s%d", ColumnToLetter(column), row)
	endpoint := fmt.Sprintf("%s/spreadsheets/%s/values/%s?valueInputOption=RAW",
		c.cfg.BaseURL, c.cfg.SpreadsheetID, url.PathEscape(c.rangeWithSheet(cell)))

	payload, err := json.Marshal(valueRange{Values: [][]string{{value}}})
	if err != nil {
		return err
	}
	_, err = c.do(ctx, http.MethodPut, endpoint, payload)
	return err
}

// AppendRow appends one row after the last row of the sheet.
func (c *Client) AppendRow(ctx context.Context, values []string) error {
	endpoint := fmt.Sprintf("%s/spreadsheets/%s/values/%s:append?valueInputOption=RAW&insertDataOption=INSERT_ROWS",
		c.cfg.BaseURL, c.cfg.SpreadsheetID, url.PathEscape(c.rangeWithSheet("A1")))

	payload, err := json.Marshal(valueRange{Values: [][]string{values}})
	if err != nil {
		return err
	}
	_, err = c.do(ctx, http.MethodPost, endpoint, payload)
	return err
}

// Info fetches spreadsheet metadata.
func (c *Client) Info(ctx context.Context) (*SpreadsheetInfo, error) {
	endpoint := fmt.Sprintf("%s/spreadsheets/%s?fields=properties.title", c.cfg.BaseURL, c.cfg.SpreadsheetID)

	body, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	var meta struct {
		Properties struct {
			Title string `json:"title"`
		} `json:"properties"`
	}
	if err := json.Unmarshal(body, &meta); err != nil {
		return nil, fmt.Errorf("decode spreadsheet metadata: %w", err)
	}

	return &SpreadsheetInfo{
		SpreadsheetID: c.cfg.SpreadsheetID,
		SheetName:     c.cfg.SheetName,
		Title:         meta.Properties.Title,
	}, nil
}

func (c *Client) rangeWithSheet(rangeRef string) string {
	if c.cfg.SheetName == "" {
		return rangeRef
	}
	return fmt.Sprintf("%s!%s", c.cfg.SheetName, rangeRef)
}

func (c *Client) do(ctx context.Context, method, endpoint string, payload []byte) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("sheets api status %d: %s", resp.StatusCode, string(data))
	}
	return data, nil
}

// ColumnToLetter converts a 0-based column index to its A1 letter form
// (0 is A, 25 is Z, 26 is AA).
func ColumnToLetter(column int) string {
	letter := ""
	for column >= 0 {
		letter = string(rune('A'+column%26)) + letter
		column = column/26 - 1
	}
	return letter
}
