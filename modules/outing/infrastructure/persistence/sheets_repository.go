package persistence

import (
	"context"
	"net/http"

	"github.com/go-faster/errors"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/iota-uz/outing-approval/modules/outing/domain/entities/outingrequest"
	"github.com/iota-uz/outing-approval/pkg/metrics"
)

// Values are written RAW so requester supplied text is never evaluated as a
// formula by the spreadsheet.
const valueInputOption = "RAW"

type SheetsRepositoryConfig struct {
	SpreadsheetID string
	SheetName     string
	// TokenSource is consulted on every outgoing call.
	TokenSource oauth2.TokenSource
	// Endpoint overrides the API base URL; empty uses the public endpoint.
	Endpoint string
	// Base is the transport under the bearer credential; nil uses http.DefaultTransport.
	Base http.RoundTripper
}

// SheetsRepository keeps records as rows of one sheet. The sheet is scanned
// from row 1; a header row is harmless because it never matches an id.
type SheetsRepository struct {
	values        *sheets.SpreadsheetsValuesService
	spreadsheetID string
	sheetName     string
}

func NewSheetsRepository(ctx context.Context, cfg SheetsRepositoryConfig) (*SheetsRepository, error) {
	if cfg.SpreadsheetID == "" {
		return nil, errors.New("spreadsheet id is required")
	}
	if cfg.TokenSource == nil {
		return nil, errors.New("token source is required")
	}
	if cfg.SheetName == "" {
		cfg.SheetName = "Sheet1"
	}

	httpClient := &http.Client{
		Transport: &oauth2.Transport{Source: cfg.TokenSource, Base: cfg.Base},
	}
	opts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create sheets service")
	}
	return &SheetsRepository{
		values:        svc.Spreadsheets.Values,
		spreadsheetID: cfg.SpreadsheetID,
		sheetName:     cfg.SheetName,
	}, nil
}

func (r *SheetsRepository) Append(ctx context.Context, record *outingrequest.Record) error {
	vr := &sheets.ValueRange{Values: [][]interface{}{ToRow(record)}}
	_, err := r.values.Append(r.spreadsheetID, recordRange(r.sheetName), vr).
		ValueInputOption(valueInputOption).
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	metrics.RecordStoreCall("append", err)
	if err != nil {
		return errors.Wrap(err, "failed to append record row")
	}
	return nil
}

func (r *SheetsRepository) readAll(ctx context.Context) ([][]interface{}, error) {
	resp, err := r.values.Get(r.spreadsheetID, recordRange(r.sheetName)).Context(ctx).Do()
	metrics.RecordStoreCall("read", err)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read record range")
	}
	return resp.Values, nil
}

func (r *SheetsRepository) FindByID(ctx context.Context, id string) (*outingrequest.Record, error) {
	rows, err := r.readAll(ctx)
	if err != nil {
		return nil, err
	}
	_, row, ok := findRow(rows, id, 1)
	if !ok {
		return nil, outingrequest.ErrRecordNotFound
	}
	return ToRecord(row), nil
}

// UpdateStatus reads the whole range to locate the row, then writes only the
// status and comment cells. The two calls are not atomic: two decisions racing
// on the same id end with whichever write lands last.
func (r *SheetsRepository) UpdateStatus(ctx context.Context, id string, status outingrequest.Status, comment string) error {
	rows, err := r.readAll(ctx)
	if err != nil {
		return err
	}
	rowNum, _, ok := findRow(rows, id, 1)
	if !ok {
		return outingrequest.ErrRecordNotFound
	}

	vr := &sheets.ValueRange{Values: [][]interface{}{{string(status), comment}}}
	_, err = r.values.Update(r.spreadsheetID, decisionRange(r.sheetName, rowNum), vr).
		ValueInputOption(valueInputOption).
		Context(ctx).
		Do()
	metrics.RecordStoreCall("update", err)
	if err != nil {
		return errors.Wrap(err, "failed to write decision cells")
	}
	return nil
}
