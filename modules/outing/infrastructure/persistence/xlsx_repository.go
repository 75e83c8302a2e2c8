package persistence

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/go-faster/errors"
	"github.com/xuri/excelize/v2"

	"github.com/iota-uz/outing-approval/modules/outing/domain/entities/outingrequest"
	"github.com/iota-uz/outing-approval/pkg/metrics"
)

// XLSXRepository stores records in a local workbook using the same column
// layout as the spreadsheet API backend. Row 1 holds the column names. It is
// meant for local runs; only this process may write the file.
type XLSXRepository struct {
	mu    sync.Mutex
	path  string
	sheet string
}

func NewXLSXRepository(path, sheet string) (*XLSXRepository, error) {
	if sheet == "" {
		sheet = "Sheet1"
	}
	r := &XLSXRepository{path: path, sheet: sheet}
	if err := r.ensureWorkbook(); err != nil {
		return nil, err
	}
	return r, nil
}

// ensureWorkbook creates the workbook, or the configured sheet inside an
// existing one, and writes the header row to anything it creates.
func (r *XLSXRepository) ensureWorkbook() error {
	var f *excelize.File
	created := false
	if _, err := os.Stat(r.path); err == nil {
		if f, err = excelize.OpenFile(r.path); err != nil {
			return errors.Wrap(err, "failed to open workbook")
		}
	} else {
		if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
			return errors.Wrap(err, "failed to create workbook directory")
		}
		f = excelize.NewFile()
		created = true
	}
	defer f.Close()

	idx, err := f.GetSheetIndex(r.sheet)
	missing := err != nil || idx == -1
	if !missing && !created {
		return nil
	}
	if missing {
		if _, err := f.NewSheet(r.sheet); err != nil {
			return errors.Wrap(err, "failed to create sheet")
		}
		if created && r.sheet != "Sheet1" {
			_ = f.DeleteSheet("Sheet1")
		}
	}
	header := make([]interface{}, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(r.sheet, "A1", &header); err != nil {
		return errors.Wrap(err, "failed to write header row")
	}
	if created {
		if err := f.SaveAs(r.path); err != nil {
			return errors.Wrap(err, "failed to save workbook")
		}
		return nil
	}
	if err := f.Save(); err != nil {
		return errors.Wrap(err, "failed to save workbook")
	}
	return nil
}

func (r *XLSXRepository) open() (*excelize.File, [][]interface{}, error) {
	f, err := excelize.OpenFile(r.path)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to open workbook")
	}
	rows, err := f.GetRows(r.sheet)
	if err != nil {
		_ = f.Close()
		return nil, nil, errors.Wrap(err, "failed to read rows")
	}
	out := make([][]interface{}, len(rows))
	for i, row := range rows {
		out[i] = interfaceRow(row)
	}
	return f, out, nil
}

func (r *XLSXRepository) Append(_ context.Context, record *outingrequest.Record) (err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	defer func() { metrics.RecordStoreCall("append", err) }()

	f, rows, err := r.open()
	if err != nil {
		return err
	}
	defer f.Close()

	row := ToRow(record)
	cell, err := excelize.CoordinatesToCellName(1, len(rows)+1)
	if err != nil {
		return errors.Wrap(err, "failed to compute append cell")
	}
	if err := f.SetSheetRow(r.sheet, cell, &row); err != nil {
		return errors.Wrap(err, "failed to write record row")
	}
	if err := f.Save(); err != nil {
		return errors.Wrap(err, "failed to save workbook")
	}
	return nil
}

func (r *XLSXRepository) FindByID(_ context.Context, id string) (_ *outingrequest.Record, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	defer func() { metrics.RecordStoreCall("read", err) }()

	f, rows, err := r.open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	_, row, ok := findRow(rows, id, 1)
	if !ok {
		return nil, outingrequest.ErrRecordNotFound
	}
	return ToRecord(row), nil
}

func (r *XLSXRepository) UpdateStatus(_ context.Context, id string, status outingrequest.Status, comment string) (err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	defer func() { metrics.RecordStoreCall("update", err) }()

	f, rows, err := r.open()
	if err != nil {
		return err
	}
	defer f.Close()

	rowNum, _, ok := findRow(rows, id, 1)
	if !ok {
		return outingrequest.ErrRecordNotFound
	}
	if err := f.SetCellStr(r.sheet, ColumnLetter(statusColumn)+strconv.Itoa(rowNum), string(status)); err != nil {
		return errors.Wrap(err, "failed to write status cell")
	}
	if err := f.SetCellStr(r.sheet, ColumnLetter(commentColumn)+strconv.Itoa(rowNum), comment); err != nil {
		return errors.Wrap(err, "failed to write comment cell")
	}
	if err := f.Save(); err != nil {
		return errors.Wrap(err, "failed to save workbook")
	}
	return nil
}
