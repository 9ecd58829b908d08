// Package exporter writes scraped records to xlsx, csv or json files.
package exporter

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gosom/scrapemate"
	"github.com/gosom/scrapemate/adapters/writers/csvwriter"
	"github.com/gosom/scrapemate/adapters/writers/jsonwriter"
	"github.com/xuri/excelize/v2"

	"github.com/gosom/selfstorage-scraper/gmaps"
)

type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

var ErrNoRecords = errors.New("no records to export")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Result describes what was actually written.
type Result struct {
	Path   string
	Format Format
	Rows   int
	// FellBack is set when the requested format could not be used and the
	// records were saved as csv instead.
	FellBack bool
	// Cause holds the error that triggered the fallback.
	Cause error
}

// Target resolves the output format from the file extension. Unknown or
// missing extensions are written as csv next to the requested path.
func Target(path string) (string, Format, bool) {
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".xlsx":
		return path, FormatXLSX, false
	case ".csv":
		return path, FormatCSV, false
	case ".json":
		return path, FormatJSON, false
	default:
		return strings.TrimSuffix(path, filepath.Ext(path)) + ".csv", FormatCSV, true
	}
}

// Export normalizes the records and writes them to path. A failing xlsx
// write falls back to csv with the same base name.
func Export(ctx context.Context, path string, records []gmaps.ExtractedRecord) (Result, error) {
	if len(records) == 0 {
		return Result{}, ErrNoRecords
	}

	rows := NormalizeAll(records)

	target, format, fellBack := Target(path)

	if err := ensureDir(target); err != nil {
		return Result{}, err
	}

	res := Result{Path: target, Format: format, Rows: len(rows), FellBack: fellBack}

	var err error

	switch format {
	case FormatXLSX:
		err = writeXLSX(target, rows)
		if err != nil {
			res.Cause = err
			res.FellBack = true
			res.Format = FormatCSV
			res.Path = strings.TrimSuffix(target, filepath.Ext(target)) + ".csv"

			err = writeFile(ctx, res.Path, rows, FormatCSV)
		}
	default:
		err = writeFile(ctx, target, rows, format)
	}

	if err != nil {
		return res, err
	}

	return res, nil
}

// Write streams the records to w. CSV output starts with a UTF-8 byte order
// mark so spreadsheet tools pick the right encoding.
func Write(ctx context.Context, w io.Writer, records []gmaps.ExtractedRecord, format Format) error {
	var writer scrapemate.ResultWriter

	switch format {
	case FormatJSON:
		writer = jsonwriter.NewJSONWriter(w)
	case FormatCSV:
		if _, err := w.Write(utf8BOM); err != nil {
			return fmt.Errorf("failed to write UTF-8 BOM: %w", err)
		}

		writer = csvwriter.NewCsvWriter(csv.NewWriter(w))
	default:
		return fmt.Errorf("unsupported stream format %q", format)
	}

	in := make(chan scrapemate.Result)
	done := make(chan error, 1)

	go func() {
		done <- writer.Run(ctx, in)
	}()

	for i := range records {
		select {
		case in <- scrapemate.Result{Data: &records[i]}:
		case err := <-done:
			if err == nil {
				err = errors.New("writer stopped early")
			}

			return err
		}
	}

	close(in)

	return <-done
}

func writeFile(ctx context.Context, path string, rows []gmaps.ExtractedRecord, format Format) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	return Write(ctx, f, rows, format)
}

const sheetName = "Results"

var columnWidths = []float64{18, 36, 48, 18, 28, 34, 60, 14, 14, 18}

func writeXLSX(path string, rows []gmaps.ExtractedRecord) (err error) {
	f := excelize.NewFile()

	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return err
	}

	wrap, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
	})
	if err != nil {
		return err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		return err
	}

	for i, w := range columnWidths {
		if err := sw.SetColWidth(i+1, i+1, w); err != nil {
			return err
		}
	}

	headers := (&gmaps.ExtractedRecord{}).CsvHeaders()

	header := make([]any, 0, len(headers))
	for _, h := range headers {
		header = append(header, excelize.Cell{StyleID: bold, Value: h})
	}

	if err := sw.SetRow("A1", header); err != nil {
		return err
	}

	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}

		values := rows[i].CsvRow()

		row := make([]any, 0, len(values))
		for _, v := range values {
			row = append(row, excelize.Cell{StyleID: wrap, Value: v})
		}

		if err := sw.SetRow(cell, row); err != nil {
			return err
		}
	}

	if err := sw.Flush(); err != nil {
		return err
	}

	return f.SaveAs(path)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}

	return os.MkdirAll(dir, 0o755)
}
