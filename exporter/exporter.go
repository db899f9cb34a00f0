// Package exporter renders stored search results into the download formats
// the API offers: CSV, Excel and JSON.
package exporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/gosom/yandex-maps-scraper/ymaps"
)

// utf8BOM makes the CSV open correctly in Excel with Cyrillic headers.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

const sheetName = "Sheet1"

func WriteCSV(w io.Writer, entries []*ymaps.Entry) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return err
	}

	cw := csv.NewWriter(w)

	if err := cw.Write(ymaps.CsvHeaders()); err != nil {
		return err
	}

	for _, e := range entries {
		if err := cw.Write(e.CsvRow()); err != nil {
			return err
		}
	}

	cw.Flush()

	return cw.Error()
}

func WriteJSON(w io.Writer, entries []*ymaps.Entry) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(entries)
}

func WriteXLSX(w io.Writer, entries []*ymaps.Entry) error {
	f := excelize.NewFile()
	defer f.Close()

	headers := ymaps.CsvHeaders()

	headerRow := make([]any, len(headers))
	for i, h := range headers {
		headerRow[i] = h
	}

	if err := f.SetSheetRow(sheetName, "A1", &headerRow); err != nil {
		return err
	}

	for i, e := range entries {
		fields := e.CsvRow()

		row := make([]any, len(fields))
		for j, v := range fields {
			row[j] = v
		}

		// Keep the numeric column numeric in the sheet.
		row[7] = e.ReviewsCount

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}

		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing xlsx: %w", err)
	}

	return nil
}
