// Package snapshot writes frames to CSV or XLSX files.
package snapshot

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"salesprobe/domain/core"
	"salesprobe/domain/sales"
	"salesprobe/internal/errors"

	"github.com/xuri/excelize/v2"
)

// DefaultSheet is the sheet name used for XLSX snapshots.
const DefaultSheet = "Sheet1"

// Write saves the frame to path. The format follows the extension: .csv or .xlsx.
func Write(ctx context.Context, path string, f sales.Frame) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return WriteCSV(path, f)
	case ".xlsx":
		return WriteXLSX(path, f)
	}
	return core.NewInvalidArgumentError(fmt.Sprintf("unsupported snapshot format %q", filepath.Ext(path)))
}

// WriteCSV writes the header followed by every row.
func WriteCSV(path string, f sales.Frame) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return errors.IOError("failed to create snapshot", err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = errors.IOError("failed to close snapshot", cerr)
		}
	}()

	w := csv.NewWriter(file)
	if err := w.Write(f.Header); err != nil {
		return errors.IOError("failed to write snapshot header", err)
	}
	if err := w.WriteAll(f.Rows); err != nil {
		return errors.IOError("failed to write snapshot rows", err)
	}
	return nil
}

// WriteXLSX writes the frame to the first sheet of a new workbook.
func WriteXLSX(path string, f sales.Frame) error {
	book := excelize.NewFile()
	defer book.Close()

	sw, err := book.NewStreamWriter(DefaultSheet)
	if err != nil {
		return errors.IOError("failed to open sheet writer", err)
	}
	if err := sw.SetRow("A1", toCells(f.Header)); err != nil {
		return errors.IOError("failed to write snapshot header", err)
	}
	for i, row := range f.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return errors.IOError("failed to address snapshot row", err)
		}
		if err := sw.SetRow(cell, toCells(row)); err != nil {
			return errors.IOError(fmt.Sprintf("failed to write snapshot row %d", i), err)
		}
	}
	if err := sw.Flush(); err != nil {
		return errors.IOError("failed to flush snapshot", err)
	}
	if err := book.SaveAs(path); err != nil {
		return errors.IOError("failed to save snapshot", err)
	}
	return nil
}

func toCells(row []string) []interface{} {
	cells := make([]interface{}, len(row))
	for i, v := range row {
		cells[i] = v
	}
	return cells
}
