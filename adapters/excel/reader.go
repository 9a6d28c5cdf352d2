package excel

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"salesprobe/domain/sales"
	"salesprobe/internal"

	"github.com/xuri/excelize/v2"
)

// DataReader handles reading Excel and CSV files
type DataReader struct {
	filePath string
	fileType string // "xlsx" or "csv"
	sheet    string
	logger   *internal.Logger
}

// NewDataReader creates a new data reader that handles both Excel and CSV files
func NewDataReader(filePath string) *DataReader {
	ext := strings.ToLower(filepath.Ext(filePath))
	fileType := "csv"
	if ext == ".xlsx" || ext == ".xlsm" {
		fileType = "xlsx"
	}
	return &DataReader{
		filePath: filePath,
		fileType: fileType,
		logger:   internal.DefaultLogger.With("DataReader"),
	}
}

// WithSheet selects the worksheet to read; the first sheet is used otherwise.
func (r *DataReader) WithSheet(name string) *DataReader {
	r.sheet = name
	return r
}

// WithLogger replaces the reader's logger.
func (r *DataReader) WithLogger(l *internal.Logger) *DataReader {
	r.logger = l.With("DataReader")
	return r
}

// Read reads the file into a RawTable
func (r *DataReader) Read() (sales.RawTable, error) {
	r.logger.Debug("Starting to read %s file: %s", r.fileType, r.filePath)

	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return sales.RawTable{}, fmt.Errorf("%s file not found: %s", strings.ToUpper(r.fileType), r.filePath)
	}

	switch r.fileType {
	case "csv":
		f, err := os.Open(r.filePath)
		if err != nil {
			return sales.RawTable{}, fmt.Errorf("failed to open CSV file: %w", err)
		}
		defer f.Close()
		return r.ReadCSV(f)
	case "xlsx":
		return r.readExcelData()
	default:
		return sales.RawTable{}, fmt.Errorf("unsupported file type: %s", r.fileType)
	}
}

// readExcelData reads the selected sheet into a RawTable
func (r *DataReader) readExcelData() (sales.RawTable, error) {
	startTime := time.Now()
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return sales.RawTable{}, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheet := r.sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return sales.RawTable{}, fmt.Errorf("Excel file has no sheets")
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return sales.RawTable{}, fmt.Errorf("failed to read %s: %w", sheet, err)
	}
	convertDateCells(f, sheet, rows)
	r.logger.Debug("%s read in %.2fms (%d rows)", sheet, float64(time.Since(startTime).Nanoseconds())/1e6, len(rows))

	return r.processRows(rows)
}

// ReadCSV reads delimited data from src. The delimiter is detected from the
// header line among ',', ';' and tab.
func (r *DataReader) ReadCSV(src io.Reader) (sales.RawTable, error) {
	br := bufio.NewReader(src)
	head, err := br.Peek(4096)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return sales.RawTable{}, fmt.Errorf("failed to read CSV file: %w", err)
	}

	reader := csv.NewReader(br)
	reader.Comma = detectDelimiter(string(head))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	readStart := time.Now()
	rows, err := reader.ReadAll()
	if err != nil {
		return sales.RawTable{}, fmt.Errorf("failed to read CSV file: %w", err)
	}
	r.logger.Debug("CSV read in %.2fms (%d rows)", float64(time.Since(readStart).Nanoseconds())/1e6, len(rows))

	return r.processRows(rows)
}

// processRows splits off the header and pads ragged rows to its width
func (r *DataReader) processRows(rows [][]string) (sales.RawTable, error) {
	if len(rows) < 1 {
		return sales.RawTable{}, fmt.Errorf("%s file must have a header row", strings.ToUpper(r.fileType))
	}

	headers := make([]string, len(rows[0]))
	for i, header := range rows[0] {
		headers[i] = strings.TrimSpace(header)
	}

	data := make([][]string, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		if len(row) > len(headers) && !isBlank(row[len(headers):]) {
			r.logger.Warn("row %d has %d cells, header has %d; extra cells dropped", i+2, len(row), len(headers))
		}
		cells := make([]string, len(headers))
		copy(cells, row)
		data = append(data, cells)
	}

	r.logger.Info("%s file processed (%d columns, %d rows)", strings.ToUpper(r.fileType), len(headers), len(data))

	return sales.RawTable{Header: headers, Rows: data}, nil
}

// excelDateLayout is one of the layouts the coercer accepts for InvoiceDate.
const excelDateLayout = "2006-01-02 15:04:05"

// convertDateCells rewrites date-formatted serial numbers in place. A column
// is treated as a date column when the first numeric cell found in it carries
// a date number format.
func convertDateCells(f *excelize.File, sheet string, rows [][]string) {
	dateCols := make(map[int]bool)
	styleIsDate := make(map[int]bool)
	for ri := 1; ri < len(rows); ri++ {
		for ci, raw := range rows[ri] {
			v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
			if err != nil {
				continue
			}
			isDate, seen := dateCols[ci]
			if !seen {
				isDate = cellIsDate(f, sheet, ci+1, ri+1, styleIsDate)
				dateCols[ci] = isDate
			}
			if !isDate {
				continue
			}
			if ts, err := excelize.ExcelDateToTime(v, false); err == nil {
				rows[ri][ci] = ts.Round(time.Second).Format(excelDateLayout)
			}
		}
	}
}

func cellIsDate(f *excelize.File, sheet string, col, row int, cache map[int]bool) bool {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return false
	}
	styleID, err := f.GetCellStyle(sheet, cell)
	if err != nil {
		return false
	}
	if isDate, ok := cache[styleID]; ok {
		return isDate
	}
	isDate := false
	if style, err := f.GetStyle(styleID); err == nil && style != nil {
		if style.CustomNumFmt != nil {
			isDate = isDateFormat(*style.CustomNumFmt)
		} else {
			isDate = isBuiltInDateFormat(style.NumFmt)
		}
	}
	cache[styleID] = isDate
	return isDate
}

// isBuiltInDateFormat reports whether id is one of the built-in date or time
// number formats.
func isBuiltInDateFormat(id int) bool {
	return (id >= 14 && id <= 22) || (id >= 27 && id <= 36) || (id >= 45 && id <= 47) || (id >= 50 && id <= 58)
}

// isDateFormat looks for date tokens outside quoted literals and brackets.
func isDateFormat(code string) bool {
	inQuote, inBracket := false, false
	for _, c := range strings.ToLower(code) {
		switch {
		case c == '"':
			inQuote = !inQuote
		case inQuote:
		case c == '[':
			inBracket = true
		case c == ']':
			inBracket = false
		case inBracket:
		case c == 'y' || c == 'd' || c == 'h':
			return true
		}
	}
	return false
}

func detectDelimiter(head string) rune {
	line := head
	if i := strings.IndexByte(head, '\n'); i >= 0 {
		line = head[:i]
	}
	best, bestCount := ',', strings.Count(line, ",")
	for _, d := range []rune{';', '\t'} {
		if c := strings.Count(line, string(d)); c > bestCount {
			best, bestCount = d, c
		}
	}
	return best
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
