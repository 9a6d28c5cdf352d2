package sales

// RawTable is the loosely typed input: a header row and string cells.
type RawTable struct {
	Header []string
	Rows   [][]string
}

// Len returns the number of data rows.
func (r RawTable) Len() int {
	return len(r.Rows)
}

// Frame is a flat, already formatted table handed to sinks.
type Frame struct {
	Header []string
	Rows   [][]string
}
