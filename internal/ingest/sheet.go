// Package ingest turns uploaded grade spreadsheets into typed rows. Nothing in
// here knows about the graph; header resolution happens downstream.
package ingest

import (
	"bytes"
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	appErr "github.com/giraph/engine/pkg/errors"
)

// Cell is one value under a header. Number is set when Raw parses as a finite
// number; a comma decimal separator is accepted.
type Cell struct {
	Header string
	Raw    string
	Number *float64
}

// Row keeps cells in source column order.
type Row struct {
	Cells []Cell
}

// Get finds a cell by header, ignoring case.
func (r Row) Get(header string) (Cell, bool) {
	for _, c := range r.Cells {
		if strings.EqualFold(c.Header, header) {
			return c, true
		}
	}
	return Cell{}, false
}

// Sheet is a parsed spreadsheet.
type Sheet struct {
	Headers []string
	Rows    []Row
}

// Parse dispatches on the file extension.
func Parse(filename string, data []byte) (*Sheet, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return ParseCSV(bytes.NewReader(data))
	case ".xlsx", ".xlsm":
		return ParseXLSX(bytes.NewReader(data))
	default:
		return nil, appErr.New(appErr.CodeInvalid, "upload must be a .csv or .xlsx file").WithMeta("filename", filename)
	}
}

// build turns raw records (header row first) into a Sheet. Duplicate headers
// get a "_<n>" suffix, which header normalization strips again.
func build(records [][]string) (*Sheet, error) {
	if len(records) == 0 {
		return nil, appErr.New(appErr.CodeInvalid, "spreadsheet has no header row")
	}
	headers := uniqueHeaders(records[0])
	s := &Sheet{Headers: headers}
	for _, rec := range records[1:] {
		if blank(rec) {
			continue
		}
		row := Row{Cells: make([]Cell, 0, len(headers))}
		for i, h := range headers {
			raw := ""
			if i < len(rec) {
				raw = strings.TrimSpace(rec[i])
			}
			row.Cells = append(row.Cells, Cell{Header: h, Raw: raw, Number: ParseNumber(raw)})
		}
		s.Rows = append(s.Rows, row)
	}
	return s, nil
}

func uniqueHeaders(raw []string) []string {
	seen := make(map[string]int, len(raw))
	out := make([]string, len(raw))
	for i, h := range raw {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		key := strings.ToLower(h)
		seen[key]++
		if n := seen[key]; n > 1 && h != "" {
			h = fmt.Sprintf("%s_%d", h, n)
		}
		out[i] = h
	}
	return out
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// ParseNumber returns nil for empty or non-numeric input.
func ParseNumber(raw string) *float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if strings.Count(raw, ",") == 1 && !strings.Contains(raw, ".") {
		raw = strings.Replace(raw, ",", ".", 1)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
