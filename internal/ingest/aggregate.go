package ingest

import "strings"

// Average is the mean of the numeric cells under one header.
type Average struct {
	Header string
	Value  float64
	Count  int
}

// Skipper decides which headers are metadata rather than grades.
type Skipper interface {
	Skip(header string) bool
}

// ClassAverages averages every numeric column, in header order. Columns the
// skipper rejects and columns without a single number are left out.
func ClassAverages(s *Sheet, skip Skipper) []Average {
	type acc struct {
		sum float64
		n   int
	}
	sums := make([]acc, len(s.Headers))
	for _, row := range s.Rows {
		for i, c := range row.Cells {
			if c.Number != nil {
				sums[i].sum += *c.Number
				sums[i].n++
			}
		}
	}
	out := make([]Average, 0, len(s.Headers))
	for i, h := range s.Headers {
		if sums[i].n == 0 || (skip != nil && skip.Skip(h)) {
			continue
		}
		out = append(out, Average{Header: h, Value: sums[i].sum / float64(sums[i].n), Count: sums[i].n})
	}
	return out
}

// StudentRow is one student's numeric grades, in header order.
type StudentRow struct {
	StudentID string
	Grades    []Cell
}

// StudentRows returns rows that carry a value under idHeader, with only their
// numeric, non-skipped cells.
func StudentRows(s *Sheet, idHeader string, skip Skipper) []StudentRow {
	var out []StudentRow
	for _, row := range s.Rows {
		id, ok := row.Get(idHeader)
		if !ok || strings.TrimSpace(id.Raw) == "" {
			continue
		}
		sr := StudentRow{StudentID: normalizeID(id.Raw)}
		for _, c := range row.Cells {
			if c.Number == nil || strings.EqualFold(c.Header, idHeader) || (skip != nil && skip.Skip(c.Header)) {
				continue
			}
			sr.Grades = append(sr.Grades, c)
		}
		out = append(out, sr)
	}
	return out
}

// normalizeID drops the ".0" spreadsheets append to numeric ids.
func normalizeID(raw string) string {
	raw = strings.TrimSpace(raw)
	return strings.TrimSuffix(raw, ".0")
}
