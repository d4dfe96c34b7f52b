package ingest

import (
	"bytes"
	"encoding/csv"
	"io"

	appErr "github.com/giraph/engine/pkg/errors"
)

// ParseCSV reads comma or semicolon separated values; the separator is taken
// from the header line.
func ParseCSV(r io.Reader) (*Sheet, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInvalid, "read csv failed")
	}
	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = sniffSeparator(data)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInvalid, "malformed csv")
	}
	return build(records)
}

func sniffSeparator(data []byte) rune {
	commas, semis := 0, 0
	for _, b := range data {
		if b == '\n' {
			break
		}
		switch b {
		case ',':
			commas++
		case ';':
			semis++
		}
	}
	if semis > commas {
		return ';'
	}
	return ','
}
