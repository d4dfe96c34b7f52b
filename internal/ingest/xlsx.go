package ingest

import (
	"io"

	"github.com/xuri/excelize/v2"

	appErr "github.com/giraph/engine/pkg/errors"
)

// ParseXLSX reads the first worksheet.
func ParseXLSX(r io.Reader) (*Sheet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInvalid, "malformed xlsx")
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, appErr.New(appErr.CodeInvalid, "xlsx has no worksheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInvalid, "read xlsx rows failed")
	}
	return build(rows)
}
