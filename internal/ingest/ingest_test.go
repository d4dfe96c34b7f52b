package ingest

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/giraph/engine/internal/graph"
	appErr "github.com/giraph/engine/pkg/errors"
)

var transcriptFilter = graph.NewHeaderFilter(
	[]string{"student_id"},
	[]string{"no_", "adı", "soyadı", "snf_", "snf", "girme durum", "harf notu", "harf"},
)

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		want *float64
	}{
		{"85", f(85)},
		{" 72.5 ", f(72.5)},
		{"72,5", f(72.5)},
		{"", nil},
		{"GR", nil},
		{"NaN", nil},
		{"1,234.5", nil},
	}
	for _, tt := range tests {
		got := ParseNumber(tt.in)
		if tt.want == nil {
			assert.Nil(t, got, tt.in)
			continue
		}
		require.NotNil(t, got, tt.in)
		assert.InDelta(t, *tt.want, *got, 1e-9, tt.in)
	}
}

func TestParseCSV(t *testing.T) {
	data := "student_id,Adı,Midterm,Midterm,Final\n" +
		"1001,Ali,80,70,90\n" +
		",,,,\n" +
		"1002,Ayşe,100,,GR\n"

	s, err := Parse("grades.csv", []byte(data))
	require.NoError(t, err)
	assert.Equal(t, []string{"student_id", "Adı", "Midterm", "Midterm_2", "Final"}, s.Headers)
	require.Len(t, s.Rows, 2)

	c, ok := s.Rows[1].Get("final")
	require.True(t, ok)
	assert.Equal(t, "GR", c.Raw)
	assert.Nil(t, c.Number)

	avgs := ClassAverages(s, transcriptFilter)
	require.Len(t, avgs, 3)
	assert.Equal(t, Average{Header: "Midterm", Value: 90, Count: 2}, avgs[0])
	assert.Equal(t, Average{Header: "Midterm_2", Value: 70, Count: 1}, avgs[1])
	assert.Equal(t, Average{Header: "Final", Value: 90, Count: 1}, avgs[2])
}

func TestParseCSV_Semicolon(t *testing.T) {
	s, err := ParseCSV(strings.NewReader("Quiz;Lab\n72,5;60\n"))
	require.NoError(t, err)
	avgs := ClassAverages(s, nil)
	require.Len(t, avgs, 2)
	assert.InDelta(t, 72.5, avgs[0].Value, 1e-9)
}

func TestStudentRows(t *testing.T) {
	s, err := ParseCSV(strings.NewReader("Student_ID,Soyadı,Quiz,Lab\n1001.0,Yılmaz,50,\n,x,1,2\n1002,Kaya,,75\n"))
	require.NoError(t, err)

	rows := StudentRows(s, "student_id", transcriptFilter)
	require.Len(t, rows, 2)
	assert.Equal(t, "1001", rows[0].StudentID)
	require.Len(t, rows[0].Grades, 1)
	assert.Equal(t, "Quiz", rows[0].Grades[0].Header)
	assert.Equal(t, "1002", rows[1].StudentID)
	assert.Equal(t, "Lab", rows[1].Grades[0].Header)
}

func TestParseXLSX(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"student_id", "Harf Notu", "Midterm"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{1001, "AA", 95}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]any{1002, "BB", 85}))
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	s, err := Parse("grades.xlsx", buf.Bytes())
	require.NoError(t, err)
	require.Len(t, s.Rows, 2)

	avgs := ClassAverages(s, transcriptFilter)
	require.Len(t, avgs, 1)
	assert.Equal(t, "Midterm", avgs[0].Header)
	assert.InDelta(t, 90.0, avgs[0].Value, 1e-9)
}

func TestParse_Rejects(t *testing.T) {
	_, err := Parse("grades.xls", []byte("x"))
	assert.True(t, appErr.IsCode(err, appErr.CodeInvalid))

	_, err = Parse("grades.xlsx", []byte("not a zip"))
	assert.True(t, appErr.IsCode(err, appErr.CodeInvalid))

	_, err = Parse("grades.csv", nil)
	assert.True(t, appErr.IsCode(err, appErr.CodeInvalid))
}

func f(v float64) *float64 { return &v }
