package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/giraph/engine/internal/ingest"
	"github.com/giraph/engine/internal/services"
)

type CreateNodeRequest struct {
	Name     string     `json:"name" validate:"required"`
	Layer    string     `json:"layer" validate:"required,oneof=course_content course_outcome program_outcome"`
	CourseID *uuid.UUID `json:"course_id"`
}

type RenameNodeRequest struct {
	Name string `json:"name" validate:"required"`
}

type CreateRelationRequest struct {
	Node1ID uint `json:"node1_id" validate:"required"`
	Node2ID uint `json:"node2_id" validate:"required"`
	Weight  int  `json:"weight"`
}

type UpdateRelationRequest struct {
	Weight int `json:"weight"`
}

type ApplyScoresRequest struct {
	CourseID *uuid.UUID  `json:"course_id"`
	Scores   ScoreValues `json:"scores" validate:"required"`
}

type ResetScoresRequest struct {
	CourseID *uuid.UUID `json:"course_id"`
}

type StudentResultsRequest struct {
	CourseID  *uuid.UUID         `json:"course_id"`
	Overrides map[string]float64 `json:"overrides"`
}

type StudentGradesRequest struct {
	CourseID *uuid.UUID  `json:"course_id"`
	Scores   ScoreValues `json:"scores" validate:"required"`
}

type SyllabusImportRequest struct {
	CourseID       uuid.UUID                   `json:"course_id" validate:"required"`
	CourseContents []string                    `json:"course_contents"`
	CourseOutcomes []string                    `json:"course_outcomes"`
	Relations      []services.SyllabusRelation `json:"relations"`
}

// ScoreValues accepts either an ordered list of {"header","value"} pairs or a
// JSON object of header to value; object key order is kept. Values may be
// numbers or numeric strings; anything else decodes to NaN so the item is
// skipped downstream.
type ScoreValues []services.HeaderScore

func (s *ScoreValues) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*s = nil
		return nil
	}
	switch b[0] {
	case '[':
		var items []struct {
			Header string          `json:"header"`
			Value  json.RawMessage `json:"value"`
		}
		if err := json.Unmarshal(b, &items); err != nil {
			return err
		}
		out := make(ScoreValues, 0, len(items))
		for _, it := range items {
			out = append(out, services.HeaderScore{Header: it.Header, Value: scoreValue(it.Value)})
		}
		*s = out
		return nil
	case '{':
		return s.decodeObject(b)
	default:
		return fmt.Errorf("scores must be an object or an array")
	}
}

func (s *ScoreValues) decodeObject(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	if _, err := dec.Token(); err != nil {
		return err
	}
	var out ScoreValues
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := tok.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		out = append(out, services.HeaderScore{Header: key, Value: scoreValue(raw)})
	}
	*s = out
	return nil
}

func scoreValue(raw json.RawMessage) float64 {
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f
	}
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		if v := ingest.ParseNumber(str); v != nil {
			return *v
		}
	}
	return math.NaN()
}
