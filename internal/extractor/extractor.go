// Package extractor talks to the external syllabus extraction service. Its
// output is advisory: candidates are staged for review, never written to the
// graph directly.
package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/giraph/engine/internal/models"
	appErr "github.com/giraph/engine/pkg/errors"
)

// MaxPDFBytes bounds the syllabus files sent for extraction.
const MaxPDFBytes = 10 << 20

// Result is the raw extractor response. Items may be plain strings or
// objects carrying a "name" field.
type Result struct {
	CourseContents []Item `json:"course_contents"`
	CourseOutcomes []Item `json:"course_outcomes"`
}

// Item is one candidate name.
type Item string

func (i *Item) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*i = Item(s)
		return nil
	}
	var obj struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return fmt.Errorf("candidate must be a string or {name}: %w", err)
	}
	*i = Item(obj.Name)
	return nil
}

// Extractor turns a syllabus PDF into candidate node names.
type Extractor interface {
	Extract(ctx context.Context, pdf []byte) (*Result, error)
}

// HTTPExtractor posts the PDF to an HTTP endpoint and decodes a Result.
type HTTPExtractor struct {
	url    string
	client *http.Client
}

func NewHTTPExtractor(url string, timeout time.Duration) *HTTPExtractor {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HTTPExtractor{url: url, client: &http.Client{Timeout: timeout}}
}

var _ Extractor = (*HTTPExtractor)(nil)

func (e *HTTPExtractor) Extract(ctx context.Context, pdf []byte) (*Result, error) {
	if e.url == "" {
		return nil, appErr.New(appErr.CodeUnavailable, "syllabus extractor not configured")
	}
	if len(pdf) == 0 {
		return nil, appErr.New(appErr.CodeInvalid, "empty syllabus file")
	}
	if len(pdf) > MaxPDFBytes {
		return nil, appErr.New(appErr.CodeInvalid, fmt.Sprintf("syllabus exceeds %d MB", MaxPDFBytes>>20))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(pdf))
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "build extractor request failed")
	}
	req.Header.Set("Content-Type", "application/pdf")
	req.Header.Set("Accept", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, appErr.Wrap(err, appErr.CodeDeadline, "extractor request canceled")
		}
		return nil, appErr.Wrap(err, appErr.CodeUnavailable, "extractor request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, appErr.New(appErr.CodeUnavailable, fmt.Sprintf("extractor returned %d", resp.StatusCode)).
			WithMeta("body", strings.TrimSpace(string(body)))
	}

	var out Result
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4<<20)).Decode(&out); err != nil {
		return nil, appErr.Wrap(err, appErr.CodeUnavailable, "decode extractor response failed")
	}
	return &out, nil
}

// Clean trims names, truncates them to the node name limit, and drops empty
// and repeated entries. Order is preserved.
func Clean(r *Result) models.SyllabusCandidates {
	out := models.SyllabusCandidates{CourseContents: []string{}, CourseOutcomes: []string{}}
	if r == nil {
		return out
	}
	out.CourseContents = cleanNames(r.CourseContents)
	out.CourseOutcomes = cleanNames(r.CourseOutcomes)
	return out
}

func cleanNames(items []Item) []string {
	seen := make(map[string]struct{}, len(items))
	names := make([]string, 0, len(items))
	for _, it := range items {
		name := truncate(strings.TrimSpace(string(it)), models.MaxNameLength)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:n]))
}
