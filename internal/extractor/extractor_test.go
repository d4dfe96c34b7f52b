package extractor

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErr "github.com/giraph/engine/pkg/errors"
)

func TestHTTPExtractor_Extract(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/pdf", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "%PDF-1.4", string(body))
		_, _ = w.Write([]byte(`{"course_contents":["Midterm",{"name":"Final"}],"course_outcomes":["Design systems"]}`))
	}))
	defer srv.Close()

	res, err := NewHTTPExtractor(srv.URL, time.Second).Extract(context.Background(), []byte("%PDF-1.4"))
	require.NoError(t, err)
	assert.Equal(t, []Item{"Midterm", "Final"}, res.CourseContents)
	assert.Equal(t, []Item{"Design systems"}, res.CourseOutcomes)
}

func TestHTTPExtractor_Failures(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer slow.Close()
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model offline", http.StatusBadGateway)
	}))
	defer broken.Close()

	_, err := NewHTTPExtractor(slow.URL, 20*time.Millisecond).Extract(context.Background(), []byte("x"))
	require.Error(t, err)
	assert.True(t, appErr.IsCode(err, appErr.CodeUnavailable))

	_, err = NewHTTPExtractor(broken.URL, time.Second).Extract(context.Background(), []byte("x"))
	require.Error(t, err)
	assert.True(t, appErr.IsCode(err, appErr.CodeUnavailable))

	_, err = NewHTTPExtractor("", time.Second).Extract(context.Background(), []byte("x"))
	assert.True(t, appErr.IsCode(err, appErr.CodeUnavailable))

	_, err = NewHTTPExtractor(broken.URL, time.Second).Extract(context.Background(), nil)
	assert.True(t, appErr.IsCode(err, appErr.CodeInvalid))
}

func TestClean(t *testing.T) {
	long := strings.Repeat("a", 300)
	var r Result
	require.NoError(t, json.Unmarshal([]byte(`{
		"course_contents": ["  Quiz ", "", "Quiz", {"name": "Lab"}, "`+long+`"],
		"course_outcomes": ["   "]
	}`), &r))

	c := Clean(&r)
	require.Len(t, c.CourseContents, 3)
	assert.Equal(t, "Quiz", c.CourseContents[0])
	assert.Equal(t, "Lab", c.CourseContents[1])
	assert.Len(t, c.CourseContents[2], 255)
	assert.Empty(t, c.CourseOutcomes)
	assert.NotNil(t, c.CourseOutcomes)

	assert.Equal(t, Clean(nil).CourseContents, []string{})
}
