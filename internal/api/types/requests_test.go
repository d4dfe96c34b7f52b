package types

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreValues(t *testing.T) {
	var req ApplyScoresRequest
	require.NoError(t, json.Unmarshal([]byte(`{"scores":{"Zeta":1,"Alpha":"72,5","Mid":"n/a"}}`), &req))
	require.Len(t, req.Scores, 3)
	assert.Equal(t, "Zeta", req.Scores[0].Header)
	assert.Equal(t, "Alpha", req.Scores[1].Header)
	assert.InDelta(t, 72.5, req.Scores[1].Value, 1e-9)
	assert.True(t, math.IsNaN(req.Scores[2].Value))

	require.NoError(t, json.Unmarshal([]byte(`{"scores":[{"header":"Exam","value":90}]}`), &req))
	require.Len(t, req.Scores, 1)
	assert.Equal(t, 90.0, req.Scores[0].Value)

	assert.Error(t, json.Unmarshal([]byte(`{"scores":42}`), &req))
}
