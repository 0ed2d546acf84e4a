package analysis

import (
	"encoding/json"
	"testing"

	"scms/backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize(t *testing.T) {
	byStatus := map[string]int64{
		models.StatusPending:    3,
		models.StatusInProgress: 2,
		models.StatusResolved:   1,
	}
	byCategory := map[string]int64{"Plumbing": 4, "Electrical": 2}

	s := Summarize(byStatus, byCategory)

	assert.EqualValues(t, 6, s.Total)
	assert.EqualValues(t, 3, s.Pending)
	assert.EqualValues(t, 2, s.InProgress)
	assert.EqualValues(t, 1, s.Resolved)
	assert.Equal(t, byCategory, s.ByCategory)
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil, nil)

	assert.Zero(t, s.Total)
	assert.NotNil(t, s.ByCategory)

	raw, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{"total":0,"pending":0,"in_progress":0,"resolved":0,"by_category":{}}`, string(raw))
}
