package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studyqc/domain/core"
	"studyqc/ports"
)

func TestListQueryNoFilters(t *testing.T) {
	query, args := listQuery(ports.RunFilters{})
	assert.Contains(t, query, "FROM qc_runs")
	assert.Contains(t, query, "ORDER BY started_at DESC, id DESC")
	assert.NotContains(t, query, "WHERE")
	assert.NotContains(t, query, "LIMIT")
	assert.Empty(t, args)
}

func TestListQueryFilters(t *testing.T) {
	study := core.StudyKey("DEMO-01")
	status := ports.RunCompleted
	query, args := listQuery(ports.RunFilters{
		StudyKey: &study,
		Status:   &status,
		Limit:    20,
		Offset:   40,
	})

	assert.Contains(t, query, "WHERE study_key = $1 AND status = $2")
	assert.Contains(t, query, "LIMIT $3")
	assert.Contains(t, query, "OFFSET $4")
	require.Len(t, args, 4)
	assert.Equal(t, study, args[0])
	assert.Equal(t, status, args[1])
	assert.Equal(t, 20, args[2])
	assert.Equal(t, 40, args[3])
}
