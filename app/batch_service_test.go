package app

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studyqc/domain/core"
	"studyqc/internal/testkit"
	"studyqc/ports"
)

func TestRunBatchProcessesAllStudies(t *testing.T) {
	repo := testkit.NewMemoryRunRepository()
	svc := NewQCService(sampleSource(), nil, nil, repo, nil)
	batch := NewBatchService(svc, 2, nil)

	var reqs []RunRequest
	for i := 0; i < 5; i++ {
		req := sampleRequest()
		req.StudyKey = core.StudyKey(fmt.Sprintf("SAMPLE-%02d", i+1))
		reqs = append(reqs, req)
	}

	res := batch.RunBatch(context.Background(), reqs)

	assert.Equal(t, 5, res.Succeeded)
	assert.Equal(t, 0, res.Failed)
	require.Len(t, res.Outcomes, 5)
	for i, out := range res.Outcomes {
		assert.Equal(t, reqs[i].StudyKey, out.StudyKey, "outcomes keep request order")
		require.NoError(t, out.Err)
		assert.Equal(t, 4, out.Report.Summary.TotalChanges())
	}

	runs, err := repo.List(context.Background(), ports.RunFilters{})
	require.NoError(t, err)
	assert.Len(t, runs, 5)
}

func TestRunBatchIsolatesFailures(t *testing.T) {
	svc := NewQCService(sampleSource(), nil, nil, nil, nil)
	batch := NewBatchService(svc, 3, nil)

	good := sampleRequest()
	bad := sampleRequest()
	bad.StudyKey = core.StudyKey("SAMPLE-BAD")
	bad.DatasetRef = "absent"

	res := batch.RunBatch(context.Background(), []RunRequest{good, bad, good})

	assert.Equal(t, 2, res.Succeeded)
	assert.Equal(t, 1, res.Failed)
	require.Len(t, res.Outcomes, 3)
	assert.NoError(t, res.Outcomes[0].Err)
	assert.Error(t, res.Outcomes[1].Err)
	assert.NoError(t, res.Outcomes[2].Err)
}

func TestRunBatchEmpty(t *testing.T) {
	svc := NewQCService(sampleSource(), nil, nil, nil, nil)
	batch := NewBatchService(svc, 2, nil)

	res := batch.RunBatch(context.Background(), nil)
	assert.Equal(t, 0, res.Succeeded)
	assert.Equal(t, 0, res.Failed)
	assert.Empty(t, res.Outcomes)
}

func TestRunBatchHonorsCancellation(t *testing.T) {
	svc := NewQCService(sampleSource(), nil, nil, nil, nil)
	batch := NewBatchService(svc, 1, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := batch.RunBatch(ctx, []RunRequest{sampleRequest(), sampleRequest()})
	assert.Equal(t, len(res.Outcomes), res.Succeeded+res.Failed)
	assert.NotZero(t, res.Failed, "cancelled acquisitions surface as failures")
}
