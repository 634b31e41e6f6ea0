package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"courtstats/internal/core"
)

func newRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "nested", "jobs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestJobLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	id := gofakeit.New(7).UUID()
	requested := time.Date(2024, 3, 12, 10, 0, 0, 0, time.UTC)

	require.NoError(t, repo.CreateJob(ctx, id, "march", true, requested))
	assert.Error(t, repo.CreateJob(ctx, id, "march", true, requested), "duplicate id")

	job, err := repo.GetJob(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusQueued, job.Status)
	assert.True(t, job.IncludeOrders)
	assert.True(t, job.RequestedAt.Equal(requested))
	assert.Nil(t, job.Summary)
	assert.Nil(t, job.CompletedAt)

	err = repo.CompleteJob(ctx, id, JobResult{
		SourceRef: "march",
		Summary:   core.Statistics{TotalActivities: 3, NetSpent: decimal.RequireFromString("150.5")},
		Health:    core.HealthGauge{Level: core.HealthGood, Value: 75},
		Warnings:  []string{"第3行: 金额格式无效"},
	})
	require.NoError(t, err)

	job, err = repo.GetJob(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, job.Status)
	require.NotNil(t, job.Summary)
	assert.Equal(t, 3, job.Summary.TotalActivities)
	assert.True(t, job.Summary.NetSpent.Equal(decimal.RequireFromString("150.5")))
	require.NotNil(t, job.Health)
	assert.Equal(t, 75, job.Health.Value)
	assert.Equal(t, []string{"第3行: 金额格式无效"}, job.Warnings)
	assert.NotNil(t, job.CompletedAt)
	assert.True(t, job.IncludeOrders, "completion keeps the request flags")
	assert.True(t, job.RequestedAt.Equal(requested), "completion keeps the request time")
}

func TestCompleteUnknownJobFailed(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	require.NoError(t, repo.CompleteJob(ctx, "job-x", JobResult{SourceRef: "april", Error: "source not found"}))

	job, err := repo.GetJob(ctx, "job-x")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, job.Status)
	assert.Equal(t, "april", job.SourceRef)
	assert.Equal(t, "source not found", job.Error)
	assert.Nil(t, job.Summary)
	assert.Nil(t, job.Health)
}

func TestGetJobNotFound(t *testing.T) {
	_, err := newRepo(t).GetJob(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestListAndPruneJobs(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	for i, ref := range []string{"a", "b", "c"} {
		require.NoError(t, repo.CreateJob(ctx, ref+"-job", ref, false, base.Add(time.Duration(i)*time.Hour)))
	}

	jobs, err := repo.ListJobs(ctx, 2)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "c-job", jobs[0].ID)
	assert.Equal(t, "b-job", jobs[1].ID)

	require.NoError(t, repo.CompleteJob(ctx, "a-job", JobResult{SourceRef: "a", CompletedAt: base}))
	n, err := repo.PruneJobs(ctx, base.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	jobs, err = repo.ListJobs(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, jobs, 2, "queued jobs are never pruned")
}
