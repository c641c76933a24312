package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staffable/domain"
)

func TestStage_CanMoveTo(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from, to domain.Stage
		ok       bool
	}{
		{domain.StageApplied, domain.StageShortlisted, true},
		{domain.StageApplied, domain.StageOffered, true},
		{domain.StageInterview, domain.StageRejected, true},
		{domain.StageOffered, domain.StagePlaced, true},
		{domain.StageInterview, domain.StageShortlisted, false},
		{domain.StageShortlisted, domain.StageShortlisted, false},
		{domain.StagePlaced, domain.StageRejected, false},
		{domain.StageRejected, domain.StageApplied, false},
		{domain.StageApplied, domain.Stage("hired"), false},
	}

	for _, tt := range tests {
		err := tt.from.CanMoveTo(tt.to)
		if tt.ok {
			assert.NoError(t, err, "%s -> %s", tt.from, tt.to)
		} else {
			assert.ErrorIs(t, err, domain.ErrInvalidInput, "%s -> %s", tt.from, tt.to)
		}
	}
}

func TestBuildPipeline(t *testing.T) {
	t.Parallel()

	job := domain.Job{ID: "j1", Title: "Maths Teacher"}
	p := domain.BuildPipeline(job, []domain.Application{
		{ID: "a1", Stage: domain.StageInterview},
		{ID: "a2", Stage: domain.StageApplied},
		{ID: "a3", Stage: "legacy"},
		{ID: "a4", Stage: domain.StageInterview},
	})

	require.Len(t, p.Columns, len(domain.Stages))
	assert.Equal(t, 4, p.Total)
	assert.Equal(t, domain.StageApplied, p.Columns[0].Stage)
	assert.Equal(t, 2, p.Columns[0].Count)
	assert.Equal(t, 0, p.Columns[1].Count)
	assert.NotNil(t, p.Columns[1].Applications)
	assert.Equal(t, 2, p.Columns[2].Count)
	assert.Equal(t, "a1", p.Columns[2].Applications[0].ID)
}
