package application

import (
	"context"
	"fmt"

	"staffable/domain"
)

type JobService struct {
	crm JobGateway
}

func NewJobService(crm JobGateway) *JobService {
	return &JobService{crm: crm}
}

func (s *JobService) ListJobs(ctx context.Context, status domain.JobStatus) ([]domain.Job, error) {
	switch status {
	case "", domain.JobOpen, domain.JobFilled, domain.JobClosed:
	default:
		return nil, fmt.Errorf("%w: unknown job status %q", domain.ErrInvalidInput, status)
	}
	jobs, err := s.crm.ListJobs(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	if jobs == nil {
		jobs = []domain.Job{}
	}
	return jobs, nil
}

// Pipeline returns the job with its applications grouped by stage.
func (s *JobService) Pipeline(ctx context.Context, jobID string) (domain.Pipeline, error) {
	principal, err := domain.MustPrincipal(ctx)
	if err != nil {
		return domain.Pipeline{}, err
	}
	job, err := s.crm.GetJob(ctx, jobID)
	if err != nil {
		return domain.Pipeline{}, fmt.Errorf("get job: %w", err)
	}
	if job.ClientID != principal.ClientID {
		return domain.Pipeline{}, domain.ErrNotFound
	}
	apps, err := s.crm.ListApplications(ctx, jobID)
	if err != nil {
		return domain.Pipeline{}, fmt.Errorf("list applications: %w", err)
	}
	return domain.BuildPipeline(job, apps), nil
}

// MoveApplication advances an application to another stage.
func (s *JobService) MoveApplication(ctx context.Context, id string, to domain.Stage) (domain.Application, error) {
	principal, err := domain.MustPrincipal(ctx)
	if err != nil {
		return domain.Application{}, err
	}
	app, err := s.crm.GetApplication(ctx, id)
	if err != nil {
		return domain.Application{}, fmt.Errorf("get application: %w", err)
	}
	job, err := s.crm.GetJob(ctx, app.JobID)
	if err != nil {
		return domain.Application{}, fmt.Errorf("get job: %w", err)
	}
	if job.ClientID != principal.ClientID {
		return domain.Application{}, domain.ErrNotFound
	}
	from := app.Stage
	if !from.Valid() {
		from = domain.StageApplied
	}
	if err := from.CanMoveTo(to); err != nil {
		return domain.Application{}, err
	}
	out, err := s.crm.UpdateApplicationStage(ctx, id, to)
	if err != nil {
		return domain.Application{}, fmt.Errorf("update application: %w", err)
	}
	UseLogger(ctx).WithField("application", id).WithField("stage", to).Info("application moved")
	return out, nil
}
