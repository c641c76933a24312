package domain

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"
)

type ContractType string

const (
	ContractTemporary ContractType = "temporary"
	ContractPermanent ContractType = "permanent"
)

type JobStatus string

const (
	JobOpen   JobStatus = "open"
	JobFilled JobStatus = "filled"
	JobClosed JobStatus = "closed"
)

type Job struct {
	ID           string       `json:"id"`
	ClientID     string       `json:"client_id"`
	Title        string       `json:"title"`
	Subject      string       `json:"subject"`
	KeyStage     string       `json:"key_stage"`
	ContractType ContractType `json:"contract_type"`
	StartDate    civil.Date   `json:"start_date"`
	EndDate      civil.Date   `json:"end_date"`
	Status       JobStatus    `json:"status"`
	Description  string       `json:"description"`
}

type Stage string

const (
	StageApplied     Stage = "applied"
	StageShortlisted Stage = "shortlisted"
	StageInterview   Stage = "interview"
	StageOffered     Stage = "offered"
	StagePlaced      Stage = "placed"
	StageRejected    Stage = "rejected"
)

// Stages lists pipeline columns in display order.
var Stages = []Stage{StageApplied, StageShortlisted, StageInterview, StageOffered, StagePlaced, StageRejected}

func (s Stage) rank() int {
	for i, st := range Stages {
		if st == s {
			return i
		}
	}
	return -1
}

func (s Stage) Valid() bool { return s.rank() >= 0 }

func (s Stage) Terminal() bool { return s == StagePlaced || s == StageRejected }

// CanMoveTo allows forward moves, skipping stages if needed, and rejection
// from any open stage. Terminal stages are final.
func (s Stage) CanMoveTo(to Stage) error {
	if !to.Valid() {
		return fmt.Errorf("%w: unknown stage %q", ErrInvalidInput, to)
	}
	if s.Terminal() {
		return fmt.Errorf("%w: application is already %s", ErrInvalidInput, s)
	}
	if to == StageRejected {
		return nil
	}
	if to.rank() <= s.rank() {
		return fmt.Errorf("%w: cannot move from %s back to %s", ErrInvalidInput, s, to)
	}
	return nil
}

type Application struct {
	ID            string    `json:"id"`
	JobID         string    `json:"job_id"`
	CandidateID   string    `json:"candidate_id"`
	CandidateName string    `json:"candidate_name"`
	Stage         Stage     `json:"stage"`
	AppliedAt     time.Time `json:"applied_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type PipelineColumn struct {
	Stage        Stage         `json:"stage"`
	Count        int           `json:"count"`
	Applications []Application `json:"applications"`
}

type Pipeline struct {
	Job     Job              `json:"job"`
	Columns []PipelineColumn `json:"columns"`
	Total   int              `json:"total"`
}

// BuildPipeline groups applications into ordered stage columns. Applications
// with an unrecognised stage are shown as applied.
func BuildPipeline(job Job, apps []Application) Pipeline {
	cols := make([]PipelineColumn, len(Stages))
	for i, s := range Stages {
		cols[i] = PipelineColumn{Stage: s, Applications: []Application{}}
	}
	for _, a := range apps {
		r := a.Stage.rank()
		if r < 0 {
			r = 0
		}
		cols[r].Applications = append(cols[r].Applications, a)
		cols[r].Count++
	}
	return Pipeline{Job: job, Columns: cols, Total: len(apps)}
}
