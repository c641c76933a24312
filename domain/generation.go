package domain

import "time"

type GenerationKind string

const (
	KindReviewDraft    GenerationKind = "review_draft"
	KindProfileSummary GenerationKind = "profile_summary"
)

type GenerationStatus string

const (
	GenerationQueued     GenerationStatus = "queued"
	GenerationProcessing GenerationStatus = "processing"
	GenerationCompleted  GenerationStatus = "completed"
	GenerationFailed     GenerationStatus = "failed"
)

// GenerationFailedMessage is the error shown to users for a failed draft.
const GenerationFailedMessage = "drafting failed, try again"

// Generation tracks one asynchronous AI drafting job.
type Generation struct {
	ID        uint             `gorm:"primaryKey"`
	OwnerID   string           `gorm:"size:64;index;not null"`
	Kind      GenerationKind   `gorm:"type:enum('review_draft','profile_summary');not null"`
	Status    GenerationStatus `gorm:"type:enum('queued','processing','completed','failed');default:'queued'"`
	Input     string           `gorm:"type:json;not null"`
	Output    string           `gorm:"type:text"`
	Error     string           `gorm:"type:text"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ReviewDraftInput is everything the worker needs to draft a review without
// calling back into the CRM.
type ReviewDraftInput struct {
	BookingID     string   `json:"booking_id"`
	CandidateName string   `json:"candidate_name"`
	SchoolName    string   `json:"school_name"`
	Subjects      []string `json:"subjects"`
	Dates         string   `json:"dates"`
	Rating        int      `json:"rating"`
	Notes         string   `json:"notes"`
}

type ProfileSummaryInput struct {
	CandidateName string `json:"candidate_name"`
	Filename      string `json:"filename"`
	CVText        string `json:"cv_text"`
}

// GenerationJob is the queue message for a generation.
type GenerationJob struct {
	GenerationID uint           `json:"generation_id"`
	Kind         GenerationKind `json:"kind"`
}
