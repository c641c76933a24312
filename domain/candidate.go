package domain

import (
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

type Candidate struct {
	ID             string          `json:"id"`
	FirstName      string          `json:"first_name"`
	LastName       string          `json:"last_name"`
	Headline       string          `json:"headline"`
	Bio            string          `json:"bio"`
	Subjects       []string        `json:"subjects"`
	KeyStages      []string        `json:"key_stages"`
	Qualifications []string        `json:"qualifications"`
	QTS            bool            `json:"qts"`
	Location       string          `json:"location"`
	Postcode       string          `json:"postcode"`
	DayRate        decimal.Decimal `json:"day_rate"`
	Rating         float64         `json:"rating"`
	ReviewCount    int             `json:"review_count"`
	Availability   string          `json:"availability"`
	PhotoURL       string          `json:"photo_url,omitempty"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func (c Candidate) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// Page is one slice of a paginated CRM listing.
type Page[T any] struct {
	Items      []T  `json:"items"`
	Page       int  `json:"page"`
	PageSize   int  `json:"page_size"`
	Total      int  `json:"total"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

func NewPage[T any](items []T, page, pageSize, total int) Page[T] {
	if items == nil {
		items = []T{}
	}
	totalPages := 0
	if pageSize > 0 {
		totalPages = (total + pageSize - 1) / pageSize
	}
	return Page[T]{
		Items:      items,
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}

type CandidateSort string

const (
	SortRelevance CandidateSort = "relevance"
	SortRating    CandidateSort = "rating"
	SortDayRate   CandidateSort = "day_rate"
	SortRecent    CandidateSort = "recent"
)

func (s CandidateSort) Valid() bool {
	switch s {
	case SortRelevance, SortRating, SortDayRate, SortRecent:
		return true
	}
	return false
}

// CandidateFilter is the marketplace query sent to the CRM.
type CandidateFilter struct {
	Page        int
	PageSize    int
	Search      string
	Subjects    []string
	KeyStages   []string
	Location    string
	AvailableOn civil.Date
	QTSOnly     bool
	MinRating   float64
	Sort        CandidateSort
}
