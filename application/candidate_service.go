package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"golang.org/x/sync/errgroup"

	"staffable/domain"
)

// DefaultAvailabilityDays is the availability window shown on a profile when
// none is requested.
const DefaultAvailabilityDays = 28

type CandidateService struct {
	crm         CandidateDirectory
	pageSize    int
	maxPageSize int
	now         func() time.Time
}

func NewCandidateService(crm CandidateDirectory, pageSize, maxPageSize int) *CandidateService {
	return &CandidateService{crm: crm, pageSize: pageSize, maxPageSize: maxPageSize, now: time.Now}
}

// Normalize applies paging defaults and cleans up free-text filters.
func (s *CandidateService) Normalize(f domain.CandidateFilter) domain.CandidateFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	switch {
	case f.PageSize < 1:
		f.PageSize = s.pageSize
	case f.PageSize > s.maxPageSize:
		f.PageSize = s.maxPageSize
	}
	f.Search = strings.TrimSpace(f.Search)
	f.Location = strings.TrimSpace(f.Location)
	f.Subjects = cleanList(f.Subjects)
	f.KeyStages = cleanList(f.KeyStages)
	if !f.Sort.Valid() {
		f.Sort = domain.SortRelevance
	}
	f.MinRating = min(max(f.MinRating, 0), 5)
	return f
}

// cleanList trims entries and drops blanks and case-insensitive repeats.
func cleanList(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		key := strings.ToLower(v)
		if v == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
	}
	return out
}

func (s *CandidateService) Browse(ctx context.Context, f domain.CandidateFilter) (domain.Page[domain.Candidate], error) {
	f = s.Normalize(f)
	items, total, err := s.crm.ListCandidates(ctx, f)
	if err != nil {
		return domain.Page[domain.Candidate]{}, fmt.Errorf("list candidates: %w", err)
	}
	if len(items) > f.PageSize {
		items = items[:f.PageSize]
	}
	return domain.NewPage(items, f.Page, f.PageSize, total), nil
}

type CandidateProfile struct {
	Candidate   domain.Candidate        `json:"candidate"`
	Reviews     []domain.Review         `json:"reviews"`
	Unavailable []domain.Unavailability `json:"unavailable"`
	From        civil.Date              `json:"from"`
	To          civil.Date              `json:"to"`
}

// Profile loads a candidate with their reviews and unavailability between
// from and to. Reviews and availability are best effort.
func (s *CandidateService) Profile(ctx context.Context, id string, from, to civil.Date) (CandidateProfile, error) {
	if from.IsZero() {
		from = today(s.now)
	}
	if to.IsZero() {
		to = from.AddDays(DefaultAvailabilityDays - 1)
	}
	if to.Before(from) {
		return CandidateProfile{}, fmt.Errorf("%w: %s is before %s", domain.ErrInvalidInput, to, from)
	}
	if to.DaysSince(from)+1 > domain.MaxDiaryDays {
		return CandidateProfile{}, fmt.Errorf("%w: availability range is limited to %d days", domain.ErrInvalidInput, domain.MaxDiaryDays)
	}

	profile := CandidateProfile{From: from, To: to, Reviews: []domain.Review{}, Unavailable: []domain.Unavailability{}}
	log := UseLogger(ctx).WithField("candidate", id)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c, err := s.crm.GetCandidate(gctx, id)
		if err != nil {
			return err
		}
		profile.Candidate = c
		return nil
	})
	g.Go(func() error {
		reviews, err := s.crm.CandidateReviews(gctx, id)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				log.WithError(err).Warn("candidate reviews unavailable")
			}
			return nil
		}
		if reviews != nil {
			profile.Reviews = reviews
		}
		return nil
	})
	g.Go(func() error {
		slots, err := s.crm.CandidateAvailability(gctx, id, from, to)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				log.WithError(err).Warn("candidate availability unavailable")
			}
			return nil
		}
		if slots != nil {
			profile.Unavailable = slots
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return CandidateProfile{}, fmt.Errorf("get candidate %s: %w", id, err)
	}
	return profile, nil
}

// Pool lists up to n candidates for the filter from the first page,
// ignoring the browsing page size limit.
func (s *CandidateService) Pool(ctx context.Context, f domain.CandidateFilter, n int) ([]domain.Candidate, error) {
	f = s.Normalize(f)
	f.Page, f.PageSize = 1, n
	items, _, err := s.crm.ListCandidates(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	if len(items) > n {
		items = items[:n]
	}
	return items, nil
}
