package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/sirupsen/logrus"

	"staffable/domain"
)

const (
	MatchPoolSize     = 50
	MatchShortlist    = 20
	DefaultMatchLimit = 5
	MaxMatchLimit     = 20
	MaxNotesLength    = 2000
)

const (
	SourceAI        = "ai"
	SourceHeuristic = "heuristic"
)

// TextExtractor reads an uploaded document into plain text.
type TextExtractor interface {
	Extract(filename string, r io.Reader) (domain.Document, error)
}

type AssistantService struct {
	gen         domain.Generator
	prompts     PromptRenderer
	candidates  *CandidateService
	directory   CandidateDirectory
	jobs        JobGateway
	bookings    ReviewGateway
	generations GenerationStore
	queue       JobPublisher
	extractor   TextExtractor
	now         func() time.Time
}

type AssistantDeps struct {
	Generator   domain.Generator
	Prompts     PromptRenderer
	Candidates  *CandidateService
	Directory   CandidateDirectory
	Jobs        JobGateway
	Bookings    ReviewGateway
	Generations GenerationStore
	Queue       JobPublisher
	Extractor   TextExtractor
}

func NewAssistantService(d AssistantDeps) *AssistantService {
	return &AssistantService{
		gen:         d.Generator,
		prompts:     d.Prompts,
		candidates:  d.Candidates,
		directory:   d.Directory,
		jobs:        d.Jobs,
		bookings:    d.Bookings,
		generations: d.Generations,
		queue:       d.Queue,
		extractor:   d.Extractor,
		now:         time.Now,
	}
}


func validateHistory(history []domain.ChatMessage) error {
	if len(history) == 0 {
		return fmt.Errorf("%w: send at least one message", domain.ErrInvalidInput)
	}
	if len(history) > domain.MaxChatMessages {
		return fmt.Errorf("%w: conversation is limited to %d messages", domain.ErrInvalidInput, domain.MaxChatMessages)
	}
	for i, m := range history {
		if m.Role != domain.ChatUser && m.Role != domain.ChatAssistant {
			return fmt.Errorf("%w: message %d has role %q", domain.ErrInvalidInput, i+1, m.Role)
		}
		if strings.TrimSpace(m.Content) == "" {
			return fmt.Errorf("%w: message %d is empty", domain.ErrInvalidInput, i+1)
		}
		if utf8.RuneCountInString(m.Content) > domain.MaxChatMessageLength {
			return fmt.Errorf("%w: message %d exceeds %d characters", domain.ErrInvalidInput, i+1, domain.MaxChatMessageLength)
		}
	}
	if history[len(history)-1].Role != domain.ChatUser {
		return fmt.Errorf("%w: the last message must come from the user", domain.ErrInvalidInput)
	}
	return nil
}

// Chat answers the last user message in the conversation.
func (s *AssistantService) Chat(ctx context.Context, history []domain.ChatMessage) (domain.ChatMessage, error) {
	principal, err := domain.MustPrincipal(ctx)
	if err != nil {
		return domain.ChatMessage{}, err
	}
	if err := validateHistory(history); err != nil {
		return domain.ChatMessage{}, err
	}

	name := "assistant_client"
	data := map[string]string{"Today": today(s.now).String(), "SchoolName": principal.Name, "Name": principal.Name}
	if principal.Role == domain.RoleCandidate {
		name = "assistant_candidate"
	}
	prompt, err := s.prompts.Render(name, data)
	if err != nil {
		return domain.ChatMessage{}, err
	}
	prompt.Messages = history

	out, err := s.gen.Generate(ctx, prompt)
	if err != nil {
		return domain.ChatMessage{}, fmt.Errorf("assistant reply: %w", err)
	}
	reply := cleanReply(out)
	if reply == "" {
		return domain.ChatMessage{}, fmt.Errorf("%w: assistant returned an empty reply", domain.ErrUpstream)
	}
	return domain.ChatMessage{Role: domain.ChatAssistant, Content: reply}, nil
}

type MatchRequest struct {
	JobID        string                 `json:"job_id"`
	Requirements string                 `json:"requirements"`
	Filter       domain.CandidateFilter `json:"-"`
	Limit        int                    `json:"limit"`
}

type CandidateMatch struct {
	Candidate domain.Candidate `json:"candidate"`
	Score     int              `json:"score"`
	Reasons   []string         `json:"reasons"`
}

type MatchResult struct {
	Requirements string           `json:"requirements"`
	Source       string           `json:"source"`
	Matches      []CandidateMatch `json:"matches"`
}

func jobRequirements(j domain.Job) string {
	var sb strings.Builder
	sb.WriteString(j.Title)
	if j.Subject != "" {
		fmt.Fprintf(&sb, "\nSubject: %s", j.Subject)
	}
	if j.KeyStage != "" {
		fmt.Fprintf(&sb, "\nKey stage: %s", j.KeyStage)
	}
	if j.ContractType != "" {
		fmt.Fprintf(&sb, "\nContract: %s", j.ContractType)
	}
	if !j.StartDate.IsZero() {
		fmt.Fprintf(&sb, "\nStarts: %s", j.StartDate)
	}
	if j.Description != "" {
		fmt.Fprintf(&sb, "\n%s", j.Description)
	}
	return strings.TrimSpace(sb.String())
}

// Match ranks marketplace candidates against a job or free-text requirements.
// The model's ranking is used when it returns usable JSON; otherwise the
// keyword shortlist is returned as is.
func (s *AssistantService) Match(ctx context.Context, req MatchRequest) (MatchResult, error) {
	if _, err := domain.MustPrincipal(ctx); err != nil {
		return MatchResult{}, err
	}
	limit := req.Limit
	if limit < 1 {
		limit = DefaultMatchLimit
	}
	limit = min(limit, MaxMatchLimit)

	requirements := strings.TrimSpace(req.Requirements)
	if req.JobID != "" {
		job, err := s.jobs.GetJob(ctx, req.JobID)
		if err != nil {
			return MatchResult{}, fmt.Errorf("get job: %w", err)
		}
		requirements = strings.TrimSpace(jobRequirements(job) + "\n" + requirements)
	}
	if requirements == "" {
		return MatchResult{}, fmt.Errorf("%w: give a job or describe the requirements", domain.ErrInvalidInput)
	}

	pool, err := s.candidates.Pool(ctx, req.Filter, MatchPoolSize)
	if err != nil {
		return MatchResult{}, err
	}
	result := MatchResult{Requirements: requirements, Source: SourceHeuristic, Matches: []CandidateMatch{}}
	if len(pool) == 0 {
		return result, nil
	}

	ranked := shortlist(requirements, pool)
	if len(ranked) > MatchShortlist {
		ranked = ranked[:MatchShortlist]
	}

	log := UseLogger(ctx)
	matches, err := s.rankWithModel(ctx, requirements, ranked, limit)
	if err != nil {
		log.WithError(err).Warn("AI matching failed, using keyword ranking")
		result.Matches = heuristicMatches(ranked, limit)
		return result, nil
	}
	result.Source = SourceAI
	result.Matches = matches
	return result, nil
}

type modelMatch struct {
	CandidateID string   `json:"candidate_id"`
	Score       float64  `json:"score"`
	Reasons     []string `json:"reasons"`
}

func (s *AssistantService) rankWithModel(ctx context.Context, requirements string, ranked []scoredCandidate, limit int) ([]CandidateMatch, error) {
	cands := make([]domain.Candidate, len(ranked))
	byID := make(map[string]domain.Candidate, len(ranked))
	for i, r := range ranked {
		cands[i] = r.candidate
		byID[r.candidate.ID] = r.candidate
	}

	prompt, err := s.prompts.Render("match_candidates", map[string]any{
		"Requirements": requirements,
		"Candidates":   cands,
		"Limit":        limit,
	})
	if err != nil {
		return nil, err
	}
	out, err := s.gen.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}
	replies, err := parseMatches(cleanReply(out))
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(replies))
	matches := make([]CandidateMatch, 0, len(replies))
	for _, m := range replies {
		c, ok := byID[m.CandidateID]
		if !ok || seen[m.CandidateID] {
			continue
		}
		seen[m.CandidateID] = true
		reasons := cleanList(m.Reasons)
		if reasons == nil {
			reasons = []string{}
		}
		matches = append(matches, CandidateMatch{
			Candidate: c,
			Score:     int(math.Round(min(max(m.Score, 0), 100))),
			Reasons:   reasons,
		})
	}
	if len(matches) == 0 {
		return nil, errors.New("model returned no known candidates")
	}
	sortMatches(matches)
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// parseMatches accepts {"matches":[...]} or a bare array.
func parseMatches(text string) ([]modelMatch, error) {
	cleaned := cleanJSON(text)
	if strings.HasPrefix(cleaned, "[") {
		var list []modelMatch
		if err := json.Unmarshal([]byte(cleaned), &list); err != nil {
			return nil, fmt.Errorf("parse matches: %w", err)
		}
		return list, nil
	}
	var wrapped struct {
		Matches []modelMatch `json:"matches"`
	}
	if err := json.Unmarshal([]byte(cleaned), &wrapped); err != nil {
		return nil, fmt.Errorf("parse matches: %w", err)
	}
	return wrapped.Matches, nil
}

func sortMatches(m []CandidateMatch) {
	sort.SliceStable(m, func(i, j int) bool {
		if m[i].Score != m[j].Score {
			return m[i].Score > m[j].Score
		}
		return m[i].Candidate.ID < m[j].Candidate.ID
	})
}

type scoredCandidate struct {
	candidate domain.Candidate
	hits      int
	terms     int
	matched   []string
}

func requirementTerms(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]bool, len(words))
	var out []string
	for _, w := range words {
		if len(w) < 3 || stopWords[w] || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out
}

var stopWords = map[string]bool{
	"and": true, "the": true, "for": true, "with": true, "who": true, "are": true,
	"our": true, "you": true, "can": true, "from": true, "will": true, "must": true,
	"teacher": true, "teaching": true, "school": true, "need": true, "needs": true,
	"looking": true, "contract": true, "starts": true, "subject": true, "key": true, "stage": true,
}

// shortlist orders candidates by how many requirement terms fuzzily hit their
// subjects, key stages or headline. When nothing hits, every candidate is
// kept, best rated first.
func shortlist(requirements string, pool []domain.Candidate) []scoredCandidate {
	terms := requirementTerms(requirements)
	scored := make([]scoredCandidate, 0, len(pool))
	anyHit := false
	for _, c := range pool {
		targets := make([]string, 0, len(c.Subjects)+len(c.KeyStages)+1)
		targets = append(targets, c.Subjects...)
		targets = append(targets, c.KeyStages...)
		if c.Headline != "" {
			targets = append(targets, c.Headline)
		}

		sc := scoredCandidate{candidate: c, terms: len(terms)}
		seen := map[string]bool{}
		for _, term := range terms {
			ranks := fuzzy.RankFindNormalizedFold(term, targets)
			if len(ranks) == 0 {
				continue
			}
			sc.hits++
			sort.Sort(ranks)
			if best := ranks[0].Target; best != c.Headline && !seen[best] {
				seen[best] = true
				sc.matched = append(sc.matched, best)
			}
		}
		if sc.hits > 0 {
			anyHit = true
		}
		scored = append(scored, sc)
	}

	if anyHit {
		kept := scored[:0]
		for _, sc := range scored {
			if sc.hits > 0 {
				kept = append(kept, sc)
			}
		}
		scored = kept
	}
	sort.SliceStable(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if a.hits != b.hits {
			return a.hits > b.hits
		}
		if a.candidate.Rating != b.candidate.Rating {
			return a.candidate.Rating > b.candidate.Rating
		}
		return a.candidate.ID < b.candidate.ID
	})
	return scored
}

func heuristicMatches(ranked []scoredCandidate, limit int) []CandidateMatch {
	out := make([]CandidateMatch, 0, min(limit, len(ranked)))
	for _, sc := range ranked {
		if len(out) == limit {
			break
		}
		score := 0
		if sc.terms > 0 {
			score = int(math.Round(float64(sc.hits) * 100 / float64(sc.terms)))
		}
		reasons := make([]string, 0, 3)
		for _, m := range sc.matched {
			if len(reasons) == 2 {
				break
			}
			reasons = append(reasons, "Covers "+m)
		}
		if sc.candidate.QTS {
			reasons = append(reasons, "Holds QTS")
		}
		out = append(out, CandidateMatch{Candidate: sc.candidate, Score: score, Reasons: reasons})
	}
	sortMatches(out)
	return out
}

func formatDates(b domain.Booking) string {
	first, last := b.FirstDay(), b.LastDay()
	if first.IsZero() {
		return "not recorded"
	}
	layout := "2 Jan 2006"
	if first == last {
		return first.In(time.UTC).Format(layout)
	}
	return fmt.Sprintf("%s to %s (%d days)", first.In(time.UTC).Format(layout), last.In(time.UTC).Format(layout), len(b.Days))
}

// DraftReview queues a review draft for a booking the school took part in.
func (s *AssistantService) DraftReview(ctx context.Context, bookingID string, rating int, notes string) (domain.Generation, error) {
	principal, err := domain.MustPrincipal(ctx)
	if err != nil {
		return domain.Generation{}, err
	}
	if principal.Role != domain.RoleClient {
		return domain.Generation{}, fmt.Errorf("%w: only schools draft reviews", domain.ErrForbidden)
	}
	if rating < 1 || rating > 5 {
		return domain.Generation{}, fmt.Errorf("%w: rating must be between 1 and 5", domain.ErrInvalidInput)
	}
	notes = strings.TrimSpace(notes)
	if utf8.RuneCountInString(notes) > MaxNotesLength {
		return domain.Generation{}, fmt.Errorf("%w: notes exceed %d characters", domain.ErrInvalidInput, MaxNotesLength)
	}

	b, err := s.bookings.GetBooking(ctx, bookingID)
	if err != nil {
		return domain.Generation{}, fmt.Errorf("get booking: %w", err)
	}
	if !b.Involves(principal) {
		return domain.Generation{}, domain.ErrNotFound
	}

	input := domain.ReviewDraftInput{
		BookingID:     b.ID,
		CandidateName: b.CandidateName,
		SchoolName:    b.ClientName,
		Dates:         formatDates(b),
		Rating:        rating,
		Notes:         notes,
	}
	if input.SchoolName == "" {
		input.SchoolName = principal.Name
	}
	if c, err := s.directory.GetCandidate(ctx, b.CandidateID); err == nil {
		input.Subjects = c.Subjects
		if input.CandidateName == "" {
			input.CandidateName = c.FullName()
		}
	} else {
		UseLogger(ctx).WithError(err).WithField("candidate", b.CandidateID).Warn("drafting review without candidate details")
	}

	return s.enqueue(ctx, principal, domain.KindReviewDraft, input)
}

// SummarizeProfile queues a profile bio drafted from an uploaded CV.
func (s *AssistantService) SummarizeProfile(ctx context.Context, filename string, r io.Reader) (domain.Generation, error) {
	principal, err := domain.MustPrincipal(ctx)
	if err != nil {
		return domain.Generation{}, err
	}
	if principal.Role != domain.RoleCandidate {
		return domain.Generation{}, fmt.Errorf("%w: only candidates summarise a CV", domain.ErrForbidden)
	}
	doc, err := s.extractor.Extract(filename, r)
	if err != nil {
		return domain.Generation{}, err
	}
	return s.enqueue(ctx, principal, domain.KindProfileSummary, domain.ProfileSummaryInput{
		CandidateName: principal.Name,
		Filename:      doc.Filename,
		CVText:        doc.Text,
	})
}

func (s *AssistantService) enqueue(ctx context.Context, p domain.Principal, kind domain.GenerationKind, input any) (domain.Generation, error) {
	raw, err := json.Marshal(input)
	if err != nil {
		return domain.Generation{}, fmt.Errorf("encode generation input: %w", err)
	}
	g := domain.Generation{OwnerID: p.UserID, Kind: kind, Status: domain.GenerationQueued, Input: string(raw)}
	if err := s.generations.Create(ctx, &g); err != nil {
		return domain.Generation{}, fmt.Errorf("create generation: %w", err)
	}

	log := UseLogger(ctx).WithFields(logrus.Fields{"generation": g.ID, "kind": kind})
	if err := s.queue.PublishJob(ctx, domain.GenerationJob{GenerationID: g.ID, Kind: kind}); err != nil {
		log.WithError(err).Error("failed to queue generation")
		if ferr := s.generations.Fail(ctx, g.ID, "failed to queue job"); ferr != nil {
			log.WithError(ferr).Error("failed to mark generation failed")
		}
		return domain.Generation{}, fmt.Errorf("%w: failed to queue job: %w", domain.ErrUpstream, err)
	}
	log.Info("generation queued")
	return g, nil
}

// Generation returns a generation owned by the principal.
func (s *AssistantService) Generation(ctx context.Context, id uint) (domain.Generation, error) {
	principal, err := domain.MustPrincipal(ctx)
	if err != nil {
		return domain.Generation{}, err
	}
	g, err := s.generations.Get(ctx, id)
	if err != nil {
		return domain.Generation{}, err
	}
	if g.OwnerID != principal.UserID {
		return domain.Generation{}, domain.ErrNotFound
	}
	return g, nil
}
