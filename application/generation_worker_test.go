package application

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staffable/domain"
	"staffable/infrastructure"
)

func newWorker(t *testing.T, gen *fakeGenerator) (*GenerationWorker, *fakeGenerations, *fakeRecorder) {
	t.Helper()
	prompts, err := infrastructure.NewPromptCatalog()
	require.NoError(t, err)
	store := newFakeGenerations()
	rec := &fakeRecorder{}
	return NewGenerationWorker(store, gen, prompts, rec, quietLogger()), store, rec
}

func queued(t *testing.T, store *fakeGenerations, kind domain.GenerationKind, input any) uint {
	t.Helper()
	raw, err := json.Marshal(input)
	require.NoError(t, err)
	g := domain.Generation{OwnerID: "u-client", Kind: kind, Status: domain.GenerationQueued, Input: string(raw)}
	require.NoError(t, store.Create(context.Background(), &g))
	return g.ID
}

func TestGenerationWorker_CompletesReviewDraft(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{reply: "<think>keep it warm</think>\nAda was a superb addition to Year 4. "}
	w, store, rec := newWorker(t, gen)
	id := queued(t, store, domain.KindReviewDraft, domain.ReviewDraftInput{
		BookingID: "b1", CandidateName: "Ada Lovelace", SchoolName: "Hill Primary",
		Subjects: []string{"Mathematics"}, Dates: "2 Sep 2024", Rating: 5,
	})

	require.NoError(t, w.Handle(context.Background(), domain.GenerationJob{GenerationID: id, Kind: domain.KindReviewDraft}))

	g, err := store.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.GenerationCompleted, g.Status)
	assert.Equal(t, "Ada was a superb addition to Year 4.", g.Output)
	assert.Equal(t, []string{"review_draft:completed"}, rec.events)

	require.Len(t, gen.prompts, 1)
	require.Len(t, gen.prompts[0].Messages, 1)
	assert.Contains(t, gen.prompts[0].Messages[0].Content, "Ada Lovelace")
	assert.Contains(t, gen.prompts[0].Messages[0].Content, "Hill Primary")
}

func TestGenerationWorker_CompletesProfileSummary(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{reply: "Experienced maths teacher."}
	w, store, rec := newWorker(t, gen)
	id := queued(t, store, domain.KindProfileSummary, domain.ProfileSummaryInput{
		CandidateName: "Ada Lovelace", Filename: "cv.pdf", CVText: "Ten years teaching KS3 maths.",
	})

	require.NoError(t, w.Handle(context.Background(), domain.GenerationJob{GenerationID: id, Kind: domain.KindProfileSummary}))

	g, err := store.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.GenerationCompleted, g.Status)
	assert.Equal(t, "Experienced maths teacher.", g.Output)
	assert.Equal(t, []string{"profile_summary:completed"}, rec.events)
	assert.Contains(t, gen.prompts[0].Messages[0].Content, "Ten years teaching KS3 maths.")
}

func TestGenerationWorker_RecordsFailures(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		gen    *fakeGenerator
		kind   domain.GenerationKind
		input  any
		detail string
	}{
		"model error": {
			gen:   &fakeGenerator{err: errors.New("quota exceeded")},
			kind:  domain.KindReviewDraft,
			input: domain.ReviewDraftInput{CandidateName: "Ada", Rating: 4},
			detail: "quota exceeded",
		},
		"empty draft": {
			gen:   &fakeGenerator{reply: "<think>hmm</think>  "},
			kind:  domain.KindProfileSummary,
			input: domain.ProfileSummaryInput{CandidateName: "Ada", CVText: "cv"},
			detail: "empty draft",
		},
		"unknown kind": {
			gen:   &fakeGenerator{reply: "x"},
			kind:  domain.GenerationKind("cover_letter"),
			input: map[string]string{},
			detail: "unknown generation kind",
		},
		"bad input": {
			gen:   &fakeGenerator{reply: "x"},
			kind:  domain.KindReviewDraft,
			input: []int{1, 2},
			detail: "decode review input",
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			w, store, rec := newWorker(t, tt.gen)
			id := queued(t, store, tt.kind, tt.input)

			require.NoError(t, w.Handle(context.Background(), domain.GenerationJob{GenerationID: id, Kind: tt.kind}))

			g, err := store.Get(context.Background(), id)
			require.NoError(t, err)
			assert.Equal(t, domain.GenerationFailed, g.Status)
			assert.Equal(t, domain.GenerationFailedMessage, g.Error)
			assert.NotContains(t, g.Error, tt.detail)
			assert.Equal(t, []string{string(tt.kind) + ":failed"}, rec.events)
		})
	}
}

func TestGenerationWorker_DropsMissingGeneration(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{reply: "x"}
	w, _, rec := newWorker(t, gen)

	assert.NoError(t, w.Handle(context.Background(), domain.GenerationJob{GenerationID: 42, Kind: domain.KindReviewDraft}))
	assert.Empty(t, gen.prompts)
	assert.Empty(t, rec.events)
}

func TestGenerationWorker_NilRecorder(t *testing.T) {
	t.Parallel()

	prompts, err := infrastructure.NewPromptCatalog()
	require.NoError(t, err)
	store := newFakeGenerations()
	w := NewGenerationWorker(store, &fakeGenerator{reply: "ok"}, prompts, nil, quietLogger())
	id := queued(t, store, domain.KindProfileSummary, domain.ProfileSummaryInput{CandidateName: "Ada", CVText: "cv"})

	require.NoError(t, w.Handle(context.Background(), domain.GenerationJob{GenerationID: id, Kind: domain.KindProfileSummary}))
	g, err := store.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.GenerationCompleted, g.Status)
}

func TestGenerationWorker_HidesUpstreamDetail(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{err: errors.New(`Post "https://ai.example/models/m1:generateContent?key=SECRET-KEY-123": connection refused`)}
	w, store, _ := newWorker(t, gen)
	id := queued(t, store, domain.KindReviewDraft, domain.ReviewDraftInput{CandidateName: "Ada", Rating: 5})

	require.NoError(t, w.Handle(context.Background(), domain.GenerationJob{GenerationID: id, Kind: domain.KindReviewDraft}))

	g, err := store.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.GenerationFailed, g.Status)
	assert.NotContains(t, g.Error, "SECRET-KEY-123")
	assert.NotContains(t, g.Error, "generateContent")
}

func TestGenerationWorker_InterruptedDraftIsRetried(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	gen := &fakeGenerator{err: context.Canceled, during: cancel}
	w, store, rec := newWorker(t, gen)
	id := queued(t, store, domain.KindReviewDraft, domain.ReviewDraftInput{CandidateName: "Ada", Rating: 5})

	err := w.Handle(ctx, domain.GenerationJob{GenerationID: id, Kind: domain.KindReviewDraft})
	require.ErrorIs(t, err, context.Canceled)

	g, err := store.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.GenerationProcessing, g.Status)
	assert.Empty(t, rec.events)
}

func TestGenerationWorker_StoresDraftFinishedDuringShutdown(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	gen := &fakeGenerator{reply: "Ada was superb.", during: cancel}
	w, store, rec := newWorker(t, gen)
	id := queued(t, store, domain.KindReviewDraft, domain.ReviewDraftInput{CandidateName: "Ada", Rating: 5})

	require.NoError(t, w.Handle(ctx, domain.GenerationJob{GenerationID: id, Kind: domain.KindReviewDraft}))

	g, err := store.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.GenerationCompleted, g.Status)
	assert.Equal(t, "Ada was superb.", g.Output)
	assert.Equal(t, []string{"review_draft:completed"}, rec.events)
}

func TestGenerationWorker_CancelledBeforeStart(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	gen := &fakeGenerator{reply: "x"}
	w, store, _ := newWorker(t, gen)
	id := queued(t, store, domain.KindProfileSummary, domain.ProfileSummaryInput{CandidateName: "Ada", CVText: "cv"})

	assert.Error(t, w.Handle(ctx, domain.GenerationJob{GenerationID: id, Kind: domain.KindProfileSummary}))
	assert.Empty(t, gen.prompts)

	g, err := store.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.GenerationQueued, g.Status)
}
