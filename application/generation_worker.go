package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"staffable/domain"
)

// GenerationWorker drafts queued generations. It never calls the CRM: every
// input it needs was captured when the job was queued.
type GenerationWorker struct {
	store    GenerationStore
	gen      domain.Generator
	prompts  PromptRenderer
	recorder GenerationRecorder
	log      *logrus.Logger
}

func NewGenerationWorker(store GenerationStore, gen domain.Generator, prompts PromptRenderer, recorder GenerationRecorder, log *logrus.Logger) *GenerationWorker {
	return &GenerationWorker{store: store, gen: gen, prompts: prompts, recorder: recorder, log: log}
}

// Handle processes one job. Generation failures are stored on the row with a
// public message and the detail is only logged. Storage errors and drafts
// interrupted by ctx are returned so the job can be retried.
func (w *GenerationWorker) Handle(ctx context.Context, job domain.GenerationJob) error {
	log := w.log.WithFields(logrus.Fields{"generation": job.GenerationID, "kind": job.Kind})
	ctx = WithLogger(ctx, log)

	if err := w.store.MarkProcessing(ctx, job.GenerationID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			log.Warn("generation no longer exists, dropping job")
			return nil
		}
		return fmt.Errorf("mark processing: %w", err)
	}
	g, err := w.store.Get(ctx, job.GenerationID)
	if err != nil {
		return fmt.Errorf("load generation: %w", err)
	}

	out, err := w.draft(ctx, g)
	if err != nil && ctx.Err() != nil {
		log.WithError(err).Warn("generation interrupted")
		return fmt.Errorf("draft interrupted: %w", ctx.Err())
	}

	// the draft is settled; record it even if shutdown begins now
	settle := context.WithoutCancel(ctx)
	if err != nil {
		log.WithError(err).Error("generation failed")
		w.observe(g.Kind, domain.GenerationFailed)
		if ferr := w.store.Fail(settle, g.ID, domain.GenerationFailedMessage); ferr != nil {
			return fmt.Errorf("store failure: %w", ferr)
		}
		return nil
	}

	if err := w.store.Complete(settle, g.ID, out); err != nil {
		return fmt.Errorf("store output: %w", err)
	}
	w.observe(g.Kind, domain.GenerationCompleted)
	log.Info("generation completed")
	return nil
}

func (w *GenerationWorker) draft(ctx context.Context, g domain.Generation) (string, error) {
	prompt, err := w.prompt(g)
	if err != nil {
		return "", err
	}
	out, err := w.gen.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	out = cleanReply(out)
	if out == "" {
		return "", errors.New("model returned an empty draft")
	}
	return out, nil
}

func (w *GenerationWorker) prompt(g domain.Generation) (domain.Prompt, error) {
	switch g.Kind {
	case domain.KindReviewDraft:
		var in domain.ReviewDraftInput
		if err := json.Unmarshal([]byte(g.Input), &in); err != nil {
			return domain.Prompt{}, fmt.Errorf("decode review input: %w", err)
		}
		return w.prompts.Render("review_draft", in)
	case domain.KindProfileSummary:
		var in domain.ProfileSummaryInput
		if err := json.Unmarshal([]byte(g.Input), &in); err != nil {
			return domain.Prompt{}, fmt.Errorf("decode profile input: %w", err)
		}
		return w.prompts.Render("profile_summary", in)
	}
	return domain.Prompt{}, fmt.Errorf("unknown generation kind %q", g.Kind)
}

func (w *GenerationWorker) observe(kind domain.GenerationKind, status domain.GenerationStatus) {
	if w.recorder != nil {
		w.recorder.ObserveGeneration(string(kind), string(status))
	}
}
