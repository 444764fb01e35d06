package reconcile

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/freewebtopdf/chatfiles/internal/domain"
)

// Reconciler writes one validated candidate through a FileStore
type Reconciler struct {
	store  domain.FileStore
	logger zerolog.Logger
}

// NewReconciler creates a Reconciler over store
func NewReconciler(store domain.FileStore, logger zerolog.Logger) *Reconciler {
	return &Reconciler{
		store:  store,
		logger: logger.With().Str("component", "reconciler").Logger(),
	}
}

// Reconcile updates the file the index resolves the candidate to, or creates
// a new one. Store failures are reported as a rejected outcome and never
// returned.
func (r *Reconciler) Reconcile(ctx context.Context, c domain.CodeBlockCandidate, lang string, idx *Index) domain.Outcome {
	outcome := domain.Outcome{
		Filename: c.Filename,
		Language: lang,
		Rule:     c.SourceRule,
	}

	if existing, strategy, ok := idx.Lookup(c.Filename); ok {
		updated, err := r.store.UpdateFileContent(ctx, existing, c.Content)
		if err != nil {
			r.logger.Warn().Err(err).Str("filename", c.Filename).Str("file_id", existing.ID).Msg("Failed to update file")
			return rejected(outcome, err)
		}
		r.logger.Debug().
			Str("filename", c.Filename).
			Str("file_id", existing.ID).
			Str("strategy", string(strategy)).
			Msg("Matched existing file")
		outcome.Kind = domain.OutcomeUpdated
		outcome.File = updated
		return outcome
	}

	created, err := r.store.CreateFile(ctx, c.Filename, c.Content, lang)
	if err != nil {
		r.logger.Warn().Err(err).Str("filename", c.Filename).Msg("Failed to create file")
		return rejected(outcome, err)
	}
	outcome.Kind = domain.OutcomeCreated
	outcome.File = created
	return outcome
}

func rejected(o domain.Outcome, err error) domain.Outcome {
	o.Kind = domain.OutcomeRejected
	o.Reason = domain.KindStorage
	o.Message = err.Error()
	return o
}
