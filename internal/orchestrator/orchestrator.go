// Package orchestrator runs the extraction pipeline over one piece of
// assistant text and reconciles the result with the user's files.
package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/freewebtopdf/chatfiles/internal/domain"
	"github.com/freewebtopdf/chatfiles/internal/extractor"
	"github.com/freewebtopdf/chatfiles/internal/language"
	"github.com/freewebtopdf/chatfiles/internal/reconcile"
)

// OutcomeListener receives every outcome as soon as it is decided
type OutcomeListener func(domain.Outcome)

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithCache memoizes extraction results per message text
func WithCache(cache domain.CandidateCache) Option {
	return func(o *Orchestrator) {
		o.cache = cache
	}
}

// WithOutcomeListener registers a listener. Listeners are called synchronously
// in outcome order.
func WithOutcomeListener(listener OutcomeListener) Option {
	return func(o *Orchestrator) {
		if listener != nil {
			o.listeners = append(o.listeners, listener)
		}
	}
}

// WithLogger replaces the default global logger
func WithLogger(logger zerolog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithExtractor replaces the default rule table
func WithExtractor(e *extractor.Extractor) Option {
	return func(o *Orchestrator) {
		o.extractor = e
	}
}

// Orchestrator implements domain.Processor. It holds no per-call state and is
// safe for concurrent use when its store and cache are.
type Orchestrator struct {
	store     domain.FileStore
	extractor *extractor.Extractor
	validator *domain.FilenameValidator
	cache     domain.CandidateCache
	listeners []OutcomeListener
	logger    zerolog.Logger
}

var _ domain.Processor = (*Orchestrator)(nil)

// New creates an Orchestrator writing through store
func New(store domain.FileStore, logger zerolog.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:     store,
		extractor: extractor.NewExtractor(),
		validator: domain.NewFilenameValidator(),
		logger:    logger,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = o.logger.With().Str("component", "orchestrator").Logger()
	return o
}

// ProcessAssistantText extracts every file the text proposes and creates or
// updates it. It never fails as a whole: per-file problems are reported in
// the summary's Errors.
func (o *Orchestrator) ProcessAssistantText(ctx context.Context, text string) *domain.Summary {
	start := time.Now()
	summary := domain.NewSummary()

	candidates := o.candidates(text)
	if len(candidates) == 0 {
		return summary
	}

	reconciler := reconcile.NewReconciler(o.store, o.logger)

	var index *reconcile.Index
	var snapshotErr error
	if files, err := o.store.ListFiles(ctx); err != nil {
		snapshotErr = err
		o.logger.Error().Err(err).Msg("Failed to load existing files")
	} else {
		index = reconcile.NewIndex(files)
	}

	for _, c := range candidates {
		o.emit(summary, o.process(ctx, reconciler, index, snapshotErr, c))
	}

	o.logger.Info().
		Int("candidates", len(candidates)).
		Int("created", len(summary.Created)).
		Int("updated", len(summary.Updated)).
		Int("errors", len(summary.Errors)).
		Dur("duration", time.Since(start)).
		Msg("Processed assistant text")

	return summary
}

func (o *Orchestrator) process(ctx context.Context, r *reconcile.Reconciler, index *reconcile.Index, snapshotErr error, c domain.CodeBlockCandidate) domain.Outcome {
	if err := ctx.Err(); err != nil {
		return reject(c, "", domain.KindCancelled, cancelMessage(err))
	}

	if v := o.validator.Validate(c.Filename); !v.Valid {
		return reject(c, "", v.Reason, "invalid filename ("+string(v.Reason)+")")
	}

	lang := languageFor(c)

	if snapshotErr != nil {
		return reject(c, lang, domain.KindStorage, snapshotErr.Error())
	}

	return r.Reconcile(ctx, c, lang, index)
}

// Preview runs extraction, validation and classification without touching
// the store
func (o *Orchestrator) Preview(text string) []domain.PlannedFile {
	candidates := o.candidates(text)
	planned := make([]domain.PlannedFile, 0, len(candidates))

	for _, c := range candidates {
		v := o.validator.Validate(c.Filename)
		p := domain.PlannedFile{
			Filename: c.Filename,
			Rule:     c.SourceRule,
			Valid:    v.Valid,
			Reason:   v.Reason,
			Size:     len(c.Content),
		}
		if v.Valid {
			p.Language = languageFor(c)
		}
		planned = append(planned, p)
	}

	return planned
}

// HealthCheck reports the state of the extraction pipeline
func (o *Orchestrator) HealthCheck(ctx context.Context) domain.HealthStatus {
	return o.extractor.HealthCheck(ctx)
}

// GetStats returns extraction counters
func (o *Orchestrator) GetStats(ctx context.Context) map[string]any {
	return o.extractor.GetStats(ctx)
}

func (o *Orchestrator) candidates(text string) []domain.CodeBlockCandidate {
	if o.cache != nil {
		if cached, ok := o.cache.Get(text); ok {
			return cached
		}
	}

	candidates := o.extractor.ExtractUnique(text)

	if o.cache != nil {
		o.cache.Set(text, candidates)
	}
	return candidates
}

func (o *Orchestrator) emit(summary *domain.Summary, outcome domain.Outcome) {
	summary.Add(outcome)

	o.logger.Debug().
		Str("filename", outcome.Filename).
		Stringer("rule", outcome.Rule).
		Str("outcome", string(outcome.Kind)).
		Str("reason", string(outcome.Reason)).
		Msg("Candidate reconciled")

	for _, listener := range o.listeners {
		listener(outcome)
	}
}

// languageFor keeps the fence language and falls back to the filename
func languageFor(c domain.CodeBlockCandidate) string {
	if c.Language != "" {
		return c.Language
	}
	return language.Classify(c.Filename)
}

func reject(c domain.CodeBlockCandidate, lang string, kind domain.ErrorKind, message string) domain.Outcome {
	return domain.Outcome{
		Kind:     domain.OutcomeRejected,
		Filename: c.Filename,
		Language: lang,
		Rule:     c.SourceRule,
		Reason:   kind,
		Message:  message,
	}
}

func cancelMessage(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "processing timed out"
	}
	return "processing cancelled"
}
