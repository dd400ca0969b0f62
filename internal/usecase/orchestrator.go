package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ragpipe/internal/domain"
	"ragpipe/internal/port"
)

// Options tunes one orchestrator instance. Everything is explicit; there is
// no process-wide state.
type Options struct {
	Alpha          float64       // semantic/facet blend, [0,1]
	Limit          int           // max candidates per query
	MaxRetries     int           // retry attempts after the first try
	RetryBackoff   time.Duration // first backoff; doubles per attempt
	SessionTimeout time.Duration // overall per-session deadline
}

// DefaultOptions mirror the config defaults.
func DefaultOptions() Options {
	return Options{
		Alpha:          0.5,
		Limit:          10,
		MaxRetries:     2,
		RetryBackoff:   200 * time.Millisecond,
		SessionTimeout: 60 * time.Second,
	}
}

// Orchestrator drives one query session through the pipeline state machine:
// INIT → PLANNING → SEARCHING → SCORING → SYNTHESIZING → DONE, with ERROR and
// CANCELLED as terminal escapes. Stages run strictly sequentially; progress
// is streamed through the emitter after every transition.
type Orchestrator struct {
	planner port.FacetPlanner
	search  port.SearchBackend
	scorer  port.UtilityScorer
	synth   port.Synthesizer
	emitter port.Emitter
	opts    Options
	logger  *slog.Logger
	now     func() time.Time
}

// NewOrchestrator wires the pipeline stages together.
func NewOrchestrator(
	planner port.FacetPlanner,
	search port.SearchBackend,
	scorer port.UtilityScorer,
	synth port.Synthesizer,
	emitter port.Emitter,
	opts Options,
	logger *slog.Logger,
) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		planner: planner,
		search:  search,
		scorer:  scorer,
		synth:   synth,
		emitter: emitter,
		opts:    opts,
		logger:  logger,
		now:     time.Now,
	}
}

// Run executes the session to a terminal state. Every session ends in exactly
// one of DONE, ERROR, or CANCELLED, and the matching terminal event is always
// emitted.
func (o *Orchestrator) Run(ctx context.Context, session *domain.QuerySession) {
	if o.opts.SessionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.opts.SessionTimeout)
		defer cancel()
	}

	logger := o.logger.With("session_id", session.SessionID, "query_id", session.QueryID)

	if strings.TrimSpace(session.QueryText) == "" {
		o.fail(session, logger, fmt.Errorf("%w: empty query text", domain.ErrInvalidQuery))
		return
	}

	// PLANNING
	if err := o.checkpoint(ctx, session); err != nil {
		o.fail(session, logger, err)
		return
	}
	o.transition(session, domain.StatePlanning, "planning facets")
	weights := o.planner.Plan(session.QueryText)
	logger.Debug("facet weights planned", "weights", weights)

	// SEARCHING
	if err := o.checkpoint(ctx, session); err != nil {
		o.fail(session, logger, err)
		return
	}
	o.transition(session, domain.StateSearching, "searching candidates")
	var candidates []domain.ScoredCandidate
	err := o.withRetry(ctx, session, "search", func() error {
		var searchErr error
		candidates, searchErr = o.search.Search(ctx, session.QueryText, weights, o.opts.Limit, o.opts.Alpha, nil)
		return searchErr
	})
	if err != nil {
		o.fail(session, logger, err)
		return
	}
	logger.Info("candidates retrieved", "count", len(candidates))

	// SCORING
	if err := o.checkpoint(ctx, session); err != nil {
		o.fail(session, logger, err)
		return
	}
	o.transition(session, domain.StateScoring, "scoring by recency")
	candidates, err = o.scorer.Rescore(ctx, candidates, o.now())
	if err != nil {
		o.fail(session, logger, err)
		return
	}

	// SYNTHESIZING. An empty candidate set is not an error: the synthesizer
	// reports "no evidence" with empty citations.
	if err := o.checkpoint(ctx, session); err != nil {
		o.fail(session, logger, err)
		return
	}
	o.transition(session, domain.StateSynthesizing, "synthesizing answer")
	var answer domain.Answer
	err = o.withRetry(ctx, session, "synthesize", func() error {
		var synthErr error
		answer, synthErr = o.synth.Synthesize(ctx, session.QueryText, candidates)
		return synthErr
	})
	if err != nil {
		o.fail(session, logger, err)
		return
	}

	// Every cited chunk becomes freshly useful.
	cited := make([]string, 0, len(answer.Citations))
	for _, c := range answer.Citations {
		cited = append(cited, c.ChunkID)
	}
	if err := o.scorer.MarkUseful(ctx, cited, o.now()); err != nil {
		logger.Warn("memory update failed", "error", err)
	}

	session.SetState(domain.StateDone)
	session.RecordAnswer(answer)
	o.emitter.Emit(session.SessionID, domain.AnswerEvent(answer))
	logger.Info("session done", "citations", len(answer.Citations))
}

func (o *Orchestrator) transition(session *domain.QuerySession, state domain.SessionState, summary string) {
	session.SetState(state)
	o.emitter.Emit(session.SessionID, domain.NodeUpdate(summary))
}

// checkpoint enforces cooperative cancellation and the session deadline
// between stages. It never interrupts a call in flight.
func (o *Orchestrator) checkpoint(ctx context.Context, session *domain.QuerySession) error {
	if session.Cancelled() {
		return domain.ErrCancelled
	}
	select {
	case <-ctx.Done():
		return domain.ErrSessionTimeout
	default:
		return nil
	}
}

// withRetry runs a blocking collaborator call with bounded exponential
// backoff on transient failures. Cancellation and the session deadline are
// re-checked before every attempt and during backoff.
func (o *Orchestrator) withRetry(ctx context.Context, session *domain.QuerySession, op string, call func() error) error {
	backoff := o.opts.RetryBackoff
	var lastErr error

	for attempt := 0; attempt <= o.opts.MaxRetries; attempt++ {
		if err := o.checkpoint(ctx, session); err != nil {
			return err
		}
		if attempt > 0 {
			o.logger.Warn("retrying stage", "op", op, "attempt", attempt, "error", lastErr)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return domain.ErrSessionTimeout
			}
			backoff *= 2
			if err := o.checkpoint(ctx, session); err != nil {
				return err
			}
		}

		lastErr = call()
		if lastErr == nil {
			return nil
		}
		if !domain.IsTransient(lastErr) {
			return lastErr
		}
	}
	return fmt.Errorf("%s failed after %d attempts: %w", op, o.opts.MaxRetries+1, lastErr)
}

// fail moves the session to its terminal failure state and emits the
// error-shaped terminal event.
func (o *Orchestrator) fail(session *domain.QuerySession, logger *slog.Logger, err error) {
	if errors.Is(err, domain.ErrCancelled) {
		session.SetState(domain.StateCancelled)
		o.emitter.Emit(session.SessionID, domain.ErrorEvent("cancelled"))
		logger.Info("session cancelled")
		return
	}
	session.SetState(domain.StateError)
	o.emitter.Emit(session.SessionID, domain.ErrorEvent(err.Error()))
	logger.Error("session failed", "error", err)
}
