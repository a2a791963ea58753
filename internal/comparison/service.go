// Package comparison orchestrates a loan comparison: it validates the
// request, fetches a data snapshot, runs the eligibility engine and
// optionally saves the calculation.
package comparison

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/iwvelando/loan-compare/internal/eligibility"
	"github.com/iwvelando/loan-compare/internal/metrics"
	"github.com/iwvelando/loan-compare/internal/model"
	"github.com/iwvelando/loan-compare/internal/store"
	"github.com/iwvelando/loan-compare/pkg/constants"
	"github.com/iwvelando/loan-compare/pkg/datetime"
	"github.com/iwvelando/loan-compare/pkg/validation"
)

var (
	// ErrSuperseded means a newer request from the same session started
	// while this one was computing; its result was discarded.
	ErrSuperseded = errors.New("comparison superseded by a newer request")
	// ErrDataUnavailable means the snapshot could not be fetched.
	ErrDataUnavailable = errors.New("comparison data unavailable")
)

// UnavailableError wraps a fetch failure together with the session's last
// good result, which is left untouched.
type UnavailableError struct {
	Cause    error
	Previous *model.Result
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s: %v", ErrDataUnavailable, e.Cause)
}

func (e *UnavailableError) Unwrap() []error {
	return []error{ErrDataUnavailable, e.Cause}
}

// Outcome is a successful comparison.
type Outcome struct {
	Result model.Result `json:"result"`
	// SavedID is the calculation record ID when the caller asked to save.
	SavedID  string   `json:"savedId,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// Options configures a Service. Zero values are usable.
type Options struct {
	Policy       eligibility.Policy
	SessionTTL   time.Duration
	HistoryLimit int
	Logger       *zap.Logger
	Metrics      *metrics.Metrics
	Now          func() time.Time
}

// Service runs comparisons against a store.
type Service struct {
	reader       store.Reader
	history      store.History
	engine       *eligibility.Engine
	tracker      *Tracker
	metrics      *metrics.Metrics
	logger       *zap.Logger
	now          func() time.Time
	historyLimit int
}

// NewService creates a comparison service reading from reader and saving to
// history.
func NewService(reader store.Reader, history store.History, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	limit := opts.HistoryLimit
	if limit <= 0 {
		limit = constants.DefaultHistoryLimit
	}
	return &Service{
		reader:       reader,
		history:      history,
		engine:       eligibility.NewEngine(opts.Policy, logger.Named("engine")),
		tracker:      NewTracker(opts.SessionTTL, now),
		metrics:      opts.Metrics,
		logger:       logger.Named("comparison"),
		now:          now,
		historyLimit: limit,
	}
}

// Compare computes the ranked offers for req on behalf of sessionID. A
// validation failure is returned as validation.Errors. When save is set the
// calculation is persisted; a failed save does not fail the comparison and is
// reported in Outcome.Warnings instead.
func (s *Service) Compare(ctx context.Context, sessionID string, req model.Request, save bool) (Outcome, error) {
	if sessionID == "" {
		sessionID = constants.AnonymousSession
	}
	mode := string(req.Mode)

	if errs := validation.ValidateRequest(req); errs != nil {
		s.metrics.ObserveComparison(mode, metrics.OutcomeInvalid)
		return Outcome{}, errs
	}

	ticket := s.tracker.Begin(sessionID)

	snap, err := s.Snapshot(ctx, req.Product)
	if err != nil {
		if !s.tracker.Latest(sessionID, ticket) {
			s.metrics.ObserveComparison(mode, metrics.OutcomeSuperseded)
			return Outcome{}, ErrSuperseded
		}
		s.metrics.ObserveComparison(mode, metrics.OutcomeUnavailable)
		s.logger.Warn("failed to fetch comparison data",
			zap.String("op", "comparison.Compare"),
			zap.String("session", sessionID),
			zap.Error(err),
		)
		return Outcome{}, &UnavailableError{Cause: err, Previous: s.tracker.Previous(sessionID)}
	}

	result := s.engine.Compute(req, snap)

	if !s.tracker.Complete(sessionID, ticket, result) {
		s.metrics.ObserveComparison(mode, metrics.OutcomeSuperseded)
		s.logger.Debug("discarding superseded comparison",
			zap.String("op", "comparison.Compare"),
			zap.String("session", sessionID),
		)
		return Outcome{}, ErrSuperseded
	}

	for _, ex := range result.Excluded {
		s.metrics.ObserveExclusion(ex.Reason)
	}
	s.metrics.ObserveComparison(mode, metrics.OutcomeOK)

	outcome := Outcome{Result: result}
	if save {
		id, err := s.save(ctx, sessionID, req, result)
		if err != nil {
			s.metrics.ObserveSaveFailure()
			s.logger.Error("failed to save calculation",
				zap.String("op", "comparison.Compare"),
				zap.String("session", sessionID),
				zap.Error(err),
			)
			outcome.Warnings = append(outcome.Warnings, "calculation was not saved: "+err.Error())
		} else {
			outcome.SavedID = id
		}
	}

	s.logger.Info("comparison completed",
		zap.String("op", "comparison.Compare"),
		zap.String("session", sessionID),
		zap.String("mode", mode),
		zap.String("product", string(req.Product)),
		zap.Int("offers", len(result.Offers)),
		zap.Int("approved", len(result.Approved())),
		zap.Int("excluded", len(result.Excluded)),
	)
	return outcome, nil
}

// Snapshot fetches banks, promotions active today and rules for product
// concurrently.
func (s *Service) Snapshot(ctx context.Context, product model.ProductType) (eligibility.Snapshot, error) {
	snap := eligibility.Snapshot{AsOf: datetime.Today(s.now())}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		banks, err := s.reader.ListBanks(gctx)
		if err != nil {
			return fmt.Errorf("list banks: %w", err)
		}
		snap.Banks = banks
		return nil
	})
	g.Go(func() error {
		promos, err := s.reader.ListActivePromotions(gctx, product, snap.AsOf)
		if err != nil {
			return fmt.Errorf("list promotions: %w", err)
		}
		snap.Promotions = promos
		return nil
	})
	g.Go(func() error {
		rules, err := s.reader.ListRules(gctx, store.RuleFilter{Product: product})
		if err != nil {
			return fmt.Errorf("list rules: %w", err)
		}
		snap.Rules = rules
		return nil
	})

	if err := g.Wait(); err != nil {
		return eligibility.Snapshot{}, err
	}
	return snap, nil
}

func (s *Service) save(ctx context.Context, sessionID string, req model.Request, result model.Result) (string, error) {
	if s.history == nil {
		return "", errors.New("no calculation history configured")
	}
	record := model.CalculationRecord{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Request:   req,
		Result:    result,
		CreatedAt: s.now().UTC(),
	}
	if err := s.history.SaveCalculation(ctx, record); err != nil {
		return "", err
	}
	return record.ID, nil
}

// History lists the session's saved calculations, newest first. A
// non-positive limit uses the configured default; limits are capped.
func (s *Service) History(ctx context.Context, sessionID string, limit int) ([]model.CalculationRecord, error) {
	if sessionID == "" {
		sessionID = constants.AnonymousSession
	}
	if limit <= 0 {
		limit = s.historyLimit
	}
	if limit > constants.MaxHistoryLimit {
		limit = constants.MaxHistoryLimit
	}
	if s.history == nil {
		return nil, nil
	}
	records, err := s.history.ListRecentCalculations(ctx, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("list calculations: %w", err)
	}
	return records, nil
}
