package classifier

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/cleared-dev/ledgerflow/internal/model"
	"github.com/cleared-dev/ledgerflow/internal/vocab"
)

// ErrUnavailable is returned by an External that cannot serve requests
// (not configured, no model trained, provider down).
var ErrUnavailable = errors.New("external classifier unavailable")

// ExternalRequest is what an external categorizer sees.
type ExternalRequest struct {
	CompanyID   string
	Description string
	Amount      decimal.Decimal
	Date        time.Time
	Direction   model.Direction
	Categories  []string // allowed category names for Direction
}

// ExternalResult is a provider's answer. Confidence is 0-100.
type ExternalResult struct {
	Category           string
	Confidence         int
	CounterpartyName   string
	IsRecurring        bool
	SuggestedFrequency model.Frequency
	Reasoning          string
	Flags              []string
}

// External is a pluggable categorizer, typically network-backed.
type External interface {
	Name() string
	Classify(ctx context.Context, req ExternalRequest) (ExternalResult, error)
}

// Unavailable is the External used when none is configured.
type Unavailable struct{}

func (Unavailable) Name() string { return "unavailable" }

func (Unavailable) Classify(context.Context, ExternalRequest) (ExternalResult, error) {
	return ExternalResult{}, ErrUnavailable
}

// ExternalOptions bound the external call.
type ExternalOptions struct {
	Timeout       time.Duration
	MaxConfidence int
	MinConfidence int
	RatePerSecond float64 // <= 0 disables throttling
	Burst         int
}

// ExternalStrategy wraps an External with a timeout, a rate limit and a
// confidence cap. Every failure is a miss.
type ExternalStrategy struct {
	ext     External
	opts    ExternalOptions
	limiter *rate.Limiter
	vocab   *vocab.Vocabulary
	log     zerolog.Logger
}

// NewExternalStrategy creates the cascade step for ext.
func NewExternalStrategy(ext External, opts ExternalOptions, v *vocab.Vocabulary, log zerolog.Logger) *ExternalStrategy {
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.MaxConfidence <= 0 || opts.MaxConfidence > 85 {
		opts.MaxConfidence = 85
	}
	if opts.MinConfidence <= 0 {
		opts.MinConfidence = 50
	}
	limit := rate.Inf
	if opts.RatePerSecond > 0 {
		limit = rate.Limit(opts.RatePerSecond)
	}
	burst := max(opts.Burst, 1)
	return &ExternalStrategy{
		ext:     ext,
		opts:    opts,
		limiter: rate.NewLimiter(limit, burst),
		vocab:   v,
		log:     log.With().Str("strategy", "external").Str("provider", ext.Name()).Logger(),
	}
}

func (s *ExternalStrategy) Name() string { return "external" }

func (s *ExternalStrategy) Attempt(ctx context.Context, a *Attempt) (*model.ClassificationResult, bool) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	if err := s.limiter.Wait(ctx); err != nil {
		s.log.Info().Str("input", a.Hash()).Err(err).Msg("rate limited")
		a.Notef("external: rate limited")
		return nil, false
	}

	var categories []string
	for _, c := range s.vocab.Categories {
		if c.Direction == a.Direction {
			categories = append(categories, c.Name)
		}
	}
	categories = append(categories, s.vocab.DefaultCategory(a.Direction))

	out, err := s.ext.Classify(ctx, ExternalRequest{
		CompanyID:   a.CompanyID,
		Description: a.Description,
		Amount:      a.Amount,
		Date:        a.Date,
		Direction:   a.Direction,
		Categories:  categories,
	})
	switch {
	case errors.Is(err, ErrUnavailable):
		s.log.Debug().Str("input", a.Hash()).Msg("unavailable")
		a.Notef("external: %s unavailable", s.ext.Name())
		return nil, false
	case err != nil:
		s.log.Warn().Str("input", a.Hash()).Err(err).Msg("failed")
		a.Notef("external: %s failed", s.ext.Name())
		return nil, false
	case out.Category == "":
		s.log.Warn().Str("input", a.Hash()).Msg("malformed response: empty category")
		a.Notef("external: %s returned no category", s.ext.Name())
		return nil, false
	case out.Confidence < s.opts.MinConfidence:
		s.log.Info().Str("input", a.Hash()).Int("confidence", out.Confidence).Str("category", out.Category).Msg("low confidence")
		a.Notef("external: %s suggested %s at %d, below %d", s.ext.Name(), out.Category, out.Confidence, s.opts.MinConfidence)
		return nil, false
	}

	res := &model.ClassificationResult{
		Type:             a.plainType(),
		Category:         out.Category,
		Confidence:       min(out.Confidence, s.opts.MaxConfidence),
		CounterpartyName: out.CounterpartyName,
	}
	if out.IsRecurring {
		res.ExpenseType = model.ExpenseRecurring
		res.Frequency = out.SuggestedFrequency
	}
	for _, f := range out.Flags {
		if f == "ambiguous" {
			res.NeedsReview = true
		}
	}
	if out.Reasoning != "" {
		a.Notef("external: %s: %s", s.ext.Name(), out.Reasoning)
	} else {
		a.Notef("external: %s suggested %s", s.ext.Name(), out.Category)
	}
	return res, true
}
