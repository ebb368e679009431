package commands

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/ledgerflow/internal/accounts"
	"github.com/cleared-dev/ledgerflow/internal/auditlog"
	"github.com/cleared-dev/ledgerflow/internal/classifier"
	"github.com/cleared-dev/ledgerflow/internal/config"
	"github.com/cleared-dev/ledgerflow/internal/ledger"
	"github.com/cleared-dev/ledgerflow/internal/logger"
	"github.com/cleared-dev/ledgerflow/internal/pipeline"
	"github.com/cleared-dev/ledgerflow/internal/reconcile"
	"github.com/cleared-dev/ledgerflow/internal/store"
)

// runtime holds the services for one command invocation against a project.
type runtime struct {
	root       string
	cfg        *config.Config
	log        zerolog.Logger
	store      *store.Store
	chart      *accounts.Service
	classifier *classifier.Classifier
	poster     *ledger.Poster
	policy     *ledger.Policy
	pipeline   *pipeline.Pipeline
	cache      *classifier.Cache
	audit      *auditlog.Buffer
	dryRun     bool
}

// openRuntime loads the project config and wires every service the
// commands use. The caller must close the runtime.
func openRuntime(ctx context.Context, g *globalFlags, dryRun bool) (*runtime, error) {
	root, err := filepath.Abs(g.repo)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	cfg, err := config.Load(filepath.Join(root, config.FileName))
	if err != nil {
		return nil, err
	}
	if err := config.LoadEnv(root, cfg); err != nil {
		return nil, err
	}

	level := cfg.Log.Level
	if g.logLevel != "" {
		level = g.logLevel
	}
	log := logger.New(level).With().Str("company", cfg.Business.CompanyID).Logger()

	chart, err := accounts.Load(root)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(cfg.DatabasePath(root), log)
	if err != nil {
		return nil, err
	}
	if _, err := st.SeedAccounts(ctx, cfg.Business.CompanyID, chart.All()); err != nil {
		st.Close()
		return nil, fmt.Errorf("seeding accounts: %w", err)
	}

	v := cfg.Vocab()
	rt := &runtime{
		root:   root,
		cfg:    cfg,
		log:    log,
		store:  st,
		chart:  chart,
		audit:  &auditlog.Buffer{},
		dryRun: dryRun,
	}

	external := rt.external(ctx)
	learner, _ := external.(pipeline.Learner)
	ext := classifier.NewExternalStrategy(external, classifier.ExternalOptions{
		Timeout:       cfg.ExternalTimeout(),
		MaxConfidence: cfg.Classifier.External.MaxConfidence,
		MinConfidence: cfg.Classifier.External.MinConfidence,
		RatePerSecond: cfg.Classifier.External.RatePerSecond,
		Burst:         cfg.Classifier.External.Burst,
	}, v, log)
	opts := classifier.Options{
		AmountDateWindowDays: cfg.Classifier.AmountDateWindowDays,
		HistoryLookbackDays:  cfg.Classifier.HistoryLookbackDays,
	}
	rt.cache = classifier.NewCache(cfg.CacheTTL(), nil)
	rt.classifier = classifier.New(st, v, classifier.DefaultStrategies(v, opts, ext), rt.cache, log)

	rt.poster = ledger.NewPoster(st, ledger.Settings{Scale: cfg.Ledger.Scale, Tolerance: cfg.Tolerance()}, log)
	rt.policy = ledger.NewPolicy(v, taxRegime(cfg), ledger.ControlAccounts{
		Bank:       cfg.Ledger.BankAccount,
		Receivable: cfg.Ledger.ReceivableAccount,
		Payable:    cfg.Ledger.PayableAccount,
	})
	if missing := chart.Missing(rt.policy.AccountCodes()...); len(missing) > 0 {
		log.Warn().Strs("accounts", missing).Msg("posting policy references accounts missing from the chart")
	}

	rt.pipeline = pipeline.New(pipeline.Deps{
		Store:      st,
		Classifier: rt.classifier,
		Matcher:    reconcile.NewMatcher(v, matchRules(cfg.Matching), log),
		Poster:     rt.poster,
		Policy:     rt.policy,
		Audit:      rt.audit,
		Learner:    learner,
	}, pipeline.Settings{
		AutoPost:     cfg.Thresholds.AutoPost,
		AutoMatch:    cfg.Thresholds.AutoMatch,
		LookbackDays: cfg.Matching.LookbackDays,
		DryRun:       dryRun,
	}, log)

	return rt, nil
}

// companyID is the company every command acts on.
func (rt *runtime) companyID() string {
	return rt.cfg.Business.CompanyID
}

// close flushes the decision log and releases the store.
func (rt *runtime) close() error {
	rt.log.Debug().Int("cached_classifications", rt.cache.Len()).Msg("closing project")
	var flushErr error
	if rt.cfg.Log.DecisionLog && !rt.dryRun {
		flushErr = rt.audit.Flush(rt.root)
	}
	if err := rt.store.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	return flushErr
}

// external picks the configured external classifier. A provider that
// cannot start degrades to Unavailable so the cascade still completes.
func (rt *runtime) external(ctx context.Context) classifier.External {
	ec := rt.cfg.Classifier.External
	switch ec.Provider {
	case "gemini":
		g, err := classifier.NewGemini(ctx, ec.APIKey, ec.Model)
		if err != nil {
			rt.log.Warn().Err(err).Msg("gemini classifier disabled")
			return classifier.Unavailable{}
		}
		return g
	case "bayesian":
		return classifier.NewBayesian(rt.store, time.Duration(rt.cfg.Classifier.HistoryLookbackDays)*24*time.Hour)
	}
	return classifier.Unavailable{}
}

func taxRegime(cfg *config.Config) ledger.TaxRegime {
	if cfg.Tax.Regime != "gst" {
		return ledger.NoTax{}
	}
	rates := make(map[string]decimal.Decimal, len(cfg.Tax.GST.Rates))
	for category, rate := range cfg.Tax.GST.Rates {
		rates[category] = config.Decimal(rate)
	}
	return ledger.GST{
		DefaultRate:   config.Decimal(cfg.Tax.GST.DefaultRate),
		Rates:         rates,
		InputAccount:  cfg.Tax.GST.InputAccount,
		OutputAccount: cfg.Tax.GST.OutputAccount,
		Scale:         cfg.Ledger.Scale,
	}
}

// matchRules converts the whole-percent config tolerances into matcher rules.
func matchRules(m config.MatchingConfig) reconcile.Rules {
	return reconcile.Rules{
		ExactAmount:     config.Decimal(m.ExactAmount),
		ExactDays:       m.ExactDays,
		ExactSimilarity: m.ExactSimilarity,
		FuzzyPct:        fraction(m.FuzzyPercent),
		FuzzyDays:       m.FuzzyDays,
		FuzzySimilarity: m.FuzzySimilarity,
		PatternPct:      fraction(m.PatternPercent),
		PatternDays:     m.PatternDays,
		SplitPct:        fraction(m.SplitPercent),
		SplitDays:       m.SplitDays,
	}
}

func fraction(percent float64) decimal.Decimal {
	return decimal.NewFromFloat(percent).Div(decimal.NewFromInt(100))
}
