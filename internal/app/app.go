package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"retitle/features/job"
	"retitle/features/stats"
	"retitle/internal/adapter/gemini"
	"retitle/internal/adapter/mailer"
	"retitle/internal/adapter/youtube"
	"retitle/internal/bus"
	"retitle/internal/config"
	"retitle/internal/middleware"
	"retitle/internal/retention"
	"retitle/internal/state"
	"retitle/internal/worker"
)

type App struct {
	Handler http.Handler
	Bus     bus.Bus
	Jobs    *job.StoreRepo
	Janitor *retention.Janitor

	cfg       *config.Config
	scheduler *retention.Scheduler
	closers   []func() error
}

// Option overrides a collaborator New would otherwise build from config.
type Option func(*options)

type options struct {
	store     state.Store
	bus       bus.Bus
	searcher  worker.ChannelSearcher
	lister    worker.VideoLister
	generator worker.TitleGenerator
	sender    mailer.Sender
	now       func() time.Time
}

func WithStore(s state.Store) Option { return func(o *options) { o.store = s } }

func WithBus(b bus.Bus) Option { return func(o *options) { o.bus = b } }

// WithYouTube replaces both channel search and video listing.
func WithYouTube(s worker.ChannelSearcher, l worker.VideoLister) Option {
	return func(o *options) {
		o.searcher = s
		o.lister = l
	}
}

func WithGenerator(g worker.TitleGenerator) Option { return func(o *options) { o.generator = g } }

func WithSender(s mailer.Sender) Option { return func(o *options) { o.sender = s } }

func WithClock(now func() time.Time) Option { return func(o *options) { o.now = now } }

// New wires the pipeline. A stage whose credentials are missing is still
// registered; it fails every job that reaches it.
func New(ctx context.Context, cfg *config.Config, deps *Dependencies, opts ...Option) (*App, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if deps == nil {
		deps = &Dependencies{}
	}

	a := &App{cfg: cfg}

	// State
	store := o.store
	if store == nil {
		store = newStore(cfg, deps)
	}
	a.Jobs = job.NewStoreRepo(store)

	// Bus
	b := o.bus
	if b == nil {
		b = newBus(cfg, deps)
	}
	a.Bus = b

	// Collaborators
	ytErr := cfg.YouTubeCredentials()
	if ytErr == nil && (o.searcher == nil || o.lister == nil) {
		client, err := youtube.NewClient(ctx, cfg.YouTubeAPIKey, cfg.YouTubeRPS)
		if err != nil {
			return nil, err
		}
		if o.searcher == nil {
			o.searcher = client
		}
		if o.lister == nil {
			o.lister = client
		}
	}
	if o.searcher != nil && o.lister != nil {
		ytErr = nil
	}

	genErr := cfg.GeminiCredentials()
	if genErr == nil && o.generator == nil {
		g, err := gemini.NewGenerator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiTemperature)
		if err != nil {
			return nil, err
		}
		o.generator = g
		a.closers = append(a.closers, g.Close)
	}
	if o.generator != nil {
		genErr = nil
	}

	var mailErr error
	if o.sender == nil {
		o.sender, mailErr = mailer.New(cfg)
	}

	for stage, err := range map[string]error{"youtube": ytErr, "gemini": genErr, "mail": mailErr} {
		if err != nil {
			slog.WarnContext(ctx, "collaborator not configured, dependent stages will fail jobs", "collaborator", stage, "error", err)
		}
	}

	// Stages
	stageDeps := worker.Deps{Jobs: a.Jobs, Bus: b, Timeout: cfg.CollaboratorTimeout(), Now: o.now}
	pipeline := &worker.Pipeline{
		Resolver:  worker.NewResolver(stageDeps, o.searcher, ytErr),
		Fetcher:   worker.NewFetcher(stageDeps, o.lister, cfg.VideoPageSize, ytErr),
		Generator: worker.NewGenerator(stageDeps, o.generator, genErr),
		Deliverer: worker.NewDeliverer(stageDeps, o.sender, mailErr),
		Notifier:  worker.NewNotifier(o.sender, b, cfg.CollaboratorTimeout(), mailErr),
	}
	if err := pipeline.Register(b); err != nil {
		return nil, fmt.Errorf("register stages: %w", err)
	}

	// Janitor
	a.Janitor = retention.NewJanitor(a.Jobs, b, cfg.RetentionDays, o.now)
	if cfg.EnableJanitor {
		s, err := retention.NewScheduler(cfg.JanitorSchedule, a.Janitor)
		if err != nil {
			return nil, err
		}
		a.scheduler = s
	}

	// Routes
	jobHandler := job.NewHandler(job.NewService(a.Jobs, b))
	statsHandler := stats.NewHandler(a.Jobs)

	mux := http.NewServeMux()
	mux.Handle("POST /submit", middleware.CorrelationID(http.HandlerFunc(jobHandler.Submit)))
	mux.Handle("GET /stats", middleware.CorrelationID(http.HandlerFunc(statsHandler.GetStats)))
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	a.Handler = mux

	return a, nil
}

func newStore(cfg *config.Config, deps *Dependencies) state.Store {
	switch {
	case deps.DB != nil:
		return state.NewPostgresStore(deps.DB)
	case deps.Redis != nil:
		return state.NewRedisStore(deps.Redis)
	default:
		if cfg.StateBackend != config.StateBackendMemory {
			slog.Warn("no state connection available, using in-memory store", "backend", cfg.StateBackend)
		}
		return state.NewMemoryStore()
	}
}

func newBus(cfg *config.Config, deps *Dependencies) bus.Bus {
	if deps.NSQProducer == nil {
		return bus.NewLocalBus()
	}
	return bus.NewNSQBus(deps.NSQProducer, bus.NSQConfig{
		Lookupd:       splitList(cfg.NSQLookupd),
		NSQDAddr:      cfg.NSQDHost,
		ChannelPrefix: cfg.NSQChannelPrefix,
		Concurrency:   cfg.NSQConcurrency,
	})
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Run starts the bus, the janitor and the HTTP server, and blocks until ctx
// is cancelled or one of them fails.
func (a *App) Run(ctx context.Context) error {
	if err := a.Bus.Start(ctx); err != nil {
		return fmt.Errorf("start bus: %w", err)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.ServerPort),
		Handler:           a.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	if a.scheduler != nil {
		g.Go(func() error { return a.scheduler.Run(gctx) })
	}

	g.Go(func() error {
		slog.Info("server starting", "port", a.cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown failed", "error", err)
		}
		return a.Bus.Close()
	})

	err := g.Wait()
	a.close()
	return err
}

func (a *App) close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			slog.Warn("failed to close collaborator", "error", err)
		}
	}
}
