package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bobmcallan/niftyscope/internal/cache"
	"github.com/bobmcallan/niftyscope/internal/client"
	"github.com/bobmcallan/niftyscope/internal/common"
	"github.com/bobmcallan/niftyscope/internal/config"
	"github.com/bobmcallan/niftyscope/internal/detail"
	"github.com/bobmcallan/niftyscope/internal/events"
	"github.com/bobmcallan/niftyscope/internal/handlers"
	"github.com/bobmcallan/niftyscope/internal/interfaces"
	"github.com/bobmcallan/niftyscope/internal/mcp"
	"github.com/bobmcallan/niftyscope/internal/scheduler"
	"github.com/bobmcallan/niftyscope/internal/search"
	"github.com/bobmcallan/niftyscope/internal/storage"
	"github.com/bobmcallan/niftyscope/internal/summary"
	"github.com/bobmcallan/niftyscope/internal/watchlist"
)

// App holds all application components and dependencies.
type App struct {
	Config *config.Config
	Logger *common.Logger

	Storage   interfaces.StorageManager
	Cache     *cache.ResponseCache
	Market    *client.MarketClient
	Watchlist *watchlist.Store
	Summary   *summary.Model
	Search    *search.Helper
	Detail    *detail.Model
	Publisher *events.Publisher
	Scheduler *scheduler.Scheduler

	// HTTP handlers
	PageHandler         *handlers.PageHandler
	HealthHandler       *handlers.HealthHandler
	VersionHandler      *handlers.VersionHandler
	ServerHealthHandler *handlers.ServerHealthHandler
	DashboardHandler    *handlers.DashboardHandler
	StockPageHandler    *handlers.StockPageHandler
	WatchlistHandler    *handlers.WatchlistHandler
	SummaryHandler      *handlers.SummaryHandler
	SearchHandler       *handlers.SearchHandler
	StockAPIHandler     *handlers.StockAPIHandler
	MCPHandler          *mcp.Handler

	unsubscribe []func()
}

// New initializes the application with all dependencies.
func New(cfg *config.Config, logger *common.Logger) (*App, error) {
	storageMgr, err := storage.NewStorageManager(logger, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	a, err := NewWithStorage(cfg, logger, storageMgr)
	if err != nil {
		storageMgr.Close()
		return nil, err
	}
	return a, nil
}

// NewWithStorage initializes the application on an already opened storage manager.
// The returned App owns storageMgr and closes it in Close. On error storageMgr
// is left open for the caller.
func NewWithStorage(cfg *config.Config, logger *common.Logger, storageMgr interfaces.StorageManager) (*App, error) {
	a := &App{
		Config:  cfg,
		Logger:  logger,
		Storage: storageMgr,
	}

	env := strings.ToLower(strings.TrimSpace(cfg.Environment))
	if cfg.IsDevMode() {
		logger.Warn().Msg("RUNNING IN DEV MODE: templates reload per request and static files are not cached")
	} else if env != "prod" && env != "" {
		logger.Warn().
			Str("environment", cfg.Environment).
			Msg("unrecognized environment value, defaulting to prod behavior")
	}

	a.initComponents()

	if err := a.initScheduler(); err != nil {
		a.stop()
		return nil, err
	}

	a.initHandlers()

	logger.Info().
		Str("storage", storageMgr.Backend()).
		Int("watchlist", len(a.Watchlist.Symbols())).
		Bool("kafka", a.Publisher != nil).
		Bool("mcp", a.MCPHandler != nil).
		Msg("application initialization complete")

	return a, nil
}

// initComponents builds the market client and state containers and wires the
// watchlist listeners.
func (a *App) initComponents() {
	cfg := a.Config

	a.Cache = cache.New(cfg.Cache.TTL.Duration, cfg.Cache.MaxEntries)
	a.Market = client.NewMarketClient(cfg.API.URL, cfg.API.Timeout.Duration, a.Cache, a.Logger)

	a.Watchlist = watchlist.NewStore(a.Storage.KeyValueStorage(), cfg.Watchlist.Defaults, a.Logger)
	a.Watchlist.Load(context.Background())

	a.Summary = summary.NewModel(a.Market, a.Watchlist, a.Logger)
	a.Search = search.NewHelper(a.Market, a.Watchlist, search.Options{
		MinLength: cfg.Search.MinLength,
		Debounce:  cfg.Search.Debounce.Duration,
	}, a.Logger)
	a.Detail = detail.NewModel(a.Market, a.Logger)

	a.unsubscribe = append(a.unsubscribe,
		a.Watchlist.Subscribe(a.Summary.OnWatchlistChange),
		a.Watchlist.Subscribe(a.forgetRemoved),
	)

	if cfg.Events.Kafka.Enabled {
		a.Publisher = events.NewPublisher(cfg.Events.Kafka, a.Logger)
		a.unsubscribe = append(a.unsubscribe, a.Watchlist.Subscribe(a.Publisher.OnWatchlistChange))
		a.Logger.Info().
			Strs("brokers", cfg.Events.Kafka.Brokers).
			Str("topic", cfg.Events.Kafka.Topic).
			Msg("Watchlist events publishing to kafka")
	}
}

// forgetRemoved drops cached details of a symbol leaving the watchlist.
func (a *App) forgetRemoved(_ context.Context, change watchlist.Change) {
	if change.Kind == watchlist.Removed {
		a.Market.Forget(change.Symbol)
	}
}

func (a *App) initScheduler() error {
	sched, err := scheduler.New(a.Config.Summary.RefreshSchedule, a.Config.Summary.Timezone, a.Summary, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize refresh scheduler: %w", err)
	}
	if sched == nil {
		return nil
	}
	a.Scheduler = sched
	a.Scheduler.Start()
	return nil
}

// initHandlers initializes all HTTP handlers.
func (a *App) initHandlers() {
	cfg := a.Config
	devMode := cfg.IsDevMode()
	columns := cfg.Dashboard.Columns

	a.PageHandler = handlers.NewPageHandler(a.Logger, devMode)
	a.HealthHandler = handlers.NewHealthHandler(a.Logger)
	a.VersionHandler = handlers.NewVersionHandler(a.Logger)
	a.ServerHealthHandler = handlers.NewServerHealthHandler(a.Logger, a.Market)

	a.DashboardHandler = handlers.NewDashboardHandler(a.Logger, devMode, a.Summary, columns, cfg.Search.MinLength)
	a.StockPageHandler = handlers.NewStockPageHandler(a.Logger, devMode, a.Detail)

	a.WatchlistHandler = handlers.NewWatchlistHandler(a.Logger, a.Watchlist)
	a.SummaryHandler = handlers.NewSummaryHandler(a.Logger, a.Summary, columns)
	a.SearchHandler = handlers.NewSearchHandler(a.Logger, a.Search)
	a.StockAPIHandler = handlers.NewStockAPIHandler(a.Logger, a.Detail)

	if cfg.MCP.Enabled {
		a.MCPHandler = mcp.NewHandler(mcp.Deps{
			Watchlist: a.Watchlist,
			Summary:   a.Summary,
			Market:    a.Market,

			SearchMinLength: cfg.Search.MinLength,
		}, a.Logger)
	}

	a.Logger.Debug().Msg("HTTP handlers initialized")
}

// Close stops background work and closes all application resources.
func (a *App) Close() error {
	errs := []error{a.stop()}
	if a.Storage != nil {
		if err := a.Storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close storage: %w", err))
		}
	}
	return errors.Join(errs...)
}

// stop detaches listeners, stops the scheduler and closes the publisher.
func (a *App) stop() error {
	for _, unsubscribe := range a.unsubscribe {
		unsubscribe()
	}
	a.unsubscribe = nil

	if a.Scheduler != nil {
		a.Scheduler.Stop()
		a.Scheduler = nil
	}

	if a.Publisher != nil {
		err := a.Publisher.Close()
		a.Publisher = nil
		if err != nil {
			return fmt.Errorf("failed to close event publisher: %w", err)
		}
	}
	return nil
}
