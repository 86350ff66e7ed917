package soak

import (
	"context"
	"sync"

	"github.com/Borislavv/shared-ref/internal/soak/api"
	"github.com/Borislavv/shared-ref/internal/soak/config"
	"github.com/Borislavv/shared-ref/internal/soak/scenario"
	"github.com/Borislavv/shared-ref/internal/soak/table"
	"github.com/Borislavv/shared-ref/pkg/gc"
	"github.com/Borislavv/shared-ref/pkg/k8s/probe/liveness"
	"github.com/Borislavv/shared-ref/pkg/rate"
	httpserver "github.com/Borislavv/shared-ref/pkg/server"
	"github.com/Borislavv/shared-ref/pkg/shutdown"
	"github.com/rs/zerolog/log"
)

// App wires the soak harness together: the shared handle table, the
// scenario workers, the rate limiter, and the diagnostic HTTP server.
type App struct {
	cfg     *config.Config
	ctx     context.Context
	cancel  context.CancelFunc
	probe   liveness.Prober
	server  *httpserver.HTTP
	limiter *rate.Limiter
	tbl     *table.Table[scenario.Payload]
	workers *sync.WaitGroup
}

func NewApp(ctx context.Context, cfg *config.Config, probe liveness.Prober) (*App, error) {
	ctx, cancel := context.WithCancel(ctx)

	s := &cfg.Soak
	limiter := rate.NewLimiter(ctx, s.Rate.Limit, s.Rate.Burst)
	tbl := table.New[scenario.Payload](s.Table.Shards, s.Table.SlotsPerShard)

	controllers := []httpserver.HttpController{
		api.NewMetricsController(),
		api.NewProbeController(probe),
		api.NewRefsController(tbl),
		api.NewOnOffController(),
	}

	server, err := httpserver.New(ctx, s.API.Name, s.API.Port, controllers)
	if err != nil {
		cancel()
		return nil, err
	}

	return &App{
		cfg:     cfg,
		ctx:     ctx,
		cancel:  cancel,
		probe:   probe,
		server:  server,
		limiter: limiter,
		tbl:     tbl,
		workers: &sync.WaitGroup{},
	}, nil
}

// Start launches the scenarios and serves the diagnostic API until the
// context is cancelled. The Gracefuller is expected to await Done().
func (a *App) Start(gs shutdown.Gracefuller) {
	defer func() {
		a.stop()
		gs.Done()
	}()

	log.Info().Msg("[app] starting soak harness")

	s := &a.cfg.Soak
	if s.ForceGC.Enabled {
		gc.Run(a.ctx, s.ForceGC.GCInterval, s.ForceGC.FreeOSMemInterval)
	}

	keys := s.Table.Shards * s.Table.SlotsPerShard
	scenario.Spawn(a.ctx, a.workers, scenario.NewCloneDrop(a.tbl, a.limiter, keys), s.Scenarios.CloneDropWorkers)
	scenario.Spawn(a.ctx, a.workers, scenario.NewUpgradeRace(a.limiter), s.Scenarios.UpgradeRaceWorkers)

	if s.Scenarios.EvictWorkers > 0 {
		evict, err := scenario.NewEvict(s.Scenarios.EvictCacheSize, a.limiter)
		if err != nil {
			log.Err(err).Msg("[app] failed to build evict scenario")
		} else {
			scenario.Spawn(a.ctx, a.workers, evict, s.Scenarios.EvictWorkers)
		}
	}

	a.probe.Watch(a) // Does not block the green-thread.

	log.Info().Msg("[app] soak harness has been started")

	a.server.ListenAndServe() // Blocks until the server is stopped.
}

// stop cancels the app context, awaits the workers, and releases every
// handle the table still owns.
func (a *App) stop() {
	log.Info().Msg("[app] stopping soak harness")

	a.cancel()
	a.limiter.Stop()
	a.workers.Wait()
	a.tbl.Close()

	log.Info().Msg("[app] soak harness has been stopped")
}

// IsAlive is called by liveness probes to check app health.
func (a *App) IsAlive(_ context.Context) bool {
	if !a.server.IsAlive() {
		log.Info().Msg("[app] http server has gone away")
		return false
	}
	return true
}
