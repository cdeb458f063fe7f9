package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/leadflow/internal/analytics"
	"github.com/leadflow/internal/api"
	"github.com/leadflow/internal/catalog"
	"github.com/leadflow/internal/config"
	"github.com/leadflow/internal/database"
	"github.com/leadflow/internal/escalate"
	"github.com/leadflow/internal/flow"
	"github.com/leadflow/internal/geo"
	"github.com/leadflow/internal/intent"
	"github.com/leadflow/internal/jobqueue"
	"github.com/leadflow/internal/metrics"
	"github.com/leadflow/internal/notify"
	"github.com/leadflow/internal/pipeline"
	"github.com/leadflow/internal/score"
	"github.com/leadflow/internal/session"
)

// ServeCommand returns the CLI command for starting the chat backend
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the LeadFlow chat backend",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port for the API server (overrides config)",
			},
		},
		Action: runServe,
	}
}

func runServe(c *cli.Context) error {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.IsSet("port") {
		cfg.Server.Port = c.Int("port")
	}

	if level, err := zerolog.ParseLevel(cfg.Log.Level); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	ctx := context.Background()

	pool, err := database.Connect(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer pool.Close()
	if err := database.Migrate(ctx, pool); err != nil {
		return err
	}

	var store session.Store
	var memStore *session.MemoryStore
	var redisStore *session.RedisStore
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		bo := backoff.NewExponentialBackOff()
		bo.MaxElapsedTime = 30 * time.Second
		ping := func() error { return rdb.Ping(ctx).Err() }
		if err := backoff.Retry(ping, backoff.WithContext(bo, ctx)); err != nil {
			return fmt.Errorf("failed to ping redis: %w", err)
		}
		redisStore = session.NewRedisStore(rdb, cfg.SessionTTL())
		store = redisStore
		log.Info().Str("addr", cfg.Redis.Addr).Msg("using redis session store")
	} else {
		memStore = session.NewMemoryStore(cfg.SessionTTL())
		store = memStore
		log.Info().Msg("using in-memory session store")
	}

	channels := make(map[escalate.Team]string, len(cfg.Notify.Channels))
	for team, url := range cfg.Notify.Channels {
		channels[escalate.Team(team)] = url
	}
	sla := make(map[score.Priority]time.Duration, len(cfg.Notify.SLAHours))
	for tier, hours := range cfg.Notify.SLAHours {
		sla[score.Priority(tier)] = time.Duration(hours * float64(time.Hour))
	}
	if len(sla) == 0 {
		sla = nil
	}

	dispatcher := notify.NewDispatcher(channels, sla,
		notify.NewWebhookTransport(10*time.Second),
		notify.NewPostgresRecordStore(pool),
		notify.NopScheduler{})

	queue, err := jobqueue.NewJobQueue(pool, dispatcher, jobqueue.DefaultQueueConfig())
	if err != nil {
		return err
	}
	dispatcher.WithScheduler(queue)
	if err := queue.Start(ctx); err != nil {
		return fmt.Errorf("failed to start job queue: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := queue.Stop(stopCtx); err != nil {
			log.Warn().Err(err).Msg("job queue did not stop cleanly")
		}
	}()

	recorder := analytics.NewRecorder().WithSink(analytics.NewPostgresSink(pool))

	var experiments *analytics.Engine
	var optimizer *analytics.Optimizer
	if cfg.Experiments.Enabled {
		experiments = analytics.NewEngine()
		experiments.Register(analytics.Experiment{
			TestID:               pipeline.GreetingExperiment,
			Variants:             []analytics.VariantStats{{ID: "formal"}, {ID: "friendly"}},
			MinSample:            cfg.Experiments.MinSample,
			MinDuration:          time.Duration(cfg.Experiments.MinDurationDays) * 24 * time.Hour,
			ImprovementThreshold: cfg.Experiments.ImprovementThreshold,
		})
		optimizer = analytics.NewOptimizer(experiments,
			time.Duration(cfg.Experiments.EvalIntervalMinutes)*time.Minute)
		optimizer.Start()
		defer optimizer.Stop()
	}

	p := pipeline.New(pipeline.Deps{
		Store:       store,
		Classifier:  geo.NewClassifier(geo.DefaultZones()),
		Recognizer:  intent.NewRecognizer(intent.DefaultCategories()),
		Machine:     flow.NewMachine(flow.DefaultSteps(catalog.Default().Names())),
		Scorer:      score.NewScorer(),
		Evaluator:   escalate.NewEvaluator(),
		Dispatcher:  dispatcher,
		Recorder:    recorder,
		Experiments: experiments,
		Metrics:     metrics.New(),
	})
	defer p.Wait()

	var sweepTarget session.Sweepable
	if redisStore != nil {
		redisStore.OnExpire(p.CloseExpired)
		sweepTarget = redisStore
	}
	if memStore != nil {
		memStore.OnExpire(p.CloseExpired)
		sweepTarget = memStore
	}
	sweeper := session.NewSweeper(sweepTarget, cfg.SessionTTL()/2)
	sweeper.Start()
	defer sweeper.Stop()

	log.Info().Int("port", cfg.Server.Port).Msg("starting LeadFlow API server")
	server := api.NewServer(cfg.Server.Host, cfg.Server.Port, p, dispatcher, recorder, experiments)
	return server.Start(ctx)
}
