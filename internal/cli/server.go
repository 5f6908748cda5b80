package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"classroom-quiz-service/internal/app"
	"classroom-quiz-service/internal/config"
	"classroom-quiz-service/internal/domain"
	"classroom-quiz-service/internal/infra/events"
	"classroom-quiz-service/internal/infra/memory"
	"classroom-quiz-service/internal/infra/postgres"
	infraredis "classroom-quiz-service/internal/infra/redis"
	"classroom-quiz-service/internal/logging"
	transport "classroom-quiz-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

type storage struct {
	quizzes     app.QuizRepository
	submissions app.SubmissionRepository
	classes     app.ClassDirectory
	close       func()
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := logging.New(os.Stdout, cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	store, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.close()

	inbox := memory.NewInbox()
	notifier, stopEvents, err := openNotifier(ctx, cfg, inbox, logger)
	if err != nil {
		return err
	}
	defer stopEvents()

	opts := []app.Option{
		app.WithLogger(logger),
		app.WithNotifier(notifier),
		app.WithDurationEnforcement(cfg.Quiz.EnforceDuration),
	}
	quizService := app.NewQuizService(store.quizzes, store.classes, opts...)
	submissionService := app.NewSubmissionService(store.quizzes, store.submissions, store.classes, opts...)

	if logging.ParseLevel(cfg.Log.Level) > slog.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := transport.NewRouter(transport.RouterConfig{
		Quizzes:        quizService,
		Submissions:    submissionService,
		Feed:           inbox,
		Logger:         logger,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info("starting quiz service", "port", finalPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info("shutting down server")
	case <-ctx.Done():
		logger.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// openStorage picks Postgres for durable records when configured, Redis for
// submissions and the quiz cache when configured, and memory otherwise.
func openStorage(ctx context.Context, cfg config.Config, logger *slog.Logger) (storage, error) {
	var closers []func()
	store := storage{close: func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}}

	var quizzes app.QuizRepository
	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, logger); err != nil {
			return storage{}, err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return storage{}, fmt.Errorf("connect postgres: %w", err)
		}
		closers = append(closers, pool.Close)

		directory := postgres.NewClassDirectory(pool)
		for _, class := range cfg.Classes {
			if err := directory.Upsert(ctx, class.Domain()); err != nil {
				store.close()
				return storage{}, fmt.Errorf("seed class %s: %w", class.ID, err)
			}
		}
		quizzes = postgres.NewQuizStore(pool)
		store.submissions = postgres.NewSubmissionStore(pool)
		store.classes = directory
		logger.Info("using postgres storage", "classes_seeded", len(cfg.Classes))
	} else {
		seed := make([]domain.Class, 0, len(cfg.Classes))
		for _, class := range cfg.Classes {
			seed = append(seed, class.Domain())
		}
		quizzes = memory.NewQuizStore()
		store.classes = memory.NewClassDirectory(seed...)
	}

	cacheTTL := config.TTLDuration(cfg.Quiz.CacheTTL, 10*time.Minute)
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			store.close()
			return storage{}, fmt.Errorf("connect redis: %w", err)
		}
		closers = append(closers, func() { _ = client.Close() })
		store.quizzes = infraredis.NewQuizCache(client, quizzes, cacheTTL)
		if store.submissions == nil {
			store.submissions = infraredis.NewSubmissionStore(client)
		}
		logger.Info("using redis", "addr", cfg.Redis.Addr)
	} else {
		store.quizzes = memory.NewQuizCache(quizzes, cacheTTL)
	}
	if store.submissions == nil {
		store.submissions = memory.NewSubmissionStore()
	}
	return store, nil
}

// openNotifier routes notifications through watermill when events are
// enabled. The in-process inbox always ends up with a copy so websocket
// clients see them.
func openNotifier(ctx context.Context, cfg config.Config, inbox *memory.Inbox, logger *slog.Logger) (app.Notifier, func(), error) {
	if !cfg.Events.Enabled {
		return inbox, func() {}, nil
	}

	if strings.EqualFold(cfg.Events.Publisher, "kafka") {
		pub, err := events.NewKafkaPublisher(cfg.Events.KafkaBrokers, logger)
		if err != nil {
			return nil, nil, err
		}
		publisher := events.NewPublisher(pub, cfg.Events.Topic, logger)
		logger.Info("publishing notifications to kafka", "brokers", cfg.Events.KafkaBrokers)
		return teeNotifier{publisher, inbox}, func() { _ = publisher.Close() }, nil
	}

	pubsub := events.NewGoChannel(logger)
	relay := events.NewRelay(pubsub, cfg.Events.Topic, inbox, logger)
	relayCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := relay.Run(relayCtx); err != nil {
			logger.Error("notification relay stopped", "error", err)
		}
	}()
	publisher := events.NewPublisher(pubsub, cfg.Events.Topic, logger)
	stop := func() {
		cancel()
		<-done
		_ = publisher.Close()
	}
	return publisher, stop, nil
}

// teeNotifier hands each notification to every notifier.
type teeNotifier []app.Notifier

func (t teeNotifier) Notify(ctx context.Context, n domain.Notification) error {
	var errs []error
	for _, notifier := range t {
		if err := notifier.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
