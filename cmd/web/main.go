package main

import (
	"context"
	"database/sql"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/myrjola/wodcoach/internal/ai"
	"github.com/myrjola/wodcoach/internal/catalog"
	"github.com/myrjola/wodcoach/internal/envstruct"
	"github.com/myrjola/wodcoach/internal/errors"
	"github.com/myrjola/wodcoach/internal/flightrecorder"
	"github.com/myrjola/wodcoach/internal/logging"
	"github.com/myrjola/wodcoach/internal/metrics"
	"github.com/myrjola/wodcoach/internal/sqlite"
	"github.com/myrjola/wodcoach/internal/suggest"
	"github.com/myrjola/wodcoach/internal/webauthnhandler"
	"github.com/myrjola/wodcoach/internal/workout"
	"github.com/prometheus/client_golang/prometheus"
)

type application struct {
	logger          *slog.Logger
	webAuthnHandler *webauthnhandler.WebAuthnHandler
	sessionManager  *scs.SessionManager
	templateFS      fs.FS
	workoutService  *workout.Service
	suggester       *suggest.Suggester
	catalog         *catalog.Catalog
	metrics         *metrics.Manager
	registry        *prometheus.Registry
	flightRecorder  *flightrecorder.Recorder
	// suggestionTimeout bounds the requests that wait for the model.
	suggestionTimeout time.Duration
}

type config struct {
	// Addr is the address to listen on. It's possible to choose the address dynamically with localhost:0.
	Addr string `env:"WODCOACH_ADDR" envDefault:"localhost:8081"`
	// FQDN is the fully qualified domain name of the server used for WebAuthn Relying Party configuration.
	FQDN string `env:"WODCOACH_FQDN" envDefault:"localhost"`
	// SqliteURL is the URL to the SQLite database. You can use ":memory:" for an ethereal in-memory database.
	SqliteURL string `env:"WODCOACH_SQLITE_URL" envDefault:"./wodcoach.sqlite3"`
	// TemplatePath is the path to the directory containing the HTML templates.
	TemplatePath string `env:"WODCOACH_TEMPLATE_PATH" envDefault:""`
	// OpenAIAPIKey enables model generated workouts. Without it every model suggestion is the fallback workout.
	OpenAIAPIKey string `env:"WODCOACH_OPENAI_API_KEY" envDefault:""`
	OpenAIModel  string `env:"WODCOACH_OPENAI_MODEL" envDefault:"gpt-4o"`
	// AITimeout bounds a single model call.
	AITimeout time.Duration `env:"WODCOACH_AI_TIMEOUT" envDefault:"20s"`
	// TracesDirectory receives runtime traces of timed out requests. Empty disables the flight recorder.
	TracesDirectory string `env:"WODCOACH_TRACES_DIRECTORY" envDefault:""`
}

func run(ctx context.Context, logger *slog.Logger, lookupEnv func(string) (string, bool)) error {
	var (
		cancel context.CancelFunc
		err    error
	)

	ctx, cancel = signal.NotifyContext(ctx, os.Interrupt)
	defer cancel()

	var cfg config
	if err = envstruct.Populate(&cfg, lookupEnv); err != nil {
		return errors.Wrap(err, "populate config")
	}

	var htmlTemplatePath string
	if htmlTemplatePath, err = resolveAndVerifyTemplatePath(cfg.TemplatePath); err != nil {
		return errors.Wrap(err, "resolve template path")
	}

	db, err := sqlite.NewDatabase(ctx, cfg.SqliteURL, logger)
	if err != nil {
		return errors.Wrap(err, "open db", slog.String("url", cfg.SqliteURL))
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			logger.LogAttrs(ctx, slog.LevelError, "close db", slog.Any("error", closeErr))
		}
	}()
	logger.LogAttrs(ctx, slog.LevelInfo, "connected to db")

	exercises := catalog.Default()
	registry := metrics.NewRegistry(map[string]*sql.DB{"read_write": db.ReadWrite, "read_only": db.ReadOnly})
	m := metrics.NewManager(registry)

	var model suggest.Model
	if ai.IsPlaceholderKey(cfg.OpenAIAPIKey) {
		logger.LogAttrs(ctx, slog.LevelWarn, "no OpenAI API key configured, model suggestions use the fallback workout")
	} else {
		model = ai.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIModel, logger)
	}

	recorder, err := flightrecorder.New(logger, cfg.TracesDirectory)
	if err != nil {
		return errors.Wrap(err, "new flight recorder")
	}
	if err = recorder.Start(ctx); err != nil {
		return errors.Wrap(err, "start flight recorder")
	}
	defer recorder.Stop()

	sessionManager := initializeSessionManager(db)

	var webAuthnHandler *webauthnhandler.WebAuthnHandler
	if webAuthnHandler, err = webauthnhandler.New(cfg.Addr, cfg.FQDN, logger, sessionManager, db); err != nil {
		return errors.Wrap(err, "new webauthn handler")
	}

	app := application{
		logger:            logger,
		webAuthnHandler:   webAuthnHandler,
		sessionManager:    sessionManager,
		templateFS:        os.DirFS(htmlTemplatePath),
		workoutService:    workout.NewService(db, logger),
		suggester:         suggest.NewSuggester(exercises, model, m, logger, cfg.AITimeout, nil),
		catalog:           exercises,
		metrics:           m,
		registry:          registry,
		flightRecorder:    recorder,
		suggestionTimeout: cfg.AITimeout + suggestionSlack,
	}

	handler, err := app.routes()
	if err != nil {
		return errors.Wrap(err, "routes")
	}
	if err = app.configureAndStartServer(ctx, cfg.Addr, handler); err != nil {
		return errors.Wrap(err, "start server")
	}
	return nil
}

func initializeSessionManager(dbs *sqlite.Database) *scs.SessionManager {
	sessionManager := scs.New()
	sessionManager.Store = sqlite3store.NewWithCleanupInterval(dbs.ReadWrite, 24*time.Hour) //nolint:mnd // day
	sessionManager.Lifetime = 12 * time.Hour                                                //nolint:mnd // half a day
	sessionManager.Cookie.Persist = true
	sessionManager.Cookie.Secure = true
	sessionManager.Cookie.HttpOnly = true
	sessionManager.Cookie.SameSite = http.SameSiteStrictMode
	return sessionManager
}

func main() {
	ctx := context.Background()
	cfg := struct {
		Level string `env:"WODCOACH_LOG_LEVEL" envDefault:"debug"`
		File  string `env:"WODCOACH_LOG_FILE" envDefault:""`
	}{}
	if err := envstruct.Populate(&cfg, os.LookupEnv); err != nil {
		slog.New(slog.NewTextHandler(os.Stderr, nil)).LogAttrs(ctx, slog.LevelError, "read logging config",
			slog.Any("error", err))
		os.Exit(1)
	}
	logger, closeLog, err := logging.New(os.Stdout, logging.Options{Level: cfg.Level, File: cfg.File})
	if err != nil {
		slog.New(slog.NewTextHandler(os.Stderr, nil)).LogAttrs(ctx, slog.LevelError, "create logger",
			slog.Any("error", err))
		os.Exit(1)
	}
	if err = run(ctx, logger, os.LookupEnv); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "failure starting application", errors.SlogError(err))
		_ = closeLog()
		os.Exit(1)
	}
	_ = closeLog()
}
