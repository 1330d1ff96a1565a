// Command server runs the Finance Insights web frontend. It renders the
// dashboard, preference editor, customizer and studio pages and proxies all
// data operations to the backend API.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"

	"finsight/internal/backend"
	"finsight/internal/config"
	"finsight/internal/handlers/customizer"
	"finsight/internal/handlers/dashboard"
	"finsight/internal/handlers/preferences"
	"finsight/internal/handlers/studio"
	httputil "finsight/internal/http"
	"finsight/internal/logging"
	"finsight/internal/services/prefcache"
	"finsight/internal/services/prefsource"
	"finsight/internal/services/storage"
	"finsight/internal/services/viewseq"
	"finsight/internal/templates"
	"finsight/internal/version"
)

// Deps holds the shared dependencies wired into every handler package.
type Deps struct {
	Config   *config.Config
	Client   *backend.Client
	Storage  *storage.Storage
	Loader   *prefsource.Loader
	Prefs    *prefcache.Store
	Renderer *templates.Renderer
	Tracker  *viewseq.Tracker
	Logger   zerolog.Logger
}

func main() {
	showVersion := flag.Bool("version", false, "print version information and exit")
	encrypt := flag.Bool("encrypt", false, "enable settings encryption and exit")
	decrypt := flag.Bool("decrypt", false, "disable settings encryption and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Get().String())
		return
	}

	cfg := config.Load()
	logger := logging.New(cfg.Debug)
	log.Logger = logger

	deps, err := SetupDependencies(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("startup failed")
	}

	if *encrypt || *decrypt {
		if err := runEncryptionChange(deps.Storage, *encrypt); err != nil {
			logger.Fatal().Err(err).Msg("encryption change failed")
		}
		return
	}

	if err := unlockStorage(deps.Storage, cfg.Passphrase); err != nil {
		logger.Fatal().Err(err).Msg("could not unlock settings storage")
	}

	r := SetupRouter(deps)

	logger.Info().
		Str("addr", cfg.ListenAddr).
		Str("backend", cfg.BackendURL).
		Str("version", version.Get().Version).
		Msg("starting finance insights frontend")
	if warning := version.Get().Check(); warning != "" {
		logger.Warn().Msg(warning)
	}

	if err := http.ListenAndServe(cfg.ListenAddr, r); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}

// SetupDependencies builds the dependency graph. Exported for tests.
func SetupDependencies(cfg *config.Config, logger zerolog.Logger) (*Deps, error) {
	st, err := storage.New(cfg.SettingsDirectory)
	if err != nil {
		return nil, fmt.Errorf("settings storage: %w", err)
	}

	renderer, err := templates.New(cfg.TemplatesDirectory, cfg.Debug)
	if err != nil {
		logger.Warn().Err(err).Msg("could not load templates")
		renderer = nil
	}

	client := backend.NewClient(cfg.BackendURL, 30*time.Second)

	return &Deps{
		Config:   cfg,
		Client:   client,
		Storage:  st,
		Loader:   prefsource.New(client),
		Prefs:    prefcache.New(st, logger),
		Renderer: renderer,
		Tracker:  viewseq.NewTracker(),
		Logger:   logger,
	}, nil
}

// SetupRouter wires middleware, handler packages and static routes. Exported
// for tests.
func SetupRouter(deps *Deps) chi.Router {
	dashboard.Initialize(deps.Client, deps.Loader, deps.Renderer, deps.Tracker, deps.Config.DefaultUserID)
	preferences.Initialize(deps.Client, deps.Loader, deps.Renderer, deps.Config.DefaultUserID)
	customizer.Initialize(deps.Client, deps.Loader, deps.Prefs, deps.Renderer, deps.Config.DefaultUserID, deps.Config.PrefsCacheKey)
	studio.Initialize(deps.Client, deps.Loader, deps.Renderer, deps.Config.DefaultUserID)

	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(httputil.RequestLogger(deps.Logger))

	fileServer := http.FileServer(http.Dir(deps.Config.StaticDirectory))
	r.Handle("/static/*", http.StripPrefix("/static/", fileServer))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/dashboard", http.StatusTemporaryRedirect)
	})

	dashboard.RegisterRoutes(r)
	preferences.RegisterRoutes(r)
	customizer.RegisterRoutes(r)
	studio.RegisterRoutes(r)

	r.Get("/api/health", handleHealth)

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"version": version.Get(),
	})
}

// runEncryptionChange flips at-rest encryption of the settings directory and
// exits. The passphrase comes from the environment or an interactive prompt.
func runEncryptionChange(st *storage.Storage, enable bool) error {
	if enable {
		passphrase, err := readPassphrase("Passphrase for settings encryption: ")
		if err != nil {
			return err
		}
		if err := st.EnableEncryption(passphrase); err != nil {
			return err
		}
		log.Info().Msg("settings encryption enabled")
		return nil
	}

	if err := unlockStorage(st, os.Getenv("FINSIGHT_PASSPHRASE")); err != nil {
		return err
	}
	if err := st.DisableEncryption(); err != nil {
		return err
	}
	log.Info().Msg("settings encryption disabled")
	return nil
}

// unlockStorage unlocks encrypted settings, prompting on the terminal when no
// passphrase was configured.
func unlockStorage(st *storage.Storage, passphrase string) error {
	if !st.IsEncrypted() {
		return nil
	}
	if passphrase == "" {
		var err error
		passphrase, err = readPassphrase("Settings passphrase: ")
		if err != nil {
			return err
		}
	}
	return st.Unlock(passphrase)
}

func readPassphrase(prompt string) (string, error) {
	if pass := os.Getenv("FINSIGHT_PASSPHRASE"); pass != "" {
		return pass, nil
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", fmt.Errorf("no passphrase configured and stdin is not a terminal")
	}
	fmt.Fprint(os.Stderr, prompt)
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read passphrase: %w", err)
	}
	return string(raw), nil
}
