package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/OCAP2/sceneeditor/internal/basemap"
	"github.com/OCAP2/sceneeditor/internal/config"
	"github.com/OCAP2/sceneeditor/internal/dispatcher"
	"github.com/OCAP2/sceneeditor/internal/handlers"
	"github.com/OCAP2/sceneeditor/internal/logging"
	intOtel "github.com/OCAP2/sceneeditor/internal/otel"
	"github.com/OCAP2/sceneeditor/internal/parser"
	"github.com/OCAP2/sceneeditor/internal/session"
	"github.com/OCAP2/sceneeditor/internal/storage"
	"github.com/OCAP2/sceneeditor/internal/timeline"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// module defs - BuildDate can be set at build time via ldflags
var (
	CurrentVersion string = "0.0.1"
	BuildDate      string = "unknown"

	AppName string = "sceneeditor"
)

var SessionStartTime time.Time = time.Now()

func main() {
	configDir := pflag.StringP("config", "c", ".", "directory containing "+config.FileName)
	pflag.String("log-level", "", "override logLevel (debug, info, warn, error)")
	pflag.String("storage", "", "override storage.type (archive, sqlite, postgres)")
	pflag.Parse()

	if err := run(*configDir, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "sceneeditor:", err)
		os.Exit(1)
	}
}

func loadConfig(configDir string) error {
	err := config.Load(configDir)
	for key, flag := range map[string]string{"logLevel": "log-level", "storage.type": "storage"} {
		if f := pflag.Lookup(flag); f != nil && f.Changed {
			if bindErr := viper.BindPFlag(key, f); bindErr != nil {
				return bindErr
			}
		}
	}
	return err
}

// app bundles everything the main loop needs.
type app struct {
	logger  *slog.Logger
	slogMgr *logging.SlogManager
	logFile *os.File
	dbLog   zerolog.Logger
	otel    *intOtel.Provider
	store   storage.Backend
	sess    *session.Session
	svc     *handlers.Service
	disp    *dispatcher.Dispatcher
	player  *timeline.Player
	parse   *parser.Parser
}

func run(configDir string, in io.Reader, out io.Writer) error {
	a := &app{slogMgr: logging.NewSlogManager()}
	a.slogMgr.Setup(nil, "info", nil)
	a.logger = a.slogMgr.Logger()

	if err := loadConfig(configDir); err != nil {
		a.logger.Warn("Failed to load config, using defaults!", "error", err)
	} else {
		a.logger.Info("Loaded config", "dir", configDir)
	}

	if err := a.setupLogging(); err != nil {
		return err
	}
	defer a.closeLogging()

	if err := a.setupServices(out); err != nil {
		return err
	}
	defer a.shutdown()

	fmt.Fprintf(out, "%s %s (built %s). Type help for commands.\n", AppName, CurrentVersion, BuildDate)
	return a.loop(in, out)
}

func (a *app) setupLogging() error {
	level := viper.GetString("logLevel")
	path := logging.LogFilePath(viper.GetString("logsDir"), AppName, SessionStartTime)

	f, err := logging.OpenLogFile(path)
	if err != nil {
		a.logger.Error("Failed to create/open log file!", "error", err, "path", path)
	} else {
		a.logFile = f
	}

	var graylog io.Writer
	if viper.GetBool("graylog.enabled") {
		gw, err := logging.NewGraylogWriter(viper.GetString("graylog.address"), AppName)
		if err != nil {
			a.logger.Error("Failed to connect to Graylog", "error", err)
		} else {
			graylog = gw
		}
	}

	// the scene name and cursor are attached to every record once a
	// session exists
	a.slogMgr.Context = logging.SceneContext(func() (string, int64, bool) {
		if a.sess == nil || !a.sess.HasScene() {
			return "", 0, false
		}
		sc, _ := a.sess.Scene()
		return sc.Name, a.sess.Offset(), true
	})

	var file io.Writer
	if a.logFile != nil {
		file = a.logFile
	}
	a.slogMgr.Setup(file, level, graylog)
	a.logger = a.slogMgr.Logger()
	slog.SetDefault(a.logger)

	dbOut := io.Writer(io.Discard)
	if a.logFile != nil {
		dbOut = a.logFile
	}
	a.dbLog = logging.NewZerolog(dbOut, level, graylog)

	a.logger.Info("Logging to file", "path", path, "version", CurrentVersion)

	// must run before the dispatcher creates its instruments
	otelCfg := config.GetOTelConfig()
	a.otel, err = intOtel.New(context.Background(), intOtel.Config{
		Enabled:     otelCfg.Enabled && a.logFile != nil,
		ServiceName: otelCfg.ServiceName,
		Interval:    otelCfg.Interval,
		Writer:      a.logFile,
	})
	if err != nil {
		a.logger.Error("Failed to initialize OTel provider", "error", err)
		a.otel, _ = intOtel.New(context.Background(), intOtel.Config{})
	} else if a.otel.Enabled() {
		a.logger.Info("OTel metrics export enabled", "interval", otelCfg.Interval)
	}
	return nil
}

func (a *app) closeLogging() {
	if a.logFile != nil {
		_ = a.logFile.Close()
	}
}

func (a *app) setupServices(out io.Writer) error {
	storageCfg := config.GetStorageConfig()
	store, err := storage.NewBackend(storageCfg, a.dbLog, a.logger)
	if err != nil {
		a.logger.Error("Failed to create storage backend", "error", err)
		return err
	}
	if err := store.Init(); err != nil {
		a.logger.Error("Failed to initialize storage backend", "type", storageCfg.Type, "error", err)
		return err
	}
	a.store = store
	a.logger.Info("Storage backend initialized", "type", storageCfg.Type)

	var fetcher session.Fetcher
	if bc := config.GetBasemapConfig(); bc.Enabled {
		client := basemap.New(bc.OverpassURL, bc.Timeout)
		fetcher = client
		go checkOverpass(a.logger, client)
	}

	a.sess = session.New(a.logger)
	a.parse = parser.NewParser(a.logger)
	a.player = timeline.NewPlayer()
	a.svc = handlers.NewService(handlers.Dependencies{
		Session: a.sess,
		Parser:  a.parse,
		Store:   store,
		Fetcher: fetcher,
		Player:  a.player,
		Logger:  a.logger,
		Out:     out,
		Speed:   config.PlaybackSpeed(),
	})

	a.disp, err = dispatcher.New(logging.NewDispatcherLogger(a.dbLog))
	if err != nil {
		return fmt.Errorf("failed to create dispatcher: %w", err)
	}
	a.svc.Register(a.disp)
	a.logger.Debug("Commands registered", "count", len(a.disp.Commands()))
	return nil
}

func checkOverpass(logger *slog.Logger, c *basemap.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := c.Healthcheck(ctx); err != nil {
		logger.Info("Overpass endpoint is offline", "error", err)
		return
	}
	logger.Info("Overpass endpoint is online")
}

func (a *app) shutdown() {
	a.svc.Close()
	if err := a.store.Close(); err != nil {
		a.logger.Error("Failed to close storage backend", "error", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.otel.Shutdown(ctx); err != nil {
		a.logger.Error("Failed to shut down OTel provider", "error", err)
	}
	a.logger.Info("Shut down")
}
