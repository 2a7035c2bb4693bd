package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/viper"

	"github.com/memomap/memomap/internal/bus"
	"github.com/memomap/memomap/internal/config"
	"github.com/memomap/memomap/internal/event"
	"github.com/memomap/memomap/internal/influx"
	"github.com/memomap/memomap/internal/logging"
	"github.com/memomap/memomap/internal/model"
	"github.com/memomap/memomap/internal/monitor"
	"github.com/memomap/memomap/internal/panel"
	"github.com/memomap/memomap/internal/renderer"
	"github.com/memomap/memomap/internal/search"
	"github.com/memomap/memomap/internal/storage"
	"github.com/memomap/memomap/internal/store"
	"github.com/memomap/memomap/internal/surface"
	"github.com/memomap/memomap/internal/worker"
)

// version info - BuildDate can be set at build time via ldflags
var (
	CurrentVersion string = "0.0.1"
	BuildDate      string = "unknown"

	AppName string = "memomap"
)

// file paths
var (
	LogFilePath string
	LogFile     *os.File
)

// global variables
var (
	// SlogManager handles all slog-based logging
	SlogManager *logging.SlogManager

	// Logger is the slog logger (convenience reference)
	Logger *slog.Logger

	SessionStartTime time.Time = time.Now()

	// Services
	eventBus       *bus.Bus
	markerStore    *store.Store
	snapshotWriter *worker.Writer
	monitorService *monitor.Service
	influxManager  *influx.Manager
	searchClient   *search.Client
	mapRenderer    *renderer.Renderer
	detailPopup    *surface.Popup
	contextMenu    *surface.ContextMenu
	filterPanel    *panel.Panel

	// Storage backend
	storageBackend storage.Backend
)

func loadConfig() error {
	configDir, err := os.Getwd()
	if err != nil {
		return err
	}
	return config.Load(configDir)
}

func setupLogging() error {
	// Initial setup so config load failures are visible
	SlogManager = logging.NewSlogManager()
	SlogManager.Setup(nil, viper.GetString("logLevel"), nil)
	Logger = SlogManager.Logger()

	if err := loadConfig(); err != nil {
		Logger.Warn("Failed to load config, using defaults!", "error", err)
	} else {
		Logger.Info("Loaded config")
	}

	logsDir := viper.GetString("logsDir")
	if _, err := os.Stat(logsDir); os.IsNotExist(err) {
		os.Mkdir(logsDir, 0755)
	}

	LogFilePath = logging.LogFilePath(logsDir, AppName, SessionStartTime)
	if _, err := os.Stat(LogFilePath); err == nil {
		os.Rename(LogFilePath, LogFilePath+".old")
	}

	var err error
	LogFile, err = os.OpenFile(LogFilePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		Logger.Error("Failed to create/open log file!", "error", err, "path", LogFilePath)
	}

	// Re-setup logging with file output
	SlogManager.Setup(LogFile, viper.GetString("logLevel"), nil)
	Logger = SlogManager.Logger()
	Logger.Info("Logging to file", "path", LogFilePath)

	return nil
}

// busLogger builds the zerolog-backed bus logger, shipping to Graylog when
// configured.
func busLogger() bus.Logger {
	var extra []io.Writer
	if viper.GetBool("graylog.enabled") {
		gelfWriter, err := logging.NewGelfWriter(viper.GetString("graylog.address"))
		if err != nil {
			Logger.Warn("Graylog writer unavailable", "error", err)
		} else {
			extra = append(extra, gelfWriter)
		}
	}

	zl := logging.NewZerologLogger(viper.GetString("logLevel"), LogFile, extra...)
	return logging.NewBusLogger(zl)
}

func startServices() error {
	var err error

	eventBus, err = bus.New(busLogger())
	if err != nil {
		return fmt.Errorf("failed to create event bus: %w", err)
	}

	storageBackend, err = storage.NewBackend(config.Storage(), SlogManager)
	if err != nil {
		return fmt.Errorf("failed to create storage backend: %w", err)
	}
	if err = storageBackend.Init(); err != nil {
		return fmt.Errorf("failed to init storage backend: %w", err)
	}
	Logger.Info("Storage backend initialized", "type", config.Storage().Type)

	snapshotWriter = worker.NewWriter(worker.Dependencies{LogManager: SlogManager}, storageBackend)
	snapshotWriter.Start()

	markerStore = store.New(store.Dependencies{
		Bus:        eventBus,
		Backend:    storageBackend,
		Persister:  snapshotWriter,
		LogManager: SlogManager,
	})
	if err = markerStore.Init(); err != nil {
		return fmt.Errorf("failed to init marker store: %w", err)
	}
	markerStore.RegisterHandlers()

	SlogManager.Context = func() []slog.Attr {
		return []slog.Attr{slog.Int("markers", markerStore.MarkerCount())}
	}

	mapRenderer = renderer.New(renderer.Dependencies{
		Bus:        eventBus,
		Widget:     &consoleWidget{},
		LogManager: SlogManager,
	})
	mapRenderer.RegisterHandlers()

	detailPopup = surface.NewPopup(surface.Dependencies{
		Bus:        eventBus,
		Reader:     markerStore,
		View:       &consoleView{name: "popup"},
		LogManager: SlogManager,
	})
	detailPopup.RegisterHandlers()

	contextMenu = surface.NewContextMenu(surface.Dependencies{
		Bus:        eventBus,
		Reader:     markerStore,
		View:       &consoleView{name: "menu"},
		LogManager: SlogManager,
	})
	contextMenu.RegisterHandlers()

	filterPanel = panel.New(panel.Dependencies{
		Bus:        eventBus,
		View:       &consolePanel{},
		LogManager: SlogManager,
	})
	filterPanel.RegisterHandlers()
	filterPanel.Mount()

	searchClient = search.New(
		viper.GetString("search.endpoint"),
		viper.GetInt("search.maxResults"),
		time.Duration(viper.GetInt("search.timeoutSeconds"))*time.Second,
		SlogManager,
	)

	if viper.GetBool("influx.enabled") {
		influxManager = influx.NewManager(
			logging.NewZerologLogger(viper.GetString("logLevel"), LogFile),
			LogFilePath+".influx.bak.gz",
		)
		if err = influxManager.Connect(); err != nil {
			Logger.Warn("InfluxDB metrics unavailable", "error", err)
			influxManager = nil
		} else {
			influxManager.RegisterHandlers(eventBus)
		}
	}

	monitorService = monitor.NewService(monitor.Dependencies{
		Store:      markerStore,
		Writer:     snapshotWriter,
		Influx:     influxManager,
		LogManager: SlogManager,
		StatusDir:  viper.GetString("logsDir"),
		Interval:   time.Duration(viper.GetInt("monitor.intervalSeconds")) * time.Second,
	})
	if !monitorService.IsRunning() {
		monitorService.Start()
	}

	return nil
}

func shutdown() {
	Logger.Info("Shutting down...")

	if monitorService != nil {
		monitorService.Stop()
	}
	if snapshotWriter != nil {
		snapshotWriter.Stop()
	}
	if influxManager != nil {
		influxManager.Close()
	}
	if storageBackend != nil {
		if err := storageBackend.Close(); err != nil {
			Logger.Error("Error closing storage backend", "error", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := SlogManager.Flush(ctx); err != nil {
		Logger.Warn("Failed to flush logs", "error", err)
	}

	if LogFile != nil {
		LogFile.Close()
	}
}

// runSearch geocodes the query and registers the first hit as a marker.
func runSearch(query string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	start := time.Now()
	results := searchClient.Search(ctx, query, nil)
	if influxManager != nil {
		influxManager.RecordSearch(query, len(results), time.Since(start))
	}

	if len(results) == 0 {
		fmt.Println("No results.")
		return
	}

	for i, r := range results {
		fmt.Printf("%d. %s (%v, %v)\n", i+1, r.DisplayName, r.Position.Lat, r.Position.Lng)
	}

	first := results[0]
	eventBus.Publish(event.AddMarker{
		Position:   first.Position,
		Title:      first.DisplayName,
		Categories: []model.Category{model.DefaultCategory},
	})
	fmt.Printf("Registered marker for %q\n", first.DisplayName)
}

func populateDemoData() {
	demo := []struct {
		pos        model.Position
		title      string
		memo       string
		categories []model.Category
	}{
		{model.Position{Lat: 37.5512, Lng: 126.9882}, "N서울타워", "야경", []model.Category{model.CategoryMemory}},
		{model.Position{Lat: 37.5796, Lng: 126.9770}, "경복궁", "", []model.Category{model.CategorySpring, model.CategoryMemory}},
		{model.Position{Lat: 33.2452, Lng: 126.5622}, "중문해수욕장", "여름휴가", []model.Category{model.CategorySummer, model.CategoryWishlist}},
		{model.Position{Lat: 37.6584, Lng: 126.9780}, "북한산", "단풍 구경", []model.Category{model.CategoryAutumn}},
		{model.Position{Lat: 37.7126, Lng: 128.7199}, "대관령", "", []model.Category{model.CategoryWinter, model.CategoryWishlist}},
	}

	for _, d := range demo {
		id := markerStore.AddMarker(d.pos, d.title, d.categories)
		if id == "" {
			Logger.Error("Demo marker rejected", "title", d.title)
			continue
		}
		if d.memo != "" {
			memo := d.memo
			markerStore.UpdateMemo(id, &memo)
		}
		time.Sleep(10 * time.Millisecond)
	}

	Logger.Info("Demo data populated", "markers", markerStore.MarkerCount())

	// exercise the interaction surfaces against the demo collection
	markers := markerStore.Markers()
	if len(markers) > 0 {
		mapRenderer.PinClicked(markers[0].ID)
		detailPopup.Close()
	}
}

func main() {
	if err := setupLogging(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	Logger.Info("Starting up...", "version", CurrentVersion, "build", BuildDate)

	if err := startServices(); err != nil {
		Logger.Error("Startup failed", "error", err)
		shutdown()
		os.Exit(1)
	}
	defer shutdown()

	args := os.Args[1:]
	if len(args) > 0 {
		switch strings.ToLower(args[0]) {
		case "demo":
			Logger.Info("Populating demo data...")
			demoStart := time.Now()
			populateDemoData()
			Logger.Info("Demo data populated.", "duration", time.Since(demoStart))
			return
		case "search":
			if len(args) < 2 {
				fmt.Println("No query provided.")
				return
			}
			runSearch(strings.Join(args[1:], " "))
			return
		case "version":
			fmt.Println(CurrentVersion, BuildDate)
			return
		default:
			fmt.Printf("Unknown command %q.\n", args[0])
			return
		}
	}

	// no command: run until interrupted
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
}
