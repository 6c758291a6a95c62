package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/annel0/levelforge/internal/api"
	"github.com/annel0/levelforge/internal/command"
	"github.com/annel0/levelforge/internal/config"
	"github.com/annel0/levelforge/internal/cuboid"
	"github.com/annel0/levelforge/internal/eventbus"
	"github.com/annel0/levelforge/internal/level"
	"github.com/annel0/levelforge/internal/logging"
	"github.com/annel0/levelforge/internal/observability"
	"github.com/annel0/levelforge/internal/player"
	"github.com/annel0/levelforge/internal/plugin"
	"github.com/annel0/levelforge/internal/relay"
	"github.com/annel0/levelforge/internal/storage"
	"github.com/annel0/levelforge/internal/vec"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const version = "v0.1.0"

func main() {
	configPath := flag.String("config", "", "путь к YAML конфигурации (по умолчанию $LEVEL_CONFIG)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}
	genType, err := level.ParseType(cfg.Levels.Generator)
	if err != nil {
		log.Fatalf("❌ Ошибка конфигурации: %v", err)
	}

	if err := logging.InitDefaultLogger("server"); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()

	logging.Info("🧱 Запуск levelforge %s", version)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// === ТЕЛЕМЕТРИЯ ===
	if cfg.Telemetry.Enabled {
		shutdown, err := observability.InitTelemetry(ctx, observability.Options{
			ServiceName: cfg.Telemetry.ServiceName,
			Version:     version,
		})
		if err != nil {
			logging.Warn("OpenTelemetry недоступен: %v", err)
		} else {
			defer shutdown(context.Background())
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// === ХРАНИЛИЩЕ И УРОВНИ ===
	files, err := storage.NewFileStore(cfg.Levels.GetDir())
	if err != nil {
		logging.Error("❌ %v", err)
		os.Exit(1)
	}
	store := &storage.ChainStore{Files: files, BackupOnSave: cfg.Backup.OnSave, Keep: cfg.Backup.Keep}
	if cfg.Backup.Enabled {
		backups, err := storage.NewBackupStore(cfg.Backup.Path)
		if err != nil {
			logging.Error("❌ Резервные копии отключены: %v", err)
		} else {
			store.Backups = backups
			defer backups.Close()
		}
	}

	levels := level.NewRegistry(store).WithMetrics(level.NewMetrics(reg))
	size := cfg.Levels.Size
	mainLevel, err := levels.LoadOrCreate(ctx, cfg.Levels.GetMain(), level.GenerateSpec{
		Size: vec.New(size.X, size.Z, size.Y),
		Type: genType,
		Seed: cfg.Levels.Seed,
	})
	if err != nil {
		logging.Error("❌ Не удалось подготовить основной уровень: %v", err)
		os.Exit(1)
	}

	// === ИГРОВЫЕ СОБЫТИЯ И ПЛАГИНЫ ===
	blockChanges := player.NewBlockChangeHandler()
	eventbus.AttachLogger(blockChanges.Bus(), player.Describe)

	busMetrics := eventbus.NewMetricsExporter(reg, cfg.Server.MetricsInterval(), blockChanges.Bus())
	busMetrics.Start()
	defer busMetrics.Stop()

	host := &plugin.Host{
		Levels:       levels,
		Commands:     command.NewRegistry(),
		BlockChanges: blockChanges,
	}
	plugins := plugin.NewManager(host)
	if err := plugins.Load(cuboid.NewBuildingPlugin(rand.New(rand.NewSource(time.Now().UnixNano())))); err != nil {
		logging.Error("❌ %v", err)
	}

	// === РЕТРАНСЛЯЦИЯ МЕЖДУ УЗЛАМИ ===
	var relayStats api.RelayStats
	if cfg.Relay.Enabled {
		r, err := relay.Connect(relay.Config{
			URL:           cfg.Relay.GetURL(),
			SubjectPrefix: cfg.Relay.SubjectPrefix,
		}, cfg.Relay.NodeID)
		if err != nil {
			logging.Error("❌ Ретрансляция отключена: %v", err)
		} else {
			defer r.Close()
			if err := r.Attach(mainLevel); err != nil {
				logging.Error("❌ %v", err)
			}
			relayStats = r
		}
	}

	// === ADMIN API ===
	admin := api.NewRestServer(api.Config{
		Addr:     fmt.Sprintf(":%d", cfg.Server.GetAdminPort()),
		Levels:   levels,
		Backups:  store.Backups,
		Relay:    relayStats,
		Registry: reg,
		Version:  version,
	})
	go func() {
		if err := admin.Start(); err != nil {
			logging.Error("❌ %v", err)
			stop()
		}
	}()

	if interval := cfg.Levels.AutosaveInterval(); interval > 0 {
		go levels.RunAutosave(ctx, interval)
	}

	logging.Info("✅ Сервер запущен: уровень %s %v, admin API :%d", mainLevel.Name, mainLevel.Size(), cfg.Server.GetAdminPort())

	<-ctx.Done()
	logging.Info("📡 Получен сигнал завершения, останавливаемся...")

	// === GRACEFUL SHUTDOWN ===
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := admin.Shutdown(shutdownCtx); err != nil {
		logging.Error("❌ Ошибка остановки admin API: %v", err)
	}
	if err := plugins.UnloadAll(); err != nil {
		logging.Error("❌ %v", err)
	}
	if err := levels.SaveAll(shutdownCtx); err != nil {
		logging.Error("❌ Не все уровни сохранены: %v", err)
	}

	logging.Info("👋 Сервер остановлен")
}
