// Package api — административный HTTP API сервера уровней.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/annel0/levelforge/internal/level"
	"github.com/annel0/levelforge/internal/logging"
	"github.com/annel0/levelforge/internal/middleware"
	"github.com/annel0/levelforge/internal/relay"
	"github.com/annel0/levelforge/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// RelayStats — источник счётчиков ретранслятора
type RelayStats interface {
	NodeID() string
	Stats() relay.Stats
}

// Config содержит конфигурацию для REST сервера
type Config struct {
	Addr    string          // адрес для запуска сервера, например ":8088"
	Levels  *level.Registry // загруженные уровни
	Backups *storage.BackupStore
	Relay   RelayStats // может быть nil
	// Registry — регистр метрик; nil — дефолтный регистр Prometheus
	Registry *prometheus.Registry
	Version  string
}

// RestServer представляет REST API сервер
type RestServer struct {
	router  *gin.Engine
	http    *http.Server
	levels  *level.Registry
	backups *storage.BackupStore
	relay   RelayStats
	metrics *ServerMetrics
	version string
}

// GenericResponse представляет общий ответ API
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Vec — координаты в ответе API
type Vec struct {
	X int16 `json:"x"`
	Z int16 `json:"z"`
	Y int16 `json:"y"`
}

// LevelInfo — сведения об уровне
type LevelInfo struct {
	Name     string            `json:"name"`
	Size     Vec               `json:"size"`
	Spawn    Vec               `json:"spawn"`
	Blocks   int               `json:"blocks"`
	Changes  uint64            `json:"changes"`
	Dirty    bool              `json:"dirty"`
	Viewers  int               `json:"viewers"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

func describeLevel(l *level.Level) LevelInfo {
	size := l.Size()
	spawn, _ := l.Spawn()
	return LevelInfo{
		Name:     l.Name,
		Size:     Vec{X: size.X, Z: size.Z, Y: size.Y},
		Spawn:    Vec{X: spawn.X, Z: spawn.Z, Y: spawn.Y},
		Blocks:   l.TotalBlocks(),
		Changes:  l.ChangeCount(),
		Dirty:    l.Dirty(),
		Viewers:  len(l.Viewers()),
		Metadata: l.MetaSnapshot(),
	}
}

// NewRestServer создает новый REST API сервер
func NewRestServer(config Config) *RestServer {
	if config.Addr == "" {
		config.Addr = ":8088"
	}
	if gin.Mode() == gin.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New() // без стандартного logger/recovery
	router.Use(gin.Recovery())

	// === Observability middleware ===
	router.Use(otelgin.Middleware("levelforge-admin"))
	router.Use(middleware.NewRequestLogger("/health", "/metrics").Handler())

	var reg prometheus.Registerer
	var gatherer prometheus.Gatherer
	if config.Registry != nil {
		reg, gatherer = config.Registry, config.Registry
	}
	promMw := middleware.NewPrometheusMiddleware("admin_api", reg)
	router.Use(promMw.Handler())
	promMw.RegisterMetricsEndpoint(router, gatherer)

	rs := &RestServer{
		router:  router,
		levels:  config.Levels,
		backups: config.Backups,
		relay:   config.Relay,
		metrics: NewServerMetrics(),
		version: config.Version,
	}
	rs.http = &http.Server{
		Addr:              config.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	rs.setupRoutes()
	return rs
}

// setupRoutes настраивает маршруты REST API
func (rs *RestServer) setupRoutes() {
	rs.router.GET("/health", rs.handleHealth)

	api := rs.router.Group("/api")
	{
		api.GET("/server", rs.handleServerInfo)
		api.GET("/levels", rs.handleListLevels)
		api.GET("/levels/:name", rs.handleGetLevel)
		api.POST("/levels/:name/save", rs.handleSaveLevel)
		api.POST("/levels/:name/backup", rs.handleBackupLevel)
		api.GET("/levels/:name/backups", rs.handleListBackups)
	}
}

// Handler возвращает http.Handler сервера
func (rs *RestServer) Handler() http.Handler {
	return rs.router
}

// Start запускает HTTP сервер и блокируется до его остановки
func (rs *RestServer) Start() error {
	logging.Info("🌐 Admin API слушает %s", rs.http.Addr)
	if err := rs.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("admin API: %w", err)
	}
	return nil
}

// Shutdown мягко останавливает сервер
func (rs *RestServer) Shutdown(ctx context.Context) error {
	return rs.http.Shutdown(ctx)
}

func (rs *RestServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "levels": len(rs.levels.Names())})
}

// handleServerInfo возвращает информацию о сервере
func (rs *RestServer) handleServerInfo(c *gin.Context) {
	rssMB, _ := rs.metrics.GetRSS()
	cpuPercent, _ := rs.metrics.GetCPUUsage()

	info := map[string]interface{}{
		"version":     rs.version,
		"name":        "levelforge",
		"status":      "running",
		"uptime":      rs.metrics.GetUptime(),
		"rss_mb":      fmt.Sprintf("%.1f", rssMB),
		"cpu_percent": fmt.Sprintf("%.1f", cpuPercent),
		"runtime":     rs.metrics.GetDetailedMemoryStats(),
		"levels":      rs.levels.Names(),
	}
	if rs.relay != nil {
		info["relay"] = gin.H{"node_id": rs.relay.NodeID(), "stats": rs.relay.Stats()}
	}

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Информация о сервере",
		Data:    info,
	})
}

func (rs *RestServer) handleListLevels(c *gin.Context) {
	levels := rs.levels.All()
	infos := make([]LevelInfo, 0, len(levels))
	for _, l := range levels {
		infos = append(infos, describeLevel(l))
	}

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Список уровней",
		Data:    infos,
	})
}

// findLevel пишет 404, если уровня нет
func (rs *RestServer) findLevel(c *gin.Context) (*level.Level, bool) {
	name := c.Param("name")
	l, ok := rs.levels.Find(name)
	if !ok {
		c.JSON(http.StatusNotFound, GenericResponse{
			Success: false,
			Message: fmt.Sprintf("Уровень %s не загружен", name),
		})
	}
	return l, ok
}

func (rs *RestServer) handleGetLevel(c *gin.Context) {
	l, ok := rs.findLevel(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Уровень найден",
		Data:    describeLevel(l),
	})
}

func (rs *RestServer) handleSaveLevel(c *gin.Context) {
	l, ok := rs.findLevel(c)
	if !ok {
		return
	}

	if err := rs.levels.Save(c.Request.Context(), l); err != nil {
		logging.Error("Admin API: %v", err)
		c.JSON(http.StatusInternalServerError, GenericResponse{
			Success: false,
			Message: "Не удалось сохранить уровень: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Уровень сохранён",
		Data:    describeLevel(l),
	})
}

// backupsEnabled пишет 503, если резервные копии не настроены
func (rs *RestServer) backupsEnabled(c *gin.Context) bool {
	if rs.backups == nil {
		c.JSON(http.StatusServiceUnavailable, GenericResponse{
			Success: false,
			Message: "Резервные копии отключены",
		})
		return false
	}
	return true
}

func (rs *RestServer) handleBackupLevel(c *gin.Context) {
	if !rs.backupsEnabled(c) {
		return
	}
	l, ok := rs.findLevel(c)
	if !ok {
		return
	}

	info, err := rs.backups.Put(c.Request.Context(), l)
	if err != nil {
		logging.Error("Admin API: резервная копия %s: %v", l.Name, err)
		c.JSON(http.StatusInternalServerError, GenericResponse{
			Success: false,
			Message: "Не удалось сделать копию: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, GenericResponse{
		Success: true,
		Message: "Копия создана",
		Data:    info,
	})
}

func (rs *RestServer) handleListBackups(c *gin.Context) {
	if !rs.backupsEnabled(c) {
		return
	}

	name := c.Param("name")
	infos, err := rs.backups.List(name)
	if errors.Is(err, storage.ErrInvalidName) {
		c.JSON(http.StatusBadRequest, GenericResponse{Success: false, Message: err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, GenericResponse{Success: false, Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Список копий",
		Data:    infos,
	})
}
