package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config корневая структура конфигурации сервера уровней
type Config struct {
	Levels    LevelsConfig    `yaml:"levels"`
	Backup    BackupConfig    `yaml:"backup"`
	Relay     RelayConfig     `yaml:"relay"`
	Server    ServerConfig    `yaml:"server"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

type LevelsConfig struct {
	Dir       string     `yaml:"dir"`
	Main      string     `yaml:"main"`
	Size      SizeConfig `yaml:"size"`
	Generator string     `yaml:"generator"`
	Seed      int64      `yaml:"seed"`
	// AutosaveSeconds — период автосохранения, 0 отключает его
	AutosaveSeconds int `yaml:"autosave_seconds"`
}

// SizeConfig — размер уровня по умолчанию, Y — высота
type SizeConfig struct {
	X int `yaml:"x"`
	Z int `yaml:"z"`
	Y int `yaml:"y"`
}

type BackupConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
	Keep    int    `yaml:"keep"`
	OnSave  bool   `yaml:"on_save"`
}

type RelayConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subject_prefix"`
	NodeID        string `yaml:"node_id"`
}

type ServerConfig struct {
	AdminPort int `yaml:"admin_port"`
	// MetricsIntervalSeconds — период опроса счётчиков шин событий
	MetricsIntervalSeconds int `yaml:"metrics_interval_seconds"`
}

type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
}

// Default возвращает встроенную конфигурацию
func Default() *Config {
	return &Config{
		Levels: LevelsConfig{
			Dir:             "levels",
			Main:            "main",
			Size:            SizeConfig{X: 128, Z: 128, Y: 64},
			Generator:       "flat",
			AutosaveSeconds: 300,
		},
		Backup: BackupConfig{
			Path: "data/backups",
			Keep: 10,
		},
		Relay: RelayConfig{
			URL:           "nats://127.0.0.1:4222",
			SubjectPrefix: "levelforge.blocks",
		},
		Server: ServerConfig{
			AdminPort:              8088,
			MetricsIntervalSeconds: 5,
		},
		Telemetry: TelemetryConfig{
			ServiceName: "levelforge",
		},
	}
}

// GetDir возвращает каталог уровней с поддержкой fallback значений
func (l *LevelsConfig) GetDir() string {
	return getStringWithEnvFallback(l.Dir, "LEVEL_DIR", "levels")
}

// GetMain возвращает имя основного уровня с поддержкой fallback значений
func (l *LevelsConfig) GetMain() string {
	return getStringWithEnvFallback(l.Main, "LEVEL_MAIN", "main")
}

// AutosaveInterval возвращает период автосохранения (0 — выключено)
func (l *LevelsConfig) AutosaveInterval() time.Duration {
	if l.AutosaveSeconds <= 0 {
		return 0
	}
	return time.Duration(l.AutosaveSeconds) * time.Second
}

// GetAdminPort возвращает порт admin API с поддержкой fallback значений
func (s *ServerConfig) GetAdminPort() int {
	return getPortWithEnvFallback(s.AdminPort, "LEVEL_ADMIN_PORT", 8088)
}

// MetricsInterval возвращает период опроса метрик шин
func (s *ServerConfig) MetricsInterval() time.Duration {
	if s.MetricsIntervalSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(s.MetricsIntervalSeconds) * time.Second
}

// GetURL возвращает адрес NATS с поддержкой fallback значений
func (r *RelayConfig) GetURL() string {
	return getStringWithEnvFallback(r.URL, "LEVEL_NATS_URL", "nats://127.0.0.1:4222")
}

// getPortWithEnvFallback возвращает порт с приоритетом: config -> env -> default
func getPortWithEnvFallback(configPort int, envVar string, defaultPort int) int {
	if configPort > 0 {
		return configPort
	}

	if envVal := os.Getenv(envVar); envVal != "" {
		if port, err := strconv.Atoi(envVal); err == nil && port > 0 {
			return port
		}
	}

	return defaultPort
}

// getStringWithEnvFallback возвращает строку с приоритетом: config -> env -> default
func getStringWithEnvFallback(configVal, envVar, defaultVal string) string {
	if configVal != "" {
		return configVal
	}
	if envVal := os.Getenv(envVar); envVal != "" {
		return envVal
	}
	return defaultVal
}

// Validate проверяет значения, которые нельзя исправить подстановкой по умолчанию
func (c *Config) Validate() error {
	s := c.Levels.Size
	if s.X <= 0 || s.Z <= 0 || s.Y <= 0 || s.X > 32767 || s.Z > 32767 || s.Y > 32767 {
		return fmt.Errorf("некорректный размер уровня %dx%dx%d", s.X, s.Z, s.Y)
	}
	if c.Backup.Keep < 0 {
		return fmt.Errorf("backup.keep не может быть отрицательным: %d", c.Backup.Keep)
	}
	return nil
}

// Load читает YAML файл конфигурации поверх Default().
// Если path == "", пытается прочитать из ENV LEVEL_CONFIG или возвращает Default().
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv("LEVEL_CONFIG")
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("чтение конфигурации %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("разбор конфигурации %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}
