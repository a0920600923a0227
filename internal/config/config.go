package config

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config корневая структура конфигурации редактора.
// Нулевые значения полей заменяются дефолтами в Load/Default.
type Config struct {
	Editor    EditorConfig    `yaml:"editor"`
	Regions   RegionsConfig   `yaml:"regions"`
	Brush     BrushConfig     `yaml:"brush"`
	Storage   StorageConfig   `yaml:"storage"`
	EventBus  EventBusConfig  `yaml:"eventbus"`
	Server    ServerConfig    `yaml:"server"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type EditorConfig struct {
	HistoryCapacity int          `yaml:"history_capacity"`
	AutosaveSeconds int          `yaml:"autosave_seconds"`
	Ground          GroundConfig `yaml:"ground"`
}

// GroundConfig описывает плоский стартовый слой, заливаемый без записи в историю.
type GroundConfig struct {
	Enabled bool   `yaml:"enabled"`
	Radius  int    `yaml:"radius"`
	Y       int    `yaml:"y"`
	Type    string `yaml:"type"`
}

// RegionsConfig ограничения региональных алгоритмов (поиск, копирование, заливка).
type RegionsConfig struct {
	ConnectedMax  int `yaml:"connected_max"`
	LocalMax      int `yaml:"local_max"`
	LocalDistance int `yaml:"local_distance"`
	RayLength     int `yaml:"ray_length"`
	AlignedMax    int `yaml:"aligned_max"`
	FillMax       int `yaml:"fill_max"`
}

type BrushConfig struct {
	DragThresholdPx float64 `yaml:"drag_threshold_px"`
	CooldownMs      int     `yaml:"cooldown_ms"`
}

type StorageConfig struct {
	Backend         string `yaml:"backend"` // badger | redis | mongo | sqlite | file | memory
	DataDir         string `yaml:"data_dir"`
	RedisAddr       string `yaml:"redis_addr"`
	RedisPass       string `yaml:"redis_password"`
	RedisDB         int    `yaml:"redis_db"`
	RedisPrefix     string `yaml:"redis_prefix"`
	MongoURI        string `yaml:"mongo_uri"`
	MongoDatabase   string `yaml:"mongo_database"`
	MongoCollection string `yaml:"mongo_collection"`
	Compress        bool   `yaml:"compress"`
}

type EventBusConfig struct {
	URL       string `yaml:"url"`
	Stream    string `yaml:"stream"`
	Retention int    `yaml:"retention_hours"`
	Buffer    int    `yaml:"buffer"`
}

type ServerConfig struct {
	RESTPort    int `yaml:"rest_port"`
	MetricsPort int `yaml:"metrics_port"`
}

type TelemetryConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Service     string  `yaml:"service"`
	Endpoint    string  `yaml:"endpoint"`     // host:port OTLP/HTTP, пусто: OTEL_EXPORTER_OTLP_ENDPOINT или localhost:4318
	Insecure    bool    `yaml:"insecure"`     // http вместо https
	SampleRatio float64 `yaml:"sample_ratio"` // доля трассируемых запросов, 0..1
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	Dir   string `yaml:"dir"`
}

// Default возвращает конфигурацию со значениями по умолчанию
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Editor.HistoryCapacity <= 0 {
		c.Editor.HistoryCapacity = 500
	}
	if c.Editor.AutosaveSeconds < 0 {
		c.Editor.AutosaveSeconds = 0
	}
	if c.Editor.Ground.Type == "" {
		c.Editor.Ground.Type = "grass"
	}
	if c.Editor.Ground.Radius <= 0 {
		c.Editor.Ground.Radius = 16
	}

	if c.Regions.ConnectedMax <= 0 {
		c.Regions.ConnectedMax = 200
	}
	if c.Regions.LocalMax <= 0 {
		c.Regions.LocalMax = 50
	}
	if c.Regions.LocalDistance <= 0 {
		c.Regions.LocalDistance = 8
	}
	if c.Regions.RayLength <= 0 {
		c.Regions.RayLength = 3
	}
	if c.Regions.AlignedMax <= 0 {
		c.Regions.AlignedMax = 100
	}
	if c.Regions.FillMax <= 0 {
		c.Regions.FillMax = 200
	}

	if c.Brush.DragThresholdPx <= 0 {
		c.Brush.DragThresholdPx = 4
	}
	if c.Brush.CooldownMs <= 0 {
		c.Brush.CooldownMs = 120
	}

	if c.Storage.Backend == "" {
		c.Storage.Backend = "badger"
	}
	if c.Storage.DataDir == "" {
		c.Storage.DataDir = "data"
	}
	if c.Storage.RedisAddr == "" {
		c.Storage.RedisAddr = "localhost:6379"
	}
	if c.Storage.RedisPrefix == "" {
		c.Storage.RedisPrefix = "voxel:slot:"
	}
	if c.Storage.MongoURI == "" {
		c.Storage.MongoURI = "mongodb://localhost:27017"
	}
	if c.Storage.MongoDatabase == "" {
		c.Storage.MongoDatabase = "voxel"
	}
	if c.Storage.MongoCollection == "" {
		c.Storage.MongoCollection = "slots"
	}

	if c.EventBus.Stream == "" {
		c.EventBus.Stream = "EDITOR"
	}
	if c.EventBus.Retention <= 0 {
		c.EventBus.Retention = 24
	}
	if c.EventBus.Buffer <= 0 {
		c.EventBus.Buffer = 1024
	}

	if c.Telemetry.Service == "" {
		c.Telemetry.Service = "voxel-builder"
	}
	if c.Telemetry.SampleRatio <= 0 || c.Telemetry.SampleRatio > 1 {
		c.Telemetry.SampleRatio = 1
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// GetRESTPort возвращает REST API порт с поддержкой fallback значений
func (s *ServerConfig) GetRESTPort() int {
	return getPortWithEnvFallback(s.RESTPort, "EDITOR_REST_PORT", 8088)
}

// GetMetricsPort возвращает Prometheus метрики порт с поддержкой fallback значений
func (s *ServerConfig) GetMetricsPort() int {
	return getPortWithEnvFallback(s.MetricsPort, "EDITOR_METRICS_PORT", 2112)
}

// getPortWithEnvFallback возвращает порт с приоритетом: config -> env -> default
func getPortWithEnvFallback(configPort int, envVar string, defaultPort int) int {
	// Если порт задан в конфиге и больше 0, используем его
	if configPort > 0 {
		return configPort
	}

	// Пробуем прочитать из environment variable
	if envVal := os.Getenv(envVar); envVal != "" {
		if port, err := strconv.Atoi(envVal); err == nil && port > 0 {
			return port
		}
	}

	return defaultPort
}

// Load читает YAML файл конфигурации.
// Если path == "", пытается прочитать путь из ENV EDITOR_CONFIG; без файла возвращает Default().
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("EDITOR_CONFIG")
		if path == "" {
			return Default(), nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return Parse(data)
}

// Parse разбирает YAML и применяет дефолты к незаданным полям
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}
