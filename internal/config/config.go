package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"optexec/internal/execution"
)

// EnvPrefix namespaces every environment variable, e.g. OPTEXEC_SERVER_PORT
const EnvPrefix = "OPTEXEC"

// Config represents the complete application configuration
type Config struct {
	Server     ServerConfig     `yaml:"server" envconfig:"SERVER"`
	Security   SecurityConfig   `yaml:"security" envconfig:"SECURITY"`
	Logging    LoggingConfig    `yaml:"logging" envconfig:"LOGGING"`
	Execution  ExecutionConfig  `yaml:"execution" envconfig:"EXECUTION"`
	MarketData MarketDataConfig `yaml:"market_data" envconfig:"MARKET_DATA"`
	Telemetry  TelemetryConfig  `yaml:"telemetry" envconfig:"TELEMETRY"`
	Reports    ReportsConfig    `yaml:"reports" envconfig:"REPORTS"`
	WebSocket  WebSocketConfig  `yaml:"websocket" envconfig:"WEBSOCKET"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host" envconfig:"HOST"`
	Port            int           `yaml:"port" envconfig:"PORT" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" validate:"gt=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" validate:"gt=0"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" validate:"gte=0"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES" validate:"gt=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" validate:"gt=0"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT" validate:"gt=0"`
}

// Address returns the listen address
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" validate:"gt=0"`
	Burst   int     `yaml:"burst" envconfig:"BURST" validate:"gt=0"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn error"`
	Format      string `yaml:"format" envconfig:"FORMAT" validate:"oneof=json text"`
	Output      string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH"`
	MaxSizeMB   int    `yaml:"max_size_mb" envconfig:"MAX_SIZE_MB" validate:"gte=0"`
	MaxBackups  int    `yaml:"max_backups" envconfig:"MAX_BACKUPS" validate:"gte=0"`
	MaxAgeDays  int    `yaml:"max_age_days" envconfig:"MAX_AGE_DAYS" validate:"gte=0"`
	Compress    bool   `yaml:"compress" envconfig:"COMPRESS"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT"`
}

// ExecutionConfig contains the execution engine tunables
type ExecutionConfig struct {
	RiskAversion           float64 `yaml:"risk_aversion" envconfig:"RISK_AVERSION" validate:"gte=0"`
	PermanentImpactFactor  float64 `yaml:"permanent_impact_factor" envconfig:"PERMANENT_IMPACT_FACTOR" validate:"gte=0"`
	TemporaryImpactFactor  float64 `yaml:"temporary_impact_factor" envconfig:"TEMPORARY_IMPACT_FACTOR" validate:"gte=0"`
	TimeHorizon            int     `yaml:"time_horizon" envconfig:"TIME_HORIZON" validate:"gt=0,gtefield=MinTimeSlice"`
	MinTimeSlice           int     `yaml:"min_time_slice" envconfig:"MIN_TIME_SLICE" validate:"gt=0"`
	MaxParticipation       float64 `yaml:"max_participation" envconfig:"MAX_PARTICIPATION" validate:"gt=0,lte=1"`
	VaRConfidence          float64 `yaml:"var_confidence" envconfig:"VAR_CONFIDENCE" validate:"gt=0,lt=1"`
	OptimizerMaxIterations int     `yaml:"optimizer_max_iterations" envconfig:"OPTIMIZER_MAX_ITERATIONS" validate:"gt=0"`
}

// EngineConfig converts to the engine's configuration value
func (e ExecutionConfig) EngineConfig() execution.Config {
	return execution.Config{
		RiskAversion:           e.RiskAversion,
		PermanentImpactFactor:  e.PermanentImpactFactor,
		TemporaryImpactFactor:  e.TemporaryImpactFactor,
		TimeHorizon:            e.TimeHorizon,
		MinTimeSlice:           e.MinTimeSlice,
		MaxParticipation:       e.MaxParticipation,
		VaRConfidence:          e.VaRConfidence,
		OptimizerMaxIterations: e.OptimizerMaxIterations,
	}
}

// MarketDataConfig selects and tunes the market data provider
type MarketDataConfig struct {
	Source        string  `yaml:"source" envconfig:"SOURCE" validate:"oneof=simulated fixed"`
	Seed          int64   `yaml:"seed" envconfig:"SEED"`
	AverageVolume float64 `yaml:"average_volume" envconfig:"AVERAGE_VOLUME" validate:"gt=0"`
	Volatility    float64 `yaml:"volatility" envconfig:"VOLATILITY" validate:"gte=0"`
	Momentum      float64 `yaml:"momentum" envconfig:"MOMENTUM"`
	Spread        float64 `yaml:"spread" envconfig:"SPREAD" validate:"gte=0"`
}

// TelemetryConfig contains tracing and metrics configuration
type TelemetryConfig struct {
	ServiceName    string  `yaml:"service_name" envconfig:"SERVICE_NAME" validate:"required"`
	Environment    string  `yaml:"environment" envconfig:"ENVIRONMENT"`
	TraceExporter  string  `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER" validate:"oneof=stdout none"`
	SampleRatio    float64 `yaml:"sample_ratio" envconfig:"SAMPLE_RATIO" validate:"gte=0,lte=1"`
	MetricsEnabled bool    `yaml:"metrics_enabled" envconfig:"METRICS_ENABLED"`
}

// ReportsConfig contains report export configuration
type ReportsConfig struct {
	OutputDir string   `yaml:"output_dir" envconfig:"OUTPUT_DIR" validate:"required"`
	Formats   []string `yaml:"formats" envconfig:"FORMATS" validate:"dive,oneof=csv xlsx json"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size" envconfig:"READ_BUFFER_SIZE" validate:"gt=0"`
	WriteBufferSize int           `yaml:"write_buffer_size" envconfig:"WRITE_BUFFER_SIZE" validate:"gt=0"`
	PingPeriod      time.Duration `yaml:"ping_period" envconfig:"PING_PERIOD" validate:"gt=0"`
	PongWait        time.Duration `yaml:"pong_wait" envconfig:"PONG_WAIT" validate:"gtfield=PingPeriod"`
}

// Load loads configuration from defaults, an optional YAML file, a .env file and
// environment variables, in increasing order of precedence
func Load() (*Config, error) {
	return LoadFile(os.Getenv(EnvPrefix + "_CONFIG_FILE"))
}

// LoadFile is Load with an explicit config file path. An empty path searches the
// default locations.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = getConfigFilePath()
	}
	if path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// .env never overrides variables already set in the process environment
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays a YAML file onto cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

var structValidator = validator.New(validator.WithRequiredStructEnabled())

// validate validates the configuration
func (c *Config) validate() error {
	if err := structValidator.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
			return errors.New(strings.Join(msgs, "; "))
		}
		return err
	}

	if err := c.Execution.EngineConfig().Validate(); err != nil {
		return err
	}

	if c.Logging.Output != "console" && c.Logging.FilePath == "" {
		return fmt.Errorf("logging output %q requires a file path", c.Logging.Output)
	}

	if c.Security.EnableCORS && len(c.Security.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed origin must be specified when CORS is enabled")
	}

	return nil
}

// getConfigFilePath returns the first config file found in the common locations
func getConfigFilePath() string {
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		"../configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return ""
}

// Default returns default configuration
func Default() *Config {
	engine := execution.DefaultConfig()
	return &Config{
		Server: ServerConfig{
			Host:            "",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20, // 1MB
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  10 * time.Second,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     DefaultRateLimit,
				Burst:   DefaultBurstSize,
			},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			Output:     "console",
			FilePath:   "logs/optexec.log",
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 28,
			Compress:   true,
		},
		Execution: ExecutionConfig{
			RiskAversion:           engine.RiskAversion,
			PermanentImpactFactor:  engine.PermanentImpactFactor,
			TemporaryImpactFactor:  engine.TemporaryImpactFactor,
			TimeHorizon:            engine.TimeHorizon,
			MinTimeSlice:           engine.MinTimeSlice,
			MaxParticipation:       engine.MaxParticipation,
			VaRConfidence:          engine.VaRConfidence,
			OptimizerMaxIterations: engine.OptimizerMaxIterations,
		},
		MarketData: MarketDataConfig{
			Source:        "simulated",
			Seed:          42,
			AverageVolume: 1_000_000,
			Volatility:    0.02,
			Momentum:      0,
			Spread:        0.02,
		},
		Telemetry: TelemetryConfig{
			ServiceName:    AppName,
			Environment:    "development",
			TraceExporter:  "none",
			SampleRatio:    1.0,
			MetricsEnabled: true,
		},
		Reports: ReportsConfig{
			OutputDir: DefaultReportsDir,
			Formats:   []string{"csv", "json"},
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			PingPeriod:      WebSocketPingPeriod,
			PongWait:        WebSocketPongWait,
		},
	}
}
