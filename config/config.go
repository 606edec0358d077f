package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa de swipebot.
type Config struct {
	Batch     BatchConfig     `yaml:"batch"`
	API       APIConfig       `yaml:"api"`
	Chain     ChainConfig     `yaml:"chain"`
	Storage   StorageConfig   `yaml:"storage"`
	Log       LogConfig       `yaml:"log"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Paper     PaperConfig     `yaml:"paper"`
}

// BatchConfig controla el batching de swipes.
type BatchConfig struct {
	MaxSize           int     `yaml:"max_size"`
	InactivitySeconds int     `yaml:"inactivity_seconds"`
	ReleaseCooldownMS int     `yaml:"release_cooldown_ms"`
	StaleAfterMinutes int     `yaml:"stale_after_minutes"` // 0 = default, <0 = desactivado
	DefaultStakeUSDC  float64 `yaml:"default_stake_usdc"`
}

// APIConfig contiene los base URLs de las APIs.
type APIConfig struct {
	GammaBase string `yaml:"gamma_base"`
}

// ChainConfig contiene la conexión a Polygon y las direcciones de contratos.
type ChainConfig struct {
	RPCURL           string `yaml:"rpc_url"`
	ChainID          int64  `yaml:"chain_id"`
	PrivateKey       string `yaml:"-"` // solo desde env: SWIPE_PRIVATE_KEY
	ProxyFactory     string `yaml:"proxy_factory"`
	Collateral       string `yaml:"collateral"`
	ProxyWallet      string `yaml:"proxy_wallet"` // dueño de la allowance; override: SWIPE_PROXY_WALLET
	PollIntervalSecs int    `yaml:"poll_interval_seconds"`
}

// StorageConfig controla dónde se persisten los datos.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// TelemetryConfig activa el tracing OTLP. Endpoint vacío = desactivado.
type TelemetryConfig struct {
	Endpoint    string `yaml:"endpoint"`
	ServiceName string `yaml:"service_name"`
}

// PaperConfig controla la simulación de -dry-run.
type PaperConfig struct {
	BudgetUSDC          float64 `yaml:"budget_usdc"`
	ConfirmDelaySeconds int     `yaml:"confirm_delay_seconds"`
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Las variables de entorno sobreescriben los valores del YAML.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	return &cfg, nil
}

// InactivityTimeout devuelve el timeout de inactividad del batch.
func (c *Config) InactivityTimeout() time.Duration {
	return time.Duration(c.Batch.InactivitySeconds) * time.Second
}

// ReleaseCooldown devuelve la espera antes de liberar el gate.
func (c *Config) ReleaseCooldown() time.Duration {
	return time.Duration(c.Batch.ReleaseCooldownMS) * time.Millisecond
}

// StaleAfter devuelve el umbral del watchdog; 0 si está desactivado.
func (c *Config) StaleAfter() time.Duration {
	if c.Batch.StaleAfterMinutes < 0 {
		return 0
	}
	return time.Duration(c.Batch.StaleAfterMinutes) * time.Minute
}

// PollInterval devuelve cada cuánto se consulta el receipt.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Chain.PollIntervalSecs) * time.Second
}

// PaperConfirmDelay devuelve cuánto tarda en confirmarse un batch simulado.
func (c *Config) PaperConfirmDelay() time.Duration {
	return time.Duration(c.Paper.ConfirmDelaySeconds) * time.Second
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("SWIPE_PRIVATE_KEY"); v != "" {
		cfg.Chain.PrivateKey = v
	}
	if v := os.Getenv("SWIPE_PROXY_WALLET"); v != "" {
		cfg.Chain.ProxyWallet = v
	}
	if v := os.Getenv("POLYGON_RPC_URL"); v != "" {
		cfg.Chain.RPCURL = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		cfg.Telemetry.Endpoint = v
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Batch.MaxSize <= 0 {
		cfg.Batch.MaxSize = 5
	}
	if cfg.Batch.InactivitySeconds <= 0 {
		cfg.Batch.InactivitySeconds = 8
	}
	if cfg.Batch.ReleaseCooldownMS <= 0 {
		cfg.Batch.ReleaseCooldownMS = 1500
	}
	if cfg.Batch.StaleAfterMinutes == 0 {
		cfg.Batch.StaleAfterMinutes = 10
	}
	if cfg.Batch.DefaultStakeUSDC <= 0 {
		cfg.Batch.DefaultStakeUSDC = 1
	}
	if cfg.API.GammaBase == "" {
		cfg.API.GammaBase = "https://gamma-api.polymarket.com"
	}
	if cfg.Chain.RPCURL == "" {
		cfg.Chain.RPCURL = "https://polygon-rpc.com"
	}
	if cfg.Chain.ChainID == 0 {
		cfg.Chain.ChainID = 137
	}
	if cfg.Chain.PollIntervalSecs <= 0 {
		cfg.Chain.PollIntervalSecs = 3
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "swipebot.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "swipebot"
	}
	if cfg.Paper.BudgetUSDC <= 0 {
		cfg.Paper.BudgetUSDC = 100
	}
	if cfg.Paper.ConfirmDelaySeconds <= 0 {
		cfg.Paper.ConfirmDelaySeconds = 2
	}
}
