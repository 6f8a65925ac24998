package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/alejandrodnm/predictor/internal/domain"
	"github.com/alejandrodnm/predictor/internal/scoring"
	"github.com/alejandrodnm/predictor/internal/sizing"
)

// Config es la configuración completa del predictor.
type Config struct {
	Risk        RiskConfig        `yaml:"risk"`
	Tiers       []domain.Tier     `yaml:"tiers"`
	Scoring     scoring.Config    `yaml:"scoring"`
	Calibration CalibrationConfig `yaml:"calibration"`
	Storage     StorageConfig     `yaml:"storage"`
	Pipeline    PipelineConfig    `yaml:"pipeline"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Log         LogConfig         `yaml:"log"`
}

// RiskConfig controla los gates del motor de sizing.
type RiskConfig struct {
	StartingCapital  float64 `yaml:"starting_capital"` // base del balance derivado del storage
	BalanceFloor     float64 `yaml:"balance_floor"`
	MaxOpenPositions int     `yaml:"max_open_positions"`
	MinContracts     int     `yaml:"min_contracts"`
	MinEdge          float64 `yaml:"min_edge"`
	MinMaxTradeUSD   float64 `yaml:"min_max_trade_usd"` // suelo en $ del máximo por trade
	MinDailyCapUSD   float64 `yaml:"min_daily_cap_usd"` // suelo en $ del cap diario
}

// CalibrationConfig elige de dónde sale la tabla de calibración.
type CalibrationConfig struct {
	Source             string  `yaml:"source"`   // file | http | sqlite | builtin | none
	Location           string  `yaml:"location"` // ruta o URL según source
	ReloadSeconds      int     `yaml:"reload_seconds"`
	LoadTimeoutSeconds int     `yaml:"load_timeout_seconds"`
	BinWidth           float64 `yaml:"bin_width"` // para calibration rebuild
}

// StorageConfig controla dónde se persisten los datos.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// PipelineConfig controla el ciclo evaluate/watch.
type PipelineConfig struct {
	IntervalSeconds int    `yaml:"interval_seconds"`
	Workers         int    `yaml:"workers"` // 0 = NumCPU*2
	Signals         string `yaml:"signals"` // fichero de señales por defecto
}

// MetricsConfig controla el endpoint de Prometheus en watch.
type MetricsConfig struct {
	Addr string `yaml:"addr"` // vacío = deshabilitado
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Default devuelve la configuración de producción sin fichero.
func Default() *Config {
	risk := sizing.DefaultConfig()
	cfg := &Config{
		Risk: RiskConfig{
			StartingCapital:  1000,
			BalanceFloor:     risk.BalanceFloor,
			MaxOpenPositions: risk.MaxOpenPositions,
			MinContracts:     risk.MinContracts,
			MinEdge:          risk.MinEdge,
		},
		Tiers:   risk.Tiers.Tiers,
		Scoring: scoring.DefaultConfig(),
		Calibration: CalibrationConfig{
			Source:        "sqlite",
			ReloadSeconds: 3600,
			BinWidth:      0.05,
		},
	}
	setDefaults(cfg)
	return cfg
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Los valores del .env sobreescriben los del YAML para las keys que correspondan.
// Un path vacío usa solo defaults y entorno. El resultado ya está validado.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
		}
		// Se decodifica sobre los defaults: las claves ausentes los conservan.
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	setDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return cfg, nil
}

// Sizing construye la configuración del motor de gates.
func (c *Config) Sizing() sizing.Config {
	return sizing.Config{
		BalanceFloor:     c.Risk.BalanceFloor,
		MaxOpenPositions: c.Risk.MaxOpenPositions,
		MinContracts:     c.Risk.MinContracts,
		MinEdge:          c.Risk.MinEdge,
		Tiers: domain.TierTable{
			Tiers:          c.Tiers,
			MinMaxTradeUSD: c.Risk.MinMaxTradeUSD,
			MinDailyCapUSD: c.Risk.MinDailyCapUSD,
		},
	}
}

// Interval devuelve el intervalo entre ciclos como time.Duration.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.Pipeline.IntervalSeconds) * time.Second
}

// ReloadInterval devuelve cada cuánto se recarga la calibración (0 = nunca).
func (c *Config) ReloadInterval() time.Duration {
	return time.Duration(c.Calibration.ReloadSeconds) * time.Second
}

// LoadTimeout devuelve el timeout de carga de la tabla de calibración.
func (c *Config) LoadTimeout() time.Duration {
	return time.Duration(c.Calibration.LoadTimeoutSeconds) * time.Second
}

// Validate comprueba todo lo que sería fatal al arrancar.
func (c *Config) Validate() error {
	var errs []error
	if err := c.Sizing().Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Scoring.Validate(); err != nil {
		errs = append(errs, err)
	}
	if !domain.IsFinite(c.Risk.StartingCapital) || c.Risk.StartingCapital < 0 {
		errs = append(errs, fmt.Errorf("risk: starting_capital must be non-negative"))
	}
	switch c.Calibration.Source {
	case "file", "http":
		if c.Calibration.Location == "" {
			errs = append(errs, fmt.Errorf("calibration: source %q needs a location", c.Calibration.Source))
		}
	case "sqlite", "builtin", "none":
	default:
		errs = append(errs, fmt.Errorf("calibration: unknown source %q", c.Calibration.Source))
	}
	if c.Calibration.BinWidth <= 0 || c.Calibration.BinWidth > 1 {
		errs = append(errs, fmt.Errorf("calibration: bin_width %.4f outside (0,1]", c.Calibration.BinWidth))
	}
	if c.Pipeline.Workers < 0 {
		errs = append(errs, fmt.Errorf("pipeline: workers must be non-negative"))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log: unknown format %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("PREDICTOR_DB"); v != "" {
		cfg.Storage.DSN = v
	}
	if v := os.Getenv("PREDICTOR_CALIBRATION_SOURCE"); v != "" {
		cfg.Calibration.Source = v
	}
	if v := os.Getenv("PREDICTOR_CALIBRATION_LOCATION"); v != "" {
		cfg.Calibration.Location = v
	}
	if v := os.Getenv("PREDICTOR_STARTING_CAPITAL"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("PREDICTOR_STARTING_CAPITAL: %w", err)
		}
		cfg.Risk.StartingCapital = f
	}
	return nil
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Pipeline.IntervalSeconds <= 0 {
		cfg.Pipeline.IntervalSeconds = 300
	}
	if cfg.Calibration.Source == "" {
		cfg.Calibration.Source = "sqlite"
	}
	if cfg.Calibration.ReloadSeconds < 0 {
		cfg.Calibration.ReloadSeconds = 0
	}
	if cfg.Calibration.LoadTimeoutSeconds <= 0 {
		cfg.Calibration.LoadTimeoutSeconds = 10
	}
	if cfg.Calibration.BinWidth == 0 {
		cfg.Calibration.BinWidth = 0.05
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "predictor.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
