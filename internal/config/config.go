// Package config defines the top-level configuration for positionbot and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by POSBOT_* environment variables.
type Config struct {
	Mode     string `toml:"mode"`
	LogLevel string `toml:"log_level"`

	Snapshot  SnapshotConfig  `toml:"snapshot"`
	Postgres  PostgresConfig  `toml:"postgres"`
	Redis     RedisConfig     `toml:"redis"`
	S3        S3Config        `toml:"s3"`
	Stops     StopsConfig     `toml:"stops"`
	Sizing    SizingConfig    `toml:"sizing"`
	Regime    RegimeConfig    `toml:"regime"`
	Gate      GateConfig      `toml:"gate"`
	Bootstrap BootstrapConfig `toml:"bootstrap"`
	Report    ReportConfig    `toml:"report"`
}

// SnapshotConfig selects and configures the durable snapshot backend.
type SnapshotConfig struct {
	// Backend is "file" or "postgres".
	Backend string `toml:"backend"`
	// Dir is the snapshot directory for the file backend.
	Dir string `toml:"dir"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters for the panel cache.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for snapshot
// archival.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// StopsConfig holds the stop-management thresholds.
type StopsConfig struct {
	BreakevenAtR     float64 `toml:"breakeven_at_r"`
	TrailAfterR      float64 `toml:"trail_after_r"`
	TrailATRMultiple float64 `toml:"trail_atr_multiple"`
	ATRWindow        int     `toml:"atr_window"`
}

// SizingConfig holds the account risk settings for new positions.
// Percentages are fractions (0.01 = 1%).
type SizingConfig struct {
	AccountSize    float64 `toml:"account_size"`
	RiskPct        float64 `toml:"risk_pct"`
	KATR           float64 `toml:"k_atr"`
	MaxPositionPct float64 `toml:"max_position_pct"`
}

// RegimeConfig controls the benchmark regime risk multiplier.
type RegimeConfig struct {
	Enabled            bool    `toml:"enabled"`
	Benchmark          string  `toml:"benchmark"`
	SMAWindow          int     `toml:"sma_window"`
	TrendMultiplier    float64 `toml:"trend_multiplier"`
	ATRWindow          int     `toml:"atr_window"`
	VolATRPctThreshold float64 `toml:"vol_atr_pct_threshold"`
	VolMultiplier      float64 `toml:"vol_multiplier"`
}

// GateConfig holds the recommendation gate thresholds. MinRR and
// MaxFeeRiskPct of zero mean "use the gate's defaults".
type GateConfig struct {
	RRTarget      float64 `toml:"rr_target"`
	MinRR         float64 `toml:"min_rr"`
	CommissionPct float64 `toml:"commission_pct"`
	SlippageBps   float64 `toml:"slippage_bps"`
	MaxFeeRiskPct float64 `toml:"max_fee_risk_pct"`
}

// BootstrapConfig locates the broker export and ISIN map for reconciliation.
type BootstrapConfig struct {
	TransactionsPath string  `toml:"transactions_path"`
	ISINMapPath      string  `toml:"isin_map_path"`
	CSVSeparator     string  `toml:"csv_separator"`
	DefaultStopPct   float64 `toml:"default_stop_pct"`
}

// ReportConfig locates the markdown action report.
type ReportConfig struct {
	Path string `toml:"path"`
}

// Defaults returns the built-in configuration that TOML and environment
// overrides are layered on top of.
func Defaults() Config {
	return Config{
		Mode:     "manage",
		LogLevel: "info",
		Snapshot: SnapshotConfig{
			Backend: "file",
			Dir:     "data",
		},
		Postgres: PostgresConfig{
			Port:         5432,
			SSLMode:      "disable",
			PoolMaxConns: 4,
			PoolMinConns: 1,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 4,
		},
		Stops: StopsConfig{
			BreakevenAtR:     1.0,
			TrailAfterR:      2.0,
			TrailATRMultiple: 2.0,
			ATRWindow:        14,
		},
		Sizing: SizingConfig{
			AccountSize:    10_000,
			RiskPct:        0.01,
			KATR:           2.0,
			MaxPositionPct: 0.25,
		},
		Regime: RegimeConfig{
			Benchmark:          "SPY",
			SMAWindow:          200,
			TrendMultiplier:    0.5,
			ATRWindow:          14,
			VolATRPctThreshold: 3.0,
			VolMultiplier:      0.5,
		},
		Gate: GateConfig{
			RRTarget:      2.0,
			CommissionPct: 0.0025,
			SlippageBps:   5,
			MaxFeeRiskPct: 0.10,
		},
		Bootstrap: BootstrapConfig{
			TransactionsPath: "Transactions.csv",
			ISINMapPath:      "isin_map.json",
			CSVSeparator:     ",",
			DefaultStopPct:   0.08,
		},
		Report: ReportConfig{
			Path: "degiro_actions.md",
		},
	}
}

// Validate checks the configuration for internal consistency. It is called
// by the entry point after Load.
func (c *Config) Validate() error {
	switch c.Mode {
	case "manage", "bootstrap", "migrate", "propose":
	default:
		return fmt.Errorf("config: unsupported mode %q", c.Mode)
	}

	switch c.Snapshot.Backend {
	case "file":
		if strings.TrimSpace(c.Snapshot.Dir) == "" {
			return fmt.Errorf("config: snapshot.dir is required for the file backend")
		}
	case "postgres":
		if c.Postgres.DSN == "" && (c.Postgres.Host == "" || c.Postgres.Database == "" || c.Postgres.User == "") {
			return fmt.Errorf("config: postgres connection parameters are required for the postgres backend")
		}
	default:
		return fmt.Errorf("config: unsupported snapshot backend %q", c.Snapshot.Backend)
	}

	if c.Stops.BreakevenAtR < 0 || c.Stops.TrailAfterR < 0 {
		return fmt.Errorf("config: stop thresholds must not be negative")
	}
	if c.Stops.TrailATRMultiple <= 0 {
		return fmt.Errorf("config: stops.trail_atr_multiple must be positive")
	}
	if c.Stops.ATRWindow <= 0 {
		return fmt.Errorf("config: stops.atr_window must be positive")
	}

	if c.Sizing.AccountSize <= 0 {
		return fmt.Errorf("config: sizing.account_size must be positive")
	}
	if c.Sizing.RiskPct <= 0 || c.Sizing.RiskPct > 1 {
		return fmt.Errorf("config: sizing.risk_pct must be in (0, 1]")
	}
	if c.Sizing.MaxPositionPct <= 0 || c.Sizing.MaxPositionPct > 1 {
		return fmt.Errorf("config: sizing.max_position_pct must be in (0, 1]")
	}
	if c.Sizing.KATR <= 0 {
		return fmt.Errorf("config: sizing.k_atr must be positive")
	}

	if c.Regime.Enabled {
		if c.Regime.Benchmark == "" {
			return fmt.Errorf("config: regime.benchmark is required when the regime filter is enabled")
		}
		if c.Regime.SMAWindow <= 0 || c.Regime.ATRWindow <= 0 {
			return fmt.Errorf("config: regime windows must be positive")
		}
	}

	if c.Gate.RRTarget <= 0 {
		return fmt.Errorf("config: gate.rr_target must be positive")
	}

	if c.Bootstrap.DefaultStopPct < 0 || c.Bootstrap.DefaultStopPct >= 1 {
		return fmt.Errorf("config: bootstrap.default_stop_pct must be in [0, 1)")
	}
	if len([]rune(c.Bootstrap.CSVSeparator)) != 1 {
		return fmt.Errorf("config: bootstrap.csv_separator must be a single character")
	}

	return nil
}
