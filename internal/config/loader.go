package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies POSBOT_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		// Missing config file is fine; defaults plus env cover it.
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known POSBOT_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	setStr(&cfg.Mode, "POSBOT_MODE")
	setStr(&cfg.LogLevel, "POSBOT_LOG_LEVEL")

	setStr(&cfg.Snapshot.Backend, "POSBOT_SNAPSHOT_BACKEND")
	setStr(&cfg.Snapshot.Dir, "POSBOT_SNAPSHOT_DIR")

	setStr(&cfg.Postgres.DSN, "POSBOT_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "POSBOT_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "POSBOT_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "POSBOT_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "POSBOT_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "POSBOT_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "POSBOT_POSTGRES_SSLMODE")
	setBool(&cfg.Postgres.RunMigrations, "POSBOT_POSTGRES_RUN_MIGRATIONS")

	setBool(&cfg.Redis.Enabled, "POSBOT_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "POSBOT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "POSBOT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "POSBOT_REDIS_DB")
	setBool(&cfg.Redis.TLSEnabled, "POSBOT_REDIS_TLS_ENABLED")

	setBool(&cfg.S3.Enabled, "POSBOT_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "POSBOT_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "POSBOT_S3_REGION")
	setStr(&cfg.S3.Bucket, "POSBOT_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "POSBOT_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "POSBOT_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "POSBOT_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "POSBOT_S3_FORCE_PATH_STYLE")

	setFloat64(&cfg.Stops.BreakevenAtR, "POSBOT_STOPS_BREAKEVEN_AT_R")
	setFloat64(&cfg.Stops.TrailAfterR, "POSBOT_STOPS_TRAIL_AFTER_R")
	setFloat64(&cfg.Stops.TrailATRMultiple, "POSBOT_STOPS_TRAIL_ATR_MULTIPLE")
	setInt(&cfg.Stops.ATRWindow, "POSBOT_STOPS_ATR_WINDOW")

	setFloat64(&cfg.Sizing.AccountSize, "POSBOT_SIZING_ACCOUNT_SIZE")
	setFloat64(&cfg.Sizing.RiskPct, "POSBOT_SIZING_RISK_PCT")
	setFloat64(&cfg.Sizing.KATR, "POSBOT_SIZING_K_ATR")
	setFloat64(&cfg.Sizing.MaxPositionPct, "POSBOT_SIZING_MAX_POSITION_PCT")

	setBool(&cfg.Regime.Enabled, "POSBOT_REGIME_ENABLED")
	setStr(&cfg.Regime.Benchmark, "POSBOT_REGIME_BENCHMARK")

	setStr(&cfg.Bootstrap.TransactionsPath, "POSBOT_BOOTSTRAP_TRANSACTIONS_PATH")
	setStr(&cfg.Bootstrap.ISINMapPath, "POSBOT_BOOTSTRAP_ISIN_MAP_PATH")
	setStr(&cfg.Bootstrap.CSVSeparator, "POSBOT_BOOTSTRAP_CSV_SEPARATOR")

	setStr(&cfg.Report.Path, "POSBOT_REPORT_PATH")
}

// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
