package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

const defaultHTTPAddr = ":5000"
const defaultPin = "1234"
const defaultAdminPassword = "4321"
const defaultStartingBalance = "123.45"
const defaultTransactionFile = "data/transactions.json"
const defaultConnectionString = "Host=localhost;Port=5432;Database=atm_simulator_db;Username=postgres;Password=postgres;Timeout=30;CommandTimeout=30"
const defaultSessionSecret = "change-me-session-secret"
const defaultSessionTTL = 30 * time.Minute
const defaultDebugUser = "atm-debug"
const defaultDebugKey = "atm-debug-key"

const (
	LedgerDriverFile     = "file"
	LedgerDriverPostgres = "postgres"
	LedgerDriverMemory   = "memory"
)

type Config struct {
	HTTPAddr        string
	DefaultPin      string
	AdminPassword   string
	StartingBalance decimal.Decimal
	LedgerDriver    string
	TransactionFile string
	DatabaseDSN     string
	MigrationsDir   string
	SessionSecret   string
	SessionTTL      time.Duration
	PinHashCost     int
	Debug           bool
	DebugUser       string
	DebugKey        string
}

// fileConfig mirrors the optional YAML file named by ATM_CONFIG_FILE.
// Environment variables take precedence over it.
type fileConfig struct {
	HTTPAddr        string `yaml:"http_addr"`
	DefaultPin      string `yaml:"default_pin"`
	AdminPassword   string `yaml:"admin_password"`
	StartingBalance string `yaml:"starting_balance"`
	Ledger          struct {
		Driver          string `yaml:"driver"`
		TransactionFile string `yaml:"transaction_file"`
		DatabaseDSN     string `yaml:"database_dsn"`
		MigrationsDir   string `yaml:"migrations_dir"`
	} `yaml:"ledger"`
	Session struct {
		Secret      string `yaml:"secret"`
		TTL         string `yaml:"ttl"`
		PinHashCost string `yaml:"pin_hash_cost"`
	} `yaml:"session"`
	Debug struct {
		Enabled string `yaml:"enabled"`
		User    string `yaml:"user"`
		Key     string `yaml:"key"`
	} `yaml:"debug"`
}

func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	var file fileConfig
	if path := strings.TrimSpace(os.Getenv("ATM_CONFIG_FILE")); path != "" {
		loaded, err := readFileConfig(path)
		if err != nil {
			return Config{}, err
		}
		file = loaded
	}

	startingBalance, err := decimal.NewFromString(setting("STARTING_BALANCE", file.StartingBalance, defaultStartingBalance))
	if err != nil {
		return Config{}, fmt.Errorf("parse STARTING_BALANCE: %w", err)
	}
	if startingBalance.IsNegative() {
		return Config{}, fmt.Errorf("STARTING_BALANCE cannot be negative")
	}

	sessionTTL, err := time.ParseDuration(setting("SESSION_TTL", file.Session.TTL, defaultSessionTTL.String()))
	if err != nil {
		return Config{}, fmt.Errorf("parse SESSION_TTL: %w", err)
	}
	if sessionTTL <= 0 {
		return Config{}, fmt.Errorf("SESSION_TTL must be greater than zero")
	}

	pinHashCost, err := strconv.Atoi(setting("PIN_HASH_COST", file.Session.PinHashCost, strconv.Itoa(bcrypt.DefaultCost)))
	if err != nil {
		return Config{}, fmt.Errorf("parse PIN_HASH_COST: %w", err)
	}
	if pinHashCost < bcrypt.MinCost || pinHashCost > bcrypt.MaxCost {
		return Config{}, fmt.Errorf("PIN_HASH_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}

	debug, err := strconv.ParseBool(setting("DEBUG", file.Debug.Enabled, "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse DEBUG: %w", err)
	}

	cfg := Config{
		HTTPAddr:        setting("HTTP_ADDR", file.HTTPAddr, defaultHTTPAddr),
		DefaultPin:      setting("DEFAULT_PIN", file.DefaultPin, defaultPin),
		AdminPassword:   setting("ADMIN_PASSWORD", file.AdminPassword, defaultAdminPassword),
		StartingBalance: startingBalance.Round(2),
		LedgerDriver:    strings.ToLower(setting("LEDGER_DRIVER", file.Ledger.Driver, LedgerDriverFile)),
		TransactionFile: setting("TRANSACTION_FILE", file.Ledger.TransactionFile, defaultTransactionFile),
		DatabaseDSN:     normalizeConnectionString(setting("DATABASE_DSN", file.Ledger.DatabaseDSN, defaultConnectionString)),
		MigrationsDir:   setting("MIGRATIONS_DIR", file.Ledger.MigrationsDir, filepath.Join("src", "migrations")),
		SessionSecret:   setting("SESSION_SECRET", file.Session.Secret, defaultSessionSecret),
		SessionTTL:      sessionTTL,
		PinHashCost:     pinHashCost,
		Debug:           debug,
		DebugUser:       setting("DEBUG_USER", file.Debug.User, defaultDebugUser),
		DebugKey:        setting("DEBUG_KEY", file.Debug.Key, defaultDebugKey),
	}

	if len(cfg.DefaultPin) != 4 || strings.Trim(cfg.DefaultPin, "0123456789") != "" {
		return Config{}, fmt.Errorf("DEFAULT_PIN must be exactly 4 digits")
	}

	switch cfg.LedgerDriver {
	case LedgerDriverFile, LedgerDriverPostgres, LedgerDriverMemory:
	default:
		return Config{}, fmt.Errorf("LEDGER_DRIVER %q is not supported", cfg.LedgerDriver)
	}

	return cfg, nil
}

func readFileConfig(path string) (fileConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return fileConfig{}, fmt.Errorf("open config file %q: %w", path, err)
	}
	defer f.Close()

	var cfg fileConfig
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return fileConfig{}, fmt.Errorf("parse config file %q: %w", path, err)
	}

	return cfg, nil
}

func setting(envKey, fileValue, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(envKey)); value != "" {
		return value
	}
	if value := strings.TrimSpace(fileValue); value != "" {
		return value
	}
	return fallback
}

func normalizeConnectionString(raw string) string {
	if strings.HasPrefix(raw, "postgres://") || strings.HasPrefix(raw, "postgresql://") {
		return raw
	}

	parts := strings.Split(raw, ";")
	out := make([]string, 0, len(parts))
	hasSSLMode := false

	for _, part := range parts {
		p := strings.TrimSpace(part)
		if p == "" {
			continue
		}

		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}

		key := strings.ToLower(strings.TrimSpace(kv[0]))
		val := strings.TrimSpace(kv[1])

		switch key {
		case "host":
			out = append(out, "host="+val)
		case "port":
			out = append(out, "port="+val)
		case "database":
			out = append(out, "dbname="+val)
		case "username":
			out = append(out, "user="+val)
		case "password":
			out = append(out, "password="+val)
		case "timeout", "connect timeout":
			out = append(out, "connect_timeout="+val)
		case "commandtimeout", "command timeout":
			out = append(out, "statement_timeout="+val+"s")
		case "sslmode":
			hasSSLMode = true
			out = append(out, "sslmode="+val)
		default:
			out = append(out, key+"="+val)
		}
	}

	if len(out) == 0 {
		return raw
	}

	if !hasSSLMode {
		out = append(out, "sslmode=disable")
	}

	return strings.Join(out, " ")
}
