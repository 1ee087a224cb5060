package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/freezer-inventory/internal/core/domain"
)

type StoreKind string

const (
	StoreCSV   StoreKind = "csv"
	StoreMySQL StoreKind = "mysql"
)

type LockKind string

const (
	LockNone  LockKind = "none"
	LockFile  LockKind = "file"
	LockRedis LockKind = "redis"
)

type Config struct {
	HTTPAddr        string
	GRPCAddr        string
	Locations       []string
	Store           StoreKind
	File            string
	MySQLDSN        string
	Lock            LockKind
	RedisAddr       string
	LockTimeout     time.Duration
	RefillThreshold decimal.Decimal
	// MaxCapacity is the nominal units per pan. It is reported, never enforced.
	MaxCapacity int
	LogDev      bool
}

// Load reads the INVENTORY_* environment, falling back to defaults.
func Load() (Config, error) {
	cfg := Config{
		HTTPAddr:  getenv("INVENTORY_HTTP_ADDR", ":8080"),
		GRPCAddr:  getenv("INVENTORY_GRPC_ADDR", ":50051"),
		Store:     StoreKind(strings.ToLower(getenv("INVENTORY_STORE", string(StoreCSV)))),
		File:      getenv("INVENTORY_FILE", "inventory.csv"),
		MySQLDSN:  getenv("MYSQL_DSN", "root:root@tcp(localhost:3306)/freezer?parseTime=true"),
		RedisAddr: getenv("REDIS_ADDR", "localhost:6379"),
	}

	cfg.Locations = splitLocations(getenv("INVENTORY_LOCATIONS", "-18,-12"))
	if len(cfg.Locations) == 0 {
		return Config{}, fmt.Errorf("INVENTORY_LOCATIONS: no freezers configured")
	}

	switch cfg.Store {
	case StoreCSV, StoreMySQL:
	default:
		return Config{}, fmt.Errorf("INVENTORY_STORE: unknown store %q", cfg.Store)
	}

	// A file lock only guards processes on one host; the mysql store is shared
	// across hosts, so it defaults to redis and refuses file.
	defaultLock := LockFile
	if cfg.Store == StoreMySQL {
		defaultLock = LockRedis
	}
	cfg.Lock = LockKind(strings.ToLower(getenv("INVENTORY_LOCK", string(defaultLock))))
	switch cfg.Lock {
	case LockNone, LockFile, LockRedis:
	default:
		return Config{}, fmt.Errorf("INVENTORY_LOCK: unknown lock %q", cfg.Lock)
	}
	if cfg.Store == StoreMySQL && cfg.Lock == LockFile {
		return Config{}, fmt.Errorf("INVENTORY_LOCK: file lock cannot guard the mysql store, use redis or none")
	}

	var err error
	if cfg.LockTimeout, err = time.ParseDuration(getenv("INVENTORY_LOCK_TIMEOUT", "5s")); err != nil {
		return Config{}, fmt.Errorf("INVENTORY_LOCK_TIMEOUT: %w", err)
	}
	if cfg.LockTimeout < 0 {
		return Config{}, fmt.Errorf("INVENTORY_LOCK_TIMEOUT: must not be negative")
	}

	if cfg.RefillThreshold, err = domain.ParseQuantity(getenv("INVENTORY_REFILL_THRESHOLD", "1")); err != nil {
		return Config{}, fmt.Errorf("INVENTORY_REFILL_THRESHOLD: %w", err)
	}

	if cfg.MaxCapacity, err = strconv.Atoi(getenv("INVENTORY_MAX_CAPACITY", "10")); err != nil {
		return Config{}, fmt.Errorf("INVENTORY_MAX_CAPACITY: %w", err)
	}

	if cfg.LogDev, err = strconv.ParseBool(getenv("INVENTORY_LOG_DEV", "false")); err != nil {
		return Config{}, fmt.Errorf("INVENTORY_LOG_DEV: %w", err)
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func splitLocations(raw string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, part := range strings.Split(raw, ",") {
		loc := strings.TrimSpace(part)
		if loc == "" {
			continue
		}
		if _, dup := seen[loc]; dup {
			continue
		}
		seen[loc] = struct{}{}
		out = append(out, loc)
	}
	return out
}
