package config

import (
	"fmt"
	"os"
)

// Config is the environment-driven runtime configuration.
type Config struct {
	Port string

	// AuthMode selects how the already-authenticated subject reaches us:
	// "jwt" verifies HS256 bearer tokens, "dev" trusts X-Debug-Subject.
	AuthMode   string
	JWTSecret  string
	DevSubject string

	// StorageBackend selects trip/membership/profile persistence:
	// "memory" (default) or "postgres".
	StorageBackend string
	DatabaseURL    string
	MigrationsDir  string

	// PositionBackend selects the position cache: "memory" (default) or
	// "redis".
	PositionBackend string
	RedisURL        string
}

func Load() (Config, error) {
	cfg := Config{
		Port:            getenv("PORT", "8080"),
		AuthMode:        getenv("AUTH_MODE", "jwt"),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		DevSubject:      getenv("DEV_SUBJECT", "dev|local"),
		StorageBackend:  getenv("STORAGE_BACKEND", "memory"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		MigrationsDir:   getenv("MIGRATIONS_DIR", "migrations"),
		PositionBackend: getenv("POSITION_BACKEND", "memory"),
		RedisURL:        getenv("REDIS_URL", "localhost:6379"),
	}

	switch cfg.AuthMode {
	case "jwt":
		if cfg.JWTSecret == "" {
			return Config{}, fmt.Errorf("AUTH_MODE=jwt requires JWT_SECRET")
		}
	case "dev":
	default:
		return Config{}, fmt.Errorf("unknown AUTH_MODE %q", cfg.AuthMode)
	}

	switch cfg.StorageBackend {
	case "memory":
	case "postgres":
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("STORAGE_BACKEND=postgres requires DATABASE_URL")
		}
	default:
		return Config{}, fmt.Errorf("unknown STORAGE_BACKEND %q", cfg.StorageBackend)
	}

	switch cfg.PositionBackend {
	case "memory", "redis":
	default:
		return Config{}, fmt.Errorf("unknown POSITION_BACKEND %q", cfg.PositionBackend)
	}

	return cfg, nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
