package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures environment driven configuration values for the reservation service.
type Config struct {
	HTTPPort           int
	SQLiteDSN          string
	JWTSecret          string
	TokenTTL           time.Duration
	LoginRatePerMinute float64
	LoginBurst         int
}

// Load parses configuration values from the current process environment.
//
// The loader applies sensible defaults for optional fields while validating
// required values and reporting every missing or malformed entry at once.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:           8080,
		SQLiteDSN:          "file:reservations.db?_foreign_keys=on",
		TokenTTL:           8 * time.Hour,
		LoginRatePerMinute: 10,
		LoginBurst:         5,
	}

	missing := make([]string, 0, 1)
	invalid := make([]string, 0, 2)

	if portValue := strings.TrimSpace(os.Getenv("RESERVATIONS_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 {
			invalid = append(invalid, "RESERVATIONS_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("RESERVATIONS_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if secret := strings.TrimSpace(os.Getenv("RESERVATIONS_JWT_SECRET")); secret == "" {
		missing = append(missing, "RESERVATIONS_JWT_SECRET")
	} else {
		cfg.JWTSecret = secret
	}

	if ttlValue := strings.TrimSpace(os.Getenv("RESERVATIONS_TOKEN_TTL")); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, "RESERVATIONS_TOKEN_TTL")
		} else {
			cfg.TokenTTL = ttl
		}
	}

	if rateValue := strings.TrimSpace(os.Getenv("RESERVATIONS_LOGIN_RATE_PER_MINUTE")); rateValue != "" {
		perMinute, err := strconv.ParseFloat(rateValue, 64)
		if err != nil || perMinute <= 0 {
			invalid = append(invalid, "RESERVATIONS_LOGIN_RATE_PER_MINUTE")
		} else {
			cfg.LoginRatePerMinute = perMinute
		}
	}

	if burstValue := strings.TrimSpace(os.Getenv("RESERVATIONS_LOGIN_BURST")); burstValue != "" {
		burst, err := strconv.Atoi(burstValue)
		if err != nil || burst <= 0 {
			invalid = append(invalid, "RESERVATIONS_LOGIN_BURST")
		} else {
			cfg.LoginBurst = burst
		}
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variable values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}
