package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/heliosensium/site/internal/config"
	jwtpkg "github.com/heliosensium/site/internal/pkg/jwt"
	"go.uber.org/zap"
)

// applyRuntimeSettings pushes process-wide settings (signing secret, local
// timezone) out of the config before anything else starts.
func applyRuntimeSettings(cfg *config.AppConfig, logger *zap.Logger) error {
	secret := strings.TrimSpace(cfg.JWTSecret)
	if secret == "" {
		logger.Warn("jwt_secret is empty, admin tokens are signed with the built-in secret", zap.String("env", cfg.Env))
	} else {
		jwtpkg.SetSecret(secret)
	}

	tz := strings.TrimSpace(cfg.Timezone)
	if tz == "" {
		return nil
	}
	loc, err := parseTimezoneLocation(tz)
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", tz, err)
	}
	time.Local = loc
	_ = os.Setenv("TZ", tz)
	return nil
}

// parseTimezoneLocation accepts an IANA name or a fixed "+hh:mm" offset.
func parseTimezoneLocation(raw string) (*time.Location, error) {
	tz := strings.TrimSpace(raw)
	if tz == "" {
		return time.Local, nil
	}
	if loc, err := time.LoadLocation(tz); err == nil {
		return loc, nil
	}
	if strings.HasPrefix(tz, "+") || strings.HasPrefix(tz, "-") {
		if t, err := time.Parse("-07:00", tz); err == nil {
			_, offset := t.Zone()
			return time.FixedZone("UTC"+tz, offset), nil
		}
	}
	return nil, fmt.Errorf("expect IANA zone (e.g. Asia/Kolkata) or UTC offset (e.g. +05:30)")
}
