package config

import "strings"

func normalizeDatabaseConfig(cfg DatabaseRuntimeConfig) DatabaseRuntimeConfig {
	cfg.DSN = strings.TrimSpace(cfg.DSN)
	cfg.URL = strings.TrimSpace(cfg.URL)
	cfg.Host = firstNonEmpty(cfg.Host, defaultDBHost)
	cfg.User = firstNonEmpty(cfg.User, cfg.Username, defaultDBUser)
	cfg.Username = strings.TrimSpace(cfg.Username)
	cfg.Password = firstNonEmpty(cfg.Password, defaultDBPassword)
	cfg.Name = firstNonEmpty(cfg.Name, cfg.DBName, defaultDBName)
	cfg.DBName = strings.TrimSpace(cfg.DBName)
	cfg.Charset = firstNonEmpty(cfg.Charset, defaultDBCharset)
	cfg.Loc = firstNonEmpty(cfg.Loc, defaultDBLoc)
	if cfg.Port == 0 {
		cfg.Port = defaultDBPort
	}

	if cfg.MaxOpenConns <= 0 {
		cfg.MaxOpenConns = defaultDBMaxOpen
	}
	if cfg.MaxIdleConns <= 0 || cfg.MaxIdleConns > cfg.MaxOpenConns {
		cfg.MaxIdleConns = min(defaultDBMaxIdle, cfg.MaxOpenConns)
	}
	cfg.Params = copyStringMap(cfg.Params)
	return cfg
}

func normalizeRedisConfig(cfg RedisRuntimeConfig) RedisRuntimeConfig {
	cfg.URL = normalizeRedisRawURL(cfg.URL)
	cfg.Username = strings.TrimSpace(cfg.Username)
	cfg.Password = strings.TrimSpace(cfg.Password)
	cfg.Scheme = redisScheme(cfg.Scheme, cfg.TLS)
	if cfg.URL == "" {
		cfg.Host = firstNonEmpty(cfg.Host, defaultRedisHost)
	}
	if cfg.Port == 0 {
		cfg.Port = defaultRedisPort
	}
	cfg.Params = copyStringMap(cfg.Params)
	return cfg
}

func normalizeRedisRawURL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	if strings.HasPrefix(trimmed, "redis://") || strings.HasPrefix(trimmed, "rediss://") {
		return trimmed
	}
	return "redis://" + trimmed
}

func normalizeSiteConfig(cfg SiteConfig) SiteConfig {
	cfg.Name = strings.TrimSpace(cfg.Name)
	cfg.URL = strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	cfg.Description = strings.TrimSpace(cfg.Description)
	cfg.AdminPath = strings.Trim(strings.TrimSpace(cfg.AdminPath), "/")
	if cfg.Name == "" {
		cfg.Name = defaultSiteName
	}
	if cfg.URL == "" {
		cfg.URL = defaultSiteURL
	}
	if cfg.AdminPath == "" {
		cfg.AdminPath = defaultAdminPath
	}
	return cfg
}

func normalizeAuthConfig(cfg AuthConfig) AuthConfig {
	cfg.BootstrapUser = strings.TrimSpace(cfg.BootstrapUser)
	cfg.BootstrapEmail = strings.TrimSpace(cfg.BootstrapEmail)
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = defaultSessionTTL
	}
	return cfg
}

func normalizeModerationConfig(cfg ModerationConfig) ModerationConfig {
	if cfg.SubmitWindow <= 0 {
		cfg.SubmitWindow = defaultSubmitWindow
	}
	if cfg.RejectedRetentionDays < 0 {
		cfg.RejectedRetentionDays = 0
	}
	cfg.NotifyEmails = normalizeOrigins(cfg.NotifyEmails)
	return cfg
}

func normalizeMailConfig(cfg MailConfig) MailConfig {
	cfg.Host = strings.TrimSpace(cfg.Host)
	cfg.User = strings.TrimSpace(cfg.User)
	cfg.From = strings.TrimSpace(cfg.From)
	cfg.ReplyTo = strings.TrimSpace(cfg.ReplyTo)
	cfg.ResendKey = strings.TrimSpace(cfg.ResendKey)
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return cfg
}

func normalizeBarkConfig(cfg BarkConfig) BarkConfig {
	cfg.Key = strings.TrimSpace(cfg.Key)
	cfg.Server = strings.TrimRight(strings.TrimSpace(cfg.Server), "/")
	if cfg.Server == "" {
		cfg.Server = defaultBarkServer
	}
	return cfg
}

// normalizeOrigins trims entries and drops blanks.
func normalizeOrigins(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(env string) string {
	trimmed := strings.ToLower(strings.TrimSpace(env))
	if trimmed == "" {
		return defaultEnv
	}
	return trimmed
}

func copyStringMap(input map[string]string) map[string]string {
	if input == nil {
		return nil
	}
	out := make(map[string]string, len(input))
	for key, value := range input {
		k := strings.TrimSpace(key)
		v := strings.TrimSpace(value)
		if k != "" && v != "" {
			out[k] = v
		}
	}
	return out
}
