package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParseEmptyUsesDefaults(t *testing.T) {
	cfg, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if cfg.Port != defaultPort {
		t.Errorf("expected port %d, got %d", defaultPort, cfg.Port)
	}
	if cfg.Site.AdminPath != "suraj" {
		t.Errorf("expected admin path suraj, got %q", cfg.Site.AdminPath)
	}
	if cfg.AdminPrefix() != "/suraj" {
		t.Errorf("expected admin prefix /suraj, got %q", cfg.AdminPrefix())
	}
	if !strings.Contains(cfg.DSN, "tcp(127.0.0.1:3306)/heliosensium") {
		t.Errorf("unexpected default dsn %q", cfg.DSN)
	}
	if cfg.RedisURL != "redis://localhost:6379/0" {
		t.Errorf("unexpected default redis url %q", cfg.RedisURL)
	}
	if !cfg.IsDev() {
		t.Error("expected development env by default")
	}
	if cfg.Auth.SessionTTL != 7*24*time.Hour {
		t.Errorf("unexpected session ttl %v", cfg.Auth.SessionTTL)
	}
}

func TestParseNestedAndLegacyKeys(t *testing.T) {
	content := []byte(`
port: 9000
node_env: Production
cors_allowed_origins: [" *.example.com ", ""]
jwtsecret: s3cret
tz: "+08:00"
database:
  host: db.internal
  port: 3307
  user: helio
  password: pw
  name: blog
redis:
  host: cache
  db: 2
site:
  url: https://heliosensium.com/
  admin_path: /moderators/
moderation:
  submit_limit: 3
  submit_window: 30m
  notify_emails: ["ops@example.com"]
`)
	cfg, err := Parse(content)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if cfg.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Port)
	}
	if cfg.Env != "production" || cfg.IsDev() {
		t.Errorf("expected production env, got %q", cfg.Env)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "*.example.com" {
		t.Errorf("unexpected origins %v", cfg.AllowedOrigins)
	}
	if cfg.JWTSecret != "s3cret" {
		t.Errorf("expected legacy jwt secret, got %q", cfg.JWTSecret)
	}
	if cfg.Timezone != "+08:00" {
		t.Errorf("unexpected timezone %q", cfg.Timezone)
	}
	if !strings.HasPrefix(cfg.DSN, "helio:pw@tcp(db.internal:3307)/blog?") {
		t.Errorf("unexpected dsn %q", cfg.DSN)
	}
	if cfg.RedisURL != "redis://cache:6379/2" {
		t.Errorf("unexpected redis url %q", cfg.RedisURL)
	}
	if cfg.Site.URL != "https://heliosensium.com" {
		t.Errorf("expected trailing slash trimmed, got %q", cfg.Site.URL)
	}
	if cfg.AdminPrefix() != "/moderators" {
		t.Errorf("unexpected admin prefix %q", cfg.AdminPrefix())
	}
	if cfg.Moderation.SubmitLimit != 3 || cfg.Moderation.SubmitWindow != 30*time.Minute {
		t.Errorf("unexpected moderation config %+v", cfg.Moderation)
	}
}

func TestParseExplicitDSNWins(t *testing.T) {
	cfg, err := Parse([]byte("dsn: \"u:p@tcp(10.0.0.1:3306)/x?parseTime=true\"\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if cfg.DSN != "u:p@tcp(10.0.0.1:3306)/x?parseTime=true" {
		t.Errorf("expected explicit dsn, got %q", cfg.DSN)
	}
}

func TestParseBark(t *testing.T) {
	cfg, err := Parse([]byte("bark:\n  key: \" abc \"\n  server: \"https://bark.example/\"\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if cfg.Bark.Key != "abc" || cfg.Bark.Server != "https://bark.example" {
		t.Errorf("unexpected bark config %+v", cfg.Bark)
	}

	cfg, err = Parse([]byte("bark:\n  key: abc\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if cfg.Bark.Server != defaultBarkServer {
		t.Errorf("expected default bark server, got %q", cfg.Bark.Server)
	}
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	if _, err := Parse([]byte("not_a_key: 1\n")); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestParseValidation(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"port", "port: 70000\n"},
		{"redis db", "redis:\n  db: -1\n"},
		{"bootstrap pair", "auth:\n  bootstrap_username: admin\n"},
		{"submit limit", "moderation:\n  submit_limit: -2\n"},
		{"dsn", "dsn: \"not a dsn\"\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Parse([]byte(tc.content)); err == nil {
				t.Fatalf("expected validation error for %s", tc.name)
			}
		})
	}
}

func TestLoadReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte("port: 8123\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != 8123 {
		t.Errorf("expected port 8123, got %d", cfg.Port)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestResolveRuntimePath(t *testing.T) {
	abs := filepath.Join(t.TempDir(), "logs")
	if got := ResolveRuntimePath(abs, "ignored"); got != abs {
		t.Errorf("expected %q, got %q", abs, got)
	}
	wd, _ := os.Getwd()
	if got := ResolveRuntimePath("", "logs"); got != filepath.Join(wd, "logs") {
		t.Errorf("unexpected fallback path %q", got)
	}
}
