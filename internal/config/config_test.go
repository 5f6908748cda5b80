package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	t.Setenv("QUIZ_PG_URL", "postgres://quiz@localhost/quizdb")
	path := writeConfig(t, `
server:
  port: "9090"
  allowed_origins: ["http://localhost:3000"]
log:
  level: debug
  format: text
postgres:
  url: ${QUIZ_PG_URL}
quiz:
  cache_ttl: 2m
  enforce_duration: true
events:
  enabled: true
  publisher: gochannel
classes:
  - id: class-1
    name: Math
    teacher_id: teacher-1
    students: [student-1, student-2]
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" || cfg.Log.Level != "debug" || len(cfg.Server.AllowedOrigins) != 1 {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.Postgres.URL != "postgres://quiz@localhost/quizdb" {
		t.Fatalf("env not expanded: %q", cfg.Postgres.URL)
	}
	if !cfg.Quiz.EnforceDuration || TTLDuration(cfg.Quiz.CacheTTL, time.Minute) != 2*time.Minute {
		t.Fatalf("unexpected quiz section %+v", cfg.Quiz)
	}
	if len(cfg.Classes) != 1 {
		t.Fatalf("expected one class, got %d", len(cfg.Classes))
	}
	class := cfg.Classes[0].Domain()
	if class.TeacherID != "teacher-1" || len(class.Students) != 2 {
		t.Fatalf("unexpected class %+v", class)
	}
}

func TestLoadRejectsBadSettings(t *testing.T) {
	cases := map[string]string{
		"unknown publisher": "events:\n  publisher: nats\n",
		"kafka no brokers":  "events:\n  enabled: true\n  publisher: kafka\n",
		"class no teacher":  "classes:\n  - id: class-1\n",
		"duplicate class":   "classes:\n  - {id: c, teacher_id: t}\n  - {id: c, teacher_id: t}\n",
		"bad cache ttl":     "quiz:\n  cache_ttl: soon\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, body)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestTTLDuration(t *testing.T) {
	if got := TTLDuration("", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback, got %s", got)
	}
	if got := TTLDuration("garbage", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback for bad input, got %s", got)
	}
	if got := TTLDuration("90s", time.Minute); got != 90*time.Second {
		t.Fatalf("expected 90s, got %s", got)
	}
}
