package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"classroom-quiz-service/internal/domain"
)

type Config struct {
	Server struct {
		Port           string   `yaml:"port"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		CacheTTL        string `yaml:"cache_ttl"`
		EnforceDuration bool   `yaml:"enforce_duration"`
	} `yaml:"quiz"`
	Events struct {
		Enabled      bool     `yaml:"enabled"`
		Publisher    string   `yaml:"publisher"`
		KafkaBrokers []string `yaml:"kafka_brokers"`
		Topic        string   `yaml:"topic"`
	} `yaml:"events"`
	Classes []Class `yaml:"classes"`
}

// Class seeds the class directory.
type Class struct {
	ID        string   `yaml:"id"`
	Name      string   `yaml:"name"`
	TeacherID string   `yaml:"teacher_id"`
	Students  []string `yaml:"students"`
}

func (c Class) Domain() domain.Class {
	return domain.Class{ID: c.ID, Name: c.Name, TeacherID: c.TeacherID, Students: append([]string(nil), c.Students...)}
}

// Load reads YAML config from path. Environment variables referenced as
// ${NAME} are expanded before parsing.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects settings that would only fail later at startup.
func (c Config) Validate() error {
	switch strings.ToLower(c.Events.Publisher) {
	case "", "gochannel":
	case "kafka":
		if c.Events.Enabled && len(c.Events.KafkaBrokers) == 0 {
			return fmt.Errorf("events.kafka_brokers is required for the kafka publisher")
		}
	default:
		return fmt.Errorf("unknown events.publisher %q", c.Events.Publisher)
	}
	if c.Quiz.CacheTTL != "" {
		if _, err := time.ParseDuration(c.Quiz.CacheTTL); err != nil {
			return fmt.Errorf("quiz.cache_ttl: %w", err)
		}
	}
	seen := make(map[string]bool, len(c.Classes))
	for i, class := range c.Classes {
		if class.ID == "" || class.TeacherID == "" {
			return fmt.Errorf("classes[%d]: id and teacher_id are required", i)
		}
		if seen[class.ID] {
			return fmt.Errorf("classes[%d]: duplicate class id %q", i, class.ID)
		}
		seen[class.ID] = true
	}
	return nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
