package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"
)

const (
	BackendMemory    = "memory"
	BackendSQLite    = "sqlite"
	BackendFirestore = "firestore"
)

type Config struct {
	Addr        string          `yaml:"addr"`
	Environment string          `yaml:"environment"`
	CORSOrigins []string        `yaml:"corsOrigins"`
	StaticDir   string          `yaml:"staticDir"`
	Store       StoreConfig     `yaml:"store"`
	Assistant   AssistantConfig `yaml:"assistant"`
}

type StoreConfig struct {
	Backend             string        `yaml:"backend"`
	SQLitePath          string        `yaml:"sqlitePath"`
	FirestoreProject    string        `yaml:"firestoreProject"`
	FirestoreCollection string        `yaml:"firestoreCollection"`
	FlushInterval       time.Duration `yaml:"flushInterval"`
}

type AssistantConfig struct {
	APIKey              string        `yaml:"apiKey"`
	DraftModel          string        `yaml:"draftModel"`
	ActionModel         string        `yaml:"actionModel"`
	SuggestionModel     string        `yaml:"suggestionModel"`
	RequestTimeout      time.Duration `yaml:"requestTimeout"`
	SuggestionDelay     time.Duration `yaml:"suggestionDelay"`
	MinSuggestionLength int           `yaml:"minSuggestionLength"`
}

func Default() *Config {
	return &Config{
		Addr:        ":8080",
		Environment: "prod",
		CORSOrigins: []string{"http://localhost:3000"},
		Store: StoreConfig{
			Backend:             BackendMemory,
			SQLitePath:          "lumina.db",
			FirestoreCollection: "documents",
			FlushInterval:       5 * time.Second,
		},
		Assistant: AssistantConfig{
			DraftModel:          "gemini-3-pro-preview",
			ActionModel:         "gemini-3-flash-preview",
			SuggestionModel:     "gemini-3-flash-preview",
			RequestTimeout:      2 * time.Minute,
			SuggestionDelay:     12 * time.Second,
			MinSuggestionLength: 50,
		},
	}
}

// Load builds the configuration from defaults, then the YAML file at path
// (skipped when path is empty), then environment variables, and validates
// the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.Addr = getEnv("ADDR", c.Addr)
	if port := os.Getenv("PORT"); port != "" && os.Getenv("ADDR") == "" {
		c.Addr = ":" + port
	}
	c.Environment = getEnv("ENVIRONMENT", c.Environment)
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		c.CORSOrigins = splitList(origins)
	}
	c.StaticDir = getEnv("STATIC_DIR", c.StaticDir)

	c.Store.Backend = getEnv("STORE_BACKEND", c.Store.Backend)
	c.Store.SQLitePath = getEnv("SQLITE_PATH", c.Store.SQLitePath)
	c.Store.FirestoreProject = getEnv("FIRESTORE_PROJECT", c.Store.FirestoreProject)

	c.Assistant.APIKey = getEnv("GEMINI_API_KEY", getEnv("API_KEY", c.Assistant.APIKey))
	c.Assistant.DraftModel = getEnv("DRAFT_MODEL", c.Assistant.DraftModel)
	c.Assistant.ActionModel = getEnv("ACTION_MODEL", c.Assistant.ActionModel)
	c.Assistant.SuggestionModel = getEnv("SUGGESTION_MODEL", c.Assistant.SuggestionModel)

	var errs []error
	for key, dst := range map[string]*time.Duration{
		"FLUSH_INTERVAL":   &c.Store.FlushInterval,
		"REQUEST_TIMEOUT":  &c.Assistant.RequestTimeout,
		"SUGGESTION_DELAY": &c.Assistant.SuggestionDelay,
	} {
		if v := os.Getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				continue
			}
			*dst = d
		}
	}
	if v := os.Getenv("MIN_SUGGESTION_LENGTH"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("MIN_SUGGESTION_LENGTH: %w", err))
		} else {
			c.Assistant.MinSuggestionLength = n
		}
	}
	return errors.Join(errs...)
}

func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Addr, validation.Required),
		validation.Field(&c.Environment, validation.Required, validation.In("dev", "test", "prod")),
		validation.Field(&c.Store),
		validation.Field(&c.Assistant),
	)
}

func (s StoreConfig) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Backend, validation.Required, validation.In(BackendMemory, BackendSQLite, BackendFirestore)),
		validation.Field(&s.SQLitePath, validation.When(s.Backend == BackendSQLite, validation.Required)),
		validation.Field(&s.FirestoreProject, validation.When(s.Backend == BackendFirestore, validation.Required)),
		validation.Field(&s.FlushInterval, validation.When(s.Backend != BackendMemory, validation.Required, validation.Min(100*time.Millisecond))),
	)
}

func (a AssistantConfig) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.APIKey, validation.Required.Error("is required (set GEMINI_API_KEY)")),
		validation.Field(&a.DraftModel, validation.Required),
		validation.Field(&a.ActionModel, validation.Required),
		validation.Field(&a.SuggestionModel, validation.Required),
		validation.Field(&a.RequestTimeout, validation.Min(time.Duration(0))),
		validation.Field(&a.SuggestionDelay, validation.Required),
		validation.Field(&a.MinSuggestionLength, validation.Min(0)),
	)
}

// Dev reports whether the server runs with development defaults.
func (c *Config) Dev() bool {
	return c.Environment == "dev"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
