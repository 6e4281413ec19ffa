// Package config loads sheetpub settings from flags, the environment, an
// optional config file and an optional .env file, in that priority order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/valpere/sheetpub/internal/dedup"
	"github.com/valpere/sheetpub/internal/generator"
	"github.com/valpere/sheetpub/internal/llm"
	"github.com/valpere/sheetpub/internal/sheet"
	"github.com/valpere/sheetpub/internal/wordpress"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"

	defaultEnvFile = ".env"
)

type Config struct {
	Sheet      sheet.Config      `mapstructure:"sheet"`
	Google     sheet.Credentials `mapstructure:"google"`
	LLM        LLMConfig         `mapstructure:"llm"`
	OpenAI     llm.OpenAIConfig  `mapstructure:"openai"`
	Gemini     llm.GeminiConfig  `mapstructure:"gemini"`
	Generation GenerationConfig  `mapstructure:"generation"`
	Dedup      DedupConfig       `mapstructure:"dedup"`
	WordPress  wordpress.Config  `mapstructure:"wordpress"`
	Status     StatusVocabulary  `mapstructure:"status"`
	Index      IndexConfig       `mapstructure:"index"`
	Run        RunConfig         `mapstructure:"run"`
	Log        LogConfig         `mapstructure:"log"`
	Metrics    MetricsConfig     `mapstructure:"metrics"`
}

type LLMConfig struct {
	Provider string `mapstructure:"provider"`
}

type GenerationConfig struct {
	Temperature float64 `mapstructure:"temperature"`
	RenderFAQ   bool    `mapstructure:"render_faq"`
	// Language is an ISO 639-1 code; empty disables the language check.
	Language string `mapstructure:"language"`
}

type DedupConfig struct {
	SemanticLimit int `mapstructure:"semantic_limit"`
}

// StatusVocabulary holds the values written to the status column.
type StatusVocabulary struct {
	Done      string `mapstructure:"done"`
	Duplicate string `mapstructure:"duplicate"`
	Error     string `mapstructure:"error"`
}

type IndexConfig struct {
	// Append writes each published entry to the index sheet as well.
	Append bool `mapstructure:"append"`
}

type RunConfig struct {
	DBPath   string `mapstructure:"db_path"`
	LockPath string `mapstructure:"lock_path"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

type MetricsConfig struct {
	PushgatewayURL string `mapstructure:"pushgateway_url"`
}

type binding struct {
	key   string
	env   string
	value any
}

// bindings maps every setting to its environment variable and default.
var bindings = []binding{
	{"sheet.spreadsheet_id", "GOOGLE_SPREADSHEET_ID", ""},
	{"sheet.main_sheet", "GOOGLE_MAIN_SHEET_NAME", sheet.DefaultMainSheet},
	{"sheet.index_sheet", "GOOGLE_INDEX_SHEET_NAME", sheet.DefaultIndexSheet},
	{"sheet.trigger", "SHEET_TRIGGER_STATUS", sheet.DefaultTrigger},
	{"google.credentials_json", "GOOGLE_CREDENTIALS_JSON", ""},
	{"google.credentials_file", "GOOGLE_CREDENTIALS_FILE", ""},
	{"llm.provider", "LLM_PROVIDER", ProviderOpenAI},
	{"openai.api_key", "OPENAI_API_KEY", ""},
	{"openai.model", "OPENAI_MODEL", "gpt-5.1-mycustomspec"},
	{"openai.base_url", "OPENAI_BASE_URL", "https://api.openai.com/v1"},
	{"openai.timeout_seconds", "OPENAI_TIMEOUT_SECONDS", 120},
	{"gemini.api_key", "GEMINI_API_KEY", ""},
	{"gemini.model", "GEMINI_MODEL", "gemini-2.5-flash"},
	{"generation.temperature", "GENERATION_TEMPERATURE", generator.DefaultTemperature},
	{"generation.render_faq", "RENDER_FAQ", false},
	{"generation.language", "CONTENT_LANGUAGE", ""},
	{"dedup.semantic_limit", "SEMANTIC_INDEX_LIMIT", dedup.DefaultRelevantLimit},
	{"wordpress.base_url", "WORDPRESS_BASE_URL", ""},
	{"wordpress.user", "WORDPRESS_USER", ""},
	{"wordpress.password", "WORDPRESS_PASSWORD", ""},
	{"wordpress.jwt_token", "WORDPRESS_JWT_TOKEN", ""},
	{"wordpress.auth_method", "WORDPRESS_AUTH_METHOD", wordpress.AuthApplicationPassword},
	{"wordpress.post_status", "WORDPRESS_POST_STATUS", "publish"},
	{"wordpress.timeout_seconds", "WORDPRESS_TIMEOUT_SECONDS", 30},
	{"wordpress.requests_per_second", "WORDPRESS_REQUESTS_PER_SECOND", 0.0},
	{"status.done", "STATUS_DONE", "hecho"},
	{"status.duplicate", "STATUS_DUPLICATE", "duplicado"},
	{"status.error", "STATUS_ERROR", "error"},
	{"index.append", "APPEND_TO_INDEX", false},
	{"run.db_path", "SHEETPUB_DB_PATH", "sheetpub.db"},
	{"run.lock_path", "SHEETPUB_LOCK_PATH", "sheetpub.lock"},
	{"log.level", "LOG_LEVEL", "INFO"},
	{"log.file", "LOG_FILE", ""},
	{"metrics.pushgateway_url", "PUSHGATEWAY_URL", ""},
}

// flagKeys maps command-line flags to setting keys.
var flagKeys = map[string]string{
	"log-file": "log.file",
}

// LoadOptions locates the optional sources.
type LoadOptions struct {
	// File is an explicit config file; any format viper reads.
	File string
	// EnvFile defaults to .env in the working directory.
	EnvFile string
	Flags   *pflag.FlagSet
}

// Load reads the settings without validating them.
func Load(opts LoadOptions) (*Config, error) {
	v := viper.New()
	for _, b := range bindings {
		v.SetDefault(b.key, b.value)
		if err := v.BindEnv(b.key, b.env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", b.env, err)
		}
	}

	if err := loadEnvFile(v, opts.EnvFile); err != nil {
		return nil, err
	}

	if opts.File != "" {
		v.SetConfigFile(opts.File)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", opts.File, err)
		}
	}

	if opts.Flags != nil {
		for name, key := range flagKeys {
			if f := opts.Flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.normalize()
	return &cfg, nil
}

// loadEnvFile reads a dotenv file, if present, as the layer just above the
// built-in defaults.
func loadEnvFile(v *viper.Viper, path string) error {
	if path == "" {
		path = defaultEnvFile
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}

	dot := viper.New()
	dot.SetConfigFile(path)
	dot.SetConfigType("env")
	if err := dot.ReadInConfig(); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	for _, b := range bindings {
		name := strings.ToLower(b.env)
		if dot.IsSet(name) {
			v.SetDefault(b.key, dot.GetString(name))
		}
	}
	return nil
}

func (c *Config) normalize() {
	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	c.WordPress.AuthMethod = strings.ToLower(strings.TrimSpace(c.WordPress.AuthMethod))
	c.Sheet.SpreadsheetID = strings.TrimSpace(c.Sheet.SpreadsheetID)
	c.Generation.Language = strings.ToLower(strings.TrimSpace(c.Generation.Language))
	if c.Dedup.SemanticLimit <= 0 {
		c.Dedup.SemanticLimit = dedup.DefaultRelevantLimit
	}
}
