// Package config loads application configuration from a YAML file,
// environment variables and command-line flags, in ascending precedence.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	flag "github.com/spf13/pflag"

	"github.com/cloudtardis/dads-english-app/internal/sm2"
)

// envPrefix is the prefix for environment overrides, e.g.
// DEA_LISTEN_ADDR=:9000 or DEA_OPENAI__API_KEY=sk-... (double underscore
// separates nested sections).
const envPrefix = "DEA_"

// Scheduler holds the rating-policy settings.
type Scheduler struct {
	Model   string  `koanf:"model" validate:"oneof=graded binary"`
	MinEase float64 `koanf:"min_ease" validate:"gte=1"`
	// MaxEase caps ease growth under the binary model. Not derived from
	// SM-2 theory, so it is a setting rather than a literal.
	MaxEase        float64 `koanf:"max_ease" validate:"gtefield=MinEase"`
	SecondInterval int     `koanf:"second_interval" validate:"gte=0"`
}

// OpenAI holds the settings for the AI assist collaborator.
type OpenAI struct {
	APIKey         string `koanf:"api_key"`
	BaseURL        string `koanf:"base_url"`
	ChatModel      string `koanf:"chat_model"`
	TTSModel       string `koanf:"tts_model"`
	Voice          string `koanf:"voice"`
	TargetLanguage string `koanf:"target_language"`
	TimeoutSeconds int    `koanf:"timeout_seconds" validate:"gt=0"`
}

// Config is the full application configuration.
type Config struct {
	DBPath     string    `koanf:"db_path" validate:"required"`
	ListenAddr string    `koanf:"listen_addr" validate:"required"`
	ReposDir   string    `koanf:"repos_dir" validate:"required"`
	Offline    bool      `koanf:"offline"`
	Scheduler  Scheduler `koanf:"scheduler"`
	OpenAI     OpenAI    `koanf:"openai"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		DBPath:     "dads-english.db",
		ListenAddr: ":8080",
		ReposDir:   "repos",
		Scheduler: Scheduler{
			Model:   "binary",
			MinEase: 1.3,
			MaxEase: 2.5,
		},
		OpenAI: OpenAI{
			BaseURL:        "https://api.openai.com/v1",
			ChatModel:      "gpt-4o-mini",
			TTSModel:       "tts-1",
			Voice:          "alloy",
			TargetLanguage: "Spanish",
			TimeoutSeconds: 20,
		},
	}
}

// Flags returns the command-line flag set. Flag names mirror config keys,
// with dots for nesting. Flag defaults match Default() so an unset flag
// never clobbers a file or environment value.
func Flags() *flag.FlagSet {
	def := Default()
	f := flag.NewFlagSet("dads-english", flag.ContinueOnError)
	f.String("config", "", "Path to a YAML config file")
	f.String("db_path", def.DBPath, "Path to the SQLite database file")
	f.String("listen_addr", def.ListenAddr, "Address for the web UI to listen on")
	f.String("repos_dir", def.ReposDir, "Directory for local clones of git deck sources")
	f.Bool("offline", def.Offline, "Disable the AI assist features")
	f.String("scheduler.model", def.Scheduler.Model, "Rating model: graded or binary")
	f.String("openai.api_key", def.OpenAI.APIKey, "OpenAI API key")
	return f
}

// Load builds the configuration from defaults, an optional YAML file,
// DEA_* environment variables, and the parsed flag set, in that order.
func Load(f *flag.FlagSet) (Config, error) {
	k := koanf.New(".")

	if path, _ := f.GetString("config"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(".", env.Opt{
		Prefix:        envPrefix,
		TransformFunc: envKey,
	}), nil); err != nil {
		return Config{}, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := k.Load(posflag.Provider(f, ".", k), nil); err != nil {
		return Config{}, fmt.Errorf("failed to load flags: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	if !cfg.Offline && cfg.OpenAI.APIKey == "" {
		if key := os.Getenv("OPENAI_API_KEY"); key != "" {
			cfg.OpenAI.APIKey = key
		}
	}
	return cfg, nil
}

// SM2 maps the scheduler settings onto an sm2.Config.
func (s Scheduler) SM2() (sm2.Config, error) {
	cfg := sm2.Config{
		MinEase:        s.MinEase,
		MaxEase:        s.MaxEase,
		SecondInterval: s.SecondInterval,
	}
	switch s.Model {
	case "graded":
		cfg.Model = sm2.Graded
	case "binary":
		cfg.Model = sm2.Binary
	default:
		return sm2.Config{}, fmt.Errorf("unknown scheduler model %q", s.Model)
	}
	return cfg, nil
}

// envKey maps DEA_OPENAI__API_KEY to openai.api_key.
func envKey(k, v string) (string, any) {
	k = strings.ToLower(strings.TrimPrefix(k, envPrefix))
	return strings.ReplaceAll(k, "__", "."), v
}
