package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/signalnine/promptbench/internal/llm"
	"github.com/signalnine/promptbench/internal/pricing"
	"github.com/signalnine/promptbench/internal/runner"
	"github.com/signalnine/promptbench/internal/sandbox"
	"github.com/signalnine/promptbench/internal/strategy"
)

const DefaultPath = "promptbench.yaml"

type Config struct {
	Service    Service            `yaml:"service"`
	Sampling   llm.SamplingParams `yaml:"sampling"`
	Processing Processing         `yaml:"processing"`
	Strategies Strategies         `yaml:"strategies"`
	Dataset    Dataset            `yaml:"dataset"`
	Results    Results            `yaml:"results"`
	Pricing    Pricing            `yaml:"pricing"`
	Secrets    Secrets            `yaml:"secrets"`
	Proxy      Proxy              `yaml:"proxy"`
}

type Service struct {
	Provider  string        `yaml:"provider"`
	BaseURL   string        `yaml:"base_url"`
	APIKeyEnv string        `yaml:"api_key_env"`
	Timeout   time.Duration `yaml:"timeout"`
}

type Processing struct {
	MaxWorkers        int           `yaml:"max_concurrent_workers"`
	RequestsPerMinute int           `yaml:"requests_per_minute"`
	MaxRetries        int           `yaml:"max_retries"`
	BaseRetryDelay    time.Duration `yaml:"base_retry_delay"`
}

type Strategies struct {
	FewShot           FewShot           `yaml:"few_shot"`
	ProgressiveHint   ProgressiveHint   `yaml:"progressive_hint"`
	ProgramOfThoughts ProgramOfThoughts `yaml:"program_of_thoughts"`
	Hybrid            Hybrid            `yaml:"hybrid"`
}

type FewShot struct {
	Shots int `yaml:"shots"`
}

type ProgressiveHint struct {
	Shots               int      `yaml:"shots"`
	MaxHintAttempts     int      `yaml:"max_hint_attempts"`
	LongAnswerThreshold int      `yaml:"long_answer_threshold"`
	Templates           []string `yaml:"hint_templates"`
}

type ProgramOfThoughts struct {
	CodeExecutionTimeout time.Duration `yaml:"code_execution_timeout"`
	// Sandbox is "process" or "docker".
	Sandbox         string   `yaml:"sandbox"`
	Interpreter     []string `yaml:"interpreter"`
	Image           string   `yaml:"image"`
	CPULimit        float64  `yaml:"cpu_limit"`
	MemoryMB        int64    `yaml:"memory_mb"`
	NetworkDisabled bool     `yaml:"network_disabled"`
}

type Hybrid struct {
	PoTTemperature *float64 `yaml:"pot_temperature"`
	PHPTemperature *float64 `yaml:"php_temperature"`
}

type Dataset struct {
	TestFile     string `yaml:"test_file"`
	MaxQuestions int    `yaml:"max_questions"`
}

type Results struct {
	Dir string `yaml:"dir"`
}

type Pricing struct {
	File        string  `yaml:"file"`
	InputPer1K  float64 `yaml:"input_per_1k"`
	OutputPer1K float64 `yaml:"output_per_1k"`
}

type Secrets struct {
	EnvFile string `yaml:"env_file"`
}

type Proxy struct {
	Gateway string `yaml:"gateway"`
	LogDir  string `yaml:"log_dir"`
}

// Default is the configuration used for every key the file leaves out.
func Default() Config {
	return Config{
		Service: Service{
			Provider:  "openai",
			BaseURL:   "https://api.openai.com/v1",
			APIKeyEnv: "OPENAI_API_KEY",
			Timeout:   60 * time.Second,
		},
		Sampling: llm.SamplingParams{
			Model:       "gpt-4o-mini",
			Temperature: runner.DefaultOptions.Sampling.Temperature,
			TopP:        runner.DefaultOptions.Sampling.TopP,
			MaxTokens:   runner.DefaultOptions.Sampling.MaxTokens,
		},
		Processing: Processing{
			MaxWorkers:        runner.DefaultOptions.MaxWorkers,
			RequestsPerMinute: runner.DefaultOptions.RequestsPerMinute,
			MaxRetries:        runner.DefaultOptions.MaxRetries,
			BaseRetryDelay:    runner.DefaultOptions.BaseRetryDelay,
		},
		Strategies: Strategies{
			ProgressiveHint: ProgressiveHint{
				MaxHintAttempts:     strategy.DefaultMaxHints,
				LongAnswerThreshold: strategy.DefaultLongAnswerThreshold,
			},
			ProgramOfThoughts: ProgramOfThoughts{
				CodeExecutionTimeout: strategy.DefaultCodeTimeout,
				Sandbox:              "process",
				Image:                sandbox.DefaultImage,
			},
		},
		Dataset: Dataset{TestFile: "data/gsm8k_test.jsonl"},
		Results: Results{Dir: "results"},
		Pricing: Pricing{
			InputPer1K:  pricing.DefaultPrice.Input,
			OutputPer1K: pricing.DefaultPrice.Output,
		},
	}
}

// Load reads path over the defaults, loads the secrets file into the
// environment and applies environment overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.LoadSecrets(); err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

// LoadSecrets loads the secrets env file without overriding variables that
// are already set. A missing file is only a warning.
func (c *Config) LoadSecrets() error {
	if c.Secrets.EnvFile == "" {
		return nil
	}
	if err := godotenv.Load(c.Secrets.EnvFile); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Printf("warning: secrets file %s not found", c.Secrets.EnvFile)
			return nil
		}
		return fmt.Errorf("loading secrets %s: %w", c.Secrets.EnvFile, err)
	}
	return nil
}

// ApplyEnv overrides model and sampling settings from the environment.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("OPENAI_MODEL"); ok && v != "" {
		c.Sampling.Model = v
	}
	if v, ok := lookup("OPENAI_BASE_URL"); ok && v != "" {
		c.Service.BaseURL = v
	}
	floats := []struct {
		key string
		dst *float64
	}{
		{"TEMPERATURE", &c.Sampling.Temperature},
		{"TOP_P", &c.Sampling.TopP},
	}
	for _, f := range floats {
		v, ok := lookup(f.key)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", f.key, err)
		}
		*f.dst = n
	}
	if v, ok := lookup("MAX_TOKENS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MAX_TOKENS: %w", err)
		}
		c.Sampling.MaxTokens = n
	}
	return nil
}

// APIKey reads the key from the configured environment variable.
func (c *Config) APIKey() string {
	return os.Getenv(c.Service.APIKeyEnv)
}

// Options is the dispatch configuration handed to the runner.
func (c *Config) Options() runner.Options {
	return runner.Options{
		MaxWorkers:           c.Processing.MaxWorkers,
		RequestsPerMinute:    c.Processing.RequestsPerMinute,
		MaxRetries:           c.Processing.MaxRetries,
		BaseRetryDelay:       c.Processing.BaseRetryDelay,
		Sampling:             c.Sampling,
		MaxHintAttempts:      c.Strategies.ProgressiveHint.MaxHintAttempts,
		CodeExecutionTimeout: c.Strategies.ProgramOfThoughts.CodeExecutionTimeout,
	}
}

func (c *Config) StrategySettings() strategy.Settings {
	s := c.Strategies
	return strategy.Settings{
		FewShotShots:        s.FewShot.Shots,
		HintShots:           s.ProgressiveHint.Shots,
		MaxHints:            s.ProgressiveHint.MaxHintAttempts,
		LongAnswerThreshold: s.ProgressiveHint.LongAnswerThreshold,
		HintTemplates:       s.ProgressiveHint.Templates,
		CodeTimeout:         s.ProgramOfThoughts.CodeExecutionTimeout,
		PoTTemperature:      s.Hybrid.PoTTemperature,
		PHPTemperature:      s.Hybrid.PHPTemperature,
	}
}

// Sandbox builds the code runner for program-of-thoughts.
func (c *Config) Sandbox() sandbox.Runner {
	p := c.Strategies.ProgramOfThoughts
	if p.Sandbox == "docker" {
		return &sandbox.Docker{
			Image:           p.Image,
			CPULimit:        p.CPULimit,
			MemoryLimit:     p.MemoryMB * 1024 * 1024,
			NetworkDisabled: p.NetworkDisabled,
			UserID:          fmt.Sprintf("%d:%d", os.Getuid(), os.Getgid()),
		}
	}
	return &sandbox.Process{Interpreter: p.Interpreter}
}

func (c *Config) Prices() (*pricing.Table, error) {
	fallback := pricing.ModelPricing{Input: c.Pricing.InputPer1K, Output: c.Pricing.OutputPer1K}
	if c.Pricing.File == "" {
		return pricing.New(fallback), nil
	}
	return pricing.Load(c.Pricing.File, fallback)
}

func validate(cfg *Config) error {
	if cfg.Service.BaseURL == "" {
		return fmt.Errorf("service.base_url is required")
	}
	if cfg.Service.APIKeyEnv == "" {
		return fmt.Errorf("service.api_key_env is required")
	}
	if cfg.Sampling.Model == "" {
		return fmt.Errorf("sampling.model is required")
	}
	if cfg.Sampling.Temperature < 0 || cfg.Sampling.Temperature > 2 {
		return fmt.Errorf("sampling.temperature must be in [0, 2], got %v", cfg.Sampling.Temperature)
	}
	if cfg.Sampling.TopP < 0 || cfg.Sampling.TopP > 1 {
		return fmt.Errorf("sampling.top_p must be in [0, 1], got %v", cfg.Sampling.TopP)
	}
	if cfg.Sampling.MaxTokens < 1 {
		return fmt.Errorf("sampling.max_tokens must be at least 1")
	}
	p := cfg.Processing
	if p.MaxWorkers < 1 {
		return fmt.Errorf("processing.max_concurrent_workers must be at least 1")
	}
	if p.RequestsPerMinute < 0 {
		return fmt.Errorf("processing.requests_per_minute must not be negative")
	}
	if p.MaxRetries < 1 {
		return fmt.Errorf("processing.max_retries must be at least 1")
	}
	if p.BaseRetryDelay < 0 {
		return fmt.Errorf("processing.base_retry_delay must not be negative")
	}
	if cfg.Strategies.ProgressiveHint.MaxHintAttempts < 1 {
		return fmt.Errorf("strategies.progressive_hint.max_hint_attempts must be at least 1")
	}
	pot := cfg.Strategies.ProgramOfThoughts
	switch pot.Sandbox {
	case "process", "docker":
	default:
		return fmt.Errorf("strategies.program_of_thoughts.sandbox must be process or docker, got %q", pot.Sandbox)
	}
	if pot.CodeExecutionTimeout <= 0 {
		return fmt.Errorf("strategies.program_of_thoughts.code_execution_timeout must be positive")
	}
	if cfg.Dataset.MaxQuestions < 0 {
		return fmt.Errorf("dataset.max_questions must not be negative")
	}
	switch cfg.Proxy.Gateway {
	case "", "litellm":
	default:
		return fmt.Errorf("proxy.gateway must be empty or litellm, got %q", cfg.Proxy.Gateway)
	}
	return nil
}
