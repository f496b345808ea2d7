package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"samarth-go/internal/service"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Data   DataConfig     `yaml:"data" mapstructure:"data"`
	Server ServerConfig   `yaml:"server" mapstructure:"server"`
	Log    LogConfig      `yaml:"log" mapstructure:"log"`
	Answer AnswerConfig   `yaml:"answer" mapstructure:"answer"`
	Policy service.Policy `yaml:"policy" mapstructure:"policy"`
}

// DataConfig locates the CSV datasets.
type DataConfig struct {
	Dir          string `yaml:"dir" mapstructure:"dir"`
	Manifest     string `yaml:"manifest" mapstructure:"manifest"`
	DefaultState string `yaml:"default_state" mapstructure:"default_state"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// AnswerConfig configures the optional Ollama answer renderer.
type AnswerConfig struct {
	Enabled bool          `yaml:"enabled" mapstructure:"enabled"`
	BaseURL string        `yaml:"base_url" mapstructure:"base_url"`
	Model   string        `yaml:"model" mapstructure:"model"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads .env, then an optional config file, then SAMARTH_* environment
// variables. An empty configFile searches the working directory for config.yaml.
func Load(configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrap(err, "config: load .env")
	}

	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("SAMARTH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	p := service.DefaultPolicy()
	v.SetDefault("data.dir", "data")
	v.SetDefault("data.manifest", "datasets.yaml")
	v.SetDefault("data.default_state", "Karnataka")
	v.SetDefault("server.port", 8001)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000", "http://localhost:8501", "http://127.0.0.1:3000"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("answer.enabled", false)
	v.SetDefault("answer.base_url", "http://localhost:11434")
	v.SetDefault("answer.model", "qwen3-vl:2b")
	v.SetDefault("answer.timeout", "30s")
	v.SetDefault("policy.exact_score", p.ExactScore)
	v.SetDefault("policy.substring_score", p.SubstringScore)
	v.SetDefault("policy.token_overlap_min", p.TokenOverlapMin)
	v.SetDefault("policy.match_threshold", p.MatchThreshold)
	v.SetDefault("policy.rewrite_threshold", p.RewriteThreshold)
	v.SetDefault("policy.low_rainfall_mm", p.LowRainfallMM)
	v.SetDefault("policy.high_rainfall_mm", p.HighRainfallMM)
	v.SetDefault("policy.default_top_n", p.DefaultTopN)
	v.SetDefault("policy.max_rewrites", p.MaxRewrites)
	v.SetDefault("policy.default_relative_years", p.DefaultRelativeYears)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
