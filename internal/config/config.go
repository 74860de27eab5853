package config

import (
	"regexp"
	"slices"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Match      MatchConfig      `yaml:"match" mapstructure:"match"`
	Sheet      SheetConfig      `yaml:"sheet" mapstructure:"sheet"`
	Pipeline   PipelineConfig   `yaml:"pipeline" mapstructure:"pipeline"`
	Paths      PathsConfig      `yaml:"paths" mapstructure:"paths"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// MatchConfig configures the fuzzy matcher.
type MatchConfig struct {
	Threshold int    `yaml:"threshold" mapstructure:"threshold"`
	Marker    string `yaml:"marker" mapstructure:"marker"`
}

// SheetConfig describes where names live in the workbooks.
type SheetConfig struct {
	Selector         string `yaml:"selector" mapstructure:"selector"`
	RosterSheet      string `yaml:"roster_sheet" mapstructure:"roster_sheet"`
	NameColumn       string `yaml:"name_column" mapstructure:"name_column"`
	CandidateColumn  string `yaml:"candidate_column" mapstructure:"candidate_column"`
	AnnotationColumn string `yaml:"annotation_column" mapstructure:"annotation_column"`
	RosterSkipRows   int    `yaml:"roster_skip_rows" mapstructure:"roster_skip_rows"`
	AnnotatedSuffix  string `yaml:"annotated_suffix" mapstructure:"annotated_suffix"`
}

// PipelineConfig configures run orchestration.
type PipelineConfig struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
}

// PathsConfig configures working folders.
type PathsConfig struct {
	UploadDir  string `yaml:"upload_dir" mapstructure:"upload_dir"`
	ResultDir  string `yaml:"result_dir" mapstructure:"result_dir"`
	ReportName string `yaml:"report_name" mapstructure:"report_name"`
}

// StoreConfig configures the run history backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ServerConfig configures the upload server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	MaxUploadMB    int      `yaml:"max_upload_mb" mapstructure:"max_upload_mb"`
	UploadRPS      float64  `yaml:"upload_rps" mapstructure:"upload_rps"`
	UploadBurst    int      `yaml:"upload_burst" mapstructure:"upload_burst"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// MonitoringConfig configures run history alerts.
type MonitoringConfig struct {
	LookbackHours        int     `yaml:"lookback_hours" mapstructure:"lookback_hours"`
	FailureRateThreshold float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	MinFinishedRuns      int     `yaml:"min_finished_runs" mapstructure:"min_finished_runs"`
	WebhookURL           string  `yaml:"webhook_url" mapstructure:"webhook_url"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// envFiles are loaded in order; variables already set are never overridden,
// so .env.local wins over .env and the real environment wins over both.
var envFiles = []string{".env.local", ".env"}

// LoadEnvFiles loads the dotenv files present in the working directory and
// returns the ones it read.
func LoadEnvFiles() []string {
	var loaded []string
	for _, f := range envFiles {
		if err := godotenv.Load(f); err == nil {
			loaded = append(loaded, f)
		}
	}
	return loaded
}

// Load reads configuration from dotenv files, the config file and the
// environment.
func Load() (*Config, error) {
	LoadEnvFiles()
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("ROLLCALL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("match.threshold", 80)
	v.SetDefault("match.marker", "matched")
	v.SetDefault("sheet.selector", "Kontrol")
	v.SetDefault("sheet.roster_sheet", "")
	v.SetDefault("sheet.name_column", "A")
	v.SetDefault("sheet.candidate_column", "B")
	v.SetDefault("sheet.annotation_column", "G")
	v.SetDefault("sheet.roster_skip_rows", 0)
	v.SetDefault("sheet.annotated_suffix", "_updated")
	v.SetDefault("pipeline.concurrency", 4)
	v.SetDefault("paths.upload_dir", "uploads")
	v.SetDefault("paths.result_dir", "results")
	v.SetDefault("paths.report_name", "Unmatched.xlsx")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.max_conns", 4)
	v.SetDefault("store.min_conns", 1)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.max_upload_mb", 32)
	v.SetDefault("server.upload_rps", 2.0)
	v.SetDefault("server.upload_burst", 5)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("monitoring.lookback_hours", 24)
	v.SetDefault("monitoring.failure_rate_threshold", 0.25)
	v.SetDefault("monitoring.min_finished_runs", 5)
	v.SetDefault("monitoring.webhook_url", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

var columnRe = regexp.MustCompile(`^[A-Za-z]{1,3}$`)

// Validate checks settings that would otherwise fail deep inside a run.
func (c *Config) Validate() error {
	var problems []string

	if c.Match.Threshold < 0 || c.Match.Threshold > 100 {
		problems = append(problems, "match.threshold must be between 0 and 100")
	}
	if strings.TrimSpace(c.Match.Marker) == "" {
		problems = append(problems, "match.marker must not be empty")
	}
	for key, col := range map[string]string{
		"sheet.name_column":       c.Sheet.NameColumn,
		"sheet.candidate_column":  c.Sheet.CandidateColumn,
		"sheet.annotation_column": c.Sheet.AnnotationColumn,
	} {
		if !columnRe.MatchString(strings.TrimSpace(col)) {
			problems = append(problems, key+" must be a column letter such as A or G")
		}
	}
	if c.Sheet.RosterSkipRows < 0 {
		problems = append(problems, "sheet.roster_skip_rows must not be negative")
	}
	if c.Pipeline.Concurrency <= 0 {
		problems = append(problems, "pipeline.concurrency must be positive")
	}
	switch c.Store.Driver {
	case "sqlite", "postgres", "none":
	default:
		problems = append(problems, "store.driver must be sqlite, postgres or none")
	}
	if c.Store.Driver == "postgres" && c.Store.DatabaseURL == "" {
		problems = append(problems, "store.database_url is required for postgres (ROLLCALL_STORE_DATABASE_URL)")
	}
	if c.Server.MaxUploadMB <= 0 {
		problems = append(problems, "server.max_upload_mb must be positive")
	}
	if c.Server.UploadRPS <= 0 || c.Server.UploadBurst <= 0 {
		problems = append(problems, "server.upload_rps and server.upload_burst must be positive")
	}
	if c.Monitoring.FailureRateThreshold < 0 || c.Monitoring.FailureRateThreshold > 1 {
		problems = append(problems, "monitoring.failure_rate_threshold must be between 0 and 1")
	}

	if len(problems) > 0 {
		slices.Sort(problems)
		return eris.Errorf("config: invalid settings:\n  %s", strings.Join(problems, "\n  "))
	}
	return nil
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
