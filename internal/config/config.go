// Package config loads the planner's process configuration.
//
// Settings come from, in increasing precedence: built-in defaults, a
// planner.toml or planner.yaml file (searched in the working directory and
// $HOME/.config/planner), and PLANNER_* environment variables. Nested keys
// map to environment names with underscores: server.addr is
// PLANNER_SERVER_ADDR.
//
// The GitHub token used to write documents is never read from or written to
// the config file.
package config

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/pjp27/organizacion/internal/planner"
	"github.com/pjp27/organizacion/internal/remote"
	"github.com/pjp27/organizacion/internal/schema"
	"github.com/pjp27/organizacion/internal/sync"
	"github.com/pjp27/organizacion/internal/view"
)

// FileName is the config file base name; the extension selects the format.
const FileName = "planner"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "PLANNER"

// Subject overrides the colour and reminder lead time of one subject.
// Subjects are a list rather than a table because viper lower-cases map
// keys and subject names are matched exactly.
type Subject struct {
	Name     string `mapstructure:"name" toml:"name" yaml:"name" json:"name"`
	Color    string `mapstructure:"color" toml:"color,omitempty" yaml:"color,omitempty" json:"color,omitempty"`
	LeadTime *int   `mapstructure:"lead_time" toml:"lead_time,omitempty" yaml:"lead_time,omitempty" json:"lead_time,omitempty"`
}

// Dashboard configures the WebSocket feed.
type Dashboard struct {
	Host string `mapstructure:"host" toml:"host" yaml:"host" json:"host"`
	Port int    `mapstructure:"port" toml:"port" yaml:"port" json:"port"`
}

// Server configures the local content API server.
type Server struct {
	Addr string `mapstructure:"addr" toml:"addr" yaml:"addr" json:"addr"`
	DB   string `mapstructure:"db" toml:"db" yaml:"db" json:"db"`

	// Token is the credential the server accepts. Set it through
	// PLANNER_SERVER_TOKEN; it is never written by WriteDefault.
	Token string `mapstructure:"token" toml:"-" yaml:"-" json:"-"`
}

// Config is the process configuration.
type Config struct {
	Owner  string `mapstructure:"owner" toml:"owner" yaml:"owner" json:"owner"`
	Repo   string `mapstructure:"repo" toml:"repo" yaml:"repo" json:"repo"`
	Branch string `mapstructure:"branch" toml:"branch" yaml:"branch" json:"branch"`

	TasksPath string `mapstructure:"tasks_path" toml:"tasks_path" yaml:"tasks_path" json:"tasks_path"`
	ExamsPath string `mapstructure:"exams_path" toml:"exams_path" yaml:"exams_path" json:"exams_path"`

	APIURL string `mapstructure:"api_url" toml:"api_url" yaml:"api_url" json:"api_url"`
	RawURL string `mapstructure:"raw_url" toml:"raw_url" yaml:"raw_url" json:"raw_url"`

	MaxRetries int           `mapstructure:"max_retries" toml:"max_retries" yaml:"max_retries" json:"max_retries"`
	BaseDelay  time.Duration `mapstructure:"base_delay" toml:"base_delay" yaml:"base_delay" json:"base_delay"`

	DefaultColor string    `mapstructure:"default_color" toml:"default_color" yaml:"default_color" json:"default_color"`
	Subjects     []Subject `mapstructure:"subjects" toml:"subjects" yaml:"subjects" json:"subjects"`

	LogFile string `mapstructure:"log_file" toml:"log_file" yaml:"log_file" json:"log_file"`

	Dashboard Dashboard `mapstructure:"dashboard" toml:"dashboard" yaml:"dashboard" json:"dashboard"`
	Server    Server    `mapstructure:"server" toml:"server" yaml:"server" json:"server"`
}

// Default returns the built-in configuration.
func Default() *Config {
	gh := remote.DefaultConfig()
	sc := sync.DefaultConfig()
	return &Config{
		Owner:        "pjp27",
		Repo:         "organizacion",
		Branch:       gh.Branch,
		TasksPath:    planner.DefaultTasksPath,
		ExamsPath:    planner.DefaultExamsPath,
		APIURL:       gh.APIURL,
		RawURL:       gh.RawURL,
		MaxRetries:   sc.MaxRetries,
		BaseDelay:    sc.BaseDelay,
		DefaultColor: schema.DefaultColor,
		Dashboard:    Dashboard{Host: "localhost", Port: 8080},
		Server:       Server{Addr: ":8787", DB: "contentd.db"},
	}
}

// Validate checks the settings a remote store cannot work without.
func (c *Config) Validate() error {
	var errs []error
	if c.Owner == "" || c.Repo == "" {
		errs = append(errs, fmt.Errorf("owner and repo are required"))
	}
	if c.TasksPath == "" || c.ExamsPath == "" {
		errs = append(errs, fmt.Errorf("tasks_path and exams_path are required"))
	}
	if c.TasksPath != "" && c.TasksPath == c.ExamsPath {
		errs = append(errs, fmt.Errorf("tasks_path and exams_path must differ (both %q)", c.TasksPath))
	}
	if c.MaxRetries < 1 {
		errs = append(errs, fmt.Errorf("max_retries must be at least 1 (got %d)", c.MaxRetries))
	}
	if c.BaseDelay < 0 {
		errs = append(errs, fmt.Errorf("base_delay cannot be negative (got %v)", c.BaseDelay))
	}
	for i, s := range c.Subjects {
		if s.Name == "" {
			errs = append(errs, fmt.Errorf("subjects[%d]: name is required", i))
		}
		if s.LeadTime != nil && *s.LeadTime < 0 {
			errs = append(errs, fmt.Errorf("subjects[%d]: lead_time cannot be negative", i))
		}
	}
	return errors.Join(errs...)
}

// Palette returns the default palette overlaid with the subject colours.
func (c *Config) Palette() view.Palette {
	p := view.DefaultPalette()
	if c.DefaultColor != "" {
		p.Default = c.DefaultColor
	}
	for _, s := range c.Subjects {
		if s.Color != "" {
			p.Colors[s.Name] = s.Color
		}
	}
	return p
}

// LeadTimes returns the default lead times overlaid with the subject settings.
func (c *Config) LeadTimes() map[string]int {
	out := make(map[string]int, len(schema.DefaultLeadTimes)+len(c.Subjects))
	for subject, days := range schema.DefaultLeadTimes {
		out[subject] = days
	}
	for _, s := range c.Subjects {
		if s.LeadTime != nil {
			out[s.Name] = *s.LeadTime
		}
	}
	return out
}

// RemoteConfig returns the GitHub client configuration.
func (c *Config) RemoteConfig(logger *log.Logger) *remote.Config {
	return &remote.Config{
		APIURL: c.APIURL,
		RawURL: c.RawURL,
		Owner:  c.Owner,
		Repo:   c.Repo,
		Branch: c.Branch,
		Logger: logger,
	}
}

// PlannerConfig returns the planner configuration. Observer and Now are
// left for the caller.
func (c *Config) PlannerConfig(logger *log.Logger) *planner.Config {
	cfg := planner.DefaultConfig()
	cfg.TasksPath = c.TasksPath
	cfg.ExamsPath = c.ExamsPath
	cfg.Palette = c.Palette()
	cfg.LeadTimes = c.LeadTimes()
	cfg.Sync = &sync.Config{
		MaxRetries: c.MaxRetries,
		BaseDelay:  c.BaseDelay,
		Logger:     logger,
	}
	cfg.Logger = logger
	return cfg
}

// Encode writes c as TOML. The server token is never written.
func Encode(w io.Writer, c *Config) error {
	if err := toml.NewEncoder(w).Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// WriteDefault writes the default configuration as TOML.
func WriteDefault(w io.Writer) error {
	cfg := Default()
	for _, name := range schema.Subjects() {
		days := schema.DefaultLeadTimes[name]
		cfg.Subjects = append(cfg.Subjects, Subject{
			Name:     name,
			Color:    schema.DefaultSubjectColors[name],
			LeadTime: &days,
		})
	}
	if _, err := io.WriteString(w, "# Planner configuration. The write token is read from PLANNER_TOKEN or --token.\n\n"); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return Encode(w, cfg)
}

// Loader reads the configuration through viper and can watch the file
// for changes.
type Loader struct {
	v      *viper.Viper
	logger *log.Logger
}

// NewLoader creates a loader. An empty path searches the default locations;
// otherwise path names the file to read.
func NewLoader(path string, logger *log.Logger) *Loader {
	if logger == nil {
		logger = log.New(os.Stderr, "[config] ", log.LstdFlags)
	}

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(FileName)
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "planner"))
		}
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, Default())

	return &Loader{v: v, logger: logger}
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("owner", d.Owner)
	v.SetDefault("repo", d.Repo)
	v.SetDefault("branch", d.Branch)
	v.SetDefault("tasks_path", d.TasksPath)
	v.SetDefault("exams_path", d.ExamsPath)
	v.SetDefault("api_url", d.APIURL)
	v.SetDefault("raw_url", d.RawURL)
	v.SetDefault("max_retries", d.MaxRetries)
	v.SetDefault("base_delay", d.BaseDelay)
	v.SetDefault("default_color", d.DefaultColor)
	v.SetDefault("log_file", d.LogFile)
	v.SetDefault("dashboard.host", d.Dashboard.Host)
	v.SetDefault("dashboard.port", d.Dashboard.Port)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.db", d.Server.DB)
	v.SetDefault("server.token", "")
}

// Load reads the file (if any) and environment and returns the result.
// A missing file in the search path is not an error; a missing explicit
// file is.
func (l *Loader) Load() (*Config, error) {
	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		l.logger.Printf("No config file found, using defaults")
	} else {
		l.logger.Printf("Loaded %s", l.v.ConfigFileUsed())
	}
	return l.decode()
}

func (l *Loader) decode() (*Config, error) {
	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// ConfigFile returns the file Load read, or "" when none was found.
func (l *Loader) ConfigFile() string {
	return l.v.ConfigFileUsed()
}

// Watch calls fn with the reloaded configuration each time the config file
// changes. Invalid edits are logged and skipped. It does nothing when no
// file was loaded.
func (l *Loader) Watch(fn func(*Config)) {
	if l.v.ConfigFileUsed() == "" {
		return
	}
	l.v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := l.decode()
		if err != nil {
			l.logger.Printf("Ignoring change to %s: %v", e.Name, err)
			return
		}
		l.logger.Printf("Reloaded %s", e.Name)
		fn(cfg)
	})
	l.v.WatchConfig()
}
