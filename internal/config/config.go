package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/williampepple1/legis-harvester/pkg/models"
)

// Source kinds
const (
	KindTable     = "table"
	KindPaginated = "paginated"
)

// Output formats
const (
	FormatCSV    = "csv"
	FormatSQLite = "sqlite"
)

// AppConfig holds the complete application configuration
type AppConfig struct {
	Scraper  ScraperConfig  `yaml:"scraper"`
	Browser  BrowserConfig  `yaml:"browser"`
	Proxies  ProxyConfig    `yaml:"proxies"`
	Output   OutputConfig   `yaml:"output"`
	Logging  LogConfig      `yaml:"logging"`
	Families []FamilyConfig `yaml:"families"`
}

// ScraperConfig holds the HTTP fetch configuration
type ScraperConfig struct {
	Workers    int               `yaml:"workers"`
	MaxRetries int               `yaml:"max_retries"`
	RetryDelay time.Duration     `yaml:"retry_delay"`
	MaxDelay   time.Duration     `yaml:"max_delay"`
	Timeout    time.Duration     `yaml:"timeout"`
	UserAgent  string            `yaml:"user_agent"`
	Headers    map[string]string `yaml:"headers,omitempty"`
}

// BrowserConfig holds the headless browser configuration used by table sources
type BrowserConfig struct {
	Headless      bool          `yaml:"headless"`
	ExecPath      string        `yaml:"exec_path"`
	WaitTimeout   time.Duration `yaml:"wait_timeout"`
	TableSelector string        `yaml:"table_selector"`
}

// ProxyConfig holds the proxy configuration
type ProxyConfig struct {
	Enabled bool     `yaml:"enabled"`
	Rotate  bool     `yaml:"rotate"`
	List    []string `yaml:"list"`
	Auth    struct {
		Username string `yaml:"username"`
		Password string `yaml:"password"`
	} `yaml:"auth"`
}

// OutputConfig holds the sink configuration
type OutputConfig struct {
	Dir         string `yaml:"dir"`
	Format      string `yaml:"format"`
	KeepPartial bool   `yaml:"keep_partial"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// FamilyConfig describes one source family: where its rows come from and how
// they map to records.
type FamilyConfig struct {
	Name          string        `yaml:"name"`
	Label         string        `yaml:"label"`
	Kind          string        `yaml:"kind"`
	Output        string        `yaml:"output"`
	Fields        []string      `yaml:"fields"`
	Columns       []string      `yaml:"columns"`
	YearField     string        `yaml:"year_field,omitempty"`
	FullTextField string        `yaml:"full_text_field"`
	LinkColumn    int           `yaml:"link_column"`
	Encoding      string        `yaml:"encoding,omitempty"`
	BaseURL       string        `yaml:"base_url"`
	LinkBase      string        `yaml:"link_base,omitempty"`
	URLTemplate   string        `yaml:"url_template,omitempty"`
	PageType      string        `yaml:"page_type,omitempty"`
	PageSize      int           `yaml:"page_size,omitempty"`
	Spans         []models.Span `yaml:"spans,omitempty"`
	SpansFile     string        `yaml:"spans_file,omitempty"`
}

// EnvOverrides are read from HARVEST_* environment variables and win over the file
type EnvOverrides struct {
	ChromePath  string        `envconfig:"CHROME_PATH"`
	LogLevel    string        `envconfig:"LOG_LEVEL"`
	LogDev      bool          `envconfig:"LOG_DEV"`
	Workers     int           `envconfig:"WORKERS"`
	OutputDir   string        `envconfig:"OUTPUT_DIR"`
	WaitTimeout time.Duration `envconfig:"WAIT_TIMEOUT"`
}

// Load loads the configuration from a YAML file on top of the defaults
func Load(filename string) (*AppConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	config := Default()
	config.Families = nil
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filename, err)
	}

	// A file without families keeps the built-in ones
	if len(config.Families) == 0 {
		config.Families = DefaultFamilies()
	}

	return config, nil
}

// ApplyEnv overlays HARVEST_* environment variables
func (c *AppConfig) ApplyEnv() error {
	var env EnvOverrides
	if err := envconfig.Process("harvest", &env); err != nil {
		return fmt.Errorf("failed to load environment: %w", err)
	}

	if env.ChromePath != "" {
		c.Browser.ExecPath = env.ChromePath
	}
	if env.LogLevel != "" {
		c.Logging.Level = env.LogLevel
	}
	if env.LogDev {
		c.Logging.Development = true
	}
	if env.Workers > 0 {
		c.Scraper.Workers = env.Workers
	}
	if env.OutputDir != "" {
		c.Output.Dir = env.OutputDir
	}
	if env.WaitTimeout > 0 {
		c.Browser.WaitTimeout = env.WaitTimeout
	}
	return nil
}

// Family returns the family with the given name
func (c *AppConfig) Family(name string) (FamilyConfig, bool) {
	for _, f := range c.Families {
		if f.Name == name {
			return f, true
		}
	}
	return FamilyConfig{}, false
}

// Validate checks the configuration for settings the harvester cannot run with
func (c *AppConfig) Validate() error {
	switch c.Output.Format {
	case FormatCSV, FormatSQLite:
	default:
		return fmt.Errorf("unsupported output format: %s", c.Output.Format)
	}
	if c.Scraper.Workers < 1 {
		return fmt.Errorf("scraper.workers must be at least 1")
	}

	seen := make(map[string]bool)
	for _, f := range c.Families {
		if seen[f.Name] {
			return fmt.Errorf("duplicate family %q", f.Name)
		}
		seen[f.Name] = true
		if err := f.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks a single family
func (f FamilyConfig) Validate() error {
	if f.Name == "" {
		return fmt.Errorf("family without name")
	}
	if len(f.Fields) == 0 {
		return fmt.Errorf("family %s: no fields declared", f.Name)
	}

	declared := make(map[string]bool, len(f.Fields))
	for _, field := range f.Fields {
		if declared[field] {
			return fmt.Errorf("family %s: field %q declared twice", f.Name, field)
		}
		declared[field] = true
	}
	for _, col := range f.Columns {
		if col != "" && !declared[col] {
			return fmt.Errorf("family %s: column %q is not a declared field", f.Name, col)
		}
	}
	if f.FullTextField == "" || !declared[f.FullTextField] {
		return fmt.Errorf("family %s: full text field %q is not declared", f.Name, f.FullTextField)
	}
	if f.YearField != "" && !declared[f.YearField] {
		return fmt.Errorf("family %s: year field %q is not declared", f.Name, f.YearField)
	}

	switch f.Kind {
	case KindTable:
		if len(f.Spans) == 0 && f.SpansFile == "" {
			return fmt.Errorf("family %s: table sources need spans or spans_file", f.Name)
		}
	case KindPaginated:
		if f.URLTemplate == "" {
			return fmt.Errorf("family %s: paginated sources need url_template", f.Name)
		}
		if f.PageSize <= 0 {
			return fmt.Errorf("family %s: page_size must be positive", f.Name)
		}
	default:
		return fmt.Errorf("family %s: unknown kind %q", f.Name, f.Kind)
	}
	return nil
}

// Default creates the default configuration
func Default() *AppConfig {
	return &AppConfig{
		Scraper: ScraperConfig{
			Workers:    4,
			MaxRetries: 3,
			RetryDelay: 2 * time.Second,
			MaxDelay:   30 * time.Second,
			Timeout:    60 * time.Second,
			UserAgent:  DefaultUserAgent,
			Headers:    DefaultHeaders(),
		},
		Browser: BrowserConfig{
			Headless:      true,
			WaitTimeout:   20 * time.Second,
			TableSelector: "table",
		},
		Proxies: ProxyConfig{
			Rotate: true,
			List:   []string{},
		},
		Output: OutputConfig{
			Dir:    "output",
			Format: FormatCSV,
		},
		Logging: LogConfig{
			Level: "info",
		},
		Families: DefaultFamilies(),
	}
}
