package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"review-scraper/filter"
	"review-scraper/models"

	"gopkg.in/yaml.v3"
)

// DefaultOutputFile is the single-target output file
const DefaultOutputFile = "glassdoor_ratings.csv"

// ConfigError is an invalid or incomplete configuration. It is raised before
// any browser work starts.
type ConfigError struct {
	Msg string
	Err error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration error: %s: %v", e.Msg, e.Err)
	}
	return "configuration error: " + e.Msg
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

func configErr(err error, format string, args ...interface{}) error {
	return &ConfigError{Msg: fmt.Sprintf(format, args...), Err: err}
}

// BrowserConfig tunes the browser session
type BrowserConfig struct {
	UserDataDir      string        `yaml:"user_data_dir"`
	LoadTimeout      time.Duration `yaml:"load_timeout"`
	Settle           time.Duration `yaml:"settle"`
	PageRate         float64       `yaml:"page_rate"`
	LoginURL         string        `yaml:"login_url"`
	SignedInSelector string        `yaml:"signed_in_selector"`
}

// LogConfig selects log level and an optional rotating log file
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Config is the full run configuration: YAML file values overridden by flags
type Config struct {
	URL          string `yaml:"url"`
	TargetsFile  string `yaml:"targets_file"`
	File         string `yaml:"file"`
	OutputDir    string `yaml:"output_dir"`
	Limit        int    `yaml:"limit"`
	StartFromURL bool   `yaml:"start_from_url"`
	MaxDate      string `yaml:"max_date"`
	MinDate      string `yaml:"min_date"`
	Sort         string `yaml:"sort"` // "asc", "desc" or empty

	Headless        bool   `yaml:"headless"`
	Username        string `yaml:"username"`
	Password        string `yaml:"password"`
	CredentialsFile string `yaml:"credentials_file"`
	KeyringAccount  string `yaml:"keyring_account"`

	DatabaseURL       string `yaml:"database_url"`
	Spreadsheet       string `yaml:"spreadsheet"`
	SheetsCredentials string `yaml:"sheets_credentials"`
	NotifyChat        int64  `yaml:"notify_chat"`
	SnapshotDir       string `yaml:"snapshot_dir"`

	Browser BrowserConfig `yaml:"browser"`
	Log     LogConfig     `yaml:"log"`
}

// GetDefaultConfig returns a default configuration
func GetDefaultConfig() *Config {
	return &Config{
		File:  DefaultOutputFile,
		Limit: 25,
		Browser: BrowserConfig{
			LoadTimeout: 15 * time.Second,
			Settle:      time.Second,
			PageRate:    1,
		},
		Log: LogConfig{Level: "info"},
	}
}

// LoadConfig overlays the YAML file at path onto cfg. A missing file is not
// an error.
func LoadConfig(path string, cfg *Config) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return configErr(err, "failed to read config file %s", path)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return configErr(err, "failed to parse config file %s", path)
	}
	return nil
}

// Policy validates the stopping rules and builds the policy
func (c *Config) Policy() (filter.Policy, error) {
	maxDate, err := parseBound("max-date", c.MaxDate)
	if err != nil {
		return filter.Policy{}, err
	}
	minDate, err := parseBound("min-date", c.MinDate)
	if err != nil {
		return filter.Policy{}, err
	}

	policy, err := filter.NewPolicy(c.Limit, maxDate, minDate, c.StartFromURL)
	if err != nil {
		return filter.Policy{}, configErr(err, "invalid stopping rules")
	}
	return policy, nil
}

func parseBound(name, value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	t, err := models.ParseReviewDate(value)
	if err != nil {
		return nil, configErr(err, "invalid %s %q, expected YYYY-MM-DD", name, value)
	}
	return &t, nil
}

// SortAscending returns the requested date sort, or nil when none was given
func (c *Config) SortAscending() (*bool, error) {
	var asc bool
	switch strings.ToLower(strings.TrimSpace(c.Sort)) {
	case "":
		return nil, nil
	case "asc", "ascending":
		asc = true
	case "desc", "descending":
		asc = false
	default:
		return nil, configErr(nil, "invalid sort %q, expected asc or desc", c.Sort)
	}
	return &asc, nil
}

// Validate checks every setting that can be checked without network access
func (c *Config) Validate() error {
	if c.URL == "" && c.TargetsFile == "" {
		return configErr(nil, "no target: pass a listing URL or a target list file")
	}
	if c.URL != "" && c.TargetsFile != "" {
		return configErr(nil, "pass either a listing URL or a target list file, not both")
	}

	policy, err := c.Policy()
	if err != nil {
		return err
	}

	asc, err := c.SortAscending()
	if err != nil {
		return err
	}
	if asc != nil {
		if !c.StartFromURL {
			return configErr(nil, "sort only applies when starting from a listing URL")
		}
		if want, ok := policy.Ascending(); ok && want != *asc {
			return configErr(filter.ErrSortMismatch, "sort %q conflicts with %s", c.Sort, policy.Kind)
		}
	}

	if c.Browser.PageRate < 0 {
		return configErr(nil, "page rate must not be negative")
	}
	return nil
}

// Targets returns the jobs to run: the target list file, or the single URL
// written to File
func (c *Config) Targets() ([]models.TargetJob, error) {
	if c.TargetsFile != "" {
		return LoadTargets(c.TargetsFile)
	}

	output := c.File
	if output == "" {
		output = DefaultOutputFile
	}
	return []models.TargetJob{{Name: c.URL, URL: c.URL, Output: output}}, nil
}
