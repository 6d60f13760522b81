package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata"
)

const (
	DefaultBaseURL  = "https://www.swtue.de/abfahrt.html"
	DefaultTimeout  = 10 * time.Second
	DefaultTimezone = "Europe/Berlin"
)

type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatPlain Format = "plain"
)

func ParseFormat(value string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(value))); f {
	case FormatTable, FormatJSON, FormatPlain:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported output format %q (expected table, json or plain)", value)
	}
}

// Config is read once at startup and passed explicitly through the pipeline.
type Config struct {
	StopName     string    `json:"stop_name" yaml:"stop_name"`
	OutputFormat Format    `json:"output_format" yaml:"output_format"`
	Filters      []string  `json:"filters" yaml:"filters"`
	BaseURL      string    `json:"base_url" yaml:"base_url"`
	Timeout      string    `json:"timeout" yaml:"timeout"`
	Timezone     string    `json:"timezone" yaml:"timezone"`
	Stops        []Stop    `json:"stops" yaml:"stops"`
	Selectors    Selectors `json:"selectors" yaml:"selectors"`

	requestTimeout time.Duration
	location       *time.Location
}

// Stop is an entry of the optional stop directory.
type Stop struct {
	ID       string `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	Platform string `json:"platform" yaml:"platform"`
}

// Selectors locate the departure listing on the page. Empty values fall back to
// the defaults of the swtue.de markup.
type Selectors struct {
	Container   string `json:"container" yaml:"container"`
	Row         string `json:"row" yaml:"row"`
	Line        string `json:"line" yaml:"line"`
	Destination string `json:"destination" yaml:"destination"`
	Time        string `json:"time" yaml:"time"`
	Delay       string `json:"delay" yaml:"delay"`
	Platform    string `json:"platform" yaml:"platform"`
}

func DefaultSelectors() Selectors {
	return Selectors{
		Container:   "div#vdfimain",
		Row:         "tr",
		Line:        "td.linie",
		Destination: "td.richtung",
		Time:        "td.abfahrt",
		Delay:       "td.prognose",
		Platform:    "td.steig",
	}
}

func (s Selectors) withDefaults() Selectors {
	d := DefaultSelectors()
	pick := func(v, def string) string {
		if strings.TrimSpace(v) == "" {
			return def
		}
		return strings.TrimSpace(v)
	}
	return Selectors{
		Container:   pick(s.Container, d.Container),
		Row:         pick(s.Row, d.Row),
		Line:        pick(s.Line, d.Line),
		Destination: pick(s.Destination, d.Destination),
		Time:        pick(s.Time, d.Time),
		Delay:       pick(s.Delay, d.Delay),
		Platform:    pick(s.Platform, d.Platform),
	}
}

// Default returns the configuration used when no config file is given.
func Default() *Config {
	cfg := &Config{
		OutputFormat: FormatTable,
	}
	cfg.applyDefaults()
	return cfg
}

// Load reads the config file at path. JSON is expected unless the file has a
// .yaml or .yml extension.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Path: path, Err: err}
	}

	cfg := &Config{}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, cfg)
	default:
		err = json.Unmarshal(raw, cfg)
	}
	if err != nil {
		return nil, &Error{Path: path, Err: fmt.Errorf("malformed config: %w", err)}
	}

	var missing error
	if strings.TrimSpace(cfg.StopName) == "" {
		missing = multierr.Append(missing, fmt.Errorf("missing required key %q", "stop_name"))
	}
	if strings.TrimSpace(string(cfg.OutputFormat)) == "" {
		missing = multierr.Append(missing, fmt.Errorf("missing required key %q", "output_format"))
	}
	if missing != nil {
		return nil, &Error{Path: path, Err: missing}
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		var cfgErr *Error
		if errors.As(err, &cfgErr) {
			cfgErr.Path = path
		}
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.BaseURL) == "" {
		c.BaseURL = DefaultBaseURL
	}
	if strings.TrimSpace(c.Timeout) == "" {
		c.Timeout = DefaultTimeout.String()
	}
	if strings.TrimSpace(c.Timezone) == "" {
		c.Timezone = DefaultTimezone
	}
	c.Selectors = c.Selectors.withDefaults()
}

// Validate checks the final configuration, after flags and environment have been
// applied, and reports every problem at once.
func (c *Config) Validate() error {
	return c.validate(true)
}

// ValidateServe is Validate without the stop requirement; in serve mode the stop
// comes with each request.
func (c *Config) ValidateServe() error {
	return c.validate(false)
}

func (c *Config) validate(requireStop bool) error {
	var errs error

	c.StopName = strings.TrimSpace(c.StopName)
	if requireStop && c.StopName == "" {
		errs = multierr.Append(errs, fmt.Errorf("no stop given (set stop_name or --stop)"))
	}

	if format, err := ParseFormat(string(c.OutputFormat)); err != nil {
		errs = multierr.Append(errs, err)
	} else {
		c.OutputFormat = format
	}

	if u, err := url.Parse(c.BaseURL); err != nil || !u.IsAbs() || u.Host == "" {
		errs = multierr.Append(errs, fmt.Errorf("base_url must be an absolute URL, got %q", c.BaseURL))
	}

	if d, err := time.ParseDuration(c.Timeout); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("invalid timeout %q: %w", c.Timeout, err))
	} else if d <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("timeout must be positive, got %s", d))
	} else {
		c.requestTimeout = d
	}

	if loc, err := time.LoadLocation(c.Timezone); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("unknown timezone %q", c.Timezone))
	} else {
		c.location = loc
	}

	for i, stop := range c.Stops {
		if strings.TrimSpace(stop.ID) == "" {
			errs = multierr.Append(errs, fmt.Errorf("stops[%d] has no id", i))
		}
	}

	if errs != nil {
		return &Error{Err: errs}
	}
	return nil
}

// Override applies command line values on top of the loaded configuration.
// Empty values leave the configuration untouched.
func (c *Config) Override(stopName, format string, lines []string) {
	if s := strings.TrimSpace(stopName); s != "" {
		c.StopName = s
	}
	if f := strings.TrimSpace(format); f != "" {
		c.OutputFormat = Format(f)
	}
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" && !c.HasFilter(line) {
			c.Filters = append(c.Filters, line)
		}
	}
}

func (c *Config) HasFilter(line string) bool {
	for _, f := range c.Filters {
		if f == line {
			return true
		}
	}
	return false
}

// RequestTimeout is only meaningful after a successful Validate.
func (c *Config) RequestTimeout() time.Duration {
	if c.requestTimeout <= 0 {
		return DefaultTimeout
	}
	return c.requestTimeout
}

// Location is only meaningful after a successful Validate.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.Local
	}
	return c.location
}
