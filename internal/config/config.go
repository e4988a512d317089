// Package config reads the settings of the watcher from a json5 file, .env files and the
// environment, in increasing order of priority.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"seatwatch/internal/components/telemetry"
	"seatwatch/internal/courses"
	"seatwatch/internal/notify"
	"seatwatch/internal/scrapers/studia"
	"seatwatch/internal/snapshot"
	"seatwatch/pkg/configutil"

	"github.com/joho/godotenv"
)

type SiteConfig struct {
	BaseUrl           string   `json:"base_url"`
	BadDomains        []string `json:"bad_domains"`
	Username          string   `json:"username"`
	Password          string   `json:"password"`
	Timeout           string   `json:"timeout"`
	RequestsPerSecond float64  `json:"requests_per_second"`
	CloudflareBypass  bool     `json:"cloudflare_bypass"`
}

type TargetsConfig struct {
	Months []string `json:"months"`
	Year   string   `json:"year"`
}

type SmtpConfig struct {
	Server   string `json:"server"`
	Port     int    `json:"port"`
	From     string `json:"from"`
	Password string `json:"password"`
}

type StateConfig struct {
	// File is the json snapshot, it is used unless a database is configured.
	File     string            `json:"file"`
	Database snapshot.Database `json:"database"`
}

type Config struct {
	Site       SiteConfig       `json:"site"`
	Targets    TargetsConfig    `json:"targets"`
	Smtp       SmtpConfig       `json:"smtp"`
	Recipients []string         `json:"recipients"`
	State      StateConfig      `json:"state"`
	Interval   string           `json:"interval"`
	Timezone   string           `json:"timezone"`
	Telemetry  telemetry.Config `json:"telemetry"`
}

func Default() Config {
	return Config{
		Site: SiteConfig{
			BaseUrl:           studia.DefaultBaseURL,
			BadDomains:        studia.DefaultBadDomains,
			Timeout:           studia.DefaultTimeout.String(),
			RequestsPerSecond: 2,
		},
		Targets: TargetsConfig{
			Months: []string{"julio", "agosto"},
			Year:   "2026",
		},
		Smtp: SmtpConfig{
			Server: "smtp.gmail.com",
			Port:   587,
		},
		State: StateConfig{
			File: "cursos_anteriores.json",
		},
		Interval: "10m",
		Timezone: "Europe/Madrid",
	}
}

// Load reads the configuration file at `path` (a missing file is fine), then the .env.local
// and .env files next to it, then the environment.
func Load(path string) (Config, error) {
	config := Default()

	err := configutil.ReadConfig(path, &config)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	dir := filepath.Dir(path)
	for _, envFile := range []string{".env.local", ".env"} {
		// godotenv never overrides a variable that is already set, so earlier files win
		err = godotenv.Load(filepath.Join(dir, envFile))
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("read %s: %w", envFile, err)
		}
	}

	err = config.ApplyEnv(os.LookupEnv)
	if err != nil {
		return Config{}, err
	}
	return config, nil
}

// ApplyEnv overrides settings with the environment variables the original deployment used.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	set := func(name string, out *string) {
		value, ok := lookup(name)
		if ok && value != "" {
			*out = value
		}
	}

	set("STUDIA_USERNAME", &c.Site.Username)
	set("STUDIA_PASSWORD", &c.Site.Password)
	set("EMAIL_FROM", &c.Smtp.From)
	set("EMAIL_PASSWORD", &c.Smtp.Password)
	set("SMTP_SERVER", &c.Smtp.Server)

	if value, ok := lookup("SMTP_PORT"); ok && value != "" {
		port, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("SMTP_PORT: %w", err)
		}
		c.Smtp.Port = port
	}
	if value, ok := lookup("EMAIL_TO"); ok && value != "" {
		c.Recipients = SplitRecipients(value)
	}
	return nil
}

// SplitRecipients splits a comma separated list of addresses, blank entries are dropped.
func SplitRecipients(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate returns every problem with the configuration at once.
func (c Config) Validate() error {
	var errs []error
	missing := func(name, value string) {
		if strings.TrimSpace(value) == "" {
			errs = append(errs, fmt.Errorf("%s is not set", name))
		}
	}

	missing("site.username (STUDIA_USERNAME)", c.Site.Username)
	missing("site.password (STUDIA_PASSWORD)", c.Site.Password)
	missing("smtp.from (EMAIL_FROM)", c.Smtp.From)
	missing("smtp.password (EMAIL_PASSWORD)", c.Smtp.Password)
	missing("smtp.server (SMTP_SERVER)", c.Smtp.Server)
	missing("targets.year", c.Targets.Year)
	if len(c.Recipients) == 0 {
		errs = append(errs, fmt.Errorf("recipients (EMAIL_TO) is empty"))
	}
	if len(courses.ParseMonths(c.Targets.Months)) == 0 {
		errs = append(errs, fmt.Errorf("targets.months is empty"))
	}
	if c.Smtp.Port <= 0 || c.Smtp.Port > 65535 {
		errs = append(errs, fmt.Errorf("smtp.port %d is out of range", c.Smtp.Port))
	}
	if !c.State.Database.Enabled() && c.State.File == "" {
		errs = append(errs, fmt.Errorf("state.file is not set"))
	}

	interval, err := time.ParseDuration(c.Interval)
	if err != nil {
		errs = append(errs, fmt.Errorf("interval: %w", err))
	} else if interval <= 0 {
		errs = append(errs, fmt.Errorf("interval must be positive"))
	}
	_, err = time.ParseDuration(c.Site.Timeout)
	if err != nil {
		errs = append(errs, fmt.Errorf("site.timeout: %w", err))
	}
	_, err = time.LoadLocation(c.Timezone)
	if err != nil {
		errs = append(errs, fmt.Errorf("timezone: %w", err))
	}

	return errors.Join(errs...)
}

// IntervalDuration is the time between two checks, invalid values fall back to 10 minutes.
func (c Config) IntervalDuration() time.Duration {
	interval, err := time.ParseDuration(c.Interval)
	if err != nil || interval <= 0 {
		return time.Minute * 10
	}
	return interval
}

func (c Config) CourseTargets() courses.Targets {
	return courses.Targets{
		Months: courses.ParseMonths(c.Targets.Months),
		Year:   strings.TrimSpace(c.Targets.Year),
	}
}

func (c Config) Credentials() studia.Credentials {
	return studia.Credentials{
		Username: c.Site.Username,
		Password: c.Site.Password,
	}
}

// StudiaOptions are the scraper options, `dump` may be nil.
func (c Config) StudiaOptions(dump telemetry.MessageOutput) studia.Options {
	opts := studia.DefaultOptions()
	opts.BaseURL = c.Site.BaseUrl
	if c.Site.BadDomains != nil {
		opts.BadDomains = c.Site.BadDomains
	}
	timeout, err := time.ParseDuration(c.Site.Timeout)
	if err == nil && timeout > 0 {
		opts.Timeout = timeout
	}
	if c.Site.RequestsPerSecond > 0 {
		opts.RequestsPerSecond = c.Site.RequestsPerSecond
	}
	opts.CloudflareBypass = c.Site.CloudflareBypass
	opts.Dump = dump
	opts.Targets = c.CourseTargets()
	return opts
}

func (c Config) EmailOptions() notify.EmailOptions {
	return notify.EmailOptions{
		Server:   c.Smtp.Server,
		Port:     c.Smtp.Port,
		From:     c.Smtp.From,
		Password: c.Smtp.Password,
	}
}
