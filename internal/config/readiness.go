package config

import (
	"fmt"
	"strings"
)

// Setting is a single line of the readiness report.
type Setting struct {
	Name   string
	Value  string
	Set    bool
	Secret bool
}

// Display renders the value, secrets only reveal their length.
func (s Setting) Display() string {
	if !s.Set {
		return "<missing>"
	}
	if s.Secret {
		return fmt.Sprintf("%s (%d chars)", strings.Repeat("*", 8), len(s.Value))
	}
	return s.Value
}

func setting(name, value string, secret bool) Setting {
	return Setting{
		Name:   name,
		Value:  value,
		Set:    strings.TrimSpace(value) != "",
		Secret: secret,
	}
}

// Readiness lists the settings a deployment needs, in the order they are checked.
func (c Config) Readiness() []Setting {
	state := c.State.File
	if c.State.Database.Enabled() {
		state = c.State.Database.File
		if c.State.Database.Url != "" {
			state = c.State.Database.Url
		}
	}

	return []Setting{
		setting("STUDIA_USERNAME", c.Site.Username, false),
		setting("STUDIA_PASSWORD", c.Site.Password, true),
		setting("EMAIL_FROM", c.Smtp.From, false),
		setting("EMAIL_PASSWORD", c.Smtp.Password, true),
		setting("EMAIL_TO", strings.Join(c.Recipients, ", "), false),
		setting("SMTP_SERVER", fmt.Sprintf("%s:%d", c.Smtp.Server, c.Smtp.Port), false),
		setting("site", c.Site.BaseUrl, false),
		setting("targets", fmt.Sprintf("%s %s", strings.Join(c.Targets.Months, ", "), c.Targets.Year), false),
		setting("state", state, false),
		setting("interval", c.Interval, false),
		setting("timezone", c.Timezone, false),
	}
}
