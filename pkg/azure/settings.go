package azure

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	dserrors "github.com/systmms/azadapter/internal/errors"
)

// Setting keys understood by ParseSettings.
const (
	SettingPollRetries   = "azure.PollRetries"
	SettingHTTPRetries   = "azure.HttpRetries"
	SettingHTTPTimeout   = "azure.HttpTimeoutMillis"
	SettingSocketTimeout = "azure.SocketTimeoutMillis"
)

// Default tunables.
const (
	DefaultPollRetries   = 30
	DefaultHTTPRetries   = 2
	DefaultHTTPTimeout   = 240 * time.Second
	DefaultSocketTimeout = 20 * time.Second
)

// Property is a named configuration value.
type Property struct {
	Name  string
	Value string
}

// PropertiesFromMap converts a settings map into properties sorted by name.
func PropertiesFromMap(m map[string]string) []Property {
	props := make([]Property, 0, len(m))
	for k, v := range m {
		props = append(props, Property{Name: k, Value: v})
	}
	sort.Slice(props, func(i, j int) bool { return props[i].Name < props[j].Name })
	return props
}

// Settings are the per connection tunables.
type Settings struct {
	PollRetries   int
	HTTPRetries   int
	HTTPTimeout   time.Duration
	SocketTimeout time.Duration
}

// DefaultSettings returns the tunables used when nothing is configured.
func DefaultSettings() Settings {
	return Settings{
		PollRetries:   DefaultPollRetries,
		HTTPRetries:   DefaultHTTPRetries,
		HTTPTimeout:   DefaultHTTPTimeout,
		SocketTimeout: DefaultSocketTimeout,
	}
}

// ParseSettings applies props over DefaultSettings. Unknown names are
// ignored; the last occurrence of a name wins. A malformed or negative
// value is a ConfigError.
func ParseSettings(props []Property) (Settings, error) {
	s := DefaultSettings()
	for _, p := range props {
		var err error
		switch p.Name {
		case SettingPollRetries:
			s.PollRetries, err = parseCount(p)
		case SettingHTTPRetries:
			s.HTTPRetries, err = parseCount(p)
		case SettingHTTPTimeout:
			s.HTTPTimeout, err = parseMillis(p)
		case SettingSocketTimeout:
			s.SocketTimeout, err = parseMillis(p)
		}
		if err != nil {
			return Settings{}, err
		}
	}
	return s, nil
}

func parseCount(p Property) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(p.Value))
	if err != nil || n < 0 {
		return 0, settingError(p, err)
	}
	return n, nil
}

func parseMillis(p Property) (time.Duration, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(p.Value), 10, 64)
	if err != nil || n < 0 {
		return 0, settingError(p, err)
	}
	return time.Duration(n) * time.Millisecond, nil
}

func settingError(p Property, err error) error {
	return dserrors.ConfigError{
		Field:      p.Name,
		Value:      p.Value,
		Message:    "expected a non-negative integer",
		Suggestion: fmt.Sprintf("Remove %s to use the default or set it to a whole number", p.Name),
		Err:        err,
	}
}
