package config

import (
	"fmt"
	"sort"
	"strings"
)

// ConfigError reports required settings missing for one branch of the run.
type ConfigError struct {
	Branch  string
	Missing []string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s credentials not configured: missing %s", e.Branch, strings.Join(e.Missing, ", "))
}

func missing(branch string, required map[string]string) error {
	var keys []string
	for key, value := range required {
		if value == "" {
			keys = append(keys, key)
		}
	}
	if len(keys) == 0 {
		return nil
	}
	sort.Strings(keys)
	return &ConfigError{Branch: branch, Missing: keys}
}
