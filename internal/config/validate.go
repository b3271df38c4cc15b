package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sendbridge/mailer/internal/pkg"
)

// Validate runs struct-tag validation (go-playground/validator) over the
// configuration and collects every failing field into a single error, the
// way the teacher's own config.Validate aggregates auth/database/redis
// failures into one report.
func (c *Config) Validate() error {
	err := pkg.Validate(c)
	if err == nil {
		return nil
	}

	fields := pkg.ValidationErrors(err)
	if len(fields) == 0 {
		return fmt.Errorf("config validation failed: %w", err)
	}

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	msgs := make([]string, 0, len(names))
	for _, name := range names {
		msgs = append(msgs, fmt.Sprintf("%s failed %q validation", name, fields[name]))
	}
	return fmt.Errorf("config validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}
