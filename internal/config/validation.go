package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/edgard/studybuddy/internal/errors"
)

// Validate checks struct tags and the cross-field rules tags cannot express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return apperrors.NewConfigError("configuration validation failed", err)
	}

	// A final evaluation makes two model calls, each bounded by gemini.timeout.
	if c.Server.WriteTimeout < 2*c.Gemini.Timeout {
		return apperrors.NewConfigError(fmt.Sprintf("server.write_timeout (%s) must be at least twice gemini.timeout (%s)",
			c.Server.WriteTimeout, c.Gemini.Timeout), nil)
	}

	for name := range c.Scheduler.Tasks {
		if _, known := DefaultTasks[name]; !known {
			return apperrors.NewConfigError("unknown scheduler task "+name, nil)
		}
	}

	return nil
}

// IsAdmin reports whether userID is the configured Telegram admin. An unset
// admin ID means nobody is admin.
func (c *Config) IsAdmin(userID int64) bool {
	return c.Telegram.AdminUserID != 0 && userID == c.Telegram.AdminUserID
}
