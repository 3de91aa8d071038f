package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"stockmeta/internal/platform"
)

// Validate ensures the configuration is usable. A missing Gemini API key is
// not an error here: the key may come from the session store instead, and
// batches refuse to start without one.
func (c *Config) Validate() error {
	if err := c.validateGemini(); err != nil {
		return err
	}
	if err := c.validateBatch(); err != nil {
		return err
	}
	if err := c.validateDefaults(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateGemini() error {
	parsed, err := url.Parse(c.Gemini.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("gemini.base_url %q must be an absolute URL", c.Gemini.BaseURL)
	}
	if c.Gemini.TimeoutSeconds < 0 {
		return errors.New("gemini.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateBatch() error {
	if c.Batch.GroupSize < 1 {
		return errors.New("batch.group_size must be at least 1")
	}
	if c.Batch.PausePollMillis < 1 {
		return errors.New("batch.pause_poll_ms must be positive")
	}
	if c.Batch.SettleMillis < 0 {
		return errors.New("batch.settle_ms must not be negative")
	}
	if c.Batch.RetryAttempts < 1 {
		return errors.New("batch.retry_attempts must be at least 1")
	}
	if c.Batch.RetryBaseMillis < 0 {
		return errors.New("batch.retry_base_ms must not be negative")
	}
	if c.Batch.PreviewMaxEdge < 16 {
		return errors.New("batch.preview_max_edge must be at least 16")
	}
	return nil
}

func (c *Config) validateDefaults() error {
	if _, err := platform.Parse(c.Defaults.Platform); err != nil {
		return fmt.Errorf("defaults.platform: %w", err)
	}
	switch c.Defaults.Mode {
	case "metadata", "image_to_prompt":
		return nil
	default:
		return fmt.Errorf("defaults.mode %q must be metadata or image_to_prompt", c.Defaults.Mode)
	}
}

func (c *Config) validateServer() error {
	if _, _, err := net.SplitHostPort(c.Server.Bind); err != nil {
		return fmt.Errorf("server.bind %q: %w", c.Server.Bind, err)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format %q must be console or json", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q is not recognized", strings.TrimSpace(c.Logging.Level))
	}
	return nil
}
