package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeGemini()
	c.normalizeBatch()
	c.normalizeDefaults()
	c.normalizeSession()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.ExportDir) == "" {
		c.Paths.ExportDir = defaultExportDir
	}
	if c.Paths.ExportDir, err = expandPath(c.Paths.ExportDir); err != nil {
		return fmt.Errorf("paths.export_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Watch.Dir, err = expandPath(strings.TrimSpace(c.Watch.Dir)); err != nil {
		return fmt.Errorf("watch.dir: %w", err)
	}
	if c.Watch.DebounceMillis <= 0 {
		c.Watch.DebounceMillis = defaultWatchDebounceMsec
	}
	c.Server.Bind = strings.TrimSpace(c.Server.Bind)
	if c.Server.Bind == "" {
		c.Server.Bind = defaultServerBind
	}
	return nil
}

func (c *Config) normalizeGemini() {
	c.Gemini.APIKey = strings.TrimSpace(c.Gemini.APIKey)
	if c.Gemini.APIKey == "" {
		if value, ok := os.LookupEnv("GEMINI_API_KEY"); ok {
			c.Gemini.APIKey = strings.TrimSpace(value)
		}
	}
	c.Gemini.BaseURL = strings.TrimRight(strings.TrimSpace(c.Gemini.BaseURL), "/")
	if c.Gemini.BaseURL == "" {
		c.Gemini.BaseURL = defaultGeminiBaseURL
	}
	c.Gemini.Model = strings.TrimSpace(c.Gemini.Model)
	if c.Gemini.Model == "" {
		c.Gemini.Model = defaultGeminiModel
	}
	if c.Gemini.TimeoutSeconds == 0 {
		c.Gemini.TimeoutSeconds = defaultGeminiTimeout
	}
}

func (c *Config) normalizeBatch() {
	if c.Batch.GroupSize == 0 {
		c.Batch.GroupSize = defaultGroupSize
	}
	if c.Batch.PausePollMillis == 0 {
		c.Batch.PausePollMillis = defaultPausePollMillis
	}
	if c.Batch.RetryAttempts == 0 {
		c.Batch.RetryAttempts = defaultRetryAttempts
	}
	if c.Batch.RetryBaseMillis == 0 {
		c.Batch.RetryBaseMillis = defaultRetryBaseMillis
	}
	if c.Batch.PreviewMaxEdge == 0 {
		c.Batch.PreviewMaxEdge = defaultPreviewMaxEdge
	}
}

func (c *Config) normalizeDefaults() {
	c.Defaults.Platform = strings.TrimSpace(c.Defaults.Platform)
	if c.Defaults.Platform == "" {
		c.Defaults.Platform = defaultPlatform
	}
	c.Defaults.Mode = strings.ToLower(strings.TrimSpace(c.Defaults.Mode))
	if c.Defaults.Mode == "" {
		c.Defaults.Mode = defaultMode
	}
}

func (c *Config) normalizeSession() {
	emails := make([]string, 0, len(c.Session.DeveloperEmails))
	for _, email := range c.Session.DeveloperEmails {
		if email = strings.ToLower(strings.TrimSpace(email)); email != "" {
			emails = append(emails, email)
		}
	}
	c.Session.DeveloperEmails = emails
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
