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
	if err := c.normalizeWatch(); err != nil {
		return err
	}
	c.normalizeNotifications()
	c.normalizeAuthors()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIToken == "" {
		if value, ok := os.LookupEnv("DOCFLOW_API_TOKEN"); ok {
			c.Paths.APIToken = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizeWatch() error {
	var err error
	if c.Watch.GlassDir, err = expandPath(strings.TrimSpace(c.Watch.GlassDir)); err != nil {
		return fmt.Errorf("watch.glass_dir: %w", err)
	}
	if c.Watch.OrdersDir, err = expandPath(strings.TrimSpace(c.Watch.OrdersDir)); err != nil {
		return fmt.Errorf("watch.orders_dir: %w", err)
	}
	c.Watch.ArchiveDirName = strings.TrimSpace(c.Watch.ArchiveDirName)
	if c.Watch.ArchiveDirName == "" {
		c.Watch.ArchiveDirName = defaultArchiveDirName
	}
	c.Watch.SkippedDirName = strings.TrimSpace(c.Watch.SkippedDirName)
	if c.Watch.SkippedDirName == "" {
		c.Watch.SkippedDirName = defaultSkippedDirName
	}
	return nil
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("DOCFLOW_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeAuthors() {
	if len(c.Authors.Mappings) == 0 {
		c.Authors.Mappings = map[string]int64{}
		return
	}
	cleaned := make(map[string]int64, len(c.Authors.Mappings))
	for name, userID := range c.Authors.Mappings {
		name = strings.Join(strings.Fields(name), " ")
		if name == "" {
			continue
		}
		cleaned[name] = userID
	}
	c.Authors.Mappings = cleaned
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
