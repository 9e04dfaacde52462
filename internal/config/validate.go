package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateWatch(); err != nil {
		return err
	}
	if err := c.validateQueue(); err != nil {
		return err
	}
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	if err := c.validateAuthors(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateWatch() error {
	if c.Watch.GlassDir == "" && c.Watch.OrdersDir == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("watch.glass_dir or watch.orders_dir is required. Edit %s (create with 'docflow config init')", defaultPath)
	}
	if c.Watch.GlassDir != "" && c.Watch.GlassDir == c.Watch.OrdersDir {
		return errors.New("watch.glass_dir and watch.orders_dir must be different folders")
	}
	for key, name := range map[string]string{
		"watch.archive_dir_name": c.Watch.ArchiveDirName,
		"watch.skipped_dir_name": c.Watch.SkippedDirName,
	} {
		if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
			return fmt.Errorf("%s must be a plain folder name, got %q", key, name)
		}
	}
	if strings.EqualFold(c.Watch.ArchiveDirName, c.Watch.SkippedDirName) {
		return errors.New("watch.archive_dir_name and watch.skipped_dir_name must differ")
	}
	if c.Watch.Polling && c.Watch.PollInterval <= 0 {
		return errors.New("watch.poll_interval must be positive when watch.polling is true")
	}
	if c.Watch.StabilityMs < 0 {
		return errors.New("watch.stability_ms must be >= 0")
	}
	return nil
}

func (c *Config) validateQueue() error {
	if c.Queue.MaxRetries < 0 {
		return errors.New("queue.max_retries must be >= 0")
	}
	if c.Queue.RetryBaseDelayMs <= 0 {
		return errors.New("queue.retry_base_delay_ms must be positive")
	}
	if c.Queue.RetryMaxDelayMs < c.Queue.RetryBaseDelayMs {
		return errors.New("queue.retry_max_delay_ms must be >= queue.retry_base_delay_ms")
	}
	if c.Queue.DelayBetweenJobsMs < 0 {
		return errors.New("queue.delay_between_jobs_ms must be >= 0")
	}
	return nil
}

func (c *Config) validateStore() error {
	if c.Store.BusyTimeoutMs < 0 {
		return errors.New("store.busy_timeout_ms must be >= 0")
	}
	if c.Store.TxTimeoutSeconds <= 0 {
		return errors.New("store.tx_timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.NtfyTopic != "" && c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	return nil
}

func (c *Config) validateAuthors() error {
	for name, userID := range c.Authors.Mappings {
		if userID <= 0 {
			return fmt.Errorf("authors.mappings[%q] must be a positive user id", name)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must be >= 0")
	}
	if filepath.Clean(c.Paths.LogDir) == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}
