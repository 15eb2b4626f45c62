// Package container wires the trip finance service together and manages its
// lifecycle.
package container

import (
	"fmt"

	"github.com/garyjia/trip-finance/internal/config"
	larkinfra "github.com/garyjia/trip-finance/internal/infrastructure/external/lark"
	"github.com/garyjia/trip-finance/internal/infrastructure/worker"
	httpapi "github.com/garyjia/trip-finance/internal/interfaces/http"
)

// validate checks the settings the container itself depends on. Section-level
// checks live in config.Validate.
func validate(cfg *config.Config) error {
	if cfg.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if cfg.Storage.AttachmentDir == "" {
		return fmt.Errorf("storage.attachment_dir is required")
	}
	if cfg.Storage.ReportDir == "" {
		return fmt.Errorf("storage.report_dir is required")
	}
	if cfg.Lark.Enabled {
		if cfg.Lark.AppID == "" || cfg.Lark.AppSecret == "" {
			return fmt.Errorf("lark.app_id and lark.app_secret are required when lark is enabled")
		}
		if cfg.Lark.FinanceChatID == "" {
			return fmt.Errorf("lark.finance_chat_id is required when lark is enabled")
		}
	}
	return nil
}

func maxUploadBytes(cfg *config.Config) int64 {
	return cfg.Storage.MaxUploadMB << 20
}

func serverConfig(cfg *config.Config) httpapi.ServerConfig {
	sc := httpapi.DefaultServerConfig()
	if cfg.Server.Host != "" {
		sc.Host = cfg.Server.Host
	}
	if cfg.Server.Port != 0 {
		sc.Port = cfg.Server.Port
	}
	if cfg.Server.ReadTimeout > 0 {
		sc.ReadTimeout = cfg.Server.ReadTimeout
	}
	if cfg.Server.WriteTimeout > 0 {
		sc.WriteTimeout = cfg.Server.WriteTimeout
	}
	if cfg.Server.Mode != "" {
		sc.Mode = cfg.Server.Mode
	}
	if cfg.Metrics.Path != "" {
		sc.MetricsPath = cfg.Metrics.Path
	}
	if n := maxUploadBytes(cfg); n > 0 {
		sc.MaxUploadBytes = n
	}
	return sc
}

func notifierConfig(cfg *config.Config) larkinfra.NotifierConfig {
	return larkinfra.NotifierConfig{
		ReceiveIDType: cfg.Lark.ReceiveIDType,
		ReceiveID:     cfg.Lark.FinanceChatID,
		Timeout:       cfg.Lark.APITimeout,
	}
}

func reminderConfig(cfg *config.Config) worker.ReminderConfig {
	return worker.ReminderConfig{
		Interval: cfg.Reminders.Interval,
		MinGap:   cfg.Reminders.MinGap,
	}
}
