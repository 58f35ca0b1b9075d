// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"os"
	"strings"
	"sync"

	"github.com/ManuGH/bouquetmaker/internal/app/bootstrap"
	"github.com/ManuGH/bouquetmaker/internal/config"
	xglog "github.com/ManuGH/bouquetmaker/internal/log"
	"github.com/ManuGH/bouquetmaker/internal/version"
)

// skipConfig marks commands that run without loading the configuration.
const skipConfig = "skip-config"

type commandContext struct {
	configFlag *string
	envFlag    *string

	configOnce sync.Once
	loader     *config.Loader
	config     config.AppConfig
	configErr  error
}

func newCommandContext(configFlag, envFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag, envFlag: envFlag}
}

func (c *commandContext) configPath() string {
	if c.configFlag != nil {
		if p := strings.TrimSpace(*c.configFlag); p != "" {
			return p
		}
	}
	return strings.TrimSpace(os.Getenv(config.EnvPrefix + "CONFIG"))
}

// ensureConfig loads the dotenv file and the configuration once, then
// reconfigures the global logger from it.
func (c *commandContext) ensureConfig() (config.AppConfig, error) {
	c.configOnce.Do(func() {
		if c.envFlag != nil {
			if err := config.LoadDotEnv(*c.envFlag); err != nil {
				c.configErr = err
				return
			}
		}
		c.loader = config.NewLoader(c.configPath(), version.Version)
		cfg, err := c.loader.Load()
		if err != nil {
			c.configErr = err
			return
		}
		xglog.Reconfigure(xglog.Config{
			Level:   cfg.Log.Level,
			Format:  cfg.Log.Format,
			Service: "bouquetmaker",
			Version: cfg.Version,
		})
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) withContainer(ctx context.Context, fn func(*bootstrap.Container) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	container, err := bootstrap.Wire(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = container.Close() }()
	return fn(container)
}
