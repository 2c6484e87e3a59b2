// Package cli holds the healthrecords commands.
package cli

import (
	"github.com/sirupsen/logrus"

	"health-records/internal/app"
	"health-records/internal/config"
)

// openApp loads the configuration and builds the application on top of it.
func openApp() (*app.App, *config.Config, *logrus.Logger, error) {
	cfg := config.GetConfig()
	logger := cfg.NewLogger()

	a, err := app.New(cfg, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	return a, cfg, logger, nil
}
