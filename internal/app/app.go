// Package app contains the core application logic: configuration, the main
// App struct and the run lifecycle, decoupled from any specific entrypoint.
package app

import (
	"io"
	"log/slog"

	"github.com/vk/stepflow/internal/engine"
	"github.com/vk/stepflow/internal/loader"
	"github.com/vk/stepflow/internal/shell"
)

// App encapsulates the application's dependencies, configuration and
// lifecycle.
type App struct {
	outW   io.Writer
	logW   io.Writer
	logger *slog.Logger
	config *Config
	loader *loader.Loader
	action engine.Action
}

// NewApp constructs the application with an isolated logger. The action
// defaults to the shell runner; tests inject their own.
func NewApp(outW, logW io.Writer, cfg *Config) *App {
	return &App{
		outW:   outW,
		logW:   logW,
		logger: newLogger(cfg.LogLevel, cfg.LogFormat, logW),
		config: cfg,
		loader: loader.NewLoader(),
		action: shell.NewAction(),
	}
}

// SetAction replaces the step action. Primarily for tests.
func (a *App) SetAction(action engine.Action) {
	a.action = action
}
