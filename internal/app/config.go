package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/vk/stepflow/internal/scheduler"
)

// Config holds everything an App instance needs to run one workflow.
type Config struct {
	// WorkflowPath is a definition file or a directory of definition files.
	WorkflowPath string

	// Policy orders dispatch among simultaneously eligible steps.
	Policy scheduler.Policy
	// Workers bounds concurrent step execution. 0 selects the policy
	// default: 1 for bfs/dfs, 3 for parallel.
	Workers int
	// StepTimeout bounds each action attempt; 0 disables the deadline.
	StepTimeout time.Duration

	LogFormat string
	LogLevel  string
}

// NewConfig validates a Config and applies defaults.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.WorkflowPath == "" {
		return nil, errors.New("WorkflowPath is a required configuration field and cannot be empty")
	}
	if cfg.Policy == "" {
		cfg.Policy = scheduler.BreadthFirst
	}
	if _, err := scheduler.ParsePolicy(string(cfg.Policy)); err != nil {
		return nil, err
	}
	if cfg.Workers < 0 {
		return nil, fmt.Errorf("workers must not be negative, got %d", cfg.Workers)
	}
	if cfg.Workers == 0 {
		if cfg.Policy == scheduler.Parallel {
			cfg.Workers = 3
		} else {
			cfg.Workers = 1
		}
	}
	return &cfg, nil
}
