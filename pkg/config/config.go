package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"
)

// Config holds the complete hpcompose configuration
type Config struct {
	Version   string          `yaml:"version" json:"version"`
	Logging   LoggingConfig   `yaml:"logging" json:"logging"`
	Machine   MachineConfig   `yaml:"machine" json:"machine"`
	Launcher  LauncherConfig  `yaml:"launcher" json:"launcher"`
	Scheduler SchedulerConfig `yaml:"scheduler" json:"scheduler"`
	Workflow  WorkflowConfig  `yaml:"workflow" json:"workflow"`
	Backup    BackupConfig    `yaml:"backup" json:"backup"`
	Submit    SubmitConfig    `yaml:"submit" json:"submit"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// MachineConfig selects the node shape used for placement. Name "" means
// detect from the hostname; Cores/GPUs override the registry entry.
type MachineConfig struct {
	Name  string `yaml:"name" json:"name"`
	Cores int    `yaml:"cores" json:"cores"`
	GPUs  int    `yaml:"gpus" json:"gpus"`
}

// LauncherConfig names the launcher profile; "" means detect.
type LauncherConfig struct {
	Name string `yaml:"name" json:"name"`
}

// SchedulerConfig names the batch scheduler; "" follows the machine,
// "none" runs workflows in place.
type SchedulerConfig struct {
	Name string `yaml:"name" json:"name"`
}

// WorkflowConfig holds defaults applied to every workflow description
type WorkflowConfig struct {
	ParentDirectory string `yaml:"parent_directory" json:"parent_directory"`
	TimeIndex       bool   `yaml:"time_index" json:"time_index"`
	Subdirs         bool   `yaml:"subdirs" json:"subdirs"`
}

// BackupConfig holds backup manifest settings
type BackupConfig struct {
	SourceEndpointFile string `yaml:"source_endpoint_file" json:"source_endpoint_file"`
	RecursiveSymlinks  string `yaml:"recursive_symlinks" json:"recursive_symlinks"`
}

// SubmitConfig controls retries of the scheduler submit command
type SubmitConfig struct {
	Retries    uint          `yaml:"retries" json:"retries"`
	RetryDelay time.Duration `yaml:"retry_delay" json:"retry_delay"`
}

var DefaultConfig = Config{
	Version: "1.0",
	Logging: LoggingConfig{
		Level:  "INFO",
		Format: "text",
	},
	Workflow: WorkflowConfig{
		ParentDirectory: ".",
		TimeIndex:       false,
		Subdirs:         true,
	},
	Backup: BackupConfig{
		SourceEndpointFile: "~/.hpcompose-source-endpoint",
		RecursiveSymlinks:  "ignore",
	},
	Submit: SubmitConfig{
		Retries:    3,
		RetryDelay: 2 * time.Second,
	},
}

// LoadConfig loads configuration from the first file found, in order:
//
//  1. explicitPath (the --config flag)
//  2. $HPCOMPOSE_CONFIG
//  3. ./hpcompose.yml
//  4. ./config/hpcompose.yml
//  5. ~/.hpcompose/hpcompose.yml
//  6. /etc/hpcompose/hpcompose.yml
//
// Environment overrides are applied on top and the result is validated.
// The returned string names the file used.
func LoadConfig(explicitPath string) (*Config, string, error) {
	config := DefaultConfig

	path, err := loadFromFile(&config, explicitPath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load config file: %w", err)
	}

	applyEnvironmentOverrides(&config)

	if e := config.Validate(); e != nil {
		return nil, "", fmt.Errorf("configuration validation failed: %w", e)
	}

	return &config, path, nil
}

func searchPaths(explicitPath string) []string {
	return []string{
		explicitPath,
		os.Getenv("HPCOMPOSE_CONFIG"),
		"./hpcompose.yml",
		"./config/hpcompose.yml",
		"~/.hpcompose/hpcompose.yml",
		"/etc/hpcompose/hpcompose.yml",
	}
}

func loadFromFile(config *Config, explicitPath string) (string, error) {
	for i, path := range searchPaths(explicitPath) {
		if path == "" {
			continue
		}

		expanded, err := homedir.Expand(path)
		if err != nil {
			return "", fmt.Errorf("failed to expand %s: %w", path, err)
		}

		if _, err := os.Stat(expanded); os.IsNotExist(err) {
			// an explicit --config that does not exist is a mistake, not a fallback
			if i == 0 {
				return "", fmt.Errorf("config file %s does not exist", expanded)
			}
			continue
		}

		data, err := os.ReadFile(expanded)
		if err != nil {
			return "", fmt.Errorf("failed to read config file %s: %w", expanded, err)
		}

		if err := yaml.Unmarshal(data, config); err != nil {
			return "", fmt.Errorf("failed to parse config file %s: %w", expanded, err)
		}

		return expanded, nil
	}

	return "built-in defaults (no config file found)", nil
}

func applyEnvironmentOverrides(config *Config) {
	if val := os.Getenv("HPCOMPOSE_LOG_LEVEL"); val != "" {
		config.Logging.Level = val
	}
	if val := os.Getenv("HPCOMPOSE_LOG_FORMAT"); val != "" {
		config.Logging.Format = val
	}
	if val := os.Getenv("HPCOMPOSE_MACHINE"); val != "" {
		config.Machine.Name = val
	}
	if val := os.Getenv("HPCOMPOSE_LAUNCHER"); val != "" {
		config.Launcher.Name = val
	}
	if val := os.Getenv("HPCOMPOSE_SCHEDULER"); val != "" {
		config.Scheduler.Name = val
	}
	if val := os.Getenv("HPCOMPOSE_SUBMIT_RETRIES"); val != "" {
		if n, err := strconv.ParseUint(val, 10, 32); err == nil {
			config.Submit.Retries = uint(n)
		}
	}
}

func (c *Config) Validate() error {
	validLevels := map[string]bool{"DEBUG": true, "INFO": true, "WARN": true, "WARNING": true, "ERROR": true}
	if !validLevels[strings.ToUpper(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	if c.Machine.Cores < 0 {
		return fmt.Errorf("invalid machine cores: %d", c.Machine.Cores)
	}

	if c.Machine.GPUs < 0 {
		return fmt.Errorf("invalid machine gpus: %d", c.Machine.GPUs)
	}

	if c.Workflow.ParentDirectory == "" {
		return fmt.Errorf("workflow parent directory must not be empty")
	}

	switch c.Backup.RecursiveSymlinks {
	case "ignore", "keep", "copy":
	default:
		return fmt.Errorf("invalid backup recursive_symlinks: %s", c.Backup.RecursiveSymlinks)
	}

	if c.Submit.Retries < 1 {
		return fmt.Errorf("submit retries must be at least 1: %d", c.Submit.Retries)
	}

	if c.Submit.RetryDelay < 0 {
		return fmt.Errorf("invalid submit retry delay: %s", c.Submit.RetryDelay)
	}

	return nil
}

// SourceEndpointPath returns the backup source endpoint file with ~ expanded.
func (c *Config) SourceEndpointPath() (string, error) {
	return homedir.Expand(c.Backup.SourceEndpointFile)
}
