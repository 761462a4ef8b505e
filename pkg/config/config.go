package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"

	"github.com/vexide/unwind/pkg/backtrace"
	"github.com/vexide/unwind/pkg/regnum"
)

const (
	configDir  string = ".unwind"
	configFile string = "config.yml"
)

// DefaultMaxDepth is the number of frames printed when max-depth is not
// set.
const DefaultMaxDepth = 64

// Config defines all configuration options available to be set through the config file.
type Config struct {
	// MaxDepth is the maximum number of frames collected, 0 means no
	// limit.
	MaxDepth *int `yaml:"max-depth,omitempty"`
	// Registers are printed for every frame, by name.
	Registers []string `yaml:"registers"`
	// If Disassemble is true the instruction at the instruction pointer of
	// each frame is printed.
	Disassemble bool `yaml:"disassemble"`
	// Color is one of auto, always or never.
	Color string `yaml:"color"`

	// Log enables logging, LogOutput selects the layers that log (see
	// 'backtrace help log').
	Log       bool   `yaml:"log"`
	LogOutput string `yaml:"log-output"`
}

// LoadConfig attempts to populate a Config object from the config.yml file.
// Problems are reported on standard error and yield an empty
// configuration.
func LoadConfig() *Config {
	err := createConfigPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Could not create config directory: %v.\n", err)
		return &Config{}
	}
	fullConfigFile, err := GetConfigFilePath(configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to get config file path: %v.\n", err)
		return &Config{}
	}

	if _, err := os.Stat(fullConfigFile); os.IsNotExist(err) {
		if err := createDefaultConfig(fullConfigFile); err != nil {
			fmt.Fprintf(os.Stderr, "Error creating default config file: %v\n", err)
			return &Config{}
		}
	}

	c, err := LoadFile(fullConfigFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v.\n", err)
		return &Config{}
	}
	return c
}

// LoadFile reads the configuration stored at path.
func LoadFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open config file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("unable to read config data: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("unable to decode config file: %w", err)
	}
	return &c, nil
}

// SaveConfig will marshal and save the config struct
// to disk.
func SaveConfig(conf *Config) error {
	fullConfigFile, err := GetConfigFilePath(configFile)
	if err != nil {
		return err
	}

	out, err := yaml.Marshal(*conf)
	if err != nil {
		return err
	}

	f, err := os.Create(fullConfigFile)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.Write(out)
	return err
}

// Depth returns the configured maximum depth.
func (c *Config) Depth() int {
	if c.MaxDepth == nil {
		return DefaultMaxDepth
	}
	return *c.MaxDepth
}

// BacktraceOptions converts the configuration into backtrace options,
// resolving register names with the table of arch.
func (c *Config) BacktraceOptions(arch *regnum.Arch) (backtrace.Options, error) {
	regs, err := arch.Parse(c.Registers)
	if err != nil {
		return backtrace.Options{}, fmt.Errorf("config: %w", err)
	}
	return backtrace.Options{
		MaxDepth:    c.Depth(),
		Registers:   regs,
		Disassemble: c.Disassemble,
	}, nil
}

// ColorMode returns the configured color mode.
func (c *Config) ColorMode() (backtrace.ColorMode, error) {
	return backtrace.ParseColorMode(c.Color)
}

func createDefaultConfig(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("unable to create config file: %v", err)
	}
	defer f.Close()
	err = writeDefaultConfig(f)
	if err != nil {
		return fmt.Errorf("unable to write default configuration: %v", err)
	}
	return nil
}

func writeDefaultConfig(f *os.File) error {
	_, err := f.WriteString(
		`# Configuration file for the backtrace printer.

# This is the default configuration file. Available options are provided, but disabled.
# Delete the leading hash mark to enable an item.

# Maximum number of frames printed, 0 prints the whole stack.
# max-depth: 64

# Registers printed for each frame, by name (for example pc, sp, lr, d0).
registers: []

# Uncomment the following line to print the instruction at the
# instruction pointer of each frame.
# disassemble: true

# When to color the output: auto, always or never.
# color: auto

# Logging, see 'backtrace help log'.
# log: true
# log-output: unwind,engine
`)
	return err
}

// createConfigPath creates the directory structure at which all config files are saved.
func createConfigPath() error {
	path, err := GetConfigFilePath("")
	if err != nil {
		return err
	}
	return os.MkdirAll(path, 0700)
}

// GetConfigFilePath gets the full path to the given config file name.
func GetConfigFilePath(file string) (string, error) {
	userHomeDir, err := os.UserHomeDir()
	if err != nil {
		userHomeDir = "."
	}
	return filepath.Join(userHomeDir, configDir, file), nil
}
