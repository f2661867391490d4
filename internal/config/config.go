// Package config resolves the chip path and the pin map the commands use.
// Defaults match the GasGuard board wiring; a pinmap.yaml in the config
// directory and GASGUARD_HWCHECK__* environment variables override them.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/arduino/go-paths-helper"
	yaml "github.com/goccy/go-yaml"
)

// Consumer labels attached to the lines, visible to other processes
// inspecting the chip.
const (
	TestConsumer = "gasguard-test"
	SetConsumer  = "gasguard"
)

// Board defaults.
const (
	DefaultChip      = "/dev/gpiochip0"
	DefaultGreenLED  = 17
	DefaultYellowLED = 27
	DefaultRedLED    = 22
	DefaultBuzzer    = 18
)

type pinmap struct {
	Chip string `yaml:"chip"`
	Leds struct {
		Green  int `yaml:"green"`
		Yellow int `yaml:"yellow"`
		Red    int `yaml:"red"`
	} `yaml:"leds"`
	Buzzer int `yaml:"buzzer"`
}

type Configuration struct {
	pm        pinmap
	configDir *paths.Path
}

func NewFromEnv() (Configuration, error) {
	configDir := paths.New(os.Getenv("GASGUARD_HWCHECK__CONFIG_DIR"))
	if configDir == nil {
		xdgConfig, err := os.UserConfigDir()
		if err != nil {
			return Configuration{}, err
		}
		configDir = paths.New(xdgConfig).Join("gasguard-hwcheck")
	}
	if !configDir.IsAbs() {
		wd, err := paths.Getwd()
		if err != nil {
			return Configuration{}, err
		}
		configDir = wd.JoinPath(configDir)
	}
	if err := configDir.MkdirAll(); err != nil {
		slog.Warn("failed to create config directory", "path", configDir, "error", err)
	}

	pm := pinmap{Chip: DefaultChip, Buzzer: DefaultBuzzer}
	pm.Leds.Green = DefaultGreenLED
	pm.Leds.Yellow = DefaultYellowLED
	pm.Leds.Red = DefaultRedLED

	pinmapFile := configDir.Join("pinmap.yaml")
	if pinmapFile.Exist() {
		data, err := pinmapFile.ReadFile()
		if err != nil {
			return Configuration{}, err
		}
		if err := yaml.Unmarshal(data, &pm); err != nil {
			return Configuration{}, fmt.Errorf("parsing %s: %w", pinmapFile, err)
		}
	}

	if chip := os.Getenv("GASGUARD_HWCHECK__CHIP"); chip != "" {
		pm.Chip = chip
	}

	c := Configuration{pm: pm, configDir: configDir}
	if err := c.validate(); err != nil {
		return Configuration{}, err
	}
	return c, nil
}

func (c *Configuration) validate() error {
	if c.pm.Chip == "" {
		return errors.New("chip path must not be empty")
	}
	pins := map[string]int{
		"green":  c.pm.Leds.Green,
		"yellow": c.pm.Leds.Yellow,
		"red":    c.pm.Leds.Red,
		"buzzer": c.pm.Buzzer,
	}
	seen := map[int]string{}
	for name, pin := range pins {
		if pin < 0 {
			return fmt.Errorf("pin %s: negative offset %d", name, pin)
		}
		if other, dup := seen[pin]; dup {
			return fmt.Errorf("pins %s and %s share offset %d", other, name, pin)
		}
		seen[pin] = name
	}
	return nil
}

func (c *Configuration) Chip() string {
	return c.pm.Chip
}

func (c *Configuration) GreenLED() int {
	return c.pm.Leds.Green
}

func (c *Configuration) YellowLED() int {
	return c.pm.Leds.Yellow
}

func (c *Configuration) RedLED() int {
	return c.pm.Leds.Red
}

func (c *Configuration) Buzzer() int {
	return c.pm.Buzzer
}

func (c *Configuration) ConfigDir() *paths.Path {
	return c.configDir
}

// LockFilePath is the flock target that keeps two check runs from fighting
// over the same lines.
func (c *Configuration) LockFilePath() string {
	return c.configDir.Join("hwcheck.lock").String()
}
