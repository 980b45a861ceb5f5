package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type PowerCfg struct {
	LimitAmps float64 `yaml:"limit_amps"`
	WhiteCap  float64 `yaml:"white_cap"`
	MaPerLed  float64 `yaml:"ma_per_led"`
}

type SPI struct {
	Dev        string `yaml:"dev"`         // e.g. /dev/spidev0.0
	SpeedHz    int    `yaml:"speed_hz"`    // e.g. 2500000
	ColorOrder string `yaml:"color_order"` // e.g. GRB for WS2812
}

type E131 struct {
	Enabled  bool   `yaml:"enabled"`
	Universe int    `yaml:"universe"`
	Listen   string `yaml:"listen"` // e.g. :5568
}

type ModelCfg struct {
	ConflictPolicy string `yaml:"conflict_policy"` // "duplicate" | "reject"
	Path           string `yaml:"path"`            // snapshot, relative to data_dir
}

type Config struct {
	Addr     string `yaml:"addr"`
	LoopMs   int    `yaml:"loop_ms"`
	DataDir  string `yaml:"data_dir"`
	Driver   string `yaml:"driver"` // "spi" | "sim"
	MaxLeds  int    `yaml:"max_leds"`
	LogLevel string `yaml:"log_level"`

	SPI   SPI            `yaml:"spi,omitempty"`
	E131  E131           `yaml:"e131"`
	Pins  map[string]int `yaml:"pins,omitempty"` // variable id -> gpio number
	Model ModelCfg       `yaml:"model"`
	Power PowerCfg       `yaml:"power"`
}

// Default returns the settings used when no file or flag overrides them.
func Default() *Config {
	return &Config{
		Addr:     ":8080",
		LoopMs:   1,
		DataDir:  "./data",
		Driver:   "sim",
		MaxLeds:  4096,
		LogLevel: "info",
		SPI:      SPI{Dev: "/dev/spidev0.0", SpeedHz: 2500000, ColorOrder: "GRB"},
		E131:     E131{Enabled: true, Universe: 1, Listen: ":5568"},
		Pins:     map[string]int{"Pin2": 2, "Pin4": 4, "Pin33": 33},
		Model:    ModelCfg{ConflictPolicy: "duplicate", Path: "model.json"},
		Power:    PowerCfg{LimitAmps: 10, WhiteCap: 0.9, MaPerLed: 60},
	}
}

// Load reads path over the defaults; fields absent from the file keep them.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, err
	}
	return c, nil
}

func Save(path string, c *Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}
