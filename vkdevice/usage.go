package vkdevice

import "fmt"

const (
	// MultiGPU names the int property a Config uses to request a device
	// group of the given size.
	MultiGPU = "DeviceGroup"
)

// Config is a small, JSON-shaped property bag used to describe how a
// Device should be set up: window vs. headless, desired device-group
// size, debug layers, and so on. A chain of Linked configs lets a caller
// layer a base configuration with per-instance overrides.
type Config struct {
	Name        string
	StringProps map[string]string
	IntProps    map[string]int
	BoolProps   map[string]bool
	FloatProps  map[string]float32
	Linked      *Config
}

func NewConfig(name string, defaultSize uint) *Config {
	return &Config{
		Name:        name,
		StringProps: make(map[string]string, defaultSize),
		IntProps:    make(map[string]int, defaultSize),
		BoolProps:   make(map[string]bool, defaultSize),
		FloatProps:  make(map[string]float32, defaultSize),
	}
}

func (c *Config) HasNext() bool { return c.Linked != nil }

func (c *Config) LinkedConfig() (*Config, error) {
	if !c.HasNext() {
		return nil, fmt.Errorf("config %q has no linked config", c.Name)
	}
	return c.Linked, nil
}

func (c *Config) String() string {
	s := fmt.Sprintf("%s: string=%v int=%v bool=%v float=%v", c.Name, c.StringProps, c.IntProps, c.BoolProps, c.FloatProps)
	if c.HasNext() {
		s += "\n" + c.Linked.String()
	}
	return s
}
