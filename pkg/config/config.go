// Package config provides configuration management for the bridge.
// It reads settings from cm4gdbridge.ini using multiple search paths.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/ini.v1"
)

// Config holds all configuration settings for the bridge.
type Config struct {
	// Transport settings: Port is a serial device ("/dev/ttyUSB0", "COM3") or
	// a TCP address ("192.168.1.50:2331") of the debug probe.
	Port     string
	DataRate int
	Timeout  int

	// ListenAddr is the host:port the GDB-facing RSP server binds to.
	ListenAddr string

	// PollIntervalMillis is the period of the halt-detection ticker the RSP
	// worker uses to notice an asynchronous run->halt transition while a
	// `continue` is outstanding.
	PollIntervalMillis int

	// Development settings.
	LabelFile string
	Address   string
}

// Load reads configuration from cm4gdbridge.ini in the following search order:
// 1. Current directory (./cm4gdbridge.ini)
// 2. $CM4GDBRIDGE directory ($CM4GDBRIDGE/cm4gdbridge.ini)
// 3. Home directory (~/cm4gdbridge.ini)
func Load() (*Config, error) {
	// Build list of paths to search
	var searchPaths []string

	// 1. Current directory
	searchPaths = append(searchPaths, filepath.Join(".", "cm4gdbridge.ini"))

	// 2. $CM4GDBRIDGE directory
	if dir := os.Getenv("CM4GDBRIDGE"); dir != "" {
		searchPaths = append(searchPaths, filepath.Join(dir, "cm4gdbridge.ini"))
	}

	// 3. Home directory
	if home, err := os.UserHomeDir(); err == nil {
		searchPaths = append(searchPaths, filepath.Join(home, "cm4gdbridge.ini"))
	}

	// Try each path
	var iniFile *ini.File
	var err error

	for _, path := range searchPaths {
		if _, statErr := os.Stat(path); statErr == nil {
			iniFile, err = ini.Load(path)
			if err == nil {
				break
			}
		}
	}

	if iniFile == nil {
		// No config file is required: every setting has a usable default for
		// a probe reached over TCP on the loopback bridge port.
		return defaultConfig(), nil
	}

	section := iniFile.Section("DEFAULT")

	cfg := &Config{
		Port:               section.Key("port").MustString("127.0.0.1:2331"),
		DataRate:           section.Key("data_rate").MustInt(115200),
		Timeout:            section.Key("timeout").MustInt(5),
		ListenAddr:         section.Key("listen").MustString("127.0.0.1:2159"),
		PollIntervalMillis: section.Key("poll_interval_ms").MustInt(20),
		LabelFile:          section.Key("labels").MustString(""),
		Address:            section.Key("address").MustString("20000000"),
	}

	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Port:               "127.0.0.1:2331",
		DataRate:           115200,
		Timeout:            5,
		ListenAddr:         "127.0.0.1:2159",
		PollIntervalMillis: 20,
		Address:            "20000000",
	}
}

// ConfigPath returns the path to the config file that would be loaded.
func ConfigPath() (string, error) {
	paths := []string{
		filepath.Join(".", "cm4gdbridge.ini"),
	}

	if dir := os.Getenv("CM4GDBRIDGE"); dir != "" {
		paths = append(paths, filepath.Join(dir, "cm4gdbridge.ini"))
	}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, "cm4gdbridge.ini"))
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("no cm4gdbridge.ini file found")
}
