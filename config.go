package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the optional per-user configuration. Every key has a default;
// a missing file is not an error.
type Config struct {
	Channel        uint8         // RFCOMM channel
	SendTimeout    time.Duration // bounds connect and each frame write
	ReceiveTimeout time.Duration // bounds each response read
	Devices        map[string]string
}

type fileConfig struct {
	Channel        *int              `toml:"channel"`
	SendTimeout    string            `toml:"send_timeout"`
	ReceiveTimeout string            `toml:"receive_timeout"`
	Devices        map[string]string `toml:"devices"`
}

func defaultConfig() Config {
	return Config{
		Channel:        defaultChannel,
		SendTimeout:    defaultSendTimeout,
		ReceiveTimeout: defaultReceiveTimeout,
		Devices:        map[string]string{},
	}
}

func configPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		dir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(dir, "based-connect", "config.toml")
}

// loadConfig reads path and overlays it on the defaults.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}

	if meta.IsDefined("channel") {
		if *raw.Channel < 1 || *raw.Channel > 30 {
			return Config{}, fmt.Errorf("config channel %d out of range 1-30", *raw.Channel)
		}
		cfg.Channel = uint8(*raw.Channel)
	}
	if meta.IsDefined("send_timeout") {
		d, err := time.ParseDuration(raw.SendTimeout)
		if err != nil {
			return Config{}, fmt.Errorf("parse send_timeout: %w", err)
		}
		cfg.SendTimeout = d
	}
	if meta.IsDefined("receive_timeout") {
		d, err := time.ParseDuration(raw.ReceiveTimeout)
		if err != nil {
			return Config{}, fmt.Errorf("parse receive_timeout: %w", err)
		}
		cfg.ReceiveTimeout = d
	}
	if meta.IsDefined("devices") {
		for alias, addr := range raw.Devices {
			if _, err := parseBDAddr(addr); err != nil {
				return Config{}, fmt.Errorf("config device %q: %w", alias, err)
			}
			cfg.Devices[alias] = addr
		}
	}
	return cfg, nil
}

// resolveDevice turns the positional argument into a Bluetooth address: a
// literal MAC is used as-is, anything else is looked up as a config alias.
func resolveDevice(cfg Config, arg string) (string, error) {
	if _, err := parseBDAddr(arg); err == nil {
		return arg, nil
	}
	if addr, ok := cfg.Devices[arg]; ok {
		return addr, nil
	}
	return "", fmt.Errorf("%q is neither a Bluetooth address nor a configured device alias", arg)
}
