package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/arloliu/go-seriallink/frame"
	"github.com/arloliu/go-seriallink/link"
	"github.com/arloliu/go-seriallink/transport"
)

// settings is the merged configuration of a linkctl run.
type settings struct {
	Port        string
	Baud        int
	Addr        string
	URL         string
	Username    string
	NoSSLVerify bool
	LogLevel    string

	AckTimeout     time.Duration
	RequestTimeout time.Duration
	PollInterval   time.Duration
	Capacity       int
}

func defaultSettings() settings {
	return settings{
		Baud:           transport.DefaultBaudRate,
		LogLevel:       "info",
		AckTimeout:     link.DefaultAckTimeout,
		RequestTimeout: link.DefaultRequestTimeout,
		PollInterval:   link.DefaultPollInterval,
		Capacity:       frame.DefaultCapacity,
	}
}

// engineOptions converts the settings into link engine options.
func (s settings) engineOptions() []link.Option {
	return []link.Option{
		link.WithAckTimeout(s.AckTimeout),
		link.WithRequestTimeout(s.RequestTimeout),
		link.WithPollInterval(s.PollInterval),
		link.WithCapacity(s.Capacity),
	}
}

type fileConfig struct {
	Port           string `toml:"port"`
	Baud           int    `toml:"baud"`
	Addr           string `toml:"addr"`
	URL            string `toml:"url"`
	Username       string `toml:"username"`
	NoSSLVerify    bool   `toml:"no_ssl_verify"`
	LogLevel       string `toml:"log_level"`
	AckTimeout     string `toml:"ack_timeout"`
	RequestTimeout string `toml:"request_timeout"`
	PollInterval   string `toml:"poll_interval"`
	Capacity       int    `toml:"capacity"`
}

// loadConfigFile overrides the fields of s that are defined in the TOML file at path.
func loadConfigFile(path string, s *settings) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("load linkctl config: %w", err)
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("load linkctl config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("port") {
		s.Port = strings.TrimSpace(raw.Port)
	}

	if meta.IsDefined("baud") {
		s.Baud = raw.Baud
	}

	if meta.IsDefined("addr") {
		s.Addr = strings.TrimSpace(raw.Addr)
	}

	if meta.IsDefined("url") {
		s.URL = strings.TrimSpace(raw.URL)
	}

	if meta.IsDefined("username") {
		s.Username = strings.TrimSpace(raw.Username)
	}

	if meta.IsDefined("no_ssl_verify") {
		s.NoSSLVerify = raw.NoSSLVerify
	}

	if meta.IsDefined("log_level") {
		s.LogLevel = strings.TrimSpace(raw.LogLevel)
	}

	if meta.IsDefined("ack_timeout") {
		if s.AckTimeout, err = parseDuration("ack_timeout", raw.AckTimeout); err != nil {
			return err
		}
	}

	if meta.IsDefined("request_timeout") {
		if s.RequestTimeout, err = parseDuration("request_timeout", raw.RequestTimeout); err != nil {
			return err
		}
	}

	if meta.IsDefined("poll_interval") {
		if s.PollInterval, err = parseDuration("poll_interval", raw.PollInterval); err != nil {
			return err
		}
	}

	if meta.IsDefined("capacity") {
		s.Capacity = raw.Capacity
	}

	return nil
}

func parseDuration(key, value string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}

	return d, nil
}
