package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/arloliu/go-seriallink/logger"
)

var (
	configPath string
	flagVals   = defaultSettings()

	// settings in effect after merging defaults, the config file and flags
	current settings
)

var rootCmd = &cobra.Command{
	Use:   "linkctl",
	Short: "Serial link protocol tool",
	Long: `linkctl sends requests to devices on a serial link, monitors the frames they
push and emulates devices for hosts under test.

Connection modes:
  Serial:    --port /dev/ttyUSB0 [--baud 115200]
  TCP:       --addr host:port (ser2net style bridge)
  WebSocket: --url ws://host/path [--username user]

For WebSocket authentication, the password is read from the LINKCTL_PASSWORD
environment variable, or prompted interactively if not set.

Settings can also be loaded from a TOML file with --config; flags given on the
command line take precedence over the file.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadSettings,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "TOML config file")
	bindFlags(rootCmd.PersistentFlags(), &flagVals)
}

func bindFlags(fs *pflag.FlagSet, s *settings) {
	fs.StringVarP(&s.Port, "port", "p", s.Port, "Serial port device")
	fs.IntVarP(&s.Baud, "baud", "b", s.Baud, "Baud rate (serial only)")
	fs.StringVar(&s.Addr, "addr", s.Addr, "TCP serial bridge address")
	fs.StringVarP(&s.URL, "url", "u", s.URL, "WebSocket URL (ws:// or wss://)")
	fs.StringVar(&s.Username, "username", s.Username, "Username for HTTP Basic auth")
	fs.BoolVar(&s.NoSSLVerify, "no-ssl-verify", s.NoSSLVerify, "Skip TLS certificate verification (wss:// only)")
	fs.StringVar(&s.LogLevel, "log-level", s.LogLevel, "Log level: debug, info, warn or error")
	fs.DurationVar(&s.AckTimeout, "ack-timeout", s.AckTimeout, "Acknowledgment wait per send attempt")
	fs.DurationVar(&s.RequestTimeout, "request-timeout", s.RequestTimeout, "Total time of a sync request")
	fs.DurationVar(&s.PollInterval, "poll-interval", s.PollInterval, "Idle sleep of the receive loop")
	fs.IntVar(&s.Capacity, "capacity", s.Capacity, "Maximum frame payload size")
}

func loadSettings(cmd *cobra.Command, _ []string) error {
	s := defaultSettings()

	if configPath != "" {
		if err := loadConfigFile(configPath, &s); err != nil {
			return err
		}
	}

	applyFlags(cmd.Flags(), &flagVals, &s)

	level, err := logger.ParseLevel(s.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	logger.SetLevel(level)

	current = s

	return nil
}

// applyFlags copies the flags set on the command line from src to dst.
func applyFlags(fs *pflag.FlagSet, src, dst *settings) {
	fs.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "port":
			dst.Port = src.Port
		case "baud":
			dst.Baud = src.Baud
		case "addr":
			dst.Addr = src.Addr
		case "url":
			dst.URL = src.URL
		case "username":
			dst.Username = src.Username
		case "no-ssl-verify":
			dst.NoSSLVerify = src.NoSSLVerify
		case "log-level":
			dst.LogLevel = src.LogLevel
		case "ack-timeout":
			dst.AckTimeout = src.AckTimeout
		case "request-timeout":
			dst.RequestTimeout = src.RequestTimeout
		case "poll-interval":
			dst.PollInterval = src.PollInterval
		case "capacity":
			dst.Capacity = src.Capacity
		}
	})
}
