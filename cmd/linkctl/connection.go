package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/arloliu/go-seriallink/link"
	"github.com/arloliu/go-seriallink/logger"
	"github.com/arloliu/go-seriallink/transport"
)

// passwordEnv names the environment variable holding the WebSocket password.
const passwordEnv = "LINKCTL_PASSWORD"

// getPassword retrieves the password from the environment or prompts the user.
func getPassword() (string, error) {
	if pw := os.Getenv(passwordEnv); pw != "" {
		return pw, nil
	}

	fmt.Fprint(os.Stderr, "Password: ")

	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		// not a terminal, read a plain line
		reader := bufio.NewReader(os.Stdin)
		password, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(os.Stderr)

		return strings.TrimSpace(password), nil
	}
	fmt.Fprintln(os.Stderr)

	return string(passwordBytes), nil
}

// openTransport opens the transport selected by s: WebSocket, TCP bridge or serial port.
func openTransport(ctx context.Context, s settings) (transport.Transport, string, error) {
	l := logger.GetLogger()

	switch {
	case s.URL != "":
		opts := []transport.Option{
			transport.WithLogger(l),
			transport.WithInsecureSkipVerify(s.NoSSLVerify),
		}

		if s.Username != "" {
			password, err := getPassword()
			if err != nil {
				return nil, "", err
			}
			opts = append(opts, transport.WithBasicAuth(s.Username, password))
		}

		t, err := transport.DialWebSocket(ctx, s.URL, opts...)
		if err != nil {
			return nil, "", err
		}

		return t, "WebSocket: " + s.URL, nil

	case s.Addr != "":
		t, err := transport.DialTCP(ctx, s.Addr, transport.WithLogger(l))
		if err != nil {
			return nil, "", err
		}

		return t, "TCP: " + s.Addr, nil

	case s.Port != "":
		t, err := transport.OpenSerial(s.Port, transport.WithBaudRate(s.Baud), transport.WithLogger(l))
		if err != nil {
			return nil, "", err
		}

		return t, fmt.Sprintf("Serial: %s @ %d baud", s.Port, s.Baud), nil
	}

	return nil, "", errors.New("one of --port, --addr or --url must be specified")
}

// openEngine opens the configured transport and starts a link engine on it.
func openEngine(ctx context.Context, s settings) (*link.Engine, string, error) {
	t, info, err := openTransport(ctx, s)
	if err != nil {
		return nil, "", err
	}

	e, err := link.NewEngine(ctx, t, append(s.engineOptions(), link.WithLogger(logger.GetLogger()))...)
	if err != nil {
		_ = t.Close()
		return nil, "", err
	}

	return e, info, nil
}
