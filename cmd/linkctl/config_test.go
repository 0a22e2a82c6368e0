package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-seriallink/frame"
	"github.com/arloliu/go-seriallink/link"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "linkctl.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadConfigFile(t *testing.T) {
	require := require.New(t)

	path := writeConfig(t, `
port = " /dev/ttyUSB0 "
baud = 57600
log_level = "debug"
ack_timeout = "150ms"
request_timeout = "2s"
capacity = 64
`)

	s := defaultSettings()
	require.NoError(loadConfigFile(path, &s))

	require.Equal("/dev/ttyUSB0", s.Port)
	require.Equal(57600, s.Baud)
	require.Equal("debug", s.LogLevel)
	require.Equal(150*time.Millisecond, s.AckTimeout)
	require.Equal(2*time.Second, s.RequestTimeout)
	require.Equal(64, s.Capacity)

	// keys absent from the file keep their defaults
	require.Equal(link.DefaultPollInterval, s.PollInterval)
	require.Empty(s.Addr)
	require.False(s.NoSSLVerify)
}

func TestLoadConfigFile_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errMsg  string
	}{
		{name: "unknown key", content: `speed = 9600`, errMsg: `unknown key "speed"`},
		{name: "invalid duration", content: `ack_timeout = "soon"`, errMsg: "parse ack_timeout"},
		{name: "wrong type", content: `baud = "fast"`, errMsg: "load linkctl config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := defaultSettings()
			err := loadConfigFile(writeConfig(t, tt.content), &s)
			require.ErrorContains(t, err, tt.errMsg)
		})
	}

	t.Run("missing file", func(t *testing.T) {
		s := defaultSettings()
		err := loadConfigFile(filepath.Join(t.TempDir(), "none.toml"), &s)
		require.ErrorContains(t, err, "load linkctl config")
	})
}

func TestApplyFlags(t *testing.T) {
	require := require.New(t)

	src := defaultSettings()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	bindFlags(fs, &src)
	require.NoError(fs.Parse([]string{"--baud", "9600", "--request-timeout", "3s", "-p", "COM3"}))

	dst := defaultSettings()
	dst.Addr = "127.0.0.1:4000"
	dst.Baud = 57600
	applyFlags(fs, &src, &dst)

	require.Equal("COM3", dst.Port)
	require.Equal(9600, dst.Baud)
	require.Equal(3*time.Second, dst.RequestTimeout)
	// flags not given leave the file value alone
	require.Equal("127.0.0.1:4000", dst.Addr)
	require.Equal(link.DefaultAckTimeout, dst.AckTimeout)
}

func TestEngineOptions(t *testing.T) {
	s := defaultSettings()
	s.AckTimeout = 50 * time.Millisecond
	s.Capacity = frame.PeerCapacity

	cfg, err := link.NewConfig(s.engineOptions()...)
	require.NoError(t, err)
	require.Equal(t, 50*time.Millisecond, cfg.AckTimeout())
	require.Equal(t, frame.PeerCapacity, cfg.Capacity())
	require.Equal(t, link.DefaultRequestTimeout, cfg.RequestTimeout())
}

func TestParseBytes(t *testing.T) {
	require := require.New(t)

	b, err := parseBytes([]string{"1", "0x20", "0o17", "255"})
	require.NoError(err)
	require.Equal([]byte{1, 0x20, 0o17, 255}, b)

	b, err = parseBytes(nil)
	require.NoError(err)
	require.Empty(b)

	_, err = parseBytes([]string{"256"})
	require.ErrorContains(err, `invalid byte "256"`)

	_, err = parseBytes([]string{"x"})
	require.Error(err)
}

func TestDeviceIDs(t *testing.T) {
	require := require.New(t)

	ids, err := deviceIDs([]uint{3, 7})
	require.NoError(err)
	require.Equal([]uint8{3, 7}, ids)

	ids, err = deviceIDs(nil)
	require.NoError(err)
	require.Len(ids, 256)
	require.Equal(uint8(0), ids[0])
	require.Equal(uint8(255), ids[255])

	_, err = deviceIDs([]uint{256})
	require.Error(err)
}

func TestBodyFormatter(t *testing.T) {
	require := require.New(t)

	hex, err := bodyFormatter("hex")
	require.NoError(err)
	require.Equal("[01 AB]", hex([]byte{0x01, 0xAB}))

	u16, err := bodyFormatter("u16")
	require.NoError(err)
	require.Equal("[258 3] +[FF]", u16([]byte{0x02, 0x01, 0x03, 0x00, 0xFF}))

	i32, err := bodyFormatter("i32")
	require.NoError(err)
	require.Equal("[-1]", i32([]byte{0xFF, 0xFF, 0xFF, 0xFF}))

	f32, err := bodyFormatter("f32")
	require.NoError(err)
	require.Equal("[1.5]", f32(frame.AppendFloat32(nil, 1.5)))

	_, err = bodyFormatter("bin")
	require.Error(err)
}
