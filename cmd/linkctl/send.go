package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var sendAsync bool

var sendCmd = &cobra.Command{
	Use:   "send <device> [byte...]",
	Short: "Send a request to a device",
	Long: `Send a DATA request to a device and wait for its acknowledgment.

Bytes are given as decimal, hex (0x1F) or octal (017) values. With --async the
request is sent with sequence id 0 and not acknowledged.

Examples:
  linkctl --port /dev/ttyUSB0 send 4 1 200
  linkctl --addr 127.0.0.1:4001 send --async 2 0x10`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSend,
}

func init() {
	sendCmd.Flags().BoolVar(&sendAsync, "async", false, "Send without waiting for an acknowledgment")
	rootCmd.AddCommand(sendCmd)
}

func runSend(cmd *cobra.Command, args []string) error {
	values, err := parseBytes(args)
	if err != nil {
		return err
	}
	deviceID, body := values[0], values[1:]

	ctx := cmd.Context()

	e, info, err := openEngine(ctx, current)
	if err != nil {
		return err
	}
	defer e.Close()

	fmt.Fprintf(cmd.OutOrStdout(), "Connection: %s\n", info)

	if sendAsync {
		if err := e.SendAsyncPayload(deviceID, body); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "sent to device %d: [% X]\n", deviceID, body)

		return nil
	}

	ok, err := e.SendSyncPayload(ctx, deviceID, body)
	if err != nil {
		return err
	}

	m := e.Metrics()
	if !ok {
		return fmt.Errorf("device %d did not acknowledge within %v (%d resends, %d NACKs)",
			deviceID, current.RequestTimeout, m.SyncRetryCount.Load(), m.NackRecvCount.Load())
	}

	fmt.Fprintf(cmd.OutOrStdout(), "device %d acknowledged [% X] (%d resends)\n", deviceID, body, m.SyncRetryCount.Load())

	return nil
}

// parseBytes parses each argument as an unsigned 8-bit value.
func parseBytes(args []string) ([]byte, error) {
	out := make([]byte, 0, len(args))
	for _, arg := range args {
		v, err := strconv.ParseUint(arg, 0, 8)
		if err != nil {
			return nil, fmt.Errorf("invalid byte %q: %w", arg, err)
		}
		out = append(out, byte(v))
	}

	return out, nil
}
