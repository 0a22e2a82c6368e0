package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"net"
	"time"

	"github.com/spf13/cobra"

	"github.com/arloliu/go-seriallink/device"
	"github.com/arloliu/go-seriallink/frame"
	"github.com/arloliu/go-seriallink/logger"
	"github.com/arloliu/go-seriallink/transport"
)

var (
	emulateDevices   []uint
	emulateListen    string
	emulateTelemetry time.Duration
	emulateReject    bool
	emulateSilent    bool
)

var emulateCmd = &cobra.Command{
	Use:   "emulate",
	Short: "Emulate devices on a link",
	Long: `Answer requests like device firmware does, for testing hosts without hardware.

Every request with a sequence id is acknowledged (or rejected with --nack) and
printed. With --telemetry each emulated device pushes a float32 sample at the
given interval.

The emulator runs on the connection selected by --port or --addr, or accepts
one TCP connection on --listen so that a host can connect with --addr.

Press Ctrl+C to exit.`,
	RunE: runEmulate,
}

func init() {
	emulateCmd.Flags().UintSliceVarP(&emulateDevices, "device", "d", []uint{1}, "Device ids to emulate")
	emulateCmd.Flags().StringVar(&emulateListen, "listen", "", "Accept a host connection on this TCP address")
	emulateCmd.Flags().DurationVar(&emulateTelemetry, "telemetry", 0, "Telemetry push interval (0 disables)")
	emulateCmd.Flags().BoolVar(&emulateReject, "nack", false, "Reject every request")
	emulateCmd.Flags().BoolVar(&emulateSilent, "silent", false, "Never answer requests")
	rootCmd.AddCommand(emulateCmd)
}

func runEmulate(cmd *cobra.Command, _ []string) error {
	devices, err := deviceIDs(emulateDevices)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	t, info, err := emulatorTransport(ctx, out)
	if err != nil {
		return err
	}

	em, err := device.NewEmulator(ctx, t, device.WithLogger(logger.GetLogger()))
	if err != nil {
		_ = t.Close()
		return err
	}
	defer em.Close()

	em.SetSilent(emulateSilent)

	fmt.Fprintf(out, "Connection: %s\n", info)
	fmt.Fprintf(out, "Emulating devices %v\n", devices)

	for _, id := range devices {
		if err := em.Handle(id, func(req *frame.Message) bool {
			fmt.Fprintf(out, "%s request device=%-3d seq=%-3d [% X]\n",
				time.Now().Format("15:04:05.000"), req.DeviceID, req.SeqID, req.Body)

			return !emulateReject
		}); err != nil {
			return err
		}

		if emulateTelemetry > 0 {
			if err := em.StartTelemetry(id, emulateTelemetry, sineSample(id)); err != nil {
				return err
			}
		}
	}

	<-ctx.Done()

	m := em.Metrics()
	fmt.Fprintf(out, "\nrequests: %d, acks: %d, nacks: %d, pushes: %d\n",
		m.RequestCount.Load(), m.AckSentCount.Load(), m.NackSentCount.Load(), m.PushCount.Load())

	return nil
}

// emulatorTransport accepts a host on --listen, or opens the configured transport.
func emulatorTransport(ctx context.Context, out io.Writer) (transport.Transport, string, error) {
	if emulateListen == "" {
		return openTransport(ctx, current)
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", emulateListen)
	if err != nil {
		return nil, "", err
	}
	defer ln.Close()

	fmt.Fprintf(out, "Waiting for a host on %s\n", ln.Addr())

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	conn, err := ln.Accept()
	if err != nil {
		return nil, "", err
	}

	t, err := transport.NewStream(conn, transport.WithLogger(logger.GetLogger()))
	if err != nil {
		_ = conn.Close()
		return nil, "", err
	}

	return t, "TCP host: " + conn.RemoteAddr().String(), nil
}

// sineSample returns a telemetry source producing a slow sine wave per device.
func sineSample(deviceID uint8) func() []byte {
	start := time.Now()

	return func() []byte {
		phase := time.Since(start).Seconds() + float64(deviceID)
		return frame.AppendFloat32(nil, float32(20+5*math.Sin(phase)))
	}
}
