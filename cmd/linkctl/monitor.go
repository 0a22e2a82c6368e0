package main

import (
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/arloliu/go-seriallink/frame"
	"github.com/arloliu/go-seriallink/link"
)

var (
	monitorDevices []uint
	monitorFormat  string
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Print the frames devices send",
	Long: `Continuously print the DATA and ACK frames received from devices. DATA_LIST
frames are shown as one line per record.

Use --device to limit the output to some devices and --format to decode the
body as little-endian numbers (u16, i32 or f32) instead of hex bytes.

Press Ctrl+C to exit.`,
	RunE: runMonitor,
}

func init() {
	monitorCmd.Flags().UintSliceVarP(&monitorDevices, "device", "d", nil, "Device ids to monitor (default all)")
	monitorCmd.Flags().StringVarP(&monitorFormat, "format", "f", "hex", "Body format: hex, u16, i32 or f32")
	rootCmd.AddCommand(monitorCmd)
}

func runMonitor(cmd *cobra.Command, _ []string) error {
	format, err := bodyFormatter(monitorFormat)
	if err != nil {
		return err
	}

	devices, err := deviceIDs(monitorDevices)
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	e, info, err := openEngine(ctx, current)
	if err != nil {
		return err
	}
	defer e.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Connection: %s\n", info)
	fmt.Fprintf(out, "Press Ctrl+C to exit\n\n")

	var mu sync.Mutex
	show := func(msg *frame.Message) {
		mu.Lock()
		defer mu.Unlock()
		printMessage(out, msg, format)
	}

	for _, id := range devices {
		if err := e.AddHandler(id, 0, show); err != nil {
			return err
		}
	}

	<-ctx.Done()

	m := e.Metrics()
	fmt.Fprintf(out, "\nframes: %d received, %d dropped, %d overflowed\n",
		m.FrameRecvCount.Load(), m.FrameDropCount.Load(), m.DecoderOverflowCount.Load())

	return nil
}

func deviceIDs(ids []uint) ([]uint8, error) {
	if len(ids) == 0 {
		all := make([]uint8, 0, link.MaxSeqID+1)
		for id := 0; id <= 0xFF; id++ {
			all = append(all, uint8(id))
		}

		return all, nil
	}

	out := make([]uint8, 0, len(ids))
	for _, id := range ids {
		if id > 0xFF {
			return nil, fmt.Errorf("invalid device id %d", id)
		}
		out = append(out, uint8(id))
	}

	return out, nil
}

func printMessage(w io.Writer, msg *frame.Message, format func([]byte) string) {
	ts := time.Now().Format("15:04:05.000")

	if msg.Type == frame.TypeAck {
		status := "ACK"
		if msg.IsNack() {
			status = "NACK"
		}
		fmt.Fprintf(w, "%s device=%-3d seq=%-3d %s\n", ts, msg.DeviceID, msg.SeqID, status)

		return
	}

	fmt.Fprintf(w, "%s device=%-3d seq=%-3d %s %s\n", ts, msg.DeviceID, msg.SeqID, msg.Type, format(msg.Body))
}

// bodyFormatter returns the function rendering a message body in the named format.
func bodyFormatter(name string) (func([]byte) string, error) {
	switch name {
	case "hex":
		return func(b []byte) string { return fmt.Sprintf("[% X]", b) }, nil
	case "u16":
		return numericFormatter(2, func(b []byte) string { return strconv.FormatUint(uint64(frame.Uint16(b)), 10) }), nil
	case "i32":
		return numericFormatter(4, func(b []byte) string { return strconv.FormatInt(int64(frame.Int32(b)), 10) }), nil
	case "f32":
		return numericFormatter(4, func(b []byte) string { return strconv.FormatFloat(float64(frame.Float32(b)), 'g', -1, 32) }), nil
	default:
		return nil, fmt.Errorf("unknown format %q", name)
	}
}

// numericFormatter renders a body as a list of size-byte values. Trailing bytes are shown in hex.
func numericFormatter(size int, one func([]byte) string) func([]byte) string {
	return func(b []byte) string {
		s := "["
		for len(b) >= size {
			if s != "[" {
				s += " "
			}
			s += one(b[:size])
			b = b[size:]
		}
		s += "]"

		if len(b) > 0 {
			s += fmt.Sprintf(" +[% X]", b)
		}

		return s
	}
}
