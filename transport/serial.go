package transport

import (
	"fmt"

	"go.bug.st/serial"
)

// OpenSerial opens the named serial port in 8N1 mode and returns it as a Transport.
//
// The port read timeout (WithSerialTimeout) keeps the background reader
// responsive to Close. ResetInput also clears the driver's input buffer.
func OpenSerial(name string, opts ...Option) (*Stream, error) {
	cfg, err := newConfig(opts...)
	if err != nil {
		return nil, err
	}

	mode := &serial.Mode{
		BaudRate: cfg.baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(name, mode)
	if err != nil {
		return nil, fmt.Errorf("transport: failed to open serial port %s: %w", name, err)
	}

	if err := port.SetReadTimeout(cfg.serialTimeout); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("transport: failed to set read timeout on %s: %w", name, err)
	}

	if err := port.ResetInputBuffer(); err != nil {
		cfg.logger.Warn("failed to reset serial input buffer", "port", name, "error", err)
	}

	cfg.logger.Debug("serial port opened", "port", name, "baud", cfg.baudRate)

	return newStream(port, cfg, port.ResetInputBuffer)
}

// SerialPorts lists the serial ports present on the system.
func SerialPorts() ([]string, error) {
	return serial.GetPortsList()
}
