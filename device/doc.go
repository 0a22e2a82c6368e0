// Package device implements the device side of the serial link.
//
// An Emulator answers requests the way the device firmware does: it
// acknowledges every request that carries a sequence id, invokes a
// per-device request handler and pushes DATA and DATA_LIST frames on its
// own. It is used to test hosts without hardware and by linkctl's emulate
// command to stand in for a board on a serial port or a TCP bridge.
package device
