// Package display holds the sinks that decoded frames are written to. The
// real matrix driver (MAX7219 register protocol, brightness, chip select)
// lives in firmware; on this side a sink is anything that can accept
// per-row writes, which keeps the decode path testable without hardware.
package display

import (
	"errors"
	"fmt"
)

const (
	// Devices is the number of cascaded matrix devices supported. The
	// wire protocol fixes a single device; the constant exists so the
	// bounds checks read as what they are.
	Devices = 1

	// Rows is the row count of one matrix device.
	Rows = 8

	// Cols is the column count of one matrix device.
	Cols = 8
)

var (
	ErrInvalidDevice = errors.New("device index out of range")
	ErrInvalidRow    = errors.New("row index out of range")
)

// CheckIndexes validates a device/row pair against the fixed display
// geometry. Sinks share this so they all reject the same contract
// violations.
func CheckIndexes(device, row int) error {
	if device < 0 || device >= Devices {
		return fmt.Errorf("%w: %d", ErrInvalidDevice, device)
	}
	if row < 0 || row >= Rows {
		return fmt.Errorf("%w: %d", ErrInvalidRow, row)
	}
	return nil
}
