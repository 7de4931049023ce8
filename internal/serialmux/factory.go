package serialmux

import (
	"go.bug.st/serial"
)

// NewRealFrameMux creates a FrameMux instance backed by a real serial port
// at the given path using the provided serial options.
func NewRealFrameMux(path string, opts PortOptions) (*FrameMux[serial.Port], error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}

	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, err
	}

	return NewFrameMux[serial.Port](port), nil
}
