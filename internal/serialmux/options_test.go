package serialmux

import (
	"testing"

	"go.bug.st/serial"
)

func TestPortOptionsNormalizeDefaults(t *testing.T) {
	opts, err := PortOptions{}.Normalize()
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if opts.BaudRate != 115200 {
		t.Errorf("BaudRate = %d, want 115200", opts.BaudRate)
	}
	if opts.DataBits != 8 {
		t.Errorf("DataBits = %d, want 8", opts.DataBits)
	}
	if opts.StopBits != 1 {
		t.Errorf("StopBits = %d, want 1", opts.StopBits)
	}
	if opts.Parity != "N" {
		t.Errorf("Parity = %q, want N", opts.Parity)
	}
}

func TestPortOptionsNormalizeValidation(t *testing.T) {
	tests := []struct {
		name string
		opts PortOptions
		ok   bool
	}{
		{name: "supported slow baud", opts: PortOptions{BaudRate: 9600}, ok: true},
		{name: "supported mid baud", opts: PortOptions{BaudRate: 57600}, ok: true},
		{name: "unsupported baud", opts: PortOptions{BaudRate: 19200}},
		{name: "bad data bits", opts: PortOptions{DataBits: 9}},
		{name: "bad stop bits", opts: PortOptions{StopBits: 3}},
		{name: "parity long form", opts: PortOptions{Parity: "even"}, ok: true},
		{name: "bad parity", opts: PortOptions{Parity: "M"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.opts.Normalize()
			if tt.ok && err != nil {
				t.Errorf("Normalize(%+v) = %v, want nil", tt.opts, err)
			}
			if !tt.ok && err == nil {
				t.Errorf("Normalize(%+v) succeeded, want error", tt.opts)
			}
		})
	}
}

func TestPortOptionsEqual(t *testing.T) {
	a := PortOptions{}
	b := PortOptions{BaudRate: 115200, DataBits: 8, StopBits: 1, Parity: "NONE"}
	if !a.Equal(b) {
		t.Error("defaulted options should equal their explicit form")
	}

	c := PortOptions{BaudRate: 9600}
	if a.Equal(c) {
		t.Error("different baud rates should not compare equal")
	}
}

func TestPortOptionsSerialMode(t *testing.T) {
	mode, err := PortOptions{Parity: "odd"}.SerialMode()
	if err != nil {
		t.Fatalf("SerialMode: %v", err)
	}
	if mode.BaudRate != 115200 {
		t.Errorf("BaudRate = %d, want 115200", mode.BaudRate)
	}
	if mode.Parity != serial.OddParity {
		t.Errorf("Parity = %v, want OddParity", mode.Parity)
	}

	if _, err := (PortOptions{BaudRate: 300}).SerialMode(); err == nil {
		t.Error("SerialMode should reject unsupported baud rates")
	}
}
