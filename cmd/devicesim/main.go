// Command devicesim plays the part of the matrix firmware on a host: it
// reads the frame wire protocol from a serial port (or stdin) and renders
// each decoded frame to the terminal. Useful for exercising the
// controller end to end without hardware on the bench.
package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.bug.st/serial"

	"github.com/banshee-data/ledgrid/internal/device"
	"github.com/banshee-data/ledgrid/internal/display"
	"github.com/banshee-data/ledgrid/internal/serialmux"
)

var (
	portPath = flag.String("port", "/dev/ttyUSB0", "Serial port path to listen on")
	baudRate = flag.Int("baud", 115200, "Serial baud rate")
	useStdin = flag.Bool("stdin", false, "Read the frame stream from stdin instead of a serial port")
)

func main() {
	flag.Parse()

	var stream io.Reader
	if *useStdin {
		stream = os.Stdin
	} else {
		mode, err := serialmux.PortOptions{BaudRate: *baudRate}.SerialMode()
		if err != nil {
			log.Fatalf("invalid port options: %v", err)
		}
		port, err := serial.Open(*portPath, mode)
		if err != nil {
			log.Fatalf("failed to open serial port %s: %v", *portPath, err)
		}
		defer port.Close()
		stream = port
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runner := device.NewRunner(stream, display.NewConsole(os.Stdout))
	if err := runner.Run(ctx); err != nil && err != context.Canceled {
		log.Fatalf("decode loop failed: %v", err)
	}
	if d := runner.Discarded(); d > 0 {
		log.Printf("discarded %d noise bytes while resynchronizing", d)
	}
}
