package display

import (
	"fmt"
	"io"
	"sync"
)

// Console renders row writes as a block-character grid on an io.Writer. It
// buffers rows and repaints the full grid whenever the last row arrives,
// which matches how the decoder delivers frames (8 ascending writes per
// completed frame).
type Console struct {
	mu   sync.Mutex
	w    io.Writer
	rows [Rows]byte
}

// NewConsole returns a Console rendering to w.
func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

// WriteRow implements the frame.RowWriter contract.
func (c *Console) WriteRow(device, row int, value byte) error {
	if err := CheckIndexes(device, row); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.rows[row] = value
	if row < Rows-1 {
		return nil
	}
	return c.render()
}

func (c *Console) render() error {
	if _, err := fmt.Fprintln(c.w, "+--------+"); err != nil {
		return err
	}
	for _, v := range c.rows {
		line := make([]rune, 0, Cols+2)
		line = append(line, '|')
		for bit := 7; bit >= 0; bit-- {
			if v&(1<<bit) != 0 {
				line = append(line, '#')
			} else {
				line = append(line, ' ')
			}
		}
		line = append(line, '|')
		if _, err := fmt.Fprintln(c.w, string(line)); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(c.w, "+--------+")
	return err
}
