package display

import "sync"

// RowWrite records a single WriteRow call.
type RowWrite struct {
	Device int
	Row    int
	Value  byte
}

// Recorder is a test sink capturing row writes in arrival order, with an
// injectable error for exercising sink-failure paths.
type Recorder struct {
	mu sync.Mutex

	// Writes holds every accepted WriteRow call in order.
	Writes []RowWrite

	// Err, if set, is returned by every WriteRow call.
	Err error
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// WriteRow validates indexes like a real sink would, then records the call.
func (r *Recorder) WriteRow(device, row int, value byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.Err != nil {
		return r.Err
	}
	if err := CheckIndexes(device, row); err != nil {
		return err
	}
	r.Writes = append(r.Writes, RowWrite{Device: device, Row: row, Value: value})
	return nil
}

// Frames groups the recorded writes into complete 8-row frames, dropping
// any trailing partial frame.
func (r *Recorder) Frames() [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()

	var frames [][]byte
	for i := 0; i+Rows <= len(r.Writes); i += Rows {
		rows := make([]byte, Rows)
		for j := 0; j < Rows; j++ {
			rows[j] = r.Writes[i+j].Value
		}
		frames = append(frames, rows)
	}
	return frames
}

// Reset clears recorded writes and the injected error.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Writes = nil
	r.Err = nil
}
