package frame

// RowWriter is the display sink a decoder delivers completed frames to.
// Implementations must accept device 0 and rows 0..7; anything else is a
// contract violation surfaced as an error from WriteRow.
type RowWriter interface {
	WriteRow(device, row int, value byte) error
}

// Decoder converts an arbitrary byte stream into complete bitmaps delivered
// to a RowWriter. It holds at most Rows bytes of buffer regardless of what
// the stream does, and recovers from corruption or a mid-frame reconnect by
// discarding bytes until the next Header.
//
// A Decoder is owned by a single decoding loop; it is not safe for
// concurrent use. Streams from multiple devices each need their own
// Decoder.
type Decoder struct {
	sink RowWriter

	// synced is true once a header has been consumed and a frame is in
	// progress.
	synced    bool
	collected int
	rows      [Rows]byte

	discarded uint64
}

// NewDecoder returns a Decoder in the waiting-for-header state, delivering
// completed frames to sink.
func NewDecoder(sink RowWriter) *Decoder {
	return &Decoder{sink: sink}
}

// Feed consumes exactly one byte from the stream. It never blocks and
// performs no look-ahead: callers poll their transport and hand bytes over
// in arrival order.
//
// While waiting for a header, any byte other than Header is silently
// discarded. While collecting rows, every byte is payload; a row byte equal
// to Header does not restart framing. When the eighth row byte arrives the
// frame is delivered as 8 ascending WriteRow calls and the decoder resets,
// so a completed frame leaves it indistinguishable from a fresh one.
//
// The only error Feed can return is one propagated from the sink. Even
// then the frame counts as consumed: the decoder resets rather than
// re-entering a partial state, and the remaining rows of that frame are
// not written.
func (d *Decoder) Feed(b byte) error {
	if !d.synced {
		if b == Header {
			d.synced = true
			d.collected = 0
		} else {
			d.discarded++
		}
		return nil
	}

	d.rows[d.collected] = b
	d.collected++
	if d.collected < Rows {
		return nil
	}

	rows := d.rows
	d.synced = false
	d.collected = 0

	for i, v := range rows {
		if err := d.sink.WriteRow(0, i, v); err != nil {
			return err
		}
	}
	return nil
}

// FeedBytes feeds each byte of p in order, stopping at the first sink
// error.
func (d *Decoder) FeedBytes(p []byte) error {
	for _, b := range p {
		if err := d.Feed(b); err != nil {
			return err
		}
	}
	return nil
}

// Discarded reports how many bytes have been dropped while waiting for a
// header. Purely diagnostic: discarding is the normal resynchronization
// path, not an error.
func (d *Decoder) Discarded() uint64 {
	return d.discarded
}
