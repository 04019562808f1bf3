package msg

import (
	"fmt"
	"io"
	"time"
)

// TransferMeter renders a live byte counter for long transfers (bundle
// clones). It implements io.Writer so it can be handed directly to go-git as
// a sideband progress sink; the total size is not known up front, so it shows
// bytes moved and elapsed time rather than a percentage.
type TransferMeter struct {
	W io.Writer

	start      time.Time
	moved      int64
	lastPrint  time.Time
	throbIndex int
}

var throbber = []rune{'|', '/', '-', '\\'}

func NewTransferMeter(w io.Writer) *TransferMeter {
	now := time.Now()
	return &TransferMeter{W: w, start: now, lastPrint: now}
}

func (m *TransferMeter) Write(p []byte) (int, error) {
	m.moved += int64(len(p))
	if time.Since(m.lastPrint) > 40*time.Millisecond {
		m.print(throbber[m.throbIndex%len(throbber)])
		m.throbIndex++
		m.lastPrint = time.Now()
	}
	return len(p), nil
}

func (m *TransferMeter) print(throb rune) {
	fmt.Fprintf(m.W, "\r  %d KB (%ds) %c",
		m.moved/1024,
		int(time.Since(m.start).Seconds()),
		throb,
	)
}

// Finish prints the final byte count and terminates the meter line.
func (m *TransferMeter) Finish() {
	m.print(' ')
	fmt.Fprintln(m.W)
}
