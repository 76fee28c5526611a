package transfer

import (
	"fmt"
	"io"

	"github.com/cheggaaa/pb"
)

// Reporter prints the user-facing progress lines of the transfer commands.
// When meters are enabled it also draws a byte progress bar per transfer.
type Reporter struct {
	out      io.Writer
	meterOut io.Writer
	meters   bool
}

// NewReporter writes status lines to out. A non-nil meterOut enables byte
// progress bars, which should only be drawn on a terminal.
func NewReporter(out, meterOut io.Writer) *Reporter {
	if out == nil {
		out = io.Discard
	}
	return &Reporter{out: out, meterOut: meterOut, meters: meterOut != nil}
}

func (r *Reporter) printf(format string, args ...any) {
	if r == nil {
		return
	}
	fmt.Fprintf(r.out, format, args...)
}

// Converting announces a conversion by the source's base name.
func (r *Reporter) Converting(base string) { r.printf("Converting: %s\n", base) }

// Transferred confirms an upload the device acknowledged.
func (r *Reporter) Transferred(remote string) { r.printf("Successfully Transferred: %s\n", remote) }

// Retrieving announces a download.
func (r *Reporter) Retrieving(name string) { r.printf("Retrieving: %s\n", name) }

// Retrieved confirms a completed download.
func (r *Reporter) Retrieved(name string) { r.printf("Successfully Retrieved: %s\n", name) }

// meter tracks bytes moved for one file. A zero total draws a counter
// without a percentage.
type meter struct {
	bar *pb.ProgressBar
}

func (r *Reporter) startMeter(label string, total int64) *meter {
	if r == nil || !r.meters {
		return &meter{}
	}
	bar := pb.New64(total).Postfix(" " + label)
	bar.Units = pb.U_BYTES
	bar.Output = r.meterOut
	bar.ShowSpeed = true
	bar.Start()
	return &meter{bar: bar}
}

func (m *meter) add(n int) {
	if m.bar != nil && n > 0 {
		m.bar.Add64(int64(n))
	}
}

func (m *meter) finish() {
	if m.bar != nil {
		m.bar.Finish()
	}
}

// countingReader feeds a meter and records the byte total.
type countingReader struct {
	r     io.Reader
	m     *meter
	count int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.count += int64(n)
	c.m.add(n)
	return n, err
}

// countingWriter feeds a meter and records the byte total.
type countingWriter struct {
	w     io.Writer
	m     *meter
	count int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.count += int64(n)
	c.m.add(n)
	return n, err
}
