package telemetry

import (
	"bufio"
	"context"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"github.com/tarm/serial"
)

// SerialFeed copies "key=value" lines from the driver station link into a table.
// "true" and "false" are stored as booleans, anything that parses as a float as
// a number, the rest as strings.
type SerialFeed struct {
	r      io.Reader
	table  *Table
	logger golog.Logger

	// poll is how long Run waits after an empty read before reading again.
	// Zero means an empty read ends the feed.
	poll time.Duration
}

// NewSerialFeed reads lines from r.
func NewSerialFeed(r io.Reader, table *Table, logger golog.Logger) *SerialFeed {
	return &SerialFeed{r: r, table: table, logger: logger}
}

// OpenSerialFeed opens the serial port name at baud.
func OpenSerialFeed(name string, baud int, table *Table, logger golog.Logger) (*SerialFeed, error) {
	port, err := serial.OpenPort(&serial.Config{
		Name:        name,
		Baud:        baud,
		ReadTimeout: 500 * time.Millisecond,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open telemetry port %s", name)
	}
	return NewSerialFeed(port, table, logger).Follow(50 * time.Millisecond), nil
}

// Follow keeps the feed running across empty reads, retrying every poll. A
// serial port with a read timeout reports a quiet link as io.EOF.
func (f *SerialFeed) Follow(poll time.Duration) *SerialFeed {
	f.poll = poll
	return f
}

// idleReader turns an empty io.EOF read into a wait until ctx is done.
type idleReader struct {
	ctx  context.Context
	r    io.Reader
	poll time.Duration
}

func (r *idleReader) Read(p []byte) (int, error) {
	for {
		n, err := r.r.Read(p)
		if err != io.EOF {
			return n, err
		}
		if n > 0 {
			return n, nil
		}
		select {
		case <-r.ctx.Done():
			return 0, io.EOF
		case <-time.After(r.poll):
		}
	}
}

// Run reads until the reader ends or ctx is cancelled. A followed feed only ends
// with ctx or a read error. A reader that is also an io.Closer is closed on
// return.
func (f *SerialFeed) Run(ctx context.Context) error {
	if c, ok := f.r.(io.Closer); ok {
		stop := make(chan struct{})
		defer close(stop)
		go func() {
			select {
			case <-ctx.Done():
			case <-stop:
			}
			c.Close()
		}()
	}

	var r io.Reader = f.r
	if f.poll > 0 {
		r = &idleReader{ctx: ctx, r: f.r, poll: f.poll}
	}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		if err := f.Apply(scanner.Text()); err != nil {
			f.logger.Debugw("telemetry line ignored", "line", scanner.Text(), "error", err)
		}
	}
	if ctx.Err() != nil {
		return nil
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrap(err, "telemetry feed")
	}
	return nil
}

// Apply parses a single line into the table. Blank lines and lines starting
// with '#' are skipped.
func (f *SerialFeed) Apply(line string) error {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return nil
	}
	key, value, ok := strings.Cut(line, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return errors.Errorf("malformed line %q", line)
	}
	value = strings.TrimSpace(value)

	switch value {
	case "true":
		f.table.SetBool(key, true)
	case "false":
		f.table.SetBool(key, false)
	default:
		if n, err := strconv.ParseFloat(value, 64); err == nil {
			f.table.SetNumber(key, n)
		} else {
			f.table.SetString(key, value)
		}
	}
	return nil
}
