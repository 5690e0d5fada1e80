package telemetry

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/edaniels/golog"
)

func TestTable_TypedAccess(t *testing.T) {
	tb := NewTable()
	tb.SetNumber("a", 1.5)
	tb.SetBool("b", true)
	tb.SetString("c", "x")

	if got := tb.Number("a", 0); got != 1.5 {
		t.Errorf("Number() = %f", got)
	}
	if got := tb.Number("b", -1); got != -1 {
		t.Errorf("Number() on a bool = %f, want default", got)
	}
	if !tb.Bool("b", false) {
		t.Error("Bool() = false")
	}
	if got := tb.String("c", ""); got != "x" {
		t.Errorf("String() = %q", got)
	}
	if got := tb.String("missing", "def"); got != "def" {
		t.Errorf("String() missing = %q", got)
	}
	if keys := tb.Keys(); strings.Join(keys, ",") != "a,b,c" {
		t.Errorf("Keys() = %v", keys)
	}
}

func TestTable_WellKnownKeys(t *testing.T) {
	tb := NewTable()
	if tb.Keypad() != 0 || tb.Pipeline() != 0 || !tb.IsBlueAlliance() {
		t.Error("unexpected defaults")
	}
	tb.SetPipeline(1)
	if tb.Number(KeyPipeline, 0) != 1 || tb.Pipeline() != 1 {
		t.Error("SetPipeline() not stored under the pipeline key")
	}
	tb.SetNumber(KeyKeypad, 7)
	if tb.Keypad() != 7 {
		t.Errorf("Keypad() = %d", tb.Keypad())
	}
	tb.SetBool(KeyAlliance, false)
	if tb.IsBlueAlliance() {
		t.Error("IsBlueAlliance() = true")
	}
}

func TestTable_Concurrent(t *testing.T) {
	tb := NewTable()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				tb.SetNumber(KeyKeypad, float64(i))
				tb.Keypad()
			}
		}(i)
	}
	wg.Wait()
}

func TestSerialFeed_Apply(t *testing.T) {
	tests := []struct {
		line    string
		key     string
		check   func(*Table) bool
		wantErr bool
	}{
		{line: "keypad/key=5", key: KeyKeypad, check: func(tb *Table) bool { return tb.Keypad() == 5 }},
		{line: " fms/isBlue = false ", key: KeyAlliance, check: func(tb *Table) bool { return !tb.Bool(KeyAlliance, true) }},
		{line: "mode=auto", key: "mode", check: func(tb *Table) bool { return tb.String("mode", "") == "auto" }},
		{line: "gyro=-12.5", key: "gyro", check: func(tb *Table) bool { return tb.Number("gyro", 0) == -12.5 }},
		{line: "# comment"},
		{line: ""},
		{line: "no separator", wantErr: true},
		{line: "=3", wantErr: true},
	}
	for _, tt := range tests {
		tb := NewTable()
		feed := NewSerialFeed(nil, tb, golog.NewTestLogger(t))
		err := feed.Apply(tt.line)
		if (err != nil) != tt.wantErr {
			t.Errorf("Apply(%q) error = %v, wantErr %t", tt.line, err, tt.wantErr)
			continue
		}
		if tt.check != nil && !tt.check(tb) {
			t.Errorf("Apply(%q) stored %v", tt.line, tb.Keys())
		}
		if tt.check == nil && len(tb.Keys()) != 0 {
			t.Errorf("Apply(%q) stored keys %v", tt.line, tb.Keys())
		}
	}
}

func TestSerialFeed_Run(t *testing.T) {
	tb := NewTable()
	in := strings.NewReader("keypad/key=3\nbogus\nlimelight/pipeline=1\n")
	feed := NewSerialFeed(in, tb, golog.NewTestLogger(t))

	if err := feed.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if tb.Keypad() != 3 || tb.Pipeline() != 1 {
		t.Errorf("table = keypad %d pipeline %d", tb.Keypad(), tb.Pipeline())
	}
}

// quietLink replays chunks, answering (0, io.EOF) between them like a serial
// port whose read timeout expired. It cancels the feed once it runs dry.
type quietLink struct {
	chunks []string
	quiet  int
	reads  int
	cancel context.CancelFunc
}

func (l *quietLink) Read(p []byte) (int, error) {
	l.reads++
	if l.quiet > 0 {
		l.quiet--
		return 0, io.EOF
	}
	if len(l.chunks) == 0 {
		l.cancel()
		return 0, io.EOF
	}
	n := copy(p, l.chunks[0])
	l.chunks = l.chunks[1:]
	l.quiet = 3
	return n, nil
}

func TestSerialFeed_FollowSurvivesQuietLink(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tb := NewTable()
	link := &quietLink{
		chunks: []string{"keypad/key=3\n", "limelight/pipe", "line=1\n", "keypad/key=5\n"},
		quiet:  3,
		cancel: cancel,
	}
	feed := NewSerialFeed(link, tb, golog.NewTestLogger(t)).Follow(time.Millisecond)

	if err := feed.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if tb.Keypad() != 5 {
		t.Errorf("Keypad() = %d, want 5 from the line after the quiet spells", tb.Keypad())
	}
	if tb.Pipeline() != 1 {
		t.Errorf("Pipeline() = %d, want 1 from a line split by a quiet spell", tb.Pipeline())
	}
	if link.reads < 16 {
		t.Errorf("reads = %d, quiet spells were not retried", link.reads)
	}
}

func TestSerialFeed_FollowStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	link := &quietLink{quiet: 1 << 30, cancel: cancel}
	feed := NewSerialFeed(link, NewTable(), golog.NewTestLogger(t)).Follow(time.Millisecond)

	done := make(chan error, 1)
	go func() { done <- feed.Run(ctx) }()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}
