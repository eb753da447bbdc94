package timing

import (
	"bytes"
	"os"
	"path"
	"strings"
	"testing"
	"time"

	"github.com/go-kit/log"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.t = c.t.Add(d)
}

func TestSummaryFile(t *testing.T) {
	dir := t.TempDir()
	clock := &fakeClock{t: time.Unix(0, 0)}
	r := NewReporter(log.NewNopLogger(), dir, time.Second, WithClock(clock.Now))

	r.RecordStep(time.Millisecond)
	r.RecordStep(3 * time.Millisecond)
	r.RecordTick(2 * time.Millisecond)
	r.RecordEpisode()
	clock.Advance(time.Hour + 2*time.Minute + 3*time.Second)
	if err := r.Close(); err != nil {
		t.Fatal(err)
	}

	bs, err := os.ReadFile(path.Join(dir, ReportFile))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(string(bs), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected two lines, got %v", lines)
	}
	if lines[0] != "RLEnv timing summary" {
		t.Errorf("unexpected title %q", lines[0])
	}
	for _, part := range []string{
		"Elapsed: 01:02:03 | ",
		"steps=2 (avg 2.000 ms, max 3.000 ms,",
		"ticks=1 (avg 2.000 ms, max 2.000 ms,",
		"episodes=1 (",
	} {
		if !strings.Contains(lines[1], part) {
			t.Errorf("expected %q in %q", part, lines[1])
		}
	}
}

func TestReportInterval(t *testing.T) {
	buf := &bytes.Buffer{}
	clock := &fakeClock{t: time.Unix(0, 0)}
	r := NewReporter(log.NewLogfmtLogger(buf), t.TempDir(), 5*time.Second, WithClock(clock.Now))

	r.MaybeReport()
	if buf.Len() != 0 {
		t.Fatalf("reported before the interval: %s", buf.String())
	}
	clock.Advance(5 * time.Second)
	r.MaybeReport()
	r.MaybeReport()
	if n := strings.Count(buf.String(), "steps="); n != 1 {
		t.Errorf("expected one report, got %d: %s", n, buf.String())
	}
	if strings.Contains(buf.String(), "Elapsed") {
		t.Errorf("periodic report should not carry the elapsed header")
	}
}

func TestCloseIdempotent(t *testing.T) {
	dir := t.TempDir()
	r := NewReporter(nil, dir, time.Second)
	if err := r.Close(); err != nil {
		t.Fatal(err)
	}
	os.Remove(path.Join(dir, ReportFile))
	if err := r.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path.Join(dir, ReportFile)); err == nil {
		t.Error("second close rewrote the report")
	}
}
