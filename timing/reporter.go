package timing

import (
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/zeu5/tickrl/types"
	"github.com/zeu5/tickrl/util"
)

const ReportFile = "timing-report.txt"

type Option func(*Reporter)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(r *Reporter) {
		r.now = now
	}
}

// Reporter aggregates step and tick durations. A line is logged at most once
// per interval and a summary is written to the data folder on Close.
type Reporter struct {
	mu         sync.Mutex
	logger     log.Logger
	reportPath string
	interval   time.Duration
	now        func() time.Time

	start      time.Time
	lastReport time.Time

	steps    int64
	ticks    int64
	episodes int64

	totalStep time.Duration
	totalTick time.Duration
	maxStep   time.Duration
	maxTick   time.Duration

	closed bool
}

var _ types.StepTimer = &Reporter{}

func NewReporter(logger log.Logger, dataFolder string, interval time.Duration, opts ...Option) *Reporter {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	if interval < time.Second {
		interval = time.Second
	}
	r := &Reporter{
		logger:     log.With(logger, "component", "timing"),
		reportPath: path.Join(dataFolder, ReportFile),
		interval:   interval,
		now:        time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	r.start = r.now()
	r.lastReport = r.start
	return r
}

func (r *Reporter) RecordStep(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.steps++
	r.totalStep += d
	if d > r.maxStep {
		r.maxStep = d
	}
}

func (r *Reporter) RecordTick(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ticks++
	r.totalTick += d
	if d > r.maxTick {
		r.maxTick = d
	}
}

func (r *Reporter) RecordEpisode() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.episodes++
}

func (r *Reporter) MaybeReport() {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	if now.Sub(r.lastReport) < r.interval {
		return
	}
	r.lastReport = now
	level.Info(r.logger).Log("msg", r.line(now, false))
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func average(total time.Duration, count int64) float64 {
	if count == 0 {
		return 0
	}
	return millis(total) / float64(count)
}

func formatElapsed(d time.Duration) string {
	secs := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, (secs%3600)/60, secs%60)
}

func (r *Reporter) line(now time.Time, withElapsed bool) string {
	elapsed := now.Sub(r.start)
	if elapsed <= 0 {
		elapsed = time.Nanosecond
	}
	secs := elapsed.Seconds()

	b := strings.Builder{}
	if withElapsed {
		b.WriteString("Elapsed: " + formatElapsed(elapsed) + " | ")
	}
	b.WriteString(fmt.Sprintf("steps=%d (avg %.3f ms, max %.3f ms, %.1f steps/s) | ",
		r.steps, average(r.totalStep, r.steps), millis(r.maxStep), float64(r.steps)/secs))
	b.WriteString(fmt.Sprintf("ticks=%d (avg %.3f ms, max %.3f ms, %.1f ticks/s) | ",
		r.ticks, average(r.totalTick, r.ticks), millis(r.maxTick), float64(r.ticks)/secs))
	b.WriteString(fmt.Sprintf("episodes=%d (%.2f /min)", r.episodes, float64(r.episodes)*60/secs))
	return b.String()
}

// Summary is the report line including the elapsed time
func (r *Reporter) Summary() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.line(r.now(), true)
}

// Close writes the summary file, only the first call has an effect
func (r *Reporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	if err := util.WriteToFile(r.reportPath, "RLEnv timing summary", r.line(r.now(), true)); err != nil {
		level.Warn(r.logger).Log("msg", "failed to write timing report", "err", err)
		return err
	}
	return nil
}
