package types

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gosuri/uilive"
)

// TerminalPrinter redraws a set of status lines at a fixed frequency
type TerminalPrinter struct {
	lines         []*StatusLine
	ctx           context.Context
	printerCtx    context.Context
	printerCancel context.CancelFunc
	frequency     time.Duration

	writer  *uilive.Writer
	writers []io.Writer
}

func NewTerminalPrinter(ctx context.Context, lines []*StatusLine, frequency time.Duration) *TerminalPrinter {
	printerCtx, cancel := context.WithCancel(ctx)
	writer := uilive.New()
	writers := make([]io.Writer, len(lines))
	if len(lines) > 0 {
		writers[0] = writer
	}
	for i := 1; i < len(lines); i++ {
		writers[i] = writer.Newline()
	}

	return &TerminalPrinter{
		lines:         lines,
		ctx:           ctx,
		printerCtx:    printerCtx,
		printerCancel: cancel,
		frequency:     frequency,

		writer:  writer,
		writers: writers,
	}
}

func (p *TerminalPrinter) Start() {
	p.writer.Start()
	go func() {
		ticker := time.NewTicker(p.frequency)
		defer ticker.Stop()
		for {
			select {
			case <-p.printerCtx.Done():
				p.print()
				p.writer.Stop()
				return
			case <-ticker.C:
				p.print()
			}
		}
	}()
}

func (p *TerminalPrinter) Stop() {
	p.printerCancel()
}

func (p *TerminalPrinter) print() {
	for i, line := range p.lines {
		fmt.Fprintln(p.writers[i], line.Get())
	}
	p.writer.Flush()
}

// StatusLine holds the latest printable status of a component
type StatusLine struct {
	mu        sync.Mutex
	printable string
}

func NewStatusLine(initial string) *StatusLine {
	return &StatusLine{
		printable: initial,
	}
}

// Set the output string (blocking)
func (s *StatusLine) Set(v string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.printable = v
}

// TrySet sets the output string if nobody holds the lock
func (s *StatusLine) TrySet(v string) bool {
	if s.mu.TryLock() {
		defer s.mu.Unlock()
		s.printable = v
		return true
	}
	return false
}

func (s *StatusLine) Get() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.printable
}
