package util

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/gosuri/uilive"
	"github.com/mattn/go-isatty"
)

// ProgressPrinter keeps a single status line up to date. On a terminal the
// line is redrawn in place every frequency; otherwise each new status is
// written as its own line.
type ProgressPrinter struct {
	out       io.Writer
	live      bool
	frequency time.Duration
	status    *ParallelOutput
	doneCh    chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup

	writer *uilive.Writer
}

func NewProgressPrinter(out io.Writer, frequency time.Duration) *ProgressPrinter {
	p := &ProgressPrinter{
		out:       out,
		live:      IsTerminal(out),
		frequency: frequency,
		status:    NewParallelOutput(),
		doneCh:    make(chan struct{}),
	}
	if p.live {
		p.writer = uilive.New()
		p.writer.Out = out
	}
	return p
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (p *ProgressPrinter) Start(ctx context.Context) {
	if !p.live {
		return
	}
	p.writer.Start()
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ticker := time.NewTicker(p.frequency)
		defer ticker.Stop()
		for {
			select {
			case <-p.doneCh:
				p.print()
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.print()
			}
		}
	}()
}

func (p *ProgressPrinter) Stop() {
	p.stopOnce.Do(func() {
		close(p.doneCh)
		p.wg.Wait()
		if p.live {
			p.writer.Stop()
		}
	})
}

// Set records the latest status.
func (p *ProgressPrinter) Set(status string) {
	p.status.Set(status)
	if !p.live {
		fmt.Fprintln(p.out, status)
	}
}

func (p *ProgressPrinter) print() {
	fmt.Fprintln(p.writer, p.status.Get())
	p.writer.Flush()
}

// ParallelOutput is a string guarded for one writer and one reader.
type ParallelOutput struct {
	mu        *sync.Mutex
	printable string
}

func NewParallelOutput() *ParallelOutput {
	return &ParallelOutput{
		mu: new(sync.Mutex),
	}
}

func (p *ParallelOutput) Set(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.printable = s
}

func (p *ParallelOutput) Get() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.printable
}
