// Package progress renders byte progress and verbose lines for CLI sessions.
package progress

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/schollz/progressbar/v3"
)

// Options configures progress bar behavior
type Options struct {
	Quiet   bool
	Verbose bool
	// Out receives info and verbose lines; Err receives the bar. Both
	// default to the process streams.
	Out io.Writer
	Err io.Writer
}

// Manager handles the session progress bar and cancellation
type Manager struct {
	options    Options
	bar        *progressbar.ProgressBar
	mu         sync.Mutex
	cancelFunc context.CancelFunc
	cancelled  bool
	cancelMux  sync.Mutex
	signalChan chan os.Signal
}

// NewManager creates a new progress manager
func NewManager(options Options) *Manager {
	if options.Out == nil {
		options.Out = os.Stdout
	}
	if options.Err == nil {
		options.Err = os.Stderr
	}
	return &Manager{
		options:    options,
		signalChan: make(chan os.Signal, 1),
	}
}

// SetupCancellation returns a context cancelled on SIGINT or SIGTERM.
func (pm *Manager) SetupCancellation(ctx context.Context) context.Context {
	ctx, cancel := context.WithCancel(ctx)
	pm.cancelFunc = cancel

	signal.Notify(pm.signalChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-pm.signalChan:
			pm.cancelMux.Lock()
			pm.cancelled = true
			pm.cancelMux.Unlock()
			fmt.Fprintln(pm.options.Err, "\nOperation cancelled by user")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx
}

// IsCancelled checks if the operation was cancelled
func (pm *Manager) IsCancelled() bool {
	pm.cancelMux.Lock()
	defer pm.cancelMux.Unlock()
	return pm.cancelled
}

// Cleanup removes signal handlers
func (pm *Manager) Cleanup() {
	signal.Stop(pm.signalChan)
	if pm.cancelFunc != nil {
		pm.cancelFunc()
	}
}

// Start initializes the byte progress bar for a stream of totalBytes.
func (pm *Manager) Start(totalBytes int64, description string) {
	if pm.options.Quiet {
		return
	}
	pm.mu.Lock()
	defer pm.mu.Unlock()

	pm.bar = progressbar.NewOptions64(totalBytes,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(pm.options.Err),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(50),
		progressbar.OptionThrottle(65),
		progressbar.OptionShowCount(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(pm.options.Err, "\n")
		}),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionFullWidth(),
	)
}

// Add advances the bar by n bytes.
func (pm *Manager) Add(n int64) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	if pm.bar == nil {
		return
	}
	// #nosec G104 - progress bar errors are not critical for functionality
	pm.bar.Add64(n)
}

// Finish marks the bar complete.
func (pm *Manager) Finish() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	if pm.bar == nil {
		return
	}
	// #nosec G104
	pm.bar.Finish()
	pm.bar = nil
}

// WrapReader returns a reader that advances the bar as r is consumed and
// fails with ctx.Err() once ctx is done.
func (pm *Manager) WrapReader(ctx context.Context, r io.Reader) io.Reader {
	return &trackingReader{ctx: ctx, r: r, pm: pm}
}

type trackingReader struct {
	ctx context.Context
	r   io.Reader
	pm  *Manager
}

func (tr *trackingReader) Read(p []byte) (int, error) {
	if err := tr.ctx.Err(); err != nil {
		return 0, err
	}
	n, err := tr.r.Read(p)
	if n > 0 {
		tr.pm.Add(int64(n))
	}
	return n, err
}

// PrintVerbose prints verbose information if verbose mode is enabled
func (pm *Manager) PrintVerbose(format string, args ...interface{}) {
	if !pm.options.Verbose {
		return
	}
	pm.clearBar()
	fmt.Fprintf(pm.options.Out, format, args...)
	if len(format) == 0 || format[len(format)-1] != '\n' {
		fmt.Fprintln(pm.options.Out)
	}
}

// PrintInfo prints informational messages (unless quiet mode)
func (pm *Manager) PrintInfo(format string, args ...interface{}) {
	if pm.options.Quiet {
		return
	}
	pm.clearBar()
	fmt.Fprintf(pm.options.Out, format, args...)
}

// Verbose reports whether verbose output is enabled.
func (pm *Manager) Verbose() bool { return pm.options.Verbose }

// Quiet reports whether non-error output is suppressed.
func (pm *Manager) Quiet() bool { return pm.options.Quiet }

func (pm *Manager) clearBar() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	if pm.bar != nil {
		// #nosec G104 - progress bar clear is not critical for functionality
		pm.bar.Clear()
	}
}
