package logger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"
)

// DailyFileWriter is an io.Writer that writes to a log file that rotates
// daily. File names are {service}_{date}.log. Rotation happens on the first
// write of a new day; a background goroutine also checks hourly. Safe for
// concurrent use.
type DailyFileWriter struct {
	service  string
	dir      string
	mu       sync.Mutex
	file     *os.File
	currDate string
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	closed   atomic.Bool
}

// NewDailyFileWriter creates a DailyFileWriter that writes to the given
// directory with files named {service}_{date}.log. The directory is not
// created by this function; callers must ensure it exists.
//
// Parameters:
//   - service: Service name used in log file names
//   - logDir: Directory path for log files
//
// Returns:
//   - The new DailyFileWriter, or an error if the initial file could not be opened
func NewDailyFileWriter(service string, logDir string) (*DailyFileWriter, error) {
	ctx, cancel := context.WithCancel(context.Background())
	w := &DailyFileWriter{
		service: service,
		dir:     logDir,
		cancel:  cancel,
	}

	w.mu.Lock()
	err := w.rotate()
	w.mu.Unlock()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("initial rotation failed: %w", err)
	}

	w.wg.Add(1)
	go w.autoRotate(ctx)
	return w, nil
}

// Write implements io.Writer. It rotates to a new file when the date changes
// and writes p to the current log file.
//
// Returns:
//   - The number of bytes written and an error if the writer is closed or write fails
func (w *DailyFileWriter) Write(p []byte) (int, error) {
	if w.closed.Load() {
		return 0, fmt.Errorf("writer is closed")
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.rotate(); err != nil {
		return 0, fmt.Errorf("rotation failed: %w", err)
	}

	return w.file.Write(p)
}

// Close stops the background rotator and closes the current log file.
// Subsequent writes return an error. It is safe to call multiple times.
//
// Returns:
//   - An error if closing the file fails
func (w *DailyFileWriter) Close() error {
	if !w.closed.CompareAndSwap(false, true) {
		return nil
	}

	w.cancel()
	w.wg.Wait()

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file != nil {
		err := w.file.Close()
		w.file = nil
		return err
	}

	return nil
}

// CurrentLogFile returns the full path of the log file currently being written
// to, or an empty string if no file is open.
//
// Returns:
//   - The path to the current log file, or "" if none
func (w *DailyFileWriter) CurrentLogFile() string {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return ""
	}

	return filepath.Join(w.dir, fmt.Sprintf("%s_%s.log", w.service, w.currDate))
}

// autoRotate runs in a goroutine and performs hourly rotation checks.
func (w *DailyFileWriter) autoRotate(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if w.closed.Load() {
				return
			}

			w.mu.Lock()
			_ = w.rotate()
			w.mu.Unlock()
		}
	}
}

// rotate switches to a new log file if the date has changed; caller must hold w.mu.
func (w *DailyFileWriter) rotate() error {
	if w.closed.Load() {
		return fmt.Errorf("writer is closed")
	}

	date := time.Now().Format("2006-01-02")
	if date == w.currDate && w.file != nil {
		return nil
	}

	if w.file != nil {
		_ = w.file.Close()
		w.file = nil
	}

	filename := filepath.Join(w.dir, fmt.Sprintf("%s_%s.log", w.service, date))
	file, err := os.OpenFile(filename, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", filename, err)
	}

	w.file = file
	w.currDate = date
	return nil
}
