package logging

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// AccessEntry is one line of the operational access log. It summarizes
// the gateway attempt only: no request bodies, no headers, and never
// any credential material.
type AccessEntry struct {
	Timestamp  time.Time `json:"timestamp"`
	Method     string    `json:"method"`
	Path       string    `json:"path"`
	Status     int       `json:"status"`
	AccountID  string    `json:"account_id,omitempty"`
	DurationMS int64     `json:"duration_ms"`
}

// AccessLogger implements asynchronous, buffered JSONL logging with
// size-based rotation and periodic flush. Writes never block request
// handling; when the buffer is full the entry is dropped.
type AccessLogger struct {
	fileTemplate  string // e.g. "logs/access-%s.jsonl"
	maxSize       int64  // maximum size in bytes before rotation
	maxFiles      int    // maximum number of rotated files to keep
	flushInterval time.Duration

	mu          sync.Mutex
	currentFile string
	file        *os.File
	writer      *bufio.Writer
	currentSize int64

	logCh  chan AccessEntry
	doneCh chan struct{}
	wg     sync.WaitGroup

	closeOnce sync.Once
}

// NewAccessLogger creates the logger and starts its writer goroutine.
func NewAccessLogger(fileTemplate string, maxSize int64, maxFiles int, bufferSize int, flushInterval time.Duration) (*AccessLogger, error) {
	logger := &AccessLogger{
		fileTemplate:  fileTemplate,
		maxSize:       maxSize,
		maxFiles:      maxFiles,
		flushInterval: flushInterval,
		logCh:         make(chan AccessEntry, bufferSize),
		doneCh:        make(chan struct{}),
	}

	if err := logger.openFile(); err != nil {
		return nil, err
	}

	logger.wg.Add(1)
	go logger.run()

	return logger, nil
}

// Log enqueues an entry. Non-blocking: drops the entry if the buffer is full.
func (logger *AccessLogger) Log(entry AccessEntry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	select {
	case logger.logCh <- entry:
	default:
	}
}

// Shutdown stops the writer goroutine and flushes remaining entries.
func (logger *AccessLogger) Shutdown() {
	logger.closeOnce.Do(func() {
		close(logger.doneCh)
	})
	logger.wg.Wait()
}

func (logger *AccessLogger) run() {
	defer logger.wg.Done()

	ticker := time.NewTicker(logger.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case entry := <-logger.logCh:
			if err := logger.write(entry); err != nil {
				fmt.Fprintf(os.Stderr, "access logger write failed: %v\n", err)
			}
		case <-ticker.C:
			logger.flush()
		case <-logger.doneCh:
			// Drain whatever is still queued, then flush and close.
			for {
				select {
				case entry := <-logger.logCh:
					if err := logger.write(entry); err != nil {
						fmt.Fprintf(os.Stderr, "access logger write failed: %v\n", err)
					}
				default:
					logger.flush()
					logger.closeFile()
					return
				}
			}
		}
	}
}

func (logger *AccessLogger) write(entry AccessEntry) error {
	line, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	line = append(line, '\n')

	if err := logger.rotateIfNeeded(len(line)); err != nil {
		return err
	}

	logger.mu.Lock()
	defer logger.mu.Unlock()

	n, err := logger.writer.Write(line)
	logger.currentSize += int64(n)
	return err
}

func (logger *AccessLogger) flush() {
	logger.mu.Lock()
	defer logger.mu.Unlock()
	if logger.writer != nil {
		logger.writer.Flush()
	}
}

func (logger *AccessLogger) closeFile() {
	logger.mu.Lock()
	defer logger.mu.Unlock()
	if logger.file != nil {
		logger.file.Close()
		logger.file = nil
		logger.writer = nil
	}
}

// newFileName applies the current timestamp to the file template.
func (logger *AccessLogger) newFileName() string {
	timestamp := time.Now().Format("20060102150405")
	return fmt.Sprintf(logger.fileTemplate, timestamp)
}

// openFile opens (or creates) the active log file and prepares the
// buffered writer, creating the directory if needed.
func (logger *AccessLogger) openFile() error {
	logger.currentFile = logger.newFileName()

	dir := filepath.Dir(logger.currentFile)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	file, err := os.OpenFile(logger.currentFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	fi, err := file.Stat()
	if err != nil {
		file.Close()
		return err
	}
	logger.currentSize = fi.Size()
	logger.file = file
	logger.writer = bufio.NewWriter(file)
	return nil
}

// rotateIfNeeded rotates the active file when adding n bytes would
// exceed the size limit.
func (logger *AccessLogger) rotateIfNeeded(n int) error {
	logger.mu.Lock()
	defer logger.mu.Unlock()

	if logger.currentSize+int64(n) < logger.maxSize {
		return nil
	}

	if err := logger.writer.Flush(); err != nil {
		return err
	}
	if err := logger.file.Close(); err != nil {
		return err
	}

	if err := logger.openFile(); err != nil {
		return err
	}

	return logger.cleanupOldFiles()
}

// cleanupOldFiles removes the oldest rotated files if more than maxFiles exist.
func (logger *AccessLogger) cleanupOldFiles() error {
	pattern := fmt.Sprintf(logger.fileTemplate, "*")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return err
	}
	if len(matches) <= logger.maxFiles {
		return nil
	}

	sort.Slice(matches, func(i, j int) bool {
		fi, err1 := os.Stat(matches[i])
		fj, err2 := os.Stat(matches[j])
		if err1 != nil || err2 != nil {
			return false
		}
		return fi.ModTime().Before(fj.ModTime())
	})

	for _, name := range matches[:len(matches)-logger.maxFiles] {
		if name == logger.currentFile {
			continue
		}
		if err := os.Remove(name); err != nil {
			return err
		}
	}
	return nil
}
