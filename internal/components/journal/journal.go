// Package journal is the plain-text append log of every outbound request
// and every match the scanner produced.
package journal

import (
	"fmt"
	"io"
	"marketwatch/internal/components/assert"
	"marketwatch/internal/components/chrono"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

const timestampLayout = "2006-01-02 15:04:05"

type Journal interface {
	// Request records one outbound request by its full url.
	Request(url string)
	// Match records the composed message of a qualifying listing.
	Match(message string)
}

type Options struct {
	// File is the path of the log, it is created if missing and always appended to.
	File string
	// MaxSizeMB is the size after which the file is rotated, 0 means lumberjack's default.
	MaxSizeMB  int
	MaxBackups int
}

// Writer writes journal lines to any io.Writer.
type Writer struct {
	mu    sync.Mutex
	out   io.Writer
	clock chrono.API
}

func NewWriter(out io.Writer, clock chrono.API) *Writer {
	assert.NotNil(out)
	assert.NotNil(clock)
	return &Writer{out: out, clock: clock}
}

// Open returns a Writer appending to a rotated file.
func Open(opts Options, clock chrono.API) (*Writer, io.Closer) {
	assert.NotEmptyStr(opts.File)
	lj := &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		LocalTime:  true,
	}
	return NewWriter(lj, clock), lj
}

func (w *Writer) Request(url string) {
	w.write(fmt.Sprintf("%s %s\n", w.clock.Now().Format(timestampLayout), url))
}

func (w *Writer) Match(message string) {
	if !strings.HasSuffix(message, "\n") {
		message += "\n"
	}
	w.write(message)
}

func (w *Writer) write(line string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	// the journal is best effort, a failing disk must not stop a scan
	_, _ = io.WriteString(w.out, line)
}

// Nop discards everything.
type Nop struct{}

func (Nop) Request(string) {}
func (Nop) Match(string)   {}
