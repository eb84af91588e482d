// Package sessionlog writes the per-session log files: a plain-text paradigm log with one
// line per phase transition and a structured log of everything else.
package sessionlog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const levelParadigm = "PARADIGM"

// Record is logged whenever a phase starts
type Record struct {
	Group string
	Kind  string
	Text  string
	// Start is the scheduled start in seconds since the clock origin
	Start float64
	// Wall is the clock reading when the phase was actually entered
	Wall float64
}

// String formats the record as "group, kind, text, start, wall"
func (r Record) String() string {
	return fmt.Sprintf("%s, %s, %s, %.3f, %.3f", r.Group, r.Kind, strings.ReplaceAll(r.Text, "\n", " "), r.Start, r.Wall)
}

// Log is the pair of files written for one session
type Log struct {
	now func() float64

	mtx      sync.Mutex
	paradigm *os.File
	all      *os.File

	ParadigmPath string
	AllPath      string
	SummaryPath  string
}

// Open creates dir if needed and the session's log files, named after the subject, session and start time.
// now is the experiment clock used to timestamp lines.
func Open(dir, subject, session string, started time.Time, now func() float64) (*Log, error) {
	err := os.MkdirAll(dir, 0o755)
	if err != nil {
		return nil, fmt.Errorf("error creating log directory: %w", err)
	}

	name := fmt.Sprintf("sub-%s_ses-%s_%s", strings.TrimSpace(subject), strings.TrimSpace(session), started.Format("20060102_150405"))

	l := &Log{
		now:          now,
		ParadigmPath: filepath.Join(dir, name+".txt"),
		AllPath:      filepath.Join(dir, name+"_all.txt"),
		SummaryPath:  filepath.Join(dir, name+"_summary.json"),
	}

	l.paradigm, err = os.Create(l.ParadigmPath)
	if err != nil {
		return nil, fmt.Errorf("error creating paradigm log: %w", err)
	}

	l.all, err = os.Create(l.AllPath)
	if err != nil {
		_ = l.paradigm.Close()
		return nil, fmt.Errorf("error creating log: %w", err)
	}

	return l, nil
}

// Writer receives the structured log of the session
func (l *Log) Writer() io.Writer {
	return l.all
}

// Phase writes a phase transition to the paradigm log
func (l *Log) Phase(r Record) error {
	return l.writeLine(r.String())
}

// Trigger writes the scanner trigger time to the paradigm log
func (l *Log) Trigger(t float64) error {
	return l.writeLine(fmt.Sprintf("trigger, trigger, MRI Trigger, %.3f", t))
}

func (l *Log) writeLine(msg string) error {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	_, err := fmt.Fprintf(l.paradigm, "%.4f \t%s \t%s\n", l.now(), levelParadigm, msg)
	if err != nil {
		return fmt.Errorf("error writing paradigm log: %w", err)
	}
	return nil
}

// Close syncs and closes both files
func (l *Log) Close() error {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	var errs []error
	for _, f := range []*os.File{l.paradigm, l.all} {
		if err := f.Sync(); err != nil {
			errs = append(errs, err)
		}
		if err := f.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("error closing session log: %w", errs[0])
	}
	return nil
}
