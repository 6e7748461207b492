// Package logging builds the per-run logger.
//
// A run logs to two sinks: the console at the verbosity chosen on the
// command line, and the report directory's report.txt at info level and
// above. The report sink is attached once the report directory exists, so
// the logger is created first and handed to every component.
package logging

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ReportLevel is the fixed minimum level written to report.txt.
const ReportLevel = zerolog.InfoLevel

// reportTimeFormat matches the "[2006-01-02 15:04:05] message" lines of
// report.txt.
const reportTimeFormat = "2006-01-02 15:04:05"

// Verbosity selects the console level.
type Verbosity int

const (
	VerbosityDefault Verbosity = iota // info and above
	VerbosityVerbose                  // debug and above
	VerbosityQuiet                    // critical only
)

// ConsoleLevel maps a verbosity to the console threshold.
func ConsoleLevel(v Verbosity) zerolog.Level {
	switch v {
	case VerbosityVerbose:
		return zerolog.DebugLevel
	case VerbosityQuiet:
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

type sink struct {
	w     io.Writer
	level zerolog.Level
}

// Output fans log events out to level-filtered sinks.
// It implements zerolog.LevelWriter.
type Output struct {
	mu     sync.Mutex
	sinks  []sink
	report io.Closer
}

// New creates a logger writing to console at the given level. The console
// writer is wrapped in a zerolog.ConsoleWriter; color is disabled unless
// color is true.
func New(console io.Writer, level zerolog.Level, color bool) (zerolog.Logger, *Output) {
	out := &Output{}
	out.sinks = append(out.sinks, sink{
		w: zerolog.ConsoleWriter{
			Out:        console,
			NoColor:    !color,
			TimeFormat: time.Kitchen,
		},
		level: level,
	})

	logger := zerolog.New(out).
		Level(zerolog.DebugLevel).
		With().
		Timestamp().
		Logger()

	return logger, out
}

// AttachReport adds the report file sink. Lines are written as
// "[timestamp] message key=value" at ReportLevel and above. The writer is
// closed by Close.
func (o *Output) AttachReport(w io.WriteCloser) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.sinks = append(o.sinks, sink{
		w:     newReportWriter(w),
		level: ReportLevel,
	})
	o.report = w
}

// Write implements io.Writer for events without a level.
func (o *Output) Write(p []byte) (int, error) {
	return o.WriteLevel(zerolog.NoLevel, p)
}

// WriteLevel implements zerolog.LevelWriter.
func (o *Output) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	var firstErr error
	for _, s := range o.sinks {
		if level != zerolog.NoLevel && level < s.level {
			continue
		}
		if _, err := s.w.Write(p); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return len(p), firstErr
}

// Close detaches and closes the report sink. The console sink stays usable.
func (o *Output) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.report == nil {
		return nil
	}
	err := o.report.Close()
	o.report = nil
	o.sinks = o.sinks[:1]
	return err
}

func newReportWriter(w io.Writer) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:        w,
		NoColor:    true,
		PartsOrder: []string{zerolog.TimestampFieldName, zerolog.MessageFieldName},
		FormatTimestamp: func(i interface{}) string {
			s, ok := i.(string)
			if !ok {
				return "[]"
			}
			ts, err := time.Parse(zerolog.TimeFieldFormat, s)
			if err != nil {
				return fmt.Sprintf("[%s]", s)
			}
			return fmt.Sprintf("[%s]", ts.Format(reportTimeFormat))
		},
	}
}
