package tasks

import (
	"io"
	"strings"
)

// logTee mirrors process log output into the log queue so connected
// clients see it, without ever blocking the logging caller. The
// underlying writer keeps local output intact.
type logTee struct {
	o   *Orchestrator
	out io.Writer
}

// LogWriter wraps a writer so everything the process logs also lands
// on the log queue. Install with log.SetOutput.
func (o *Orchestrator) LogWriter(out io.Writer) io.Writer {
	return &logTee{o: o, out: out}
}

func (t *logTee) Write(p []byte) (int, error) {
	n, err := t.out.Write(p)

	for _, line := range strings.Split(string(p), "\n") {
		line = strings.TrimRight(line, "\r")
		if line != "" {
			t.o.pushLog(line)
		}
	}
	return n, err
}
