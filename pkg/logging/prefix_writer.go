package logging

import (
	"bytes"
	"io"
)

// PrefixWriter prepends a fixed prefix to every line written through
// it. Partial lines are buffered until their newline arrives.
type PrefixWriter struct {
	prefix []byte
	out    io.Writer
	buf    bytes.Buffer
}

// NewPrefixWriter wraps w so each line starts with prefix.
func NewPrefixWriter(prefix string, w io.Writer) *PrefixWriter {
	return &PrefixWriter{prefix: []byte(prefix), out: w}
}

func (pw *PrefixWriter) Write(p []byte) (int, error) {
	pw.buf.Write(p)
	for {
		line, err := pw.buf.ReadBytes('\n')
		if err != nil {
			// Incomplete line: hold it for the next Write.
			pw.buf.Write(line)
			break
		}
		if _, err := pw.out.Write(pw.prefix); err != nil {
			return 0, err
		}
		if _, err := pw.out.Write(line); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

// Flush writes any buffered partial line, newline-terminated.
func (pw *PrefixWriter) Flush() error {
	if pw.buf.Len() == 0 {
		return nil
	}
	if _, err := pw.out.Write(pw.prefix); err != nil {
		return err
	}
	line := append(pw.buf.Bytes(), '\n')
	pw.buf.Reset()
	_, err := pw.out.Write(line)
	return err
}
