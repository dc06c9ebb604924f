package results

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"ising-mc/internal/sims/ising"
)

// SampleHeader is the first line of every sample file.
const SampleHeader = "# step\tm\tenergy"

// Writer streams samples as tab separated rows behind SampleHeader.
type Writer struct {
	bw     *bufio.Writer
	closer io.Closer
	rows   int
}

// NewWriter writes the header to w. If w is an io.Closer, Close closes it.
func NewWriter(w io.Writer) (*Writer, error) {
	sw := &Writer{bw: bufio.NewWriter(w)}
	if c, ok := w.(io.Closer); ok {
		sw.closer = c
	}
	if _, err := fmt.Fprintln(sw.bw, SampleHeader); err != nil {
		return nil, fmt.Errorf("write sample header: %w", err)
	}
	return sw, nil
}

// Create opens a new sample file at path.
func Create(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create sample file: %w", err)
	}
	w, err := NewWriter(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return w, nil
}

// CreateNext creates the first free versioned sample file for base in folder.
// Concurrent callers racing for the same version each get their own file.
func CreateNext(folder, base string) (*Writer, string, error) {
	for {
		path, err := NextVersionPath(folder, base)
		if err != nil {
			return nil, "", err
		}
		w, err := Create(path)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return nil, "", err
		}
		return w, path, nil
	}
}

// Write appends one row.
func (w *Writer) Write(s ising.Sample) error {
	if _, err := fmt.Fprintf(w.bw, "%d\t%.8f\t%.8f\n", s.Step, s.Magnetization, s.Energy); err != nil {
		return fmt.Errorf("write sample: %w", err)
	}
	w.rows++
	return nil
}

// Rows returns the number of rows written so far.
func (w *Writer) Rows() int { return w.rows }

// Flush writes buffered rows to the underlying writer.
func (w *Writer) Flush() error { return w.bw.Flush() }

// Close flushes and closes the underlying writer when it is closable.
func (w *Writer) Close() error {
	err := w.bw.Flush()
	if w.closer != nil {
		if cerr := w.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// ReadSamples parses a sample file. Lines starting with '#' and blank lines
// are skipped.
func ReadSamples(r io.Reader) ([]ising.Sample, error) {
	var out []ising.Sample
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) < 3 {
			return nil, fmt.Errorf("sample line %d: want 3 fields, got %d", line, len(fields))
		}
		step, err := strconv.ParseInt(fields[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("sample line %d: step: %w", line, err)
		}
		m, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("sample line %d: m: %w", line, err)
		}
		e, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return nil, fmt.Errorf("sample line %d: energy: %w", line, err)
		}
		out = append(out, ising.Sample{Step: step, Magnetization: m, Energy: e})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read samples: %w", err)
	}
	return out, nil
}

// ReadSampleFile parses the sample file at path.
func ReadSampleFile(path string) ([]ising.Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sample file: %w", err)
	}
	defer f.Close()
	return ReadSamples(f)
}
