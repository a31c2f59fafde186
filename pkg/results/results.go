// Package results writes classification results to their destinations.
package results

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
)

// Result is the classification of one test document
type Result struct {
	Name  string // file name without directory
	Class int
	Label string
}

// Sink receives classification results
type Sink interface {
	Write(ctx context.Context, r Result) error
	Close() error
}

// WriterSink writes one "name\tlabel\n" line per result
type WriterSink struct {
	w      *bufio.Writer
	closer io.Closer
}

// NewWriterSink wraps w. Close flushes but does not close w.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: bufio.NewWriter(w)}
}

// CreateFile truncates or creates path and returns a sink writing to it
func CreateFile(path string) (*WriterSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create results file: %w", err)
	}
	return &WriterSink{w: bufio.NewWriter(f), closer: f}, nil
}

// Write appends one result line
func (s *WriterSink) Write(_ context.Context, r Result) error {
	if _, err := fmt.Fprintf(s.w, "%s\t%s\n", r.Name, r.Label); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}
	return nil
}

// Close flushes buffered lines and closes the underlying file, if any
func (s *WriterSink) Close() error {
	err := s.w.Flush()
	if err != nil {
		err = fmt.Errorf("failed to flush results: %w", err)
	}
	if s.closer != nil {
		if cerr := s.closer.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("failed to close results file: %w", cerr))
		}
	}
	return err
}

// Multi fans every result out to several sinks
type Multi []Sink

// Write writes r to every sink and stops at the first failure
func (m Multi) Write(ctx context.Context, r Result) error {
	for _, s := range m {
		if err := s.Write(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every sink and joins their errors
func (m Multi) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
