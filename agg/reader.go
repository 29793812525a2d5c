package agg

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// EventReader provides a record-by-record view of one event file.
// Decoding failure is terminal for the file: Next returns false, Err reports
// an *IngestError naming the path, and the source is closed. A header record
// at the start of the file is skipped, not surfaced.
//
// Usage mirrors the usual iterator shape:
//
//	r, err := OpenEvents(ctx, path)
//	for r.Next() { rec := r.Record(); ... }
//	if err := r.Err(); err != nil { ... }
type EventReader struct {
	ctx    context.Context
	path   string
	file   *os.File
	buf    *bufio.Reader
	rec    EventRecord
	err    error
	closed bool
	first  bool
}

// OpenEvents opens an event file for reading. An unopenable path is an
// *IngestError. The context bounds the whole scan; once it expires the
// reader fails with an *IngestError wrapping the context error.
func OpenEvents(ctx context.Context, path string) (*EventReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &IngestError{Path: path, Err: err}
	}
	return &EventReader{
		ctx:   ctx,
		path:  path,
		file:  f,
		buf:   bufio.NewReader(f),
		first: true,
	}, nil
}

// Next advances to the next metric record. It returns false at a clean end
// of file or on the first decoding fault, whichever comes first.
func (r *EventReader) Next() bool {
	if r.closed {
		return false
	}
	for {
		if err := r.ctx.Err(); err != nil {
			r.fail(err)
			return false
		}
		payload, err := readFrame(r.buf)
		if err == io.EOF {
			r.close()
			return false
		}
		if err != nil {
			r.fail(err)
			return false
		}
		var rec EventRecord
		if err := json.Unmarshal(payload, &rec); err != nil {
			r.fail(fmt.Errorf("decoding record: %w", err))
			return false
		}
		// The leading header record carries no metric name. Skip it rather
		// than surface it as malformed; only the first frame gets this grace.
		if r.first {
			r.first = false
			if rec.Metric == "" {
				continue
			}
		}
		if rec.Metric == "" {
			r.fail(fmt.Errorf("record at step %d has no metric name", rec.Step))
			return false
		}
		if rec.Step < 0 {
			r.fail(fmt.Errorf("record for metric %q has negative step %d", rec.Metric, rec.Step))
			return false
		}
		r.rec = rec
		return true
	}
}

// Record returns the record produced by the last successful Next.
func (r *EventReader) Record() EventRecord { return r.rec }

// Err returns nil or the *IngestError that terminated the scan.
func (r *EventReader) Err() error { return r.err }

// Close releases the underlying file. Safe to call more than once.
func (r *EventReader) Close() error { return r.close() }

func (r *EventReader) fail(err error) {
	r.err = &IngestError{Path: r.path, Err: err}
	r.close()
}

func (r *EventReader) close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	return r.file.Close()
}

// ReadEvents decodes a whole event file into memory.
func ReadEvents(ctx context.Context, path string) ([]EventRecord, error) {
	r, err := OpenEvents(ctx, path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var records []EventRecord
	for r.Next() {
		records = append(records, r.Record())
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	return records, nil
}
