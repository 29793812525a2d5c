// Package agg turns raw per-worker telemetry files from distributed training
// runs into step-aligned metric tables, per-run summaries, and cross-run
// experiment reports.
package agg

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"time"
)

// EventRecord is one scalar observation emitted by a worker: a metric value
// tagged with the logical training step and the producer's wall clock.
// The same step may appear many times in a raw stream (multiple workers,
// multiple metrics); ordering and uniqueness are established later by the
// table builder.
type EventRecord struct {
	Step     int64   `json:"step"`
	WallTime float64 `json:"wall_time"` // unix seconds, producer-local clock
	Metric   string  `json:"metric"`
	Value    float64 `json:"value"`
}

// fileHeader is the first record of an event file. It carries no metrics and
// is skipped by the reader.
type fileHeader struct {
	Version  int     `json:"version"`
	Producer string  `json:"producer,omitempty"`
	Created  float64 `json:"created,omitempty"`
}

const codecVersion = 1

// maxFramePayload bounds one record's payload. Real records are tens of
// bytes; anything larger means the length field itself is corrupt.
const maxFramePayload = 1 << 20

// EventFileSuffix is the filename suffix run producers use for event logs.
const EventFileSuffix = ".events"

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// Frame format: [payload len uint32 LE][CRC-32C of payload uint32 LE][payload].
func writeFrame(w io.Writer, payload []byte) error {
	var head [8]byte
	binary.LittleEndian.PutUint32(head[0:4], uint32(len(payload)))
	binary.LittleEndian.PutUint32(head[4:8], crc32.Checksum(payload, castagnoli))
	if _, err := w.Write(head[:]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

// readFrame returns io.EOF only on a clean end of stream (no partial frame).
// A frame cut short mid-way surfaces as io.ErrUnexpectedEOF.
func readFrame(r io.Reader) ([]byte, error) {
	var head [8]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		if err == io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("truncated frame header: %w", err)
		}
		return nil, err
	}
	length := binary.LittleEndian.Uint32(head[0:4])
	sum := binary.LittleEndian.Uint32(head[4:8])
	if length > maxFramePayload {
		return nil, fmt.Errorf("frame length %d exceeds limit", length)
	}
	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("truncated frame payload: %w", err)
	}
	if got := crc32.Checksum(payload, castagnoli); got != sum {
		return nil, fmt.Errorf("payload checksum mismatch: got %08x, want %08x", got, sum)
	}
	return payload, nil
}

// EventWriter appends EventRecords to an event file. The pipeline itself
// never writes source logs; this is the producer side of the format, used by
// run workers and by tests.
type EventWriter struct {
	file *os.File
	buf  *bufio.Writer
}

// NewEventWriter creates the file at path and writes the header record.
func NewEventWriter(path, producer string) (*EventWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating event file: %w", err)
	}
	w := &EventWriter{file: f, buf: bufio.NewWriter(f)}
	header := fileHeader{
		Version:  codecVersion,
		Producer: producer,
		Created:  float64(time.Now().UnixMicro()) / 1e6,
	}
	payload, err := json.Marshal(header)
	if err != nil {
		f.Close()
		return nil, err
	}
	if err := writeFrame(w.buf, payload); err != nil {
		f.Close()
		return nil, fmt.Errorf("writing event file header: %w", err)
	}
	return w, nil
}

// Append writes one record.
func (w *EventWriter) Append(rec EventRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return writeFrame(w.buf, payload)
}

// Close flushes buffered frames and closes the file.
func (w *EventWriter) Close() error {
	if err := w.buf.Flush(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}
