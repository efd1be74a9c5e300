// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"bytes"
	"encoding/json"
)

// =============================================================================
// LINE DECODER
// =============================================================================

// Record is the part of one NDJSON chat record the session cares about.
type Record struct {
	// Content is the message.content fragment, possibly empty.
	Content string
	Done    bool
	// Error is set when the server reported an error inside the stream.
	Error string
}

// LineDecoder splits an NDJSON byte stream into records. Bytes after the last
// newline are kept until the next Feed, so a record split across chunks is
// parsed once it is complete. Splitting on '\n' at the byte level is safe for
// UTF-8 because the newline byte never occurs inside a multi-byte sequence.
//
// A LineDecoder is not safe for concurrent use.
type LineDecoder struct {
	buf     []byte
	skipped int
}

// NewLineDecoder creates an empty decoder.
func NewLineDecoder() *LineDecoder {
	return &LineDecoder{}
}

// Feed appends chunk and returns the records of every complete line.
// Blank and malformed lines are skipped.
func (d *LineDecoder) Feed(chunk []byte) []Record {
	d.buf = append(d.buf, chunk...)

	var records []Record
	for {
		i := bytes.IndexByte(d.buf, '\n')
		if i < 0 {
			break
		}
		line := d.buf[:i]
		if rec, ok := d.parse(line); ok {
			records = append(records, rec)
		}
		d.buf = d.buf[i+1:]
	}

	// Compact so a long stream does not pin every chunk it has seen.
	if len(d.buf) == 0 {
		d.buf = nil
	} else if cap(d.buf) > 4*len(d.buf)+4096 {
		d.buf = append([]byte(nil), d.buf...)
	}
	return records
}

// Flush parses whatever partial line remains. Call it once at end of stream.
func (d *LineDecoder) Flush() []Record {
	line := d.buf
	d.buf = nil
	if rec, ok := d.parse(line); ok {
		return []Record{rec}
	}
	return nil
}

// Pending returns the number of buffered bytes not yet terminated by a newline.
func (d *LineDecoder) Pending() int {
	return len(d.buf)
}

// Skipped returns how many non-blank lines failed to parse.
func (d *LineDecoder) Skipped() int {
	return d.skipped
}

func (d *LineDecoder) parse(line []byte) (Record, bool) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return Record{}, false
	}

	var resp ChatResponse
	if err := json.Unmarshal(line, &resp); err != nil {
		d.skipped++
		return Record{}, false
	}

	rec := Record{Done: resp.Done, Error: resp.Error}
	if resp.Message != nil {
		rec.Content = resp.Message.Content
	}
	return rec, true
}

// Concat joins the content of records in order.
func Concat(records []Record) string {
	var b bytes.Buffer
	for _, r := range records {
		b.WriteString(r.Content)
	}
	return b.String()
}
