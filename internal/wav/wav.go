// SPDX-License-Identifier: MIT

// Package wav writes and validates the canonical audio artifact: a 44-byte
// PCM header followed by raw samples. The two size fields are written as
// placeholders at creation and patched in place on finalize, so a header is
// only transiently inconsistent while a recording is live.
package wav

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// Canonical format: PCM, mono, 16 kHz, 16-bit.
const (
	HeaderSize    = 44
	NumChannels   = 1
	SampleRate    = 16000
	BitsPerSample = 16

	byteRate   = SampleRate * NumChannels * BitsPerSample / 8
	blockAlign = NumChannels * BitsPerSample / 8

	riffSizeOffset = 4
	dataSizeOffset = 40
)

var (
	// ErrBadHeader is returned when the artifact header is malformed.
	ErrBadHeader = errors.New("malformed WAV header")
	// ErrTruncated is returned when the declared data size exceeds the
	// bytes actually present after the header.
	ErrTruncated = errors.New("WAV data truncated")
)

// Writer streams PCM samples into a WAV file. Not safe for concurrent use.
type Writer struct {
	f        *os.File
	dataSize uint32
}

// Create opens path for writing and lays down a header with placeholder
// size fields.
func Create(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create WAV file: %w", err)
	}
	w := &Writer{f: f}
	if err := w.writeHeader(); err != nil {
		_ = f.Close()
		return nil, err
	}
	return w, nil
}

func (w *Writer) writeHeader() error {
	var hdr [HeaderSize]byte
	copy(hdr[0:4], "RIFF")
	binary.LittleEndian.PutUint32(hdr[4:8], HeaderSize-8+w.dataSize)
	copy(hdr[8:12], "WAVE")
	copy(hdr[12:16], "fmt ")
	binary.LittleEndian.PutUint32(hdr[16:20], 16) // fmt chunk size
	binary.LittleEndian.PutUint16(hdr[20:22], 1)  // PCM
	binary.LittleEndian.PutUint16(hdr[22:24], NumChannels)
	binary.LittleEndian.PutUint32(hdr[24:28], SampleRate)
	binary.LittleEndian.PutUint32(hdr[28:32], byteRate)
	binary.LittleEndian.PutUint16(hdr[32:34], blockAlign)
	binary.LittleEndian.PutUint16(hdr[34:36], BitsPerSample)
	copy(hdr[36:40], "data")
	binary.LittleEndian.PutUint32(hdr[40:44], w.dataSize)

	if _, err := w.f.WriteAt(hdr[:], 0); err != nil {
		return fmt.Errorf("write WAV header: %w", err)
	}
	return nil
}

// Write appends raw sample bytes after the header.
func (w *Writer) Write(p []byte) (int, error) {
	n, err := w.f.WriteAt(p, int64(HeaderSize)+int64(w.dataSize))
	w.dataSize += uint32(n)
	if err != nil {
		return n, fmt.Errorf("write WAV data: %w", err)
	}
	return n, nil
}

// DataSize returns the number of sample bytes written so far.
func (w *Writer) DataSize() uint32 {
	return w.dataSize
}

// Close patches the header size fields with the true totals and closes the
// file. The artifact is canonical only after Close returns.
func (w *Writer) Close() error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], HeaderSize-8+w.dataSize)
	if _, err := w.f.WriteAt(buf[:], riffSizeOffset); err != nil {
		_ = w.f.Close()
		return fmt.Errorf("patch RIFF size: %w", err)
	}
	binary.LittleEndian.PutUint32(buf[:], w.dataSize)
	if _, err := w.f.WriteAt(buf[:], dataSizeOffset); err != nil {
		_ = w.f.Close()
		return fmt.Errorf("patch data size: %w", err)
	}
	if err := w.f.Sync(); err != nil {
		_ = w.f.Close()
		return fmt.Errorf("sync WAV file: %w", err)
	}
	return w.f.Close()
}

// Validate checks that path carries a well-formed header and that the
// declared data size does not exceed the trailing bytes.
func Validate(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	var hdr [HeaderSize]byte
	if _, err := io.ReadFull(f, hdr[:]); err != nil {
		return fmt.Errorf("%w: %v", ErrBadHeader, err)
	}
	if string(hdr[0:4]) != "RIFF" || string(hdr[8:12]) != "WAVE" {
		return fmt.Errorf("%w: missing RIFF/WAVE tags", ErrBadHeader)
	}
	if string(hdr[36:40]) != "data" {
		return fmt.Errorf("%w: missing data tag", ErrBadHeader)
	}

	info, err := f.Stat()
	if err != nil {
		return err
	}
	declared := binary.LittleEndian.Uint32(hdr[40:44])
	actual := info.Size() - HeaderSize
	if actual < 0 || int64(declared) > actual {
		return fmt.Errorf("%w: declared %d bytes, %d present", ErrTruncated, declared, actual)
	}
	return nil
}
