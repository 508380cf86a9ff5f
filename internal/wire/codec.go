// Package wire implements the length-prefixed envelope framing and the
// self-describing Datum/Query binary encoding described by spec.md §4.2
// and §6.
package wire

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/lychee-technology/docbase"
)

// MaxFrameBytes bounds a single frame body so a corrupt or hostile length
// prefix cannot force an unbounded allocation (spec.md §7: framing
// violations are fatal to the connection).
const MaxFrameBytes = 64 << 20

// WriteFrame writes env as a 4-byte big-endian length prefix followed by
// its encoded body (spec.md §4.2).
func WriteFrame(w io.Writer, env *docbase.Envelope) error {
	var body bytes.Buffer
	if err := EncodeEnvelope(&body, env); err != nil {
		return err
	}
	if body.Len() > MaxFrameBytes {
		return docbase.NewInternalError("encoded frame exceeds maximum size", nil).
			WithDetail("bytes", body.Len())
	}
	var prefix [4]byte
	binary.BigEndian.PutUint32(prefix[:], uint32(body.Len()))
	if _, err := w.Write(prefix[:]); err != nil {
		return err
	}
	_, err := w.Write(body.Bytes())
	return err
}

// ReadFrame reads a single length-prefixed frame and decodes its Envelope.
func ReadFrame(r *bufio.Reader) (*docbase.Envelope, error) {
	var prefix [4]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(prefix[:])
	if n > MaxFrameBytes {
		return nil, (&docbase.DBError{
			Type:    docbase.ErrorTypeFraming,
			Code:    docbase.ErrCodeFrameTooLarge,
			Message: fmt.Sprintf("frame of %d bytes exceeds maximum %d", n, MaxFrameBytes),
		})
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, err
	}
	return DecodeEnvelope(bytes.NewReader(body))
}

// --- primitives -------------------------------------------------------

func writeUint8(w *bytes.Buffer, v uint8) { w.WriteByte(v) }

func writeUint32(w *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.Write(b[:])
}

func writeUint64(w *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.Write(b[:])
}

func writeInt64(w *bytes.Buffer, v int64)     { writeUint64(w, uint64(v)) }
func writeFloat64(w *bytes.Buffer, v float64) { writeUint64(w, math.Float64bits(v)) }

func writeBytes(w *bytes.Buffer, b []byte) {
	writeUint32(w, uint32(len(b)))
	w.Write(b)
}

func writeString(w *bytes.Buffer, s string) { writeBytes(w, []byte(s)) }

func writeBool(w *bytes.Buffer, v bool) {
	if v {
		w.WriteByte(1)
	} else {
		w.WriteByte(0)
	}
}

type byteReader struct {
	r io.Reader
}

func (br byteReader) readUint8() (uint8, error) {
	var b [1]byte
	if _, err := io.ReadFull(br.r, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

func (br byteReader) readUint32() (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(br.r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

func (br byteReader) readUint64() (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(br.r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

func (br byteReader) readInt64() (int64, error) {
	v, err := br.readUint64()
	return int64(v), err
}

func (br byteReader) readFloat64() (float64, error) {
	v, err := br.readUint64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(v), nil
}

func (br byteReader) readBytes() ([]byte, error) {
	n, err := br.readUint32()
	if err != nil {
		return nil, err
	}
	if n > MaxFrameBytes {
		return nil, fmt.Errorf("wire: byte field of %d exceeds frame cap", n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(br.r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func (br byteReader) readString() (string, error) {
	b, err := br.readBytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (br byteReader) readBool() (bool, error) {
	b, err := br.readUint8()
	return b != 0, err
}
