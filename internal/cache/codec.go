package cache

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"
	"github.com/giannimassi/ehrtok/pkg/model"
	"github.com/klauspost/compress/zstd"
)

// Kind identifies what a sequences artifact holds.
type Kind byte

const (
	KindTokens   Kind = 1 // tokenized, chunked sequences
	KindSessions Kind = 2 // bucketed sessions, before tokenization
)

func (k Kind) String() string {
	switch k {
	case KindTokens:
		return "tokens"
	case KindSessions:
		return "sessions"
	}
	return fmt.Sprintf("kind(%d)", byte(k))
}

const formatVersion = 1

var magic = []byte("ETSQ")

const headerLen = 6 // magic, version, kind

var errTruncated = errors.New("truncated payload")

var (
	encoder, _ = zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1))
	decoder, _ = zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
)

// encode frames payload as header | zstd(payload | xxhash64(payload)).
func encode(kind Kind, payload []byte) []byte {
	body := binary.LittleEndian.AppendUint64(payload, xxhash.Sum64(payload))
	header := make([]byte, 0, headerLen)
	header = append(header, magic...)
	header = append(header, formatVersion, byte(kind))
	return encoder.EncodeAll(body, header)
}

// decode validates the frame and returns the payload.
func decode(data []byte, want Kind) ([]byte, error) {
	if len(data) < headerLen || !bytes.Equal(data[:4], magic) {
		return nil, errors.New("bad magic")
	}
	if data[4] != formatVersion {
		return nil, fmt.Errorf("unsupported format version %d", data[4])
	}
	if got := Kind(data[5]); got != want {
		return nil, fmt.Errorf("artifact holds %s, want %s", got, want)
	}
	body, err := decoder.DecodeAll(data[headerLen:], nil)
	if err != nil {
		return nil, fmt.Errorf("decompress: %w", err)
	}
	if len(body) < 8 {
		return nil, errTruncated
	}
	payload, sum := body[:len(body)-8], binary.LittleEndian.Uint64(body[len(body)-8:])
	if xxhash.Sum64(payload) != sum {
		return nil, errors.New("checksum mismatch")
	}
	return payload, nil
}

func encodeSequences(seqs []model.Sequence) []byte {
	var b []byte
	b = binary.AppendUvarint(b, uint64(len(seqs)))
	for _, seq := range seqs {
		b = binary.AppendUvarint(b, uint64(len(seq)))
		for _, chunk := range seq {
			b = binary.AppendUvarint(b, uint64(len(chunk)))
			for _, tok := range chunk {
				b = binary.AppendVarint(b, int64(tok))
			}
		}
	}
	return b
}

func decodeSequences(payload []byte) ([]model.Sequence, error) {
	r := &reader{buf: payload}
	n := r.length()
	seqs := make([]model.Sequence, 0, n)
	for i := 0; i < n && r.err == nil; i++ {
		chunks := r.length()
		seq := make(model.Sequence, 0, chunks)
		for c := 0; c < chunks && r.err == nil; c++ {
			size := r.length()
			chunk := make([]int, 0, size)
			for k := 0; k < size && r.err == nil; k++ {
				chunk = append(chunk, int(r.varint()))
			}
			seq = append(seq, chunk)
		}
		seqs = append(seqs, seq)
	}
	return seqs, r.done()
}

func encodeSessions(sessions []model.Session) []byte {
	var b []byte
	b = binary.AppendUvarint(b, uint64(len(sessions)))
	for _, s := range sessions {
		b = binary.AppendUvarint(b, uint64(len(s)))
		for _, e := range s {
			b = binary.AppendVarint(b, int64(e.User))
			b = binary.LittleEndian.AppendUint64(b, math.Float64bits(e.Delta))
			b = binary.AppendVarint(b, int64(e.Bucket))
			b = binary.AppendUvarint(b, uint64(len(e.Fields)))
			for _, f := range e.Fields {
				b = binary.AppendUvarint(b, uint64(len(f)))
				b = append(b, f...)
			}
		}
	}
	return b
}

func decodeSessions(payload []byte) ([]model.Session, error) {
	r := &reader{buf: payload}
	n := r.length()
	sessions := make([]model.Session, 0, n)
	for i := 0; i < n && r.err == nil; i++ {
		rows := r.length()
		s := make(model.Session, 0, rows)
		for j := 0; j < rows && r.err == nil; j++ {
			e := model.PreparedEvent{
				User:   int(r.varint()),
				Delta:  math.Float64frombits(r.fixed64()),
				Bucket: int(r.varint()),
			}
			nf := r.length()
			e.Fields = make([]string, 0, nf)
			for k := 0; k < nf && r.err == nil; k++ {
				e.Fields = append(e.Fields, r.str())
			}
			s = append(s, e)
		}
		sessions = append(sessions, s)
	}
	return sessions, r.done()
}

// reader decodes a payload and remembers the first error.
type reader struct {
	buf []byte
	err error
}

func (r *reader) uvarint() uint64 {
	if r.err != nil {
		return 0
	}
	v, n := binary.Uvarint(r.buf)
	if n <= 0 {
		r.err = errTruncated
		return 0
	}
	r.buf = r.buf[n:]
	return v
}

func (r *reader) varint() int64 {
	if r.err != nil {
		return 0
	}
	v, n := binary.Varint(r.buf)
	if n <= 0 {
		r.err = errTruncated
		return 0
	}
	r.buf = r.buf[n:]
	return v
}

// length reads a count and rejects values larger than the remaining bytes,
// since every counted element takes at least one byte.
func (r *reader) length() int {
	v := r.uvarint()
	if r.err == nil && v > uint64(len(r.buf)) {
		r.err = fmt.Errorf("length %d exceeds %d remaining bytes", v, len(r.buf))
		return 0
	}
	return int(v)
}

func (r *reader) fixed64() uint64 {
	if r.err != nil {
		return 0
	}
	if len(r.buf) < 8 {
		r.err = errTruncated
		return 0
	}
	v := binary.LittleEndian.Uint64(r.buf)
	r.buf = r.buf[8:]
	return v
}

func (r *reader) str() string {
	n := r.length()
	if r.err != nil {
		return ""
	}
	s := string(r.buf[:n])
	r.buf = r.buf[n:]
	return s
}

func (r *reader) done() error {
	if r.err != nil {
		return r.err
	}
	if len(r.buf) != 0 {
		return fmt.Errorf("%d trailing bytes", len(r.buf))
	}
	return nil
}
