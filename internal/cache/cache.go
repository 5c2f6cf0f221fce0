// Package cache persists prepared datasets as a directory holding a record
// count and a sequences artifact.
//
// A cache directory is only ever created by renaming a fully written temp
// directory into place, so its presence means both artifacts are complete.
package cache

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/giannimassi/ehrtok/pkg/model"
)

const (
	CountFile     = "count"
	SequencesFile = "sequences.bin"
)

// ErrMissingCache is returned when loading from a cache directory that does not exist.
var ErrMissingCache = errors.New("cache does not exist")

// CorruptError reports an unreadable cache artifact.
type CorruptError struct {
	Path string
	Err  error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("corrupt cache artifact %s: %v", e.Path, e.Err)
}

func (e *CorruptError) Unwrap() error { return e.Err }

// Exists reports whether a cache directory is present at dir.
func Exists(dir string) bool {
	info, err := os.Stat(dir)
	return err == nil && info.IsDir()
}

// Save persists count and token sequences at dir, replacing any previous cache.
func Save(dir string, count int, seqs []model.Sequence) error {
	return save(dir, count, encode(KindTokens, encodeSequences(seqs)))
}

// SaveSessions persists count and untokenized sessions at dir.
func SaveSessions(dir string, count int, sessions []model.Session) error {
	return save(dir, count, encode(KindSessions, encodeSessions(sessions)))
}

func save(dir string, count int, artifact []byte) error {
	parent := filepath.Dir(dir)
	if err := os.MkdirAll(parent, 0755); err != nil {
		return fmt.Errorf("create cache parent: %w", err)
	}
	tmp, err := os.MkdirTemp(parent, "."+filepath.Base(dir)+".tmp-")
	if err != nil {
		return fmt.Errorf("create cache temp dir: %w", err)
	}
	defer os.RemoveAll(tmp)

	// Sequences first, count last.
	if err := writeSynced(filepath.Join(tmp, SequencesFile), artifact); err != nil {
		return fmt.Errorf("write sequences: %w", err)
	}
	if err := writeSynced(filepath.Join(tmp, CountFile), []byte(strconv.Itoa(count)+"\n")); err != nil {
		return fmt.Errorf("write count: %w", err)
	}

	if err := Invalidate(dir); err != nil {
		return err
	}
	if err := os.Rename(tmp, dir); err != nil {
		return fmt.Errorf("publish cache: %w", err)
	}
	return nil
}

func writeSynced(path string, data []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Invalidate removes the cache at dir. A missing cache is not an error.
func Invalidate(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove cache: %w", err)
	}
	return nil
}

// LoadCount returns the persisted record count. An empty or unparsable count
// artifact yields 0 without error.
func LoadCount(dir string) (int, error) {
	if !Exists(dir) {
		return 0, ErrMissingCache
	}
	path := filepath.Join(dir, CountFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, &CorruptError{Path: path, Err: err}
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || n < 0 {
		return 0, nil
	}
	return n, nil
}

// LoadSequences returns every token sequence stored at dir.
func LoadSequences(dir string) ([]model.Sequence, error) {
	path, payload, err := load(dir, KindTokens)
	if err != nil {
		return nil, err
	}
	seqs, err := decodeSequences(payload)
	if err != nil {
		return nil, &CorruptError{Path: path, Err: err}
	}
	return seqs, nil
}

// LoadSessions returns every untokenized session stored at dir.
func LoadSessions(dir string) ([]model.Session, error) {
	path, payload, err := load(dir, KindSessions)
	if err != nil {
		return nil, err
	}
	sessions, err := decodeSessions(payload)
	if err != nil {
		return nil, &CorruptError{Path: path, Err: err}
	}
	return sessions, nil
}

// StoredKind reports what the sequences artifact at dir holds.
func StoredKind(dir string) (Kind, error) {
	if !Exists(dir) {
		return 0, ErrMissingCache
	}
	path := filepath.Join(dir, SequencesFile)
	f, err := os.Open(path)
	if err != nil {
		return 0, &CorruptError{Path: path, Err: err}
	}
	defer f.Close()
	header := make([]byte, headerLen)
	if _, err := io.ReadFull(f, header); err != nil {
		return 0, &CorruptError{Path: path, Err: err}
	}
	if !bytes.Equal(header[:4], magic) {
		return 0, &CorruptError{Path: path, Err: errors.New("bad magic")}
	}
	return Kind(header[5]), nil
}

func load(dir string, kind Kind) (string, []byte, error) {
	if !Exists(dir) {
		return "", nil, ErrMissingCache
	}
	path := filepath.Join(dir, SequencesFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return path, nil, &CorruptError{Path: path, Err: err}
	}
	payload, err := decode(data, kind)
	if err != nil {
		return path, nil, &CorruptError{Path: path, Err: err}
	}
	return path, payload, nil
}
