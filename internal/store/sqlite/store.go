package sqlite

import (
	"errors"

	"github.com/rs/zerolog"
)

// Store pairs a Writer and a Reader on the same database file.
type Store struct {
	*Writer
	*Reader
}

// Open creates the schema at path and returns a read/write Store.
func Open(path string, log zerolog.Logger) (*Store, error) {
	w, err := New(WriterConfig{DBPath: path, Logger: log})
	if err != nil {
		return nil, err
	}
	r, err := NewReader(path)
	if err != nil {
		w.Close()
		return nil, err
	}
	return &Store{Writer: w, Reader: r}, nil
}

// Close closes both connections.
func (s *Store) Close() error {
	return errors.Join(s.Reader.Close(), s.Writer.Close())
}
