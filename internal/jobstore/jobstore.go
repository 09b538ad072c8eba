// Package jobstore keeps a record of every job accepted by the manager in a
// local pebble database.
package jobstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cockroachdb/pebble/v2"
)

// ErrNotFound is returned by Get for unknown job IDs.
var ErrNotFound = errors.New("job not found")

type Kind string

const (
	KindCompress   Kind = "compress"
	KindDecompress Kind = "decompress"
)

// Job describes one accepted request.
type Job struct {
	ID         string    `json:"id"`
	Kind       Kind      `json:"kind"`
	Filename   string    `json:"filename"`
	Size       int64     `json:"size"`
	Checksum   uint64    `json:"checksum,omitempty"`
	InputPath  string    `json:"input_path"`
	ResultPath string    `json:"result_path"`
	CreatedAt  time.Time `json:"created_at"`
}

type Store struct {
	db *pebble.DB
}

// Open opens (creating if needed) the store in dir. opts may be nil.
func Open(dir string, opts *pebble.Options) (*Store, error) {
	if opts == nil {
		opts = &pebble.Options{}
	}
	db, err := pebble.Open(dir, opts)
	if err != nil {
		return nil, fmt.Errorf("cannot open job store %q: %w", dir, err)
	}
	return &Store{db: db}, nil
}

func jobKey(id string) []byte {
	return []byte("job/" + id)
}

// Put stores job, replacing any record with the same ID.
func (s *Store) Put(job Job) error {
	value, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("cannot encode job %s: %w", job.ID, err)
	}
	if err := s.db.Set(jobKey(job.ID), value, pebble.Sync); err != nil {
		return fmt.Errorf("cannot store job %s: %w", job.ID, err)
	}
	return nil
}

// Get returns the job stored under id.
func (s *Store) Get(id string) (Job, error) {
	value, closer, err := s.db.Get(jobKey(id))
	if errors.Is(err, pebble.ErrNotFound) {
		return Job{}, ErrNotFound
	}
	if err != nil {
		return Job{}, fmt.Errorf("cannot load job %s: %w", id, err)
	}
	defer closer.Close()

	var job Job
	if err := json.Unmarshal(value, &job); err != nil {
		return Job{}, fmt.Errorf("cannot decode job %s: %w", id, err)
	}
	return job, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
