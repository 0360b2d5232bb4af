// Package history keeps per-collection conversation logs. Each collection
// owns an append-only, totally ordered sequence of turns, persisted as one
// JSON file per collection under the store root.
package history

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultWindow is the number of most recent turns handed to the
// generation model as context.
const DefaultWindow = 20

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Turn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Store persists conversation logs. With an empty path it keeps logs in
// memory only. Safe for concurrent use across collections; operations on
// the same collection are serialized.
type Store struct {
	path string
	log  *zap.Logger

	mu   sync.Mutex
	logs map[string][]Turn
}

func NewStore(path string) (*Store, error) {
	if path != "" {
		if err := os.MkdirAll(path, 0o755); err != nil {
			return nil, err
		}
	}

	return &Store{
		path: path,
		log: zap.L().With(
			zap.String("store", "history"),
		),
		logs: make(map[string][]Turn),
	}, nil
}

func (s *Store) Append(collection string, turns ...Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.load(collection)

	log := append(prev, turns...)
	s.logs[collection] = log

	if err := s.persist(collection, log); err != nil {
		// keep memory and disk consistent so a failed exchange never
		// enters later windows
		s.logs[collection] = prev
		return err
	}

	return nil
}

// Window returns the last n turns, oldest first.
func (s *Store) Window(collection string, n int) ([]Turn, error) {
	if n <= 0 {
		n = DefaultWindow
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	log := s.load(collection)
	if len(log) > n {
		log = log[len(log)-n:]
	}

	turns := make([]Turn, len(log))
	copy(turns, log)

	return turns, nil
}

// All returns the full log, oldest first.
func (s *Store) All(collection string) ([]Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := s.load(collection)

	turns := make([]Turn, len(log))
	copy(turns, log)

	return turns, nil
}

// Clear empties the log but keeps the collection addressable.
func (s *Store) Clear(collection string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logs[collection] = []Turn{}

	return s.persist(collection, []Turn{})
}

// Delete removes the log entirely. Called when its collection is deleted.
func (s *Store) Delete(collection string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.logs, collection)

	if s.path == "" {
		return nil
	}

	err := os.Remove(s.file(collection))
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	return nil
}

// load returns the in-memory log for collection, reading it from disk on
// first access. A missing or corrupt file yields an empty log; corruption
// in one collection never affects another.
func (s *Store) load(collection string) []Turn {
	if log, ok := s.logs[collection]; ok {
		return log
	}

	if s.path == "" {
		return nil
	}

	data, err := os.ReadFile(s.file(collection))
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn("failed to read history log",
				zap.String("collection", collection),
				zap.Error(err),
			)
		}

		s.logs[collection] = []Turn{}
		return nil
	}

	var log []Turn
	if err := json.Unmarshal(data, &log); err != nil {
		s.log.Warn("corrupt history log, treating as empty",
			zap.String("collection", collection),
			zap.Error(err),
		)

		log = []Turn{}
	}

	s.logs[collection] = log
	return log
}

func (s *Store) persist(collection string, log []Turn) error {
	if s.path == "" {
		return nil
	}

	data, err := json.Marshal(log)
	if err != nil {
		return err
	}

	tmp := s.file(collection) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}

	return os.Rename(tmp, s.file(collection))
}

func (s *Store) file(collection string) string {
	return filepath.Join(s.path, collection+".json")
}
