package journal

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

// ErrNotFound is returned when a journal or batch does not exist.
var ErrNotFound = errors.New("journal: not found")

// Store persists encoded batches. A batch is named by the sequence
// number of its first record; List returns batch names in ascending
// order.
type Store interface {
	Put(ctx context.Context, journalID string, firstSeq uint64, batch []byte) error
	Get(ctx context.Context, journalID string, firstSeq uint64) ([]byte, error)
	List(ctx context.Context, journalID string) ([]uint64, error)
}

// Load reads every batch of a journal and returns its records in order.
func Load(ctx context.Context, store Store, journalID string) ([]Record, error) {
	seqs, err := store.List(ctx, journalID)
	if err != nil {
		return nil, err
	}
	if len(seqs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, journalID)
	}

	var records []Record
	for _, seq := range seqs {
		data, err := store.Get(ctx, journalID, seq)
		if err != nil {
			return nil, err
		}
		batch, err := DecodeBatch(data)
		if err != nil {
			return nil, fmt.Errorf("journal: batch %d of %s: %w", seq, journalID, err)
		}
		records = append(records, batch...)
	}
	return records, nil
}

// batchName is the object name of a batch. Zero padding keeps the
// lexical order of names equal to their numeric order.
func batchName(firstSeq uint64) string {
	return fmt.Sprintf("%020d.kjn", firstSeq)
}

func parseBatchName(name string) (uint64, bool) {
	base, ok := strings.CutSuffix(name, ".kjn")
	if !ok || len(base) != 20 {
		return 0, false
	}
	var seq uint64
	if _, err := fmt.Sscanf(base, "%d", &seq); err != nil {
		return 0, false
	}
	return seq, true
}

// MemoryStore keeps batches in memory.
type MemoryStore struct {
	mu       sync.RWMutex
	journals map[string]map[uint64][]byte
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{journals: make(map[string]map[uint64][]byte)}
}

// Put stores a copy of batch.
func (s *MemoryStore) Put(_ context.Context, journalID string, firstSeq uint64, batch []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.journals[journalID]
	if !ok {
		j = make(map[uint64][]byte)
		s.journals[journalID] = j
	}
	j[firstSeq] = slices.Clone(batch)
	return nil
}

// Get returns a stored batch.
func (s *MemoryStore) Get(_ context.Context, journalID string, firstSeq uint64) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.journals[journalID][firstSeq]
	if !ok {
		return nil, ErrNotFound
	}
	return slices.Clone(data), nil
}

// List returns the batches of a journal.
func (s *MemoryStore) List(_ context.Context, journalID string) ([]uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seqs := make([]uint64, 0, len(s.journals[journalID]))
	for seq := range s.journals[journalID] {
		seqs = append(seqs, seq)
	}
	slices.Sort(seqs)
	return seqs, nil
}

// FileStore keeps each journal in its own directory under dir.
type FileStore struct {
	dir string
}

// NewFileStore creates a FileStore rooted at dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) journalDir(journalID string) (string, error) {
	if journalID == "" || journalID != filepath.Base(journalID) || journalID == "." || journalID == ".." {
		return "", fmt.Errorf("journal: invalid journal id %q", journalID)
	}
	return filepath.Join(s.dir, journalID), nil
}

// Put writes batch atomically via a temp file and rename.
func (s *FileStore) Put(ctx context.Context, journalID string, firstSeq uint64, batch []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir, err := s.journalDir(journalID)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	path := filepath.Join(dir, batchName(firstSeq))
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, batch, 0644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// Get reads a batch file.
func (s *FileStore) Get(ctx context.Context, journalID string, firstSeq uint64) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir, err := s.journalDir(journalID)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(dir, batchName(firstSeq)))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return data, err
}

// List scans the journal directory. Files that are not batches are
// ignored.
func (s *FileStore) List(ctx context.Context, journalID string) ([]uint64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir, err := s.journalDir(journalID)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var seqs []uint64
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if seq, ok := parseBatchName(entry.Name()); ok {
			seqs = append(seqs, seq)
		}
	}
	slices.Sort(seqs)
	return seqs, nil
}
