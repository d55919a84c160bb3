package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/relayforge/orchestra/internal/errors"
	"github.com/relayforge/orchestra/internal/util"
)

const (
	recordPrefix = "work-"
	recordSuffix = ".json"

	contextFileName      = "session-context.json"
	dynamicStateFileName = "session-state.json"
)

// RecordPrefix and RecordSuffix are exported for the change-notification
// watcher, which needs to recognize session record filenames without
// depending on Store internals.
const (
	RecordPrefix = recordPrefix
	RecordSuffix = recordSuffix
)

// IDFromFilename extracts a session id from a record filename such as
// "work-42.json", returning ok=false for anything else in the directory.
func IDFromFilename(name string) (id string, ok bool) {
	if !strings.HasPrefix(name, recordPrefix) || !strings.HasSuffix(name, recordSuffix) {
		return "", false
	}
	return strings.TrimSuffix(strings.TrimPrefix(name, recordPrefix), recordSuffix), true
}

// Store persists session records as individually-named files in a
// per-project directory (§4.3). Writes are atomic (stage file + rename);
// per-id mutexes serialize concurrent save calls on the same id without
// blocking saves to distinct ids.
type Store struct {
	dir string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewStore returns a Store rooted at dir, creating it if necessary.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create sessions dir: %w", err)
	}
	return &Store{dir: dir, locks: make(map[string]*sync.Mutex)}, nil
}

// Dir returns the sessions directory this store manages.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) lockFor(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.locks[id]
	if !ok {
		m = &sync.Mutex{}
		s.locks[id] = m
	}
	return m
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, recordPrefix+id+recordSuffix)
}

// Save atomically persists record. The last writer at the rename boundary
// wins for concurrent saves to the same id.
func (s *Store) Save(record *Record) error {
	lock := s.lockFor(record.ID)
	lock.Lock()
	defer lock.Unlock()

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", record.ID, err)
	}
	return util.AtomicWriteFile(s.path(record.ID), data, 0o644)
}

// Load reads and parses the record for id. Fields missing from the file
// load as zero values; no legacy record shape is recognized or upgraded.
func (s *Store) Load(id string) (*Record, error) {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ErrSessionNotFound(id)
		}
		return nil, fmt.Errorf("read session %s: %w", id, err)
	}
	record, err := parseRecord(data)
	if err != nil {
		return nil, errors.ErrParseFailure(fmt.Sprintf("parse session %s", id), err)
	}
	return record, nil
}

// Exists reports whether a record exists for id.
func (s *Store) Exists(id string) bool {
	_, err := os.Stat(s.path(id))
	return err == nil
}

// Delete removes the record file for id. Deleting a record that does not
// exist is not an error.
func (s *Store) Delete(id string) error {
	lock := s.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	err := os.Remove(s.path(id))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}

// ListAll returns every session record in the store, sorted by issue
// number ascending (§4.2). Malformed individual records are skipped rather
// than failing the whole listing (§7: reads are permissive).
func (s *Store) ListAll() ([]*Record, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read sessions dir: %w", err)
	}

	var records []*Record
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasPrefix(name, recordPrefix) || !strings.HasSuffix(name, recordSuffix) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			continue
		}
		record, err := parseRecord(data)
		if err != nil {
			continue
		}
		records = append(records, record)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Issue.Number < records[j].Issue.Number
	})
	return records, nil
}

// ListActive returns non-terminal session records, sorted by issue number.
func (s *Store) ListActive() ([]*Record, error) {
	all, err := s.ListAll()
	if err != nil {
		return nil, err
	}
	active := all[:0]
	for _, r := range all {
		if !r.Status.IsTerminal() {
			active = append(active, r)
		}
	}
	return active, nil
}

// parseRecord unmarshals and upgrades a record from its persisted JSON
// form. Historical records that predate a field simply leave it at its
// zero value; no separate legacy schema is modeled since the on-disk
// shape has always been the canonical multi-field form in this
// implementation.
func parseRecord(data []byte) (*Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// WriteContext atomically writes the session context file inside
// worktreePath.
func WriteContext(worktreePath string, ctx *Context) error {
	data, err := json.MarshalIndent(ctx, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session context: %w", err)
	}
	return util.AtomicWriteFile(filepath.Join(worktreePath, contextFileName), data, 0o644)
}

// ReadContext reads the session context file from worktreePath.
func ReadContext(worktreePath string) (*Context, error) {
	data, err := os.ReadFile(filepath.Join(worktreePath, contextFileName))
	if err != nil {
		return nil, err
	}
	var ctx Context
	if err := json.Unmarshal(data, &ctx); err != nil {
		return nil, err
	}
	return &ctx, nil
}

// WriteDynamicState atomically writes the optional dynamic-state file
// inside worktreePath.
func WriteDynamicState(worktreePath string, status Status, forwardedMessage string) error {
	ds := DynamicState{
		Status:           status,
		ForwardedMessage: forwardedMessage,
		UpdatedAt:        time.Now(),
	}
	data, err := json.MarshalIndent(ds, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal dynamic state: %w", err)
	}
	return util.AtomicWriteFile(filepath.Join(worktreePath, dynamicStateFileName), data, 0o644)
}

// ReadDynamicState reads the dynamic-state file from worktreePath, if
// present.
func ReadDynamicState(worktreePath string) (*DynamicState, error) {
	data, err := os.ReadFile(filepath.Join(worktreePath, dynamicStateFileName))
	if err != nil {
		return nil, err
	}
	var ds DynamicState
	if err := json.Unmarshal(data, &ds); err != nil {
		return nil, err
	}
	return &ds, nil
}
