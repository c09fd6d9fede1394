// Package atomic stages output files next to their destinations and
// promotes them together, so a failed session never leaves partial output.
//
// Each transaction keeps a JSON journal under <root>/.redup-txn/<id>. The
// journal survives a crash and lets Recover finish or undo the session.
package atomic

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/substantialcattle5/redup/internal/constants"
	"github.com/substantialcattle5/redup/internal/logger"
)

var log = logger.GetLogger("atomic")

// JournalDirName is the directory under a transaction root holding journals.
const JournalDirName = ".redup-txn"

type State string

const (
	StatePending     State = "pending"
	StateCommitting  State = "committing"
	StateCommitted   State = "committed"
	StateRollingBack State = "rolling_back"
	StateRolledBack  State = "rolled_back"
	StateFailed      State = "failed"
)

// JournalEntry tracks one staged output.
type JournalEntry struct {
	FinalPath  string `json:"finalPath"`
	StagedPath string `json:"stagedPath"`
	BackupPath string `json:"backupPath,omitempty"`
	BackedUp   bool   `json:"backedUp,omitempty"`
	Promoted   bool   `json:"promoted,omitempty"`
	Size       int64  `json:"size,omitempty"`
}

type Journal struct {
	Version   int            `json:"version"`
	ID        string         `json:"id"`
	StartedAt time.Time      `json:"startedAt"`
	State     State          `json:"state"`
	Entries   []JournalEntry `json:"entries"`
	Metadata  map[string]any `json:"metadata,omitempty"`

	dir string
	mu  sync.Mutex
}

type Transaction struct{ j *Journal }

var ErrTxnState = errors.New("transaction in wrong state")

// Begin starts a transaction whose journal lives under root.
func Begin(root string, metadata map[string]any) (*Transaction, error) {
	id := time.Now().UTC().Format("20060102T150405Z") + "-" + uuid.NewString()[:8]
	dir := filepath.Join(root, JournalDirName, id)
	if err := os.MkdirAll(dir, constants.StandardDirPerms); err != nil {
		return nil, fmt.Errorf("create txn dir: %w", err)
	}
	j := &Journal{
		Version:   1,
		ID:        id,
		StartedAt: time.Now().UTC(),
		State:     StatePending,
		Entries:   []JournalEntry{},
		Metadata:  metadata,
		dir:       dir,
	}
	if err := j.persist(); err != nil {
		return nil, err
	}
	log.Debugf("began transaction %s under %s", id, root)
	return &Transaction{j: j}, nil
}

// ID returns the transaction identifier.
func (t *Transaction) ID() string { return t.j.ID }

// State returns the current state.
func (t *Transaction) State() State {
	t.j.mu.Lock()
	defer t.j.mu.Unlock()
	return t.j.State
}

// StageCreate opens a hidden staging file in finalPath's directory. The
// caller writes it, closes it, and Commit renames it to finalPath. An
// existing finalPath is kept as a backup until the commit completes.
func (t *Transaction) StageCreate(finalPath string) (*os.File, error) {
	abs, err := filepath.Abs(finalPath)
	if err != nil {
		return nil, fmt.Errorf("stage create path: %w", err)
	}

	t.j.mu.Lock()
	defer t.j.mu.Unlock()
	if t.j.State != StatePending {
		return nil, fmt.Errorf("%w: cannot stage in state %s", ErrTxnState, t.j.State)
	}
	for _, e := range t.j.Entries {
		if e.FinalPath == abs {
			return nil, fmt.Errorf("stage create: %s already staged", finalPath)
		}
	}

	dir, base := filepath.Split(abs)
	if err := os.MkdirAll(dir, constants.StandardDirPerms); err != nil {
		return nil, fmt.Errorf("stage create mkdir: %w", err)
	}
	f, err := os.CreateTemp(dir, "."+base+".*.partial")
	if err != nil {
		return nil, fmt.Errorf("stage create open: %w", err)
	}
	if err := f.Chmod(constants.StandardFilePerms); err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, fmt.Errorf("stage create chmod: %w", err)
	}

	t.j.Entries = append(t.j.Entries, JournalEntry{
		FinalPath:  abs,
		StagedPath: f.Name(),
		BackupPath: filepath.Join(dir, "."+base+"."+t.j.ID+".backup"),
	})
	if err := t.j.persistLocked(); err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, err
	}
	return f, nil
}

// Commit promotes every staged file. On failure it rolls back and returns
// the promotion error.
func (t *Transaction) Commit() error {
	t.j.mu.Lock()
	if t.j.State != StatePending && t.j.State != StateCommitting {
		state := t.j.State
		t.j.mu.Unlock()
		return fmt.Errorf("%w: cannot commit in state %s", ErrTxnState, state)
	}
	t.j.State = StateCommitting
	if err := t.j.persistLocked(); err != nil {
		t.j.mu.Unlock()
		return err
	}
	t.j.mu.Unlock()

	for i := range t.j.Entries {
		if err := t.promote(i); err != nil {
			return t.fail(err)
		}
	}

	for _, e := range t.j.Entries {
		if e.BackedUp {
			if err := os.Remove(e.BackupPath); err != nil && !os.IsNotExist(err) {
				log.Warnf("failed to remove backup %s: %v", e.BackupPath, err)
			}
		}
	}

	t.j.mu.Lock()
	t.j.State = StateCommitted
	t.j.mu.Unlock()
	log.Debugf("committed transaction %s (%d files)", t.j.ID, len(t.j.Entries))
	return t.j.discard()
}

func (t *Transaction) promote(i int) error {
	t.j.mu.Lock()
	defer t.j.mu.Unlock()
	e := &t.j.Entries[i]
	if e.Promoted {
		return nil
	}

	fi, err := os.Stat(e.StagedPath)
	if err != nil {
		return fmt.Errorf("commit stat %s: %w", e.FinalPath, err)
	}
	e.Size = fi.Size()

	if !e.BackedUp {
		if _, err := os.Lstat(e.FinalPath); err == nil {
			if err := os.Rename(e.FinalPath, e.BackupPath); err != nil {
				return fmt.Errorf("commit backup %s: %w", e.FinalPath, err)
			}
			e.BackedUp = true
			if err := t.j.persistLocked(); err != nil {
				return err
			}
		}
	}

	if err := os.Rename(e.StagedPath, e.FinalPath); err != nil {
		return fmt.Errorf("commit promote %s: %w", e.FinalPath, err)
	}
	e.Promoted = true
	return t.j.persistLocked()
}

// Rollback removes staged and promoted files and restores backups. Calling
// it on a finished transaction is a no-op.
func (t *Transaction) Rollback() error {
	t.j.mu.Lock()
	switch t.j.State {
	case StatePending, StateCommitting, StateFailed, StateRollingBack:
	default:
		t.j.mu.Unlock()
		return nil
	}
	t.j.State = StateRollingBack
	if err := t.j.persistLocked(); err != nil {
		t.j.mu.Unlock()
		return err
	}
	entries := append([]JournalEntry(nil), t.j.Entries...)
	t.j.mu.Unlock()

	var errs []error
	for _, e := range entries {
		if err := os.Remove(e.StagedPath); err != nil && !os.IsNotExist(err) {
			errs = append(errs, fmt.Errorf("remove staged %s: %w", e.StagedPath, err))
		}
		if e.Promoted {
			if err := os.Remove(e.FinalPath); err != nil && !os.IsNotExist(err) {
				errs = append(errs, fmt.Errorf("remove promoted %s: %w", e.FinalPath, err))
			}
		}
		if e.BackedUp {
			if err := os.Rename(e.BackupPath, e.FinalPath); err != nil && !os.IsNotExist(err) {
				errs = append(errs, fmt.Errorf("restore %s: %w", e.FinalPath, err))
			}
		}
	}
	if len(errs) > 0 {
		t.j.mu.Lock()
		t.j.State = StateFailed
		_ = t.j.persistLocked()
		t.j.mu.Unlock()
		return errors.Join(errs...)
	}

	t.j.mu.Lock()
	t.j.State = StateRolledBack
	t.j.mu.Unlock()
	log.Debugf("rolled back transaction %s", t.j.ID)
	return t.j.discard()
}

func (t *Transaction) fail(err error) error {
	t.j.mu.Lock()
	t.j.State = StateFailed
	_ = t.j.persistLocked()
	t.j.mu.Unlock()
	if rerr := t.Rollback(); rerr != nil {
		return errors.Join(err, rerr)
	}
	return err
}

// discard removes the journal directory, and the journal root when empty.
func (j *Journal) discard() error {
	if err := os.RemoveAll(j.dir); err != nil {
		return fmt.Errorf("remove txn dir: %w", err)
	}
	_ = os.Remove(filepath.Dir(j.dir))
	return nil
}

func (j *Journal) persist() error { j.mu.Lock(); defer j.mu.Unlock(); return j.persistLocked() }
func (j *Journal) persistLocked() error {
	data, err := json.MarshalIndent(j, "", "  ")
	if err != nil {
		return err
	}
	tmp := filepath.Join(j.dir, "journal.json.tmp")
	if err := os.WriteFile(tmp, data, constants.StandardFilePerms); err != nil {
		return err
	}
	return os.Rename(tmp, filepath.Join(j.dir, "journal.json"))
}
