package atomic

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

type RecoveryResult struct {
	ResumedCommits int
	RolledBack     int
	Purged         int
	Errors         []error
}

// Recover finishes transactions under root that were interrupted. A session
// that reached the commit phase is rolled forward; anything earlier never
// produced verified output and is rolled back.
func Recover(root string) (*RecoveryResult, error) {
	txnRoot := filepath.Join(root, JournalDirName)
	res := &RecoveryResult{}
	entries, err := os.ReadDir(txnRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return res, nil
		}
		return res, fmt.Errorf("read txn root: %w", err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(txnRoot, e.Name())
		jpath := filepath.Join(dir, "journal.json")
		data, err := os.ReadFile(jpath)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Errorf("read %s: %w", jpath, err))
			continue
		}
		var j Journal
		if err := json.Unmarshal(data, &j); err != nil {
			res.Errors = append(res.Errors, fmt.Errorf("unmarshal %s: %w", jpath, err))
			continue
		}
		j.dir = dir
		txn := &Transaction{j: &j}
		switch j.State {
		case StateCommitted, StateRolledBack:
			if err := j.discard(); err != nil {
				res.Errors = append(res.Errors, err)
				continue
			}
			res.Purged++
		case StateCommitting:
			if err := txn.Commit(); err != nil {
				res.Errors = append(res.Errors, fmt.Errorf("resume commit %s: %w", j.ID, err))
				continue
			}
			res.ResumedCommits++
		case StatePending, StateFailed, StateRollingBack:
			if err := txn.Rollback(); err != nil {
				res.Errors = append(res.Errors, fmt.Errorf("rollback %s: %w", j.ID, err))
				continue
			}
			res.RolledBack++
		}
	}
	if len(res.Errors) == 0 {
		_ = os.Remove(txnRoot)
	}
	return res, nil
}
