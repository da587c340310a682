package store

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"colsense/internal/train"
)

const runsBucket = "training_runs"

// Registry keeps the history of training runs in a BoltDB file so a
// retrained model can always be compared against its predecessors.
// Operations are safe for concurrent use.
type Registry struct {
	db *bbolt.DB
}

// OpenRegistry opens (or creates) the run registry under dataPath.
func OpenRegistry(dataPath string) (*Registry, error) {
	dbPath := filepath.Join(dataPath, "colsense-runs.db")

	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("registry: open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(runsBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("registry: create bucket: %w", err)
	}

	return &Registry{db: db}, nil
}

// Close releases the underlying database.
func (r *Registry) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Record stores a training report keyed by completion time and run ID,
// so listing returns runs in chronological order.
func (r *Registry) Record(report *train.Report) error {
	return r.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(runsBucket))

		data, err := json.Marshal(report)
		if err != nil {
			return fmt.Errorf("registry: marshal report: %w", err)
		}

		key := fmt.Sprintf("%020d_%s", report.TrainedAt.UnixNano(), report.RunID)
		return b.Put([]byte(key), data)
	})
}

// Get returns the report for a run ID, or nil when unknown.
func (r *Registry) Get(runID string) (*train.Report, error) {
	var found *train.Report
	err := r.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(runsBucket)).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var rep train.Report
			if err := json.Unmarshal(v, &rep); err != nil {
				continue // skip malformed records
			}
			if rep.RunID == runID {
				found = &rep
				return nil
			}
		}
		return nil
	})
	return found, err
}

// List returns all recorded reports in chronological order.
func (r *Registry) List() ([]train.Report, error) {
	var reports []train.Report
	err := r.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(runsBucket)).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var rep train.Report
			if err := json.Unmarshal(v, &rep); err != nil {
				continue
			}
			reports = append(reports, rep)
		}
		return nil
	})
	return reports, err
}
