// Package watchlist remembers the last recommendation seen for every
// symbol and mode so that alerts fire only when a recommendation changes.
//
// State lives in a BoltDB file so restarts do not re-alert on picks that
// were already announced.
package watchlist

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.etcd.io/bbolt"

	"PickSentinel/internal/model"
)

const labelsBucket = "labels"

// ErrClosed is returned by operations on a closed Tracker.
var ErrClosed = errors.New("watchlist: tracker closed")

// Change describes a recommendation transition for one symbol.
type Change struct {
	Mode     string               `json:"mode"`
	Symbol   string               `json:"symbol"`
	Previous string               `json:"previous"`
	Current  string               `json:"current"`
	Pick     model.ClassifiedPick `json:"pick"`
	At       time.Time            `json:"at"`
}

// Cleared reports whether the change moved a symbol back to neutral.
func (c Change) Cleared() bool { return c.Current == "" }

type entry struct {
	Label     string    `json:"label"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Tracker persists the last label per mode and symbol.
type Tracker struct {
	mu sync.Mutex
	db *bbolt.DB
}

// Open opens (or creates) the state database at path.
func Open(path string) (*Tracker, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create state dir: %w", err)
		}
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open state db: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(labelsBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create labels bucket: %w", err)
	}
	return &Tracker{db: db}, nil
}

// Close closes the state database.
func (t *Tracker) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.db == nil {
		return nil
	}
	err := t.db.Close()
	t.db = nil
	return err
}

func key(mode, symbol string) []byte {
	return []byte(strings.ToLower(mode) + "/" + strings.ToUpper(symbol))
}

// Observe records the recommendation of cp and reports whether it differs
// from the last one seen. A symbol seen for the first time without a signal
// is not a change.
func (t *Tracker) Observe(cp model.ClassifiedPick) (Change, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.db == nil {
		return Change{}, false, ErrClosed
	}

	now := cp.EvaluatedAt
	if now.IsZero() {
		now = time.Now()
	}
	ch := Change{
		Mode:    cp.Mode,
		Symbol:  cp.Pick.Symbol,
		Current: cp.Recommendation,
		Pick:    cp,
		At:      now,
	}
	changed := false

	err := t.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(labelsBucket))
		k := key(cp.Mode, cp.Pick.Symbol)

		raw := b.Get(k)
		if raw == nil {
			changed = cp.Recommendation != ""
		} else {
			var prev entry
			if err := json.Unmarshal(raw, &prev); err != nil {
				return fmt.Errorf("decode state %s: %w", k, err)
			}
			ch.Previous = prev.Label
			changed = prev.Label != cp.Recommendation
		}
		if raw != nil && !changed {
			return nil
		}

		data, err := json.Marshal(entry{Label: cp.Recommendation, UpdatedAt: now})
		if err != nil {
			return fmt.Errorf("encode state: %w", err)
		}
		return b.Put(k, data)
	})
	if err != nil {
		return Change{}, false, err
	}
	return ch, changed, nil
}

// ObserveAll runs Observe over a batch and returns the changes.
func (t *Tracker) ObserveAll(picks []model.ClassifiedPick) ([]Change, error) {
	var changes []Change
	for _, cp := range picks {
		ch, changed, err := t.Observe(cp)
		if err != nil {
			return changes, err
		}
		if changed {
			changes = append(changes, ch)
		}
	}
	return changes, nil
}

// Labels returns the stored labels for a mode keyed by symbol.
func (t *Tracker) Labels(mode string) (map[string]string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.db == nil {
		return nil, ErrClosed
	}
	out := make(map[string]string)
	prefix := []byte(strings.ToLower(mode) + "/")
	err := t.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(labelsBucket)).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var e entry
			if err := json.Unmarshal(v, &e); err != nil {
				return fmt.Errorf("decode state %s: %w", k, err)
			}
			out[string(k[len(prefix):])] = e.Label
		}
		return nil
	})
	return out, err
}

// Reset forgets every stored label.
func (t *Tracker) Reset() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.db == nil {
		return ErrClosed
	}
	return t.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket([]byte(labelsBucket)); err != nil && err != bbolt.ErrBucketNotFound {
			return err
		}
		_, err := tx.CreateBucket([]byte(labelsBucket))
		return err
	})
}
