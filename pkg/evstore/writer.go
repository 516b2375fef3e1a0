package evstore

import (
	"errors"
	"fmt"
	"os"

	osiris "github.com/osiris-exp/reco_go/pkg"
)

// Writer fills a fresh DuckDB file for one run. The database only appears at
// its final path on Commit.
type Writer struct {
	pending *osiris.PendingFile
	store   *Store
}

func NewWriter(filename string) (*Writer, error) {
	pending, err := osiris.NewPendingFile(filename)
	if err != nil {
		return nil, err
	}
	store, err := Open(pending.Path)
	if err != nil {
		return nil, err
	}
	w := &Writer{pending: pending, store: store}
	if err := store.InitSchema(); err != nil {
		w.Close()
		return nil, err
	}
	return w, nil
}

func (w *Writer) WriteRunInfo(meta osiris.RunMeta) error {
	return w.store.InsertRun(meta)
}

func (w *Writer) WriteEvents(events []osiris.Event) error {
	return w.store.InsertEvents(events)
}

func (w *Writer) WritePairs(pairs []osiris.Pair) error {
	return w.store.InsertPairs(pairs)
}

// Commit checkpoints the database, closes it and moves it into place.
func (w *Writer) Commit() error {
	if _, err := w.store.db.Exec("CHECKPOINT"); err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	if err := w.closeStore(); err != nil {
		return err
	}
	return w.pending.Commit()
}

func (w *Writer) Close() error {
	err := w.closeStore()
	if !w.pending.Committed() {
		if rmErr := os.Remove(w.pending.Path + ".wal"); rmErr != nil && !os.IsNotExist(rmErr) {
			err = errors.Join(err, rmErr)
		}
	}
	return errors.Join(err, w.pending.Discard())
}

func (w *Writer) closeStore() error {
	if w.store == nil {
		return nil
	}
	err := w.store.Close()
	w.store = nil
	if err != nil {
		return fmt.Errorf("close duckdb: %w", err)
	}
	return nil
}

// ReadFile opens a committed database and returns its tables.
func ReadFile(filename string) (runs []osiris.RunMeta, events []osiris.Event, pairs []osiris.Pair, err error) {
	if _, err := os.Stat(filename); err != nil {
		return nil, nil, nil, &osiris.ErrOpenFile{Filename: filename, Err: err}
	}
	store, err := Open(filename)
	if err != nil {
		return nil, nil, nil, err
	}
	defer store.Close()

	if runs, err = store.Runs(); err != nil {
		return nil, nil, nil, fmt.Errorf("read runs: %w", err)
	}
	if events, err = store.Events(); err != nil {
		return nil, nil, nil, fmt.Errorf("read events: %w", err)
	}
	if pairs, err = store.Pairs(); err != nil {
		return nil, nil, nil, fmt.Errorf("read pairs: %w", err)
	}
	return runs, events, pairs, nil
}
