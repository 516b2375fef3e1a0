package osiris

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// PendingFile reserves a temporary path next to Target. Writers fill Path and
// the result only appears at Target once Commit succeeds; Discard removes
// whatever was written.
type PendingFile struct {
	Target    string
	Path      string
	committed bool
}

func NewPendingFile(target string) (*PendingFile, error) {
	dir := filepath.Dir(target)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(target)+".tmp-*")
	if err != nil {
		return nil, &ErrOpenFile{Filename: target, Err: err}
	}
	path := tmp.Name()
	tmp.Close()
	// Some writers refuse to open an existing empty file.
	if err := os.Remove(path); err != nil {
		return nil, fmt.Errorf("error reserving %s: %w", path, err)
	}
	return &PendingFile{Target: target, Path: path}, nil
}

func (p *PendingFile) Commit() error {
	if p.committed {
		return nil
	}
	if err := os.Rename(p.Path, p.Target); err != nil {
		return fmt.Errorf("error committing %s: %w", p.Target, err)
	}
	p.committed = true
	if verbosity > 0 {
		logger.Info(fmt.Sprintf("Output written to %s", p.Target), "output")
	}
	return nil
}

func (p *PendingFile) Committed() bool {
	return p.committed
}

// Discard is a no-op after Commit, so it can always be deferred.
func (p *PendingFile) Discard() error {
	if p.committed {
		return nil
	}
	err := os.Remove(p.Path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
