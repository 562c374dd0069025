package output

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"
)

// pending is an output file being written under a temporary name in the
// destination directory.
type pending struct {
	dest string
	tmp  string
}

func newPending(dest string) (*pending, error) {
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create output directory: %v", ErrWriteFailed, err)
	}
	tmp := filepath.Join(dir, fmt.Sprintf(".%s.%s.tmp", filepath.Base(dest), uuid.New().String()))
	return &pending{dest: dest, tmp: tmp}, nil
}

// commit renames the temporary file over the destination. Renames are
// retried because readers on some platforms briefly hold the destination
// open.
func (p *pending) commit() error {
	err := retry.Do(
		func() error {
			return os.Rename(p.tmp, p.dest)
		},
		retry.Attempts(5),
		retry.Delay(50*time.Millisecond),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return !errors.Is(err, fs.ErrNotExist)
		}),
	)
	if err != nil {
		_ = os.Remove(p.tmp)
		return fmt.Errorf("%w: commit %s: %v", ErrWriteFailed, p.dest, err)
	}
	return nil
}

// abandon removes the temporary file if it exists.
func (p *pending) abandon() error {
	if err := os.Remove(p.tmp); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
