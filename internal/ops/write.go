package ops

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/graftdev/graft/internal/errors"
)

// writeFileAtomic writes data to path through a temp file in the same
// directory followed by a rename, so a reader never observes a partial
// write. The temp file is synced before the rename and removed on failure,
// leaving any existing file untouched.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to generate temp file name: %w", err))
	}
	tempPath := path + "." + hex.EncodeToString(randBytes) + ".tmp"

	file, err := openFileNoFollow(tempPath, os.O_CREATE|os.O_WRONLY|os.O_EXCL, perm)
	if err != nil {
		return errors.NewIO("create temp file", err)
	}

	// Clean up temp file on failure (original file is preserved)
	success := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !success {
			os.Remove(tempPath)
		}
	}()

	// The requested permissions can be narrowed by the umask at create time;
	// restore them so the rewritten file keeps the original's mode.
	_ = file.Chmod(perm)

	if _, err := file.Write(data); err != nil {
		return errors.NewIO("write temp file", err)
	}
	if err := file.Sync(); err != nil {
		return errors.NewIO("sync temp file", err)
	}
	if err := file.Close(); err != nil {
		file = nil
		return errors.NewIO("close temp file", err)
	}
	file = nil

	// Check if destination is a symlink (os.Rename would follow it)
	if info, err := os.Lstat(path); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return errors.NewInvalidRequest("destination is a symlink")
	}

	if err := os.Rename(tempPath, path); err != nil {
		return errors.NewIO("rename temp file", err)
	}

	success = true
	return nil
}
