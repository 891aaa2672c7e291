package ops

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/graftdev/graft/internal/db"
	"github.com/graftdev/graft/internal/errors"
)

// retainVersion stores the pre-patch content under the versions directory,
// keyed by attempt ID, so the apply can be reverted later.
func retainVersion(baseDir, id string, data []byte) error {
	if err := os.WriteFile(filepath.Join(db.VersionsDir(baseDir), id), data, 0600); err != nil {
		return errors.NewIO("retain version", err)
	}
	return nil
}

// ReadVersion loads a retained pre-patch version by ID.
func ReadVersion(baseDir, id string) ([]byte, error) {
	if !validVersionID(id) {
		return nil, errors.NewInvalidRequest("invalid version id")
	}
	data, err := os.ReadFile(filepath.Join(db.VersionsDir(baseDir), id))
	if os.IsNotExist(err) {
		return nil, errors.NewNotFound("version", id)
	}
	if err != nil {
		return nil, errors.NewIO("read version", err)
	}
	return data, nil
}

// removeVersion deletes a retained version file. Missing files are not an
// error; purge may run after a manual cleanup.
func removeVersion(baseDir, id string) error {
	if !validVersionID(id) {
		return errors.NewInvalidRequest("invalid version id")
	}
	err := os.Remove(filepath.Join(db.VersionsDir(baseDir), id))
	if err != nil && !os.IsNotExist(err) {
		return errors.NewIO("remove version", err)
	}
	return nil
}

// validVersionID rejects IDs that could escape the versions directory.
// Version IDs are ULIDs, so anything with separators or dots is hostile.
func validVersionID(id string) bool {
	if id == "" || id == "." || id == ".." {
		return false
	}
	return !strings.ContainsAny(id, `/\`)
}
