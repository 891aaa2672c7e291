package ops

import (
	"bytes"
	"io"
	"os"
	"unicode/utf8"

	"github.com/graftdev/graft/internal/config"
	"github.com/graftdev/graft/internal/errors"
	"github.com/graftdev/graft/internal/patch"
)

// targetFile is the in-memory form of a patch target.
type targetFile struct {
	absPath string
	raw     []byte      // bytes as read from disk
	content string      // LF-normalized text used for matching
	crlf    bool        // original content used CRLF line endings
	mode    os.FileMode // permission bits of the file
}

// restore converts LF-normalized content back to the file's original line
// ending flavor for writing.
func (t *targetFile) restore(content string) []byte {
	if t.crlf {
		return []byte(patch.ToCRLF(content))
	}
	return []byte(content)
}

// readTarget validates the path policy and loads the file for patching.
// Matching always runs against LF-normalized text; the original flavor is
// remembered so a rewrite preserves CRLF files as CRLF.
func readTarget(path string, cfg *config.Config) (*targetFile, error) {
	absPath, err := ValidateTargetPath(path, cfg)
	if err != nil {
		return nil, err
	}

	f, err := openFileNoFollowRead(absPath)
	if err != nil {
		if gErr, ok := err.(*errors.GraftError); ok {
			return nil, gErr
		}
		return nil, errors.NewIO("open file", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, errors.NewIO("stat file", err)
	}
	if !info.Mode().IsRegular() {
		return nil, errors.NewInvalidRequest("path is not a regular file")
	}

	maxBytes := config.DefaultConfig().MaxFileBytes
	if cfg != nil && cfg.MaxFileBytes > 0 {
		maxBytes = cfg.MaxFileBytes
	}
	if info.Size() > maxBytes {
		return nil, errors.NewFileTooLarge(maxBytes, info.Size())
	}

	raw, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.NewIO("read file", err)
	}

	if !utf8.Valid(raw) {
		return nil, errors.NewInvalidRequest("file is not valid UTF-8 text")
	}
	// NUL is valid UTF-8 but never appears in source text; treat it as binary.
	if bytes.IndexByte(raw, 0) >= 0 {
		return nil, errors.NewInvalidRequest("file contains NUL bytes")
	}

	text := string(raw)
	crlf := patch.HasCRLF(text)
	if crlf {
		text = patch.ToLF(text)
	}

	return &targetFile{
		absPath: absPath,
		raw:     raw,
		content: text,
		crlf:    crlf,
		mode:    info.Mode().Perm(),
	}, nil
}
