package filedownhttp

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/filedown/internal/utils"
)

type TargetFile struct {
	Path   string
	Size   int64
	Reused bool
}

// Allocate sizes the file at path to exactly length bytes. A file that already has that size
// is reused as-is; its existing content is not verified and will be overwritten chunk by chunk.
func Allocate(path string, length int64) (*TargetFile, error) {
	if length <= 0 {
		return nil, fmt.Errorf("%w: invalid length %d", utils.ErrAllocation, length)
	}
	if info, err := os.Stat(path); err == nil {
		if info.IsDir() {
			return nil, fmt.Errorf("%w: %s is a directory", utils.ErrAllocation, path)
		}
		if info.Size() == length {
			f, err := os.OpenFile(path, os.O_WRONLY, 0)
			if err != nil {
				return nil, fmt.Errorf("%w: existing file is not writable: %v", utils.ErrAllocation, err)
			}
			f.Close()
			log.Debug().Str("op", "http/allocate").Str("path", path).Msg("Reusing existing file with matching size")
			return &TargetFile{Path: path, Size: length, Reused: true}, nil
		}
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("%w: error creating directory: %v", utils.ErrAllocation, err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrAllocation, err)
	}
	if err := f.Truncate(length); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: error setting file size: %v", utils.ErrAllocation, err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrAllocation, err)
	}
	log.Debug().Str("op", "http/allocate").Str("path", path).Str("size", utils.FormatBytes(uint64(length))).Msg("Allocated target file")
	return &TargetFile{Path: path, Size: length}, nil
}
