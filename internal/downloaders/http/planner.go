package filedownhttp

import (
	"fmt"

	"github.com/tanq16/filedown/internal/utils"
)

// PlanChunks splits [0, total) into consecutive ranges of chunkSize bytes; the last one is clipped.
func PlanChunks(total, chunkSize int64) ([]utils.ByteRange, error) {
	if total <= 0 {
		return nil, fmt.Errorf("%w: total length %d", utils.ErrInvalidPlan, total)
	}
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size %d", utils.ErrInvalidPlan, chunkSize)
	}
	count := (total + chunkSize - 1) / chunkSize
	ranges := make([]utils.ByteRange, 0, count)
	for start := int64(0); start < total; start += chunkSize {
		ranges = append(ranges, utils.ByteRange{Start: start, End: min(start+chunkSize, total)})
	}
	return ranges, nil
}
