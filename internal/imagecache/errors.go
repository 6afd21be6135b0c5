package imagecache

import "errors"

// Error taxonomy of the cache service. ErrInvalidInput and ErrNotFound are
// expected outcomes; ErrProcessing and ErrStorage are failures logged with
// full request context before being surfaced.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("source image not found")
	ErrProcessing   = errors.New("image processing failed")
	ErrStorage      = errors.New("cache storage failed")
)
