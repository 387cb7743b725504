package graph

import "errors"

// ErrEmptyInput reports that the source document contained no extractable
// text. This is fatal: nothing downstream can run without chunks.
var ErrEmptyInput = errors.New("input text is empty")

// ErrChunkBounds reports an invalid min/max chunk size configuration.
var ErrChunkBounds = errors.New("invalid chunk size bounds")

// ErrModelTimeout reports that a single extraction call exceeded its
// per-request timeout while the overall run was still live. The chunk is
// recorded as failed and the run continues.
var ErrModelTimeout = errors.New("model call timed out")

// ErrNormalization reports that an entity surface form normalized to an
// empty canonical key. The parser guarantees non-empty subjects and
// objects, so hitting this means an invariant was violated upstream.
var ErrNormalization = errors.New("entity normalized to empty key")
