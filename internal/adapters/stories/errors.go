package stories

import "errors"

// ErrFetch wraps failures loading stories from upstream.
var ErrFetch = errors.New("stories fetch failed")
