package gc

import (
	"fmt"
	"strings"
)

// ParseLocation splits a remote location of the form "bucket/key".
// The bucket is everything before the first '/', the key is the remainder.
// A location without a separator, or with an empty bucket or key, is invalid.
func ParseLocation(location string) (bucket, key string, err error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return "", "", fmt.Errorf("%w: empty", ErrInvalidLocation)
	}

	bucket, key, found := strings.Cut(location, "/")
	if !found {
		return "", "", fmt.Errorf("%w: no separator in %q", ErrInvalidLocation, location)
	}
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("%w: missing bucket or key in %q", ErrInvalidLocation, location)
	}

	return bucket, key, nil
}
