package ports

import (
	"context"
	"io"
)

// PhotoStore is the profile-photo provider boundary. Save returns an opaque
// reference stored on the user record and later passed back to Remove.
type PhotoStore interface {
	Save(ctx context.Context, userID int64, filename string, data io.Reader) (string, error)
	Remove(ctx context.Context, ref string) error
}
