package types

import (
	"errors"
	"fmt"
)

var (
	// ErrMediaNotFound means the downloader returned no usable media.
	ErrMediaNotFound = errors.New("media not found")
	// ErrStaleSelection means a selection does not match the user's current media set.
	ErrStaleSelection = errors.New("stale selection")
	// ErrUnsupportedKind means a variant kind cannot be uploaded.
	ErrUnsupportedKind = errors.New("unsupported media kind")
)

// TransferError reports a failure while fetching, writing or uploading an artifact.
type TransferError struct {
	Op  string
	Err error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("transfer %s: %v", e.Op, e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}
