package flagvault

import "errors"

var (
	// ErrClosed is returned when the vault is used after Close.
	ErrClosed = errors.New("vault is closed")

	// ErrNoBlobStore is returned by SyncToBlob and RestoreFromBlob when
	// no blob store is configured.
	ErrNoBlobStore = errors.New("blob store not configured")
)
