package transfer

import "errors"

// Sentinel errors for the transfer service layer.
var (
	// ErrNotFound covers unknown, consumed and expired tokens alike.
	ErrNotFound = errors.New("transfer not found or no longer pending")

	// ErrDataIntegrity means a stored payload could not be decoded.
	ErrDataIntegrity = errors.New("transfer payload is corrupt")

	// ErrTokenExists is returned by Save when the token is already stored.
	ErrTokenExists = errors.New("transfer token already exists")

	// ErrInvalidToken means the token does not have the expected shape.
	ErrInvalidToken = errors.New("malformed transfer token")
)
