package pd

// SecretStore is a key/value store for sensitive values, addressed by
// service and key. Implementations must be safe for sequential use from one
// process; concurrent writers across processes are not supported.
type SecretStore interface {
	// Get returns the value and true, or "" and false when nothing is stored.
	Get(service, key string) (string, bool, error)

	// Set stores value, replacing any previous value.
	Set(service, key, value string) error

	// Remove deletes the value. Removing a missing key is not an error.
	Remove(service, key string) error
}

// KeyProvider hands out the active identity's key material as a file path,
// which is what external upload tools require.
type KeyProvider interface {
	// ActiveAccount returns the active account or ErrNoActiveAccount.
	ActiveAccount() (*Account, error)

	// WithKeyFile writes the active key material to an owner-only temporary
	// file, calls fn with its path, and removes the file before returning on
	// every path, including a panic in fn.
	WithKeyFile(fn func(path string) error) error
}
