package quarantine

// FilesystemManager resolves and reads source files offered for quarantine.
type FilesystemManager interface {
	// Resolve makes rawPath absolute and stats it without following symlinks.
	// A missing path yields an error matching ErrNotFound; anything other than
	// a regular file or directory yields ErrInvalidInput.
	Resolve(rawPath string) (*Path, error)

	// Hash streams the file and returns the truncated SHA-256 content hash
	// together with the number of bytes read.
	Hash(path *Path) (hash string, size int64, err error)
}
