package quarantine

import "io"

// Encryptor seals export snapshots so quarantine reports can leave the machine
// without exposing file paths and threat names in plaintext.
// Sealing uses the public key only; opening requires the passphrase that
// protects the private key.
type Encryptor interface {
	// Setup generates the key pair, writing the public key in plaintext and
	// the private key encrypted with passphrase. Called by `qv keys init`.
	Setup(passphrase string) error

	// Encrypt reads plaintext from r and writes ciphertext to w.
	Encrypt(r io.Reader, w io.Writer) error

	// Unlock decrypts the private key and returns a context able to open
	// sealed exports. Returns an error if the passphrase is wrong.
	Unlock(passphrase string) (DecryptionContext, error)

	// IsConfigured reports whether both key files exist.
	IsConfigured() bool
}

// DecryptionContext holds an unlocked private key in memory only.
type DecryptionContext interface {
	Decrypt(r io.Reader, w io.Writer) error
}
