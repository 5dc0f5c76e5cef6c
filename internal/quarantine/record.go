package quarantine

import (
	"fmt"
	"strings"
	"time"
)

// idTimeLayout is the timestamp format embedded in file ids and vault names.
const idTimeLayout = "20060102_150405"

// hashLength is the number of hex characters of SHA-256 kept per file.
const hashLength = 16

// Record describes one quarantined file. Records are immutable once created:
// restore and delete end a record rather than edit it.
type Record struct {
	FileID           string    `json:"file_id"`
	OriginalPath     string    `json:"original_path"`
	QuarantinedPath  string    `json:"quarantined_path"`
	OriginalFilename string    `json:"original_filename"`
	ThreatName       string    `json:"threat_name"`
	ScanTime         Timestamp `json:"scan_time"`
	QuarantineTime   Timestamp `json:"quarantine_time"`
	FileSize         int64     `json:"file_size"`
	FileHash         string    `json:"file_hash"`
}

// DeriveID recomputes the file id from the record's hash and quarantine time.
func (r *Record) DeriveID() string {
	return BuildFileID(r.FileHash, r.QuarantineTime.Time)
}

// BuildFileID returns "<hash16>_<YYYYMMDD_HHMMSS>" with the time in UTC.
func BuildFileID(hash string, quarantinedAt time.Time) string {
	return hash + "_" + quarantinedAt.UTC().Format(idTimeLayout)
}

// BuildVaultName returns "<YYYYMMDD_HHMMSS>_<hash16>_<basename>" with the time in UTC.
func BuildVaultName(hash string, quarantinedAt time.Time, basename string) string {
	return quarantinedAt.UTC().Format(idTimeLayout) + "_" + hash + "_" + basename
}

// ParseVaultName recovers the file id and original basename from a vault
// filename. It is a repair aid for orphaned vault files, not a lookup path.
func ParseVaultName(name string) (fileID string, basename string, err error) {
	parts := strings.SplitN(name, "_", 4)
	if len(parts) != 4 {
		return "", "", fmt.Errorf("%w: vault name %q has too few fields", ErrInvalidInput, name)
	}

	stamp := parts[0] + "_" + parts[1]
	if _, err := time.Parse(idTimeLayout, stamp); err != nil {
		return "", "", fmt.Errorf("%w: vault name %q has a bad timestamp", ErrInvalidInput, name)
	}
	if !isHexHash(parts[2]) {
		return "", "", fmt.Errorf("%w: vault name %q has a bad hash", ErrInvalidInput, name)
	}
	if parts[3] == "" {
		return "", "", fmt.Errorf("%w: vault name %q has no basename", ErrInvalidInput, name)
	}

	return parts[2] + "_" + stamp, parts[3], nil
}

func isHexHash(s string) bool {
	if len(s) != hashLength {
		return false
	}
	for _, c := range s {
		if !('0' <= c && c <= '9' || 'a' <= c && c <= 'f') {
			return false
		}
	}
	return true
}
