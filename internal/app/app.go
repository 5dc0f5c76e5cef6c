package app

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"qv-go/internal/atomicfile"
	"qv-go/internal/clamav"
	"qv-go/internal/config"
	"qv-go/internal/database"
	"qv-go/internal/encryption"
	"qv-go/internal/fs"
	"qv-go/internal/index"
	"qv-go/internal/metrics"
	"qv-go/internal/quarantine"
	"qv-go/internal/vault"
)

// QVApp is the application layer between the CLI and the quarantine Store.
// It constructs all dependencies from config, exposes high-level operations
// that accept raw string arguments, and manages the DB lifecycle on Close.
type QVApp struct {
	cfg       *config.Config
	db        quarantine.Database
	vault     quarantine.Vault
	exclude   *fs.ExcludeMatcher
	encryptor quarantine.Encryptor
	store     *quarantine.Store
	logger    quarantine.Logger
	op        *Operation
	logFile   *os.File
}

// NewQVApp creates a fully wired QVApp from the given config.
// operation identifies the CLI command being run (e.g. "Quarantine", "Cleanup").
// The caller must call Close when done.
func NewQVApp(cfg *config.Config, operation string) (*QVApp, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	v, err := vault.NewVaultFromConfig(cfg.Vault)
	if err != nil {
		return nil, fmt.Errorf("creating vault: %w", err)
	}
	if err := v.ValidateSetup(); err != nil {
		return nil, fmt.Errorf("vault not usable: %w", err)
	}

	indexStore, err := index.NewIndexStoreFromConfig(cfg.Index)
	if err != nil {
		return nil, fmt.Errorf("creating index store: %w", err)
	}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}

	db, err := database.NewDatabaseFromConfig(cfg.Database, cfg.HostID)
	if err != nil {
		return nil, fmt.Errorf("creating database: %w", err)
	}

	if err := db.CheckMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database schema out of date: %w", err)
	}

	opID := time.Now().UTC().Format("20060102T150405Z")
	slogger, logFile, err := newLogger(cfg.LogDir, opID)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger}

	store, err := quarantine.NewStore(v, indexStore, fs.NewOSFilesystemManager(), db, logger,
		quarantine.RealClock{}, quarantine.UUIDGenerator{})
	if err != nil {
		db.Close()
		logFile.Close()
		return nil, fmt.Errorf("opening quarantine store: %w", err)
	}

	return &QVApp{
		cfg:       cfg,
		db:        db,
		vault:     v,
		exclude:   fs.NewExcludeMatcher(cfg.Filesystem.Exclude),
		encryptor: enc,
		store:     store,
		logger:    logger,
		op:        NewOperation(operation, ""),
		logFile:   logFile,
	}, nil
}

// persistOperation saves the operation to the database, giving it an auto-increment ID.
// This should only be called for vault-mutating commands.
func (a *QVApp) persistOperation(parameters string) error {
	if a.op.Persisted() {
		return nil
	}
	a.op.Parameters = parameters
	dbOp, err := a.db.CreateOperation(a.op.Operation, a.op.Parameters)
	if err != nil {
		return fmt.Errorf("persisting operation: %w", err)
	}
	a.op.ID = dbOp.ID
	return nil
}

// track marks the operation failed when err is non-nil and returns err.
func (a *QVApp) track(err error) error {
	if err != nil {
		a.op.Fail()
	}
	return err
}

// Quarantine moves the file at rawPath into the vault. A zero scanTime
// means the scan happened now. Returns the new file id.
func (a *QVApp) Quarantine(rawPath string, threatName string, scanTime time.Time) (string, error) {
	if err := a.persistOperation(rawPath); err != nil {
		return "", err
	}
	id, err := a.store.Quarantine(rawPath, threatName, scanTime)
	return id, a.track(err)
}

// IngestedFile is one detection that was moved into the vault.
type IngestedFile struct {
	FileID    string
	Path      string
	Signature string
}

// IngestResult summarizes an ingest run.
type IngestResult struct {
	Quarantined []IngestedFile
	// Excluded are detections matching a [filesystem].exclude pattern.
	Excluded []clamav.Detection
	// ScanErrors are files the scanner itself could not read.
	ScanErrors []clamav.ScanError
}

// Ingest reads clamscan output from r and quarantines every detection not
// excluded by configuration. The scan start time from the report summary is
// recorded as the scan time. Failures do not stop the batch; they are
// returned as a *quarantine.BatchError alongside the partial result.
func (a *QVApp) Ingest(r io.Reader, source string) (*IngestResult, error) {
	report, err := clamav.ParseReport(r)
	if err != nil {
		return nil, a.track(fmt.Errorf("%w: %w", quarantine.ErrInvalidInput, err))
	}

	result := &IngestResult{ScanErrors: report.Errors}
	if len(report.Detections) == 0 {
		a.logger.Info("scan report has no detections", "source", source, "scanned", report.ScannedFiles)
		return result, nil
	}

	if err := a.persistOperation(source); err != nil {
		return nil, err
	}

	var batch quarantine.BatchError
	for _, d := range report.Detections {
		if a.exclude.Match(d.Path) {
			a.logger.Info("detection excluded", "path", d.Path, "signature", d.Signature)
			result.Excluded = append(result.Excluded, d)
			continue
		}
		id, err := a.store.Quarantine(d.Path, d.Signature, report.StartTime)
		if err != nil {
			batch.Add(d.Path, err)
			continue
		}
		result.Quarantined = append(result.Quarantined, IngestedFile{FileID: id, Path: d.Path, Signature: d.Signature})
	}
	return result, a.track(batch.Err())
}

// List returns every quarantined record.
func (a *QVApp) List() []quarantine.Record {
	return a.store.List()
}

// Get returns the record for fileID.
func (a *QVApp) Get(fileID string) (quarantine.Record, error) {
	return a.store.Get(fileID)
}

// Stats returns aggregate statistics over the vault.
func (a *QVApp) Stats() quarantine.Statistics {
	return a.store.Stats()
}

// Restore moves a quarantined file back out of the vault.
// Returns the path it was restored to.
func (a *QVApp) Restore(fileID string) (string, error) {
	if err := a.persistOperation(fileID); err != nil {
		return "", err
	}
	dest, err := a.store.Restore(fileID)
	return dest, a.track(err)
}

// RestoreAll restores every quarantined file.
func (a *QVApp) RestoreAll() (int, error) {
	if err := a.persistOperation("all"); err != nil {
		return 0, err
	}
	n, err := a.store.RestoreAll()
	return n, a.track(err)
}

// Delete permanently removes a quarantined file.
func (a *QVApp) Delete(fileID string) error {
	if err := a.persistOperation(fileID); err != nil {
		return err
	}
	return a.track(a.store.Delete(fileID))
}

// DeleteAll permanently removes every quarantined file.
func (a *QVApp) DeleteAll() (int, error) {
	if err := a.persistOperation("all"); err != nil {
		return 0, err
	}
	n, err := a.store.DeleteAll()
	return n, a.track(err)
}

// CleanupDays returns the configured retention period.
func (a *QVApp) CleanupDays() int {
	return a.cfg.CleanupDays()
}

// Cleanup deletes files quarantined at least days days ago.
func (a *QVApp) Cleanup(days int) (int, error) {
	if err := a.persistOperation(fmt.Sprintf("days=%d", days)); err != nil {
		return 0, err
	}
	n, err := a.store.Cleanup(days)
	return n, a.track(err)
}

// Verify compares the index with the vault contents.
func (a *QVApp) Verify() (*quarantine.VerifyReport, error) {
	return a.store.Verify()
}

// Export writes a JSON snapshot of the vault to path. When encrypt is set the
// snapshot is sealed to the configured public key first.
func (a *QVApp) Export(path string, encrypt bool) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving path: %w", err)
	}
	if !encrypt {
		return a.store.Export(absPath)
	}

	if !a.encryptor.IsConfigured() {
		return fmt.Errorf("%w: encryption keys not configured, run `qv keys init`", quarantine.ErrInvalidInput)
	}
	var plain bytes.Buffer
	if err := a.store.WriteSnapshot(&plain); err != nil {
		return err
	}
	err = atomicfile.Write(absPath, 0600, func(w io.Writer) error {
		return a.encryptor.Encrypt(&plain, w)
	})
	if err != nil {
		return fmt.Errorf("%w: writing encrypted export: %w", quarantine.ErrIO, err)
	}
	a.logger.Info("encrypted export written", "path", absPath)
	return nil
}

// DecryptExport opens an encrypted export at src with the private key
// unlocked by passphrase and writes the JSON to dest.
func (a *QVApp) DecryptExport(src string, dest string, passphrase string) error {
	ctx, err := a.encryptor.Unlock(passphrase)
	if err != nil {
		return fmt.Errorf("unlocking private key: %w", err)
	}

	f, err := os.Open(src)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", quarantine.ErrNotFound, src)
		}
		return fmt.Errorf("%w: opening %s: %w", quarantine.ErrIO, src, err)
	}
	defer f.Close()

	return atomicfile.Write(dest, 0600, func(w io.Writer) error {
		return ctx.Decrypt(f, w)
	})
}

// SetupKeys generates the export key pair.
func (a *QVApp) SetupKeys(passphrase string) error {
	if err := a.encryptor.Setup(passphrase); err != nil {
		return fmt.Errorf("setting up keys: %w", err)
	}
	a.logger.Info("export keys created", "public_key", a.cfg.Encryption.PublicKeyPath)
	return nil
}

// GetHistory returns the most recent operations.
func (a *QVApp) GetHistory(limit int) ([]*quarantine.Operation, error) {
	return a.db.ListOperations(limit)
}

// GetEvents returns the journal entries for one file id, oldest first.
func (a *QVApp) GetEvents(fileID string) ([]*quarantine.Event, error) {
	return a.db.EventsForFile(fileID)
}

// WriteMetrics writes the vault metrics in Prometheus text format. An empty
// path falls back to [metrics].textfile_path.
func (a *QVApp) WriteMetrics(path string) (string, error) {
	if path == "" {
		path = a.cfg.Metrics.TextfilePath
	}
	if path == "" {
		return "", fmt.Errorf("%w: no metrics path given and [metrics].textfile_path not set", quarantine.ErrInvalidInput)
	}
	if err := metrics.WriteTextfile(path, a.store); err != nil {
		return "", err
	}
	return path, nil
}

// Close finalizes the operation and closes all resources.
func (a *QVApp) Close() error {
	var firstErr error

	if a.op.Persisted() {
		if err := a.db.FinishOperation(a.op.ID, a.op.Status); err != nil {
			firstErr = fmt.Errorf("finishing operation: %w", err)
		}
	}

	if err := a.db.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("closing database: %w", err)
	}

	if a.logFile != nil {
		a.logFile.Close()
	}

	return firstErr
}
