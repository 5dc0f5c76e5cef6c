package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"qv-go/internal/app"
	"qv-go/internal/config"
	"qv-go/internal/quarantine"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates a QVApp. The caller must defer app.Close().
// operation identifies the CLI command being run (e.g. "Quarantine", "Cleanup").
func newApp(operation string) (*app.QVApp, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewQVApp(cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

// readPassphrase prompts on the terminal without echo. When stdin is not a
// terminal the first line of stdin is used.
func readPassphrase(prompt string) (string, error) {
	fd := int(syscall.Stdin)
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("reading passphrase: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(b), nil
}

// confirm asks a yes/no question unless --yes was given. Non-interactive
// sessions must pass --yes.
func confirm(cmd *cobra.Command, question string) (bool, error) {
	if yes, _ := cmd.Flags().GetBool("yes"); yes {
		return true, nil
	}
	if !term.IsTerminal(int(syscall.Stdin)) {
		return false, fmt.Errorf("refusing to continue without --yes on a non-interactive session")
	}
	fmt.Fprintf(os.Stderr, "%s [y/N] ", question)
	answer, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes", nil
}

// printBatchFailures lists the individual failures of a bulk operation.
func printBatchFailures(err error) {
	var batch *quarantine.BatchError
	if !errors.As(err, &batch) {
		return
	}
	for _, e := range batch.Errors {
		fmt.Fprintf(os.Stderr, "  failed: %v\n", e)
	}
	if hidden := batch.Failed - len(batch.Errors); hidden > 0 {
		fmt.Fprintf(os.Stderr, "  ... and %d more\n", hidden)
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

var rootCmd = &cobra.Command{
	Use:          "qv",
	Short:        "ClamAV quarantine vault",
	SilenceUsage: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		hostID := uuid.New().String()
		cfg := config.NewConfig(hostID, defaults.BaseDir)

		if err := config.Init(defaults.ConfigPath, cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults.ConfigPath)
		fmt.Printf("Host ID:   %s\n", hostID)
		fmt.Printf("Vault:     %s\n", cfg.Vault.Dir)
		fmt.Printf("Index:     %s\n", cfg.Index.Path)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults.ConfigPath)
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults.ConfigPath)
		fmt.Printf("Host ID:      %s\n", cfg.HostID)
		fmt.Printf("Base Dir:     %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:      %s\n", cfg.LogDir)
		fmt.Printf("Vault:        %s (%s)\n", cfg.Vault.Dir, cfg.Vault.Type)
		fmt.Printf("Index:        %s (%s)\n", cfg.Index.Path, cfg.Index.Type)
		fmt.Printf("Cleanup Days: %d\n", cfg.CleanupDays())
		if len(cfg.Filesystem.Exclude) > 0 {
			fmt.Printf("Exclude:      %s\n", strings.Join(cfg.Filesystem.Exclude, ", "))
		}
		return nil
	},
}

// keys command
var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage export encryption keys",
}

var keysInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the export key pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("SetupKeys")
		if err != nil {
			return err
		}
		defer a.Close()

		pass, err := readPassphrase("New passphrase: ")
		if err != nil {
			return err
		}
		if term.IsTerminal(int(syscall.Stdin)) {
			again, err := readPassphrase("Repeat passphrase: ")
			if err != nil {
				return err
			}
			if again != pass {
				return fmt.Errorf("passphrases do not match")
			}
		}

		if err := a.SetupKeys(pass); err != nil {
			return err
		}
		fmt.Println("Export keys created.")
		return nil
	},
}

// add command
var addCmd = &cobra.Command{
	Use:   "add PATH",
	Short: "Quarantine a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		threat, _ := cmd.Flags().GetString("threat")
		rawScanTime, _ := cmd.Flags().GetString("scan-time")

		var scanTime time.Time
		if rawScanTime != "" {
			t, err := time.Parse(time.RFC3339, rawScanTime)
			if err != nil {
				return fmt.Errorf("parsing --scan-time: %w", err)
			}
			scanTime = t
		}

		a, err := newApp("Quarantine")
		if err != nil {
			return err
		}
		defer a.Close()

		id, err := a.Quarantine(args[0], threat, scanTime)
		if err != nil {
			return fmt.Errorf("quarantine failed: %w", err)
		}

		fmt.Printf("Quarantined %s\n", args[0])
		fmt.Printf("File ID: %s\n", id)
		return nil
	},
}

// ingest command
var ingestCmd = &cobra.Command{
	Use:   "ingest [LOG|-]",
	Short: "Quarantine every detection in clamscan output",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		source := "-"
		if len(args) > 0 {
			source = args[0]
		}

		var r io.Reader = os.Stdin
		if source != "-" {
			f, err := os.Open(source)
			if err != nil {
				return fmt.Errorf("opening scan log: %w", err)
			}
			defer f.Close()
			r = f
		}

		a, err := newApp("Ingest")
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.Ingest(r, source)
		if result == nil {
			return err
		}

		for _, q := range result.Quarantined {
			fmt.Printf("%s  %s  %s\n", q.FileID, q.Signature, q.Path)
		}
		for _, d := range result.Excluded {
			fmt.Printf("excluded  %s  %s\n", d.Signature, d.Path)
		}
		for _, e := range result.ScanErrors {
			fmt.Fprintf(os.Stderr, "scanner error: %s: %s\n", e.Path, e.Message)
		}
		fmt.Printf("Quarantined %d file(s), excluded %d\n", len(result.Quarantined), len(result.Excluded))

		if err != nil {
			printBatchFailures(err)
			return fmt.Errorf("ingest incomplete: %w", err)
		}
		return nil
	},
}

// list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List quarantined files",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("List")
		if err != nil {
			return err
		}
		defer a.Close()

		records := a.List()
		if len(records) == 0 {
			fmt.Println("Quarantine is empty.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "FILE ID\tQUARANTINED\tSIZE\tTHREAT\tORIGINAL PATH")
		for _, r := range records {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				r.FileID,
				formatTime(r.QuarantineTime.Time),
				humanize.IBytes(uint64(r.FileSize)),
				r.ThreatName,
				r.OriginalPath,
			)
		}
		return w.Flush()
	},
}

// stats command
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show quarantine statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Stats")
		if err != nil {
			return err
		}
		defer a.Close()

		s := a.Stats()
		fmt.Printf("Files:        %d\n", s.TotalQuarantined)
		fmt.Printf("Total size:   %s\n", humanize.IBytes(uint64(s.TotalSize)))
		fmt.Printf("Threat types: %d\n", len(s.ThreatTypes))
		for _, t := range s.ThreatTypes {
			fmt.Printf("  %s\n", t)
		}
		if s.OldestFile != nil {
			fmt.Printf("Oldest:       %s (%s)\n", formatTime(*s.OldestFile), humanize.Time(*s.OldestFile))
			fmt.Printf("Newest:       %s (%s)\n", formatTime(*s.NewestFile), humanize.Time(*s.NewestFile))
		}
		return nil
	},
}

// restore command
var restoreCmd = &cobra.Command{
	Use:   "restore FILE_ID",
	Short: "Restore a quarantined file",
	Args: func(cmd *cobra.Command, args []string) error {
		if all, _ := cmd.Flags().GetBool("all"); all {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.ExactArgs(1)(cmd, args)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")

		op := "Restore"
		if all {
			op = "RestoreAll"
		}
		a, err := newApp(op)
		if err != nil {
			return err
		}
		defer a.Close()

		if all {
			n, err := a.RestoreAll()
			fmt.Printf("Restored %d file(s)\n", n)
			if err != nil {
				printBatchFailures(err)
				return fmt.Errorf("restore incomplete: %w", err)
			}
			return nil
		}

		dest, err := a.Restore(args[0])
		if err != nil {
			return fmt.Errorf("restore failed: %w", err)
		}
		fmt.Printf("Restored to %s\n", dest)
		return nil
	},
}

// delete command
var deleteCmd = &cobra.Command{
	Use:   "delete FILE_ID",
	Short: "Permanently delete a quarantined file",
	Args: func(cmd *cobra.Command, args []string) error {
		if all, _ := cmd.Flags().GetBool("all"); all {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.ExactArgs(1)(cmd, args)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")

		question := "Permanently delete " + strings.Join(args, "") + "?"
		if all {
			question = "Permanently delete every quarantined file?"
		}
		ok, err := confirm(cmd, question)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("Aborted.")
			return nil
		}

		op := "Delete"
		if all {
			op = "DeleteAll"
		}
		a, err := newApp(op)
		if err != nil {
			return err
		}
		defer a.Close()

		if all {
			n, err := a.DeleteAll()
			fmt.Printf("Deleted %d file(s)\n", n)
			if err != nil {
				printBatchFailures(err)
				return fmt.Errorf("delete incomplete: %w", err)
			}
			return nil
		}

		if err := a.Delete(args[0]); err != nil {
			return fmt.Errorf("delete failed: %w", err)
		}
		fmt.Printf("Deleted %s\n", args[0])
		return nil
	},
}

// cleanup command
var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete files older than the retention period",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Cleanup")
		if err != nil {
			return err
		}
		defer a.Close()

		days := a.CleanupDays()
		if cmd.Flags().Changed("days") {
			days, _ = cmd.Flags().GetInt("days")
		}

		ok, err := confirm(cmd, fmt.Sprintf("Delete files quarantined %d or more days ago?", days))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("Aborted.")
			return nil
		}

		n, err := a.Cleanup(days)
		fmt.Printf("Removed %d file(s)\n", n)
		if err != nil {
			printBatchFailures(err)
			return fmt.Errorf("cleanup incomplete: %w", err)
		}
		return nil
	},
}

// export command
var exportCmd = &cobra.Command{
	Use:   "export PATH",
	Short: "Export the quarantine index as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		encrypt, _ := cmd.Flags().GetBool("encrypt")

		a, err := newApp("Export")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Export(args[0], encrypt); err != nil {
			return fmt.Errorf("export failed: %w", err)
		}
		fmt.Printf("Exported to %s\n", args[0])
		return nil
	},
}

var exportDecryptCmd = &cobra.Command{
	Use:   "decrypt SRC DEST",
	Short: "Decrypt an encrypted export",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("DecryptExport")
		if err != nil {
			return err
		}
		defer a.Close()

		pass, err := readPassphrase("Passphrase: ")
		if err != nil {
			return err
		}
		if err := a.DecryptExport(args[0], args[1], pass); err != nil {
			return fmt.Errorf("decrypt failed: %w", err)
		}
		fmt.Printf("Decrypted to %s\n", args[1])
		return nil
	},
}

// verify command
var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check the index against the vault contents",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Verify")
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := a.Verify()
		if err != nil {
			return err
		}
		if report.OK() {
			fmt.Println("Index and vault agree.")
			return nil
		}

		for _, r := range report.Missing {
			fmt.Printf("missing  %s  %s\n", r.FileID, r.QuarantinedPath)
		}
		for _, o := range report.Orphans {
			hint := o.FileID
			if hint == "" {
				hint = "?"
			}
			fmt.Printf("orphan   %s  %s\n", hint, o.Path)
		}
		return report.Err()
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View operation history",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp("GetHistory")
		if err != nil {
			return err
		}
		defer a.Close()

		ops, err := a.GetHistory(limit)
		if err != nil {
			return err
		}

		if len(ops) == 0 {
			fmt.Println("No operations recorded.")
			return nil
		}

		for _, op := range ops {
			duration := ""
			if op.FinishedAt != nil {
				d := op.FinishedAt.Sub(op.StartedAt)
				duration = d.Truncate(time.Millisecond).String()
			}
			fmt.Printf("#%d  %-13s  %s  %-7s  %-8s  %s\n",
				op.ID,
				op.Operation,
				formatTime(op.StartedAt),
				op.Status,
				duration,
				op.Parameters,
			)
		}
		return nil
	},
}

// log command
var logCmd = &cobra.Command{
	Use:   "log FILE_ID",
	Short: "View the journal for a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("GetEvents")
		if err != nil {
			return err
		}
		defer a.Close()

		events, err := a.GetEvents(args[0])
		if err != nil {
			return err
		}

		if len(events) == 0 {
			fmt.Println("No journal entries.")
			return nil
		}

		for _, e := range events {
			fmt.Printf("%s  %-10s  %s  %s", formatTime(e.CreatedAt), e.Operation, e.ThreatName, e.OriginalPath)
			if e.Detail != "" {
				fmt.Printf("  (%s)", e.Detail)
			}
			fmt.Println()
		}
		return nil
	},
}

// metrics command
var metricsCmd = &cobra.Command{
	Use:   "metrics [PATH]",
	Short: "Write Prometheus metrics for the node exporter textfile collector",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("WriteMetrics")
		if err != nil {
			return err
		}
		defer a.Close()

		path := ""
		if len(args) > 0 {
			path = args[0]
		}
		written, err := a.WriteMetrics(path)
		if err != nil {
			return err
		}
		fmt.Printf("Metrics written to %s\n", written)
		return nil
	},
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// keys subcommands
	keysCmd.AddCommand(keysInitCmd)

	addCmd.Flags().StringP("threat", "t", "", "Threat name reported by the scanner")
	addCmd.MarkFlagRequired("threat")
	addCmd.Flags().String("scan-time", "", "When the scan ran (RFC 3339); defaults to now")

	restoreCmd.Flags().Bool("all", false, "Restore every quarantined file")
	deleteCmd.Flags().Bool("all", false, "Delete every quarantined file")
	deleteCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")
	cleanupCmd.Flags().Int("days", config.DefaultCleanupDays, "Delete files quarantined this many days ago or earlier (default from config)")
	cleanupCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")

	exportCmd.Flags().Bool("encrypt", false, "Encrypt the export to the configured public key")
	exportCmd.AddCommand(exportDecryptCmd)

	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of operations to show")

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(keysCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(cleanupCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(metricsCmd)
}
