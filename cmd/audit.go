package cmd

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/perihelion-labs/ldsi/core/audit"
	"github.com/perihelion-labs/ldsi/core/errors"
	"github.com/perihelion-labs/ldsi/core/scoring"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Audit trail management",
	Long:  `Query, verify, export, and summarize recorded benchmark runs.`,
}

var auditQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query scored runs",
	Long:  `Search the result store with model, verdict, and time filters.`,
	RunE:  runAuditQuery,
}

var auditVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify audit chain integrity",
	Long:  `Check every record's hash, its link to the predecessor, and sequence continuity.`,
	RunE:  runAuditVerify,
}

var auditExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export scored runs",
	Long:  `Write filtered runs to stdout as JSON lines or CSV.`,
	RunE:  runAuditExport,
}

var auditSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Aggregate stored runs",
	Long:  `Show run counts and lambda statistics per verdict and per model.`,
	RunE:  runAuditSummary,
}

var (
	auditModel        string
	auditVerdict      string
	auditSince        string
	auditLimit        int
	auditQueryFormat  string
	auditExportFormat string
	auditSummaryJSON  bool
	auditLogFile      string
	auditStore        string
)

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditQueryCmd)
	auditCmd.AddCommand(auditVerifyCmd)
	auditCmd.AddCommand(auditExportCmd)
	auditCmd.AddCommand(auditSummaryCmd)

	addAuditFilterFlags(auditQueryCmd)
	addAuditFilterFlags(auditExportCmd)
	auditQueryCmd.Flags().StringVarP(&auditQueryFormat, "format", "f", "table", "Output format (table, json)")
	auditExportCmd.Flags().StringVarP(&auditExportFormat, "format", "f", "jsonl", "Output format (jsonl, csv)")
	auditSummaryCmd.Flags().BoolVar(&auditSummaryJSON, "json", false, "Output as JSON")

	auditCmd.PersistentFlags().StringVar(&auditLogFile, "log-path", "", "Chain log file (default from config)")
	auditCmd.PersistentFlags().StringVar(&auditStore, "store-path", "", "Result store database (default from config)")
}

func addAuditFilterFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&auditModel, "model", "m", "", "Filter by model ID")
	cmd.Flags().StringVar(&auditVerdict, "verdict", "", "Filter by verdict (ZOMBIE, REBEL, ARCHITECT, FOOL)")
	cmd.Flags().StringVar(&auditSince, "since", "", "Runs since (e.g. 24h, 7d, 2026-08-01)")
	cmd.Flags().IntVarP(&auditLimit, "limit", "l", 50, "Maximum runs to return")
}

// openQueryStore opens the result store at the flag or configured path.
func openQueryStore() (*audit.Store, error) {
	path := auditStore
	if path == "" {
		cfg, err := loadConfig()
		if err != nil {
			return nil, err
		}
		if _, path, err = auditPaths(cfg); err != nil {
			return nil, err
		}
	}
	return audit.NewStore(audit.StoreConfig{DBPath: path})
}

func queryRecords() ([]*audit.Record, error) {
	store, err := openQueryStore()
	if err != nil {
		return nil, err
	}
	defer store.Close()

	switch {
	case auditModel != "":
		return store.QueryByModel(auditModel, auditLimit)
	case auditVerdict != "":
		return store.QueryByVerdict(scoring.Verdict(strings.ToUpper(auditVerdict)), auditLimit)
	case auditSince != "":
		since, err := parseSince(auditSince)
		if err != nil {
			return nil, err
		}
		return store.QuerySince(since, auditLimit)
	default:
		return store.QuerySince(time.Time{}, auditLimit)
	}
}

func runAuditQuery(cmd *cobra.Command, args []string) error {
	records, err := queryRecords()
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	w := cmd.OutOrStdout()
	if strings.ToLower(auditQueryFormat) == "json" {
		return writeIndentedJSON(w, records)
	}

	printRecordTable(w, records)
	return nil
}

func printRecordTable(w io.Writer, records []*audit.Record) {
	if len(records) == 0 {
		fmt.Fprintln(w, "no runs found")
		return
	}

	fmt.Fprintf(w, "%-26s  %-24s  %-10s  %8s  %s\n", "TEST ID", "MODEL", "VERDICT", "LAMBDA", "WHEN")
	for _, r := range records {
		verdict := string(r.Result.Verdict)
		fmt.Fprintf(w, "%-26s  %-24s  %-10s  %8.4f  %s\n",
			r.TestID,
			truncateName(r.Model, 24),
			paint(verdictColor(r.Result.Verdict), verdict),
			r.Result.Lambda,
			r.Timestamp.Local().Format("2006-01-02 15:04:05"),
		)
	}
	fmt.Fprintf(w, "\n%d runs\n", len(records))
}

func runAuditVerify(cmd *cobra.Command, args []string) error {
	path := auditLogFile
	if path == "" {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if path, _, err = auditPaths(cfg); err != nil {
			return err
		}
	}

	log, err := audit.NewLog(audit.LogConfig{Path: path})
	if err != nil {
		return fmt.Errorf("failed to open audit log: %w", err)
	}
	defer log.Close()

	report, err := log.VerifyIntegrity()
	if err != nil {
		return fmt.Errorf("verification failed: %w", err)
	}

	printIntegrityReport(cmd.OutOrStdout(), path, report)
	if !report.Valid {
		return fmt.Errorf("integrity check failed")
	}
	return nil
}

func printIntegrityReport(w io.Writer, path string, report *audit.IntegrityReport) {
	fmt.Fprintln(w, "Audit Chain Integrity Report")
	fmt.Fprintln(w, strings.Repeat("-", 40))
	fmt.Fprintf(w, "File:             %s\n", path)
	fmt.Fprintf(w, "Entries verified: %d\n", report.EntriesVerified)
	fmt.Fprintf(w, "Duration:         %v\n", report.EndTime.Sub(report.StartTime).Round(time.Millisecond))

	if report.Valid {
		fmt.Fprintln(w, "\nResult: "+paint(colorGreen, "VALID"))
		return
	}

	fmt.Fprintln(w, "\nResult: "+paint(colorRed, "INVALID"))
	fmt.Fprintln(w, "\nErrors:")
	for _, e := range report.Errors {
		fmt.Fprintf(w, "  - %s\n", e)
	}
}

func runAuditExport(cmd *cobra.Command, args []string) error {
	records, err := queryRecords()
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	w := cmd.OutOrStdout()
	switch strings.ToLower(auditExportFormat) {
	case "jsonl":
		return exportJSONL(w, records)
	case "csv":
		return exportCSV(w, records)
	default:
		return errors.InvalidInputf("unknown export format %q (jsonl, csv)", auditExportFormat)
	}
}

func exportJSONL(w io.Writer, records []*audit.Record) error {
	for _, r := range records {
		if err := writeCompactJSON(w, r); err != nil {
			return err
		}
	}
	return nil
}

// exportCSV flattens the headline fields; the full breakdown stays in
// the JSONL export.
func exportCSV(w io.Writer, records []*audit.Record) error {
	cw := csv.NewWriter(w)
	header := []string{"test_id", "timestamp", "model", "provider", "verdict", "lambda", "ncd", "entropy_ratio", "structural_quality", "duration_ms"}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, r := range records {
		row := []string{
			r.TestID,
			r.Timestamp.UTC().Format(time.RFC3339),
			r.Model,
			r.Provider,
			string(r.Result.Verdict),
			formatFloat(r.Result.Lambda),
			formatFloat(r.Result.Compression.Corrected),
			formatFloat(r.Result.Entropy.Ratio),
			formatFloat(r.Result.Topology.StructuralQuality),
			strconv.FormatInt(r.DurationMS, 10),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

func runAuditSummary(cmd *cobra.Command, args []string) error {
	store, err := openQueryStore()
	if err != nil {
		return err
	}
	defer store.Close()

	report, err := store.Summary()
	if err != nil {
		return fmt.Errorf("summary failed: %w", err)
	}

	w := cmd.OutOrStdout()
	if auditSummaryJSON {
		return writeIndentedJSON(w, report)
	}

	fmt.Fprintf(w, "%d stored runs\n", report.Total)

	if len(report.ByVerdict) > 0 {
		fmt.Fprintln(w, "\nBy verdict:")
		fmt.Fprintf(w, "  %-10s  %6s  %10s  %10s  %10s\n", "VERDICT", "COUNT", "MEAN", "MIN", "MAX")
		for _, v := range report.ByVerdict {
			fmt.Fprintf(w, "  %-10s  %6d  %10.4f  %10.4f  %10.4f\n",
				v.Verdict, v.Count, v.MeanLambda, v.MinLambda, v.MaxLambda)
		}
	}

	if len(report.ByModel) > 0 {
		fmt.Fprintln(w, "\nBy model:")
		fmt.Fprintf(w, "  %-28s  %6s  %10s  %s\n", "MODEL", "COUNT", "MEAN", "VERDICTS")
		for _, m := range report.ByModel {
			fmt.Fprintf(w, "  %-28s  %6d  %10.4f  %s\n",
				truncateName(m.Model, 28), m.Count, m.MeanLambda, formatVerdictCounts(m.Verdicts))
		}
	}
	return nil
}

// formatVerdictCounts renders a verdict histogram in fixed band order.
func formatVerdictCounts(counts map[string]int) string {
	order := []scoring.Verdict{
		scoring.VerdictZombie, scoring.VerdictRebel, scoring.VerdictArchitect, scoring.VerdictFool,
	}
	parts := make([]string, 0, len(order))
	for _, v := range order {
		if n, ok := counts[string(v)]; ok {
			parts = append(parts, fmt.Sprintf("%s:%d", v, n))
		}
	}
	return strings.Join(parts, " ")
}

// parseSince accepts absolute dates and the relative h/d shorthand.
func parseSince(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}

	now := time.Now()
	if strings.HasSuffix(s, "h") {
		if hours, err := strconv.Atoi(strings.TrimSuffix(s, "h")); err == nil {
			return now.Add(-time.Duration(hours) * time.Hour), nil
		}
	}
	if strings.HasSuffix(s, "d") {
		if days, err := strconv.Atoi(strings.TrimSuffix(s, "d")); err == nil {
			return now.AddDate(0, 0, -days), nil
		}
	}
	return time.Time{}, errors.InvalidInputf("cannot parse --since %q (try 24h, 7d, or 2026-08-01)", s)
}
