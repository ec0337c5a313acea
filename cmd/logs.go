package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/askdb/askdb/internal/querylog"
)

var (
	logsRecentCount int
	logsPruneDays   int
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Inspect the query interaction log",
}

var logsRecentCmd = &cobra.Command{
	Use:   "recent",
	Short: "Show the most recent questions and answers",
	RunE:  runLogsRecent,
}

var logsSearchCmd = &cobra.Command{
	Use:   "search [term]",
	Short: "Search past questions and answers",
	Args:  cobra.ExactArgs(1),
	RunE:  runLogsSearch,
}

var logsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate statistics for the query log",
	RunE:  runLogsStats,
}

var logsExportCmd = &cobra.Command{
	Use:   "export [path]",
	Short: "Export the full query log as CSV",
	Args:  cobra.ExactArgs(1),
	RunE:  runLogsExport,
}

var logsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove log records older than the retention window",
	RunE:  runLogsPrune,
}

func init() {
	logsRecentCmd.Flags().IntVarP(&logsRecentCount, "count", "n", 10, "number of records to show")
	logsPruneCmd.Flags().IntVar(&logsPruneDays, "days", 90, "retention window in days")

	logsCmd.AddCommand(logsRecentCmd)
	logsCmd.AddCommand(logsSearchCmd)
	logsCmd.AddCommand(logsStatsCmd)
	logsCmd.AddCommand(logsExportCmd)
	logsCmd.AddCommand(logsPruneCmd)
}

func openQueryLog() (*querylog.Logger, error) {
	cfg, err := setup()
	if err != nil {
		return nil, err
	}

	return buildQueryLog(cfg)
}

func runLogsRecent(cmd *cobra.Command, _ []string) error {
	queryLog, err := openQueryLog()
	if err != nil {
		return err
	}

	records, err := queryLog.Recent(logsRecentCount)
	if err != nil {
		return err
	}

	if len(records) == 0 {
		cmd.Println("No logged queries yet.")
		return nil
	}

	printRecords(cmd, records)

	return nil
}

func runLogsSearch(cmd *cobra.Command, args []string) error {
	queryLog, err := openQueryLog()
	if err != nil {
		return err
	}

	records, err := queryLog.Search(args[0])
	if err != nil {
		return err
	}

	if len(records) == 0 {
		cmd.Printf("No logged queries match %q.\n", args[0])
		return nil
	}

	printRecords(cmd, records)

	return nil
}

func printRecords(cmd *cobra.Command, records []querylog.Record) {
	for _, record := range records {
		status := "ok"
		if !record.Success {
			status = "failed"
		}

		cmd.Printf("%s  [%s]  %s\n",
			record.Timestamp.Format("2006-01-02 15:04"), status, record.OriginalQuestion)
		cmd.Printf("    template: %s  rows: %d  took: %dms\n",
			record.TemplateUsed, record.ResultsCount, record.ProcessingTimeMS)

		if record.ErrorMessage != "" {
			cmd.Printf("    error: %s\n", record.ErrorMessage)
		}

		cmd.Println()
	}
}

func runLogsStats(cmd *cobra.Command, _ []string) error {
	queryLog, err := openQueryLog()
	if err != nil {
		return err
	}

	stats, err := queryLog.Summarize()
	if err != nil {
		return err
	}

	if stats.TotalQueries == 0 {
		cmd.Println("No logged queries yet.")
		return nil
	}

	cmd.Printf("Total queries:    %d\n", stats.TotalQueries)
	cmd.Printf("Success rate:     %.1f%%\n", stats.SuccessRate*100)
	cmd.Printf("Avg processing:   %.0fms\n", stats.AvgProcessingMS)
	cmd.Printf("Time range:       %s to %s\n",
		stats.Oldest.Format("2006-01-02"), stats.Newest.Format("2006-01-02"))

	if len(stats.TopTemplates) > 0 {
		cmd.Println("Top templates:")

		for _, tc := range stats.TopTemplates {
			cmd.Printf("  %-30s %d\n", tc.Template, tc.Count)
		}
	}

	return nil
}

func runLogsExport(cmd *cobra.Command, args []string) error {
	queryLog, err := openQueryLog()
	if err != nil {
		return err
	}

	if err := queryLog.Export(args[0]); err != nil {
		return err
	}

	cmd.Printf("Query log exported to %s\n", args[0])

	return nil
}

func runLogsPrune(cmd *cobra.Command, _ []string) error {
	if logsPruneDays <= 0 {
		return fmt.Errorf("retention window must be positive, got %d days", logsPruneDays)
	}

	queryLog, err := openQueryLog()
	if err != nil {
		return err
	}

	removed, err := queryLog.Prune(time.Duration(logsPruneDays) * 24 * time.Hour)
	if err != nil {
		return err
	}

	cmd.Printf("Removed %d record(s) older than %d days.\n", removed, logsPruneDays)

	return nil
}
