package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"qnup/internal/config"
	"qnup/internal/journal"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history [batch-id]",
	Short: "Show batches recorded in the upload journal",
	Long: `Without arguments, lists the most recent batches. With a batch id, lists
the objects of that batch; --failed keeps only the failed ones.`,
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE:         runHistory,
}

func init() {
	historyCmd.Flags().String("journal", "", "journal database (defaults to output.journal from --config)")
	historyCmd.Flags().Int("limit", 20, "number of batches to list, 0 for all")
	historyCmd.Flags().Bool("failed", false, "only list failed objects of the batch")
	historyCmd.Flags().Bool("json", false, "print JSON")
}

func runHistory(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	path, err := flags.GetString("journal")
	if err != nil {
		return err
	}
	asJSON, err := flags.GetBool("json")
	if err != nil {
		return err
	}
	limit, err := flags.GetInt("limit")
	if err != nil {
		return err
	}
	failed, err := flags.GetBool("failed")
	if err != nil {
		return err
	}

	if path == "" {
		cfg, err := config.Read(configFile)
		if err != nil {
			return err
		}
		path = cfg.Output.Journal
	}
	if path == "" {
		return errors.New("no journal configured, use --journal or output.journal")
	}

	store, err := journal.NewSQLiteStore(path)
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}
	defer store.Close()

	out := cmd.OutOrStdout()

	if len(args) == 0 {
		batches, err := store.ListBatches(limit)
		if err != nil {
			return fmt.Errorf("failed to list batches: %w", err)
		}
		if asJSON {
			return writeJSON(out, batches)
		}
		return printBatches(out, batches)
	}

	batch, err := store.GetBatch(args[0])
	if err != nil {
		return fmt.Errorf("failed to read batch: %w", err)
	}
	if batch == nil {
		return fmt.Errorf("batch %s not found", args[0])
	}

	var status journal.Status
	if failed {
		status = journal.StatusFailed
	}
	records, err := store.ListRecords(batch.ID, status)
	if err != nil {
		return fmt.Errorf("failed to list records: %w", err)
	}
	if asJSON {
		return writeJSON(out, records)
	}
	return printRecords(out, records)
}

func printBatches(w io.Writer, batches []*journal.Batch) error {
	if len(batches) == 0 {
		_, _ = fmt.Fprintln(w, "No batches recorded")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tSTARTED\tROOT\tBUCKET\tOK\tFAILED\tSKIPPED\tSIZE")
	for _, b := range batches {
		started := humanize.Time(b.StartedAt)
		if !b.Finished() {
			started += " (unfinished)"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			b.ID, started, b.Root, b.Bucket, b.Success, b.Failed, b.Skipped, humanize.IBytes(uint64(max(b.Bytes, 0))))
	}
	return tw.Flush()
}

func printRecords(w io.Writer, records []*journal.Record) error {
	if len(records) == 0 {
		_, _ = fmt.Fprintln(w, "No objects recorded")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "STATUS\tKEY\tPATH\tSIZE\tERROR")
	for _, r := range records {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			r.Status, r.RemoteKey, r.LocalPath, humanize.IBytes(uint64(max(r.Size, 0))), r.Error)
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
