package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/textpack/internal/history"
)

var (
	historyPath  string
	historyLimit int
	historyOut   string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect the compression history",
	Long: `Inspect the history written by "textpack compress" and the HTTP API.

The store is history.path from the config unless --file is given.`,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent records, newest first",
	Args:  cobra.NoArgs,
	RunE:  runHistoryList,
}

var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export all records as a JSON array",
	Args:  cobra.NoArgs,
	RunE:  runHistoryExport,
}

var historyImportCmd = &cobra.Command{
	Use:   "import [file|-]",
	Short: "Import records from a JSON array, skipping known ids",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runHistoryImport,
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every record",
	Args:  cobra.NoArgs,
	RunE:  runHistoryClear,
}

func init() {
	historyCmd.PersistentFlags().StringVar(&historyPath, "file", "", "history file (default history.path)")
	historyListCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum records to show (0 for all)")
	historyExportCmd.Flags().StringVar(&historyOut, "out", "", "write to this file instead of stdout")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyExportCmd)
	historyCmd.AddCommand(historyImportCmd)
	historyCmd.AddCommand(historyClearCmd)
}

// openHistory opens the store named by --file or the config. Unlike
// compress, an explicit history.enabled is not required to read it.
func openHistory() (*app, *history.Store, error) {
	a, err := setupApp()
	if err != nil {
		return nil, nil, err
	}
	path := historyPath
	if path == "" {
		path = a.cfg.History.Path
	}
	if path == "" {
		a.close()
		return nil, nil, errors.New("no history file: set history.path or pass --file")
	}
	store, err := a.historyStore(path)
	if err != nil {
		a.close()
		return nil, nil, err
	}
	return a, store, nil
}

func runHistoryList(cmd *cobra.Command, _ []string) error {
	a, store, err := openHistory()
	if err != nil {
		return err
	}
	defer a.close()

	records, err := store.List(historyLimit)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tORIGINAL\tCOMPRESSED\tSAVED")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%.2f%%\n",
			r.ID, time.UnixMilli(r.Timestamp).UTC().Format(time.RFC3339),
			r.OriginalSize, r.CompressedSize, r.Ratio)
	}
	return w.Flush()
}

func runHistoryExport(cmd *cobra.Command, _ []string) error {
	a, store, err := openHistory()
	if err != nil {
		return err
	}
	defer a.close()

	if historyOut == "" {
		return store.Export(cmd.OutOrStdout())
	}
	f, err := os.OpenFile(historyOut, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", historyOut, err)
	}
	if err := store.Export(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func runHistoryImport(cmd *cobra.Command, args []string) error {
	a, store, err := openHistory()
	if err != nil {
		return err
	}
	defer a.close()

	data, err := readInput(cmd, args)
	if err != nil {
		return err
	}
	n, err := store.Import(commandContext(cmd), bytes.NewReader(data))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "imported %d records\n", n)
	return nil
}

func runHistoryClear(cmd *cobra.Command, _ []string) error {
	a, store, err := openHistory()
	if err != nil {
		return err
	}
	defer a.close()
	return store.Clear()
}
