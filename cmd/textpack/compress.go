package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/textpack/internal/archive"
	"github.com/fyrsmithlabs/textpack/internal/compression"
	"github.com/fyrsmithlabs/textpack/internal/history"
)

// compressFlags holds the options shared by compress and batch.
type compressFlags struct {
	domain   string
	profile  string
	params   string
	fileType string
	out      string
	history  string
	level    string
	steps    bool
	json     bool
}

var (
	compressOpts  compressFlags
	batchOpts     compressFlags
	decompressRaw bool
)

var compressCmd = &cobra.Command{
	Use:   "compress [file|-]",
	Short: "Compress a file or stdin",
	Long: `Compress text from a file or stdin.

The compressed payload is printed to stdout. Use --out to write an archive
that keeps the mappings needed for an exact decode.

Examples:
  # Compress a file with the medical overlay
  textpack compress --domain medical chart.txt

  # Keep an archive and show every stage
  cat notes.txt | textpack compress - --out notes.txpk --steps

  # Tune the engine for this call
  textpack compress --params "contexts=40,block=256" big.txt`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCompress,
}

var decompressCmd = &cobra.Command{
	Use:   "decompress [archive|-]",
	Short: "Decode an archive or raw payload",
	Long: `Decode an archive written by "textpack compress --out".

With --raw the input is a bare payload without mappings. Only the run-length
and base dictionary stages can then be undone.

Examples:
  textpack decompress notes.txpk > notes.txt
  echo "3×a†" | textpack decompress --raw -`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDecompress,
}

var batchCmd = &cobra.Command{
	Use:   "batch files...",
	Short: "Compress several files at once",
	Long: `Compress every named file independently and print the batch summary as
JSON. A file that cannot be compressed is reported as a failed item and
does not stop the others.

With --out the archives are written to that directory as <name>.txpk.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBatch,
}

func init() {
	addCompressFlags(compressCmd, &compressOpts)
	compressCmd.Flags().StringVar(&compressOpts.out, "out", "", "write an archive to this path")
	compressCmd.Flags().StringVar(&compressOpts.history, "history", "", "append the result to this history file")
	compressCmd.Flags().BoolVar(&compressOpts.steps, "steps", false, "print every pipeline stage")
	compressCmd.Flags().BoolVar(&compressOpts.json, "json", false, "print the full result as JSON")

	addCompressFlags(batchCmd, &batchOpts)
	batchCmd.Flags().StringVar(&batchOpts.out, "out", "", "write archives into this directory")

	decompressCmd.Flags().BoolVar(&decompressRaw, "raw", false, "input is a bare payload without mappings")
}

func addCompressFlags(cmd *cobra.Command, f *compressFlags) {
	cmd.Flags().StringVar(&f.domain, "domain", "", "built-in overlay: "+strings.Join(compression.Domains(), ", "))
	cmd.Flags().StringVar(&f.profile, "profile", "", "custom profile id or file")
	cmd.Flags().StringVar(&f.params, "params", "", `algorithm parameters, e.g. "contexts=40,words=20"`)
	cmd.Flags().StringVar(&f.fileType, "file-type", "", "text, image, video, document or generic")
	cmd.Flags().StringVar(&f.level, "level", "default", "archive level: fastest, default or best")
}

// options resolves the flags into engine options. Profile patterns are
// the only caller table on the command line.
func (a *app) options(cmd *cobra.Command, f *compressFlags) (compression.Options, error) {
	fileType, err := compression.ParseFileType(f.fileType)
	if err != nil {
		return compression.Options{}, err
	}
	opts := compression.Options{
		FileType:        fileType,
		Domain:          f.domain,
		AlgorithmParams: f.params,
	}
	if f.profile != "" {
		p, err := a.resolveProfile(commandContext(cmd), f.profile)
		if err != nil {
			return compression.Options{}, err
		}
		opts.DomainPatterns = p.Table()
	}
	return opts, nil
}

func runCompress(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	a, err := setupApp()
	if err != nil {
		return err
	}
	defer a.close()

	level, err := archiveLevel(compressOpts.level)
	if err != nil {
		return err
	}
	input, err := readInput(cmd, args)
	if err != nil {
		return err
	}
	opts, err := a.options(cmd, &compressOpts)
	if err != nil {
		return err
	}

	text := string(input)
	res, err := a.svc.Compress(ctx, text, opts)
	if err != nil {
		return err
	}

	store, err := a.historyStore(compressOpts.history)
	if err != nil {
		return err
	}
	if store != nil && res.OriginalSize > 0 {
		if err := store.Append(ctx, history.NewRecord(text, res, opts, now())); err != nil {
			a.logger.Warn(ctx, "failed to record history", zap.Error(err))
		}
	}

	if compressOpts.out != "" {
		if err := writeArchive(compressOpts.out, level, res); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s: %d -> %d chars (%.2f%% saved)\n",
			compressOpts.out, res.OriginalSize, res.CompressedSize, res.Ratio)
	}

	out := cmd.OutOrStdout()
	switch {
	case compressOpts.json:
		return writeJSON(out, res)
	case compressOpts.steps:
		printSteps(out, res)
		return nil
	case compressOpts.out == "":
		fmt.Fprintln(out, res.Compressed)
	}
	return nil
}

func runDecompress(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	a, err := setupApp()
	if err != nil {
		return err
	}
	defer a.close()

	data, err := readInput(cmd, args)
	if err != nil {
		return err
	}

	var (
		payload  string
		mappings *compression.Mappings
	)
	if decompressRaw {
		// compress prints the payload with one trailing newline.
		payload = strings.TrimSuffix(string(data), "\n")
	} else {
		codec, err := archive.NewCodec(archive.DefaultLevel)
		if err != nil {
			return err
		}
		defer codec.Close()

		env, err := codec.Unpack(data)
		if err != nil {
			if errors.Is(err, archive.ErrNotArchive) {
				return fmt.Errorf("%w (use --raw for a bare payload)", err)
			}
			return err
		}
		payload, mappings = env.Payload, env.Mappings
	}

	out, err := a.svc.Decompress(ctx, payload, mappings)
	if err != nil {
		return err
	}
	if !out.Lossless {
		fmt.Fprintln(cmd.ErrOrStderr(), "warning: no mappings, output may differ from the original")
	}
	_, err = io.WriteString(cmd.OutOrStdout(), out.Text)
	return err
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	a, err := setupApp()
	if err != nil {
		return err
	}
	defer a.close()

	if limit := a.cfg.Engine.MaxBatchItems; limit > 0 && len(args) > limit {
		return fmt.Errorf("batch has %d files, limit is %d", len(args), limit)
	}
	level, err := archiveLevel(batchOpts.level)
	if err != nil {
		return err
	}
	opts, err := a.options(cmd, &batchOpts)
	if err != nil {
		return err
	}

	texts := make([]string, len(args))
	for i, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read file %s: %w", path, err)
		}
		texts[i] = string(data)
	}

	res := a.svc.BatchCompress(ctx, texts, opts)

	if batchOpts.out != "" {
		if err := os.MkdirAll(batchOpts.out, 0700); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		names := archiveNames(args)
		for i, item := range res.Results {
			if !item.Success {
				continue
			}
			r := &compression.Result{
				Compressed:     item.Compressed,
				Mappings:       item.Mappings,
				Ratio:          item.Ratio,
				OriginalSize:   item.OriginalSize,
				CompressedSize: item.CompressedSize,
			}
			path := filepath.Join(batchOpts.out, names[i])
			if err := writeArchive(path, level, r); err != nil {
				return err
			}
		}
	}

	if err := writeJSON(cmd.OutOrStdout(), res); err != nil {
		return err
	}
	if failed := res.Failed(); failed > 0 {
		return fmt.Errorf("%d of %d items failed", failed, len(res.Results))
	}
	return nil
}

// archiveNames maps each input path to a distinct archive file name. Inputs
// sharing a base name get their argument position appended.
func archiveNames(paths []string) []string {
	counts := make(map[string]int, len(paths))
	for _, p := range paths {
		counts[filepath.Base(p)]++
	}

	names := make([]string, len(paths))
	used := make(map[string]bool, len(paths))
	for i, p := range paths {
		base := filepath.Base(p)
		name := base + ".txpk"
		if counts[base] > 1 {
			name = fmt.Sprintf("%s.%d.txpk", base, i+1)
		}
		for n := 2; used[name]; n++ {
			name = fmt.Sprintf("%s.%d-%d.txpk", base, i+1, n)
		}
		used[name] = true
		names[i] = name
	}
	return names
}

func writeArchive(path string, level int, res *compression.Result) error {
	codec, err := archive.NewCodec(level)
	if err != nil {
		return err
	}
	defer codec.Close()
	return codec.WriteFile(path, archive.FromResult(res, now()))
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printSteps(w io.Writer, res *compression.Result) {
	for _, step := range res.Steps {
		fmt.Fprintf(w, "== %s ==\n", step.Name)
		switch {
		case step.Before != nil && step.After != nil:
			fmt.Fprintf(w, "before: %s\nafter:  %s\n", *step.Before, *step.After)
		case step.Before != nil:
			fmt.Fprintln(w, *step.Before)
		case step.After != nil:
			fmt.Fprintln(w, *step.After)
		}
	}
	fmt.Fprintf(w, "\n%d -> %d chars, %.2f%% saved, reversible=%t\n",
		res.OriginalSize, res.CompressedSize, res.Ratio, res.Reversible)
}
