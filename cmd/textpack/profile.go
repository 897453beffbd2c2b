package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/textpack/internal/compression"
	"github.com/fyrsmithlabs/textpack/internal/profile"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Inspect custom domain profiles",
}

var profileValidateCmd = &cobra.Command{
	Use:   "validate files...",
	Short: "Check profile files for errors",
	Long: `Parse and validate JSON or TOML profile files. Codes must be single
non-ASCII symbols outside the generated code ranges and patterns must be
unique.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runProfileValidate,
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List built-in domains and profiles in profiles.dir",
	Args:  cobra.NoArgs,
	RunE:  runProfileList,
}

func init() {
	profileCmd.AddCommand(profileValidateCmd)
	profileCmd.AddCommand(profileListCmd)
}

func runProfileValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	failed := 0
	for _, path := range args {
		p, err := profile.LoadFile(path)
		if err != nil {
			failed++
			fmt.Fprintf(out, "FAIL %s: %v\n", path, err)
			continue
		}
		fmt.Fprintf(out, "ok   %s: %s (%d patterns)\n", path, p.ID, len(p.Patterns))
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d profiles invalid", failed, len(args))
	}
	return nil
}

func runProfileList(cmd *cobra.Command, _ []string) error {
	a, err := setupApp()
	if err != nil {
		return err
	}
	defer a.close()

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSOURCE\tPATTERNS")
	for _, name := range compression.Domains() {
		t, _ := compression.IndustryTable(name)
		fmt.Fprintf(w, "%s\tbuilt-in\t%d\n", name, len(t))
	}
	for _, p := range a.profileRegistry(commandContext(cmd)).List() {
		fmt.Fprintf(w, "%s\t%s\t%d\n", p.ID, p.Source, len(p.Patterns))
	}
	return w.Flush()
}
