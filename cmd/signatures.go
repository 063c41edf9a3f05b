package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/maxvaer/cmsid/internal/signature"
)

var signaturesJSON bool

var signaturesCmd = &cobra.Command{
	Use:   "signatures",
	Short: "List the signature table in probe order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rules, err := signature.Load(cmd.Context(), opts.SignaturesPath)
		if err != nil {
			return fmt.Errorf("loading signatures: %w", err)
		}
		rules = rules.Filter(opts.CMSNames)

		if signaturesJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(rules)
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "#\tCMS\tMODE\tPATH\tPATTERN")
		for i, r := range rules {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", i+1, r.CMS, r.Mode, r.Path, r.Pattern)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		if !opts.Quiet {
			fmt.Fprintf(os.Stderr, "\n[*] %d rules, %d CMS\n", len(rules), len(rules.CMSNames()))
		}
		return nil
	},
}

func init() {
	signaturesCmd.Flags().BoolVar(&signaturesJSON, "json", false, "Print the table as JSON")
}
