package main

import (
	"fmt"
	"os"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"hotel-concierge/internal/app"
	"hotel-concierge/internal/pkg/pdfextract"
)

// --- extract ---

var extractCmd = &cobra.Command{
	Use:   "extract <file.pdf>",
	Short: "Print the text the relay would extract from a PDF",
	Long: `Print the text the relay would extract from a PDF.

Useful for checking a hotel handbook before uploading it from the dashboard.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("read pdf: %w", err)
		}
		defer f.Close()

		text, err := pdfextract.ExtractText(f)
		if err != nil {
			return err
		}

		quiet, _ := cmd.Flags().GetBool("quiet")
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "characters: %d\n", utf8.RuneCountInString(text))
		if !quiet {
			fmt.Fprintln(out, text)
		}
		return nil
	},
}

// --- hash-password ---

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password <password>",
	Short: "Print a bcrypt hash for auth.admin_password_hash",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hash, err := app.HashPassword(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}

func init() {
	extractCmd.Flags().BoolP("quiet", "q", false, "only print the character count")
}
