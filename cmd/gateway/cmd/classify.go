package cmd

import (
	"encoding/json"
	"strings"

	"github.com/jrsteele09/go-assistant-gateway/intent"
	"github.com/spf13/cobra"
)

var classifyCmd = &cobra.Command{
	Use:   "classify <command text...>",
	Short: "Print the intent descriptor for a free text command",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(intent.Classify(strings.Join(args, " ")))
	},
}

func init() {
	rootCmd.AddCommand(classifyCmd)
}
