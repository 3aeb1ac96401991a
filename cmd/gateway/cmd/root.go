package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Assistant gateway for Google Calendar, Google Tasks and voice services",
	Long: `Logs a user in with Google, keeps their grant in a server side session and
calls Calendar and Tasks on their behalf. Also proxies chat completion,
text to speech and weather lookups for the assistant front end.`,
	SilenceUsage: true,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (yaml, toml or json); environment variables always apply")
}
