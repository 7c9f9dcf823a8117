package main

import (
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var noColor = os.Getenv("NO_COLOR") != ""

var rootCmd = &cobra.Command{
	Use:   "houhou",
	Short: "Backend for the 厚厚私塾 site",
	Long: `houhou serves the 厚厚私塾 site's courses, articles and login.

Content comes from the remote content API while it is reachable. After the
first connection failure every call is answered from the local store until
the next logout.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", noColor, "disable colored output")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(servicesCmd)
	rootCmd.AddCommand(resourcesCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(sessionCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		printError("%v", err)
		os.Exit(1)
	}
}
