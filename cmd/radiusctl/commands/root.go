package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/radiusgo/radiusd/internal/radius"
)

var (
	// dict is the loaded dictionary, populated in PersistentPreRunE.
	dict *radius.Dictionary

	// dictionaryPath is the path to the dictionary file every subcommand
	// loads before doing anything else.
	dictionaryPath string

	// serverAddr is the radiusd host (no port) the send subcommands talk to.
	serverAddr string

	// secret is the shared secret used to sign requests and verify replies.
	secret string

	// outputFormat controls the output format for all commands (table or json).
	outputFormat string
)

// rootCmd is the top-level cobra command for radiusctl.
var rootCmd = &cobra.Command{
	Use:   "radiusctl",
	Short: "CLI client for a RADIUS server",
	Long:  "radiusctl sends RADIUS requests, dumps a dictionary, and decodes packet captures.",
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		if dictionaryPath == "" {
			return nil
		}
		d, err := radius.LoadDictionaryFile(dictionaryPath)
		if err != nil {
			return fmt.Errorf("load dictionary: %w", err)
		}
		dict = d
		return nil
	},
	// Silence cobra's built-in usage/error printing so we control it.
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dictionaryPath, "dictionary", "", "path to the dictionary file")
	rootCmd.PersistentFlags().StringVar(&serverAddr, "server", "127.0.0.1", "radiusd host (no port)")
	rootCmd.PersistentFlags().StringVar(&secret, "secret", "", "shared secret")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "table", "output format: table, json")

	rootCmd.AddCommand(sendCmd())
	rootCmd.AddCommand(dictCmd())
	rootCmd.AddCommand(decodeCmd())
	rootCmd.AddCommand(versionCmd())
}

// Execute runs the root command and exits with code 1 on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
