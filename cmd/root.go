package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/simjak/docling/internal/logger"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "docling",
	Short: "Docling - document conversion with OCR integration",
	Long: `Docling converts scanned and digital documents into structured text.

Pages are rendered, regions that need recognition are handed to an external
OCR engine, and the recognized cells are mapped back into page coordinates
and reconciled with any text the document already carried.

Use the convert subcommand to process a document and the engines subcommand
to check which OCR engines are available on this system.`,
	Version: version,
	Run: func(cmd *cobra.Command, args []string) {
		log := logger.WithComponent("root")
		log.Info().
			Str("version", version).
			Msg("Docling CLI executed")

		fmt.Println("Welcome to Docling!")
		fmt.Println("Use --help to see available commands and options.")
	},
}

func Execute() {
	log := logger.WithComponent("cmd")

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolP("version", "v", false, "Print version information")
}
