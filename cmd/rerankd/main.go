package main

import (
	"fmt"
	"os"

	"github.com/cloo-solutions/rerankd/internal/cli"
	"github.com/cloo-solutions/rerankd/internal/cli/admin"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "rerankd",
		Short: "Feedback-weighted search reranking service",
		Long:  "rerankd logs searches, records user feedback on results and reranks results by past feedback",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.MigrateCmd())
	rootCmd.AddCommand(admin.ExportCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
