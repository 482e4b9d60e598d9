// Package main provides the entry point for the refang CLI tool.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/refang/pkg/version"
)

// rootOptions holds the persistent flags shared by all commands.
type rootOptions struct {
	configPath string
	verbose    bool
	quiet      bool
}

func main() {
	version.InitBinaryVersion()

	err := newRootCmd().Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "refang",
		Short: "refang - rule-driven PHP source rewriting",
		Long: `refang rewrites PHP sources with a set of AST rules.

Commands:
  process   Rewrite PHP files and show or write the result
  rules     List the configured rewrite rules
  mcp       Start an MCP server exposing the rewrite tool`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&root.configPath, "config", "", "config file (default is ./.refang.yaml or $HOME/.refang.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&root.verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVarP(&root.quiet, "quiet", "q", false, "suppress output")

	rootCmd.AddCommand(processCmd(root))
	rootCmd.AddCommand(rulesCmd(root))
	rootCmd.AddCommand(mcpCmd(root))
	rootCmd.AddCommand(versionCmd())

	return rootCmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "refang %s\n", version.String())
		},
	}
}
