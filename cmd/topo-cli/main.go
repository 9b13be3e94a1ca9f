package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kination/runtopo/internal/compiler"
)

var version = "v0.1.0"

var (
	configPath   string
	outputDir    string
	outputFormat string
	manifestPath string
	renderFormat string
)

var rootCmd = &cobra.Command{
	Use:   "topo-cli",
	Short: "runtopo CLI - Compute task topologies from PipelineRun manifests",
	Long: `runtopo CLI reads PipelineRun and TaskRun manifests and computes the
task topology of each run: which tasks depend on which, and how far each
task got.`,
	SilenceUsage: true,
}

var compileCmd = &cobra.Command{
	Use:   "compile",
	Short: "Compile PipelineRun manifests into topology files",
	Long: `Compile PipelineRun manifests into topology files. The compiler will:
  1. Scan the configured source directories
  2. Decode every .yaml, .yml and .json manifest
  3. Use the TaskRuns of each source as the executions of its PipelineRuns
  4. Save one topology file per PipelineRun to the output directory`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := compiler.ParseFormat(outputFormat)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "🚀 Starting runtopo compiler...")
		fmt.Fprintf(out, "   - Config: %s\n", configPath)
		fmt.Fprintf(out, "   - Output: %s\n", outputDir)

		if err := compiler.Compile(cmd.Context(), configPath, outputDir, format, out); err != nil {
			return fmt.Errorf("compilation failed: %w", err)
		}

		fmt.Fprintln(out, "✅ All topologies compiled successfully!")
		return nil
	},
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Print the topology of the PipelineRuns in a manifest",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := compiler.ParseFormat(renderFormat)
		if err != nil {
			return err
		}

		m, err := compiler.ReadManifestFile(manifestPath)
		if err != nil {
			return err
		}
		if len(m.PipelineRuns) == 0 {
			return fmt.Errorf("no PipelineRun found in %s", manifestPath)
		}

		results, err := compiler.Topologies(cmd.Context(), m)
		if err != nil {
			return err
		}
		for _, res := range results {
			if err := compiler.Encode(cmd.OutOrStdout(), res, format); err != nil {
				return err
			}
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of topo-cli",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "runtopo CLI %s\n", version)
	},
}

func init() {
	// Add flags to compile command
	compileCmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to the configuration file")
	compileCmd.Flags().StringVarP(&outputDir, "out", "o", "dist", "Directory to save topology files")
	compileCmd.Flags().StringVarP(&outputFormat, "format", "f", "json", "Output format: json, yaml or dot")

	renderCmd.Flags().StringVarP(&manifestPath, "file", "f", "", "Manifest file containing PipelineRuns and TaskRuns")
	renderCmd.Flags().StringVarP(&renderFormat, "output", "o", "dot", "Output format: json, yaml or dot")
	_ = renderCmd.MarkFlagRequired("file")

	// Add commands to root
	rootCmd.AddCommand(compileCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "❌ Error: %v\n", err)
		os.Exit(1)
	}
}
