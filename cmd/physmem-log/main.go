// Command physmem-log analyzes trace files written by physmem-view -trace.
//
// Usage:
//
//	physmem-log view <file.ptrace> [--layer L] [--category C] [--op read|write]
//	physmem-log stats <file.ptrace>
//	physmem-log export <file.ptrace> --format jsonl|csv [-o out]
//	physmem-log filter <file.ptrace> -o out.ptrace [filter flags]
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/physmem-tools/physmem-go/cmd/physmem-log/commands"
)

var rootCmd = &cobra.Command{
	Use:   "physmem-log",
	Short: "Analyze physmem-view trace files.",
	Long: `physmem-log reads the CBOR trace written by physmem-view -trace ` +
		`and prints, summarizes, exports or narrows it.`,
	SilenceUsage: true,
}

var (
	filterOpts commands.FilterOptions
	viewLimit  int
	exportFmt  string
	outputPath string
)

var viewCmd = &cobra.Command{
	Use:   "view <file>",
	Short: "Print trace events in human-readable form.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filter, err := filterOpts.Build()
		if err != nil {
			return err
		}
		return commands.RunView(args[0], filter, viewLimit, cmd.OutOrStdout())
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats <file>",
	Short: "Print aggregate statistics for a trace.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return commands.RunStats(args[0], cmd.OutOrStdout())
	},
}

var exportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Export a trace as JSON lines or CSV.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filter, err := filterOpts.Build()
		if err != nil {
			return err
		}
		return commands.RunExport(args[0], exportFmt, outputPath, filter)
	},
}

var filterCmd = &cobra.Command{
	Use:   "filter <file>",
	Short: "Write the matching events to a new trace file.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filter, err := filterOpts.Build()
		if err != nil {
			return err
		}
		n, err := commands.RunFilter(args[0], outputPath, filter)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d events to %s\n", n, outputPath)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{viewCmd, exportCmd, filterCmd} {
		f := c.Flags()
		f.StringVar(&filterOpts.SessionID, "session", "", "Filter by session ID")
		f.StringVar(&filterOpts.Layer, "layer", "", "Filter by layer (device, session, service)")
		f.StringVar(&filterOpts.Category, "category", "", "Filter by category (access, state, refresh, edit, error)")
		f.StringVar(&filterOpts.Op, "op", "", "Filter accesses by op (read, write)")
		f.StringVar(&filterOpts.AddrMin, "addr-min", "", "Lowest address, hex")
		f.StringVar(&filterOpts.AddrMax, "addr-max", "", "Highest address, hex")
		f.StringVar(&filterOpts.TimeStart, "time-start", "", "Events at or after this RFC3339 time")
		f.StringVar(&filterOpts.TimeEnd, "time-end", "", "Events before this RFC3339 time")
	}

	viewCmd.Flags().IntVar(&viewLimit, "limit", 0, "Stop after this many events (0 = all)")

	exportCmd.Flags().StringVar(&exportFmt, "format", "jsonl", "Output format: jsonl or csv")
	exportCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file (default stdout)")

	filterCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output trace file")
	_ = filterCmd.MarkFlagRequired("output")

	rootCmd.AddCommand(viewCmd, statsCmd, exportCmd, filterCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
