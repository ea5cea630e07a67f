package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var classifyCmd = &cobra.Command{
	Use:   "classify <file.pptx>",
	Short: "Report per-slide complexity without ingesting",
	Long: `Classify scores every slide of a presentation against the complexity
weights (diagrams, charts, tables, groups, connectors, embedded objects) and
reports which slides would need an alternate representation. Nothing is
extracted or stored.`,
	Args: cobra.ExactArgs(1),
	RunE: runClassify,
}

func runClassify(cmd *cobra.Command, args []string) error {
	eng, err := newEngine(cmd)
	if err != nil {
		return err
	}
	defer eng.Close()

	reports, err := eng.Classify(context.Background(), args[0])
	if err != nil {
		return err
	}

	if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(reports)
	}

	fmt.Printf("%-6s  %-6s  %-10s  %s\n", "Slide", "Score", "Path", "Title")
	for _, r := range reports {
		path := "structural"
		if r.RequiresAlternate {
			path = "alternate"
		}
		title := r.Title
		if len(title) > 50 {
			title = title[:47] + "..."
		}
		fmt.Printf("%-6d  %-6d  %-10s  %s\n", r.Index+1, r.Score, path, title)
	}
	return nil
}

func init() {
	classifyCmd.Flags().Bool("json", false, "output as JSON")

	rootCmd.AddCommand(classifyCmd)
}
