package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Inspect ingested decks and their slide units",
}

var listDecksCmd = &cobra.Command{
	Use:   "decks",
	Short: "List every ingested deck",
	RunE:  runListDecks,
}

func runListDecks(cmd *cobra.Command, args []string) error {
	eng, err := newEngine(cmd)
	if err != nil {
		return err
	}
	defer eng.Close()

	decks, err := eng.ListDecks(context.Background())
	if err != nil {
		return err
	}

	if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(decks)
	}

	if len(decks) == 0 {
		fmt.Println("No decks ingested.")
		return nil
	}

	fmt.Printf("%-14s  %-6s  %s\n", "Fingerprint", "Slides", "File")
	for _, d := range decks {
		fmt.Printf("%-14s  %-6d  %s\n", d.Fingerprint[:12], d.SlideCount, d.Filename)
	}
	return nil
}

var listUnitsCmd = &cobra.Command{
	Use:   "units <fingerprint>",
	Short: "List the slide units of a deck",
	Args:  cobra.ExactArgs(1),
	RunE:  runListUnits,
}

func runListUnits(cmd *cobra.Command, args []string) error {
	eng, err := newEngine(cmd)
	if err != nil {
		return err
	}
	defer eng.Close()

	units, err := eng.ListUnits(context.Background(), args[0])
	if err != nil {
		return err
	}

	if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(units)
	}

	fmt.Printf("%-36s  %-6s  %-6s  %-9s  %s\n", "Unit", "Slide", "Score", "Alternate", "Title")
	for _, u := range units {
		alt := "-"
		if u.RequiresAlternate {
			alt = "needed"
			if u.AlternatePath != "" {
				alt = "rendered"
			}
		}
		title := u.Title
		if len(title) > 40 {
			title = title[:37] + "..."
		}
		fmt.Printf("%-36s  %-6d  %-6d  %-9s  %s\n", u.ID, u.SlideIndex+1, u.Score, alt, title)
	}
	return nil
}

func init() {
	listDecksCmd.Flags().Bool("json", false, "output as JSON")
	listUnitsCmd.Flags().Bool("json", false, "output as JSON")

	listCmd.AddCommand(listDecksCmd)
	listCmd.AddCommand(listUnitsCmd)
	rootCmd.AddCommand(listCmd)
}
