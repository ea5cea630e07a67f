package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mbaranov/deckforge"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file.pptx> [more files...]",
	Short: "Extract every slide of a presentation into the unit store",
	Long: `Ingest opens each presentation, extracts every slide into a self-contained
single-slide package, classifies its complexity, and records the units in the
local store. A deck whose content fingerprint is already known is skipped;
use --force to re-extract and supersede its previous units.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func runIngest(cmd *cobra.Command, args []string) error {
	eng, err := newEngine(cmd)
	if err != nil {
		return err
	}
	defer eng.Close()

	var opts []deckforge.IngestOption
	if force, _ := cmd.Flags().GetBool("force"); force {
		opts = append(opts, deckforge.WithForceReingest())
	}
	if skip, _ := cmd.Flags().GetBool("skip-render"); skip {
		opts = append(opts, deckforge.WithSkipRender())
	}

	ctx := context.Background()
	failed := 0
	for _, path := range args {
		deck, err := eng.IngestDeck(ctx, path, opts...)
		if err != nil {
			fmt.Printf("%-40s  FAILED: %v\n", path, err)
			failed++
			continue
		}

		units, err := eng.ListUnits(ctx, deck.Fingerprint)
		if err != nil {
			return err
		}
		flagged := 0
		for _, u := range units {
			if u.RequiresAlternate {
				flagged++
			}
		}
		fmt.Printf("%-40s  %s  %d slide(s), %d flagged\n",
			deck.Filename, deck.Fingerprint[:12], deck.SlideCount, flagged)
	}

	if failed > 0 {
		return fmt.Errorf("%d deck(s) failed to ingest", failed)
	}
	return nil
}

func init() {
	ingestCmd.Flags().Bool("force", false, "re-extract even when the deck fingerprint is already known")
	ingestCmd.Flags().Bool("skip-render", false, "skip alternate-page rendering for flagged slides")

	rootCmd.AddCommand(ingestCmd)
}
