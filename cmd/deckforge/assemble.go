package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mbaranov/deckforge/assemble"
	"github.com/mbaranov/deckforge/policy"
)

var assembleCmd = &cobra.Command{
	Use:   "assemble [unit-id...]",
	Short: "Recompose slide units into a new presentation",
	Long: `Assemble builds a new presentation from slide units of any number of
ingested decks. Units are named by id, or taken wholesale from a deck with
--deck. By default slides are grouped by origin deck and original position;
--preserve-order keeps the order given on the command line.

The format policy decides per slide between the structural package and the
pre-rendered alternate page. With --output split, alternate slides are merged
into a companion PDF; with --output embed, they are placed as full-bleed
picture slides inside the .pptx.`,
	RunE: runAssemble,
}

func runAssemble(cmd *cobra.Command, args []string) error {
	eng, err := newEngine(cmd)
	if err != nil {
		return err
	}
	defer eng.Close()

	ctx := context.Background()

	var refs []assemble.SlideRef
	for _, id := range args {
		refs = append(refs, assemble.SlideRef{UnitID: id})
	}
	if fp, _ := cmd.Flags().GetString("deck"); fp != "" {
		units, err := eng.ListUnits(ctx, fp)
		if err != nil {
			return err
		}
		for _, u := range units {
			refs = append(refs, assemble.SlideRef{UnitID: u.ID})
		}
	}
	if len(refs) == 0 {
		return fmt.Errorf("nothing to assemble: give unit ids or --deck")
	}

	modeStr, _ := cmd.Flags().GetString("mode")
	mode, err := policy.ParseMode(modeStr)
	if err != nil {
		return err
	}

	output, _ := cmd.Flags().GetString("output")
	outDir, _ := cmd.Flags().GetString("out-dir")
	name, _ := cmd.Flags().GetString("name")
	preserve, _ := cmd.Flags().GetBool("preserve-order")
	strict, _ := cmd.Flags().GetBool("strict")

	res, err := eng.Assemble(ctx, assemble.Request{
		Refs:           refs,
		Mode:           mode,
		Output:         assemble.OutputMode(output),
		OutputDir:      outDir,
		BaseName:       name,
		PreserveOrder:  preserve,
		FailOnOmission: strict,
	})
	if err != nil {
		return err
	}

	fmt.Printf("assembly %s: %d slide(s)\n", res.ID, len(res.Order))
	fmt.Println("  pptx:", res.StructuralPath)
	if res.AlternatePath != "" {
		fmt.Println("  pdf: ", res.AlternatePath)
	}
	for _, d := range res.Diagnostics {
		fmt.Printf("  %s: unit %s: %s\n", d.Kind, d.UnitID, d.Detail)
	}
	return nil
}

func init() {
	assembleCmd.Flags().String("deck", "", "include every unit of the deck with this fingerprint")
	assembleCmd.Flags().String("mode", "automatic", "format policy: structural-preferred, alternate-preferred, automatic")
	assembleCmd.Flags().String("output", "split", "output arrangement: split (pptx + pdf) or embed (pictures in pptx)")
	assembleCmd.Flags().String("out-dir", "", "output directory (default <data-dir>/exports)")
	assembleCmd.Flags().String("name", "", "base name for output files")
	assembleCmd.Flags().Bool("preserve-order", false, "keep the command-line slide order")
	assembleCmd.Flags().Bool("strict", false, "fail the whole assembly when any unit cannot be resolved")

	rootCmd.AddCommand(assembleCmd)
}
