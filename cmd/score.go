package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sells-group/phonematch-cli/internal/address"
	"github.com/sells-group/phonematch-cli/internal/failure"
)

var scoreCmd = &cobra.Command{
	Use:   "score <original-address> <candidate-address>",
	Short: "Show how two addresses tokenize and score",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		scorer := address.NewScorer(scorerWeights(cfg.Match))
		writeScore(os.Stdout, scorer, args[0], args[1])
		return nil
	},
}

func writeScore(out io.Writer, scorer address.Scorer, original, candidate string) {
	orig := address.Tokenize(original)
	cand := address.Tokenize(candidate)

	lines := [][2]string{
		{"Original", original},
		{"  tokens", strings.Join(orig.Parts, " | ")},
		{"  neighborhood", orNone(orig.Neighborhood, orig.HasNeighborhood)},
		{"  lot", orNone(orig.Lot, orig.HasLot)},
		{"Candidate", candidate},
		{"  tokens", strings.Join(cand.Parts, " | ")},
		{"  neighborhood", orNone(cand.Neighborhood, cand.HasNeighborhood)},
		{"  lot", orNone(cand.Lot, cand.HasLot)},
		{"Snippet score", fmt.Sprintf("%d", scorer.Score(original, candidate))},
		{"Lot score", fmt.Sprintf("%d", scorer.ScoreLot(original, candidate))},
		{"Region keywords", strings.Join(failure.RegionKeywords(original), ", ")},
	}
	_, _ = fmt.Fprintln(out, boxStyle.Render(titleStyle.Render("Address score")+"\n"+table(lines)))
}

func orNone(v string, ok bool) string {
	if !ok {
		return infoStyle.Render("(none)")
	}
	return v
}

func init() {
	rootCmd.AddCommand(scoreCmd)
}
