package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/perihelion-labs/ldsi/core/cleaner"
	"github.com/perihelion-labs/ldsi/core/lexical"
	"github.com/perihelion-labs/ldsi/core/ncd"
	"github.com/perihelion-labs/ldsi/core/scoring"
	"github.com/perihelion-labs/ldsi/core/semgraph"
)

// Single-metric commands. Each takes texts or file paths as positional
// arguments and prints one stage of the pipeline in isolation.

var (
	ncdJSON      bool
	entropyJSON  bool
	topologyJSON bool
)

var ncdCmd = &cobra.Command{
	Use:   "ncd <text-or-file-a> <text-or-file-b>",
	Short: "Compression distance between two texts",
	Args:  exactArgs(2),
	RunE:  runNCD,
}

var entropyCmd = &cobra.Command{
	Use:   "entropy <text-or-file>",
	Short: "Lexical diversity of one text",
	Args:  exactArgs(1),
	RunE:  runEntropy,
}

var topologyCmd = &cobra.Command{
	Use:   "topology <text-or-file>",
	Short: "Co-occurrence graph metrics of one text",
	Args:  exactArgs(1),
	RunE:  runTopology,
}

func init() {
	rootCmd.AddCommand(ncdCmd)
	rootCmd.AddCommand(entropyCmd)
	rootCmd.AddCommand(topologyCmd)

	ncdCmd.Flags().BoolVar(&ncdJSON, "json", false, "Output as JSON")
	entropyCmd.Flags().BoolVar(&entropyJSON, "json", false, "Output as JSON")
	topologyCmd.Flags().BoolVar(&topologyJSON, "json", false, "Output as JSON")
}

func runNCD(cmd *cobra.Command, args []string) error {
	textA, err := loadTextOrFile(args[0])
	if err != nil {
		return err
	}
	textB, err := loadTextOrFile(args[1])
	if err != nil {
		return err
	}

	m, err := ncd.Compute([]byte(textA), []byte(textB))
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if ncdJSON {
		return writeIndentedJSON(w, m)
	}

	fmt.Fprintln(w, paint(colorCyan, "\n[NCD] normalized compression distance"))
	fmt.Fprintf(w, "  corrected:  %.6f\n", m.Corrected)
	fmt.Fprintf(w, "  raw:        %.6f\n", m.Raw)
	fmt.Fprintf(w, "  damping:    %.6f\n", m.DampingFactor)
	fmt.Fprintf(w, "  C(A):       %d bytes\n", m.SizeA)
	fmt.Fprintf(w, "  C(B):       %d bytes\n", m.SizeB)
	fmt.Fprintf(w, "  C(A+B):     %d bytes\n", m.SizeCombined)
	fmt.Fprintf(w, "  raw A:      %d bytes\n", len(textA))
	fmt.Fprintf(w, "  raw B:      %d bytes\n", len(textB))
	return nil
}

// entropyReport is the JSON shape of the entropy command, the lexical
// measurement plus the bigram entropy the pretty output shows.
type entropyReport struct {
	lexical.Measurement
	BigramEntropy float64 `json:"bigram_entropy"`
}

func runEntropy(cmd *cobra.Command, args []string) error {
	text, err := loadTextOrFile(args[0])
	if err != nil {
		return err
	}

	tokens, err := cleanTokens(text)
	if err != nil {
		return err
	}

	report := entropyReport{
		Measurement:   lexical.Analyze(tokens),
		BigramEntropy: lexical.NGramEntropy(tokens, 2),
	}

	w := cmd.OutOrStdout()
	if entropyJSON {
		return writeIndentedJSON(w, report)
	}

	fmt.Fprintln(w, paint(colorCyan, "\n[ENTROPY] lexical diversity"))
	fmt.Fprintf(w, "  Shannon H:      %.6f bits\n", report.Shannon)
	fmt.Fprintf(w, "  H(bigrams):     %.6f bits\n", report.BigramEntropy)
	fmt.Fprintf(w, "  TTR:            %.6f\n", report.TTR)
	fmt.Fprintf(w, "  hapax ratio:    %.6f\n", report.HapaxRatio)
	fmt.Fprintf(w, "  total tokens:   %d\n", report.TotalTokens)
	fmt.Fprintf(w, "  unique tokens:  %d\n", report.UniqueTokens)
	return nil
}

// topologyReport pairs the graph metrics with the structural-quality
// score derived from them.
type topologyReport struct {
	semgraph.Metrics
	StructuralQuality float64 `json:"structural_quality"`
}

func runTopology(cmd *cobra.Command, args []string) error {
	text, err := loadTextOrFile(args[0])
	if err != nil {
		return err
	}

	tokens, err := cleanTokens(text)
	if err != nil {
		return err
	}

	metrics := semgraph.Analyze(semgraph.Build(tokens))
	report := topologyReport{
		Metrics:           metrics,
		StructuralQuality: scoring.StructuralQuality(metrics),
	}

	w := cmd.OutOrStdout()
	if topologyJSON {
		return writeIndentedJSON(w, report)
	}

	fmt.Fprintln(w, paint(colorCyan, "\n[TOPOLOGY] co-occurrence graph"))
	fmt.Fprintf(w, "  nodes:          %d\n", report.Nodes)
	fmt.Fprintf(w, "  edges:          %d\n", report.Edges)
	fmt.Fprintf(w, "  density:        %.6f\n", report.Density)
	fmt.Fprintf(w, "  components:     %d\n", report.Components)
	fmt.Fprintf(w, "  LCC ratio:      %.6f\n", report.LCCRatio)
	fmt.Fprintf(w, "  clustering:     %.6f\n", report.Clustering)
	fmt.Fprintf(w, "  avg path len:   %.6f\n", report.AvgPathLength)
	fmt.Fprintf(w, "  small world:    %.6f\n", report.SmallWorld)
	fmt.Fprintf(w, "  struct quality: %.6f\n", report.StructuralQuality)
	return nil
}

// cleanTokens runs the configured cleaner so the single-metric commands
// see the same token stream the engine does.
func cleanTokens(text string) ([]string, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	cl, err := cleaner.New(cfg.Cleaner)
	if err != nil {
		return nil, err
	}
	return cl.Clean(text), nil
}
