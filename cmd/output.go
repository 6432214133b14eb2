package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/perihelion-labs/ldsi/core/errors"
	"github.com/perihelion-labs/ldsi/core/scoring"
)

// ANSI color codes for terminal output.
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

const defaultTermWidth = 80

// terminalWidth returns the column count of the attached terminal, or
// the conventional 80 when output is redirected.
func terminalWidth() int {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return defaultTermWidth
	}
	width, _, err := term.GetSize(fd)
	if err != nil || width <= 0 {
		return defaultTermWidth
	}
	return width
}

// useColor reports whether stdout supports ANSI sequences.
func useColor() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// paint wraps s in a color code when the terminal supports it.
func paint(color, s string) string {
	if !useColor() {
		return s
	}
	return color + s + colorReset
}

// verdictColor maps each verdict to its display color.
func verdictColor(v scoring.Verdict) string {
	switch v {
	case scoring.VerdictZombie:
		return colorGray
	case scoring.VerdictRebel:
		return colorYellow
	case scoring.VerdictArchitect:
		return colorGreen
	default:
		return colorRed
	}
}

// loadTextOrFile resolves a command argument that may be either a file
// path or literal text, the way the probe commands accept both.
func loadTextOrFile(arg string) (string, error) {
	if _, err := os.Stat(arg); err == nil {
		data, err := os.ReadFile(arg)
		if err != nil {
			return "", errors.WrapWithTier(err, errors.TierUserFixable, "cannot read "+arg)
		}
		return string(data), nil
	}
	return arg, nil
}

// writeIndentedJSON encodes v for machine consumers.
func writeIndentedJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// writeCompactJSON encodes v as one line, for JSONL streams.
func writeCompactJSON(w io.Writer, v any) error {
	return json.NewEncoder(w).Encode(v)
}

func printRule(w io.Writer, ch string, width int) {
	fmt.Fprintln(w, strings.Repeat(ch, width))
}

// printResult renders the full scoring breakdown the analyze and probe
// commands share.
func printResult(w io.Writer, result *scoring.Result) {
	width := terminalWidth()
	if width > defaultTermWidth {
		width = defaultTermWidth
	}

	fmt.Fprintln(w)
	printRule(w, "=", width)
	fmt.Fprintln(w, paint(colorBold, "  LDSI - Lyapunov-Dabert Stability Index"))
	printRule(w, "=", width)

	fmt.Fprintf(w, "\n  SCORE:   %s\n", paint(colorBold, fmt.Sprintf("%.4f", result.Lambda)))
	fmt.Fprintf(w, "  VERDICT: %s\n", paint(verdictColor(result.Verdict), string(result.Verdict)+" - "+result.VerdictClass))

	fmt.Fprintln(w)
	printRule(w, "-", width)

	fmt.Fprintln(w, paint(colorCyan, "\n  [NCD] compression distance"))
	fmt.Fprintf(w, "    corrected:       %.4f\n", result.Compression.Corrected)
	fmt.Fprintf(w, "    raw:             %.4f\n", result.Compression.Raw)
	fmt.Fprintf(w, "    damping:         %.4f\n", result.Compression.DampingFactor)
	fmt.Fprintf(w, "    C(A):            %d bytes\n", result.Compression.SizeA)
	fmt.Fprintf(w, "    C(B):            %d bytes\n", result.Compression.SizeB)
	fmt.Fprintf(w, "    C(A+B):          %d bytes\n", result.Compression.SizeCombined)

	fmt.Fprintln(w, paint(colorCyan, "\n  [ENTROPY] Shannon"))
	fmt.Fprintf(w, "    H(A):            %.4f bits\n", result.Entropy.A.Shannon)
	fmt.Fprintf(w, "    H(B):            %.4f bits\n", result.Entropy.B.Shannon)
	fmt.Fprintf(w, "    ratio H(B)/H(A): %.4f\n", result.Entropy.Ratio)
	fmt.Fprintf(w, "    TTR(A):          %.4f\n", result.Entropy.A.TTR)
	fmt.Fprintf(w, "    TTR(B):          %.4f\n", result.Entropy.B.TTR)

	fmt.Fprintln(w, paint(colorCyan, "\n  [TOPOLOGY] co-occurrence graph"))
	fmt.Fprintf(w, "    structural qual: %.4f\n", result.Topology.StructuralQuality)
	fmt.Fprintf(w, "    delta v1:        %.4f\n", result.Topology.DeltaV1)
	fmt.Fprintf(w, "    density A/B:     %.4f / %.4f\n", result.Topology.A.Density, result.Topology.B.Density)
	fmt.Fprintf(w, "    LCC ratio A/B:   %.4f / %.4f\n", result.Topology.A.LCCRatio, result.Topology.B.LCCRatio)
	fmt.Fprintf(w, "    clustering A/B:  %.4f / %.4f\n", result.Topology.A.Clustering, result.Topology.B.Clustering)
	fmt.Fprintf(w, "    small world A/B: %.4f / %.4f\n", result.Topology.A.SmallWorld, result.Topology.B.SmallWorld)

	fmt.Fprintln(w)
	printRule(w, "-", width)
	fmt.Fprintf(w, "  coefficients: alpha=%.2f beta=%.2f gamma=%.2f (%s)\n",
		result.Coefficients.Alpha,
		result.Coefficients.Beta,
		result.Coefficients.Gamma,
		result.Coefficients.TopologyVersion)
	printRule(w, "=", width)
}
