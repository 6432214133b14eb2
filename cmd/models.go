package cmd

import (
	"fmt"
	"io"
	"slices"
	"sort"

	"github.com/spf13/cobra"

	"github.com/perihelion-labs/ldsi/core/probe"
)

var modelsJSON bool

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List known benchmark models and configured providers",
	Long: `Show the curated model catalog and which providers the current
environment can reach. OpenRouter accepts model IDs beyond this list and
Ollama serves whatever is pulled locally, so the catalog is advisory.`,
	RunE: runModels,
}

func init() {
	rootCmd.AddCommand(modelsCmd)
	modelsCmd.Flags().BoolVar(&modelsJSON, "json", false, "Output as JSON")
}

func runModels(cmd *cobra.Command, args []string) error {
	catalog := probe.DefaultCatalog()
	configured, defaultProvider := configuredProviders()

	if modelsJSON {
		return writeIndentedJSON(cmd.OutOrStdout(), struct {
			Providers       []string      `json:"providers"`
			DefaultProvider string        `json:"default_provider,omitempty"`
			Catalog         probe.Catalog `json:"catalog"`
		}{Providers: configured, DefaultProvider: defaultProvider, Catalog: catalog})
	}

	w := cmd.OutOrStdout()
	if len(configured) == 0 {
		fmt.Fprintln(w, paint(colorYellow, "no providers configured")+" (set an API key or run a local Ollama daemon)")
	} else {
		fmt.Fprint(w, "configured providers:")
		for _, name := range configured {
			if name == defaultProvider {
				fmt.Fprintf(w, " %s", paint(colorGreen, name+"*"))
			} else {
				fmt.Fprintf(w, " %s", name)
			}
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, paint(colorBold, "\nOpenRouter"))
	printModelTable(w, catalog.OpenRouter)
	fmt.Fprintln(w, paint(colorBold, "\nOllama (local)"))
	printModelTable(w, catalog.Ollama)
	return nil
}

// configuredProviders reports which providers the current configuration
// can construct, without opening any client. Ollama counts whenever an
// endpoint is set since the daemon needs no key.
func configuredProviders() ([]string, string) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, ""
	}

	var names []string
	for name, pc := range cfg.Probe.Providers {
		if name == "ollama" {
			if pc.BaseURL != "" {
				names = append(names, name)
			}
			continue
		}
		if pc.APIKey != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	defaultProvider := cfg.Probe.DefaultProvider
	if !slices.Contains(names, defaultProvider) {
		defaultProvider = ""
	}
	return names, defaultProvider
}

// printModelTable renders catalog entries with the name column sized to
// the terminal. IDs stay whole because they are what --model takes.
func printModelTable(w io.Writer, models []probe.ModelInfo) {
	nameWidth := terminalWidth() - 48
	if nameWidth < 14 {
		nameWidth = 14
	}
	if nameWidth > 28 {
		nameWidth = 28
	}

	for _, m := range models {
		fmt.Fprintf(w, "  %-*s  %-40s  %s\n",
			nameWidth, truncateName(m.Name, nameWidth),
			m.ID,
			paint(colorGray, m.Category),
		)
	}
}
