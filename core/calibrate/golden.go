// Package calibrate fits the composite coefficients against a labeled
// set of sample pairs. The three signals are coefficient-independent,
// so each case is measured once and the grid search only recombines
// cached terms.
package calibrate

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/perihelion-labs/ldsi/core/errors"
	"github.com/perihelion-labs/ldsi/core/scoring"
)

// TrainingCase is one labeled pair: the reference text, the test text,
// and the lambda a well-calibrated engine should produce for them.
// ExpectedVerdict may be left empty, in which case it is derived from
// ExpectedLambda under the active thresholds.
type TrainingCase struct {
	Name            string          `yaml:"name" json:"name"`
	TextA           string          `yaml:"text_a" json:"text_a"`
	TextB           string          `yaml:"text_b" json:"text_b"`
	ExpectedLambda  float64         `yaml:"expected_lambda" json:"expected_lambda"`
	ExpectedVerdict scoring.Verdict `yaml:"expected_verdict,omitempty" json:"expected_verdict,omitempty"`
}

// Validate rejects cases the grid search cannot use.
func (c TrainingCase) Validate() error {
	if c.Name == "" {
		return errors.InvalidInputf("training case needs a name")
	}
	if c.TextB == "" {
		return errors.InvalidInputf("training case %q has no test text", c.Name)
	}
	if c.ExpectedLambda < 0 {
		return errors.InvalidInputf("training case %q expects a negative lambda", c.Name)
	}
	return nil
}

// GoldenCases returns the built-in calibration set: four pairs spanning
// the verdict spectrum from verbatim echo to full hallucination.
func GoldenCases() []TrainingCase {
	return []TrainingCase{
		{
			Name:            "identical",
			TextA:           "Le chat dort.",
			TextB:           "Le chat dort.",
			ExpectedLambda:  0.1,
			ExpectedVerdict: scoring.VerdictZombie,
		},
		{
			Name:            "paraphrase",
			TextA:           "La politique est complexe.",
			TextB:           "Les dynamiques de pouvoir inherentes a la structure societale sont multifactorielles.",
			ExpectedLambda:  0.6,
			ExpectedVerdict: scoring.VerdictRebel,
		},
		{
			Name:            "creative-reframing",
			TextA:           "Explique la gravite.",
			TextB:           "La gravite est l'amour que l'espace-temps porte a la matiere, une etreinte courbee par la masse.",
			ExpectedLambda:  0.95,
			ExpectedVerdict: scoring.VerdictArchitect,
		},
		{
			Name:            "hallucination",
			TextA:           "Bonjour.",
			TextB:           "Les grille-pains quantiques chantent la marseillaise en binaire inverse.",
			ExpectedLambda:  1.5,
			ExpectedVerdict: scoring.VerdictFool,
		},
	}
}

type caseFile struct {
	Cases []TrainingCase `yaml:"cases"`
}

// LoadCases reads a YAML training set:
//
//	cases:
//	  - name: identical
//	    text_a: Le chat dort.
//	    text_b: Le chat dort.
//	    expected_lambda: 0.1
//	    expected_verdict: ZOMBIE
func LoadCases(path string) ([]TrainingCase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapWithTier(err, errors.TierUserFixable,
			fmt.Sprintf("cannot read training set %s", path))
	}

	var file caseFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errors.WrapWithTier(err, errors.TierUserFixable,
			fmt.Sprintf("cannot parse training set %s", path))
	}
	if len(file.Cases) == 0 {
		return nil, errors.InvalidInputf("training set %s has no cases", path)
	}

	seen := make(map[string]bool, len(file.Cases))
	for _, c := range file.Cases {
		if err := c.Validate(); err != nil {
			return nil, err
		}
		if seen[c.Name] {
			return nil, errors.InvalidInputf("training set %s repeats case %q", path, c.Name)
		}
		seen[c.Name] = true
	}
	return file.Cases, nil
}
