// Package generator turns resolved placeholder candidate sets into an
// ordered list of concrete variations: the combinatorial product with
// weighted loop ordering, or random sampling without replacement, with a
// seed assigned to each output.
package generator

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	apperrors "github.com/promptweaver/promptweaver/internal/errors"
	"github.com/promptweaver/promptweaver/internal/models"
	"github.com/promptweaver/promptweaver/internal/template"
)

// pick binds one chosen candidate to the placeholder it fills.
type pick struct {
	name      string
	candidate models.Candidate
}

// Generator produces variations for one resolution run. The rng backs
// weight-0 flavor draws, random-mode sampling and random seeds.
type Generator struct {
	rng *rand.Rand
}

// New creates a generator.
func New(rng *rand.Rand) *Generator {
	return &Generator{rng: rng}
}

// Generate expands a resolved template into concrete variations
// according to the generation config. Parameters are copied onto every
// variation verbatim.
func (g *Generator) Generate(resolved *template.Resolved, gen models.GenerationConfig, parameters map[string]any) ([]models.ResolvedVariation, error) {
	for _, p := range resolved.Placeholders {
		if p.Candidates.Len() == 0 {
			return nil, apperrors.NewAppError(apperrors.ErrCodeUnresolvedPlaceholder,
				fmt.Sprintf("placeholder %q resolved to an empty candidate set", p.Name))
		}
		if p.Selector.Weight < 0 {
			return nil, apperrors.NewAppError(apperrors.ErrCodeSelectorSyntax,
				fmt.Sprintf("placeholder %q has negative weight %d", p.Name, p.Selector.Weight))
		}
	}

	mode := gen.Mode
	if mode == "" {
		mode = models.ModeCombinatorial
	}

	var picks [][]pick
	var err error
	switch mode {
	case models.ModeCombinatorial:
		picks, err = g.combinatorial(resolved.Placeholders, gen.MaxImages)
	case models.ModeRandom:
		picks, err = g.random(resolved.Placeholders, gen.MaxImages)
	default:
		err = apperrors.NewAppError(apperrors.ErrCodeSchema,
			fmt.Sprintf("unknown generation mode %q", mode))
	}
	if err != nil {
		return nil, err
	}

	return g.assemble(resolved, picks, gen, parameters)
}

// combinatorial nested-loops the product placeholders ordered by
// ascending weight: lower weight is the outer loop and changes least
// often; equal weights keep first-appearance order as a stable tiebreak.
// Weight-0 placeholders are excluded from the product entirely and
// re-drawn independently per output.
func (g *Generator) combinatorial(placeholders []*template.Placeholder, maxImages int) ([][]pick, error) {
	product, flavor := splitFlavor(placeholders)

	ordered := make([]*template.Placeholder, len(product))
	copy(ordered, product)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Selector.Weight < ordered[j].Selector.Weight
	})

	total := 1
	for _, p := range ordered {
		total *= p.Candidates.Len()
	}
	// maxImages -1 and 0 (an omitted field) both mean the full product
	count := total
	if maxImages > 0 && maxImages < count {
		count = maxImages
	}

	picks := make([][]pick, 0, count)
	indexes := make([]int, len(ordered))
	for n := 0; n < count; n++ {
		row := make([]pick, 0, len(placeholders))
		for i, p := range ordered {
			row = append(row, pick{p.Name, p.Candidates.At(indexes[i])})
		}
		for _, p := range flavor {
			row = append(row, pick{p.Name, p.Candidates.At(g.rng.IntN(p.Candidates.Len()))})
		}
		picks = append(picks, row)

		// odometer: the innermost (highest weight) loop advances fastest
		for i := len(indexes) - 1; i >= 0; i-- {
			indexes[i]++
			if indexes[i] < ordered[i].Candidates.Len() {
				break
			}
			indexes[i] = 0
		}
	}
	return picks, nil
}

// random draws maxImages unique combinations without replacement from
// the full product space. Weight is ignored; every placeholder,
// including weight 0, participates.
func (g *Generator) random(placeholders []*template.Placeholder, maxImages int) ([][]pick, error) {
	if maxImages <= 0 {
		return nil, apperrors.NewAppError(apperrors.ErrCodeSchema,
			fmt.Sprintf("random mode requires a positive max_images, got %d", maxImages))
	}

	space := 1.0
	for _, p := range placeholders {
		space *= float64(p.Candidates.Len())
	}
	count := maxImages
	if space < math.MaxInt32 && float64(count) > space {
		log.Warn().
			Int("requested", maxImages).
			Float64("space", space).
			Msg("random mode capped at the size of the combination space")
		count = int(space)
	}

	picks := make([][]pick, 0, count)
	seen := make(map[string]bool, count)
	for len(picks) < count {
		row := make([]pick, 0, len(placeholders))
		var sig strings.Builder
		for _, p := range placeholders {
			c := p.Candidates.At(g.rng.IntN(p.Candidates.Len()))
			row = append(row, pick{p.Name, c})
			sig.WriteString(c.Key)
			sig.WriteByte(0)
		}
		if seen[sig.String()] {
			continue
		}
		seen[sig.String()] = true
		picks = append(picks, row)
	}
	return picks, nil
}

// assemble substitutes each pick into the template pair and assigns
// seeds in output order.
func (g *Generator) assemble(resolved *template.Resolved, picks [][]pick, gen models.GenerationConfig, parameters map[string]any) ([]models.ResolvedVariation, error) {
	variations := make([]models.ResolvedVariation, 0, len(picks))
	for n, row := range picks {
		choices := make(map[string]string, len(row))
		text := resolved.Text
		negText := resolved.NegativeText
		for _, p := range row {
			choices[p.name] = p.candidate.Key
			marker := "{" + p.name + "}"
			text = strings.ReplaceAll(text, marker, p.candidate.Text)
			negText = strings.ReplaceAll(negText, marker, p.candidate.Text)
		}

		seed, err := g.seedFor(gen, n)
		if err != nil {
			return nil, err
		}

		variations = append(variations, models.ResolvedVariation{
			Index:               n + 1,
			FinalPrompt:         text,
			FinalNegativePrompt: negText,
			Seed:                seed,
			Choices:             choices,
			Parameters:          parameters,
		})
	}
	return variations, nil
}

// seedFor applies the configured seed strategy for the n-th output.
func (g *Generator) seedFor(gen models.GenerationConfig, n int) (int64, error) {
	switch gen.SeedMode {
	case "", models.SeedProgressive:
		return gen.Seed + int64(n), nil
	case models.SeedFixed:
		return gen.Seed, nil
	case models.SeedRandom:
		return g.rng.Int64N(math.MaxUint32), nil
	}
	return 0, apperrors.NewAppError(apperrors.ErrCodeSchema,
		fmt.Sprintf("unknown seed mode %q", gen.SeedMode))
}

func splitFlavor(placeholders []*template.Placeholder) (product, flavor []*template.Placeholder) {
	for _, p := range placeholders {
		if p.Selector.Weight == 0 {
			flavor = append(flavor, p)
		} else {
			product = append(product, p)
		}
	}
	return product, flavor
}
