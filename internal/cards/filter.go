package cards

import (
	"strings"

	"github.com/sahilm/fuzzy"
)

type FilterOptions struct {
	// FreeWords must all appear in the name, description or effect.
	FreeWords string `form:"q"`
	// Fuzzy ranks by fuzzy match against the name instead of substring matching.
	Fuzzy bool `form:"fuzzy"`
	// Effect keeps cards whose effect label contains this text, e.g. "Mult".
	Effect    string `form:"effect"`
	OwnedOnly bool   `form:"owned"`
}

// Filter narrows cs by opt. The catalog supplies effect labels; nil uses the defaults.
func Filter(cs []Card, cat Catalog, opt FilterOptions) []Card {
	var out []Card
	for _, c := range cs {
		if opt.OwnedOnly && !c.Owned() {
			continue
		}
		effect := cat.Effect(c.ID)
		if opt.Effect != "" && !strings.Contains(strings.ToLower(effect), strings.ToLower(opt.Effect)) {
			continue
		}
		if opt.FreeWords != "" && !opt.Fuzzy {
			if !matchesAll(c, effect, strings.Fields(opt.FreeWords)) {
				continue
			}
		}
		out = append(out, c)
	}
	if opt.Fuzzy && strings.TrimSpace(opt.FreeWords) != "" {
		return rankFuzzy(out, strings.TrimSpace(opt.FreeWords))
	}
	return out
}

func matchesAll(c Card, effect string, words []string) bool {
	hay := strings.ToLower(strings.Join([]string{c.Name(), c.Metadata.Description, effect}, " "))
	for _, w := range words {
		if !strings.Contains(hay, strings.ToLower(w)) {
			return false
		}
	}
	return true
}

type cardNames []Card

func (n cardNames) String(i int) string { return n[i].Name() }
func (n cardNames) Len() int            { return len(n) }

// rankFuzzy returns the cards whose name fuzzily matches pattern, best first.
func rankFuzzy(cs []Card, pattern string) []Card {
	matches := fuzzy.FindFrom(pattern, cardNames(cs))
	out := make([]Card, 0, len(matches))
	for _, m := range matches {
		out = append(out, cs[m.Index])
	}
	return out
}
