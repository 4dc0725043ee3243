// Package fake produces built-in values for columns without a configured
// generator. Values depend only on the field and the seed.
package fake

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/leapstack-labs/leapseed/pkg/core"
	"github.com/leapstack-labs/leapseed/pkg/seeded"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// namespace scopes deterministic UUIDs.
var namespace = uuid.MustParse("6f1c2a4e-3b0d-4c55-9a8e-2f6d1b7c9e01")

// epoch anchors generated dates so output never depends on the clock.
var epoch = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

var (
	firstNames = []string{"john", "jane", "alice", "bob", "charlie", "diana", "eve", "frank", "grace", "henry"}
	lastNames  = []string{"smith", "johnson", "williams", "brown", "jones", "garcia", "miller", "davis", "rodriguez", "martinez"}
	words      = []string{"alpha", "beta", "gamma", "delta", "epsilon", "zeta", "eta", "theta", "iota", "kappa"}
	domains    = []string{"example.com", "test.com", "demo.com", "mail.com"}
	sentences  = []string{
		"This is a sample text generated for testing purposes.",
		"Lorem ipsum dolor sit amet, consectetur adipiscing elit.",
		"The quick brown fox jumps over the lazy dog.",
		"Software development requires careful planning and execution.",
		"Database design is crucial for application performance.",
	}
	title = cases.Title(language.English)
)

// Generator draws values from a seeded source.
type Generator struct {
	random seeded.Random
}

// New creates a Generator. A nil random uses seeded.New().
func New(random seeded.Random) *Generator {
	if random == nil {
		random = seeded.New()
	}
	return &Generator{random: random}
}

// Value returns a value for f. The same field and seed give the same value.
func (g *Generator) Value(f *core.ScalarField, seed string) any {
	r := g.random.Rand(seed)
	t := core.ParseSQLType(f.SQLType)
	if t.IsArray() {
		return g.array(f, t, r, seed, t.Dims)
	}
	return g.scalar(f, t, r, seed)
}

func (g *Generator) array(f *core.ScalarField, t core.SQLType, r *rand.Rand, seed string, dims int) []any {
	n := 1 + r.IntN(3)
	out := make([]any, n)
	for i := range out {
		elemSeed := fmt.Sprintf("%s[%d]", seed, i)
		if dims > 1 {
			out[i] = g.array(f, t, r, elemSeed, dims-1)
			continue
		}
		out[i] = g.scalar(f, t.Element(), g.random.Rand(elemSeed), elemSeed)
	}
	return out
}

func (g *Generator) scalar(f *core.ScalarField, t core.SQLType, r *rand.Rand, seed string) any {
	switch t.Kind {
	case core.KindInt:
		if f.IsID {
			return r.Int64N(1<<31-2) + 1
		}
		return r.Int64N(1000000) + 1
	case core.KindFloat:
		return float64(r.IntN(1000000)) / 100
	case core.KindDecimal:
		return fmt.Sprintf("%d.%02d", r.IntN(10000), r.IntN(100))
	case core.KindBool:
		return r.IntN(2) == 1
	case core.KindUUID:
		return uuid.NewSHA1(namespace, []byte(seed)).String()
	case core.KindJSON:
		return map[string]any{"generated": true, "word": words[r.IntN(len(words))], "n": r.IntN(100)}
	case core.KindTimestamp:
		return epoch.AddDate(0, 0, -r.IntN(365)).Add(time.Duration(r.IntN(86400)) * time.Second)
	case core.KindDate:
		return epoch.AddDate(0, 0, -r.IntN(365)).Format(time.DateOnly)
	case core.KindTime:
		return fmt.Sprintf("%02d:%02d:%02d", r.IntN(24), r.IntN(60), r.IntN(60))
	case core.KindBytes:
		b := make([]byte, 8)
		for i := range b {
			b[i] = byte(r.IntN(256))
		}
		return b
	}
	return truncate(g.text(f.Name, r), f.MaxLength)
}

// text picks a generator from the column name, falling back to a word.
func (g *Generator) text(name string, r *rand.Rand) string {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "email"):
		return fmt.Sprintf("%s.%s%d@%s", pick(r, firstNames), pick(r, lastNames), r.IntN(100000), pick(r, domains))
	case strings.Contains(lower, "first"):
		return title.String(pick(r, firstNames))
	case strings.Contains(lower, "last"):
		return title.String(pick(r, lastNames))
	case strings.Contains(lower, "name") && !strings.Contains(lower, "file"):
		return title.String(pick(r, firstNames) + " " + pick(r, lastNames))
	case strings.Contains(lower, "title"):
		return title.String(pick(r, words) + " " + pick(r, words))
	case strings.Contains(lower, "slug"):
		return fmt.Sprintf("%s-%s-%d", pick(r, words), pick(r, words), r.IntN(10000))
	case strings.Contains(lower, "description") || strings.Contains(lower, "content") || strings.Contains(lower, "body"):
		return pick(r, sentences)
	case strings.Contains(lower, "url") || strings.Contains(lower, "link"):
		return fmt.Sprintf("https://example.com/page/%d", r.IntN(1000))
	case strings.Contains(lower, "phone"):
		return fmt.Sprintf("+1-%03d-%03d-%04d", r.IntN(1000), r.IntN(1000), r.IntN(10000))
	case strings.Contains(lower, "address"):
		return fmt.Sprintf("%d Main Street, City, State %05d", r.IntN(9999)+1, r.IntN(100000))
	}
	return fmt.Sprintf("%s_%d", pick(r, words), r.IntN(100000))
}

func pick(r *rand.Rand, list []string) string {
	return list[r.IntN(len(list))]
}

func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max]
}
