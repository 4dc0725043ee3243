package starlark

import (
	"fmt"

	"github.com/leapstack-labs/leapseed/internal/fake"
	"github.com/leapstack-labs/leapseed/pkg/seeded"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
)

// Predeclared returns the globals every generators file sees:
// the "random" module (intn, between, float, choice) and the "fake" module
// with one function per built-in generator. All of them take a seed first,
// so scripts stay deterministic.
func Predeclared(random seeded.Random, gen *fake.Generator) (starlark.StringDict, error) {
	if random == nil {
		random = seeded.New()
	}
	if gen == nil {
		gen = fake.New(random)
	}

	fakes := make(starlark.StringDict)
	for _, name := range fake.Builtins() {
		fn, err := gen.Builtin(name)
		if err != nil {
			return nil, err
		}
		fakes[name] = starlark.NewBuiltin("fake."+name, func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var seed string
			if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &seed); err != nil {
				return nil, err
			}
			return GoToStarlark(fn(seed))
		})
	}

	return starlark.StringDict{
		"random": &starlarkstruct.Module{Name: "random", Members: randomMembers(random)},
		"fake":   &starlarkstruct.Module{Name: "fake", Members: fakes},
	}, nil
}

func randomMembers(r seeded.Random) starlark.StringDict {
	return starlark.StringDict{
		"intn": starlark.NewBuiltin("random.intn", func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var seed string
			var n int
			if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 2, &seed, &n); err != nil {
				return nil, err
			}
			if n <= 0 {
				return nil, fmt.Errorf("%s: n must be positive, got %d", b.Name(), n)
			}
			return starlark.MakeInt(r.Intn(seed, n)), nil
		}),
		"between": starlark.NewBuiltin("random.between", func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var seed string
			var lo, hi int
			if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 3, &seed, &lo, &hi); err != nil {
				return nil, err
			}
			if hi < lo {
				return nil, fmt.Errorf("%s: empty range [%d, %d]", b.Name(), lo, hi)
			}
			return starlark.MakeInt(lo + r.Intn(seed, hi-lo+1)), nil
		}),
		"float": starlark.NewBuiltin("random.float", func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var seed string
			if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &seed); err != nil {
				return nil, err
			}
			return starlark.Float(r.Float64(seed)), nil
		}),
		"choice": starlark.NewBuiltin("random.choice", func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var seed string
			var seq starlark.Indexable
			if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 2, &seed, &seq); err != nil {
				return nil, err
			}
			if seq.Len() == 0 {
				return nil, fmt.Errorf("%s: empty sequence", b.Name())
			}
			items := make([]starlark.Value, seq.Len())
			for i := range items {
				items[i] = seq.Index(i)
			}
			return seeded.Pick(r, seed, items), nil
		}),
	}
}
