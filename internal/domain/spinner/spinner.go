// Package spinner resolves a spin of the reward wheel into one of its
// segments.
package spinner

import (
	"errors"
	"fmt"
	"sort"

	"github.com/questx-lab/luckydraw/internal/entity"
	"github.com/questx-lab/luckydraw/pkg/crypto"
)

var ErrConfigInvalid = errors.New("invalid wheel config")

// RandFunc returns a uniform value in [0, n).
type RandFunc func(n int) int

type Resolver struct {
	rand RandFunc
}

func NewResolver() *Resolver {
	return &Resolver{rand: crypto.RandIntn}
}

func NewResolverWithRand(rand RandFunc) *Resolver {
	return &Resolver{rand: rand}
}

// Resolve draws one active segment with probability proportional to its weight
// for the given tier.
func (r *Resolver) Resolve(tier entity.Tier, segments []entity.WheelSegment) (entity.WheelSegment, error) {
	active, prefix, err := PrefixSum(tier, segments)
	if err != nil {
		return entity.WheelSegment{}, err
	}

	total := prefix[len(prefix)-1]
	value := r.rand(total)

	// The first segment whose cumulative weight exceeds value owns it. Zero
	// weight segments are never chosen since they do not raise the sum.
	i := sort.Search(len(prefix), func(i int) bool { return prefix[i] > value })
	return active[i], nil
}

// PrefixSum returns the active segments and their cumulative weights for the
// tier. It fails if a weight is negative or the total is zero.
func PrefixSum(tier entity.Tier, segments []entity.WheelSegment) ([]entity.WheelSegment, []int, error) {
	active := make([]entity.WheelSegment, 0, len(segments))
	prefix := make([]int, 0, len(segments))

	total := 0
	for _, s := range segments {
		if !s.Active {
			continue
		}

		w := s.Weight(tier)
		if w < 0 {
			return nil, nil, fmt.Errorf("%w: segment %d has negative %s weight", ErrConfigInvalid, s.Index, tier)
		}

		total += w
		active = append(active, s)
		prefix = append(prefix, total)
	}

	if total <= 0 {
		return nil, nil, fmt.Errorf("%w: total %s weight is zero", ErrConfigInvalid, tier)
	}

	return active, prefix, nil
}

// Probabilities returns the chance of every active segment for the tier keyed
// by segment index.
func Probabilities(tier entity.Tier, segments []entity.WheelSegment) (map[int]float64, error) {
	active, prefix, err := PrefixSum(tier, segments)
	if err != nil {
		return nil, err
	}

	total := float64(prefix[len(prefix)-1])
	result := make(map[int]float64, len(active))
	for _, s := range active {
		result[s.Index] = float64(s.Weight(tier)) / total
	}

	return result, nil
}
