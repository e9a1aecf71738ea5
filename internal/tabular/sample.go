package tabular

import (
	"math/rand/v2"
	"sort"
	"strconv"
	"strings"

	"github.com/ironsheep/pii-redactor/internal/pii"
)

// DefaultSeed is the sampling seed used when none is given.
const DefaultSeed uint64 = 42

// Selection is the ordered set of row indices to scan.
type Selection struct {
	Indices []int `json:"indices"`
	Sampled bool  `json:"is_sampled"`
}

// Len is the number of selected rows.
func (s Selection) Len() int { return len(s.Indices) }

// Sample selects sampleSize distinct rows out of rowCount. A sampleSize of 0
// (absent) or one that covers every row selects all rows in order with
// Sampled false. Otherwise the selection is drawn from a PCG generator seeded
// with seed, so equal arguments always give equal selections. Indices are
// returned in ascending order.
func Sample(rowCount, sampleSize int, seed uint64) (Selection, error) {
	if rowCount < 0 {
		return Selection{}, pii.NewInputError("row count", "%d is negative", rowCount)
	}
	if sampleSize < 0 {
		return Selection{}, pii.NewInputError("sample size", "%d is negative", sampleSize)
	}

	if sampleSize == 0 || sampleSize >= rowCount {
		all := make([]int, rowCount)
		for i := range all {
			all[i] = i
		}
		return Selection{Indices: all}, nil
	}

	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	picked := rng.Perm(rowCount)[:sampleSize]
	sort.Ints(picked)
	return Selection{Indices: picked, Sampled: true}, nil
}

// ParseSampleSize parses a user-supplied sample size. Blank means absent (0).
func ParseSampleSize(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, pii.NewInputError("sample size", "%q is not a whole number", s)
	}
	if n < 0 {
		return 0, pii.NewInputError("sample size", "%d is negative", n)
	}
	return n, nil
}
