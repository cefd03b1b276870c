// Package shuffle provides the deterministic key shuffle applied before the
// key list is partitioned across workers.
package shuffle

import "math/rand"

// Strings permutes keys in place with an unbiased Fisher-Yates walk: index i
// runs from len-1 down to 1 and swaps with a uniform pick from [0, i]. The
// caller controls reproducibility through the seed of rng. Lists of length
// zero or one are left untouched.
func Strings(rng *rand.Rand, keys []string) {
	for i := len(keys) - 1; i >= 1; i-- {
		j := rng.Intn(i + 1)
		keys[i], keys[j] = keys[j], keys[i]
	}
}
