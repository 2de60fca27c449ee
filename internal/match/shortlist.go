package match

import (
	"math"
	"sort"

	"warscan/pkg/profile"
)

// Ref names one known identity and the crop it was registered from.
type Ref struct {
	ID   int64
	Path string
}

type candidate struct {
	ref      Ref
	desc     *Descriptor
	hashDist int
	profCos  float64
}

// gatherMetrics loads descriptors for the pool and computes the cheap
// comparison metrics against the query. Duplicated paths are compared once,
// unloadable refs are skipped, and candidates failing the width or aspect
// gates are dropped before ranking. Every returned candidate owns its
// descriptor; the caller closes them all when done.
func (m *Matcher) gatherMetrics(q *Descriptor, pool []Ref) []candidate {
	seen := make(map[string]struct{}, len(pool))
	cands := make([]candidate, 0, len(pool))
	for _, ref := range pool {
		if _, dup := seen[ref.Path]; dup {
			continue
		}
		seen[ref.Path] = struct{}{}

		d, err := m.descriptorFor(ref.Path)
		if err != nil {
			m.log.Warn("candidate skipped", "path", ref.Path, "err", err)
			continue
		}
		if absI(d.Width-q.Width) > m.prm.MaxWDiff {
			d.Close()
			continue
		}
		if m.prm.UseARFilter {
			if da := math.Abs(d.Aspect() - q.Aspect()); da > m.prm.MaxARDiff {
				d.Close()
				continue
			}
		}
		cands = append(cands, candidate{
			ref:      ref,
			desc:     d,
			hashDist: hammingDistance(q.Hash, d.Hash),
			profCos:  profile.Cosine(q.Profile, d.Profile),
		})
	}
	return cands
}

// rankPool merges the hash shortlist and the profile shortlist by summed
// rank: a candidate near the top of either list survives, one near the top
// of both wins.
func rankPool(cands []candidate, prm *Params) []candidate {
	if len(cands) == 0 {
		return nil
	}

	byHash := make([]int, len(cands))
	for i := range byHash {
		byHash[i] = i
	}
	sort.SliceStable(byHash, func(a, b int) bool {
		return cands[byHash[a]].hashDist < cands[byHash[b]].hashDist
	})
	byProf := make([]int, len(cands))
	copy(byProf, byHash)
	sort.SliceStable(byProf, func(a, b int) bool {
		return cands[byProf[a]].profCos > cands[byProf[b]].profCos
	})

	const unranked = 1 << 20
	score := make(map[int]int, len(cands))
	for r, idx := range byHash {
		if r < prm.TopKHash {
			score[idx] = r
		} else {
			score[idx] = unranked
		}
	}
	for r, idx := range byProf {
		if r < prm.TopKProf {
			score[idx] += r
		} else {
			score[idx] += unranked
		}
	}

	keep := make([]int, 0, len(cands))
	for idx, s := range score {
		if s < 2*unranked {
			keep = append(keep, idx)
		}
	}
	sort.Slice(keep, func(a, b int) bool {
		if score[keep[a]] != score[keep[b]] {
			return score[keep[a]] < score[keep[b]]
		}
		return cands[keep[a]].hashDist < cands[keep[b]].hashDist
	})
	if len(keep) > prm.MaxCand {
		keep = keep[:prm.MaxCand]
	}

	out := make([]candidate, len(keep))
	for i, idx := range keep {
		out[i] = cands[idx]
	}
	return out
}

func absI(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
