package match

import (
	"fmt"
	"log/slog"

	"warscan/internal/cache"
	"warscan/pkg/profile"

	"gocv.io/x/gocv"
)

type rotKey struct {
	hash uint64
	deg  float64
}

// Caches holds the shared cache tiers of a matcher. All tiers are bounded
// and clear entirely when full; evicted mats are closed by the cache.
type Caches struct {
	Images    *cache.Bounded[string, gocv.Mat]
	Descs     *cache.Bounded[string, *Descriptor]
	Rotations *cache.Bounded[rotKey, gocv.Mat]
	Verdicts  *cache.Bounded[verdictKey, bool]
}

func NewCaches(prm Params) *Caches {
	return &Caches{
		Images: cache.NewBoundedWithEvict[string, gocv.Mat](prm.ImageCacheLimit,
			func(_ string, m gocv.Mat) { m.Close() }),
		Descs: cache.NewBoundedWithEvict[string, *Descriptor](prm.DescCacheLimit,
			func(_ string, d *Descriptor) { d.Close() }),
		Rotations: cache.NewBoundedWithEvict[rotKey, gocv.Mat](prm.RotCacheLimit,
			func(_ rotKey, m gocv.Mat) { m.Close() }),
		Verdicts: cache.NewBounded[verdictKey, bool](prm.VerdictCacheLimit),
	}
}

// Clear drops every cache tier.
func (c *Caches) Clear() {
	c.Images.Clear()
	c.Descs.Clear()
	c.Rotations.Clear()
	c.Verdicts.Clear()
}

// Matcher resolves row crops against a pool of registered crops.
type Matcher struct {
	prm      *Params
	caches   *Caches
	log      *slog.Logger
	sigTier1 string
	sigFull  string
}

func NewMatcher(prm Params, caches *Caches, log *slog.Logger) *Matcher {
	if caches == nil {
		caches = NewCaches(prm)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Matcher{
		prm:      &prm,
		caches:   caches,
		log:      log,
		sigTier1: tierSignature(&prm, prm.Tier1),
		sigFull:  tierSignature(&prm, prm.Tier2),
	}
}

// descriptorFor returns an owned descriptor for a registered crop, loading
// and describing it on first use. Clones cross the cache boundary under the
// cache lock, so overflow sweeps on the shared tiers can never release a
// mat the caller still holds.
func (m *Matcher) descriptorFor(path string) (*Descriptor, error) {
	var out *Descriptor
	if m.caches.Descs.GetWith(path, func(d *Descriptor) { out = d.Clone() }) {
		return out, nil
	}

	var img gocv.Mat
	if !m.caches.Images.GetWith(path, func(v gocv.Mat) { img = v.Clone() }) {
		img = gocv.IMRead(path, gocv.IMReadColor)
		if img.Empty() {
			return nil, fmt.Errorf("match: read %s: empty image", path)
		}
		m.caches.Images.Put(path, img.Clone())
	}
	d, err := NewDescriptor(img)
	img.Close()
	if err != nil {
		return nil, err
	}
	out = d.Clone()
	m.caches.Descs.Put(path, d)
	return out, nil
}

// Match resolves a crop against the pool. It returns the matched ref and
// true, or a zero ref and false when no registered identity verifies.
func (m *Matcher) Match(crop gocv.Mat, pool []Ref) (Ref, bool, error) {
	q, err := NewDescriptor(crop)
	if err != nil {
		return Ref{}, false, err
	}
	defer q.Close()

	metrics := m.gatherMetrics(q, pool)
	defer func() {
		for i := range metrics {
			metrics[i].desc.Close()
		}
	}()

	cands := rankPool(metrics, m.prm)
	if len(cands) == 0 {
		return Ref{}, false, nil
	}

	scope := newScope(q, m.prm)
	defer scope.Close()

	for _, cand := range cands {
		if m.verify(q, cand, scope) {
			m.log.Debug("identity matched",
				"id", cand.ref.ID, "hash_dist", cand.hashDist, "prof_cos", cand.profCos)
			return cand.ref, true, nil
		}
	}
	return Ref{}, false, nil
}

// rotatedCandidate returns an owned rotation of the candidate gray, served
// from the shared rotation cache. The cache keeps its own mat; the caller
// closes the returned one.
func (m *Matcher) rotatedCandidate(c *Descriptor, deg float64) gocv.Mat {
	if deg == 0 {
		return c.Gray.Clone()
	}
	key := rotKey{hash: c.Hash, deg: deg}
	var out gocv.Mat
	if m.caches.Rotations.GetWith(key, func(v gocv.Mat) { out = v.Clone() }) {
		return out
	}
	mat := rotateGray(c.Gray, deg)
	out = mat.Clone()
	m.caches.Rotations.Put(key, mat)
	return out
}

// MatchOrNew resolves a crop against a library, registering the crop as a
// new identity when nothing verifies. The bool reports whether the identity
// already existed.
func (m *Matcher) MatchOrNew(crop gocv.Mat, lib *Library) (int64, bool, error) {
	ref, ok, err := m.Match(crop, lib.Refs())
	if err != nil {
		return 0, false, err
	}
	if ok {
		return ref.ID, true, nil
	}
	added, err := lib.Add(crop)
	if err != nil {
		return 0, false, err
	}
	m.log.Info("new identity registered", "id", added.ID, "path", added.Path)
	return added.ID, false, nil
}

// VerifyPair runs the full verification pipeline on two crops, bypassing
// shortlisting. Intended for diagnostics.
func (m *Matcher) VerifyPair(a, b gocv.Mat) (bool, error) {
	qa, err := NewDescriptor(a)
	if err != nil {
		return false, err
	}
	defer qa.Close()
	qb, err := NewDescriptor(b)
	if err != nil {
		return false, err
	}
	defer qb.Close()

	scope := newScope(qa, m.prm)
	defer scope.Close()
	cand := candidate{
		desc:     qb,
		hashDist: hammingDistance(qa.Hash, qb.Hash),
		profCos:  profile.Cosine(qa.Profile, qb.Profile),
	}
	return m.runVerify(qa, cand, scope, false), nil
}
