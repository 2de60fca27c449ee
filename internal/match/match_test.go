package match

import (
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"gocv.io/x/gocv"
)

// testCrop renders a deterministic textured crop so hashes and NCC have
// real structure to work with.
func testCrop(t *testing.T, seed uint8) gocv.Mat {
	t.Helper()
	m := gocv.NewMatWithSize(48, 180, gocv.MatTypeCV8UC3)
	for y := 0; y < m.Rows(); y++ {
		for x := 0; x < m.Cols(); x++ {
			v := uint8((x*7 + y*13 + int(seed)*31) % 256)
			m.SetUCharAt(y, x*3, v)
			m.SetUCharAt(y, x*3+1, v/2)
			m.SetUCharAt(y, x*3+2, 255-v)
		}
	}
	return m
}

func TestDescriptorDeterministic(t *testing.T) {
	crop := testCrop(t, 1)
	defer crop.Close()

	a, err := NewDescriptor(crop)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	b, err := NewDescriptor(crop)
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	if a.Hash != b.Hash {
		t.Errorf("hash not deterministic: %x vs %x", a.Hash, b.Hash)
	}
	if hammingDistance(a.Hash, b.Hash) != 0 {
		t.Error("self distance should be zero")
	}
	if a.Gray.Cols() != CanonW || a.Gray.Rows() != CanonH {
		t.Errorf("canonical size: expected %dx%d, got %dx%d",
			CanonW, CanonH, a.Gray.Cols(), a.Gray.Rows())
	}
	if len(a.Profile) != CanonW {
		t.Errorf("expected profile length %d, got %d", CanonW, len(a.Profile))
	}
}

func TestHammingDistanceSymmetric(t *testing.T) {
	a, b := uint64(0xF0F0), uint64(0x0F0F)
	if hammingDistance(a, b) != hammingDistance(b, a) {
		t.Error("hamming distance should be symmetric")
	}
	if hammingDistance(a, b) != 16 {
		t.Errorf("expected 16, got %d", hammingDistance(a, b))
	}
}

func TestDescriptorEmptyImage(t *testing.T) {
	if _, err := NewDescriptor(gocv.NewMat()); err == nil {
		t.Error("expected an error for an empty image")
	}
}

func TestRankPoolCapsAndOrders(t *testing.T) {
	prm := DefaultParams()
	prm.TopKHash = 3
	prm.TopKProf = 3
	prm.MaxCand = 2

	cands := []candidate{
		{ref: Ref{ID: 1}, hashDist: 30, profCos: 0.10},
		{ref: Ref{ID: 2}, hashDist: 2, profCos: 0.99},
		{ref: Ref{ID: 3}, hashDist: 5, profCos: 0.95},
		{ref: Ref{ID: 4}, hashDist: 1, profCos: 0.20},
	}

	out := rankPool(cands, &prm)
	if len(out) != 2 {
		t.Fatalf("expected pool capped at 2, got %d", len(out))
	}
	if out[0].ref.ID != 2 {
		t.Errorf("expected the candidate leading both lists first, got id %d", out[0].ref.ID)
	}
}

func TestRankPoolEmpty(t *testing.T) {
	prm := DefaultParams()
	if out := rankPool(nil, &prm); out != nil {
		t.Errorf("expected nil for empty input, got %v", out)
	}
}

func TestMatchEmptyPool(t *testing.T) {
	crop := testCrop(t, 2)
	defer crop.Close()

	m := NewMatcher(DefaultParams(), nil, nil)
	_, ok, err := m.Match(crop, nil)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("expected no match against an empty pool")
	}
}

func TestVerifyPairSelf(t *testing.T) {
	crop := testCrop(t, 3)
	defer crop.Close()

	m := NewMatcher(DefaultParams(), nil, nil)
	same, err := m.VerifyPair(crop, crop)
	if err != nil {
		t.Fatal(err)
	}
	if !same {
		t.Error("an image must verify against itself")
	}
}

func TestVerifyPairDistinct(t *testing.T) {
	a := testCrop(t, 1)
	defer a.Close()
	b := gocv.NewMatWithSize(48, 180, gocv.MatTypeCV8UC3)
	defer b.Close()
	// Vertical bars against diagonal texture: clearly different content.
	for x := 0; x < b.Cols(); x += 8 {
		bar := b.Region(image.Rect(x, 0, min(x+4, b.Cols()), b.Rows()))
		bar.SetTo(gocv.NewScalar(255, 255, 255, 0))
		bar.Close()
	}

	m := NewMatcher(DefaultParams(), nil, nil)
	same, err := m.VerifyPair(a, b)
	if err != nil {
		t.Fatal(err)
	}
	if same {
		t.Error("distinct images must not verify")
	}
}

func TestNCCSelfIsOne(t *testing.T) {
	crop := testCrop(t, 4)
	defer crop.Close()
	gray := resizeGray(crop, CanonW, CanonH)
	defer gray.Close()

	if got := ncc(gray, gray); got < 0.999 {
		t.Errorf("expected self NCC ~1, got %f", got)
	}
}

func TestNCCFlatImage(t *testing.T) {
	flat := gocv.NewMatWithSize(32, 32, gocv.MatTypeCV8U)
	defer flat.Close()
	if got := ncc(flat, flat); got != -1 {
		t.Errorf("expected -1 for zero-variance input, got %f", got)
	}
}

// glyphCrop renders text-like dark blobs on a light background, optionally
// shifted, so alignment tests have realistic ink structure.
func glyphCrop(t *testing.T, dx, dy int) gocv.Mat {
	t.Helper()
	m := gocv.NewMatWithSize(48, 180, gocv.MatTypeCV8UC3)
	m.SetTo(gocv.NewScalar(200, 200, 200, 0))
	blobs := []image.Rectangle{
		image.Rect(12, 14, 30, 34),
		image.Rect(38, 18, 52, 34),
		image.Rect(60, 14, 84, 34),
		image.Rect(95, 14, 108, 30),
		image.Rect(118, 18, 142, 34),
		image.Rect(150, 14, 166, 34),
	}
	for _, b := range blobs {
		r := b.Add(image.Pt(dx, dy)).Intersect(image.Rect(0, 0, 180, 48))
		if r.Empty() {
			continue
		}
		reg := m.Region(r)
		reg.SetTo(gocv.NewScalar(40, 40, 40, 0))
		reg.Close()
	}
	return m
}

func TestVerifyPairTranslated(t *testing.T) {
	a := glyphCrop(t, 0, 0)
	defer a.Close()
	b := glyphCrop(t, 3, 1)
	defer b.Close()

	m := NewMatcher(DefaultParams(), nil, nil)
	same, err := m.VerifyPair(a, b)
	if err != nil {
		t.Fatal(err)
	}
	if !same {
		t.Error("a few pixels of translation must still verify")
	}
}

func TestVerifyPairRotated(t *testing.T) {
	a := glyphCrop(t, 0, 0)
	defer a.Close()
	rot := gocv.GetRotationMatrix2D(image.Pt(a.Cols()/2, a.Rows()/2), 2, 1)
	defer rot.Close()
	b := gocv.NewMat()
	defer b.Close()
	gocv.WarpAffineWithParams(a, &b, rot, image.Pt(a.Cols(), a.Rows()),
		gocv.InterpolationLinear, gocv.BorderReplicate, color.RGBA{})

	m := NewMatcher(DefaultParams(), nil, nil)
	same, err := m.VerifyPair(a, b)
	if err != nil {
		t.Fatal(err)
	}
	if !same {
		t.Error("a two degree rotation must still verify")
	}
}

func TestEscalationRequiresPromisingScores(t *testing.T) {
	crop := glyphCrop(t, 0, 0)
	defer crop.Close()
	inv := gocv.NewMat()
	defer inv.Close()
	gocv.BitwiseNot(crop, &inv)

	m := NewMatcher(DefaultParams(), nil, nil)
	q, err := NewDescriptor(crop)
	if err != nil {
		t.Fatal(err)
	}
	defer q.Close()
	c, err := NewDescriptor(inv)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	scope := newScope(q, m.prm)
	defer scope.Close()

	// Past the fast gate but below both tier-up bounds: tier 1 runs and the
	// reject stops there, leaving a single cached verdict.
	cand := candidate{desc: c, profCos: 0.85}
	if m.verify(q, cand, scope) {
		t.Fatal("inverted content must not verify")
	}
	if got := m.caches.Verdicts.Len(); got != 1 {
		t.Errorf("expected only the tier 1 verdict cached, got %d", got)
	}

	// A promising profile score escalates to tier 2, adding its verdict
	// under the second signature.
	m.caches.Verdicts.Clear()
	cand.profCos = 0.95
	if m.verify(q, cand, scope) {
		t.Fatal("inverted content must not verify")
	}
	if got := m.caches.Verdicts.Len(); got != 2 {
		t.Errorf("expected both tier verdicts cached, got %d", got)
	}
}

func TestDescriptorForSurvivesCacheSweep(t *testing.T) {
	crop := testCrop(t, 5)
	defer crop.Close()
	path := filepath.Join(t.TempDir(), "crop.png")
	if !gocv.IMWrite(path, crop) {
		t.Fatal("could not write the fixture image")
	}

	m := NewMatcher(DefaultParams(), nil, nil)
	d, err := m.descriptorFor(path)
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()

	// Sweeping every cache tier must not touch the caller's copy.
	m.caches.Clear()
	if d.Gray.Empty() {
		t.Fatal("descriptor gray released by a cache sweep")
	}
	if got := ncc(d.Gray, d.Gray); got < 0.999 {
		t.Errorf("descriptor gray unusable after sweep: self NCC %f", got)
	}

	// Same for a copy served from the descriptor cache.
	d2, err := m.descriptorFor(path)
	if err != nil {
		t.Fatal(err)
	}
	defer d2.Close()
	m.caches.Clear()
	if d2.Gray.Empty() {
		t.Error("cache-served descriptor released by a sweep")
	}
}

func TestRotatedCandidateSurvivesCacheSweep(t *testing.T) {
	crop := testCrop(t, 6)
	defer crop.Close()
	m := NewMatcher(DefaultParams(), nil, nil)
	d, err := NewDescriptor(crop)
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()

	r1 := m.rotatedCandidate(d, 2)
	defer r1.Close()
	r2 := m.rotatedCandidate(d, 2) // served from the rotation cache
	defer r2.Close()
	m.caches.Rotations.Clear()
	if r1.Empty() || r2.Empty() {
		t.Error("rotated candidate released by a cache sweep")
	}
}

func TestTierSignatureChangesWithThresholds(t *testing.T) {
	a := DefaultParams()
	b := DefaultParams()
	b.NCCThr = 0.5
	if tierSignature(&a, a.Tier1) == tierSignature(&b, b.Tier1) {
		t.Error("signature must change when a threshold changes")
	}
}

func TestTierSignatureDistinguishesGridValues(t *testing.T) {
	p := DefaultParams()
	if tierSignature(&p, p.Tier1) == tierSignature(&p, p.Tier2) {
		t.Error("tiers must sign under distinct signatures")
	}

	a := p.Tier2
	b := p.Tier2
	b.Rotations = []float64{-4, 0, 4}
	if tierSignature(&p, a) == tierSignature(&p, b) {
		t.Error("signature must change when rotation values change, not just their count")
	}
}
