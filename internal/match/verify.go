package match

import (
	"fmt"
	"math"

	"warscan/pkg/profile"

	"gocv.io/x/gocv"
)

// verifyState drives identity verification as an explicit state machine:
// a cheap gate first, then tier 1 for every survivor, and the full tier 2
// search only for candidates the cheap metrics already call promising.
type verifyState int

const (
	stateFastGate verifyState = iota
	stateTier1
	stateEscalate
	stateTier2
	stateAccept
	stateReject
)

type verdictKey struct {
	q, c uint64
	sig  string
}

// tierSignature fingerprints every value a tier verdict depends on, the
// search grid included, so cached verdicts are invalidated when any of them
// change. Each tier caches under its own signature.
func tierSignature(p *Params, tier TierSpec) string {
	return fmt.Sprintf("v2:%.3f,%.3f,%.3f,%.2f,%d,%.3f,%v,%v,%v,%d,%g,%.3f,%.3f,%.3f,%.3f,%d",
		p.NCCThr, p.NCCCenterThr, p.EdgeNCCThr, p.CenterFrac, p.MaxShift,
		p.ECCCCMin, tier.Rotations, tier.GaussK, tier.Motions,
		p.ECCMaxIter, p.ECCEps,
		p.InkIoUThr, p.ProfileCosThr, p.ProfileShiftedThr, p.CoverageDeltaMax,
		p.ShiftSearch)
}

// verify decides whether the candidate shows the same identity as the
// query, consulting and feeding the per-tier verdict caches.
func (m *Matcher) verify(q *Descriptor, cand candidate, scope *Scope) bool {
	return m.runVerify(q, cand, scope, true)
}

func (m *Matcher) runVerify(q *Descriptor, cand candidate, scope *Scope, useCache bool) bool {
	prm := m.prm

	centerC := cropCenter(cand.desc.Gray, prm.CenterFrac)
	centerScore := ncc(scope.Center(), centerC)
	centerC.Close()

	state := stateFastGate
	for {
		switch state {
		case stateFastGate:
			if prm.FastReject &&
				centerScore < prm.FRCenterMin && cand.profCos < prm.FRProfileMin {
				state = stateReject
			} else {
				state = stateTier1
			}

		case stateTier1:
			if m.tierVerdict(q, cand, scope, prm.Tier1, m.sigTier1, useCache) {
				state = stateAccept
			} else {
				state = stateEscalate
			}

		case stateEscalate:
			if centerScore >= prm.TierUpCenter || cand.profCos >= prm.TierUpProfile {
				state = stateTier2
			} else {
				state = stateReject
			}

		case stateTier2:
			if m.tierVerdict(q, cand, scope, prm.Tier2, m.sigFull, useCache) {
				state = stateAccept
			} else {
				state = stateReject
			}

		case stateAccept:
			return true
		case stateReject:
			return false
		}
	}
}

// tierVerdict runs one tier, served from the verdict cache when enabled.
func (m *Matcher) tierVerdict(q *Descriptor, cand candidate, scope *Scope, tier TierSpec, sig string, useCache bool) bool {
	if !useCache {
		return m.runTier(q, cand.desc, scope, tier)
	}
	key := verdictKey{q: q.Hash, c: cand.desc.Hash, sig: sig}
	if v, ok := m.caches.Verdicts.Get(key); ok {
		return v
	}
	v := m.runTier(q, cand.desc, scope, tier)
	m.caches.Verdicts.Put(key, v)
	return v
}

// runTier aligns the candidate onto the query and tests acceptance: first a
// phase-correlation translation, then the tier's rotation, smoothing kernel
// and motion model grid fitted with ECC.
func (m *Matcher) runTier(q *Descriptor, c *Descriptor, scope *Scope, tier TierSpec) bool {
	prm := m.prm

	dx, dy, _ := phaseShift(q.Gray, c.Gray)
	if math.Abs(dx) <= float64(prm.MaxShift) && math.Abs(dy) <= float64(prm.MaxShift) {
		moved := translateGray(c.Gray, dx, dy)
		ok := m.accept(q, moved, scope)
		moved.Close()
		if ok {
			return true
		}
	}

	for _, deg := range tier.Rotations {
		cRot := m.rotatedCandidate(c, deg)
		cf := normalizedFloat(cRot)
		for _, k := range tier.GaussK {
			for _, motion := range tier.Motions {
				warp, ok := eccFit(scope.Float(), cf, motion,
					prm.ECCMaxIter, prm.ECCEps, prm.ECCCCMin, k)
				if !ok {
					continue
				}
				warped := applyWarp(cRot, warp, q.Gray.Cols(), q.Gray.Rows())
				warp.Close()
				pass := m.accept(q, warped, scope)
				warped.Close()
				if pass {
					cf.Close()
					cRot.Close()
					return true
				}
			}
		}
		cf.Close()
		cRot.Close()
	}
	return false
}

// accept applies the three acceptance clauses to an aligned candidate. Ink
// mask and column profile are recomputed from the aligned image, so the
// text gates see what the appearance gates see.
func (m *Matcher) accept(q *Descriptor, aligned gocv.Mat, scope *Scope) bool {
	prm := m.prm

	fullOK := ncc(q.Gray, aligned) >= prm.NCCThr
	centerC := cropCenter(aligned, prm.CenterFrac)
	centerOK := ncc(scope.Center(), centerC) >= prm.NCCCenterThr
	centerC.Close()
	edgesC := sobelMag(aligned)
	edgeOK := ncc(scope.Edges(), edgesC) >= prm.EdgeNCCThr
	edgesC.Close()

	ink := inkMask(aligned)
	defer ink.Close()
	prof := columnProfile(ink)

	iou := maskIoU(scope.Ink(), ink)
	cos := profile.Cosine(q.Profile, prof)
	textOK := iou >= prm.InkIoUThr && cos >= prm.ProfileCosThr

	shifted, _ := profile.BestShiftedCosine(q.Profile, prof, prm.ShiftSearch)
	covOK := math.Abs(scope.InkCoverage()-coverage(ink)) <= prm.CoverageDeltaMax
	textStrong := shifted >= prm.ProfileShiftedThr && covOK
	textPass := textOK || textStrong

	if textStrong {
		return true
	}
	if centerOK && edgeOK && textPass {
		return true
	}
	if fullOK && textPass && (centerOK || edgeOK) {
		return true
	}
	return false
}
