package ops

import "sort"

// NMSOptions configures non-maximum suppression.
type NMSOptions struct {
	IoUThreshold  float32
	ClassAgnostic bool
	MaxDetections int
}

// NonMaxSuppression discards overlapping lower-confidence detections,
// keeping at most one per object (per class unless ClassAgnostic).
//
// Candidates are sorted by descending score with the original index as a
// tie-break, so the retained set and its order are deterministic for
// identical inputs.
func NonMaxSuppression(cands []Detection, opts NMSOptions) []Detection {
	if len(cands) == 0 {
		return nil
	}
	idx := make([]int, len(cands))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return cands[idx[a]].Score > cands[idx[b]].Score
	})

	kept := make([]Detection, 0, len(cands))
	for _, i := range idx {
		c := cands[i]
		keep := true
		for _, k := range kept {
			if !opts.ClassAgnostic && k.Class != c.Class {
				continue
			}
			if IoU(k.Box, c.Box) > opts.IoUThreshold {
				keep = false
				break
			}
		}
		if keep {
			kept = append(kept, c)
			if opts.MaxDetections > 0 && len(kept) >= opts.MaxDetections {
				break
			}
		}
	}
	return kept
}
