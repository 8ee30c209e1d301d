package ops

// MatchDetections assigns retained detections to ground-truth boxes at a
// ladder of IoU thresholds. The result is one row per detection, one column
// per threshold; a true cell means the detection matched an unclaimed
// ground-truth box of the same class at that threshold.
//
// Matching is greedy over descending IoU: each ground-truth box is claimed
// at most once per threshold.
func MatchDetections(dets []Detection, gtBoxes []Box, gtClasses []int, thresholds []float64) [][]bool {
	tp := make([][]bool, len(dets))
	for i := range tp {
		tp[i] = make([]bool, len(thresholds))
	}
	if len(dets) == 0 || len(gtBoxes) == 0 {
		return tp
	}

	type pair struct {
		det, gt int
		iou     float32
	}
	var pairs []pair
	for d, det := range dets {
		for g, gb := range gtBoxes {
			if det.Class != gtClasses[g] {
				continue
			}
			if iou := IoU(det.Box, gb); iou > 0 {
				pairs = append(pairs, pair{det: d, gt: g, iou: iou})
			}
		}
	}
	// Highest-overlap pairs claim first; ties fall back to detection order
	// so the assignment is deterministic.
	for i := 1; i < len(pairs); i++ {
		for j := i; j > 0 && pairs[j].iou > pairs[j-1].iou; j-- {
			pairs[j], pairs[j-1] = pairs[j-1], pairs[j]
		}
	}

	for t, thr := range thresholds {
		usedDet := make([]bool, len(dets))
		usedGT := make([]bool, len(gtBoxes))
		for _, p := range pairs {
			if float64(p.iou) < thr {
				break
			}
			if usedDet[p.det] || usedGT[p.gt] {
				continue
			}
			usedDet[p.det] = true
			usedGT[p.gt] = true
			tp[p.det][t] = true
		}
	}
	return tp
}
