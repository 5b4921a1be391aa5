package device

import "github.com/hupe1980/rpstage/fmindex"

// profileAdaptive computes the adaptive region profile of key, appending at
// most maxRegions regions to dst.
//
// The key is scanned right to left. A region grows while its interval stays
// non-empty. Once the occurrence count drops to OccMinThreshold the region is
// extended by up to ExtraSearchSteps more bases and cut. Symbols at or above
// AlphabetSize end the current region and are skipped. The region reaching
// the left end of the key is emitted whatever its occurrence count.
func profileAdaptive(dst []Region, idx *fmindex.Index, key []byte, maxRegions int, p AdaptiveParams) []Region {
	alphabet := byte(min(p.AlphabetSize, 255))
	emitted := 0
	i := len(key) - 1

	for i >= 0 && emitted < maxRegions {
		if key[i] >= alphabet {
			i--
			continue
		}

		end := i + 1
		lo, hi := idx.Full()
		for i >= 0 && key[i] < alphabet {
			nlo, nhi := idx.Extend(lo, hi, key[i])
			if nlo >= nhi {
				break
			}
			lo, hi = nlo, nhi
			i--
			if hi-lo <= p.OccMinThreshold {
				for step := 0; step < p.ExtraSearchSteps && i >= 0 && key[i] < alphabet; step++ {
					nlo, nhi := idx.Extend(lo, hi, key[i])
					if nlo >= nhi {
						break
					}
					lo, hi = nlo, nhi
					i--
				}
				break
			}
		}

		if i+1 == end {
			// The base at end-1 does not occur in the index at all.
			i--
			continue
		}
		dst = append(dst, Region{Begin: i + 1, End: end, Lo: lo, Hi: hi})
		emitted++
	}
	return dst
}
