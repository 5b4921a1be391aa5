package search

import "github.com/hupe1980/rpstage/dna"

// DefaultRegionLength is the static partition length used by Prepare.
const DefaultRegionLength = 20

// Region is one profiled region of a key: the key span [Begin, End) and the
// suffix-array interval [Lo, Hi) of its exact matches.
type Region struct {
	Begin int
	End   int
	Lo    uint64
	Hi    uint64
}

// Occurrences returns the number of exact matches of the region.
func (r Region) Occurrences() uint64 {
	if r.Hi < r.Lo {
		return 0
	}
	return r.Hi - r.Lo
}

// Len returns the number of key bases the region covers.
func (r Region) Len() int { return r.End - r.Begin }

// RegionProfile is the device result for one request.
// Computed is false when the device skipped profiling and the CPU has to
// compute the profile itself.
type RegionProfile struct {
	Regions  []Region
	Computed bool
}

// Reset empties the profile, keeping its capacity.
func (p *RegionProfile) Reset() {
	p.Regions = p.Regions[:0]
	p.Computed = false
}

// Partition is a static key span searched as an independent seed.
type Partition struct {
	Begin int
	End   int
}

// DeviceRef locates the request's data inside a device buffer.
type DeviceRef struct {
	Offset int
	Count  int
}

// Search is one sequence-search request.
type Search struct {
	ID  uint64
	Tag string

	// Key holds dna-encoded bases.
	Key []byte
	// MaxRegions is the number of adaptive result slots reserved on the device.
	MaxRegions int
	// Partitions is the static region partition of Key.
	Partitions []Partition

	Profile   RegionProfile
	DeviceRef DeviceRef
}

// KeyLength returns the number of bases in Key.
func (s *Search) KeyLength() int { return len(s.Key) }

// NumRegionsProfile returns the number of static partitions.
func (s *Search) NumRegionsProfile() int { return len(s.Partitions) }

// Prepare loads key into s and computes the static partition and the
// adaptive region budget. regionLength <= 0 selects DefaultRegionLength.
func (s *Search) Prepare(key []byte, regionLength int) {
	if regionLength <= 0 {
		regionLength = DefaultRegionLength
	}
	s.Key = append(s.Key[:0], key...)
	s.Partitions = PartitionStatic(s.Partitions[:0], s.Key, regionLength)
	s.MaxRegions = max(1, (len(s.Key)+regionLength-1)/regionLength)
	s.Profile.Reset()
	s.DeviceRef = DeviceRef{}
}

// reset clears s for reuse, keeping slice capacity.
func (s *Search) reset(id uint64) {
	s.ID = id
	s.Tag = ""
	s.Key = s.Key[:0]
	s.MaxRegions = 0
	s.Partitions = s.Partitions[:0]
	s.Profile.Reset()
	s.DeviceRef = DeviceRef{}
}

// PartitionStatic appends to dst the fixed-length partitions of key. Runs of
// non-base symbols split the key; a run tail shorter than half a region is
// merged into the preceding partition of the same run.
func PartitionStatic(dst []Partition, key []byte, regionLength int) []Partition {
	if regionLength <= 0 {
		regionLength = DefaultRegionLength
	}
	i := 0
	for i < len(key) {
		for i < len(key) && !dna.IsBase(key[i]) {
			i++
		}
		begin := i
		for i < len(key) && dna.IsBase(key[i]) {
			i++
		}
		end := i
		if begin == end {
			continue
		}

		first := len(dst)
		for p := begin; p < end; p += regionLength {
			dst = append(dst, Partition{Begin: p, End: min(p+regionLength, end)})
		}
		last := len(dst) - 1
		if last > first && dst[last].End-dst[last].Begin < regionLength/2 {
			dst[last-1].End = dst[last].End
			dst = dst[:last]
		}
	}
	return dst
}
