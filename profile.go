package rpstage

import (
	"context"
	"fmt"

	"github.com/hupe1980/rpstage/device"
	"github.com/hupe1980/rpstage/search"
)

// ProfileMode selects the device variant a stage runs on. It fixes the
// capacity cost of a request and how request data moves in and out of the
// device buffer. The Stage and Buffer protocol is the same for every mode.
type ProfileMode interface {
	// Name identifies the mode in logs.
	Name() string
	// Open binds a device handle at slot to the mode.
	Open(src device.Source, slot int) (Profiler, error)
}

// Profiler is a device buffer handle bound to a profile mode.
type Profiler interface {
	// MaxQueries bounds how many requests the buffer can list.
	MaxQueries() int
	// Fits reports whether end1, and end2 when non-nil, fit together in the
	// remaining capacity.
	Fits(end1, end2 *search.Search) bool
	// Copy uploads the request's profile input and records where it went in
	// s.DeviceRef.
	Copy(s *search.Search) error
	// Extract reads the request's profile results into s.Profile.
	Extract(s *search.Search) error
	// Len returns the number of device entries uploaded so far.
	Len() int
	// Truncate rolls the device entries back to the first n.
	Truncate(n int)
	Send()
	Receive(ctx context.Context) error
	Clear()
	Close() error
}

// AdaptiveConfig configures the adaptive region-profile device variant.
type AdaptiveConfig struct {
	Enabled          bool
	OccMinThreshold  uint64
	ExtraSearchSteps int
	AlphabetSize     int
}

// DefaultAdaptiveConfig returns the defaults for short reads.
func DefaultAdaptiveConfig() AdaptiveConfig {
	p := device.DefaultAdaptiveParams()
	return AdaptiveConfig{
		Enabled:          p.Enabled,
		OccMinThreshold:  p.OccMinThreshold,
		ExtraSearchSteps: p.ExtraSearchSteps,
		AlphabetSize:     p.AlphabetSize,
	}
}

// StaticConfig configures the static seed-search device variant.
type StaticConfig struct {
	Enabled bool
}

// Adaptive returns the mode that profiles whole keys on the device. A request
// costs one query, its key length in bases and MaxRegions result slots.
func Adaptive(cfg AdaptiveConfig) ProfileMode { return adaptiveMode{cfg: cfg} }

// Static returns the mode that searches the static partitions of each key as
// independent seeds. A request costs one seed per partition.
func Static(cfg StaticConfig) ProfileMode { return staticMode{cfg: cfg} }

type adaptiveMode struct {
	cfg AdaptiveConfig
}

func (adaptiveMode) Name() string { return "adaptive" }

func (m adaptiveMode) Open(src device.Source, slot int) (Profiler, error) {
	b, err := src.AdaptiveBuffer(slot, device.AdaptiveParams{
		Enabled:          m.cfg.Enabled,
		OccMinThreshold:  m.cfg.OccMinThreshold,
		ExtraSearchSteps: m.cfg.ExtraSearchSteps,
		AlphabetSize:     m.cfg.AlphabetSize,
	})
	if err != nil {
		return nil, err
	}
	return &adaptiveProfiler{AdaptiveBuffer: b}, nil
}

type adaptiveProfiler struct {
	device.AdaptiveBuffer
}

func (p *adaptiveProfiler) Fits(end1, end2 *search.Search) bool {
	queries, bases, regions := 1, end1.KeyLength(), end1.MaxRegions
	if end2 != nil {
		queries++
		bases += end2.KeyLength()
		regions += end2.MaxRegions
	}
	return p.FitsInBuffer(queries, bases, regions)
}

func (p *adaptiveProfiler) Copy(s *search.Search) error {
	q, err := p.AddQuery(s.Key, s.MaxRegions)
	if err != nil {
		return fmt.Errorf("copy search %d: %w", s.ID, err)
	}
	s.DeviceRef = search.DeviceRef{Offset: q, Count: 1}
	return nil
}

func (p *adaptiveProfiler) Extract(s *search.Search) error {
	s.Profile.Reset()
	if !p.Computed() {
		return nil
	}
	for _, r := range p.Regions(s.DeviceRef.Offset) {
		s.Profile.Regions = append(s.Profile.Regions, search.Region{Begin: r.Begin, End: r.End, Lo: r.Lo, Hi: r.Hi})
	}
	s.Profile.Computed = true
	return nil
}

type staticMode struct {
	cfg StaticConfig
}

func (staticMode) Name() string { return "static" }

func (m staticMode) Open(src device.Source, slot int) (Profiler, error) {
	b, err := src.StaticBuffer(slot, device.StaticParams{Enabled: m.cfg.Enabled})
	if err != nil {
		return nil, err
	}
	return &staticProfiler{StaticBuffer: b}, nil
}

type staticProfiler struct {
	device.StaticBuffer
}

func (p *staticProfiler) Fits(end1, end2 *search.Search) bool {
	if !seedsFit(end1) || (end2 != nil && !seedsFit(end2)) {
		return false
	}
	seeds := end1.NumRegionsProfile()
	if end2 != nil {
		seeds += end2.NumRegionsProfile()
	}
	return p.FitsInBuffer(seeds)
}

// seedsFit reports whether every partition of s fits a device seed entry.
func seedsFit(s *search.Search) bool {
	for _, part := range s.Partitions {
		if part.End-part.Begin > device.MaxSeedLength {
			return false
		}
	}
	return true
}

func (p *staticProfiler) Copy(s *search.Search) error {
	s.DeviceRef = search.DeviceRef{}
	for i, part := range s.Partitions {
		j, err := p.AddSeed(s.Key[part.Begin:part.End])
		if err != nil {
			return fmt.Errorf("copy search %d partition %d: %w", s.ID, i, err)
		}
		if i == 0 {
			s.DeviceRef.Offset = j
		}
		s.DeviceRef.Count++
	}
	return nil
}

func (p *staticProfiler) Extract(s *search.Search) error {
	s.Profile.Reset()
	if !p.Computed() {
		return nil
	}
	if s.DeviceRef.Count != len(s.Partitions) {
		return fmt.Errorf("extract search %d: %d partitions, %d seeds on device", s.ID, len(s.Partitions), s.DeviceRef.Count)
	}
	for i, part := range s.Partitions {
		lo, hi := p.Interval(s.DeviceRef.Offset + i)
		s.Profile.Regions = append(s.Profile.Regions, search.Region{Begin: part.Begin, End: part.End, Lo: lo, Hi: hi})
	}
	s.Profile.Computed = true
	return nil
}
