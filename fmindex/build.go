package fmindex

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"runtime"
	"slices"

	"github.com/RoaringBitmap/roaring/v2"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultOccSampleRate is the BWT distance between occurrence checkpoints.
	DefaultOccSampleRate = 64
	// DefaultSASampleRate keeps one suffix-array value per this many text positions.
	DefaultSASampleRate = 32
)

type options struct {
	occRate     int
	saRate      int
	parallelism int
}

// Option configures Build.
type Option func(*options)

// WithOccSampleRate sets the occurrence checkpoint spacing.
func WithOccSampleRate(rate int) Option {
	return func(o *options) { o.occRate = rate }
}

// WithSASampleRate sets the suffix-array sampling rate used by Locate.
func WithSASampleRate(rate int) Option {
	return func(o *options) { o.saRate = rate }
}

// WithParallelism bounds the goroutines used for checkpoint construction.
func WithParallelism(n int) Option {
	return func(o *options) { o.parallelism = n }
}

// Build constructs an index over refs. Sequences are concatenated, each
// followed by a separator, and terminated by the sentinel.
func Build(ctx context.Context, refs []Sequence, optFns ...Option) (*Index, error) {
	opts := options{
		occRate:     DefaultOccSampleRate,
		saRate:      DefaultSASampleRate,
		parallelism: runtime.GOMAXPROCS(0),
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.occRate <= 0 || opts.saRate <= 0 {
		return nil, fmt.Errorf("%w: sample rates must be positive", ErrInvalidOptions)
	}
	if opts.parallelism <= 0 {
		opts.parallelism = 1
	}
	if len(refs) == 0 {
		return nil, fmt.Errorf("%w: no reference sequences", ErrInvalidOptions)
	}

	total := uint64(1)
	for _, r := range refs {
		total += uint64(len(r.Seq)) + 1
	}
	if total > math.MaxUint32 {
		return nil, fmt.Errorf("%w: %d symbols", ErrTooLarge, total)
	}

	x := &Index{
		n:       total,
		occRate: uint32(opts.occRate),
		saRate:  uint32(opts.saRate),
		names:   make([]string, len(refs)),
		starts:  make([]uint64, len(refs)),
	}

	text := make([]byte, 0, total)
	for i, r := range refs {
		x.names[i] = r.Name
		x.starts[i] = uint64(len(text))
		for _, sym := range r.Seq {
			text = append(text, rankOf(sym))
		}
		text = append(text, rankSeparator)
	}
	text = append(text, rankSentinel)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sa, err := suffixArray(ctx, text)
	if err != nil {
		return nil, err
	}

	var counts [sigma]uint64
	x.bwt = make([]byte, total)
	x.sampled = roaring.New()
	for row, p := range sa {
		if p == 0 {
			x.bwt[row] = text[total-1]
		} else {
			x.bwt[row] = text[p-1]
		}
		counts[text[row]]++
		if p%x.saRate == 0 {
			x.sampled.Add(uint32(row))
			x.samples = append(x.samples, p)
		}
	}
	x.sampled.RunOptimize()

	for r := 1; r <= sigma; r++ {
		x.c[r] = x.c[r-1] + counts[r-1]
	}

	occ, err := buildCheckpoints(ctx, x.bwt, opts.occRate, opts.parallelism)
	if err != nil {
		return nil, err
	}
	x.occ = occ

	return x, nil
}

// suffixArray sorts the suffixes of text by prefix doubling: round k orders
// them by their first 2^k symbols using the ranks of round k-1, so repeats in
// the reference cost O(log n) rounds of O(n log n) each instead of long
// suffix comparisons.
func suffixArray(ctx context.Context, text []byte) ([]uint32, error) {
	n := len(text)
	sa := make([]uint32, n)
	rank := make([]uint32, n)
	next := make([]uint32, n)
	for i := range sa {
		sa[i] = uint32(i)
		rank[i] = uint32(text[i])
	}

	for k := 1; ; k <<= 1 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		// A suffix shorter than k sorts before every longer one with the
		// same prefix.
		second := func(i uint32) int64 {
			if j := int(i) + k; j < n {
				return int64(rank[j])
			}
			return -1
		}
		slices.SortFunc(sa, func(a, b uint32) int {
			if c := cmp.Compare(rank[a], rank[b]); c != 0 {
				return c
			}
			return cmp.Compare(second(a), second(b))
		})

		next[sa[0]] = 0
		for i := 1; i < n; i++ {
			a, b := sa[i-1], sa[i]
			next[b] = next[a]
			if rank[a] != rank[b] || second(a) != second(b) {
				next[b]++
			}
		}
		rank, next = next, rank
		if int(rank[sa[n-1]]) == n-1 || k >= n {
			return sa, nil
		}
	}
}

// buildCheckpoints counts each block in parallel and then prefix-sums the
// per-block counts into absolute checkpoints.
func buildCheckpoints(ctx context.Context, bwt []byte, rate, parallelism int) ([]uint32, error) {
	numBlocks := len(bwt)/rate + 1
	occ := make([]uint32, numBlocks*sigma)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)

	chunk := max(1, (numBlocks-1+parallelism-1)/parallelism)
	for first := 0; first < numBlocks-1; first += chunk {
		last := min(first+chunk, numBlocks-1)
		g.Go(func() error {
			for k := first; k < last; k++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				dst := occ[(k+1)*sigma : (k+2)*sigma]
				for _, r := range bwt[k*rate : (k+1)*rate] {
					dst[r]++
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for k := 1; k < numBlocks; k++ {
		for r := 0; r < sigma; r++ {
			occ[k*sigma+r] += occ[(k-1)*sigma+r]
		}
	}
	return occ, nil
}
