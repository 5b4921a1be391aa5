package fmindex

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/errgroup"
)

// Encoded layout:
//
//	header   [magic "RPFM"][version u16][compression u8][pad u8]
//	         [sections u32][occRate u32][saRate u32][n u64][pad u32]
//	table    sections x [id u32][codec u8][pad 3][offset u64][stored u64][raw u64][xxhash64 u64]
//	data     section payloads
const (
	formatVersion   = 1
	headerSize      = 32
	tableEntrySize  = 40
	maxSectionCount = 16

	// metaSlack bounds the sequence-name bytes of the meta section.
	metaSlack = 1 << 26
)

var magic = [4]byte{'R', 'P', 'F', 'M'}

const (
	sectionMeta uint32 = iota + 1
	sectionBWT
	sectionOcc
	sectionSamples
	sectionSampled
	numSections = 5
)

type sectionEntry struct {
	id       uint32
	codec    Compression
	offset   uint64
	stored   uint64
	raw      uint64
	checksum uint64
}

func (e sectionEntry) put(b []byte) {
	binary.LittleEndian.PutUint32(b[0:], e.id)
	b[4] = byte(e.codec)
	binary.LittleEndian.PutUint64(b[8:], e.offset)
	binary.LittleEndian.PutUint64(b[16:], e.stored)
	binary.LittleEndian.PutUint64(b[24:], e.raw)
	binary.LittleEndian.PutUint64(b[32:], e.checksum)
}

func parseEntry(b []byte) sectionEntry {
	return sectionEntry{
		id:       binary.LittleEndian.Uint32(b[0:]),
		codec:    Compression(b[4]),
		offset:   binary.LittleEndian.Uint64(b[8:]),
		stored:   binary.LittleEndian.Uint64(b[16:]),
		raw:      binary.LittleEndian.Uint64(b[24:]),
		checksum: binary.LittleEndian.Uint64(b[32:]),
	}
}

func (x *Index) marshalMeta() []byte {
	size := (sigma+1)*8 + 4
	for _, name := range x.names {
		size += 8 + 4 + len(name)
	}
	b := make([]byte, 0, size)
	for _, v := range x.c {
		b = binary.LittleEndian.AppendUint64(b, v)
	}
	b = binary.LittleEndian.AppendUint32(b, uint32(len(x.names)))
	for i, name := range x.names {
		b = binary.LittleEndian.AppendUint64(b, x.starts[i])
		b = binary.LittleEndian.AppendUint32(b, uint32(len(name)))
		b = append(b, name...)
	}
	return b
}

func (x *Index) unmarshalMeta(b []byte) error {
	if len(b) < (sigma+1)*8+4 {
		return fmt.Errorf("%w: short meta section", ErrCorrupt)
	}
	for i := range x.c {
		x.c[i] = binary.LittleEndian.Uint64(b[i*8:])
	}
	b = b[(sigma+1)*8:]
	count := binary.LittleEndian.Uint32(b)
	b = b[4:]
	x.names = make([]string, 0, min(count, 1<<16))
	x.starts = make([]uint64, 0, min(count, 1<<16))
	for i := uint32(0); i < count; i++ {
		if len(b) < 12 {
			return fmt.Errorf("%w: truncated sequence table", ErrCorrupt)
		}
		start := binary.LittleEndian.Uint64(b)
		nameLen := binary.LittleEndian.Uint32(b[8:])
		b = b[12:]
		if uint64(len(b)) < uint64(nameLen) {
			return fmt.Errorf("%w: truncated sequence name", ErrCorrupt)
		}
		x.starts = append(x.starts, start)
		x.names = append(x.names, string(b[:nameLen]))
		b = b[nameLen:]
	}
	return nil
}

func marshalUint32s(vs []uint32) []byte {
	b := make([]byte, 0, len(vs)*4)
	for _, v := range vs {
		b = binary.LittleEndian.AppendUint32(b, v)
	}
	return b
}

func unmarshalUint32s(b []byte) ([]uint32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("%w: misaligned uint32 section", ErrCorrupt)
	}
	vs := make([]uint32, len(b)/4)
	for i := range vs {
		vs[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	return vs, nil
}

// Encode writes the index to w. Sections are compressed in parallel.
func (x *Index) Encode(w io.Writer, c Compression) (int64, error) {
	sampled, err := x.sampled.ToBytes()
	if err != nil {
		return 0, err
	}
	raw := [numSections][]byte{
		x.marshalMeta(),
		x.bwt,
		marshalUint32s(x.occ),
		marshalUint32s(x.samples),
		sampled,
	}

	var (
		stored  [numSections][]byte
		entries [numSections]sectionEntry
		g       errgroup.Group
	)
	for i := range raw {
		g.Go(func() error {
			out, codec, err := compress(raw[i], c)
			if err != nil {
				return err
			}
			stored[i] = out
			entries[i] = sectionEntry{
				id:       uint32(i) + sectionMeta,
				codec:    codec,
				stored:   uint64(len(out)),
				raw:      uint64(len(raw[i])),
				checksum: xxhash.Sum64(out),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	head := make([]byte, headerSize+numSections*tableEntrySize)
	copy(head, magic[:])
	binary.LittleEndian.PutUint16(head[4:], formatVersion)
	head[6] = byte(c)
	binary.LittleEndian.PutUint32(head[8:], numSections)
	binary.LittleEndian.PutUint32(head[12:], x.occRate)
	binary.LittleEndian.PutUint32(head[16:], x.saRate)
	binary.LittleEndian.PutUint64(head[20:], x.n)

	off := uint64(len(head))
	for i := range entries {
		entries[i].offset = off
		off += entries[i].stored
		entries[i].put(head[headerSize+i*tableEntrySize:])
	}

	var total int64
	n, err := w.Write(head)
	total += int64(n)
	if err != nil {
		return total, err
	}
	for _, s := range stored {
		n, err := w.Write(s)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// maxRawSection bounds the decoded size of any section of an index over n
// symbols. The occurrence table is the largest one.
func maxRawSection(n uint64) uint64 {
	return (n+1)*sigma*4 + metaSlack
}

func readFull(r io.ReaderAt, buf []byte, off int64) error {
	n, err := r.ReadAt(buf, off)
	if n == len(buf) {
		return nil
	}
	if err == nil || err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return err
}

// Read decodes an index from r, which holds size bytes. Section checksums are
// verified before decompression.
func Read(r io.ReaderAt, size int64) (*Index, error) {
	if size < headerSize {
		return nil, fmt.Errorf("%w: %d bytes is smaller than the header", ErrCorrupt, size)
	}
	head := make([]byte, headerSize)
	if err := readFull(r, head, 0); err != nil {
		return nil, fmt.Errorf("fmindex: read header: %w", err)
	}
	if [4]byte(head[:4]) != magic {
		return nil, fmt.Errorf("%w: bad magic %q", ErrIncompatibleFormat, head[:4])
	}
	if v := binary.LittleEndian.Uint16(head[4:]); v != formatVersion {
		return nil, fmt.Errorf("%w: version %d", ErrIncompatibleFormat, v)
	}
	count := binary.LittleEndian.Uint32(head[8:])
	if count == 0 || count > maxSectionCount {
		return nil, fmt.Errorf("%w: %d sections", ErrCorrupt, count)
	}

	x := &Index{
		occRate: binary.LittleEndian.Uint32(head[12:]),
		saRate:  binary.LittleEndian.Uint32(head[16:]),
		n:       binary.LittleEndian.Uint64(head[20:]),
	}
	if x.occRate == 0 || x.saRate == 0 || x.n == 0 || x.n > math.MaxUint32 {
		return nil, fmt.Errorf("%w: invalid header parameters", ErrCorrupt)
	}
	rawLimit := maxRawSection(x.n)

	table := make([]byte, int(count)*tableEntrySize)
	if err := readFull(r, table, headerSize); err != nil {
		return nil, fmt.Errorf("fmindex: read section table: %w", err)
	}

	var (
		entries []sectionEntry
		seen    [numSections]bool
	)
	for i := 0; i < int(count); i++ {
		e := parseEntry(table[i*tableEntrySize:])
		if e.offset+e.stored > uint64(size) || e.offset+e.stored < e.offset {
			return nil, fmt.Errorf("%w: section %d out of bounds", ErrCorrupt, e.id)
		}
		if e.raw > rawLimit {
			return nil, fmt.Errorf("%w: section %d claims %d decoded bytes", ErrCorrupt, e.id, e.raw)
		}
		if e.id < sectionMeta || e.id > sectionSampled {
			// Unknown sections from newer writers are skipped.
			continue
		}
		if seen[e.id-sectionMeta] {
			return nil, fmt.Errorf("%w: duplicate section %d", ErrCorrupt, e.id)
		}
		seen[e.id-sectionMeta] = true
		entries = append(entries, e)
	}

	var (
		sections [numSections][]byte
		g        errgroup.Group
	)
	for _, e := range entries {
		g.Go(func() error {
			buf := make([]byte, e.stored)
			if err := readFull(r, buf, int64(e.offset)); err != nil {
				return fmt.Errorf("fmindex: read section %d: %w", e.id, err)
			}
			if xxhash.Sum64(buf) != e.checksum {
				return fmt.Errorf("%w: section %d checksum mismatch", ErrCorrupt, e.id)
			}
			out, err := decompress(buf, e.codec, e.raw)
			if err != nil {
				return err
			}
			sections[e.id-sectionMeta] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for i, s := range sections {
		if s == nil {
			return nil, fmt.Errorf("%w: missing section %d", ErrCorrupt, uint32(i)+sectionMeta)
		}
	}

	if err := x.unmarshalMeta(sections[0]); err != nil {
		return nil, err
	}
	x.bwt = sections[1]

	var err error
	if x.occ, err = unmarshalUint32s(sections[2]); err != nil {
		return nil, err
	}
	if x.samples, err = unmarshalUint32s(sections[3]); err != nil {
		return nil, err
	}
	x.sampled = roaring.New()
	if _, err := x.sampled.FromBuffer(sections[4]); err != nil {
		return nil, fmt.Errorf("%w: sampled rows: %v", ErrCorrupt, err)
	}

	if err := x.validate(); err != nil {
		return nil, err
	}
	return x, nil
}

func (x *Index) validate() error {
	switch {
	case uint64(len(x.bwt)) != x.n:
		return fmt.Errorf("%w: bwt has %d symbols, want %d", ErrCorrupt, len(x.bwt), x.n)
	case uint64(len(x.occ)) != (x.n/uint64(x.occRate)+1)*sigma:
		return fmt.Errorf("%w: occurrence table size", ErrCorrupt)
	case x.sampled.GetCardinality() != uint64(len(x.samples)):
		return fmt.Errorf("%w: suffix-array sample count", ErrCorrupt)
	case x.c[sigma] != x.n:
		return fmt.Errorf("%w: symbol counts", ErrCorrupt)
	case len(x.names) == 0:
		return fmt.Errorf("%w: no sequences", ErrCorrupt)
	case !x.sampled.IsEmpty() && uint64(x.sampled.Maximum()) >= x.n:
		return fmt.Errorf("%w: sampled row out of range", ErrCorrupt)
	case !x.sampled.Contains(x.rowOfTextStart()):
		return fmt.Errorf("%w: text start is not sampled", ErrCorrupt)
	}
	for i, s := range x.starts {
		if s >= x.n || (i > 0 && s <= x.starts[i-1]) {
			return fmt.Errorf("%w: sequence offsets", ErrCorrupt)
		}
	}
	for _, r := range x.bwt {
		if r >= sigma {
			return fmt.Errorf("%w: bwt symbol %d", ErrCorrupt, r)
		}
	}
	return nil
}
