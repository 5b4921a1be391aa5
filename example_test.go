package rpstage_test

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/hupe1980/rpstage"
	"github.com/hupe1980/rpstage/device"
	"github.com/hupe1980/rpstage/dna"
	"github.com/hupe1980/rpstage/fmindex"
	"github.com/hupe1980/rpstage/search"
)

const exampleFASTA = `>chr1
ACGTTGCAAGGCTTACCGATTGACCTAGGCATCGATCGGATCCATGCAAGTCTTAGCGATACGATCAGTACGGCATTAGCA
>chr2
TTGACCGATGCAGGCATTACCGATAGCTTAGGCAACGTTAGCATGCCATGCAGTTACGATCGATTGCAACGTAGCTAGCT
`

// Example demonstrates one submit/retrieve round of single-end reads.
func Example() {
	ctx := context.Background()

	refs, err := fmindex.ReadFASTA(strings.NewReader(exampleFASTA))
	if err != nil {
		log.Fatal(err)
	}
	idx, err := fmindex.Build(ctx, refs)
	if err != nil {
		log.Fatal(err)
	}

	dev, err := device.NewEmulator(idx, device.Config{NumBuffers: 2})
	if err != nil {
		log.Fatal(err)
	}
	defer dev.Close()

	cache := search.NewCache(nil)
	st, err := rpstage.NewStage(dev, 0, 2, rpstage.Static(rpstage.StaticConfig{Enabled: true}))
	if err != nil {
		log.Fatal(err)
	}
	defer st.Close(cache)

	for _, read := range []string{"GGCATCGATCGGATCCATGC", "CCGATAGCTTAGGCAACGTT"} {
		s := cache.Alloc()
		s.Tag = read
		s.Prepare(dna.EncodeString(read), search.DefaultRegionLength)
		if !st.SubmitSingle(s) {
			log.Fatal("stage saturated")
		}
	}

	for {
		s, ok, err := st.RetrieveSingle(ctx)
		if err != nil {
			log.Fatal(err)
		}
		if !ok {
			break
		}
		r := s.Profile.Regions[0]
		name, pos, _ := idx.Locate(r.Lo)
		fmt.Printf("%s: %d hit at %s:%d\n", s.Tag, r.Occurrences(), name, pos)
	}
	st.Clear(cache)

	// Output:
	// GGCATCGATCGGATCCATGC: 1 hit at chr1:27
	// CCGATAGCTTAGGCAACGTT: 1 hit at chr2:19
}
