// Package rpstage provides the region-profile dispatch stage of a short-read
// aligner.
//
// The stage packs search requests into a fixed pool of accelerator buffers,
// dispatches each full buffer asynchronously for exact-match region profiling
// against a genome index, and hands the results back in submission order
// while later buffers are still being computed.
//
// # Quick Start
//
//	refs, _ := fmindex.ReadFASTA(f)
//	idx, _ := fmindex.Build(ctx, refs)
//	dev, _ := device.NewEmulator(idx, device.Config{NumBuffers: 4})
//	defer dev.Close()
//
//	st, _ := rpstage.NewStage(dev, 0, 4, rpstage.Adaptive(rpstage.DefaultAdaptiveConfig()))
//	defer st.Close(cache)
//
// # Rounds
//
// Each round submits until the stage saturates or the input ends, then
// drains:
//
//	for _, read := range batch {
//	    s := cache.Alloc()
//	    s.Prepare(dna.Encode(read), search.DefaultRegionLength)
//	    if !st.SubmitSingle(s) {
//	        cache.Free(s)
//	        break // drain, then resubmit read
//	    }
//	}
//	for {
//	    s, ok, err := st.RetrieveSingle(ctx)
//	    if err != nil || !ok {
//	        break
//	    }
//	    use(s.Profile)
//	}
//	st.Clear(cache)
//
// Paired-end reads go through SubmitPaired and RetrievePaired; both ends of a
// pair always share a buffer.
//
// # Profile Modes
//
// Adaptive profiles whole keys on the device and returns a variable number of
// regions per key. Static searches the fixed CPU-side partition of each key
// and returns one interval per partition. The mode changes the capacity cost
// of a request and nothing else about the stage.
//
// # Sub-packages
//
//   - device: buffer handle contract and a software accelerator emulator
//   - search: search requests, region profiles and the request cache
//   - fmindex: FM-index over a reference genome with a compressed file format
//   - blobstore: local, in-memory, S3 and MinIO storage for index files
//   - observability: Prometheus metrics for stages
package rpstage
