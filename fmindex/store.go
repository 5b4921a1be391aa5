package fmindex

import (
	"bufio"
	"context"
	"fmt"

	"github.com/hupe1980/rpstage/blobstore"
	"go.uber.org/multierr"
)

// Save encodes idx into a new blob called name. The blob is published only
// after it was synced; any earlier failure discards it.
func Save(ctx context.Context, store blobstore.Store, name string, idx *Index, c Compression) error {
	w, err := store.Create(ctx, name)
	if err != nil {
		return fmt.Errorf("fmindex: create %s: %w", name, err)
	}
	bw := bufio.NewWriterSize(w, 1<<20)
	if _, err := idx.Encode(bw, c); err != nil {
		_ = blobstore.Abort(w)
		return fmt.Errorf("fmindex: encode %s: %w", name, err)
	}
	if err := bw.Flush(); err != nil {
		_ = blobstore.Abort(w)
		return fmt.Errorf("fmindex: write %s: %w", name, err)
	}
	if err := w.Sync(); err != nil {
		_ = blobstore.Abort(w)
		return fmt.Errorf("fmindex: sync %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("fmindex: publish %s: %w", name, err)
	}
	return nil
}

// Load opens the blob called name and decodes it. The returned index does
// not reference the blob.
func Load(ctx context.Context, store blobstore.Store, name string) (idx *Index, err error) {
	blob, err := store.Open(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("fmindex: open %s: %w", name, err)
	}
	defer multierr.AppendInvoke(&err, multierr.Close(blob))

	idx, err = Read(blob, blob.Size())
	if err != nil {
		return nil, fmt.Errorf("fmindex: load %s: %w", name, err)
	}
	return idx, nil
}
