// Package visual is the optional page-image description extension: a
// document can be rendered page by page and each render described by a
// vision-capable model, stored alongside the four core collections behind
// the same store.Collection interface. Nothing in the default seeding
// pipeline populates this collection; it exists so a caller that does
// render pages has somewhere standard to put the result.
package visual

import (
	"context"
	"fmt"

	"github.com/conceptrag/core/internal/store"
)

// ImagePath returns the on-disk path for a page render, following the
// persisted-state layout's images/{catalog_id}/p{page}_v{index}.png
// convention.
func ImagePath(imagesRoot string, catalogID uint64, page, variantIndex uint32) string {
	return fmt.Sprintf("%s/%d/p%d_v%d.png", imagesRoot, catalogID, page, variantIndex)
}

// Describer produces a textual description of a rendered page image, the
// seam a vision-capable Completer would sit behind.
type Describer interface {
	Describe(ctx context.Context, imagePath string) (description, model string, err error)
}

// Collection opens the local page-image collection at the same dbPath the
// four core collections share, under its own vector index file.
func Collection(dbPath, vectorPath string, dimensions int) (store.Collection[store.PageImage], error) {
	return store.NewPageImageCollection(dbPath, vectorPath, dimensions)
}
