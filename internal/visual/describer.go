package visual

import (
	"context"

	"github.com/conceptrag/core/internal/resilience"
)

// unimplementedDescriber is the extension's default wiring: no example
// repo in the pack carries a multimodal (image-in) LLM client, so there's
// no Completer this package can call to actually describe a page render.
// It satisfies Describer so callers can depend on the interface today and
// swap in a real implementation once one exists, without the rest of the
// package changing shape.
type unimplementedDescriber struct{}

// NewUnimplementedDescriber returns a Describer that always reports the
// visual-extraction extension isn't wired to a vision model yet.
func NewUnimplementedDescriber() Describer { return unimplementedDescriber{} }

func (unimplementedDescriber) Describe(_ context.Context, imagePath string) (string, string, error) {
	err := resilience.New(resilience.ErrCodeInternal,
		"visual extraction has no vision-model client wired", nil).
		WithDetail("image_path", imagePath)
	return "", "", err
}
