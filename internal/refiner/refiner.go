// Package refiner implements the optional second pass of the translation
// pipeline. It takes a winning draft translation and polishes it for
// idiomatic style in the target language using an LLM.
package refiner

import (
	"context"

	"github.com/valpere/perekod/internal/dialect"
)

// Refiner reviews and improves a draft translation for idiomatic style.
type Refiner interface {
	Refine(ctx context.Context, sourceLang, targetLang dialect.Language, sourceCode, draftCode string) (string, error)
}
