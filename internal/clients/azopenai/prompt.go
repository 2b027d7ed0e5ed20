package azopenai

import (
	"fmt"
	"path/filepath"
	"strings"
)

// DisplayName derives the human-readable item name embedded in the
// instruction from an image filename stem.
func DisplayName(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// BuildInstruction returns the fixed instruction template for a set of item
// image filenames. The structure is deliberately stable: support tooling
// matches on the generated prompt shape.
func BuildInstruction(imageFilenames []string) string {
	names := make([]string, 0, len(imageFilenames))
	for _, f := range imageFilenames {
		names = append(names, DisplayName(f))
	}
	return fmt.Sprintf(`Create a professional fashion photo of a female model wearing: %s

- Use ONLY the clothing items from the provided images
- Do not add any other items
- Clean white background, full body shot
`, strings.Join(names, ", "))
}
