package harvest

import (
	"fmt"

	"github.com/ledongthuc/pdf"
)

// ExtractText opens a downloaded payload as a paginated document and
// concatenates per-page text up to cap runes. Pages that fail to decode are
// skipped rather than failing the whole document.
func ExtractText(path string, cap int) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	var runes []rune
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		runes = append(runes, []rune(text)...)
		runes = append(runes, '\n')
		if cap > 0 && len(runes) >= cap {
			runes = runes[:cap]
			break
		}
	}
	return string(runes), nil
}
