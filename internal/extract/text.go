package extract

import (
	"fmt"
	"os"
	"strings"
	"unicode/utf8"
)

type textExtractor struct{}

func (textExtractor) Extract(path string) ([]Page, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	text := string(data)
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "�")
	}
	return []Page{{Number: 1, Text: strings.TrimSpace(text)}}, nil
}
