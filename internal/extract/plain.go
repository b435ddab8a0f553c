package extract

import (
	"context"
	"iter"
	"strings"
	"unicode/utf8"
)

// plainPages treats form feeds as page breaks. Invalid UTF-8 sequences are
// replaced with the replacement character.
func plainPages(ctx context.Context, content []byte) (iter.Seq2[Page, error], error) {
	text := string(content)
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "\ufffd")
	}
	return fromSlice(ctx, strings.Split(text, "\f")), nil
}
