package extract

import (
	"context"
	"iter"
	"regexp"
)

// odpSlide matches one draw:page element of an OpenDocument presentation.
var odpSlide = regexp.MustCompile(`(?s)<draw:page(?:\s[^>]*[^/>])?>(.*?)</draw:page>`)

// odpPages yields one page per slide in document order.
func odpPages(ctx context.Context, content []byte) (iter.Seq2[Page, error], error) {
	body, err := odfContent(content, "ODP")
	if err != nil {
		return nil, err
	}
	var slides []string
	for _, m := range odpSlide.FindAllStringSubmatch(body, -1) {
		slides = append(slides, odfText(m[1]))
	}
	return fromSlice(ctx, slides), nil
}
