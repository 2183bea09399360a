package oracle

import (
	"github.com/law-makers/dealcrawl/internal/utils/output"
	"github.com/rs/zerolog/log"
)

// Summarize renders the readable part of a page as Markdown so the model
// sees headings, prices and links instead of markup. It returns "" when the
// page has no readable content. Pages the converter rejects fall back to
// their plain visible text.
func Summarize(html, address string) string {
	if html == "" {
		return ""
	}
	md, err := output.ToMarkdown(html, address)
	if err != nil {
		log.Debug().Err(err).Str("address", address).Msg("Markdown summary failed, using visible text")
		return output.VisibleText(html)
	}
	return md
}
