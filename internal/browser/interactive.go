package browser

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/law-makers/dealcrawl/pkg/models"
)

const (
	interactiveSelector = "a[href], button, input, select, textarea, [role=button], [onclick]"
	maxInteractive      = 50
	maxElementText      = 80
)

var keptAttributes = []string{"id", "name", "href", "type", "role", "aria-label", "placeholder", "value"}

// InteractiveElements lists the clickable and fillable elements of a page
func InteractiveElements(html string) []models.InteractiveElement {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var out []models.InteractiveElement
	doc.Find(interactiveSelector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		tag := goquery.NodeName(s)
		attrs := make(map[string]string)
		for _, name := range keptAttributes {
			if v, ok := s.Attr(name); ok && v != "" {
				attrs[name] = v
			}
		}

		el := models.InteractiveElement{
			Selector:    selectorFor(tag, s, attrs),
			ElementType: tag,
			Attributes:  attrs,
		}
		if text := strings.Join(strings.Fields(s.Text()), " "); text != "" {
			if r := []rune(text); len(r) > maxElementText {
				text = string(r[:maxElementText])
			}
			el.Text = &text
		}

		out = append(out, el)
		return len(out) < maxInteractive
	})

	return out
}

func selectorFor(tag string, s *goquery.Selection, attrs map[string]string) string {
	if id := attrs["id"]; id != "" {
		return "#" + id
	}
	if name := attrs["name"]; name != "" {
		return fmt.Sprintf(`%s[name="%s"]`, tag, name)
	}
	if href := attrs["href"]; href != "" && tag == "a" {
		return fmt.Sprintf(`a[href="%s"]`, href)
	}
	if class, ok := s.Attr("class"); ok {
		if fields := strings.Fields(class); len(fields) > 0 {
			return tag + "." + strings.Join(fields, ".")
		}
	}
	return tag
}
