package service

// htmlTags are offered after a `<` in addition to the engine's entries.
var htmlTags = []string{
	"div", "span", "p", "a", "ul", "li", "button", "input", "form",
	"header", "footer", "section", "article", "nav", "main", "aside",
	"h1", "h2", "h3", "h4", "h5", "h6",
	"img", "table", "thead", "tbody", "tr", "td", "th",
	"label", "select", "option", "textarea",
	"video", "audio", "canvas",
	"svg", "path", "circle", "rect",
	"fragment",
}

// KindTag marks completion items from the static tag list.
const KindTag = "tag"

func tagCompletions(seen map[string]bool) []CompletionItem {
	out := make([]CompletionItem, 0, len(htmlTags))
	for _, tag := range htmlTags {
		if seen[tag] {
			continue
		}
		out = append(out, CompletionItem{
			Label:  tag,
			Kind:   KindTag,
			Detail: "Tag <" + tag + ">",
		})
	}
	return out
}
