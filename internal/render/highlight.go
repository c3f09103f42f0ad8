package render

import (
	"regexp"
	"strings"

	"github.com/alecthomas/chroma"
	"github.com/alecthomas/chroma/formatters"
	"github.com/alecthomas/chroma/lexers"
	"github.com/alecthomas/chroma/styles"
)

// DefaultCodeStyle is the chroma style used when none is configured.
const DefaultCodeStyle = "dracula"

var (
	openFence  = regexp.MustCompile("^[ \t]{0,3}(`{3,}|~{3,})[ \t]*([^ \t`]*)")
	closeFence = regexp.MustCompile("^[ \t]{0,3}(`{3,}|~{3,})[ \t]*$")
)

// block is a run of message text. Fence lines belong to the prose around
// them; only the lines between a matched pair are code.
type block struct {
	text string
	lang string
	code bool
}

// splitFences cuts content into prose and fenced code blocks. A fence closes
// on a line of the same character at least as long as the opener; an opener
// that never closes stays prose.
func splitFences(content string) []block {
	lines := strings.Split(content, "\n")
	var (
		blocks []block
		prose  []string
	)
	flush := func() {
		if len(prose) > 0 {
			blocks = append(blocks, block{text: strings.Join(prose, "\n")})
			prose = nil
		}
	}
	for i := 0; i < len(lines); i++ {
		m := openFence.FindStringSubmatch(lines[i])
		if m == nil {
			prose = append(prose, lines[i])
			continue
		}
		end := -1
		for j := i + 1; j < len(lines); j++ {
			if c := closeFence.FindStringSubmatch(lines[j]); c != nil && c[1][0] == m[1][0] && len(c[1]) >= len(m[1]) {
				end = j
				break
			}
		}
		if end < 0 {
			prose = append(prose, lines[i])
			continue
		}
		prose = append(prose, lines[i])
		flush()
		if end > i+1 {
			blocks = append(blocks, block{text: strings.Join(lines[i+1:end], "\n"), lang: m[2], code: true})
		}
		prose = append(prose, lines[end])
		i = end
	}
	flush()
	return blocks
}

// highlighter colours code blocks with one chroma style.
type highlighter struct {
	style *chroma.Style
}

// newHighlighter looks up a chroma style by name. Unknown names get chroma's
// fallback style.
func newHighlighter(name string) highlighter {
	if name == "" {
		name = DefaultCodeStyle
	}
	return highlighter{style: styles.Get(name)}
}

// Highlight colours every fenced block in content and leaves everything else
// byte for byte as it was.
func (h highlighter) Highlight(content string) string {
	if !strings.Contains(content, "```") && !strings.Contains(content, "~~~") {
		return content
	}
	blocks := splitFences(content)
	parts := make([]string, len(blocks))
	for i, b := range blocks {
		parts[i] = b.text
		if b.code {
			parts[i] = h.code(b.text, b.lang)
		}
	}
	return strings.Join(parts, "\n")
}

func (h highlighter) code(text, lang string) string {
	lexer := lexers.Get(strings.ToLower(lang))
	if lexer == nil {
		lexer = lexers.Analyse(text)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	tokens, err := chroma.Coalesce(lexer).Tokenise(nil, text)
	if err != nil {
		return text
	}
	var out strings.Builder
	if err := formatters.TTY256.Format(&out, h.style, tokens); err != nil {
		return text
	}
	return strings.TrimSuffix(out.String(), "\n")
}
