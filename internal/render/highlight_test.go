package render

import (
	"strings"
	"testing"

	"github.com/charmbracelet/x/ansi"
)

func TestSplitFences(t *testing.T) {
	cases := []struct {
		name  string
		in    string
		code  []string
		langs []string
	}{
		{name: "plain", in: "no code here"},
		{name: "backticks", in: "a\n```go\nx := 1\n```\nb", code: []string{"x := 1"}, langs: []string{"go"}},
		{name: "tildes with info", in: "~~~~ python extra\nprint(1)\n~~~~", code: []string{"print(1)"}, langs: []string{"python"}},
		{name: "short closer ignored", in: "````\nkeep\n```\nstill\n````", code: []string{"keep\n```\nstill"}, langs: []string{""}},
		{name: "mixed chars do not close", in: "```\na\n~~~\n", code: nil},
		{name: "unclosed", in: "start\n```go\ncode"},
		{name: "two backticks", in: "``not a fence\n``"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var code, langs []string
			var texts []string
			for _, b := range splitFences(tc.in) {
				texts = append(texts, b.text)
				if b.code {
					code = append(code, b.text)
					langs = append(langs, b.lang)
				}
			}
			if strings.Join(code, "|") != strings.Join(tc.code, "|") || strings.Join(langs, "|") != strings.Join(tc.langs, "|") {
				t.Fatalf("got code %q langs %q", code, langs)
			}
			if got := strings.Join(texts, "\n"); got != tc.in {
				t.Fatalf("blocks do not rejoin to the input: %q", got)
			}
		})
	}
}

func TestHighlightLeavesTextIntact(t *testing.T) {
	input := "start\n```go\nfmt.Println(\"hi\")\n```\nend"
	for _, style := range []string{"", "monokai", "no-such-style"} {
		output := newHighlighter(style).Highlight(input)
		if got := ansi.Strip(output); got != input {
			t.Fatalf("style %q changed the text: %q", style, got)
		}
		if style != "no-such-style" && output == input {
			t.Fatalf("style %q produced no colour", style)
		}
		if !strings.HasPrefix(output, "start\n```go\n") || !strings.HasSuffix(output, "\n```\nend") {
			t.Fatalf("fence lines should be untouched: %q", output)
		}
	}
}

func TestBodyWithoutColourSkipsHighlighting(t *testing.T) {
	input := "```go\nx := 1\n```"
	if got := (Options{}).body(input, 0); got != input {
		t.Fatalf("expected plain body, got %q", got)
	}
	if got := (Options{Color: true}).body("unclosed\n```go\nx", 0); got != "unclosed\n```go\nx" {
		t.Fatalf("unclosed fence should pass through, got %q", got)
	}
}
