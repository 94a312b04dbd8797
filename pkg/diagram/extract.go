// Package diagram locates Mermaid diagram definitions embedded in free-form
// assistant text. Models that were asked for structured output still fall
// back to prose with fenced code blocks often enough that the extraction
// order below is load-bearing.
package diagram

import (
	"regexp"
	"strings"
)

var (
	mermaidFenceRe = regexp.MustCompile("(?is)```mermaid\\s*\n(.*?)```")
	genericFenceRe = regexp.MustCompile("(?is)```(.*?)```")
	mermaidTagRe   = regexp.MustCompile("(?is)<mermaid>(.*?)</mermaid>")
)

// diagramKeywords are the Mermaid diagram-kind markers recognised when
// sniffing unlabelled fences. Comparison is lower-cased on both sides.
var diagramKeywords = map[string]struct{}{
	"flowchart":          {},
	"graph":              {},
	"sequencediagram":    {},
	"classdiagram":       {},
	"statediagram":       {},
	"statediagram-v2":    {},
	"erdiagram":          {},
	"gantt":              {},
	"journey":            {},
	"gitgraph":           {},
	"pie":                {},
	"mindmap":            {},
	"timeline":           {},
	"quadrantchart":      {},
	"requirementdiagram": {},
}

// Extract returns the first Mermaid definition found in text. The checks run
// in priority order: an explicit ```mermaid fence, any generic fence whose
// first token is a known diagram keyword, then a <mermaid> tag. The second
// return value reports whether a definition was found; absence is not an
// error condition.
func Extract(text string) (string, bool) {
	if text == "" {
		return "", false
	}

	if m := mermaidFenceRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1]), true
	}

	for _, m := range genericFenceRe.FindAllStringSubmatch(text, -1) {
		inner := strings.TrimSpace(m[1])
		if isDiagram(inner) {
			return inner, true
		}
	}

	if m := mermaidTagRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1]), true
	}

	return "", false
}

// isDiagram reports whether content starts with a recognised diagram keyword.
func isDiagram(content string) bool {
	fields := strings.Fields(content)
	if len(fields) == 0 {
		return false
	}
	_, ok := diagramKeywords[strings.ToLower(fields[0])]
	return ok
}
