// Package markdown splits documentation pages into heading-scoped sections.
package markdown

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"go.abhg.dev/goldmark/toc"
)

const (
	// PrefaceHeading names text that appears before the first heading.
	PrefaceHeading = "Preface"
	// DocumentHeading names the single section of a page with no usable sections.
	DocumentHeading = "Document"

	headingSeparator = " > "
)

// Section is the body of a page under one heading.
type Section struct {
	Index       int    // Position in document (0, 1, 2...)
	Heading     string // Heading text
	HeadingPath string // Ancestor headings: "Install > Prerequisites"
	Body        string // Text under the heading, up to the next heading
}

// Content is the text that gets embedded: the heading path followed by the body.
func (s Section) Content() string {
	return fmt.Sprintf("Section: %s\n\n%s", s.HeadingPath, s.Body)
}

// Splitter splits markdown at heading boundaries while keeping the heading
// hierarchy of each section.
type Splitter struct {
	md       goldmark.Markdown
	maxDepth int
}

// Option configures a Splitter.
type Option func(*Splitter)

// WithMaxDepth limits which heading levels start a section. Deeper headings
// stay inside their parent's body.
func WithMaxDepth(depth int) Option {
	return func(s *Splitter) {
		if depth >= 1 && depth <= 6 {
			s.maxDepth = depth
		}
	}
}

// NewSplitter creates a splitter that breaks at every heading level.
func NewSplitter(opts ...Option) *Splitter {
	s := &Splitter{
		md: goldmark.New(
			goldmark.WithParserOptions(
				parser.WithAutoHeadingID(),
			),
		),
		maxDepth: 6,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type heading struct {
	title     string
	path      string
	lineStart int
	bodyStart int
}

// Split returns the non-empty sections of source in document order. Text
// before the first heading becomes a Preface section. A page that yields no
// non-empty section is returned whole as a single Document section.
func (s *Splitter) Split(source []byte) ([]Section, error) {
	doc := s.md.Parser().Parse(text.NewReader(source))

	tree, err := toc.Inspect(doc, source,
		toc.MinDepth(1),
		toc.MaxDepth(s.maxDepth),
		toc.Compact(true),
	)
	if err != nil {
		return nil, fmt.Errorf("inspect TOC: %w", err)
	}

	nodes := headingsByID(doc)
	var heads []heading
	collectHeadings(source, nodes, tree.Items, nil, &heads)
	sort.SliceStable(heads, func(i, j int) bool { return heads[i].lineStart < heads[j].lineStart })

	var sections []Section
	add := func(title, path, body string) {
		body = strings.TrimSpace(body)
		if body == "" {
			return
		}
		sections = append(sections, Section{
			Index:       len(sections),
			Heading:     title,
			HeadingPath: path,
			Body:        body,
		})
	}

	prefaceEnd := len(source)
	if len(heads) > 0 {
		prefaceEnd = heads[0].lineStart
	}
	add(PrefaceHeading, PrefaceHeading, string(source[:prefaceEnd]))

	for i, h := range heads {
		stop := len(source)
		if i+1 < len(heads) {
			stop = heads[i+1].lineStart
		}
		add(h.title, h.path, string(source[h.bodyStart:stop]))
	}

	if len(sections) == 0 {
		return []Section{{
			Index:       0,
			Heading:     DocumentHeading,
			HeadingPath: DocumentHeading,
			Body:        strings.TrimSpace(string(source)),
		}}, nil
	}
	return sections, nil
}

// collectHeadings walks TOC items in pre-order, pairing each with its AST node.
func collectHeadings(source []byte, nodes map[string]*ast.Heading, items toc.Items, ancestors []string, out *[]heading) {
	for _, item := range items {
		path := ancestors
		node, ok := nodes[string(item.ID)]
		if ok && node.Lines().Len() > 0 {
			title := strings.TrimSpace(string(item.Title))
			path = append(append([]string(nil), ancestors...), title)
			*out = append(*out, heading{
				title:     title,
				path:      strings.Join(path, headingSeparator),
				lineStart: lineStart(source, node.Lines().At(0).Start),
				bodyStart: bodyStart(source, node),
			})
		}
		if len(item.Items) > 0 {
			collectHeadings(source, nodes, item.Items, path, out)
		}
	}
}

// headingsByID indexes heading nodes by their auto-generated ID.
func headingsByID(doc ast.Node) map[string]*ast.Heading {
	nodes := make(map[string]*ast.Heading)
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering || n.Kind() != ast.KindHeading {
			return ast.WalkContinue, nil
		}
		h := n.(*ast.Heading)
		if id, ok := h.AttributeString("id"); ok {
			if b, ok := id.([]byte); ok {
				nodes[string(b)] = h
			}
		}
		return ast.WalkSkipChildren, nil
	})
	return nodes
}

// bodyStart returns the offset just past the heading, skipping a setext
// underline when present.
func bodyStart(source []byte, h *ast.Heading) int {
	first := h.Lines().At(0)
	last := h.Lines().At(h.Lines().Len() - 1)
	pos := nextLine(source, last.Stop)

	atx := strings.HasPrefix(strings.TrimSpace(string(source[lineStart(source, first.Start):first.Start])), "#")
	if atx {
		return pos
	}
	underline := strings.TrimSpace(string(source[pos:nextLine(source, pos)]))
	if underline != "" && strings.Trim(underline, "=-") == "" {
		return nextLine(source, pos)
	}
	return pos
}

func lineStart(source []byte, pos int) int {
	for pos > 0 && source[pos-1] != '\n' {
		pos--
	}
	return pos
}

func nextLine(source []byte, pos int) int {
	for pos < len(source) && source[pos] != '\n' {
		pos++
	}
	if pos < len(source) {
		pos++
	}
	return pos
}

var (
	pathVersionPattern    = regexp.MustCompile(`/v(\d+\.\d+)/`)
	headingVersionPattern = regexp.MustCompile(`\(v(\d+\.\d+)\)`)
)

// DetectVersion finds the documentation version of a page, first from a
// /vX.Y/ directory in its path, then from a "(vX.Y)" marker in its first
// heading. Only the first ten lines are searched for the heading.
func DetectVersion(path string, source []byte) (string, bool) {
	normalized := "/" + strings.ToLower(strings.ReplaceAll(path, `\`, "/"))
	if m := pathVersionPattern.FindStringSubmatch(normalized); m != nil {
		return m[1], true
	}

	lines := strings.Split(string(source), "\n")
	for _, line := range lines[:min(len(lines), 10)] {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "#") {
			continue
		}
		if m := headingVersionPattern.FindStringSubmatch(strings.ToLower(line)); m != nil {
			return m[1], true
		}
		break
	}
	return "", false
}
