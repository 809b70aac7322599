package markdown

import (
	"strings"
	"testing"
)

// TestSplit_BasicHeaders tests splitting with H1 and multiple H2s.
func TestSplit_BasicHeaders(t *testing.T) {
	input := `# Getting Started

Introduction text here.

## Installation

Install steps here.

## Configuration

Config details here.
`

	sections, err := NewSplitter().Split([]byte(input))
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}

	expected := []struct {
		heading string
		path    string
		body    string
	}{
		{"Getting Started", "Getting Started", "Introduction text here."},
		{"Installation", "Getting Started > Installation", "Install steps here."},
		{"Configuration", "Getting Started > Configuration", "Config details here."},
	}

	if len(sections) != len(expected) {
		t.Fatalf("Expected %d sections, got %d", len(expected), len(sections))
	}
	for i, want := range expected {
		got := sections[i]
		if got.Index != i {
			t.Errorf("Section %d index: got %d", i, got.Index)
		}
		if got.Heading != want.heading {
			t.Errorf("Section %d Heading: expected %q, got %q", i, want.heading, got.Heading)
		}
		if got.HeadingPath != want.path {
			t.Errorf("Section %d HeadingPath: expected %q, got %q", i, want.path, got.HeadingPath)
		}
		if got.Body != want.body {
			t.Errorf("Section %d Body: expected %q, got %q", i, want.body, got.Body)
		}
	}
}

// TestSplit_ParentExcludesChildren verifies a section ends at the next heading of any level.
func TestSplit_ParentExcludesChildren(t *testing.T) {
	input := `# API Reference

Overview of the API.

## Methods

Available methods.

### Details

Some details here.
`

	sections, err := NewSplitter().Split([]byte(input))
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	if len(sections) != 3 {
		t.Fatalf("Expected 3 sections, got %d", len(sections))
	}
	if strings.Contains(sections[0].Body, "Available methods") {
		t.Errorf("Parent section contains child body: %q", sections[0].Body)
	}
	if sections[2].HeadingPath != "API Reference > Methods > Details" {
		t.Errorf("Unexpected path: %q", sections[2].HeadingPath)
	}
}

// TestSplit_CodeFence checks that headings inside fenced code are body text.
func TestSplit_CodeFence(t *testing.T) {
	input := "# Scripts\n\nRun this:\n\n```sh\n# not a heading\necho hi\n```\n\n## Next\n\nMore.\n"

	sections, err := NewSplitter().Split([]byte(input))
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	if len(sections) != 2 {
		t.Fatalf("Expected 2 sections, got %d", len(sections))
	}
	if !strings.Contains(sections[0].Body, "# not a heading") {
		t.Errorf("Code block missing from body: %q", sections[0].Body)
	}
}

// TestSplit_Preface checks text before the first heading.
func TestSplit_Preface(t *testing.T) {
	input := `Leading text.

# Title

Body.
`

	sections, err := NewSplitter().Split([]byte(input))
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	if len(sections) != 2 {
		t.Fatalf("Expected 2 sections, got %d", len(sections))
	}
	if sections[0].Heading != PrefaceHeading || sections[0].HeadingPath != PrefaceHeading {
		t.Errorf("Expected preface section, got %+v", sections[0])
	}
	if sections[0].Body != "Leading text." {
		t.Errorf("Unexpected preface body: %q", sections[0].Body)
	}
}

// TestSplit_NoHeaders tests a page with no headings.
func TestSplit_NoHeaders(t *testing.T) {
	input := `This is a document with no headers.

Just plain text content.
`

	sections, err := NewSplitter().Split([]byte(input))
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	if len(sections) != 1 {
		t.Fatalf("Expected 1 section, got %d", len(sections))
	}
	if sections[0].Heading != PrefaceHeading {
		t.Errorf("Expected Preface heading, got %q", sections[0].Heading)
	}
	if !strings.Contains(sections[0].Body, "This is a document") {
		t.Errorf("Section missing expected content")
	}
}

// TestSplit_EmptySections tests that headings without body are dropped.
func TestSplit_EmptySections(t *testing.T) {
	input := `# Title

## Empty Section

## Another Section

Some content here.
`

	sections, err := NewSplitter().Split([]byte(input))
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	if len(sections) != 1 {
		t.Fatalf("Expected 1 section, got %d", len(sections))
	}
	if sections[0].HeadingPath != "Title > Another Section" {
		t.Errorf("Unexpected path: %q", sections[0].HeadingPath)
	}
	if sections[0].Index != 0 {
		t.Errorf("Indexes must be dense, got %d", sections[0].Index)
	}
}

// TestSplit_HeadingsOnly falls back to a single Document section.
func TestSplit_HeadingsOnly(t *testing.T) {
	input := "# One\n\n## Two\n"

	sections, err := NewSplitter().Split([]byte(input))
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	if len(sections) != 1 || sections[0].HeadingPath != DocumentHeading {
		t.Fatalf("Expected single Document section, got %+v", sections)
	}
	if sections[0].Body != strings.TrimSpace(input) {
		t.Errorf("Document body should be the whole page, got %q", sections[0].Body)
	}
}

// TestSplit_SiblingAfterDeeper checks the path resets when the level goes back up.
func TestSplit_SiblingAfterDeeper(t *testing.T) {
	input := `# First

One.

### Deep

Two.

# Second

Three.
`

	sections, err := NewSplitter().Split([]byte(input))
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}

	expectedPaths := []string{"First", "First > Deep", "Second"}
	if len(sections) != len(expectedPaths) {
		t.Fatalf("Expected %d sections, got %d", len(expectedPaths), len(sections))
	}
	for i, p := range expectedPaths {
		if sections[i].HeadingPath != p {
			t.Errorf("Section %d: expected path %q, got %q", i, p, sections[i].HeadingPath)
		}
	}
}

// TestSplit_MaxDepth keeps deeper headings inside the parent body.
func TestSplit_MaxDepth(t *testing.T) {
	input := `# Title

Intro.

### Detail

Fine print.
`

	sections, err := NewSplitter(WithMaxDepth(2)).Split([]byte(input))
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	if len(sections) != 1 {
		t.Fatalf("Expected 1 section, got %d", len(sections))
	}
	if !strings.Contains(sections[0].Body, "### Detail") {
		t.Errorf("H3 should remain in body: %q", sections[0].Body)
	}
}

// TestSplit_Setext handles underlined headings.
func TestSplit_Setext(t *testing.T) {
	input := "Title\n=====\n\nBody text.\n"

	sections, err := NewSplitter().Split([]byte(input))
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	if len(sections) != 1 {
		t.Fatalf("Expected 1 section, got %d", len(sections))
	}
	if sections[0].Heading != "Title" || sections[0].Body != "Body text." {
		t.Errorf("Unexpected section: %+v", sections[0])
	}
}

func TestSection_Content(t *testing.T) {
	s := Section{HeadingPath: "A > B", Body: "text"}
	if got := s.Content(); got != "Section: A > B\n\ntext" {
		t.Errorf("Content: got %q", got)
	}
}

func TestDetectVersion(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		source string
		want   string
		found  bool
	}{
		{"path segment", "data/docs/v1.0/indexes.md", "# Indexes (v1.1)", "1.0", true},
		{"top-level dir", "v1.1/queries.md", "", "1.1", true},
		{"windows path", `data\docs\V1.1\x.md`, "", "1.1", true},
		{"first heading", "docs/indexes.md", "\n# Indexes (V1.0)\n\nbody", "1.0", true},
		{"only first heading", "docs/x.md", "# Intro\n\n## Later (v1.0)", "", false},
		{"beyond ten lines", "docs/x.md", strings.Repeat("text\n", 10) + "# Late (v1.0)", "", false},
		{"none", "docs/x.md", "plain", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := DetectVersion(tt.path, []byte(tt.source))
			if got != tt.want || ok != tt.found {
				t.Errorf("DetectVersion(%q) = %q, %v; want %q, %v", tt.path, got, ok, tt.want, tt.found)
			}
		})
	}
}
