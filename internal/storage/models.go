package storage

// Section is one indexed documentation section with its embedding.
type Section struct {
	ID          string    // UUID point ID
	SectionID   string    // Stable "<doc_id>:<index>" identifier
	DocID       string    // Stable per-source identifier
	Source      string    // Relative path of the source file
	Title       string    // Document title
	Version     string    // Documentation version label ("1.1")
	Heading     string    // Nearest heading
	HeadingPath string    // Heading hierarchy: "Guide > Indexes"
	Text        string    // Section body
	Embedding   []float32 // Vector used for similarity search
}

// ScoredSection is a search result with its cosine similarity score.
type ScoredSection struct {
	*Section
	Score float64
}

// DefaultCollection is the Qdrant collection used when none is configured.
const DefaultCollection = "docs"

// vectorName is the named vector carrying section embeddings.
const vectorName = "content"
