package domain

import "strings"

// Document represents a single source file loaded into the system.
// Title is derived from the content, see cleaner.Title.
type Document struct {
	Path    string
	Title   string
	RawText string
}

// Location attributes a chunk to a rune range [Start, End) in the cleaned document text.
type Location struct {
	Start int
	End   int
}

// Value returns the location in the shape exposed by the chat API: a flat [start, end] list.
func (l Location) Value() []int { return []int{l.Start, l.End} }

// Chunk is an overlapping segment of a document, the unit of embedding and retrieval.
type Chunk struct {
	Key        string
	SequenceID int
	Filename   string
	Text       string
	Location   Location
	Embedding  []float32
}

// Role identifies who produced a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool { return r == RoleUser || r == RoleAssistant }

// Turn is one entry of a conversation history.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Window returns at most the last n turns of history.
func Window(history []Turn, n int) []Turn {
	if n <= 0 || len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}

// RetrievalRecord is a ranked record returned by a vector store search.
// Score is store-defined; rank order, not magnitude, is authoritative.
type RetrievalRecord struct {
	ChunkID  string
	Score    float64
	Text     string
	Filename string
	Location any
}

// AugmentedQuery pairs the user's question with the rewrite used for retrieval.
type AugmentedQuery struct {
	RawText       string
	RewrittenText string
}

// Source is a provenance entry returned alongside an answer.
type Source struct {
	Key      string `json:"key"`
	Filename string `json:"filename"`
	Location any    `json:"location"`
}

// Answer is the result of one conversation turn.
type Answer struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
}

// EmptyAnswer is returned for blank questions.
func EmptyAnswer() *Answer { return &Answer{Answer: "", Sources: []Source{}} }

// IsBlank reports whether s contains only whitespace.
func IsBlank(s string) bool { return strings.TrimSpace(s) == "" }

// DefaultTopK is the number of records retrieved when a caller asks for k <= 0.
const DefaultTopK = 5

// Filter narrows a vector search. A nil or zero Filter matches everything.
type Filter struct {
	Filename string
}

// Matches reports whether a record with the given filename passes the filter.
func (f *Filter) Matches(filename string) bool {
	return f == nil || f.Filename == "" || f.Filename == filename
}
