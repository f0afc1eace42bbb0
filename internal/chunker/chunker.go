package chunker

import (
	"strconv"

	"github.com/google/uuid"

	"doris-rag/internal/domain"
)

// keySpace namespaces the deterministic chunk keys.
var keySpace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("doris-rag/chunk"))

// separators are tried in order when looking for a place to end a chunk.
var separators = [][]rune{
	[]rune("\n\n"),
	[]rune("\n"),
	[]rune("。"),
	[]rune(". "),
	[]rune(" "),
}

// Segment is a piece of text with its rune offsets [Start, End) in the source.
type Segment struct {
	Text  string
	Start int
	End   int
}

// Chunker splits text into windows of at most size runes. Consecutive windows share
// exactly overlap runes; window ends are moved back to a paragraph, line, sentence or
// word boundary when one exists in the second half of the window.
type Chunker struct {
	size    int
	overlap int
}

// New validates the parameters and returns a Chunker.
func New(size, overlap int) (*Chunker, error) {
	if size <= 0 || overlap < 0 || overlap >= size {
		return nil, domain.ErrInvalidChunking
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Split returns the ordered segments of text. Empty text yields no segments.
func (c *Chunker) Split(text string) []Segment {
	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return nil
	}
	var out []Segment
	start := 0
	for {
		end := start + c.size
		if end >= n {
			out = append(out, Segment{Text: string(runes[start:n]), Start: start, End: n})
			return out
		}
		end = c.boundary(runes, start, end)
		out = append(out, Segment{Text: string(runes[start:end]), Start: start, End: end})
		start = end - c.overlap
	}
}

// boundary returns the preferred end in (start+overlap, end]. The lower bound keeps
// the next window start strictly ahead of the current one.
func (c *Chunker) boundary(runes []rune, start, end int) int {
	lo := start + c.overlap + 1
	if half := start + c.size/2; half > lo {
		lo = half
	}
	for _, sep := range separators {
		for p := end; p >= lo; p-- {
			if hasSuffixAt(runes, p, sep) {
				return p
			}
		}
	}
	return end
}

func hasSuffixAt(runes []rune, p int, sep []rune) bool {
	if p < len(sep) {
		return false
	}
	for i, r := range sep {
		if runes[p-len(sep)+i] != r {
			return false
		}
	}
	return true
}

// Chunk splits a cleaned document into chunks keyed by filename and ordinal.
func (c *Chunker) Chunk(doc domain.Document) []domain.Chunk {
	segments := c.Split(doc.RawText)
	chunks := make([]domain.Chunk, 0, len(segments))
	for i, seg := range segments {
		chunks = append(chunks, domain.Chunk{
			Key:        Key(doc.Path, i),
			SequenceID: i,
			Filename:   doc.Path,
			Text:       seg.Text,
			Location:   domain.Location{Start: seg.Start, End: seg.End},
		})
	}
	return chunks
}

// Key returns the stable key of the seq-th chunk of filename.
func Key(filename string, seq int) string {
	return uuid.NewSHA1(keySpace, []byte(filename+"#"+strconv.Itoa(seq))).String()
}
