package progress

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLineReporter(t *testing.T) {
	var buf bytes.Buffer
	r := NewLineReporter(&buf)
	r.Start(2)
	r.Advance("a.md")
	r.Advance("b.md")
	r.Finish()
	assert.Equal(t, "Indexing 2 documents\n[1/2] a.md\n[2/2] b.md\nIndexing complete\n", buf.String())
}
