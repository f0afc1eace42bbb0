package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, body string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestWalkFiltersByPattern(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "intro.md", "# Intro")
	writeFile(t, root, "guide/install.mdx", "# Install")
	writeFile(t, root, "guide/diagram.png", "png")
	writeFile(t, root, "guide/notes.txt", "notes")
	writeFile(t, root, "node_modules/pkg/readme.md", "# Vendored")

	files, err := Walk(context.Background(), Options{
		Root:    root,
		Include: []string{"**/*.md", "**/*.mdx"},
		Exclude: []string{"**/*.png"},
	})
	require.NoError(t, err)

	var rels []string
	for _, f := range files {
		rels = append(rels, f.RelPath)
	}
	assert.Equal(t, []string{"guide/install.mdx", "intro.md"}, rels)
}

func TestWalkExcludeWins(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.md", "a")
	writeFile(t, root, "drafts/b.md", "b")

	files, err := Walk(context.Background(), Options{
		Root:    root,
		Include: []string{"**/*.md"},
		Exclude: []string{"drafts/**"},
	})
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "a.md", files[0].RelPath)
}

func TestWalkMissingRoot(t *testing.T) {
	_, err := Walk(context.Background(), Options{Root: filepath.Join(t.TempDir(), "missing")})
	assert.Error(t, err)
}

func TestReadAndHash(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "doc.md", "# Title\nbody")
	files, err := Walk(context.Background(), Options{Root: root})
	require.NoError(t, err)
	require.Len(t, files, 1)

	doc, err := Read(files[0])
	require.NoError(t, err)
	assert.Equal(t, "doc.md", doc.Path)
	assert.Equal(t, "# Title\nbody", doc.RawText)
	assert.Len(t, Hash(doc), 64)
	assert.Equal(t, Hash(doc), Hash(doc))
}

func TestBaseName(t *testing.T) {
	assert.Equal(t, "install", BaseName("guide/install.mdx"))
	assert.Equal(t, "README", BaseName("README"))
}
