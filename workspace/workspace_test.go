package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func newTestManager(t *testing.T) (*Manager, string) {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "main.go"), "package main\n")
	writeFile(t, filepath.Join(root, "pkg", "util.go"), "package pkg\n")
	m, err := New(root, filepath.Join(t.TempDir(), "staging"))
	require.NoError(t, err)
	return m, root
}

func TestCreateCopiesTree(t *testing.T) {
	m, _ := newTestManager(t)

	path, err := m.Create("build")
	require.NoError(t, err)

	content, err := os.ReadFile(filepath.Join(path, "main.go"))
	require.NoError(t, err)
	require.Equal(t, "package main\n", string(content))

	content, err = os.ReadFile(filepath.Join(path, "pkg", "util.go"))
	require.NoError(t, err)
	require.Equal(t, "package pkg\n", string(content))
}

func TestCreateIsIsolated(t *testing.T) {
	m, root := newTestManager(t)

	path, err := m.Create("build")
	require.NoError(t, err)

	// Edits in the workspace do not touch the shared tree
	writeFile(t, filepath.Join(path, "main.go"), "package main // edited\n")

	content, err := os.ReadFile(filepath.Join(root, "main.go"))
	require.NoError(t, err)
	require.Equal(t, "package main\n", string(content))
}

func TestIntegrateCopiesChanges(t *testing.T) {
	m, root := newTestManager(t)

	path, err := m.Create("build")
	require.NoError(t, err)

	writeFile(t, filepath.Join(path, "main.go"), "package main\n\nfunc main() {}\n")
	writeFile(t, filepath.Join(path, "pkg", "new.go"), "package pkg\n")

	diff, err := m.Integrate("build")
	require.NoError(t, err)
	require.Equal(t, []string{"main.go", "pkg/new.go"}, diff.ChangedFiles)
	require.Contains(t, diff.UnifiedDiff, "+func main() {}")
	require.Contains(t, diff.UnifiedDiff, "b/pkg/new.go")

	content, err := os.ReadFile(filepath.Join(root, "main.go"))
	require.NoError(t, err)
	require.Equal(t, "package main\n\nfunc main() {}\n", string(content))

	content, err = os.ReadFile(filepath.Join(root, "pkg", "new.go"))
	require.NoError(t, err)
	require.Equal(t, "package pkg\n", string(content))

	// Workspace is removed after integration
	_, err = os.Stat(path)
	require.True(t, os.IsNotExist(err))
}

func TestIntegrateNoChanges(t *testing.T) {
	m, _ := newTestManager(t)

	_, err := m.Create("noop")
	require.NoError(t, err)

	diff, err := m.Integrate("noop")
	require.NoError(t, err)
	require.Empty(t, diff.ChangedFiles)
	require.Empty(t, diff.UnifiedDiff)
}

func TestIntegrateUnknownWorkspace(t *testing.T) {
	m, _ := newTestManager(t)

	_, err := m.Integrate("never-created")
	require.Error(t, err)
	require.Contains(t, err.Error(), "no workspace for node")
}

func TestDiscardRemovesWorkspace(t *testing.T) {
	m, root := newTestManager(t)

	path, err := m.Create("abandoned")
	require.NoError(t, err)
	writeFile(t, filepath.Join(path, "main.go"), "package broken\n")

	require.NoError(t, m.Discard("abandoned"))

	_, err = os.Stat(path)
	require.True(t, os.IsNotExist(err))

	// Shared tree untouched
	content, err := os.ReadFile(filepath.Join(root, "main.go"))
	require.NoError(t, err)
	require.Equal(t, "package main\n", string(content))
}

func TestDiscardIsIdempotent(t *testing.T) {
	m, _ := newTestManager(t)
	require.NoError(t, m.Discard("never-created"))
}

func TestIgnorePatterns(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "main.go"), "package main\n")
	writeFile(t, filepath.Join(root, ".git", "HEAD"), "ref: refs/heads/main\n")
	writeFile(t, filepath.Join(root, "build", "out.bin"), "binary\n")

	m, err := New(root, filepath.Join(t.TempDir(), "staging"),
		WithIgnorePatterns([]string{".git/**", "build/**"}))
	require.NoError(t, err)

	path, err := m.Create("node")
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(path, ".git"))
	require.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(path, "build"))
	require.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(path, "main.go"))
	require.NoError(t, err)
}

func TestStagingInsideRootNotCopied(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "main.go"), "package main\n")
	m, err := New(root, "")
	require.NoError(t, err)

	first, err := m.Create("first")
	require.NoError(t, err)
	writeFile(t, filepath.Join(first, "extra.go"), "package main\n")

	second, err := m.Create("second")
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(second, ".gantry"))
	require.True(t, os.IsNotExist(err))

	// The rest of the tree still gets copied
	_, err = os.Stat(filepath.Join(second, "main.go"))
	require.NoError(t, err)
}

type recordingCommitter struct {
	nodeID string
	files  []string
}

func (r *recordingCommitter) Commit(root, nodeID string, files []string) error {
	r.nodeID = nodeID
	r.files = files
	return nil
}

func TestIntegrateInvokesCommitter(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "main.go"), "package main\n")
	rec := &recordingCommitter{}
	m, err := New(root, filepath.Join(t.TempDir(), "staging"), WithCommitter(rec))
	require.NoError(t, err)

	path, err := m.Create("commit-me")
	require.NoError(t, err)
	writeFile(t, filepath.Join(path, "main.go"), "package main // v2\n")

	_, err = m.Integrate("commit-me")
	require.NoError(t, err)
	require.Equal(t, "commit-me", rec.nodeID)
	require.Equal(t, []string{"main.go"}, rec.files)
}

func TestGitCommitterCreatesCommit(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "main.go"), "package main\n")

	c := NewGitCommitter()
	require.NoError(t, c.Commit(root, "node-a", []string{"main.go"}))

	// Repository was initialized and a commit exists
	_, err := os.Stat(filepath.Join(root, ".git"))
	require.NoError(t, err)
}
