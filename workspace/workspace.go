// Package workspace provides isolated working copies of a shared result
// tree. Each software node executes against its own copy; successful work
// is integrated back into the shared tree while failed copies are left in
// place for inspection.
package workspace

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/deepnoodle-ai/gantry"
	"github.com/deepnoodle-ai/gantry/slogger"
)

var defaultIgnorePatterns = []string{
	".git/**",
	"**/node_modules/**",
	"**/.DS_Store",
}

// Manager creates, integrates, and discards per-node working copies under
// a staging directory beside the shared tree.
type Manager struct {
	mutex     sync.Mutex
	root      string
	staging   string
	ignore    []string
	committer Committer
	logger    slogger.Logger
}

var _ gantry.WorkspaceManager = &Manager{}

// New returns a Manager over the shared tree rooted at root. Working
// copies are created under stagingDir.
func New(root, stagingDir string, opts ...Option) (*Manager, error) {
	if root == "" {
		return nil, fmt.Errorf("workspace root is required")
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("error resolving workspace root: %w", err)
	}
	if stagingDir == "" {
		stagingDir = filepath.Join(absRoot, ".gantry", "workspaces")
	}
	m := &Manager{
		root:    absRoot,
		staging: stagingDir,
		ignore:  defaultIgnorePatterns,
		logger:  slogger.DefaultLogger,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Create makes an isolated copy of the shared tree for the given node and
// returns its path. An existing copy for the same node is replaced.
func (m *Manager) Create(nodeID string) (string, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if nodeID == "" {
		return "", fmt.Errorf("node id is required")
	}
	dst := filepath.Join(m.staging, nodeID)
	if err := os.RemoveAll(dst); err != nil {
		return "", fmt.Errorf("error clearing workspace for %q: %w", nodeID, err)
	}
	if err := os.MkdirAll(dst, 0755); err != nil {
		return "", fmt.Errorf("error creating workspace for %q: %w", nodeID, err)
	}
	if err := m.copyTree(m.root, dst); err != nil {
		return "", fmt.Errorf("error populating workspace for %q: %w", nodeID, err)
	}
	m.logger.Debug("workspace created", "node_id", nodeID, "path", dst)
	return dst, nil
}

// Integrate copies files changed in the node's workspace back into the
// shared tree and returns a diff describing the changes. If a committer is
// configured, the integration is recorded as a commit on the shared tree.
func (m *Manager) Integrate(nodeID string) (*gantry.WorkspaceDiff, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	src := filepath.Join(m.staging, nodeID)
	if _, err := os.Stat(src); err != nil {
		return nil, fmt.Errorf("no workspace for node %q: %w", nodeID, err)
	}

	changed, err := m.changedFiles(src)
	if err != nil {
		return nil, fmt.Errorf("error comparing workspace for %q: %w", nodeID, err)
	}

	var diffs []string
	for _, rel := range changed {
		text, err := m.unifiedDiff(rel, src)
		if err != nil {
			return nil, err
		}
		diffs = append(diffs, text)
		srcPath := filepath.Join(src, rel)
		dstPath := filepath.Join(m.root, rel)
		if err := os.MkdirAll(filepath.Dir(dstPath), 0755); err != nil {
			return nil, fmt.Errorf("error integrating %q: %w", rel, err)
		}
		if err := copyFile(srcPath, dstPath); err != nil {
			return nil, fmt.Errorf("error integrating %q: %w", rel, err)
		}
	}

	if m.committer != nil && len(changed) > 0 {
		if err := m.committer.Commit(m.root, nodeID, changed); err != nil {
			m.logger.Warn("integration commit failed",
				"node_id", nodeID, "error", err)
		}
	}

	if err := os.RemoveAll(src); err != nil {
		return nil, fmt.Errorf("error removing workspace for %q: %w", nodeID, err)
	}
	m.logger.Debug("workspace integrated",
		"node_id", nodeID, "changed_files", len(changed))
	return &gantry.WorkspaceDiff{
		ChangedFiles: changed,
		UnifiedDiff:  strings.Join(diffs, ""),
	}, nil
}

// Discard removes the node's workspace without integrating it. Callers
// skip this for failed nodes so the copy stays available for inspection.
func (m *Manager) Discard(nodeID string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	dst := filepath.Join(m.staging, nodeID)
	if err := os.RemoveAll(dst); err != nil {
		return fmt.Errorf("error discarding workspace for %q: %w", nodeID, err)
	}
	m.logger.Debug("workspace discarded", "node_id", nodeID)
	return nil
}

// Path returns the workspace path for a node without creating it.
func (m *Manager) Path(nodeID string) string {
	return filepath.Join(m.staging, nodeID)
}

func (m *Manager) ignored(rel string) bool {
	rel = filepath.ToSlash(rel)
	for _, pattern := range m.ignore {
		if matched, _ := doublestar.Match(pattern, rel); matched {
			return true
		}
	}
	return false
}

func (m *Manager) copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		// Never copy the staging area into a workspace, nor any
		// directory it lives inside (the manager's own metadata dir
		// when staging defaults to a location under the root).
		if sameOrUnder(path, m.staging) || (d.IsDir() && sameOrUnder(m.staging, path)) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if m.ignored(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0755)
		}
		if !d.Type().IsRegular() {
			return nil
		}
		return copyFile(path, target)
	})
}

// changedFiles returns paths (relative, slash-separated) whose content in
// the workspace differs from the shared tree, including new files. Results
// are sorted for deterministic diffs.
func (m *Manager) changedFiles(src string) ([]string, error) {
	var changed []string
	err := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if m.ignored(rel) {
			return nil
		}
		workContent, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		baseContent, err := os.ReadFile(filepath.Join(m.root, rel))
		if err != nil {
			if os.IsNotExist(err) {
				changed = append(changed, filepath.ToSlash(rel))
				return nil
			}
			return err
		}
		if string(workContent) != string(baseContent) {
			changed = append(changed, filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(changed)
	return changed, nil
}

func (m *Manager) unifiedDiff(rel, src string) (string, error) {
	newContent, err := os.ReadFile(filepath.Join(src, filepath.FromSlash(rel)))
	if err != nil {
		return "", fmt.Errorf("error reading %q: %w", rel, err)
	}
	oldContent, err := os.ReadFile(filepath.Join(m.root, filepath.FromSlash(rel)))
	if err != nil && !os.IsNotExist(err) {
		return "", fmt.Errorf("error reading %q: %w", rel, err)
	}
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(oldContent)),
		B:        difflib.SplitLines(string(newContent)),
		FromFile: "a/" + rel,
		ToFile:   "b/" + rel,
		Context:  3,
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return "", fmt.Errorf("error diffing %q: %w", rel, err)
	}
	return text, nil
}

func sameOrUnder(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || !strings.HasPrefix(rel, "..")
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	info, err := in.Stat()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
