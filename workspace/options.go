package workspace

import "github.com/deepnoodle-ai/gantry/slogger"

type Option func(*Manager)

// WithIgnorePatterns replaces the default set of glob patterns excluded
// from copies and diffs.
func WithIgnorePatterns(patterns []string) Option {
	return func(m *Manager) { m.ignore = patterns }
}

// WithCommitter records each integration as a commit on the shared tree.
func WithCommitter(c Committer) Option {
	return func(m *Manager) { m.committer = c }
}

func WithLogger(logger slogger.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}
