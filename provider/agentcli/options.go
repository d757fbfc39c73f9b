package agentcli

type Option func(*Provider)

// WithArgs sets extra arguments passed before the generated flags.
func WithArgs(args ...string) Option {
	return func(p *Provider) { p.args = args }
}

// WithDir sets the working directory the command runs in.
func WithDir(dir string) Option {
	return func(p *Provider) { p.dir = dir }
}

// WithEnv replaces the command's environment.
func WithEnv(env []string) Option {
	return func(p *Provider) { p.env = env }
}
