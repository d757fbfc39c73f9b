// Package agentcli implements a gantry.Provider that shells out to a local
// coding-agent CLI. The prompt is written to the tool's stdin and stdout is
// captured as the node's output; if the tool finishes with a JSON object, it
// becomes the response's structured fields.
package agentcli

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/deepnoodle-ai/gantry"
	"github.com/deepnoodle-ai/gantry/provider"
)

var _ gantry.Provider = &Provider{}

type Provider struct {
	name    string
	command string
	args    []string
	dir     string
	env     []string
}

// New creates a provider that runs the given command for each invocation.
// The node's model name is passed with --model; the reasoning effort, when
// set, with --effort.
func New(name, command string, opts ...Option) *Provider {
	p := &Provider{name: name, command: command}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) Name() string {
	return p.name
}

func (p *Provider) Invoke(ctx context.Context, request *gantry.ProviderRequest) (*gantry.ProviderResponse, error) {
	args := append([]string{}, p.args...)
	if request.Model != "" {
		args = append(args, "--model", request.Model)
	}
	if request.ReasoningEffort != "" {
		args = append(args, "--effort", string(request.ReasoningEffort))
	}
	if request.ToolProfile != "" {
		args = append(args, "--tools", request.ToolProfile)
	}

	cmd := exec.CommandContext(ctx, p.command, args...)
	cmd.Stdin = strings.NewReader(provider.FormatPrompt(request))
	cmd.Dir = p.dir
	if len(p.env) > 0 {
		cmd.Env = p.env
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = err.Error()
		}
		return nil, fmt.Errorf("agent command %q failed: %s", p.command, detail)
	}

	output := stdout.String()
	return &gantry.ProviderResponse{
		Output: output,
		Fields: provider.ParseFields(output),
	}, nil
}
