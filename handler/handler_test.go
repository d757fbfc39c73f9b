package handler

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/deepnoodle-ai/gantry"
	"github.com/deepnoodle-ai/gantry/graph"
	"github.com/deepnoodle-ai/gantry/provider"
)

type fakeProvider struct {
	name     string
	response *gantry.ProviderResponse
	err      error
	requests []*gantry.ProviderRequest
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) Invoke(ctx context.Context, request *gantry.ProviderRequest) (*gantry.ProviderResponse, error) {
	p.requests = append(p.requests, request)
	if p.err != nil {
		return nil, p.err
	}
	return p.response, nil
}

type fakeWorkspaces struct {
	created    []string
	integrated []string
	discarded  []string
	createErr  error
	diff       *gantry.WorkspaceDiff
}

func (w *fakeWorkspaces) Create(nodeID string) (string, error) {
	if w.createErr != nil {
		return "", w.createErr
	}
	w.created = append(w.created, nodeID)
	return "/tmp/workspaces/" + nodeID, nil
}

func (w *fakeWorkspaces) Integrate(nodeID string) (*gantry.WorkspaceDiff, error) {
	w.integrated = append(w.integrated, nodeID)
	if w.diff != nil {
		return w.diff, nil
	}
	return &gantry.WorkspaceDiff{}, nil
}

func (w *fakeWorkspaces) Discard(nodeID string) error {
	w.discarded = append(w.discarded, nodeID)
	return nil
}

func newTestSet(t *testing.T, p gantry.Provider, workspaces gantry.WorkspaceManager) *Set {
	t.Helper()
	registry, err := provider.NewRegistry([]gantry.Provider{p})
	require.NoError(t, err)
	set, err := NewSet(SetOptions{Registry: registry, Workspaces: workspaces})
	require.NoError(t, err)
	return set
}

func modelFor(providerName string) gantry.ModelConfig {
	return gantry.ModelConfig{Provider: providerName, Model: "test-model"}
}

func outcomeWith(nodeID string, artifacts map[string]string) *gantry.NodeOutcome {
	return &gantry.NodeOutcome{
		NodeID:    nodeID,
		Status:    gantry.OutcomeSuccess,
		Artifacts: artifacts,
	}
}

func TestSetSelection(t *testing.T) {
	set := newTestSet(t, &fakeProvider{name: "fake"}, &fakeWorkspaces{})

	tests := []struct {
		name     string
		node     *graph.Node
		expected Handler
		wantErr  string
	}{
		{
			name:     "software task",
			node:     &graph.Node{ID: "a", Type: graph.NodeTypeTask, Domain: graph.DomainSoftware},
			expected: set.software,
		},
		{
			name:     "content task",
			node:     &graph.Node{ID: "a", Type: graph.NodeTypeTask, Domain: graph.DomainContent},
			expected: set.content,
		},
		{
			name:     "mixed task",
			node:     &graph.Node{ID: "a", Type: graph.NodeTypeTask, Domain: graph.DomainMixed},
			expected: set.mixed,
		},
		{
			name:     "discovery",
			node:     &graph.Node{ID: "a", Type: graph.NodeTypeDiscovery},
			expected: set.discovery,
		},
		{
			name:     "fan out",
			node:     &graph.Node{ID: "a", Type: graph.NodeTypeFanOut},
			expected: set.structural,
		},
		{
			name:     "fan in",
			node:     &graph.Node{ID: "a", Type: graph.NodeTypeFanIn},
			expected: set.structural,
		},
		{
			name:    "gate has no handler",
			node:    &graph.Node{ID: "a", Type: graph.NodeTypeGate},
			wantErr: "evaluated by the engine",
		},
		{
			name:    "unknown domain",
			node:    &graph.Node{ID: "a", Type: graph.NodeTypeTask, Domain: "hardware"},
			wantErr: "unknown domain",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := set.For(tt.node)
			if tt.wantErr != "" {
				require.Error(t, err)
				require.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Same(t, tt.expected, h)
		})
	}
}

func TestContentHandlerSuccess(t *testing.T) {
	p := &fakeProvider{
		name: "fake",
		response: &gantry.ProviderResponse{
			Output: "drafted text",
			Fields: map[string]any{"word_count": float64(2), "approved": true},
		},
	}
	set := newTestSet(t, p, nil)

	node := &graph.Node{
		ID:     "draft",
		Type:   graph.NodeTypeTask,
		Domain: graph.DomainContent,
		Prompt: "Draft the summary.",
		Model:  modelFor("fake"),
	}
	outcome, err := set.content.Execute(context.Background(), node, &Inputs{})
	require.NoError(t, err)
	require.Equal(t, gantry.OutcomeSuccess, outcome.Status)
	require.Equal(t, "drafted text", outcome.Artifacts[PrimaryArtifact])
	require.Equal(t, "2", outcome.Artifacts["word_count"])
	require.Equal(t, "true", outcome.Artifacts["approved"])
	require.False(t, outcome.CompletedAt.Before(outcome.StartedAt))
}

func TestContentHandlerProviderFailure(t *testing.T) {
	p := &fakeProvider{name: "fake", err: fmt.Errorf("model unavailable")}
	set := newTestSet(t, p, nil)

	node := &graph.Node{
		ID:     "draft",
		Type:   graph.NodeTypeTask,
		Domain: graph.DomainContent,
		Model:  modelFor("fake"),
	}
	outcome, err := set.content.Execute(context.Background(), node, &Inputs{})
	require.NoError(t, err)
	require.Equal(t, gantry.OutcomeFailure, outcome.Status)
	require.Contains(t, outcome.Error, "model unavailable")
}

func TestMinimalContextForwardsPrimaryArtifact(t *testing.T) {
	p := &fakeProvider{name: "fake", response: &gantry.ProviderResponse{Output: "ok"}}
	set := newTestSet(t, p, nil)

	node := &graph.Node{
		ID:       "b",
		Type:     graph.NodeTypeTask,
		Domain:   graph.DomainContent,
		Fidelity: graph.FidelityMinimal,
		Model:    modelFor("fake"),
	}
	inputs := &Inputs{
		Predecessors: []*gantry.NodeOutcome{
			outcomeWith("a", map[string]string{PrimaryArtifact: "from a", "notes": "aside"}),
		},
		Upstream: []*gantry.NodeOutcome{
			outcomeWith("root", map[string]string{PrimaryArtifact: "from root"}),
			outcomeWith("a", map[string]string{PrimaryArtifact: "from a", "notes": "aside"}),
		},
	}
	_, err := set.content.Execute(context.Background(), node, inputs)
	require.NoError(t, err)

	require.Len(t, p.requests, 1)
	require.Equal(t, map[string]string{"a.output": "from a"}, p.requests[0].Context)
}

func TestMinimalContextLaterPredecessorWins(t *testing.T) {
	inputs := &Inputs{
		Predecessors: []*gantry.NodeOutcome{
			outcomeWith("first", map[string]string{PrimaryArtifact: "one"}),
			outcomeWith("second", map[string]string{PrimaryArtifact: "two"}),
		},
	}
	require.Equal(t, map[string]string{"second.output": "two"}, minimalContext(inputs))
}

func TestPartialContextFiltersAndTruncates(t *testing.T) {
	long := strings.Repeat("x", partialArtifactLimit+100)
	node := &graph.Node{
		ID:       "b",
		Fidelity: graph.FidelityPartial,
		Include:  []string{"*.output", "complexity"},
	}
	inputs := &Inputs{
		Upstream: []*gantry.NodeOutcome{
			outcomeWith("a", map[string]string{
				PrimaryArtifact: long,
				"complexity":    "high",
				"scratch":       "dropped",
			}),
		},
	}
	result, err := BuildContext(node, inputs)
	require.NoError(t, err)
	require.Len(t, result, 2)
	require.Contains(t, result, "a.output")
	require.Contains(t, result, "a.complexity")
	require.True(t, strings.HasSuffix(result["a.output"], "[truncated]"))
	require.Less(t, len(result["a.output"]), len(long))
}

func TestPartialContextNoPatternsForwardsAll(t *testing.T) {
	node := &graph.Node{ID: "b", Fidelity: graph.FidelityPartial}
	inputs := &Inputs{
		Upstream: []*gantry.NodeOutcome{
			outcomeWith("a", map[string]string{PrimaryArtifact: "x", "notes": "y"}),
		},
	}
	result, err := BuildContext(node, inputs)
	require.NoError(t, err)
	require.Len(t, result, 2)
}

func TestPartialContextInvalidPattern(t *testing.T) {
	node := &graph.Node{ID: "b", Fidelity: graph.FidelityPartial, Include: []string{"[bad"}}
	_, err := BuildContext(node, &Inputs{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid include pattern")
}

func TestFullContextForwardsEverything(t *testing.T) {
	node := &graph.Node{ID: "c", Fidelity: graph.FidelityFull}
	inputs := &Inputs{
		Upstream: []*gantry.NodeOutcome{
			outcomeWith("a", map[string]string{PrimaryArtifact: "one", "notes": "aside"}),
			outcomeWith("b", map[string]string{PrimaryArtifact: "two"}),
		},
	}
	result, err := BuildContext(node, inputs)
	require.NoError(t, err)
	require.Equal(t, map[string]string{
		"a.output": "one",
		"a.notes":  "aside",
		"b.output": "two",
	}, result)
}

func TestSoftwareHandlerIntegratesOnSuccess(t *testing.T) {
	p := &fakeProvider{name: "fake", response: &gantry.ProviderResponse{Output: "changed the code"}}
	workspaces := &fakeWorkspaces{
		diff: &gantry.WorkspaceDiff{
			ChangedFiles: []string{"main.go", "pkg/util.go"},
			UnifiedDiff:  "--- a/main.go\n+++ b/main.go\n",
		},
	}
	set := newTestSet(t, p, workspaces)

	node := &graph.Node{
		ID:     "fix",
		Type:   graph.NodeTypeTask,
		Domain: graph.DomainSoftware,
		Model:  modelFor("fake"),
	}
	outcome, err := set.software.Execute(context.Background(), node, &Inputs{})
	require.NoError(t, err)
	require.Equal(t, gantry.OutcomeSuccess, outcome.Status)
	require.Equal(t, []string{"fix"}, workspaces.created)
	require.Equal(t, []string{"fix"}, workspaces.integrated)
	require.Empty(t, workspaces.discarded)
	require.Equal(t, "main.go\npkg/util.go", outcome.Artifacts[ArtifactChangedFiles])
	require.Contains(t, outcome.Artifacts[ArtifactDiff], "+++ b/main.go")

	// The provider was told where the workspace is
	require.Len(t, p.requests, 1)
	require.Equal(t, "/tmp/workspaces/fix", p.requests[0].Context[WorkspacePathKey])
}

func TestSoftwareHandlerRetainsWorkspaceOnFailure(t *testing.T) {
	p := &fakeProvider{name: "fake", err: fmt.Errorf("edit rejected")}
	workspaces := &fakeWorkspaces{}
	set := newTestSet(t, p, workspaces)

	node := &graph.Node{
		ID:     "fix",
		Type:   graph.NodeTypeTask,
		Domain: graph.DomainSoftware,
		Model:  modelFor("fake"),
	}
	outcome, err := set.software.Execute(context.Background(), node, &Inputs{})
	require.NoError(t, err)
	require.Equal(t, gantry.OutcomeFailure, outcome.Status)
	require.Equal(t, []string{"fix"}, workspaces.created)
	require.Empty(t, workspaces.integrated)
	require.Empty(t, workspaces.discarded)
}

func TestSoftwareHandlerWorkspaceCreationFailure(t *testing.T) {
	p := &fakeProvider{name: "fake", response: &gantry.ProviderResponse{Output: "ok"}}
	workspaces := &fakeWorkspaces{createErr: fmt.Errorf("disk full")}
	set := newTestSet(t, p, workspaces)

	node := &graph.Node{
		ID:     "fix",
		Type:   graph.NodeTypeTask,
		Domain: graph.DomainSoftware,
		Model:  modelFor("fake"),
	}
	outcome, err := set.software.Execute(context.Background(), node, &Inputs{})
	require.NoError(t, err)
	require.Equal(t, gantry.OutcomeFailure, outcome.Status)
	require.Contains(t, outcome.Error, "workspace creation failed")
	require.Empty(t, p.requests)
}

func TestSoftwareHandlerRequiresWorkspaceManager(t *testing.T) {
	p := &fakeProvider{name: "fake", response: &gantry.ProviderResponse{Output: "ok"}}
	set := newTestSet(t, p, nil)

	node := &graph.Node{
		ID:     "fix",
		Type:   graph.NodeTypeTask,
		Domain: graph.DomainSoftware,
		Model:  modelFor("fake"),
	}
	_, err := set.software.Execute(context.Background(), node, &Inputs{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "no workspace manager configured")
}

func TestMixedHandlerUsesWorkspaceAndParsesFields(t *testing.T) {
	p := &fakeProvider{
		name: "fake",
		response: &gantry.ProviderResponse{
			Output: "code and prose",
			Fields: map[string]any{"summary": "did both"},
		},
	}
	workspaces := &fakeWorkspaces{diff: &gantry.WorkspaceDiff{ChangedFiles: []string{"a.go"}}}
	set := newTestSet(t, p, workspaces)

	node := &graph.Node{
		ID:     "both",
		Type:   graph.NodeTypeTask,
		Domain: graph.DomainMixed,
		Model:  modelFor("fake"),
	}
	outcome, err := set.mixed.Execute(context.Background(), node, &Inputs{})
	require.NoError(t, err)
	require.Equal(t, gantry.OutcomeSuccess, outcome.Status)
	require.Equal(t, "did both", outcome.Artifacts["summary"])
	require.Equal(t, "a.go", outcome.Artifacts[ArtifactChangedFiles])
	require.Equal(t, []string{"both"}, workspaces.integrated)
}

func TestDiscoveryStrategySelection(t *testing.T) {
	tests := []struct {
		name     string
		signal   string
		found    bool
		expected string
	}{
		{"missing signal", "", false, StrategyLight},
		{"high label", "high", true, StrategyDeep},
		{"complex label", "Complex", true, StrategyDeep},
		{"low label", "low", true, StrategyLight},
		{"medium label", "medium", true, StrategyLight},
		{"numeric above threshold", "8", true, StrategyDeep},
		{"numeric at threshold", "7", true, StrategyDeep},
		{"numeric below threshold", "3", true, StrategyLight},
		{"unrecognized", "banana", true, StrategyLight},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inputs := &Inputs{}
			if tt.found {
				inputs.Predecessors = []*gantry.NodeOutcome{
					outcomeWith("triage", map[string]string{ComplexitySignal: tt.signal}),
				}
			}
			require.Equal(t, tt.expected, chooseStrategy(inputs))
		})
	}
}

func TestDiscoveryLaterPredecessorSignalWins(t *testing.T) {
	inputs := &Inputs{
		Predecessors: []*gantry.NodeOutcome{
			outcomeWith("first", map[string]string{ComplexitySignal: "low"}),
			outcomeWith("second", map[string]string{ComplexitySignal: "high"}),
		},
	}
	require.Equal(t, StrategyDeep, chooseStrategy(inputs))
}

func TestDiscoveryHandlerAttachesStrategyArtifact(t *testing.T) {
	p := &fakeProvider{name: "fake", response: &gantry.ProviderResponse{Output: "findings"}}
	set := newTestSet(t, p, nil)

	node := &graph.Node{
		ID:     "investigate",
		Type:   graph.NodeTypeDiscovery,
		Prompt: "Investigate the flaky test.",
		Model:  modelFor("fake"),
	}
	inputs := &Inputs{
		Predecessors: []*gantry.NodeOutcome{
			outcomeWith("triage", map[string]string{ComplexitySignal: "high"}),
		},
	}
	outcome, err := set.discovery.Execute(context.Background(), node, inputs)
	require.NoError(t, err)
	require.Equal(t, gantry.OutcomeSuccess, outcome.Status)
	require.Equal(t, "investigate", outcome.NodeID)
	require.Equal(t, StrategyDeep, outcome.Artifacts[ArtifactStrategy])

	// Deep strategy altered the prompt sent to the provider
	require.Len(t, p.requests, 1)
	require.Contains(t, p.requests[0].Prompt, "deep investigation")
	require.Contains(t, p.requests[0].Prompt, "Investigate the flaky test.")
}

func TestStructuralHandlerMergesPredecessorArtifacts(t *testing.T) {
	h := &StructuralHandler{}
	node := &graph.Node{ID: "join", Type: graph.NodeTypeFanIn}
	inputs := &Inputs{
		Predecessors: []*gantry.NodeOutcome{
			outcomeWith("a", map[string]string{PrimaryArtifact: "from a", "notes": "a notes"}),
			outcomeWith("b", map[string]string{PrimaryArtifact: "from b"}),
		},
	}
	outcome, err := h.Execute(context.Background(), node, inputs)
	require.NoError(t, err)
	require.Equal(t, gantry.OutcomeSuccess, outcome.Status)
	// Later predecessor wins on collision
	require.Equal(t, "from b", outcome.Artifacts[PrimaryArtifact])
	require.Equal(t, "a notes", outcome.Artifacts["notes"])
}
