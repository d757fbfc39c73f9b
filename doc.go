// Package gantry provides a Go library for running checkpointed DAG
// workflows of heterogeneous nodes: tasks, discovery steps, quality gates,
// and fan-out/fan-in points. Nodes delegate their work to injected model
// providers, outcomes are durably checkpointed after every transition, and
// interrupted runs resume without re-executing completed nodes.
//
// The core types are:
//
//   - [NodeOutcome] captures the immutable result of one node execution.
//   - [ModelConfig] selects a provider/model pair plus an ordered fallback chain.
//   - [Provider] is the injected model-invocation capability.
//   - [WorkspaceManager] is the version-control collaborator for
//     software-domain nodes.
//
// Graph topology lives in [github.com/deepnoodle-ai/gantry/graph], durable
// run state in [github.com/deepnoodle-ai/gantry/checkpoint], and the run
// loop in [github.com/deepnoodle-ai/gantry/engine].
package gantry
