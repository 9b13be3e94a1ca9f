// Package topology builds the task graph of a pipeline run and overlays the
// live status of every task onto it.
//
// Build is a pure function of its inputs. Deciding when to recompute is left
// to the caller, see Fingerprint.
package topology

import (
	"sort"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	pipelinev1 "github.com/kination/runtopo/api/v1"
)

// RunStatus is the status shown for a node
type RunStatus string

const (
	RunStatusSucceeded  RunStatus = "Succeeded"
	RunStatusFailed     RunStatus = "Failed"
	RunStatusRunning    RunStatus = "Running"
	RunStatusInProgress RunStatus = "InProgress"
	RunStatusPending    RunStatus = "Pending"
	RunStatusSkipped    RunStatus = "Skipped"
	RunStatusCancelled  RunStatus = "Cancelled"
)

// Node is one task in the rendered graph
type Node struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	// RunAfter is nil when the task has no predecessors
	RunAfter []string  `json:"runAfter,omitempty"`
	Status   RunStatus `json:"status,omitempty"`
}

// ExecutionStatus is the live state of one task execution
type ExecutionStatus struct {
	// Succeeded mirrors the status of the execution's Succeeded condition,
	// empty when the execution has not reported one yet
	Succeeded      metav1.ConditionStatus `json:"succeeded,omitempty"`
	Reason         string                 `json:"reason,omitempty"`
	Message        string                 `json:"message,omitempty"`
	PodName        string                 `json:"podName,omitempty"`
	StartTime      *metav1.Time           `json:"startTime,omitempty"`
	CompletionTime *metav1.Time           `json:"completionTime,omitempty"`
}

// ExecutionRecord ties an execution to the pipeline task it ran
type ExecutionRecord struct {
	RunID            string          `json:"runID"`
	PipelineTaskName string          `json:"pipelineTaskName"`
	Status           ExecutionStatus `json:"status"`
}

// ExecutionResult is the outcome of looking up one child reference: either a
// resolved record or the error that kept it unresolved. Index is the position
// of the child reference in the run's status.
type ExecutionResult struct {
	Record ExecutionRecord
	Err    error
	Index  int
}

// Resolved wraps a fetched record
func Resolved(record ExecutionRecord) ExecutionResult {
	return ExecutionResult{Record: record}
}

// Unresolved marks a lookup that failed
func Unresolved(err error) ExecutionResult {
	return ExecutionResult{Err: err}
}

// IsResolved reports whether the lookup produced a record
func (r ExecutionResult) IsResolved() bool {
	return r.Err == nil
}

// ExecutionMap holds lookup results keyed by child reference name. A missing
// key means nothing was looked up; an unresolved entry means the lookup failed.
type ExecutionMap map[string]ExecutionResult

// Records flattens the resolved entries in child reference order. Entries
// sharing an index are ordered by name.
func (m ExecutionMap) Records() []ExecutionRecord {
	keys := m.keys()
	records := make([]ExecutionRecord, 0, len(keys))
	for _, k := range keys {
		if result := m[k]; result.IsResolved() {
			records = append(records, result.Record)
		}
	}
	return records
}

// keys returns the child reference names ordered by Index, then name
func (m ExecutionMap) keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := m[keys[i]], m[keys[j]]
		if a.Index != b.Index {
			return a.Index < b.Index
		}
		return keys[i] < keys[j]
	})
	return keys
}

// Unresolved returns the child reference names whose lookup failed, in child
// reference order
func (m ExecutionMap) Unresolved() []string {
	var names []string
	for _, k := range m.keys() {
		if !m[k].IsResolved() {
			names = append(names, k)
		}
	}
	return names
}

// TaskDetails is a pipeline task enriched with its run state
type TaskDetails struct {
	pipelinev1.PipelineTask `json:",inline"`

	Skipped    bool             `json:"skipped"`
	RunStatus  RunStatus        `json:"runStatus,omitempty"`
	RunDetails *ExecutionRecord `json:"runDetails,omitempty"`
}

// Topology is the graph of a run ready for display.
// len(Nodes) == len(TaskMap) and every node ID is a TaskMap key.
type Topology struct {
	TaskMap map[string]TaskDetails `json:"taskMap"`
	Nodes   []Node                 `json:"nodes"`
}

// Empty returns the topology of a run without tasks
func Empty() Topology {
	return Topology{
		TaskMap: map[string]TaskDetails{},
		Nodes:   []Node{},
	}
}
