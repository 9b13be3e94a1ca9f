// Package taskrun provides the Source that resolves TaskRun child references.
package taskrun

import (
	"context"

	"k8s.io/apimachinery/pkg/api/meta"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"

	pipelinev1 "github.com/kination/runtopo/api/v1"
	"github.com/kination/runtopo/internal/topology"
)

// Getter is the read side of a controller-runtime client
type Getter interface {
	Get(ctx context.Context, key client.ObjectKey, obj client.Object, opts ...client.GetOption) error
}

// Source implements the fetcher.Source interface for TaskRuns
type Source struct {
	getter Getter
}

// New creates a new TaskRun source reading through getter
func New(getter Getter) *Source {
	return &Source{getter: getter}
}

// Kinds returns the child reference kinds this source handles
func (s *Source) Kinds() []string {
	return []string{pipelinev1.TaskRunKind}
}

// Fetch reads the TaskRun named by ref and converts it to an execution record
func (s *Source) Fetch(ctx context.Context, namespace string, ref pipelinev1.ChildReference) (topology.ExecutionRecord, error) {
	tr := &pipelinev1.TaskRun{}
	if err := s.getter.Get(ctx, types.NamespacedName{Name: ref.Name, Namespace: namespace}, tr); err != nil {
		return topology.ExecutionRecord{}, err
	}
	return Record(tr, ref.PipelineTaskName), nil
}

// Record converts a TaskRun into an execution record.
// pipelineTaskName falls back to the pipeline task label when empty.
func Record(tr *pipelinev1.TaskRun, pipelineTaskName string) topology.ExecutionRecord {
	if pipelineTaskName == "" {
		pipelineTaskName = tr.Labels[pipelinev1.PipelineTaskLabelKey]
	}

	status := topology.ExecutionStatus{
		PodName:        tr.Status.PodName,
		StartTime:      tr.Status.StartTime,
		CompletionTime: tr.Status.CompletionTime,
	}
	if cond := meta.FindStatusCondition(tr.Status.Conditions, pipelinev1.ConditionSucceeded); cond != nil {
		status.Succeeded = cond.Status
		status.Reason = cond.Reason
		status.Message = cond.Message
	}

	return topology.ExecutionRecord{
		RunID:            tr.Name,
		PipelineTaskName: pipelineTaskName,
		Status:           status,
	}
}
