// Package builder provides a fluent API for assembling PipelineRuns and the
// TaskRuns they reference.
package builder

import (
	"fmt"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	pipelinev1 "github.com/kination/runtopo/api/v1"
)

// RunBuilder provides fluent API for building PipelineRuns
type RunBuilder struct {
	name      string
	namespace string
	tasks     []pipelinev1.PipelineTask
	index     map[string]int
	status    pipelinev1.PipelineRunStatus
}

// New creates a new PipelineRun builder
func New(name string) *RunBuilder {
	return &RunBuilder{
		name:      name,
		namespace: "default",
		index:     make(map[string]int),
	}
}

// Namespace sets the namespace of the run
func (b *RunBuilder) Namespace(ns string) *RunBuilder {
	b.namespace = ns
	return b
}

// AddTask adds a task with optional explicit predecessors
func (b *RunBuilder) AddTask(name string, runAfter ...string) *RunBuilder {
	b.index[name] = len(b.tasks)
	b.tasks = append(b.tasks, pipelinev1.PipelineTask{
		Name:     name,
		TaskRef:  &pipelinev1.TaskRef{Name: name},
		RunAfter: runAfter,
	})
	return b
}

// AddSequential adds tasks that run sequentially (each runs after the previous)
func (b *RunBuilder) AddSequential(names ...string) *RunBuilder {
	var prev string
	for _, name := range names {
		if prev == "" {
			b.AddTask(name)
		} else {
			b.AddTask(name, prev)
		}
		prev = name
	}
	return b
}

// AddParallel adds tasks that all run after the same task
func (b *RunBuilder) AddParallel(afterTask string, names ...string) *RunBuilder {
	for _, name := range names {
		if afterTask == "" {
			b.AddTask(name)
		} else {
			b.AddTask(name, afterTask)
		}
	}
	return b
}

// After appends explicit predecessors to a task
func (b *RunBuilder) After(task string, runAfter ...string) *RunBuilder {
	t := b.task(task)
	t.RunAfter = append(t.RunAfter, runAfter...)
	return b
}

// Param sets a literal string parameter on a task
func (b *RunBuilder) Param(task, name, value string) *RunBuilder {
	t := b.task(task)
	t.Params = append(t.Params, pipelinev1.Param{Name: name, Value: pipelinev1.NewStringValue(value)})
	return b
}

// ParamFromResult sets a parameter that consumes a result of another task
func (b *RunBuilder) ParamFromResult(task, name, producer, result string) *RunBuilder {
	return b.Param(task, name, ResultRef(producer, result))
}

// WhenResult guards a task on a result of another task being one of values
func (b *RunBuilder) WhenResult(task, producer, result string, values ...string) *RunBuilder {
	t := b.task(task)
	t.When = append(t.When, pipelinev1.WhenExpression{
		Input:    ResultRef(producer, result),
		Operator: "in",
		Values:   values,
	})
	return b
}

// Skip records a task as skipped in the run status
func (b *RunBuilder) Skip(task, reason string) *RunBuilder {
	b.status.SkippedTasks = append(b.status.SkippedTasks, pipelinev1.SkippedTask{
		Name:   task,
		Reason: reason,
	})
	return b
}

// Child records a TaskRun executing task in the run status
func (b *RunBuilder) Child(task, taskRunName string) *RunBuilder {
	b.status.ChildReferences = append(b.status.ChildReferences, pipelinev1.ChildReference{
		APIVersion:       pipelinev1.GroupVersion.String(),
		Kind:             pipelinev1.TaskRunKind,
		Name:             taskRunName,
		PipelineTaskName: task,
	})
	return b
}

// Condition sets the Succeeded condition of the run
func (b *RunBuilder) Condition(status metav1.ConditionStatus, reason string) *RunBuilder {
	b.status.Conditions = []metav1.Condition{newCondition(status, reason)}
	return b
}

// Tasks returns a copy of the tasks added so far
func (b *RunBuilder) Tasks() []pipelinev1.PipelineTask {
	out := make([]pipelinev1.PipelineTask, len(b.tasks))
	for i := range b.tasks {
		b.tasks[i].DeepCopyInto(&out[i])
	}
	return out
}

// Build returns the PipelineRun. The builder can keep being used afterwards.
func (b *RunBuilder) Build() *pipelinev1.PipelineRun {
	pr := &pipelinev1.PipelineRun{
		TypeMeta: metav1.TypeMeta{
			APIVersion: pipelinev1.GroupVersion.String(),
			Kind:       pipelinev1.PipelineRunKind,
		},
		ObjectMeta: metav1.ObjectMeta{
			Name:      b.name,
			Namespace: b.namespace,
		},
		Spec: pipelinev1.PipelineRunSpec{
			PipelineSpec: &pipelinev1.PipelineSpec{Tasks: b.Tasks()},
		},
	}
	b.status.DeepCopyInto(&pr.Status)
	return pr
}

// TaskRun creates a TaskRun executing pipelineTask with the given Succeeded condition.
// An empty status leaves the TaskRun without conditions.
func TaskRun(namespace, name, pipelineTask string, status metav1.ConditionStatus, reason string) *pipelinev1.TaskRun {
	tr := &pipelinev1.TaskRun{
		TypeMeta: metav1.TypeMeta{
			APIVersion: pipelinev1.GroupVersion.String(),
			Kind:       pipelinev1.TaskRunKind,
		},
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: namespace,
			Labels: map[string]string{
				pipelinev1.PipelineTaskLabelKey: pipelineTask,
			},
		},
		Status: pipelinev1.TaskRunStatus{
			PodName: name + "-pod",
		},
	}
	if status != "" {
		tr.Status.Conditions = []metav1.Condition{newCondition(status, reason)}
	}
	return tr
}

// ResultRef returns the reference to a result of a task
func ResultRef(task, result string) string {
	return fmt.Sprintf("$(tasks.%s.results.%s)", task, result)
}

func (b *RunBuilder) task(name string) *pipelinev1.PipelineTask {
	i, ok := b.index[name]
	if !ok {
		b.AddTask(name)
		i = b.index[name]
	}
	return &b.tasks[i]
}

func newCondition(status metav1.ConditionStatus, reason string) metav1.Condition {
	if reason == "" {
		reason = string(status)
	}
	return metav1.Condition{
		Type:               pipelinev1.ConditionSucceeded,
		Status:             status,
		Reason:             reason,
		LastTransitionTime: metav1.NewTime(time.Unix(0, 0).UTC()),
	}
}
