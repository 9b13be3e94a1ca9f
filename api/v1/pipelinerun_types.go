package v1

import (
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

const (
	PipelineRunKind = "PipelineRun"
	TaskRunKind     = "TaskRun"

	// ConditionSucceeded is the condition type carrying run completion
	ConditionSucceeded = "Succeeded"

	// PipelineTaskLabelKey is set on TaskRuns to the pipeline task they execute
	PipelineTaskLabelKey = "tekton.dev/pipelineTask"
	// PipelineRunLabelKey is set on TaskRuns to their owning PipelineRun
	PipelineRunLabelKey = "tekton.dev/pipelineRun"
)

// TaskRef names the Task a pipeline task runs
type TaskRef struct {
	Name string `json:"name,omitempty"`
	Kind string `json:"kind,omitempty"`
}

// WhenExpression guards a pipeline task. Input and Values may reference
// results of other tasks.
type WhenExpression struct {
	Input    string   `json:"input,omitempty"`
	Operator string   `json:"operator,omitempty"`
	Values   []string `json:"values,omitempty"`
	CEL      string   `json:"cel,omitempty"`
}

// PipelineTask defines one step of a pipeline
type PipelineTask struct {
	Name     string           `json:"name"`
	TaskRef  *TaskRef         `json:"taskRef,omitempty"`
	Params   []Param          `json:"params,omitempty"`
	When     []WhenExpression `json:"when,omitempty"`
	RunAfter []string         `json:"runAfter,omitempty"` // Tasks that must complete before this task can run
}

// PipelineSpec defines the tasks of a pipeline
type PipelineSpec struct {
	Tasks []PipelineTask `json:"tasks,omitempty"`
}

// PipelineRef references a stored pipeline
type PipelineRef struct {
	Name string `json:"name,omitempty"`
}

// PipelineRunSpec defines the desired state of a PipelineRun
type PipelineRunSpec struct {
	PipelineRef  *PipelineRef  `json:"pipelineRef,omitempty"`
	PipelineSpec *PipelineSpec `json:"pipelineSpec,omitempty"`
}

// SkippedTask is a pipeline task the run decided not to execute
type SkippedTask struct {
	Name            string           `json:"name"`
	Reason          string           `json:"reason,omitempty"`
	WhenExpressions []WhenExpression `json:"whenExpressions,omitempty"`
}

// ChildReference points from a pipeline task to the object executing it
type ChildReference struct {
	APIVersion       string `json:"apiVersion,omitempty"`
	Kind             string `json:"kind,omitempty"`
	Name             string `json:"name,omitempty"`
	PipelineTaskName string `json:"pipelineTaskName,omitempty"`
}

// PipelineRunStatus is the observed state of a PipelineRun
type PipelineRunStatus struct {
	Conditions     []metav1.Condition `json:"conditions,omitempty"`
	StartTime      *metav1.Time       `json:"startTime,omitempty"`
	CompletionTime *metav1.Time       `json:"completionTime,omitempty"`

	// PipelineSpec is the resolved spec, set when the run uses a PipelineRef
	PipelineSpec *PipelineSpec `json:"pipelineSpec,omitempty"`

	SkippedTasks    []SkippedTask    `json:"skippedTasks,omitempty"`
	ChildReferences []ChildReference `json:"childReferences,omitempty"`
}

// +kubebuilder:object:root=true
// +kubebuilder:subresource:status

// PipelineRun is the Schema for the pipelineruns API
type PipelineRun struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   PipelineRunSpec   `json:"spec,omitempty"`
	Status PipelineRunStatus `json:"status,omitempty"`
}

// +kubebuilder:object:root=true

// PipelineRunList contains a list of PipelineRun
type PipelineRunList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []PipelineRun `json:"items"`
}

// Tasks returns the pipeline tasks of the run. The spec resolved into the
// status wins over the inline spec.
func (pr *PipelineRun) Tasks() []PipelineTask {
	if pr.Status.PipelineSpec != nil && len(pr.Status.PipelineSpec.Tasks) > 0 {
		return pr.Status.PipelineSpec.Tasks
	}
	if pr.Spec.PipelineSpec != nil {
		return pr.Spec.PipelineSpec.Tasks
	}
	return nil
}

// IsDone reports whether the run reached a terminal Succeeded condition
func (pr *PipelineRun) IsDone() bool {
	return isDone(pr.Status.Conditions)
}

func isDone(conditions []metav1.Condition) bool {
	cond := meta.FindStatusCondition(conditions, ConditionSucceeded)
	return cond != nil && cond.Status != metav1.ConditionUnknown
}

func init() {
	SchemeBuilder.Register(&PipelineRun{}, &PipelineRunList{})
}
