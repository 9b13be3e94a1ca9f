package v1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// TaskRunSpec defines the desired state of a TaskRun
type TaskRunSpec struct {
	TaskRef *TaskRef `json:"taskRef,omitempty"`
	Params  []Param  `json:"params,omitempty"`
}

// TaskRunStatus is the observed state of a TaskRun
type TaskRunStatus struct {
	Conditions     []metav1.Condition `json:"conditions,omitempty"`
	PodName        string             `json:"podName,omitempty"`
	StartTime      *metav1.Time       `json:"startTime,omitempty"`
	CompletionTime *metav1.Time       `json:"completionTime,omitempty"`
}

// +kubebuilder:object:root=true
// +kubebuilder:subresource:status

// TaskRun is the execution of one pipeline task
type TaskRun struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   TaskRunSpec   `json:"spec,omitempty"`
	Status TaskRunStatus `json:"status,omitempty"`
}

// +kubebuilder:object:root=true

// TaskRunList contains a list of TaskRun
type TaskRunList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []TaskRun `json:"items"`
}

// IsDone reports whether the TaskRun reached a terminal Succeeded condition
func (tr *TaskRun) IsDone() bool {
	return isDone(tr.Status.Conditions)
}

func init() {
	SchemeBuilder.Register(&TaskRun{}, &TaskRunList{})
}
