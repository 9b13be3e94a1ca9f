package topology

import (
	"sort"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// TranslateExecution maps the Succeeded condition of an execution to a node
// status. It returns "" while the execution has not reported a condition.
func TranslateExecution(status ExecutionStatus) RunStatus {
	switch status.Succeeded {
	case metav1.ConditionTrue:
		return RunStatusSucceeded
	case metav1.ConditionFalse:
		if isCancelReason(status.Reason) {
			return RunStatusCancelled
		}
		return RunStatusFailed
	case metav1.ConditionUnknown:
		switch status.Reason {
		case "Pending", "Started", "PodPending", "ResolvingTaskRef":
			return RunStatusPending
		case "TaskRunCancelled", "Cancelled":
			// still tearing down
			return RunStatusCancelled
		default:
			return RunStatusRunning
		}
	default:
		return ""
	}
}

func isCancelReason(reason string) bool {
	switch reason {
	case "TaskRunCancelled", "Cancelled", "CancelledRunFinally", "StoppedRunFinally":
		return true
	}
	return false
}

// RuntimeState is the state of a task as reported by the pipelines API
type RuntimeState string

const (
	RuntimeStateUnspecified RuntimeState = "RUNTIME_STATE_UNSPECIFIED"
	RuntimeStatePending     RuntimeState = "PENDING"
	RuntimeStateRunning     RuntimeState = "RUNNING"
	RuntimeStateSucceeded   RuntimeState = "SUCCEEDED"
	RuntimeStateSkipped     RuntimeState = "SKIPPED"
	RuntimeStateFailed      RuntimeState = "FAILED"
	RuntimeStateCanceling   RuntimeState = "CANCELING"
	RuntimeStateCanceled    RuntimeState = "CANCELED"
	RuntimeStatePaused      RuntimeState = "PAUSED"
)

// ExecutionState is the last known state of an ML metadata execution
type ExecutionState string

const (
	ExecutionStateNew      ExecutionState = "New"
	ExecutionStateRunning  ExecutionState = "Running"
	ExecutionStateComplete ExecutionState = "Complete"
	ExecutionStateCanceled ExecutionState = "Canceled"
	ExecutionStateFailed   ExecutionState = "Failed"
	ExecutionStateCached   ExecutionState = "Cached"
)

// ArtifactState is the state of an ML metadata artifact
type ArtifactState string

const (
	ArtifactStatePending           ArtifactState = "Pending"
	ArtifactStateLive              ArtifactState = "Live"
	ArtifactStateMarkedForDeletion ArtifactState = "MarkedForDeletion"
	ArtifactStateDeleted           ArtifactState = "Deleted"
)

// TranslateState maps a runtime, execution or artifact state to a node
// status. Unknown states map to "".
func TranslateState(state string) RunStatus {
	switch state {
	case string(ExecutionStateCanceled), string(RuntimeStateCanceled), string(RuntimeStateCanceling):
		return RunStatusCancelled
	case string(ExecutionStateRunning):
		return RunStatusRunning
	case string(ExecutionStateFailed), string(RuntimeStateFailed):
		return RunStatusFailed
	case string(ArtifactStatePending), string(RuntimeStatePaused), string(RuntimeStatePending):
		return RunStatusPending
	case string(RuntimeStateRunning):
		return RunStatusInProgress
	case string(ExecutionStateComplete), string(RuntimeStateSucceeded):
		return RunStatusSucceeded
	case string(ExecutionStateCached), string(RuntimeStateSkipped):
		return RunStatusSkipped
	default:
		return ""
	}
}

func stateWeight(state RuntimeState) int {
	switch state {
	case RuntimeStatePending:
		return 10
	case RuntimeStateRunning:
		return 20
	case RuntimeStateSkipped:
		return 30
	case RuntimeStatePaused:
		return 40
	case RuntimeStateCanceling:
		return 59
	case RuntimeStateCanceled:
		return 51
	case RuntimeStateSucceeded:
		return 60
	case RuntimeStateFailed:
		return 70
	default:
		return 0
	}
}

// LowestProgress picks the state that represents a task reported by several
// details (the task and its driver). The heaviest state wins, so a failure
// anywhere shows as a failure.
func LowestProgress(states []RuntimeState) RuntimeState {
	if len(states) == 0 {
		return ""
	}
	sorted := append([]RuntimeState(nil), states...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return stateWeight(sorted[i]) > stateWeight(sorted[j])
	})
	return sorted[0]
}
