package topology

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	pipelinev1 "github.com/kination/runtopo/api/v1"
)

var _ = Describe("TranslateExecution", func() {
	DescribeTable("maps the Succeeded condition",
		func(succeeded metav1.ConditionStatus, reason string, expected RunStatus) {
			Expect(TranslateExecution(ExecutionStatus{Succeeded: succeeded, Reason: reason})).To(Equal(expected))
		},
		Entry("succeeded", metav1.ConditionTrue, "Succeeded", RunStatusSucceeded),
		Entry("failed", metav1.ConditionFalse, "Failed", RunStatusFailed),
		Entry("timed out", metav1.ConditionFalse, "TaskRunTimeout", RunStatusFailed),
		Entry("cancelled", metav1.ConditionFalse, "TaskRunCancelled", RunStatusCancelled),
		Entry("pending", metav1.ConditionUnknown, "Pending", RunStatusPending),
		Entry("started", metav1.ConditionUnknown, "Started", RunStatusPending),
		Entry("running", metav1.ConditionUnknown, "Running", RunStatusRunning),
		Entry("no condition", metav1.ConditionStatus(""), "", RunStatus("")),
	)
})

var _ = Describe("TranslateState", func() {
	DescribeTable("maps pipeline states to node statuses",
		func(state string, expected RunStatus) {
			Expect(TranslateState(state)).To(Equal(expected))
		},
		Entry("canceled", string(RuntimeStateCanceled), RunStatusCancelled),
		Entry("canceling", string(RuntimeStateCanceling), RunStatusCancelled),
		Entry("paused", string(RuntimeStatePaused), RunStatusPending),
		Entry("failed", string(RuntimeStateFailed), RunStatusFailed),
		Entry("pending", string(RuntimeStatePending), RunStatusPending),
		Entry("running", string(RuntimeStateRunning), RunStatusInProgress),
		Entry("skipped", string(RuntimeStateSkipped), RunStatusSkipped),
		Entry("succeeded", string(RuntimeStateSucceeded), RunStatusSucceeded),
		Entry("execution running", string(ExecutionStateRunning), RunStatusRunning),
		Entry("execution complete", string(ExecutionStateComplete), RunStatusSucceeded),
		Entry("execution cached", string(ExecutionStateCached), RunStatusSkipped),
		Entry("artifact pending", string(ArtifactStatePending), RunStatusPending),
		Entry("unspecified", string(RuntimeStateUnspecified), RunStatus("")),
		Entry("unknown", "some-unknown-state", RunStatus("")),
		Entry("empty", "", RunStatus("")),
	)
})

var _ = Describe("LowestProgress", func() {
	It("returns the heaviest state", func() {
		Expect(LowestProgress([]RuntimeState{RuntimeStateRunning, RuntimeStateFailed, RuntimeStatePending})).
			To(Equal(RuntimeStateFailed))
		Expect(LowestProgress([]RuntimeState{RuntimeStatePending, RuntimeStateRunning})).
			To(Equal(RuntimeStateRunning))
	})

	It("ranks canceling above canceled", func() {
		Expect(LowestProgress([]RuntimeState{RuntimeStateCanceled, RuntimeStateCanceling})).
			To(Equal(RuntimeStateCanceling))
	})

	It("returns empty for no states", func() {
		Expect(LowestProgress(nil)).To(BeEmpty())
	})
})

var _ = Describe("Annotate", func() {
	It("lets the first record in child reference order win", func() {
		taskMap := map[string]TaskDetails{"t": {PipelineTask: task("t")}}
		later := Resolved(record("a-run", "t", metav1.ConditionFalse, "Failed"))
		later.Index = 1
		executions := ExecutionMap{
			"z-run": Resolved(record("z-run", "t", metav1.ConditionTrue, "Succeeded")),
			"a-run": later,
		}

		Annotate(taskMap, executions)

		Expect(taskMap["t"].RunDetails.RunID).To(Equal("z-run"))
		Expect(taskMap["t"].RunStatus).To(Equal(RunStatusSucceeded))
	})

	It("falls back to name order for records without a position", func() {
		taskMap := map[string]TaskDetails{"a": {PipelineTask: task("a")}}
		executions := ExecutionMap{
			"run-a-retry": Resolved(record("run-a-retry", "a", metav1.ConditionTrue, "Succeeded")),
			"run-a":       Resolved(record("run-a", "a", metav1.ConditionFalse, "Failed")),
		}

		Annotate(taskMap, executions)

		Expect(taskMap["a"].RunDetails.RunID).To(Equal("run-a"))
		Expect(taskMap["a"].RunStatus).To(Equal(RunStatusFailed))
	})

	It("ignores records for unknown tasks", func() {
		taskMap := map[string]TaskDetails{"a": {PipelineTask: task("a")}}
		Annotate(taskMap, ExecutionMap{"x": Resolved(record("x", "other", metav1.ConditionTrue, ""))})
		Expect(taskMap["a"].RunDetails).To(BeNil())
	})

	It("keeps run details when the execution has no condition yet", func() {
		taskMap := map[string]TaskDetails{"a": {PipelineTask: task("a")}}
		Annotate(taskMap, ExecutionMap{"run-a": Resolved(ExecutionRecord{RunID: "run-a", PipelineTaskName: "a"})})
		Expect(taskMap["a"].RunDetails).NotTo(BeNil())
		Expect(taskMap["a"].RunStatus).To(BeEmpty())
	})
})

var _ = Describe("ExecutionMap", func() {
	It("separates resolved records from failed lookups", func() {
		m := ExecutionMap{
			"b": Resolved(record("b", "tb", metav1.ConditionTrue, "")),
			"a": Resolved(record("a", "ta", metav1.ConditionTrue, "")),
			"c": Unresolved(errors.New("boom")),
		}

		records := m.Records()
		Expect(records).To(HaveLen(2))
		Expect(records[0].RunID).To(Equal("a"))
		Expect(records[1].RunID).To(Equal("b"))
		Expect(m.Unresolved()).To(Equal([]string{"c"}))
	})

	It("orders entries by child reference position", func() {
		first := Unresolved(errors.New("timeout"))
		second := Resolved(record("a", "ta", metav1.ConditionTrue, ""))
		second.Index = 1
		third := Unresolved(errors.New("boom"))
		third.Index = 2
		m := ExecutionMap{"z": first, "a": second, "m": third}

		Expect(m.Records()[0].RunID).To(Equal("a"))
		Expect(m.Unresolved()).To(Equal([]string{"z", "m"}))
	})
})

var _ = Describe("Fingerprint", func() {
	It("changes when an execution changes", func() {
		tasks := []pipelinev1.PipelineTask{task("a")}
		before := Fingerprint(tasks, nil, ExecutionMap{"a": Resolved(record("a", "a", metav1.ConditionUnknown, "Running"))})
		after := Fingerprint(tasks, nil, ExecutionMap{"a": Resolved(record("a", "a", metav1.ConditionTrue, "Succeeded"))})
		Expect(after).NotTo(Equal(before))
	})

	It("distinguishes a failed lookup from a missing one", func() {
		tasks := []pipelinev1.PipelineTask{task("a")}
		missing := Fingerprint(tasks, nil, nil)
		failed := Fingerprint(tasks, nil, ExecutionMap{"a": Unresolved(errors.New("timeout"))})
		Expect(failed).NotTo(Equal(missing))
	})
})
