package topology

import (
	"errors"
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	pipelinev1 "github.com/kination/runtopo/api/v1"
)

var _ = Describe("Build", func() {
	It("returns the empty topology without tasks", func() {
		topo := Build(nil, nil, nil)
		Expect(topo.TaskMap).NotTo(BeNil())
		Expect(topo.TaskMap).To(BeEmpty())
		Expect(topo.Nodes).NotTo(BeNil())
		Expect(topo.Nodes).To(BeEmpty())

		Expect(Build([]pipelinev1.PipelineTask{}, &pipelinev1.PipelineRunStatus{}, ExecutionMap{})).To(Equal(Empty()))
	})

	It("keeps the input order of tasks for any permutation", func() {
		names := []string{"a", "b", "c", "d", "e", "f"}
		rng := rand.New(rand.NewSource(7))

		for i := 0; i < 20; i++ {
			rng.Shuffle(len(names), func(i, j int) { names[i], names[j] = names[j], names[i] })

			tasks := make([]pipelinev1.PipelineTask, 0, len(names))
			for j, n := range names {
				t := task(n)
				if j > 0 {
					t.Params = []pipelinev1.Param{resultParam("p", names[j-1], "out")}
				}
				tasks = append(tasks, t)
			}

			topo := Build(tasks, nil, nil)
			ids := make([]string, 0, len(topo.Nodes))
			for _, n := range topo.Nodes {
				ids = append(ids, n.ID)
			}
			Expect(ids).To(Equal(names))
			Expect(topo.Nodes).To(HaveLen(len(topo.TaskMap)))
		}
	})

	It("sets RunAfter to nil when a task has no predecessors", func() {
		topo := Build([]pipelinev1.PipelineTask{task("a"), task("b", "a")}, nil, nil)

		Expect(topo.Nodes[0].RunAfter).To(BeNil())
		Expect(topo.Nodes[1].RunAfter).To(Equal([]string{"a"}))
		Expect(topo.Nodes[1].Label).To(Equal("b"))
	})

	It("marks skipped tasks and keeps them skipped despite execution records", func() {
		status := &pipelinev1.PipelineRunStatus{
			SkippedTasks: []pipelinev1.SkippedTask{{Name: "b", Reason: "When Expressions evaluated to false"}},
		}
		executions := ExecutionMap{
			"run-b": Resolved(record("run-b", "b", metav1.ConditionTrue, "Succeeded")),
		}

		topo := Build([]pipelinev1.PipelineTask{task("a"), task("b")}, status, executions)

		b := topo.TaskMap["b"]
		Expect(b.Skipped).To(BeTrue())
		Expect(b.RunStatus).To(Equal(RunStatusSkipped))
		Expect(b.RunDetails).To(BeNil())
		Expect(topo.Nodes[1].Status).To(Equal(RunStatusSkipped))

		Expect(topo.TaskMap["a"].Skipped).To(BeFalse())
		Expect(topo.TaskMap["a"].RunStatus).To(BeEmpty())
	})

	It("annotates resolved tasks and leaves unresolved ones without details", func() {
		executions := ExecutionMap{
			"ref1": Unresolved(errors.New("connection refused")),
			"ref2": Resolved(record("ref2", "b", metav1.ConditionFalse, "Failed")),
		}

		var topo Topology
		Expect(func() {
			topo = Build([]pipelinev1.PipelineTask{task("a"), task("b")}, nil, executions)
		}).NotTo(Panic())

		Expect(topo.TaskMap["a"].RunDetails).To(BeNil())
		Expect(topo.Nodes[0].Status).To(BeEmpty())

		Expect(topo.TaskMap["b"].RunDetails).NotTo(BeNil())
		Expect(topo.TaskMap["b"].RunDetails.RunID).To(Equal("ref2"))
		Expect(topo.Nodes[1].Status).To(Equal(RunStatusFailed))
	})

	It("keeps the first task when names repeat", func() {
		first := task("a")
		first.TaskRef = &pipelinev1.TaskRef{Name: "first"}
		second := task("a")
		second.TaskRef = &pipelinev1.TaskRef{Name: "second"}

		topo := Build([]pipelinev1.PipelineTask{first, second}, nil, nil)

		Expect(topo.Nodes).To(HaveLen(1))
		Expect(topo.TaskMap).To(HaveLen(1))
		Expect(topo.TaskMap["a"].TaskRef.Name).To(Equal("first"))
	})

	It("draws the edges of the first task when names repeat", func() {
		explicit := Build([]pipelinev1.PipelineTask{task("x"), task("a", "x"), task("a")}, nil, nil)

		Expect(explicit.Nodes).To(HaveLen(2))
		Expect(explicit.TaskMap["a"].RunAfter).To(Equal([]string{"x"}))
		Expect(explicit.Nodes[1].RunAfter).To(Equal([]string{"x"}))

		inferred := task("a")
		inferred.Params = []pipelinev1.Param{resultParam("in", "x", "out")}
		topo := Build([]pipelinev1.PipelineTask{task("x"), inferred, task("a")}, nil, nil)

		Expect(topo.Nodes[1].ID).To(Equal("a"))
		Expect(topo.Nodes[1].RunAfter).To(Equal([]string{"x"}))
	})

	It("does not share memory with its inputs", func() {
		tasks := []pipelinev1.PipelineTask{task("a"), task("b", "a")}
		topo := Build(tasks, nil, nil)

		tasks[1].RunAfter[0] = "changed"
		Expect(topo.TaskMap["b"].RunAfter).To(Equal([]string{"a"}))
		Expect(topo.Nodes[1].RunAfter).To(Equal([]string{"a"}))
	})

	It("returns deep-equal output for identical inputs", func() {
		c := task("c")
		c.When = []pipelinev1.WhenExpression{{Input: "$(tasks.a.results.ok)", Operator: "in", Values: []string{"true"}}}
		tasks := []pipelinev1.PipelineTask{task("a"), task("b"), c}
		status := &pipelinev1.PipelineRunStatus{SkippedTasks: []pipelinev1.SkippedTask{{Name: "b"}}}
		executions := ExecutionMap{
			"run-a": Resolved(record("run-a", "a", metav1.ConditionTrue, "Succeeded")),
			"run-c": Resolved(record("run-c", "c", metav1.ConditionUnknown, "Running")),
		}

		first := Build(tasks, status, executions)
		second := Build(tasks, status, executions)

		Expect(second).To(BeComparableTo(first))
		Expect(Fingerprint(tasks, status, executions)).To(Equal(Fingerprint(tasks, status, executions)))
	})
})
