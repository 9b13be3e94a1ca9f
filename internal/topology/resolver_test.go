package topology

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	pipelinev1 "github.com/kination/runtopo/api/v1"
)

var _ = Describe("ResolveEdges", func() {
	It("uses explicit runAfter for every task once any task declares it", func() {
		c := task("c")
		c.Params = []pipelinev1.Param{resultParam("p", "a", "out")}

		edges := ResolveEdges([]pipelinev1.PipelineTask{task("a"), task("b", "a"), c})

		Expect(edges["a"]).To(BeEmpty())
		Expect(edges["b"]).To(Equal([]string{"a"}))
		Expect(edges["c"]).To(BeEmpty(), "c must not get inferred edges in explicit mode")
	})

	It("keeps explicit runAfter entries even when they name unknown tasks", func() {
		edges := ResolveEdges([]pipelinev1.PipelineTask{task("a", "ghost", "ghost")})
		Expect(edges["a"]).To(Equal([]string{"ghost"}))
	})

	It("infers edges from param references when no task declares runAfter", func() {
		b := task("b")
		b.Params = []pipelinev1.Param{resultParam("p", "a", "out")}

		edges := ResolveEdges([]pipelinev1.PipelineTask{task("a"), b})

		Expect(edges["b"]).To(ConsistOf("a"))
		Expect(edges["a"]).To(BeEmpty())
	})

	It("infers edges from when expressions", func() {
		c := task("c")
		c.When = []pipelinev1.WhenExpression{
			{Input: "$(tasks.a.results.flag)", Operator: "in", Values: []string{"$(tasks.b.results.expected)"}},
		}

		edges := ResolveEdges([]pipelinev1.PipelineTask{task("a"), task("b"), c})

		Expect(edges["c"]).To(Equal([]string{"a", "b"}))
	})

	It("scans array and object param values", func() {
		c := task("c")
		c.Params = []pipelinev1.Param{
			{Name: "list", Value: pipelinev1.NewArrayValue("x", "$(tasks.a.results.out)")},
			{Name: "obj", Value: pipelinev1.NewObjectValue(map[string]string{"k": "$(tasks.b.results.out)"})},
		}

		edges := ResolveEdges([]pipelinev1.PipelineTask{task("a"), task("b"), c})

		Expect(edges["c"]).To(Equal([]string{"a", "b"}))
	})

	It("drops references to missing tasks and to the task itself", func() {
		b := task("b")
		b.Params = []pipelinev1.Param{
			resultParam("p1", "ghost", "out"),
			resultParam("p2", "b", "out"),
			resultParam("p3", "a", "out"),
			resultParam("p4", "a", "other"),
		}

		var edges Edges
		Expect(func() {
			edges = ResolveEdges([]pipelinev1.PipelineTask{task("a"), b})
		}).NotTo(Panic())
		Expect(edges["b"]).To(Equal([]string{"a"}))
	})

	It("keeps self references in explicit runAfter", func() {
		edges := ResolveEdges([]pipelinev1.PipelineTask{task("a", "a")})
		Expect(edges["a"]).To(Equal([]string{"a"}))
	})

	It("takes the edges of the first task when names repeat", func() {
		Expect(ResolveEdges([]pipelinev1.PipelineTask{task("x"), task("a", "x"), task("a", "y")})["a"]).
			To(Equal([]string{"x"}))

		first := task("a")
		first.Params = []pipelinev1.Param{resultParam("p", "x", "out")}
		Expect(ResolveEdges([]pipelinev1.PipelineTask{task("x"), first, task("a")})["a"]).
			To(Equal([]string{"x"}))
	})

	It("returns an empty mapping for no tasks", func() {
		Expect(ResolveEdges(nil)).To(BeEmpty())
	})
})

var _ = Describe("References", func() {
	It("extracts every referenced task name once in order", func() {
		t := task("t")
		t.Params = []pipelinev1.Param{
			{Name: "p", Value: pipelinev1.NewStringValue("$(tasks.b.results.x)-$(tasks.a.results.y)-$(tasks.b.status)")},
		}
		t.When = []pipelinev1.WhenExpression{{CEL: "'$(tasks.c.results.z)' == 'ok'"}}

		Expect(References(t)).To(Equal([]string{"b", "a", "c"}))
	})

	It("ignores plain parameter values", func() {
		t := task("t")
		t.Params = []pipelinev1.Param{{Name: "p", Value: pipelinev1.NewStringValue("$(params.url)")}}
		Expect(References(t)).To(BeEmpty())
	})
})
