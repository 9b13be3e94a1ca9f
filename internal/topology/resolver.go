package topology

import (
	"regexp"

	pipelinev1 "github.com/kination/runtopo/api/v1"
)

// taskReference matches $(tasks.<name>.<...>) and captures <name>
var taskReference = regexp.MustCompile(`\$\(\s*tasks\.([^.\s()\[\]]+)\.`)

// Edges maps a task name to its predecessors, in first-seen order
type Edges map[string][]string

// ResolveEdges computes the predecessors of every task.
//
// When any task declares RunAfter, explicit dependencies are authoritative for
// the whole run: each task gets exactly its own RunAfter and nothing is
// inferred, even for tasks that declare none. Otherwise predecessors are
// inferred from result references in params and when expressions; references
// to unknown tasks and to the task itself are dropped. When a name repeats,
// only its first task contributes edges.
func ResolveEdges(tasks []pipelinev1.PipelineTask) Edges {
	edges := make(Edges, len(tasks))

	if hasExplicitRunAfter(tasks) {
		for _, task := range tasks {
			if _, seen := edges[task.Name]; seen {
				continue
			}
			edges[task.Name] = uniq(task.RunAfter)
		}
		return edges
	}

	known := make(map[string]struct{}, len(tasks))
	for _, task := range tasks {
		known[task.Name] = struct{}{}
	}

	for _, task := range tasks {
		if _, seen := edges[task.Name]; seen {
			continue
		}
		var preds []string
		for _, ref := range References(task) {
			if ref == task.Name {
				continue
			}
			if _, ok := known[ref]; ok {
				preds = append(preds, ref)
			}
		}
		edges[task.Name] = preds
	}
	return edges
}

// References returns the task names referenced by a task's params and when
// expressions, deduplicated in order of appearance
func References(task pipelinev1.PipelineTask) []string {
	var refs []string
	for _, param := range task.Params {
		for _, s := range param.Value.Strings() {
			refs = append(refs, referencedTasks(s)...)
		}
	}
	for _, when := range task.When {
		refs = append(refs, referencedTasks(when.Input)...)
		for _, v := range when.Values {
			refs = append(refs, referencedTasks(v)...)
		}
		refs = append(refs, referencedTasks(when.CEL)...)
	}
	return uniq(refs)
}

func referencedTasks(s string) []string {
	if s == "" {
		return nil
	}
	matches := taskReference.FindAllStringSubmatch(s, -1)
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, m[1])
	}
	return names
}

func hasExplicitRunAfter(tasks []pipelinev1.PipelineTask) bool {
	for _, task := range tasks {
		if len(task.RunAfter) > 0 {
			return true
		}
	}
	return false
}

// uniq drops repeated names, keeping the first occurrence. Returns nil for
// an empty result.
func uniq(names []string) []string {
	if len(names) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
