package topology

import (
	pipelinev1 "github.com/kination/runtopo/api/v1"
)

// Build produces the topology of a run from its tasks, its status and the
// execution records fetched for its child references. Nodes keep the order of
// tasks. Build never fails: missing inputs degrade to less detail.
func Build(tasks []pipelinev1.PipelineTask, status *pipelinev1.PipelineRunStatus, executions ExecutionMap) Topology {
	if len(tasks) == 0 {
		return Empty()
	}

	edges := ResolveEdges(tasks)
	skipped := skippedTasks(status)

	taskMap := make(map[string]TaskDetails, len(tasks))
	order := make([]string, 0, len(tasks))
	for i := range tasks {
		task := &tasks[i]
		// Names are unique within a run; keep the first if they are not
		if _, exists := taskMap[task.Name]; exists {
			continue
		}

		details := TaskDetails{PipelineTask: *task.DeepCopy()}
		if _, ok := skipped[task.Name]; ok {
			details.Skipped = true
			details.RunStatus = RunStatusSkipped
		}
		taskMap[task.Name] = details
		order = append(order, task.Name)
	}

	Annotate(taskMap, executions)

	nodes := make([]Node, 0, len(order))
	for _, name := range order {
		nodes = append(nodes, newNode(taskMap[name], edges[name]))
	}

	return Topology{TaskMap: taskMap, Nodes: nodes}
}

func newNode(details TaskDetails, runAfter []string) Node {
	node := Node{
		ID:     details.Name,
		Label:  details.Name,
		Status: details.RunStatus,
	}
	if len(runAfter) > 0 {
		node.RunAfter = append([]string(nil), runAfter...)
	}
	return node
}

func skippedTasks(status *pipelinev1.PipelineRunStatus) map[string]struct{} {
	if status == nil || len(status.SkippedTasks) == 0 {
		return nil
	}
	skipped := make(map[string]struct{}, len(status.SkippedTasks))
	for _, s := range status.SkippedTasks {
		skipped[s.Name] = struct{}{}
	}
	return skipped
}
