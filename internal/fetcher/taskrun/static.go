package taskrun

import (
	"context"
	"fmt"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"sigs.k8s.io/controller-runtime/pkg/client"

	pipelinev1 "github.com/kination/runtopo/api/v1"
)

// StaticGetter serves TaskRuns from memory, for offline rendering of manifests
type StaticGetter struct {
	runs map[client.ObjectKey]*pipelinev1.TaskRun
}

// NewStaticGetter indexes the given TaskRuns by namespace and name
func NewStaticGetter(runs ...*pipelinev1.TaskRun) *StaticGetter {
	g := &StaticGetter{runs: make(map[client.ObjectKey]*pipelinev1.TaskRun, len(runs))}
	for _, tr := range runs {
		g.Add(tr)
	}
	return g
}

// Add indexes a TaskRun, replacing any previous one with the same key
func (g *StaticGetter) Add(tr *pipelinev1.TaskRun) {
	g.runs[client.ObjectKeyFromObject(tr)] = tr
}

// Len returns the number of indexed TaskRuns
func (g *StaticGetter) Len() int {
	return len(g.runs)
}

// Get implements Getter
func (g *StaticGetter) Get(_ context.Context, key client.ObjectKey, obj client.Object, _ ...client.GetOption) error {
	out, ok := obj.(*pipelinev1.TaskRun)
	if !ok {
		return fmt.Errorf("static getter only serves TaskRuns, got %T", obj)
	}
	tr, ok := g.runs[key]
	if !ok {
		return apierrors.NewNotFound(pipelinev1.GroupVersion.WithResource("taskruns").GroupResource(), key.Name)
	}
	tr.DeepCopyInto(out)
	return nil
}
