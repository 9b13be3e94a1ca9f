package main

import (
	"fmt"
	"os"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/yaml"

	"github.com/kination/runtopo/pkg/builder"
)

// Prints sample_run.yaml: a running PipelineRun and its TaskRuns
func main() {
	pr := builder.New("sample-release").
		AddTask("clone").
		AddTask("lint").
		AddTask("build").
		ParamFromResult("lint", "source", "clone", "path").
		ParamFromResult("build", "revision", "clone", "commit").
		AddTask("deploy").
		WhenResult("deploy", "build", "pushed", "true").
		AddTask("notify").
		ParamFromResult("notify", "report", "lint", "report").
		Skip("deploy", "When Expressions evaluated to false").
		Child("clone", "sample-release-clone").
		Child("lint", "sample-release-lint").
		Child("build", "sample-release-build").
		Condition(metav1.ConditionUnknown, "Running").
		Build()

	docs := []interface{}{
		pr,
		builder.TaskRun(pr.Namespace, "sample-release-clone", "clone", metav1.ConditionTrue, "Succeeded"),
		builder.TaskRun(pr.Namespace, "sample-release-lint", "lint", metav1.ConditionFalse, "Failed"),
		builder.TaskRun(pr.Namespace, "sample-release-build", "build", metav1.ConditionUnknown, "Running"),
	}

	for i, doc := range docs {
		out, err := yaml.Marshal(doc)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error marshaling document %d: %v\n", i, err)
			os.Exit(1)
		}
		if i > 0 {
			fmt.Println("---")
		}
		fmt.Print(string(out))
	}
}
