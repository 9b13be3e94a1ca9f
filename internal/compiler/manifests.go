package compiler

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	utilyaml "k8s.io/apimachinery/pkg/util/yaml"

	pipelinev1 "github.com/kination/runtopo/api/v1"
)

// Manifests holds the PipelineRuns and TaskRuns decoded from manifest files
type Manifests struct {
	PipelineRuns []*pipelinev1.PipelineRun
	TaskRuns     []*pipelinev1.TaskRun
}

// Add appends the runs of other
func (m *Manifests) Add(other *Manifests) {
	m.PipelineRuns = append(m.PipelineRuns, other.PipelineRuns...)
	m.TaskRuns = append(m.TaskRuns, other.TaskRuns...)
}

// ReadManifests decodes every YAML or JSON document of r.
// Documents of other kinds are ignored. Objects without a namespace are put
// in "default".
func ReadManifests(r io.Reader) (*Manifests, error) {
	dec := utilyaml.NewYAMLOrJSONDecoder(bufio.NewReader(r), 4096)
	m := &Manifests{}

	for i := 0; ; i++ {
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				return m, nil
			}
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
		if len(raw) == 0 || string(raw) == "null" {
			continue
		}

		var meta metav1.TypeMeta
		if err := json.Unmarshal(raw, &meta); err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}

		switch meta.Kind {
		case pipelinev1.PipelineRunKind:
			pr := &pipelinev1.PipelineRun{}
			if err := json.Unmarshal(raw, pr); err != nil {
				return nil, fmt.Errorf("document %d: decode PipelineRun: %w", i, err)
			}
			if pr.Namespace == "" {
				pr.Namespace = "default"
			}
			m.PipelineRuns = append(m.PipelineRuns, pr)
		case pipelinev1.TaskRunKind:
			tr := &pipelinev1.TaskRun{}
			if err := json.Unmarshal(raw, tr); err != nil {
				return nil, fmt.Errorf("document %d: decode TaskRun: %w", i, err)
			}
			if tr.Namespace == "" {
				tr.Namespace = "default"
			}
			m.TaskRuns = append(m.TaskRuns, tr)
		}
	}
}

// ReadManifestFile decodes the manifest file at path
func ReadManifestFile(path string) (*Manifests, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, err := ReadManifests(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}
