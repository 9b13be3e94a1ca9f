// Package compiler turns PipelineRun manifests on disk into topology files.
package compiler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
	sigsyaml "sigs.k8s.io/yaml"

	"github.com/kination/runtopo/internal/fetcher"
	"github.com/kination/runtopo/internal/fetcher/taskrun"
	"github.com/kination/runtopo/internal/render"
	"github.com/kination/runtopo/internal/runner"
	"github.com/kination/runtopo/internal/topology"
)

// ManifestSource is a named directory of manifests
type ManifestSource struct {
	Name     string `yaml:"name"`
	Location string `yaml:"location"`
}

// Format is the encoding of a topology file
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatDOT  Format = "dot"
)

// ParseFormat validates a format name
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatJSON, FormatYAML, FormatDOT:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported format %q (json, yaml, dot)", s)
	}
}

// Document is the content of a topology file
type Document struct {
	Namespace   string            `json:"namespace"`
	Name        string            `json:"name"`
	Fingerprint string            `json:"fingerprint"`
	Done        bool              `json:"done"`
	Unresolved  []string          `json:"unresolved,omitempty"`
	Topology    topology.Topology `json:"topology"`
}

// LoadSources reads the source list from a config file
func LoadSources(configPath string) ([]ManifestSource, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config error: %w", err)
	}

	var sources []ManifestSource
	if err := yaml.Unmarshal(data, &sources); err != nil {
		return nil, fmt.Errorf("yaml parse error: %w", err)
	}
	for i, src := range sources {
		if src.Name == "" || src.Location == "" {
			return nil, fmt.Errorf("source %d: name and location are required", i)
		}
	}
	return sources, nil
}

// Compile computes the topology of every PipelineRun found in the configured
// sources and writes one file per run to OutputPath under outputDir.
// TaskRuns found in a source serve as the executions of that source's runs.
func Compile(ctx context.Context, configPath, outputDir string, format Format, out io.Writer) error {
	sources, err := LoadSources(configPath)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}

	for _, src := range sources {
		fmt.Fprintf(out, "📂 Scanning source: %s (%s)\n", src.Name, src.Location)

		manifests, err := scan(src.Location)
		if err != nil {
			return fmt.Errorf("walk error in %s: %w", src.Location, err)
		}
		if len(manifests.PipelineRuns) == 0 {
			fmt.Fprintf(out, "   ⚠️  No PipelineRuns found in %s\n", src.Location)
			continue
		}

		results, err := Topologies(ctx, manifests)
		if err != nil {
			return err
		}

		for _, res := range results {
			rel := OutputPath(src.Name, res.Namespace, res.Name, format)
			path := filepath.Join(outputDir, rel)
			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				return fmt.Errorf("failed to create output dir: %w", err)
			}
			if err := writeFile(path, res, format); err != nil {
				return err
			}
			fmt.Fprintf(out, "   ✨ Compiled: %s/%s -> %s\n", res.Namespace, res.Name, rel)
		}
	}
	return nil
}

// OutputPath is where Compile writes the topology of one run, relative to the
// output directory: <source>/<namespace>/<run>.topology.<format>
func OutputPath(source, namespace, name string, format Format) string {
	return filepath.Join(source, namespace, fmt.Sprintf("%s.topology.%s", name, format))
}

// Topologies computes the topology of each PipelineRun in m, in order, using
// the TaskRuns of m as executions
func Topologies(ctx context.Context, m *Manifests) ([]*runner.RunResult, error) {
	registry := fetcher.NewRegistry()
	if err := registry.Register(taskrun.New(taskrun.NewStaticGetter(m.TaskRuns...))); err != nil {
		return nil, err
	}
	r := runner.NewRunner(fetcher.NewFetcher(registry, fetcher.FetcherConfig{}), runner.RunnerConfig{})

	results := make([]*runner.RunResult, 0, len(m.PipelineRuns))
	for _, pr := range m.PipelineRuns {
		res, err := r.Run(ctx, pr)
		if err != nil {
			return nil, fmt.Errorf("%s/%s: %w", pr.Namespace, pr.Name, err)
		}
		results = append(results, res)
	}
	return results, nil
}

// Encode writes res to w in the given format
func Encode(w io.Writer, res *runner.RunResult, format Format) error {
	if format == FormatDOT {
		out, err := render.DOT(res.Name, res.Topology)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, out)
		return err
	}

	doc := Document{
		Namespace:   res.Namespace,
		Name:        res.Name,
		Fingerprint: fmt.Sprintf("%016x", res.Fingerprint),
		Done:        res.Done,
		Unresolved:  res.Unresolved,
		Topology:    res.Topology,
	}

	var (
		data []byte
		err  error
	)
	switch format {
	case FormatJSON:
		data, err = json.MarshalIndent(doc, "", "  ")
		data = append(data, '\n')
	case FormatYAML:
		data, err = sigsyaml.Marshal(doc)
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
	if err != nil {
		return fmt.Errorf("encode %s: %w", res.Name, err)
	}
	_, err = w.Write(data)
	return err
}

// scan reads every manifest file under dir
func scan(dir string) (*Manifests, error) {
	all := &Manifests{}
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		switch filepath.Ext(d.Name()) {
		case ".yaml", ".yml", ".json":
			m, err := ReadManifestFile(path)
			if err != nil {
				return err
			}
			all.Add(m)
		}
		return nil
	})
	return all, err
}

func writeFile(path string, res *runner.RunResult, format Format) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write error: %w", err)
	}
	if err := Encode(f, res, format); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("write error: %w", err)
	}
	return nil
}
