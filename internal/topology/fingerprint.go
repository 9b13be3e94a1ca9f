package topology

import (
	"encoding/json"

	"github.com/cespare/xxhash/v2"

	pipelinev1 "github.com/kination/runtopo/api/v1"
)

type fingerprintEntry struct {
	Ref    string           `json:"ref"`
	Index  int              `json:"index"`
	Record *ExecutionRecord `json:"record,omitempty"`
	Err    string           `json:"err,omitempty"`
}

// Fingerprint hashes everything Build reads. Equal fingerprints mean Build
// would return deep-equal topologies, so callers can skip the recompute.
func Fingerprint(tasks []pipelinev1.PipelineTask, status *pipelinev1.PipelineRunStatus, executions ExecutionMap) uint64 {
	d := xxhash.New()
	enc := json.NewEncoder(d)

	_ = enc.Encode(tasks)

	var skipped []string
	if status != nil {
		for _, s := range status.SkippedTasks {
			skipped = append(skipped, s.Name)
		}
	}
	_ = enc.Encode(skipped)

	for _, k := range executions.keys() {
		result := executions[k]
		entry := fingerprintEntry{Ref: k, Index: result.Index}
		if result.IsResolved() {
			record := result.Record
			entry.Record = &record
		} else {
			entry.Err = result.Err.Error()
		}
		_ = enc.Encode(entry)
	}

	return d.Sum64()
}
