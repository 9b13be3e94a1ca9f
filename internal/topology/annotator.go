package topology

// Annotate attaches execution records to the tasks of taskMap that are not
// skipped, updating the map in place. When several records name the same
// pipeline task the first one in child reference order wins. Unresolved
// lookups leave their task without run details.
func Annotate(taskMap map[string]TaskDetails, executions ExecutionMap) {
	records := executions.Records()
	if len(records) == 0 {
		return
	}

	for name, details := range taskMap {
		if details.Skipped {
			continue
		}

		record, ok := firstRecordFor(records, name)
		if !ok {
			continue
		}

		details.RunDetails = &record
		details.RunStatus = TranslateExecution(record.Status)
		taskMap[name] = details
	}
}

func firstRecordFor(records []ExecutionRecord, taskName string) (ExecutionRecord, bool) {
	for _, r := range records {
		if r.PipelineTaskName == taskName {
			return r, true
		}
	}
	return ExecutionRecord{}, false
}
