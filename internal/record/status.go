package record

// Recompute derives the record status from the current student list. It runs
// after every mutation and on every load. A Zipped record keeps its status;
// only a confirmed edit (RegisterEdit) can regress it.
func (r *MonitoringRecord) Recompute() Status {
	if r.Status == StatusZipped {
		return StatusZipped
	}
	if len(r.Students) == 0 {
		r.Status = StatusUnmonitored
		return r.Status
	}
	for _, student := range r.Students {
		if !student.Ready() {
			r.Status = StatusUnmonitored
			return r.Status
		}
	}
	r.Status = StatusMonitored
	return r.Status
}

// ReadyToArchive reports whether the record passes all three archive gates:
// every student row ready, and a non-empty comment unless the operator
// overrides the comment check.
func (r *MonitoringRecord) ReadyToArchive(allowEmptyComment bool) bool {
	if len(r.Students) == 0 {
		return false
	}
	for _, student := range r.Students {
		if !student.Ready() {
			return false
		}
	}
	if !allowEmptyComment && r.Comment == "" {
		return false
	}
	return true
}

// RegisterEdit applies the edit-regression rule: touching the comment or
// rating flags of a Monitored or Zipped record, once the operator confirms,
// drops the status back to Unmonitored. A regressed Zipped record loses its
// archive metadata, forcing a fresh archive for the new content. The return
// value reports whether the caller should apply the pending edit; a declined
// confirmation leaves the record untouched.
func (r *MonitoringRecord) RegisterEdit(confirm func() bool) bool {
	switch r.Status {
	case StatusMonitored, StatusZipped:
		if confirm != nil && !confirm() {
			return false
		}
		if r.Status == StatusZipped {
			r.ClearZipMetadata()
		}
		r.Status = StatusUnmonitored
		return true
	default:
		return true
	}
}

// MarkZipped transitions a record to Zipped with the metadata of the archive
// just produced. Callers must only invoke this after a successful archive
// run; ReadyToArchive gates the attempt itself.
func (r *MonitoringRecord) MarkZipped(meta ZipMetadata) {
	r.Status = StatusZipped
	r.Zip = meta
}
