package domain

// Record is one line-item of labor/task allocation: field name to value.
// Values are scalars (string, int64, float64) plus the record identifier.
type Record map[string]interface{}

// Table is an order-irrelevant collection of records sharing a WBS root and
// a collection identity (live, or a given snapshot timestamp).
type Table []Record

// Clone returns a shallow copy of the record (values are scalars).
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Clone returns a copy of the table with every record cloned, detached
// from the original's maps.
func (t Table) Clone() Table {
	out := make(Table, len(t))
	for i, record := range t {
		out[i] = record.Clone()
	}
	return out
}

// SnapshotInfo is the REST-facing subset of a supplemental document.
type SnapshotInfo struct {
	Timestamp string `json:"timestamp"`
	Name      string `json:"name"`
	Creator   string `json:"creator"`
	AdminOnly bool   `json:"admin_only"`
}
