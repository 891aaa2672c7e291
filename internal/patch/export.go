package patch

// ExportSchemaVersion is written into every export header so future
// readers can tell what shape the records have.
const ExportSchemaVersion = 1

// ExportHeader is the first line of a JSONL export file. The records that
// follow are AttemptRecords, one per line, in chronological order.
type ExportHeader struct {
	GraftExport   bool  `json:"_graft_export"`
	SchemaVersion int   `json:"schema_version"`
	ExportedAt    int64 `json:"exported_at"`
}
