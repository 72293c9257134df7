package constants

// SourceStatus is the canonical status for one source file within a run.
type SourceStatus string

// Stable values (store these exact strings in the run history).
const (
	SourceUploaded   SourceStatus = "UPLOADED"   // registered, not yet started
	SourceProcessing SourceStatus = "PROCESSING" // extraction in progress
	SourceDone       SourceStatus = "DONE"       // instructions emitted
	SourceFailed     SourceStatus = "FAILED"     // extraction failed, rest of run unaffected
)

// RunStatus is the overall status of one batch run.
type RunStatus string

const (
	RunStatusRunning RunStatus = "RUNNING"
	RunStatusApplied RunStatus = "APPLIED" // updates applied and workbook saved
	RunStatusFailed  RunStatus = "FAILED"  // validation or save failure
)
