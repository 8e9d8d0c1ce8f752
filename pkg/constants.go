package shared

const (
	ProjectID = "onalog-project" // Can be overridden by env var in main if needed

	TopicRunSummary = "topic-pipeline-run-summary"

	CollectionPipelineState = "pipeline_state"
	CollectionExecutions    = "executions"
	CollectionRunLocks      = "run_locks"

	// CheckpointDocID is the fixed document holding the parser checkpoint.
	CheckpointDocID = "log_parser"

	// RunLockResource keys the mutual-exclusion lock for pipeline runs.
	RunLockResource = "log-processor"

	DefaultFetchLimit = 100

	DefaultGeminiModel = "gemini-2.0-flash"
)
