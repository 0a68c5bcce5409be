package errors

// Error codes for programmatic handling. Codes are stable across releases;
// messages are not.
const (
	// Node codes
	CodeNodeNotFound  = "NODE_NOT_FOUND"
	CodeNodeDuplicate = "NODE_DUPLICATE"
	CodeNodeInvalid   = "NODE_INVALID"

	// Edge codes
	CodeEdgeNotFound  = "EDGE_NOT_FOUND"
	CodeEdgeDuplicate = "EDGE_DUPLICATE"
	CodeEdgeInvalid   = "EDGE_INVALID"
	CodeEdgeSelfLoop  = "EDGE_SELF_LOOP"
	CodeEdgeCycle     = "EDGE_CYCLE"

	// Traversal codes
	CodeDepthExceeded = "TRAVERSAL_DEPTH_EXCEEDED"
	CodePathNotFound  = "PATH_NOT_FOUND"

	// Import codes
	CodeImportTooLarge = "IMPORT_TOO_LARGE"
	CodeImportInvalid  = "IMPORT_INVALID"

	// Generic codes
	CodeValidationFailed = "VALIDATION_FAILED"
	CodeStorageFailure   = "STORAGE_FAILURE"
	CodeInternalError    = "INTERNAL_ERROR"
)
