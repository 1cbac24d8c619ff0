package constants

// ============================================================================
// REQUEST VALIDATION ERRORS
// ============================================================================

const (
	ErrInvalidJSONShort = "Invalid JSON"
	ErrMethodNotAllowed = "Method Not Allowed"
	ErrMissingSheetName = "sheetName is required"
	ErrMissingSheets    = "at least one sheet name is required in the sheets parameter"
	ErrInvalidSheetID   = "Invalid sheet id"
	ErrMissingDates     = "startDate and endDate are required (YYYY-MM-DD)"
	ErrInvalidDate      = "Dates must use the YYYY-MM-DD format"
	ErrDateOrder        = "startDate must not be after endDate"
)

// ============================================================================
// LOOKUP ERRORS
// ============================================================================

const (
	ErrTemplateNotFound = "No template file found for the requested sheet"
	ErrSheetNotFound    = "Sheet not found"
	ErrListTemplates    = "Failed to list templates"
	ErrListSheets       = "Failed to list sheet names"
)

// ============================================================================
// GENERATION ERRORS
// ============================================================================

const (
	ErrGenerationFailed = "internal generation error"
	ErrRequestCancelled = "The request was cancelled before the report was ready"
)
