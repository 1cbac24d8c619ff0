package constants

const ServiceName = "Excel Report Generator"

// Content Types
const (
	ContentTypeJSON        = "application/json"
	ContentTypeOctetStream = "application/octet-stream"
)

// Date formats
const (
	DateFormat    = "2006-01-02"
	DateFormatISO = "2006-01-02T15:04:05"
)
