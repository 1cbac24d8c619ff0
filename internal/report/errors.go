package report

import (
	"errors"
	"fmt"
)

var (
	// ErrTemplateNotFound means no candidate file passed existence checks.
	ErrTemplateNotFound = errors.New("template not found")

	// ErrTemplateUnreadable means a located template could not be read or opened.
	ErrTemplateUnreadable = errors.New("template unreadable")

	// ErrEmptyOutput means the workbook serialized to zero bytes.
	ErrEmptyOutput = errors.New("generated workbook is empty")

	// ErrSheetNotFound is returned by catalogs for unknown sheet ids.
	ErrSheetNotFound = errors.New("sheet not found")

	// ErrNotReadOnly rejects mapping SQL that is not a query.
	ErrNotReadOnly = errors.New("only read-only statements are allowed")

	ErrInvalidCellRef = errors.New("invalid cell reference")
)

// TemplateNotFoundError records what was looked for.
type TemplateNotFoundError struct {
	Name       string
	Normalized string
}

func (e *TemplateNotFoundError) Error() string {
	return fmt.Sprintf("template not found for sheet %q (normalized %q)", e.Name, e.Normalized)
}

func (e *TemplateNotFoundError) Unwrap() error {
	return ErrTemplateNotFound
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrTemplateNotFound) || errors.Is(err, ErrSheetNotFound)
}

// BadSQLError marks a statement the data store rejected at parse or
// name-resolution time. Cause is the driver's most specific message.
type BadSQLError struct {
	Cause string
	Err   error
}

func (e *BadSQLError) Error() string {
	return "bad SQL grammar: " + e.Cause
}

func (e *BadSQLError) Unwrap() error {
	return e.Err
}
