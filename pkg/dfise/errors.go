package dfise

import (
	"errors"
	"fmt"
)

var (
	// ErrSectionNotFound is matched by every *SectionNotFoundError.
	ErrSectionNotFound = errors.New("section not found")

	// ErrNoChannelsResolved is returned when none of the requested channels
	// are declared in the datasets list.
	ErrNoChannelsResolved = errors.New("no requested channels resolved")

	// ErrEmptyDataBlock is returned when the Data block holds fewer literals
	// than one full row.
	ErrEmptyDataBlock = errors.New("data block holds no complete row")
)

// SectionNotFoundError reports a marker or bracket span that could not be
// located. Section is "Info", "datasets" or "Data".
type SectionNotFoundError struct {
	Section string
}

func (e *SectionNotFoundError) Error() string {
	return fmt.Sprintf("section %q not found", e.Section)
}

// Is lets errors.Is(err, ErrSectionNotFound) match any section.
func (e *SectionNotFoundError) Is(target error) bool {
	return target == ErrSectionNotFound
}

// ExtractError ties an extraction failure to the document it came from.
type ExtractError struct {
	Document string
	Err      error
}

func (e *ExtractError) Error() string {
	if e.Document == "" {
		return "dfise: " + e.Err.Error()
	}
	return fmt.Sprintf("dfise: %s: %v", e.Document, e.Err)
}

func (e *ExtractError) Unwrap() error {
	return e.Err
}
