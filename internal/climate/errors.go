package climate

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingField is returned when a required column is absent from an upload.
	ErrMissingField = errors.New("missing field")
	// ErrInvalidRow is returned when a data row cannot be turned into a Reading.
	ErrInvalidRow = errors.New("invalid row")
	// ErrEmptyDataset is returned for uploads without data rows.
	ErrEmptyDataset = errors.New("dataset has no readings")
	// ErrUnknownCity is returned when a city has no readings in the dataset.
	ErrUnknownCity = errors.New("city not found in dataset")
	// ErrNoBaseline is returned when no historical rows exist for the live month.
	ErrNoBaseline = errors.New("no baseline data")
)

// MissingFieldError names the required column that was not found.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing field %q", e.Field)
}

func (e *MissingFieldError) Unwrap() error { return ErrMissingField }

// RowError pins a parsing failure to a line of the uploaded file.
type RowError struct {
	Line int
	Err  error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *RowError) Unwrap() []error { return []error{ErrInvalidRow, e.Err} }
