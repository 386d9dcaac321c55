package mortontable

import "errors"

var (
	// ErrInvalidBoundary is returned by constructors given a Region whose
	// minimum corner exceeds its maximum corner on either axis.
	ErrInvalidBoundary = errors.New("mortontable: invalid boundary region")

	// ErrOutOfBounds is returned by mutations whose position lies outside
	// the index bounds.
	ErrOutOfBounds = errors.New("mortontable: position out of bounds")

	// ErrNotFound is returned by Remove when no entry exists at the given
	// position.
	ErrNotFound = errors.New("mortontable: no entry at position")

	// ErrDuplicate is returned by mutations that would store a second entry
	// at an occupied position.
	ErrDuplicate = errors.New("mortontable: position already occupied")
)
