package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyMessage is returned when a turn carries no message outside follow-up mode.
var ErrEmptyMessage = errors.New("empty message")

// ErrItemNotFound is returned when a catalog id does not exist.
var ErrItemNotFound = errors.New("catalog item not found")

// ErrUnknownSlot is returned by the follow-up API for slot names it cannot ask about.
var ErrUnknownSlot = errors.New("unknown slot")

// ErrCapabilityUnavailable signals that a completion or embedding backend could not serve a call.
// The engine never surfaces it to guests; adapters return it so callers can degrade.
var ErrCapabilityUnavailable = errors.New("capability unavailable")

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// CatalogValidationError lists every problem found while validating a catalog.
type CatalogValidationError struct {
	Problems []string
}

func (e *CatalogValidationError) Error() string {
	return fmt.Sprintf("invalid catalog (%d problems): %s", len(e.Problems), strings.Join(e.Problems, "; "))
}

// ErrUnknownCategory is returned when a menu is requested for a category outside the catalog vocabulary.
var ErrUnknownCategory = errors.New("unknown category")

// ErrNoMatchingRoom is returned when the group rule leaves no room for the party.
var ErrNoMatchingRoom = errors.New("no room fits the party")
