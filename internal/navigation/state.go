package navigation

import "errors"

// State is a stage of the navigation lifecycle.
type State int

const (
	StateNoProject State = iota // No inspection file loaded.
	StateIdle                   // An object is displayed.
	StateLoading                // An object switch is in flight.
)

// String returns the snake_case name of the state.
func (s State) String() string {
	switch s {
	case StateNoProject:
		return "no_project"
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	default:
		return "unknown"
	}
}

// Direction is the sense of a relative switch.
type Direction int

// Switch directions.
const (
	Next     Direction = 1
	Previous Direction = -1
)

// String returns "next" or "previous".
func (d Direction) String() string {
	if d == Previous {
		return "previous"
	}
	return "next"
}

// Errors returned by the controller. Refused transitions leave the state
// unchanged.
var (
	ErrNoProject       = errors.New("no inspection file loaded")
	ErrNoStarred       = errors.New("no starred objects")
	ErrSubsetNoOverlap = errors.New("no subset object found in the inspection file")
	ErrNoSubset        = errors.New("no subset loaded")
	ErrIDNotFound      = errors.New("ID not found")
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrInvalidID       = errors.New("invalid ID")
	ErrCancelled       = errors.New("object loading cancelled")
	ErrUnknownFlag     = errors.New("unknown flag")
	ErrStaleObject     = errors.New("object belongs to a closed inspection file")
)
