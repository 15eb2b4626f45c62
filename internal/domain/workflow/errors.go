package workflow

import (
	"errors"
	"fmt"

	"github.com/garyjia/trip-finance/internal/domain/apperr"
)

var (
	// ErrInvalidTransition is returned when no transition exists for a trigger
	ErrInvalidTransition = fmt.Errorf("%w: invalid workflow transition", apperr.ErrConflict)

	// ErrUnknownStep is returned when a step id is not in the registry
	ErrUnknownStep = errors.New("unknown workflow step")
)
