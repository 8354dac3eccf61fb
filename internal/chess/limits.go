package chess

import (
	"errors"
	"fmt"

	"github.com/park285/blindfold-chess/internal/chess/uci"
)

const (
	MinDepth     = 5
	MaxDepth     = 30
	DefaultDepth = 10
)

// ErrDepthOutOfRange is wrapped by ValidateDepth.
var ErrDepthOutOfRange = errors.New("search depth out of range")

func ValidateDepth(depth int) error {
	if depth < MinDepth || depth > MaxDepth {
		return fmt.Errorf("%w: %d not in [%d,%d]", ErrDepthOutOfRange, depth, MinDepth, MaxDepth)
	}
	return nil
}

// LimitsForDepth builds a depth-only search. There is no move time or node
// cap: the engine is asked for a fixed depth and answers when it is done.
func LimitsForDepth(depth int) (uci.Limits, error) {
	if err := ValidateDepth(depth); err != nil {
		return uci.Limits{}, err
	}
	return uci.Limits{Depth: depth}, nil
}
