package tictactoe

import (
	"fmt"
	"math/rand/v2"

	"github.com/rocketscienceinc/triki-backend/internal/apperror"
	"github.com/rocketscienceinc/triki-backend/internal/entity"
)

const (
	StarterFixed  = "fixed"
	StarterRandom = "random"
)

// StarterPolicy picks the symbol that moves first on creation and on every reset.
type StarterPolicy func() string

func NewStarterPolicy(name string) (StarterPolicy, error) {
	switch name {
	case StarterFixed, "":
		return FixedStarter, nil
	case StarterRandom:
		return RandomStarter, nil
	default:
		return nil, fmt.Errorf("%w: unknown starter policy %q", apperror.ErrInvalidInput, name)
	}
}

func FixedStarter() string {
	return entity.PlayerX
}

func RandomStarter() string {
	if rand.IntN(2) == 0 { //nolint: gosec // it's ok
		return entity.PlayerX
	}
	return entity.PlayerO
}
