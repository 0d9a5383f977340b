package kafka

import (
	"context"
	"fmt"

	domain "github.com/vmandke/vending-machine/internal/entity"
	"github.com/vmandke/vending-machine/internal/usecase"
)

// TillFloatHandler applies a remote coin refill to the machine till.
type TillFloatHandler struct {
	Machine *usecase.Machine
}

func NewTillFloatHandler(machine *usecase.Machine) *TillFloatHandler {
	return &TillFloatHandler{Machine: machine}
}

// Handle validates the command at the boundary (the engine only ever sees
// non-negative counts) and counts the coins into the till.
func (h *TillFloatHandler) Handle(ctx context.Context, msg usecase.TillFloatMsg) error {
	for _, n := range []int{msg.N5, msg.N10, msg.N20, msg.N50, msg.N100} {
		if n < 0 {
			return fmt.Errorf("negative coin count in till float: %w", domain.ErrInvalidDenomination)
		}
	}
	h.Machine.LoadTill(domain.Coins{
		N5:   msg.N5,
		N10:  msg.N10,
		N20:  msg.N20,
		N50:  msg.N50,
		N100: msg.N100,
	})
	return nil
}
