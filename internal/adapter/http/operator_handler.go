package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vmandke/vending-machine/internal/usecase"
)

// OperatorHandler serves the till-management surface used by the machine's
// operator tooling. Authorization happens in the JWT middleware; every
// mutation still goes through the engine lock.
type OperatorHandler struct {
	machine *usecase.Machine
}

func NewOperatorHandler(machine *usecase.Machine) *OperatorHandler {
	return &OperatorHandler{machine: machine}
}

// Till handles GET /v1/machine/till.
func (h *OperatorHandler) Till(c *gin.Context) {
	till := h.machine.TillSnapshot()
	c.JSON(http.StatusOK, gin.H{"till": till, "total": till.Total()})
}

// LoadFloat handles POST /v1/machine/till/float: a coin refill for the
// change reserve.
func (h *OperatorHandler) LoadFloat(c *gin.Context) {
	coins, err := bindCoins(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	till := h.machine.LoadTill(coins)
	c.JSON(http.StatusOK, gin.H{"till": till, "total": till.Total()})
}

// Collect handles POST /v1/machine/till/collect: empties the till.
func (h *OperatorHandler) Collect(c *gin.Context) {
	collected := h.machine.CollectTill()
	c.JSON(http.StatusOK, gin.H{"collected": collected, "total": collected.Total()})
}

// Status handles GET /v1/machine/status.
func (h *OperatorHandler) Status(c *gin.Context) {
	users, products, tillTotal := h.machine.Status()
	c.JSON(http.StatusOK, gin.H{
		"users":      users,
		"products":   products,
		"till_total": tillTotal,
	})
}
