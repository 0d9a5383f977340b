package http

import (
	"encoding/json"
	"net/http"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"
	domain "github.com/vmandke/vending-machine/internal/entity"
	"github.com/vmandke/vending-machine/internal/logging"
	"github.com/vmandke/vending-machine/internal/usecase"
)

// MachineHandler translates machine-user requests into engine calls.
// Credentials travel as HTTP basic auth on every request; the engine
// re-authenticates each call.
type MachineHandler struct {
	machine *usecase.Machine
	catalog usecase.CatalogCache     // nil disables catalog caching
	idem    usecase.IdempotencyStore // nil disables buy idempotency
	exit    func()                   // fatal path for non-domain engine errors
}

func NewMachineHandler(machine *usecase.Machine, catalog usecase.CatalogCache, idem usecase.IdempotencyStore, exit func()) *MachineHandler {
	if exit == nil {
		exit = func() { os.Exit(1) }
	}
	return &MachineHandler{machine: machine, catalog: catalog, idem: idem, exit: exit}
}

type registerReq struct {
	Name     string `json:"name" binding:"required"`
	Role     string `json:"role" binding:"required,oneof=seller buyer"`
	Password string `json:"password" binding:"required"`
}

type productReq struct {
	Name  string `json:"name" binding:"required"`
	Price int64  `json:"price"`
	Stock int    `json:"stock"`
}

// coinsReq is the strict deposit/float schema: one required non-negative
// field per recognized denomination. Pointer fields distinguish a missing
// key from an explicit zero.
type coinsReq struct {
	N5   *int `json:"n5"`
	N10  *int `json:"n10"`
	N20  *int `json:"n20"`
	N50  *int `json:"n50"`
	N100 *int `json:"n100"`
}

// bindCoins decodes a coin payload, rejecting unknown denomination keys,
// missing denominations and negative counts before anything reaches the
// engine.
func bindCoins(c *gin.Context) (domain.Coins, error) {
	dec := json.NewDecoder(c.Request.Body)
	dec.DisallowUnknownFields()
	var req coinsReq
	if err := dec.Decode(&req); err != nil {
		return domain.Coins{}, domain.ErrInvalidDenomination
	}
	for _, f := range []*int{req.N5, req.N10, req.N20, req.N50, req.N100} {
		if f == nil || *f < 0 {
			return domain.Coins{}, domain.ErrInvalidDenomination
		}
	}
	return domain.Coins{N5: *req.N5, N10: *req.N10, N20: *req.N20, N50: *req.N50, N100: *req.N100}, nil
}

func credentials(c *gin.Context) (string, string, bool) {
	user, pass, ok := c.Request.BasicAuth()
	if !ok {
		c.Header("WWW-Authenticate", `Basic realm="vending-machine"`)
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "credentials required"})
	}
	return user, pass, ok
}

// respond maps engine results to responses: success and domain failures are
// both normal 200 responses (the machine "answered"); anything else means
// the shared state can no longer be trusted and the machine shuts down.
func (h *MachineHandler) respond(c *gin.Context, v any, err error) {
	if err == nil {
		c.JSON(http.StatusOK, v)
		return
	}
	if domain.IsDomain(err) {
		c.JSON(http.StatusOK, gin.H{"error": err.Error()})
		return
	}
	logging.From(c).Error("machine fault, shutting down", "error", err)
	h.exit()
}

// Register handles POST /v1/users. Public; the password is never echoed.
func (h *MachineHandler) Register(c *gin.Context) {
	var req registerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}
	err := h.machine.RegisterUser(req.Name, domain.Role(req.Role), req.Password)
	h.respond(c, gin.H{"name": req.Name, "role": req.Role}, err)
}

// ViewWallet handles GET /v1/users.
func (h *MachineHandler) ViewWallet(c *gin.Context) {
	user, pass, ok := credentials(c)
	if !ok {
		return
	}
	wallet, err := h.machine.ViewWallet(user, pass)
	h.respond(c, wallet, err)
}

// Deposit handles PUT /v1/users/deposit.
func (h *MachineHandler) Deposit(c *gin.Context) {
	user, pass, ok := credentials(c)
	if !ok {
		return
	}
	coins, err := bindCoins(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	wallet, err := h.machine.Deposit(user, pass, coins)
	h.respond(c, wallet, err)
}

// AddProduct handles PUT /v1/products.
func (h *MachineHandler) AddProduct(c *gin.Context) {
	user, pass, ok := credentials(c)
	if !ok {
		return
	}
	var req productReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}
	product, err := h.machine.AddProduct(user, pass, req.Name, req.Price, req.Stock)
	if err == nil {
		h.invalidateCatalog(c, req.Name)
	}
	h.respond(c, product, err)
}

// DeleteProduct handles DELETE /v1/products?product_name=...&count=...
func (h *MachineHandler) DeleteProduct(c *gin.Context) {
	user, pass, ok := credentials(c)
	if !ok {
		return
	}
	name, count, ok := productQuery(c)
	if !ok {
		return
	}
	product, err := h.machine.DeleteProduct(user, pass, name, count)
	if err == nil {
		h.invalidateCatalog(c, name)
	}
	h.respond(c, product, err)
}

// GetProduct handles GET /v1/products/:name. Public and unlocked: served from
// the catalog cache when possible, falling back to an engine read. A missing
// product answers with an empty object, as the machine front panel would.
func (h *MachineHandler) GetProduct(c *gin.Context) {
	name := c.Param("name")
	if h.catalog != nil {
		if p, hit, err := h.catalog.GetProduct(c.Request.Context(), name); err == nil && hit {
			c.JSON(http.StatusOK, p)
			return
		}
	}
	product, found := h.machine.Product(name)
	if !found {
		c.JSON(http.StatusOK, gin.H{})
		return
	}
	if h.catalog != nil {
		_ = h.catalog.SetProduct(c.Request.Context(), product)
	}
	c.JSON(http.StatusOK, product)
}

// Buy handles POST /v1/products/buy?product_name=...&count=... An optional
// X-Idempotency-Key header makes retries safe: a replayed key returns the
// wallet from the original purchase without vending twice.
func (h *MachineHandler) Buy(c *gin.Context) {
	user, pass, ok := credentials(c)
	if !ok {
		return
	}
	name, count, ok := productQuery(c)
	if !ok {
		return
	}

	idemKey := c.GetHeader("X-Idempotency-Key")
	if h.idem != nil && idemKey != "" {
		ctx := c.Request.Context()
		if cached, hit, _ := h.idem.Recall(ctx, user, idemKey); hit {
			c.Data(http.StatusOK, "application/json", []byte(cached))
			return
		}
		locked, err := h.idem.TryLock(ctx, user, idemKey)
		if err == nil && !locked {
			c.JSON(http.StatusConflict, gin.H{"error": "duplicate request"})
			return
		}
	}

	wallet, err := h.machine.Buy(user, pass, name, count)
	if err == nil {
		h.invalidateCatalog(c, name)
		if h.idem != nil && idemKey != "" {
			if body, merr := json.Marshal(wallet); merr == nil {
				_ = h.idem.Remember(c.Request.Context(), user, idemKey, string(body))
			}
		}
	}
	h.respond(c, wallet, err)
}

func (h *MachineHandler) invalidateCatalog(c *gin.Context, name string) {
	if h.catalog != nil {
		_ = h.catalog.Invalidate(c.Request.Context(), name)
	}
}

func productQuery(c *gin.Context) (name string, count int, ok bool) {
	name = c.Query("product_name")
	count, err := strconv.Atoi(c.Query("count"))
	if name == "" || err != nil || count < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": domain.ErrInvalidCount.Error()})
		return "", 0, false
	}
	return name, count, true
}
