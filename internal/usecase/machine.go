// Package usecase holds the machine engine: the single-writer transactional
// core that owns the till, the directory, and the one lock that serializes
// every state-mutating operation.
package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vmandke/vending-machine/internal/directory"
	domain "github.com/vmandke/vending-machine/internal/entity"
)

// Machine models one physical vending machine. Exactly one transaction is in
// flight at a time: every operation that reads state it then mutates holds mu
// for the full decide-then-mutate span. The lock is only ever held for
// in-memory work; events are published after it is released.
type Machine struct {
	mu     sync.Mutex
	dir    *directory.Directory
	till   domain.Coins
	events EventPublisher // nil disables publishing
}

func NewMachine(dir *directory.Directory, events EventPublisher) *Machine {
	return &Machine{dir: dir, events: events}
}

// RegisterUser creates an account. Role validity is checked at the HTTP
// boundary; names are first-come-first-served.
func (m *Machine) RegisterUser(name string, role domain.Role, password string) error {
	m.mu.Lock()
	_, err := m.dir.Register(name, role, password)
	m.mu.Unlock()
	observeTxn("register", err)
	if err != nil {
		return err
	}
	m.publish(MachineEvent{Type: EventUserRegistered, User: name})
	return nil
}

// ViewWallet returns a copy of the caller's wallet.
func (m *Machine) ViewWallet(username, password string) (domain.Coins, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, err := m.dir.Authenticate(username, password)
	if err != nil {
		return domain.Coins{}, err
	}
	return acc.Wallet, nil
}

// Deposit adds coins to a buyer's wallet. The coin payload has already been
// schema-checked at the boundary, so every denomination is recognized and
// every count non-negative.
func (m *Machine) Deposit(username, password string, coins domain.Coins) (domain.Coins, error) {
	m.mu.Lock()
	wallet, err := m.depositLocked(username, password, coins)
	m.mu.Unlock()
	observeTxn("deposit", err)
	if err != nil {
		return domain.Coins{}, err
	}
	m.publish(MachineEvent{Type: EventDeposit, User: username, Amount: coins.Total()})
	return wallet, nil
}

func (m *Machine) depositLocked(username, password string, coins domain.Coins) (domain.Coins, error) {
	acc, err := m.dir.Authenticate(username, password)
	if err != nil {
		return domain.Coins{}, err
	}
	if acc.Role != domain.RoleBuyer {
		return domain.Coins{}, domain.ErrBuyerOnly
	}
	acc.Wallet.Add(coins)
	return acc.Wallet, nil
}

// AddProduct stocks a product. First stocking binds the product to the
// seller; later stockings by the same seller accumulate stock.
func (m *Machine) AddProduct(username, password, name string, price int64, stock int) (domain.Product, error) {
	m.mu.Lock()
	product, err := m.addProductLocked(username, password, name, price, stock)
	m.mu.Unlock()
	observeTxn("add_product", err)
	return product, err
}

func (m *Machine) addProductLocked(username, password, name string, price int64, stock int) (domain.Product, error) {
	acc, err := m.dir.Authenticate(username, password)
	if err != nil {
		return domain.Product{}, err
	}
	if _, err := m.dir.AuthorizeSeller(acc, name); err != nil {
		return domain.Product{}, err
	}
	product, err := m.dir.UpsertProduct(acc.Name, name, price, stock)
	if err != nil {
		return domain.Product{}, err
	}
	return *product, nil
}

// DeleteProduct removes up to count units of the seller's own product.
// Over-requesting empties the remaining stock rather than failing.
func (m *Machine) DeleteProduct(username, password, name string, count int) (domain.Product, error) {
	m.mu.Lock()
	product, err := m.deleteProductLocked(username, password, name, count)
	m.mu.Unlock()
	observeTxn("delete_product", err)
	return product, err
}

func (m *Machine) deleteProductLocked(username, password, name string, count int) (domain.Product, error) {
	acc, err := m.dir.Authenticate(username, password)
	if err != nil {
		return domain.Product{}, err
	}
	product, err := m.dir.AuthorizeSeller(acc, name)
	if err != nil {
		return domain.Product{}, err
	}
	if product == nil {
		return domain.Product{}, domain.ErrProductNotFound
	}
	updated, err := m.dir.ReduceStock(name, count)
	if err != nil {
		return domain.Product{}, err
	}
	return *updated, nil
}

// Buy runs the two-phase purchase transaction. The dry run proves the machine
// can give exact change from the combined wallet+till coin set before any
// real state moves; only then are the buyer's coins paid in, change paid out
// and stock reduced. A failed dry run leaves wallet, till and stock exactly
// as they were.
func (m *Machine) Buy(username, password, productName string, count int) (domain.Coins, error) {
	m.mu.Lock()
	wallet, ev, err := m.buyLocked(username, password, productName, count)
	m.mu.Unlock()
	observeTxn("buy", err)
	if err != nil {
		return domain.Coins{}, err
	}
	m.publish(ev)
	return wallet, nil
}

func (m *Machine) buyLocked(username, password, productName string, count int) (domain.Coins, MachineEvent, error) {
	acc, err := m.dir.Authenticate(username, password)
	if err != nil {
		return domain.Coins{}, MachineEvent{}, err
	}
	if count < 1 {
		return domain.Coins{}, MachineEvent{}, domain.ErrInvalidCount
	}
	product := m.dir.Product(productName)
	if product == nil {
		return domain.Coins{}, MachineEvent{}, domain.ErrProductNotFound
	}
	if product.Stock < count {
		return domain.Coins{}, MachineEvent{}, domain.ErrInsufficientStock
	}
	cost := product.Price * int64(count)
	if acc.Wallet.Total() < cost {
		return domain.Coins{}, MachineEvent{}, domain.ErrInsufficientFunds
	}
	change := acc.Wallet.Total() - cost

	// Dry run: decompose the change from a scratch copy of wallet+till. The
	// scratch set is exactly what the till will hold once the wallet is paid
	// in, so a successful dry run guarantees the commit below cannot fail.
	scratch := acc.Wallet
	scratch.Add(m.till)
	if _, err := scratch.Decompose(change); err != nil {
		return domain.Coins{}, MachineEvent{}, domain.ErrInsufficientChange
	}

	// Commit: pay the whole wallet into the till, make change, hand it back.
	m.till.Add(acc.Wallet)
	returned, err := m.till.Decompose(change)
	if err != nil {
		// Must be unreachable after the dry run. Wrapped without %w so it is
		// not classed as a domain failure: the machine shuts down instead of
		// limping on with a half-moved wallet.
		return domain.Coins{}, MachineEvent{}, fmt.Errorf("till decompose failed after successful dry run: %v", err)
	}
	acc.Wallet.Reset()
	acc.Wallet.Add(returned)
	if _, err := m.dir.ReduceStock(productName, count); err != nil {
		return domain.Coins{}, MachineEvent{}, fmt.Errorf("reduce stock after commit: %v", err)
	}
	observeTill(m.till)

	ev := MachineEvent{
		Type:    EventSaleCompleted,
		User:    username,
		Product: productName,
		Count:   count,
		Amount:  cost,
	}
	return acc.Wallet, ev, nil
}

// Product returns a copy of the catalog entry. Taken under the lock: the
// redis catalog cache is the unlocked fast path for public reads.
func (m *Machine) Product(name string) (domain.Product, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	product := m.dir.Product(name)
	if product == nil {
		return domain.Product{}, false
	}
	return *product, true
}

// TillSnapshot returns a copy of the machine's coin reserve.
func (m *Machine) TillSnapshot() domain.Coins {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.till
}

// LoadTill adds an operator coin float to the till and returns the new till.
func (m *Machine) LoadTill(coins domain.Coins) domain.Coins {
	m.mu.Lock()
	m.till.Add(coins)
	till := m.till
	observeTill(till)
	m.mu.Unlock()
	observeTxn("till_float", nil)
	m.publish(MachineEvent{Type: EventTillFloat, Amount: coins.Total()})
	return till
}

// CollectTill empties the till and returns what was collected.
func (m *Machine) CollectTill() domain.Coins {
	m.mu.Lock()
	collected := m.till
	m.till.Reset()
	observeTill(m.till)
	m.mu.Unlock()
	observeTxn("till_collect", nil)
	m.publish(MachineEvent{Type: EventTillCollected, Amount: collected.Total()})
	return collected
}

// Status reports machine-level counters for the operator surface.
func (m *Machine) Status() (users, products int, tillTotal int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	users, products = m.dir.Counts()
	return users, products, m.till.Total()
}

func (m *Machine) publish(ev MachineEvent) {
	if m.events == nil {
		return
	}
	ev.ID = uuid.NewString()
	ev.At = time.Now().UTC()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = m.events.PublishMachineEvent(ctx, ev)
}
