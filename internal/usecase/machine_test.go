package usecase

import (
	"context"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmandke/vending-machine/internal/directory"
	domain "github.com/vmandke/vending-machine/internal/entity"
	"golang.org/x/crypto/bcrypt"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []MachineEvent
}

func (p *recordingPublisher) PublishMachineEvent(_ context.Context, ev MachineEvent) error {
	p.mu.Lock()
	p.events = append(p.events, ev)
	p.mu.Unlock()
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Type
	}
	return out
}

func newMachine(t *testing.T, events EventPublisher) *Machine {
	t.Helper()
	m := NewMachine(directory.New(bcrypt.MinCost), events)
	require.NoError(t, m.RegisterUser("seller", domain.RoleSeller, "seller-pw"))
	require.NoError(t, m.RegisterUser("buyer", domain.RoleBuyer, "buyer-pw"))
	return m
}

func stockCola(t *testing.T, m *Machine) {
	t.Helper()
	_, err := m.AddProduct("seller", "seller-pw", "cola", 15, 10)
	require.NoError(t, err)
}

func deposit(t *testing.T, m *Machine, coins domain.Coins) domain.Coins {
	t.Helper()
	wallet, err := m.Deposit("buyer", "buyer-pw", coins)
	require.NoError(t, err)
	return wallet
}

func TestRegisterUser(t *testing.T) {
	m := newMachine(t, nil)

	err := m.RegisterUser("seller", domain.RoleBuyer, "other")
	assert.ErrorIs(t, err, domain.ErrUserExists)

	// the original registration still authenticates
	_, err = m.ViewWallet("seller", "seller-pw")
	assert.NoError(t, err)
}

func TestViewWallet(t *testing.T) {
	m := newMachine(t, nil)

	wallet, err := m.ViewWallet("buyer", "buyer-pw")
	require.NoError(t, err)
	assert.Equal(t, domain.Coins{}, wallet)

	_, err = m.ViewWallet("buyer", "wrong")
	assert.ErrorIs(t, err, domain.ErrInvalidPassword)
}

func TestDeposit(t *testing.T) {
	m := newMachine(t, nil)

	wallet := deposit(t, m, domain.Coins{N5: 1, N10: 2, N20: 3, N50: 4, N100: 5})
	assert.EqualValues(t, 785, wallet.Total())

	t.Run("sellers cannot deposit", func(t *testing.T) {
		_, err := m.Deposit("seller", "seller-pw", domain.Coins{N5: 1})
		assert.ErrorIs(t, err, domain.ErrBuyerOnly)
	})
}

func TestAddProduct(t *testing.T) {
	m := newMachine(t, nil)
	stockCola(t, m)

	t.Run("same seller accumulates stock", func(t *testing.T) {
		p, err := m.AddProduct("seller", "seller-pw", "cola", 15, 10)
		require.NoError(t, err)
		assert.Equal(t, 20, p.Stock)
	})

	t.Run("different seller is rejected, stock unchanged", func(t *testing.T) {
		require.NoError(t, m.RegisterUser("rival", domain.RoleSeller, "rival-pw"))
		_, err := m.AddProduct("rival", "rival-pw", "cola", 15, 10)
		assert.ErrorIs(t, err, domain.ErrSellerMismatch)

		p, found := m.Product("cola")
		require.True(t, found)
		assert.Equal(t, 20, p.Stock)
	})
}

func TestDeleteProduct(t *testing.T) {
	m := newMachine(t, nil)
	stockCola(t, m)

	p, err := m.DeleteProduct("seller", "seller-pw", "cola", 4)
	require.NoError(t, err)
	assert.Equal(t, 6, p.Stock)

	t.Run("over-requesting empties the stock", func(t *testing.T) {
		p, err := m.DeleteProduct("seller", "seller-pw", "cola", 99)
		require.NoError(t, err)
		assert.Equal(t, 0, p.Stock)
	})

	t.Run("unknown product", func(t *testing.T) {
		_, err := m.DeleteProduct("seller", "seller-pw", "pepsi", 1)
		assert.ErrorIs(t, err, domain.ErrProductNotFound)
	})
}

// TestBuyChangeScenario walks the machine through the canonical change
// sequence: a buyer holding a single 20 cannot buy a 15 item from a machine
// with an empty till, a 5 on top still cannot make the change greedily, and
// only a further 10 lets the sale complete with a single 20 returned.
func TestBuyChangeScenario(t *testing.T) {
	pub := &recordingPublisher{}
	m := newMachine(t, pub)
	stockCola(t, m)

	deposit(t, m, domain.Coins{N20: 1})
	_, err := m.Buy("buyer", "buyer-pw", "cola", 1)
	assert.ErrorIs(t, err, domain.ErrInsufficientChange)

	deposit(t, m, domain.Coins{N5: 1})
	_, err = m.Buy("buyer", "buyer-pw", "cola", 1)
	assert.ErrorIs(t, err, domain.ErrInsufficientChange)

	deposit(t, m, domain.Coins{N10: 1})
	wallet, err := m.Buy("buyer", "buyer-pw", "cola", 1)
	require.NoError(t, err)
	assert.Equal(t, domain.Coins{N20: 1}, wallet)

	// the 35 paid in minus the 20 returned stays in the till
	assert.Equal(t, domain.Coins{N5: 1, N10: 1}, m.TillSnapshot())

	p, found := m.Product("cola")
	require.True(t, found)
	assert.Equal(t, 9, p.Stock)

	assert.Contains(t, pub.types(), EventSaleCompleted)
}

func TestBuyAllOrNothing(t *testing.T) {
	m := newMachine(t, nil)
	stockCola(t, m)
	m.LoadTill(domain.Coins{N50: 2})
	deposit(t, m, domain.Coins{N20: 1})

	tillBefore := m.TillSnapshot()

	_, err := m.Buy("buyer", "buyer-pw", "cola", 1)
	assert.ErrorIs(t, err, domain.ErrInsufficientChange)

	wallet, err := m.ViewWallet("buyer", "buyer-pw")
	require.NoError(t, err)
	assert.Equal(t, domain.Coins{N20: 1}, wallet)
	assert.Equal(t, tillBefore, m.TillSnapshot())

	p, found := m.Product("cola")
	require.True(t, found)
	assert.Equal(t, 10, p.Stock)
}

func TestBuyRejections(t *testing.T) {
	m := newMachine(t, nil)
	stockCola(t, m)
	deposit(t, m, domain.Coins{N100: 1})

	t.Run("unknown product", func(t *testing.T) {
		_, err := m.Buy("buyer", "buyer-pw", "pepsi", 1)
		assert.ErrorIs(t, err, domain.ErrProductNotFound)
	})

	t.Run("not enough stock", func(t *testing.T) {
		_, err := m.Buy("buyer", "buyer-pw", "cola", 11)
		assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	})

	t.Run("not enough funds", func(t *testing.T) {
		_, err := m.Buy("buyer", "buyer-pw", "cola", 10) // costs 150, wallet holds 100
		assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
	})

	t.Run("non-positive count", func(t *testing.T) {
		_, err := m.Buy("buyer", "buyer-pw", "cola", 0)
		assert.ErrorIs(t, err, domain.ErrInvalidCount)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := m.Buy("buyer", "wrong", "cola", 1)
		assert.ErrorIs(t, err, domain.ErrInvalidPassword)
	})
}

// TestDryRunCommitEquivalence pins the invariant the two-phase buy relies
// on: decomposing from a scratch wallet∪till ledger behaves identically to
// paying the wallet into the till and decomposing from the till alone.
func TestDryRunCommitEquivalence(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		wallet := domain.Coins{
			N5: rng.Intn(4), N10: rng.Intn(4), N20: rng.Intn(4),
			N50: rng.Intn(4), N100: rng.Intn(4),
		}
		till := domain.Coins{
			N5: rng.Intn(4), N10: rng.Intn(4), N20: rng.Intn(4),
			N50: rng.Intn(4), N100: rng.Intn(4),
		}
		amount := int64(rng.Intn(40)) * 5

		scratch := wallet
		scratch.Add(till)
		dryChange, dryErr := scratch.Decompose(amount)

		committed := till
		committed.Add(wallet)
		realChange, realErr := committed.Decompose(amount)

		if dryErr != nil {
			assert.Error(t, realErr)
			continue
		}
		require.NoError(t, realErr)
		assert.Equal(t, dryChange, realChange)
	}
}

func TestConcurrentDepositsSerialize(t *testing.T) {
	m := newMachine(t, nil)

	const workers = 10
	const depositsEach = 20

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < depositsEach; j++ {
				_, err := m.Deposit("buyer", "buyer-pw", domain.Coins{N5: 1})
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	wallet, err := m.ViewWallet("buyer", "buyer-pw")
	require.NoError(t, err)
	assert.EqualValues(t, workers*depositsEach*5, wallet.Total())
}

func TestTillOperations(t *testing.T) {
	pub := &recordingPublisher{}
	m := newMachine(t, pub)

	till := m.LoadTill(domain.Coins{N5: 10, N10: 5})
	assert.EqualValues(t, 100, till.Total())

	users, products, tillTotal := m.Status()
	assert.Equal(t, 2, users)
	assert.Equal(t, 0, products)
	assert.EqualValues(t, 100, tillTotal)

	collected := m.CollectTill()
	assert.Equal(t, domain.Coins{N5: 10, N10: 5}, collected)
	assert.Equal(t, domain.Coins{}, m.TillSnapshot())

	assert.Contains(t, pub.types(), EventTillFloat)
	assert.Contains(t, pub.types(), EventTillCollected)
}
