// Package directory owns the machine's user and product records, including
// the authentication and role-authorization checks. It is not safe for
// concurrent use on its own: the machine engine serializes every call behind
// its transaction lock.
package directory

import (
	domain "github.com/vmandke/vending-machine/internal/entity"
	"golang.org/x/crypto/bcrypt"
)

type Directory struct {
	users      map[string]*domain.Account
	products   map[string]*domain.Product
	bcryptCost int
}

func New(bcryptCost int) *Directory {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Directory{
		users:      make(map[string]*domain.Account),
		products:   make(map[string]*domain.Product),
		bcryptCost: bcryptCost,
	}
}

// Register creates an account with an empty wallet. Names are unique; the
// password is stored only as a salted bcrypt hash.
func (d *Directory) Register(name string, role domain.Role, password string) (*domain.Account, error) {
	if _, ok := d.users[name]; ok {
		return nil, domain.ErrUserExists
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), d.bcryptCost)
	if err != nil {
		return nil, err
	}
	acc := &domain.Account{
		Name:         name,
		Role:         role,
		PasswordHash: hash,
	}
	d.users[name] = acc
	return acc, nil
}

// Authenticate verifies name/password. A malformed stored hash and a wrong
// password are deliberately indistinguishable to the caller; the bcrypt
// comparison is constant-time.
func (d *Directory) Authenticate(name, password string) (*domain.Account, error) {
	acc, ok := d.users[name]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	if err := bcrypt.CompareHashAndPassword(acc.PasswordHash, []byte(password)); err != nil {
		return nil, domain.ErrInvalidPassword
	}
	return acc, nil
}

// AuthorizeSeller checks that acc may handle the named product. It returns
// the existing product, or nil when the name is free.
func (d *Directory) AuthorizeSeller(acc *domain.Account, productName string) (*domain.Product, error) {
	if acc.Role != domain.RoleSeller {
		return nil, domain.ErrSellerOnly
	}
	product := d.products[productName]
	if product != nil && product.Seller != acc.Name {
		return nil, domain.ErrSellerMismatch
	}
	return product, nil
}

// Product returns the catalog entry or nil.
func (d *Directory) Product(name string) *domain.Product {
	return d.products[name]
}

// UpsertProduct validates price and stock, then either increments the stock
// of seller's existing product or creates it bound to seller.
func (d *Directory) UpsertProduct(seller, name string, price int64, stock int) (*domain.Product, error) {
	if !domain.ValidPrice(price) {
		return nil, domain.ErrInvalidPrice
	}
	if stock < 0 {
		return nil, domain.ErrInvalidStock
	}
	if product, ok := d.products[name]; ok {
		product.Stock += stock
		return product, nil
	}
	product := &domain.Product{
		Name:   name,
		Price:  price,
		Stock:  stock,
		Seller: seller,
	}
	d.products[name] = product
	return product, nil
}

// ReduceStock decrements stock by count, clamping at zero. Requesting more
// than is held simply empties the product rather than failing.
func (d *Directory) ReduceStock(name string, count int) (*domain.Product, error) {
	product, ok := d.products[name]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	if count > product.Stock {
		count = product.Stock
	}
	product.Stock -= count
	return product, nil
}

// Counts reports the number of registered users and catalog products.
func (d *Directory) Counts() (users, products int) {
	return len(d.users), len(d.products)
}
