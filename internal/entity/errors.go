package domain

import "errors"

// DomainError is an expected, recoverable machine failure. Handlers surface it
// to the caller as a normal response; anything else shuts the machine down.
// Messages are part of the wire contract, hence the capitalization.
type DomainError struct {
	msg string
}

func (e *DomainError) Error() string { return e.msg }

func domainErr(msg string) *DomainError { return &DomainError{msg: msg} }

var (
	ErrUserExists          = domainErr("User already exists")
	ErrUserNotFound        = domainErr("User does not exist")
	ErrInvalidPassword     = domainErr("Invalid Password")
	ErrSellerOnly          = domainErr("Only sellers can handle products")
	ErrBuyerOnly           = domainErr("Only buyers can deposit money")
	ErrSellerMismatch      = domainErr("Product Seller Mismatch")
	ErrInvalidPrice        = domainErr("Invalid Price; Needs to be a multiple of 5")
	ErrInvalidStock        = domainErr("Invalid Stock")
	ErrInvalidCount        = domainErr("Invalid Count")
	ErrProductNotFound     = domainErr("Product does not exist")
	ErrInsufficientStock   = domainErr("Not enough stock")
	ErrInsufficientFunds   = domainErr("Not enough money in wallet")
	ErrInsufficientChange  = domainErr("Not enough change in Machine")
	ErrInvalidDenomination = domainErr("Invalid Coins")
	ErrInsufficientCoins   = domainErr("Not enough coins")
)

// IsDomain reports whether err belongs to the expected failure taxonomy.
func IsDomain(err error) bool {
	var de *DomainError
	return errors.As(err, &de)
}
