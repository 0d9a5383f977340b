package domain

// Role is fixed at registration and never changes afterwards.
type Role string

const (
	RoleSeller Role = "seller"
	RoleBuyer  Role = "buyer"
)

func (r Role) Valid() bool {
	return r == RoleSeller || r == RoleBuyer
}

// Account is a registered machine user. PasswordHash is a salted bcrypt hash;
// the plaintext password is never stored.
type Account struct {
	Name         string
	Role         Role
	PasswordHash []byte
	Wallet       Coins
}
