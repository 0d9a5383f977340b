package domain

// Coins is a denomination-tracked coin ledger. The machine accepts a fixed
// coin set; counts are always non-negative. The JSON shape (one field per
// denomination) is also the wire schema for deposits and wallets.
type Coins struct {
	N5   int `json:"n5"`
	N10  int `json:"n10"`
	N20  int `json:"n20"`
	N50  int `json:"n50"`
	N100 int `json:"n100"`
}

// Denominations in the order the change-maker walks them: largest first.
var Denominations = [...]int{100, 50, 20, 10, 5}

func (c *Coins) slot(denom int) *int {
	switch denom {
	case 5:
		return &c.N5
	case 10:
		return &c.N10
	case 20:
		return &c.N20
	case 50:
		return &c.N50
	case 100:
		return &c.N100
	}
	return nil
}

// Count returns the number of coins held for denom, 0 for unknown denoms.
func (c Coins) Count(denom int) int {
	if s := c.slot(denom); s != nil {
		return *s
	}
	return 0
}

// Total is the ledger value in the smallest currency unit.
func (c Coins) Total() int64 {
	var total int64
	for _, d := range Denominations {
		total += int64(d) * int64(c.Count(d))
	}
	return total
}

// Add merges delta into the ledger.
func (c *Coins) Add(delta Coins) {
	for _, d := range Denominations {
		*c.slot(d) += delta.Count(d)
	}
}

// Sub removes delta from the ledger. It checks every denomination before
// touching any count: either the whole delta is applied or nothing is.
func (c *Coins) Sub(delta Coins) error {
	for _, d := range Denominations {
		if c.Count(d) < delta.Count(d) {
			return ErrInsufficientCoins
		}
	}
	for _, d := range Denominations {
		*c.slot(d) -= delta.Count(d)
	}
	return nil
}

// Reset zeroes every count.
func (c *Coins) Reset() {
	*c = Coins{}
}

// Decompose expresses amount as physical coins drawn from the ledger, largest
// denomination first. The walk is greedy and does not backtrack: it can fail
// even when some other combination of the held coins would cover the amount,
// which matches a real coin-return mechanism. On success the returned
// breakdown has already been subtracted from the ledger; on failure the
// ledger is untouched.
func (c *Coins) Decompose(amount int64) (Coins, error) {
	if amount > c.Total() {
		return Coins{}, ErrInsufficientChange
	}
	var breakdown Coins
	remaining := amount
	for _, d := range Denominations {
		if remaining < int64(d) || c.Count(d) == 0 {
			continue
		}
		used := int(remaining / int64(d))
		if held := c.Count(d); used > held {
			used = held
		}
		*breakdown.slot(d) = used
		remaining -= int64(d) * int64(used)
		if remaining == 0 {
			break
		}
	}
	if remaining != 0 {
		return Coins{}, ErrInsufficientChange
	}
	if err := c.Sub(breakdown); err != nil {
		return Coins{}, err
	}
	return breakdown, nil
}
