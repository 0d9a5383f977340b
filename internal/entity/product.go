package domain

// PriceStep is the grouping rule for prices: every price must be a
// non-negative multiple of the smallest coin denomination.
const PriceStep = 5

// Product is a catalog entry. Seller is bound on first stocking and is
// permanent: only that seller may restock or delete the product.
type Product struct {
	Name   string `json:"name"`
	Price  int64  `json:"price"`
	Stock  int    `json:"stock"`
	Seller string `json:"seller"`
}

func ValidPrice(price int64) bool {
	return price >= 0 && price%PriceStep == 0
}
