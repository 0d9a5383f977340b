package usecase

import "time"

// Event types emitted on the machine event stream.
const (
	EventUserRegistered = "UserRegisteredV1"
	EventDeposit        = "DepositV1"
	EventSaleCompleted  = "SaleCompletedV1"
	EventTillFloat      = "TillFloatV1"
	EventTillCollected  = "TillCollectedV1"
)

// MachineEvent is the JSON payload published for every committed transaction.
type MachineEvent struct {
	ID      string    `json:"eventId"`
	Type    string    `json:"type"`
	User    string    `json:"user,omitempty"`
	Product string    `json:"product,omitempty"`
	Count   int       `json:"count,omitempty"`
	Amount  int64     `json:"amount,omitempty"`
	At      time.Time `json:"at"`
}

// TillFloatMsg is the remote till-replenishment command consumed from Kafka.
type TillFloatMsg struct {
	N5   int `json:"n5"`
	N10  int `json:"n10"`
	N20  int `json:"n20"`
	N50  int `json:"n50"`
	N100 int `json:"n100"`
}
