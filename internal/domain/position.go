package domain

type Direction string

const (
	DirectionBuy  Direction = "BUY"
	DirectionSell Direction = "SELL"
)

type PositionStatus string

const (
	StatusFlat    PositionStatus = "FLAT"
	StatusHolding PositionStatus = "HOLDING"
)

// Position is the single open/closed position tracked by one strategy instance.
type Position struct {
	Status     PositionStatus `json:"status"`
	EntryPrice float64        `json:"entry_price"`
}

func (p Position) Holding() bool {
	return p.Status == StatusHolding
}
