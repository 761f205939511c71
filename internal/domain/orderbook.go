package domain

// OrderBookSide selects which half of the book a marketable order consumes.
type OrderBookSide string

const (
	OrderBookBids OrderBookSide = "bids"
	OrderBookAsks OrderBookSide = "asks"
)

// OrderBookLevel is one resting price level on the settlement venue.
type OrderBookLevel struct {
	Price float64
	Size  float64
	Count int
}

// OrderBook is a snapshot of both sides of a venue pair, bids descending and
// asks ascending.
type OrderBook struct {
	VenueID string
	Bids    []OrderBookLevel
	Asks    []OrderBookLevel
}

// MarketOrderSimulationResult describes walking the book with a marketable
// order. InputAmount is the portion of the request actually filled.
type MarketOrderSimulationResult struct {
	AverageExecutionPrice float64
	InputAmount           float64
	OutputAmount          float64
	SlippagePercent       float64
	BestPrice             float64
	LevelsConsumed        int
	FullyFilled           bool
}
