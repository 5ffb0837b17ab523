package rewards

import "github.com/xraph/rewards/types"

// Re-export common types so callers don't have to import the types package.

// Money is re-exported from types package.
type Money = types.Money

// Entity is re-exported from types package.
type Entity = types.Entity

// Date is re-exported from types package.
type Date = types.Date

// Clock is re-exported from types package.
type Clock = types.Clock

// Re-export constructors.
var (
	USD           = types.USD
	EUR           = types.EUR
	GBP           = types.GBP
	NewDate       = types.NewDate
	DateOf        = types.DateOf
	ParseDate     = types.ParseDate
	NewFixedClock = types.NewFixedClock
)
