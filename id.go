package rewards

import "github.com/xraph/rewards/id"

// ID is the identifier type of ledger transactions, subscriptions and ad
// impressions.
type ID = id.ID

// Prefix identifies the entity type encoded in an ID.
type Prefix = id.Prefix
