package storage

import "github.com/bijoydoteth/uniswap-arbitrage/internal/model"

// OpportunityJournal is a sink for detected arbitrage opportunities.
type OpportunityJournal interface {
	PutOpportunities(opps []model.Opportunity) error
}
