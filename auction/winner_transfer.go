package auction

import (
	"sort"
	"time"

	"github.com/bidnbuy/backend/database/models"
)

// ranksAbove reports whether bid a beats bid b. Amount wins first; an
// earlier timestamp breaks amount ties, and the lower id breaks exact ties
// so the ordering is total and stable across processes.
func ranksAbove(a, b *models.Bid) bool {
	cmp := a.Amount.Cmp(b.Amount)
	if cmp != 0 {
		return cmp > 0
	}
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.Before(b.Timestamp)
	}
	return a.ID < b.ID
}

// rankBids orders active bids from best to worst.
func rankBids(bids []*models.Bid) []*models.Bid {
	ranked := make([]*models.Bid, 0, len(bids))
	for _, b := range bids {
		if b != nil && b.IsActive {
			ranked = append(ranked, b)
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranksAbove(ranked[i], ranked[j])
	})
	return ranked
}

// wasLeading reports whether a just-withdrawn bid held the winning
// position, given the active bids that remain. Only then does the lot need
// a winner transfer; withdrawing a trailing bid leaves the leader, the
// price and any payment deadline untouched.
func wasLeading(withdrawn *models.Bid, remaining []*models.Bid) bool {
	leader := leadingBid(remaining)
	return leader == nil || ranksAbove(withdrawn, leader)
}

// leadingBid returns the best-ranked active bid, or nil when none exist.
func leadingBid(bids []*models.Bid) *models.Bid {
	ranked := rankBids(bids)
	if len(ranked) == 0 {
		return nil
	}
	return ranked[0]
}

// transferOutcome describes what applyWinnerTransfer decided for a lot.
type transferOutcome struct {
	// NewLeader is the bid promoted to the winning position, nil when the
	// lot had no remaining active bids.
	NewLeader *models.Bid

	// Reverted is set when a pending_payment lot ran out of bidders and
	// went back on the market.
	Reverted bool
}

// applyWinnerTransfer re-resolves a lot after its leading bid has been
// removed. The caller must have already deactivated the departing bid;
// activeBids is whatever remains.
//
// The lot is mutated in place:
//   - a remaining bidder inherits the win, the current price drops to
//     their amount, and a pending lot gets a fresh full payment window
//   - with no bidders left, a pending lot reverts to active at its start
//     price and an active lot just falls back to the start price
func applyWinnerTransfer(lot *models.Lot, activeBids []*models.Bid, now time.Time) transferOutcome {
	leader := leadingBid(activeBids)

	if leader != nil {
		lot.CurrentPrice = leader.Amount
		if lot.Status == models.LotStatusPendingPayment {
			deadline := now.Add(lot.PaymentWindow())
			lot.PaymentDeadline = &deadline
		}
		return transferOutcome{NewLeader: leader}
	}

	lot.CurrentPrice = lot.StartPrice
	lot.PaymentDeadline = nil
	if lot.Status == models.LotStatusPendingPayment {
		lot.Status = models.LotStatusActive
		lot.ClosedAt = nil
		return transferOutcome{Reverted: true}
	}
	return transferOutcome{}
}
