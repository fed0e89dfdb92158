package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"aclamission/models"
)

type LinkKind string

const (
	LinkPledge   LinkKind = "pledge"
	LinkOutgoing LinkKind = "outgoing"
)

// UnlinkTarget is accepted in place of a target id to clear a link.
const UnlinkTarget = "unlink"

func ParseLinkKind(s string) (LinkKind, error) {
	switch k := LinkKind(strings.ToLower(strings.TrimSpace(s))); k {
	case LinkPledge, LinkOutgoing:
		return k, nil
	}
	return "", ErrInvalidKind
}

type LinkResult struct {
	TransactionID     string            `json:"transactionId"`
	Kind              LinkKind          `json:"kind"`
	TargetID          string            `json:"targetId,omitempty"`
	Unlinked          bool              `json:"unlinked"`
	Reconciled        bool              `json:"reconciled"`
	PreviousTargetID  string            `json:"previousTargetId,omitempty"`
	FulfillmentStatus *int              `json:"fulfillmentStatus,omitempty"`
	PaidAmount        *float64          `json:"paidAmount,omitempty"`
	PaidStatus        models.PaidStatus `json:"paidStatus,omitempty"`
}

type Linker struct {
	store LinkStore
	pub   Publisher
	log   zerolog.Logger
}

func NewLinker(store LinkStore, pub Publisher, log zerolog.Logger) *Linker {
	return &Linker{store: store, pub: pub, log: log}
}

// Link reconciles a transaction against a pledge or an outgoing, or clears
// the link when targetID is empty or "unlink". The transaction update and
// the pledge/outgoing update commit together or not at all.
//
// Re-linking does not subtract the contribution already added to the
// previous target; PreviousTargetID reports it so it can be corrected.
func (l *Linker) Link(ctx context.Context, transactionID string, kind LinkKind, targetID string) (*LinkResult, error) {
	if kind != LinkPledge && kind != LinkOutgoing {
		return nil, ErrInvalidKind
	}
	transactionID = strings.TrimSpace(transactionID)
	if transactionID == "" {
		return nil, fmt.Errorf("%w: transaction id is required", ErrValidation)
	}
	targetID = strings.TrimSpace(targetID)
	unlink := targetID == "" || strings.EqualFold(targetID, UnlinkTarget)

	res := &LinkResult{TransactionID: transactionID, Kind: kind, Unlinked: unlink}
	err := l.store.InTx(ctx, func(tx LinkTx) error {
		t, err := tx.LockTransaction(ctx, transactionID)
		if err != nil {
			return fmt.Errorf("transaction %s: %w", transactionID, err)
		}
		link := TransactionLink{PledgeID: t.PledgeID, OutgoingID: t.OutgoingID}
		prev := t.PledgeID
		if kind == LinkOutgoing {
			prev = t.OutgoingID
		}
		if prev != nil {
			res.PreviousTargetID = *prev
		}

		if unlink {
			if kind == LinkPledge {
				link.PledgeID = nil
			} else {
				link.OutgoingID = nil
			}
			link.Reconciled = false
			return tx.SetTransactionLink(ctx, transactionID, link)
		}

		res.TargetID = targetID
		res.Reconciled = true
		if kind == LinkPledge {
			link = TransactionLink{PledgeID: &targetID, Reconciled: true}
		} else {
			link = TransactionLink{OutgoingID: &targetID, Reconciled: true}
		}
		if err := tx.SetTransactionLink(ctx, transactionID, link); err != nil {
			return fmt.Errorf("update transaction: %w", err)
		}
		if kind == LinkPledge {
			return l.applyToPledge(ctx, tx, t, targetID, res)
		}
		return l.applyToOutgoing(ctx, tx, t, targetID, res)
	})
	if err != nil {
		l.log.Error().Err(err).
			Str("transaction_id", transactionID).
			Str("kind", string(kind)).
			Str("target_id", targetID).
			Msg("link failed")
		return nil, err
	}

	if !unlink && res.PreviousTargetID != "" && res.PreviousTargetID != targetID {
		l.log.Warn().
			Str("transaction_id", transactionID).
			Str("previous_target_id", res.PreviousTargetID).
			Str("target_id", targetID).
			Msg("transaction re-linked; previous contribution was not reversed")
	}
	if l.pub != nil {
		l.pub.Publish(NewEvent(EventTransactionLinked, transactionID))
	}
	return res, nil
}

func (l *Linker) applyToPledge(ctx context.Context, tx LinkTx, t *models.BankTransaction, pledgeID string, res *LinkResult) error {
	p, err := tx.LockPledge(ctx, pledgeID)
	if err != nil {
		return fmt.Errorf("pledge %s: %w", pledgeID, err)
	}
	status, ok := NextFulfillment(p.FulfillmentStatus, t.CreditAmount, p.YearlyTotal())
	if !ok {
		l.log.Warn().Str("pledge_id", pledgeID).Msg("pledge has no yearly total; fulfillment unchanged")
	}
	res.FulfillmentStatus = &status
	if status == p.FulfillmentStatus {
		return nil
	}
	if err := tx.SetPledgeFulfillment(ctx, pledgeID, status); err != nil {
		return fmt.Errorf("update pledge: %w", err)
	}
	return nil
}

func (l *Linker) applyToOutgoing(ctx context.Context, tx LinkTx, t *models.BankTransaction, outgoingID string, res *LinkResult) error {
	o, err := tx.LockOutgoing(ctx, outgoingID)
	if err != nil {
		return fmt.Errorf("outgoing %s: %w", outgoingID, err)
	}
	if o.Status != models.OutgoingApproved && o.Status != models.OutgoingFinalized {
		return fmt.Errorf("%w: outgoing %s is %s; only approved or finalized outgoings can be linked", ErrValidation, outgoingID, o.Status)
	}
	paid := decimal.NewFromFloat(o.PaidAmount).Add(decimal.NewFromFloat(t.DebitAmount))
	status := models.DerivePaidStatus(paid, decimal.NewFromFloat(o.Amount))
	paidF := paid.InexactFloat64()
	res.PaidAmount = &paidF
	res.PaidStatus = status
	if err := tx.SetOutgoingPayment(ctx, outgoingID, paidF, status); err != nil {
		return fmt.Errorf("update outgoing: %w", err)
	}
	return nil
}

// NextFulfillment adds a credit to a pledge's fulfillment percentage,
// rounding to the nearest point and capping at 100. ok is false when the
// yearly total is not positive, in which case current is returned.
func NextFulfillment(current int, credit float64, yearlyTotal decimal.Decimal) (status int, ok bool) {
	if !yearlyTotal.IsPositive() {
		return current, false
	}
	pct := decimal.NewFromFloat(credit).Div(yearlyTotal).Mul(decimal.NewFromInt(100))
	next := decimal.NewFromInt(int64(current)).Add(pct).Round(0).IntPart()
	if next > 100 {
		next = 100
	}
	return int(next), true
}
