package escrow

import (
	"context"
	"fmt"
	"sync"
)

// Ledger is the engine-local model of the value escrow: it tracks value
// units attributed to the engine's balance per account. Credit records
// funds that arrived with a bid; PayOut releases held funds to a recipient.
// PayOut fails without moving anything, so a failed settlement or
// withdrawal leaves the balance untouched.
type Ledger struct {
	mu    sync.Mutex
	held  map[string]uint64
	paid  map[string]uint64
	total uint64
}

func NewLedger() *Ledger {
	return &Ledger{
		held: make(map[string]uint64),
		paid: make(map[string]uint64),
	}
}

func (l *Ledger) Credit(account string, amount uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.held[account] += amount
	l.total += amount
}

func (l *Ledger) PayOut(ctx context.Context, account string, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if amount > l.total {
		return fmt.Errorf("payout of %d exceeds held balance %d", amount, l.total)
	}

	l.total -= amount
	l.paid[account] += amount
	return nil
}

// TotalHeld is the engine's outstanding balance: everything credited minus
// everything paid out.
func (l *Ledger) TotalHeld() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.total
}

// PaidTo reports the cumulative amount released to an account.
func (l *Ledger) PaidTo(account string) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.paid[account]
}

// CreditedBy reports the cumulative amount an account has escrowed.
func (l *Ledger) CreditedBy(account string) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held[account]
}
