// Package credits meters generation calls per user identity. Admin
// identities are exempt, premium identities get a higher cap, everyone else
// gets the free cap. Requests without a user id bypass metering entirely.
package credits

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"wingman/internal/kvstore"
)

// Unlimited marks an identity with no credit cap.
const Unlimited = -1

const (
	DefaultFreeLimit    = 5
	DefaultPremiumLimit = 200
)

type Status struct {
	Allowed   bool
	Remaining int
	Used      int
	Limit     int
	Admin     bool
}

type Ledger struct {
	store        kvstore.Store
	admins       map[string]struct{}
	premium      map[string]struct{}
	freeLimit    int
	premiumLimit int
	log          zerolog.Logger
}

func NewLedger(store kvstore.Store, admins, premium []string, freeLimit, premiumLimit int, log zerolog.Logger) *Ledger {
	if freeLimit <= 0 {
		freeLimit = DefaultFreeLimit
	}
	if premiumLimit <= 0 {
		premiumLimit = DefaultPremiumLimit
	}
	return &Ledger{
		store:        store,
		admins:       toSet(admins),
		premium:      toSet(premium),
		freeLimit:    freeLimit,
		premiumLimit: premiumLimit,
		log:          log,
	}
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func (l *Ledger) IsAdmin(userID string) bool {
	_, ok := l.admins[userID]
	return ok
}

func (l *Ledger) limit(userID string) int {
	if l.IsAdmin(userID) {
		return Unlimited
	}
	if _, ok := l.premium[userID]; ok {
		return l.premiumLimit
	}
	return l.freeLimit
}

// Check is a pure read of the user's standing. A ledger read failure is
// treated as zero usage: availability wins over exact accounting.
func (l *Ledger) Check(ctx context.Context, userID string) Status {
	if l.IsAdmin(userID) {
		return Status{Allowed: true, Remaining: Unlimited, Limit: Unlimited, Admin: true}
	}

	used := l.used(ctx, userID)
	limit := l.limit(userID)
	remaining := limit - used
	if remaining < 0 {
		remaining = 0
	}
	return Status{
		Allowed:   remaining > 0,
		Remaining: remaining,
		Used:      used,
		Limit:     limit,
	}
}

// Increment charges one credit via a read-modify-write of the aggregate
// mapping. Two concurrent increments for the same user can lose one count;
// that soft-limit behavior is deliberate.
func (l *Ledger) Increment(ctx context.Context, userID string) (int, error) {
	if l.IsAdmin(userID) {
		return 0, nil
	}

	all := l.readAll(ctx)
	next := all[userID] + 1
	all[userID] = next
	if err := kvstore.SetJSON(ctx, l.store, kvstore.KeyUserCredits, all); err != nil {
		return 0, err
	}
	return next, nil
}

func (l *Ledger) used(ctx context.Context, userID string) int {
	return l.readAll(ctx)[userID]
}

func (l *Ledger) readAll(ctx context.Context) map[string]int {
	all := map[string]int{}
	err := kvstore.GetJSON(ctx, l.store, kvstore.KeyUserCredits, &all)
	if err != nil && !errors.Is(err, kvstore.ErrNotFound) {
		l.log.Warn().Err(err).Msg("credit ledger read failed, assuming zero usage")
		return map[string]int{}
	}
	return all
}
