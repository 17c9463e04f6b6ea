// Package memory is an in-process Store. Every transaction works on a copy
// of the state and swaps it in on success, so a failed unit of work leaves
// nothing behind.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Cheertaboi/restaurant-order-service/internal/models"
	"github.com/Cheertaboi/restaurant-order-service/internal/repository"
)

type usageKey struct {
	code   string
	userID string
}

type state struct {
	orders       map[string]models.Order
	settings     *models.Settings
	spendRules   map[string]models.SpendRule
	coupons      map[string]models.Coupon
	usage        map[usageKey]int
	wallets      map[string]models.Wallet
	transactions []models.WalletTransaction
	grants       []models.RewardGrant
	outbox       []models.OutboxEvent
}

func newState() *state {
	return &state{
		orders:     make(map[string]models.Order),
		spendRules: make(map[string]models.SpendRule),
		coupons:    make(map[string]models.Coupon),
		usage:      make(map[usageKey]int),
		wallets:    make(map[string]models.Wallet),
	}
}

func (s *state) clone() *state {
	out := newState()
	for k, v := range s.orders {
		out.orders[k] = v
	}
	if s.settings != nil {
		cp := *s.settings
		out.settings = &cp
	}
	for k, v := range s.spendRules {
		out.spendRules[k] = v
	}
	for k, v := range s.coupons {
		v.AllowedUsers = append([]string(nil), v.AllowedUsers...)
		out.coupons[k] = v
	}
	for k, v := range s.usage {
		out.usage[k] = v
	}
	for k, v := range s.wallets {
		out.wallets[k] = v
	}
	out.transactions = append(out.transactions, s.transactions...)
	out.grants = append(out.grants, s.grants...)
	out.outbox = append(out.outbox, s.outbox...)
	return out
}

// Store serializes transactions behind a single mutex.
type Store struct {
	mu    sync.Mutex
	state *state
}

func NewStore() *Store {
	return &Store{state: newState()}
}

var _ repository.Store = (*Store)(nil)

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	working := s.state.clone()
	if err := fn(ctx, &tx{st: working}); err != nil {
		return err
	}
	s.state = working
	return nil
}

type tx struct {
	st *state
}

var _ repository.Tx = (*tx)(nil)

// orders

func (t *tx) CreateOrder(_ context.Context, o *models.Order) error {
	if _, ok := t.st.orders[o.ID]; ok {
		return repository.ErrDuplicate
	}
	t.st.orders[o.ID] = *o
	return nil
}

func (t *tx) GetOrder(_ context.Context, id string) (*models.Order, error) {
	o, ok := t.st.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &o, nil
}

func (t *tx) GetOrderForUpdate(ctx context.Context, id string) (*models.Order, error) {
	return t.GetOrder(ctx, id)
}

func (t *tx) UpdateOrderStatus(_ context.Context, id string, status models.OrderStatus, completedAt *time.Time) error {
	o, ok := t.st.orders[id]
	if !ok {
		return repository.ErrNotFound
	}
	o.Status = status
	if completedAt != nil {
		at := *completedAt
		o.CompletedAt = &at
	}
	t.st.orders[id] = o
	return nil
}

func hasStatus(s models.OrderStatus, statuses []models.OrderStatus) bool {
	for _, want := range statuses {
		if s == want {
			return true
		}
	}
	return false
}

func (t *tx) CountUserOrders(_ context.Context, userID string, statuses []models.OrderStatus, placedUpTo time.Time) (int, error) {
	n := 0
	for _, o := range t.st.orders {
		if o.UserID == userID && hasStatus(o.Status, statuses) && !o.CreatedAt.After(placedUpTo) {
			n++
		}
	}
	return n, nil
}

func (t *tx) SumUserOrderTotals(_ context.Context, userID string, statuses []models.OrderStatus, from, to time.Time) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, o := range t.st.orders {
		if o.UserID != userID || !hasStatus(o.Status, statuses) {
			continue
		}
		if o.CreatedAt.Before(from) || o.CreatedAt.After(to) {
			continue
		}
		sum = sum.Add(o.Total)
	}
	return sum, nil
}

// settings

func (t *tx) GetSettings(_ context.Context) (*models.Settings, error) {
	if t.st.settings == nil {
		s := models.DefaultSettings()
		return &s, nil
	}
	s := *t.st.settings
	return &s, nil
}

func (t *tx) SaveSettings(_ context.Context, s *models.Settings) error {
	cp := *s
	t.st.settings = &cp
	return nil
}

func (t *tx) ListSpendRules(_ context.Context, activeOnly bool) ([]models.SpendRule, error) {
	var out []models.SpendRule
	for _, r := range t.st.spendRules {
		if activeOnly && !r.IsActive {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (t *tx) SaveSpendRule(_ context.Context, r *models.SpendRule) error {
	if existing, ok := t.st.spendRules[r.ID]; ok {
		r.CreatedAt = existing.CreatedAt
	}
	t.st.spendRules[r.ID] = *r
	return nil
}

// coupons

func (t *tx) InsertCoupon(_ context.Context, c *models.Coupon) error {
	if _, ok := t.st.coupons[c.Code]; ok {
		return repository.ErrDuplicate
	}
	cp := *c
	cp.AllowedUsers = append([]string(nil), c.AllowedUsers...)
	t.st.coupons[c.Code] = cp
	return nil
}

func (t *tx) GetCoupon(_ context.Context, code string) (*models.Coupon, error) {
	c, ok := t.st.coupons[code]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (t *tx) GetCouponForUpdate(ctx context.Context, code string) (*models.Coupon, error) {
	return t.GetCoupon(ctx, code)
}

func (t *tx) ListUserCoupons(_ context.Context, userID string) ([]models.Coupon, error) {
	var out []models.Coupon
	for _, c := range t.st.coupons {
		for _, u := range c.AllowedUsers {
			if u == userID {
				out = append(out, c)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Code < out[j].Code
	})
	return out, nil
}

func (t *tx) IncrementCouponUses(_ context.Context, code string) error {
	c, ok := t.st.coupons[code]
	if !ok {
		return repository.ErrNotFound
	}
	c.UsedCount++
	t.st.coupons[code] = c
	return nil
}

func (t *tx) GetAndLockUsage(_ context.Context, code, userID string) (int, error) {
	key := usageKey{code: code, userID: userID}
	n, ok := t.st.usage[key]
	if !ok {
		t.st.usage[key] = 0
	}
	return n, nil
}

func (t *tx) IncrementUsage(_ context.Context, code, userID string, _ time.Time) error {
	t.st.usage[usageKey{code: code, userID: userID}]++
	return nil
}

// wallets

func (t *tx) GetWallet(_ context.Context, userID string) (*models.Wallet, error) {
	w, ok := t.st.wallets[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &w, nil
}

func (t *tx) GetWalletForUpdate(ctx context.Context, userID string) (*models.Wallet, error) {
	return t.GetWallet(ctx, userID)
}

func (t *tx) CreateWallet(_ context.Context, w *models.Wallet) error {
	if _, ok := t.st.wallets[w.UserID]; ok {
		return repository.ErrDuplicate
	}
	t.st.wallets[w.UserID] = *w
	return nil
}

func (t *tx) AddWalletBalance(_ context.Context, walletID string, delta int64, at time.Time) error {
	for userID, w := range t.st.wallets {
		if w.ID == walletID {
			w.Balance += delta
			w.UpdatedAt = at
			t.st.wallets[userID] = w
			return nil
		}
	}
	return repository.ErrNotFound
}

func (t *tx) AppendWalletTransaction(ctx context.Context, wt *models.WalletTransaction) error {
	if wt.Type == models.TransactionCredit && wt.OrderID != nil {
		exists, err := t.HasOrderCredit(ctx, *wt.OrderID)
		if err != nil {
			return err
		}
		if exists {
			return repository.ErrDuplicate
		}
	}
	t.st.transactions = append(t.st.transactions, *wt)
	return nil
}

func (t *tx) ListWalletTransactions(_ context.Context, walletID string) ([]models.WalletTransaction, error) {
	var out []models.WalletTransaction
	for _, wt := range t.st.transactions {
		if wt.WalletID == walletID {
			out = append(out, wt)
		}
	}
	return out, nil
}

func (t *tx) HasOrderCredit(ctx context.Context, orderID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	for _, wt := range t.st.transactions {
		if wt.Type == models.TransactionCredit && wt.OrderID != nil && *wt.OrderID == orderID {
			return true, nil
		}
	}
	return false, nil
}

// grants

// LockUser is a no-op: the store mutex already serializes transactions.
func (t *tx) LockUser(context.Context, string) error { return nil }

func (t *tx) FindGrant(_ context.Context, rewardKey, userID string, since time.Time) (*models.RewardGrant, error) {
	var found *models.RewardGrant
	for i := range t.st.grants {
		g := t.st.grants[i]
		if g.RewardKey != rewardKey || g.UserID != userID || g.GrantedAt.Before(since) {
			continue
		}
		if found == nil || g.GrantedAt.After(found.GrantedAt) {
			found = &g
		}
	}
	if found == nil {
		return nil, repository.ErrNotFound
	}
	return found, nil
}

func (t *tx) InsertGrant(_ context.Context, g *models.RewardGrant) error {
	for _, existing := range t.st.grants {
		if existing.RewardKey == g.RewardKey && existing.UserID == g.UserID && existing.PeriodStart.Equal(g.PeriodStart) {
			return repository.ErrDuplicate
		}
	}
	t.st.grants = append(t.st.grants, *g)
	return nil
}

// outbox

func (t *tx) EnqueueEvent(_ context.Context, e *models.OutboxEvent) error {
	t.st.outbox = append(t.st.outbox, *e)
	return nil
}

func (t *tx) ListPendingEvents(_ context.Context, limit, maxAttempts int) ([]models.OutboxEvent, error) {
	var out []models.OutboxEvent
	for _, e := range t.st.outbox {
		if len(out) >= limit {
			break
		}
		if e.State == models.OutboxProcessed || e.Attempts >= maxAttempts {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (t *tx) MarkEventProcessed(_ context.Context, id string, at time.Time) error {
	for i := range t.st.outbox {
		if t.st.outbox[i].ID == id {
			t.st.outbox[i].State = models.OutboxProcessed
			processed := at
			t.st.outbox[i].ProcessedAt = &processed
			return nil
		}
	}
	return repository.ErrNotFound
}

func (t *tx) MarkEventFailed(_ context.Context, id string, reason string) error {
	for i := range t.st.outbox {
		if t.st.outbox[i].ID == id {
			t.st.outbox[i].State = models.OutboxFailed
			t.st.outbox[i].Attempts++
			t.st.outbox[i].LastError = reason
			return nil
		}
	}
	return repository.ErrNotFound
}
