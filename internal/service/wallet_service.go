package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Cheertaboi/restaurant-order-service/internal/models"
	"github.com/Cheertaboi/restaurant-order-service/internal/repository"
)

type WalletView struct {
	Wallet       models.Wallet              `json:"wallet"`
	Transactions []models.WalletTransaction `json:"transactions"`
}

type WalletService struct {
	store repository.Store
}

func NewWalletService(store repository.Store) *WalletService {
	return &WalletService{store: store}
}

// Get returns the user's wallet with its ledger. A user without a wallet gets
// an empty one with zero balance.
func (s *WalletService) Get(ctx context.Context, userID string) (WalletView, error) {
	view := WalletView{
		Wallet:       models.Wallet{UserID: userID},
		Transactions: []models.WalletTransaction{},
	}
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		w, err := tx.GetWallet(ctx, userID)
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get wallet: %w", err)
		}
		view.Wallet = *w

		txs, err := tx.ListWalletTransactions(ctx, w.ID)
		if err != nil {
			return fmt.Errorf("list transactions: %w", err)
		}
		if txs != nil {
			view.Transactions = txs
		}
		return nil
	})
	if err != nil {
		return WalletView{}, err
	}
	return view, nil
}
