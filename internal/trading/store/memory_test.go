package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"tessera/pkg/domain"
	"tessera/pkg/platform/sentinel"
)

type BalanceStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func (s *BalanceStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func TestBalanceStoreSuite(t *testing.T) {
	suite.Run(t, new(BalanceStoreSuite))
}

func (s *BalanceStoreSuite) TestCreditAndBalance() {
	assetID := domain.AssetID(0)

	s.Run("unknown holder reads as zero", func() {
		balance, err := s.store.BalanceOf(s.ctx, assetID, "nobody")
		s.Require().NoError(err)
		s.Equal(domain.Shares(0), balance)
	})

	s.Run("credit accumulates", func() {
		s.Require().NoError(s.store.Credit(s.ctx, assetID, "custodian", 1000))
		s.Require().NoError(s.store.Credit(s.ctx, assetID, "custodian", 500))

		balance, err := s.store.BalanceOf(s.ctx, assetID, "custodian")
		s.Require().NoError(err)
		s.Equal(domain.Shares(1500), balance)
	})

	s.Run("non-positive credit rejected", func() {
		s.Require().ErrorIs(s.store.Credit(s.ctx, assetID, "custodian", 0), sentinel.ErrInvalidState)
	})
}

func (s *BalanceStoreSuite) TestTransfer() {
	assetID := domain.AssetID(1)
	s.Require().NoError(s.store.Credit(s.ctx, assetID, "alice", 100))

	s.Run("moves shares between holders", func() {
		s.Require().NoError(s.store.Transfer(s.ctx, assetID, "alice", "bob", 40))

		aliceBalance, _ := s.store.BalanceOf(s.ctx, assetID, "alice")
		bobBalance, _ := s.store.BalanceOf(s.ctx, assetID, "bob")
		s.Equal(domain.Shares(60), aliceBalance)
		s.Equal(domain.Shares(40), bobBalance)
	})

	s.Run("preserves the per-asset total", func() {
		total, err := s.store.TotalByAsset(s.ctx, assetID)
		s.Require().NoError(err)
		s.Equal(domain.Shares(100), total)
	})

	s.Run("rejects overdraw without partial effect", func() {
		err := s.store.Transfer(s.ctx, assetID, "bob", "alice", 41)
		s.Require().ErrorIs(err, sentinel.ErrInvalidState)

		bobBalance, _ := s.store.BalanceOf(s.ctx, assetID, "bob")
		s.Equal(domain.Shares(40), bobBalance)
	})

	s.Run("rejects transfers from empty accounts", func() {
		err := s.store.Transfer(s.ctx, assetID, "stranger", "alice", 1)
		s.Require().ErrorIs(err, sentinel.ErrInvalidState)
	})
}

func (s *BalanceStoreSuite) TestHoldingsQueries() {
	s.Require().NoError(s.store.Credit(s.ctx, domain.AssetID(0), "alice", 10))
	s.Require().NoError(s.store.Credit(s.ctx, domain.AssetID(1), "alice", 20))
	s.Require().NoError(s.store.Credit(s.ctx, domain.AssetID(1), "bob", 30))

	s.Run("holdings of one holder ordered by asset", func() {
		holdings, err := s.store.HoldingsOf(s.ctx, "alice")
		s.Require().NoError(err)
		s.Require().Len(holdings, 2)
		s.Equal(domain.AssetID(0), holdings[0].AssetID)
		s.Equal(domain.AssetID(1), holdings[1].AssetID)
	})

	s.Run("holders of one asset ordered by address", func() {
		holders, err := s.store.HoldersOf(s.ctx, domain.AssetID(1))
		s.Require().NoError(err)
		s.Require().Len(holders, 2)
		s.Equal(domain.Address("alice"), holders[0].Holder)
		s.Equal(domain.Address("bob"), holders[1].Holder)
	})

	s.Run("zero positions are omitted", func() {
		s.Require().NoError(s.store.Transfer(s.ctx, domain.AssetID(0), "alice", "bob", 10))

		holdings, err := s.store.HoldingsOf(s.ctx, "alice")
		s.Require().NoError(err)
		s.Len(holdings, 1)
	})
}

func (s *BalanceStoreSuite) TestHolderClocks() {
	s.Run("unset clock is ErrNotFound", func() {
		_, err := s.store.LastTransferAt(s.ctx, "alice")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("set then read", func() {
		at := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
		s.Require().NoError(s.store.SetLastTransferAt(s.ctx, "alice", at))

		got, err := s.store.LastTransferAt(s.ctx, "alice")
		s.Require().NoError(err)
		s.Equal(at, got)
	})
}
