package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"tessera/internal/yield/models"
	"tessera/pkg/domain"
	"tessera/pkg/platform/sentinel"
)

type DistributionStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func (s *DistributionStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func TestDistributionStoreSuite(t *testing.T) {
	suite.Run(t, new(DistributionStoreSuite))
}

func (s *DistributionStoreSuite) append(assetID domain.AssetID, cents int64) *models.Distribution {
	dist, err := models.NewDistribution(assetID, domain.USDFromCents(cents), time.Now())
	s.Require().NoError(err)
	_, err = s.store.Append(s.ctx, dist)
	s.Require().NoError(err)
	return dist
}

func (s *DistributionStoreSuite) TestAppend() {
	s.Run("sequences are per asset and start at zero", func() {
		first := s.append(0, 1000)
		second := s.append(0, 2000)
		other := s.append(1, 3000)

		s.Equal(uint64(0), first.Seq)
		s.Equal(uint64(1), second.Seq)
		s.Equal(uint64(0), other.Seq)
	})

	s.Run("list returns sequence order", func() {
		dists, err := s.store.ListByAsset(s.ctx, 0)
		s.Require().NoError(err)
		s.Require().Len(dists, 2)
		s.Equal(int64(1000), dists[0].Amount.Cents())
		s.Equal(int64(2000), dists[1].Amount.Cents())
	})

	s.Run("find unknown seq is ErrNotFound", func() {
		_, err := s.store.Find(s.ctx, 0, 99)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *DistributionStoreSuite) TestClaims() {
	dist := s.append(0, 1000)

	s.Run("first claim succeeds", func() {
		s.Require().NoError(s.store.Claim(s.ctx, dist.AssetID, dist.Seq, "alice", time.Now()))

		claimed, err := s.store.IsClaimed(s.ctx, dist.AssetID, dist.Seq, "alice")
		s.Require().NoError(err)
		s.True(claimed)
	})

	s.Run("repeat claim is ErrAlreadyUsed", func() {
		err := s.store.Claim(s.ctx, dist.AssetID, dist.Seq, "alice", time.Now())
		s.Require().ErrorIs(err, sentinel.ErrAlreadyUsed)
	})

	s.Run("other holders are unaffected", func() {
		s.Require().NoError(s.store.Claim(s.ctx, dist.AssetID, dist.Seq, "bob", time.Now()))
	})

	s.Run("claim against unknown distribution is ErrNotFound", func() {
		err := s.store.Claim(s.ctx, dist.AssetID, 99, "alice", time.Now())
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("unclaim reopens the mark", func() {
		s.Require().NoError(s.store.Unclaim(s.ctx, dist.AssetID, dist.Seq, "alice"))

		claimed, err := s.store.IsClaimed(s.ctx, dist.AssetID, dist.Seq, "alice")
		s.Require().NoError(err)
		s.False(claimed)

		s.Require().NoError(s.store.Claim(s.ctx, dist.AssetID, dist.Seq, "alice", time.Now()))
	})
}
