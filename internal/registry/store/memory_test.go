package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"tessera/internal/registry/models"
	"tessera/pkg/domain"
	dErrors "tessera/pkg/domain-errors"
	"tessera/pkg/platform/sentinel"
)

type AssetStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func (s *AssetStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func TestAssetStoreSuite(t *testing.T) {
	suite.Run(t, new(AssetStoreSuite))
}

func (s *AssetStoreSuite) newAsset(name string) *models.Asset {
	asset, err := models.NewAsset(name, "real_estate", "Porto",
		domain.USDFromCents(50_000_00), "doc", "REG-7",
		domain.Address("custodian"), time.Now())
	s.Require().NoError(err)
	return asset
}

// TestIDAllocation verifies IDs start at zero and increase monotonically.
func (s *AssetStoreSuite) TestIDAllocation() {
	first, err := s.store.Create(s.ctx, s.newAsset("First"))
	s.Require().NoError(err)
	second, err := s.store.Create(s.ctx, s.newAsset("Second"))
	s.Require().NoError(err)

	s.Equal(domain.AssetID(0), first)
	s.Equal(domain.AssetID(1), second)
}

func (s *AssetStoreSuite) TestCreationAndLookups() {
	s.Run("creates and finds asset by ID", func() {
		asset := s.newAsset("Warehouse")
		id, err := s.store.Create(s.ctx, asset)
		s.Require().NoError(err)

		found, err := s.store.FindByID(s.ctx, id)
		s.Require().NoError(err)
		s.Equal("Warehouse", found.Name)
		s.True(found.Active)
		s.False(found.Tokenized)
	})

	s.Run("returns ErrNotFound for unknown ID", func() {
		_, err := s.store.FindByID(s.ctx, domain.AssetID(99))
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("lists assets in ID order", func() {
		assets, err := s.store.List(s.ctx)
		s.Require().NoError(err)
		for i := 1; i < len(assets); i++ {
			s.Less(assets[i-1].ID, assets[i].ID)
		}
	})
}

func (s *AssetStoreSuite) TestExecute() {
	s.Run("applies mutation when validation passes", func() {
		id, err := s.store.Create(s.ctx, s.newAsset("Mutable"))
		s.Require().NoError(err)

		updated, err := s.store.Execute(s.ctx, id,
			func(a *models.Asset) error { return a.CanTokenize(domain.Shares(100)) },
			func(a *models.Asset) { a.ApplyTokenization(domain.Shares(100)) },
		)
		s.Require().NoError(err)
		s.True(updated.Tokenized)

		found, err := s.store.FindByID(s.ctx, id)
		s.Require().NoError(err)
		s.True(found.Tokenized)
	})

	s.Run("leaves record untouched when validation fails", func() {
		id, err := s.store.Create(s.ctx, s.newAsset("Guarded"))
		s.Require().NoError(err)

		_, err = s.store.Execute(s.ctx, id,
			func(a *models.Asset) error {
				return dErrors.New(dErrors.CodeConflict, "nope")
			},
			func(a *models.Asset) { a.ApplyTokenization(domain.Shares(100)) },
		)
		s.Require().Error(err)

		found, err := s.store.FindByID(s.ctx, id)
		s.Require().NoError(err)
		s.False(found.Tokenized)
	})

	s.Run("returns ErrNotFound for unknown ID", func() {
		_, err := s.store.Execute(s.ctx, domain.AssetID(404),
			func(a *models.Asset) error { return nil },
			func(a *models.Asset) {},
		)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

// TestReturnedCopiesAreDetached verifies callers cannot mutate stored state
// through returned pointers.
func (s *AssetStoreSuite) TestReturnedCopiesAreDetached() {
	id, err := s.store.Create(s.ctx, s.newAsset("Detached"))
	s.Require().NoError(err)

	found, err := s.store.FindByID(s.ctx, id)
	s.Require().NoError(err)
	found.Name = "tampered"

	again, err := s.store.FindByID(s.ctx, id)
	s.Require().NoError(err)
	s.Equal("Detached", again.Name)
}
