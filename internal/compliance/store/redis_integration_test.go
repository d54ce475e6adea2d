//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"tessera/internal/compliance/models"
	"tessera/internal/compliance/store"
	"tessera/pkg/domain"
	"tessera/pkg/platform/sentinel"
	"tessera/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *store.Redis
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.redis = mgr.GetRedis(s.T())
	s.store = store.NewRedis(s.redis.Client)
}

func (s *RedisStoreSuite) SetupTest() {
	err := s.redis.FlushAll(context.Background())
	s.Require().NoError(err)
}

func (s *RedisStoreSuite) newRecord(addr domain.Address) *models.Record {
	record, err := models.NewRecord(addr, true, time.Now().UTC().Add(365*24*time.Hour),
		"kyc-hash", "PT", 0, time.Now().UTC())
	s.Require().NoError(err)
	return record
}

func (s *RedisStoreSuite) TestRecordRoundTrip() {
	ctx := context.Background()
	record := s.newRecord("alice")

	s.Require().NoError(s.store.UpsertRecord(ctx, record))

	found, err := s.store.FindRecord(ctx, "alice")
	s.Require().NoError(err)
	s.Equal(record.Address, found.Address)
	s.True(found.Whitelisted)
	s.Equal("PT", found.Jurisdiction)
	s.WithinDuration(record.KYCExpiry, found.KYCExpiry, time.Second)
}

func (s *RedisStoreSuite) TestUpsertOverwrites() {
	ctx := context.Background()
	record := s.newRecord("alice")
	s.Require().NoError(s.store.UpsertRecord(ctx, record))

	record.Whitelisted = false
	record.MaxHolding = 500
	s.Require().NoError(s.store.UpsertRecord(ctx, record))

	found, err := s.store.FindRecord(ctx, "alice")
	s.Require().NoError(err)
	s.False(found.Whitelisted)
	s.Equal(domain.Shares(500), found.MaxHolding)
}

func (s *RedisStoreSuite) TestMissingRecordIsNotFound() {
	_, err := s.store.FindRecord(context.Background(), "nobody")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisStoreSuite) TestListRecords() {
	ctx := context.Background()
	s.Require().NoError(s.store.UpsertRecord(ctx, s.newRecord("alice")))
	s.Require().NoError(s.store.UpsertRecord(ctx, s.newRecord("bob")))

	records, err := s.store.ListRecords(ctx)
	s.Require().NoError(err)
	s.Len(records, 2)
}

func (s *RedisStoreSuite) TestBlacklistFlagRoundTrip() {
	ctx := context.Background()

	_, err := s.store.FindFlag(ctx, "alice")
	s.ErrorIs(err, sentinel.ErrNotFound)

	flag := &models.BlacklistFlag{
		Address:   "alice",
		Flagged:   true,
		Reason:    "sanctions hit",
		UpdatedAt: time.Now().UTC(),
	}
	s.Require().NoError(s.store.SetFlag(ctx, flag))

	found, err := s.store.FindFlag(ctx, "alice")
	s.Require().NoError(err)
	s.True(found.Flagged)
	s.Equal("sanctions hit", found.Reason)

	// Clearing writes an unflagged record rather than deleting it.
	flag.Flagged = false
	flag.Reason = ""
	s.Require().NoError(s.store.SetFlag(ctx, flag))

	found, err = s.store.FindFlag(ctx, "alice")
	s.Require().NoError(err)
	s.False(found.Flagged)
}
