package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"tessera/internal/compliance/models"
	"tessera/pkg/domain"
	"tessera/pkg/platform/sentinel"
)

const (
	recordKeyPrefix = "tessera:compliance:record:"
	flagKeyPrefix   = "tessera:compliance:flag:"
)

// Redis keeps compliance state in Redis so a fleet of engine instances shares
// one view of the whitelist without a round trip to PostgreSQL on every trade.
// Entries never expire; compliance state is authoritative, not a cache.
type Redis struct {
	client redis.UniversalClient
}

func NewRedis(client redis.UniversalClient) *Redis {
	return &Redis{client: client}
}

func (s *Redis) UpsertRecord(ctx context.Context, record *models.Record) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal compliance record: %w", err)
	}
	if err := s.client.Set(ctx, recordKeyPrefix+record.Address.String(), payload, 0).Err(); err != nil {
		return fmt.Errorf("store compliance record: %w", err)
	}
	return nil
}

func (s *Redis) FindRecord(ctx context.Context, addr domain.Address) (*models.Record, error) {
	payload, err := s.client.Get(ctx, recordKeyPrefix+addr.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("fetch compliance record: %w", err)
	}
	var record models.Record
	if err := json.Unmarshal(payload, &record); err != nil {
		return nil, fmt.Errorf("decode compliance record: %w", err)
	}
	return &record, nil
}

func (s *Redis) ListRecords(ctx context.Context) ([]*models.Record, error) {
	var out []*models.Record
	iter := s.client.Scan(ctx, 0, recordKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		payload, err := s.client.Get(ctx, iter.Val()).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return nil, fmt.Errorf("fetch compliance record: %w", err)
		}
		var record models.Record
		if err := json.Unmarshal(payload, &record); err != nil {
			return nil, fmt.Errorf("decode compliance record: %w", err)
		}
		out = append(out, &record)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan compliance records: %w", err)
	}
	return out, nil
}

func (s *Redis) SetFlag(ctx context.Context, flag *models.BlacklistFlag) error {
	payload, err := json.Marshal(flag)
	if err != nil {
		return fmt.Errorf("marshal blacklist flag: %w", err)
	}
	if err := s.client.Set(ctx, flagKeyPrefix+flag.Address.String(), payload, 0).Err(); err != nil {
		return fmt.Errorf("store blacklist flag: %w", err)
	}
	return nil
}

func (s *Redis) FindFlag(ctx context.Context, addr domain.Address) (*models.BlacklistFlag, error) {
	payload, err := s.client.Get(ctx, flagKeyPrefix+addr.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("fetch blacklist flag: %w", err)
	}
	var flag models.BlacklistFlag
	if err := json.Unmarshal(payload, &flag); err != nil {
		return nil, fmt.Errorf("decode blacklist flag: %w", err)
	}
	return &flag, nil
}
