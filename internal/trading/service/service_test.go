package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"tessera/internal/ledger"
	"tessera/internal/paytoken"
	regmodels "tessera/internal/registry/models"
	"tessera/internal/trading/store"
	"tessera/pkg/domain"
	dErrors "tessera/pkg/domain-errors"
	"tessera/pkg/platform/events"
	"tessera/pkg/requestcontext"
)

const (
	custodian = domain.Address("custodian-1")
	escrow    = domain.Address("tessera-escrow")
	minHold   = 24 * time.Hour
)

type fakeAssets struct {
	assets map[domain.AssetID]*regmodels.Asset
}

func (f *fakeAssets) GetAsset(_ context.Context, assetID domain.AssetID) (*regmodels.Asset, error) {
	asset, ok := f.assets[assetID]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "asset not found")
	}
	detached := *asset
	return &detached, nil
}

type fakeGate struct {
	denied      map[domain.Address]string
	blacklisted map[domain.Address]bool
}

func (f *fakeGate) CanReceive(_ context.Context, _ domain.AssetID, addr domain.Address, _ domain.Shares) error {
	if reason, ok := f.denied[addr]; ok {
		return dErrors.New(dErrors.CodeComplianceDenied, reason)
	}
	return nil
}

func (f *fakeGate) IsBlacklisted(_ context.Context, addr domain.Address) (bool, error) {
	return f.blacklisted[addr], nil
}

// faultyBalances injects storage failures into selected operations.
type faultyBalances struct {
	*store.InMemory
	failTransfer bool
	failClock    bool
}

func (f *faultyBalances) Transfer(ctx context.Context, assetID domain.AssetID, from, to domain.Address, amount domain.Shares) error {
	if f.failTransfer {
		return errors.New("storage offline")
	}
	return f.InMemory.Transfer(ctx, assetID, from, to, amount)
}

func (f *faultyBalances) SetLastTransferAt(ctx context.Context, holder domain.Address, at time.Time) error {
	if f.failClock {
		return errors.New("storage offline")
	}
	return f.InMemory.SetLastTransferAt(ctx, holder, at)
}

// ceilingGate denies transfers that would push the post-operation balance
// over a fixed ceiling, reading the live balance like the real gate does.
type ceilingGate struct {
	balances *store.InMemory
	ceiling  domain.Shares
}

func (g *ceilingGate) CanReceive(ctx context.Context, assetID domain.AssetID, addr domain.Address, incoming domain.Shares) error {
	balance, err := g.balances.BalanceOf(ctx, assetID, addr)
	if err != nil {
		return err
	}
	if balance+incoming > g.ceiling {
		return dErrors.New(dErrors.CodeComplianceDenied, "transfer would exceed the holding ceiling")
	}
	return nil
}

func (g *ceilingGate) IsBlacklisted(context.Context, domain.Address) (bool, error) {
	return false, nil
}

type TradingEngineSuite struct {
	suite.Suite
	engine   *Engine
	assets   *fakeAssets
	gate     *fakeGate
	balances *store.InMemory
	pay      *paytoken.Memory
	sink     *events.Memory

	asset *regmodels.Asset
	now   time.Time
}

func (s *TradingEngineSuite) SetupTest() {
	s.now = time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)

	asset, err := regmodels.NewAsset("Downtown Loft", "real_estate", "Lisbon",
		domain.USDFromCents(100_000_000), "doc", "REG-1", custodian, s.now)
	s.Require().NoError(err)
	asset.ID = 0
	asset.ApplyTokenization(domain.Shares(1_000_000)) // 100 cents per share
	s.asset = asset

	s.assets = &fakeAssets{assets: map[domain.AssetID]*regmodels.Asset{asset.ID: asset}}
	s.gate = &fakeGate{denied: map[domain.Address]string{}, blacklisted: map[domain.Address]bool{}}
	s.balances = store.NewInMemory()
	s.pay = paytoken.NewMemory(escrow)
	s.sink = events.NewMemory()

	s.Require().NoError(s.balances.Credit(context.Background(), asset.ID, custodian, asset.TotalShares))

	s.engine = New(s.assets, s.gate, s.balances, s.pay, ledger.NewGuard(),
		escrow, minHold, WithEvents(s.sink))
}

func TestTradingEngineSuite(t *testing.T) {
	suite.Run(t, new(TradingEngineSuite))
}

func (s *TradingEngineSuite) ctxFor(addr domain.Address, at time.Time) context.Context {
	ctx := requestcontext.WithPrincipal(context.Background(), addr)
	return requestcontext.WithTime(ctx, at)
}

func (s *TradingEngineSuite) assertConservation() {
	total, err := s.balances.TotalByAsset(context.Background(), s.asset.ID)
	s.Require().NoError(err)
	s.Equal(s.asset.TotalShares, total)
}

func (s *TradingEngineSuite) TestPurchaseShares() {
	s.Run("settles against the unsold pool", func() {
		s.pay.Mint("alice", 200_000)

		trade, err := s.engine.PurchaseShares(s.ctxFor("alice", s.now), s.asset.ID, 1000)
		s.Require().NoError(err)

		s.Equal(domain.Shares(1000), trade.NewBalance)
		s.Equal(int64(100_000), trade.AmountUSD.Cents())

		aliceTokens, _ := s.pay.BalanceOf(context.Background(), "alice")
		s.Equal(domain.TokenUnits(100_000), aliceTokens)
		escrowed, _ := s.engine.EscrowBalance(context.Background())
		s.Equal(domain.TokenUnits(100_000), escrowed)

		pool, _ := s.engine.BalanceOf(context.Background(), s.asset.ID, custodian)
		s.Equal(domain.Shares(999_000), pool)
		s.assertConservation()
	})

	s.Run("insufficient payment balance aborts with no share movement", func() {
		s.pay.Mint("poor", 50)

		_, err := s.engine.PurchaseShares(s.ctxFor("poor", s.now), s.asset.ID, 1000)
		s.True(dErrors.HasCode(err, dErrors.CodeInsufficientFunds))

		balance, _ := s.engine.BalanceOf(context.Background(), s.asset.ID, "poor")
		s.Equal(domain.Shares(0), balance)
		s.assertConservation()
	})

	s.Run("compliance denial blocks the trade before payment", func() {
		s.pay.Mint("blocked", 1_000_000)
		s.gate.denied["blocked"] = "address is not whitelisted"

		_, err := s.engine.PurchaseShares(s.ctxFor("blocked", s.now), s.asset.ID, 10)
		s.True(dErrors.HasCode(err, dErrors.CodeComplianceDenied))

		tokens, _ := s.pay.BalanceOf(context.Background(), "blocked")
		s.Equal(domain.TokenUnits(1_000_000), tokens)
	})

	s.Run("order larger than the unsold pool is rejected", func() {
		s.pay.Mint("whale", 200_000_000)

		_, err := s.engine.PurchaseShares(s.ctxFor("whale", s.now), s.asset.ID, 1_000_001)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
		s.assertConservation()
	})

	s.Run("untradeable asset is rejected", func() {
		s.asset.Active = false
		s.assets.assets[s.asset.ID] = s.asset

		_, err := s.engine.PurchaseShares(s.ctxFor("alice", s.now), s.asset.ID, 1)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
		s.asset.Active = true
	})

	s.Run("emits a purchase event", func() {
		emitted := s.sink.ListByType(events.EventSharesPurchased)
		s.Require().NotEmpty(emitted)
		s.Equal(domain.Address("alice"), emitted[0].Principal)
	})
}

func (s *TradingEngineSuite) TestSellShares() {
	buy := func(addr domain.Address, shares domain.Shares) {
		s.pay.Mint(addr, 1_000_000)
		_, err := s.engine.PurchaseShares(s.ctxFor(addr, s.now), s.asset.ID, shares)
		s.Require().NoError(err)
	}

	s.Run("before the hold period elapses is rejected", func() {
		buy("alice", 1000)

		_, err := s.engine.SellShares(s.ctxFor("alice", s.now.Add(time.Hour)), s.asset.ID, 500)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("after the hold period pays proceeds then burns shares", func() {
		later := s.now.Add(minHold)

		trade, err := s.engine.SellShares(s.ctxFor("alice", later), s.asset.ID, 500)
		s.Require().NoError(err)
		s.Equal(domain.Shares(500), trade.NewBalance)

		tokens, _ := s.pay.BalanceOf(context.Background(), "alice")
		s.Equal(domain.TokenUnits(950_000), tokens) // minted 1m, paid 100k, 50k proceeds

		pool, _ := s.engine.BalanceOf(context.Background(), s.asset.ID, custodian)
		s.Equal(domain.Shares(999_500), pool)
		s.assertConservation()
	})

	s.Run("exceeding the held balance is rejected", func() {
		later := s.now.Add(minHold)
		_, err := s.engine.SellShares(s.ctxFor("alice", later), s.asset.ID, 501)
		s.True(dErrors.HasCode(err, dErrors.CodeInsufficientFunds))
	})

	s.Run("blacklisted seller is rejected", func() {
		s.gate.blacklisted["alice"] = true
		later := s.now.Add(minHold)

		_, err := s.engine.SellShares(s.ctxFor("alice", later), s.asset.ID, 100)
		s.True(dErrors.HasCode(err, dErrors.CodeComplianceDenied))
		delete(s.gate.blacklisted, "alice")
	})

	s.Run("drained escrow fails the whole call", func() {
		// Empty the escrow into an unrelated account.
		escrowed, _ := s.pay.BalanceOf(context.Background(), escrow)
		ok, err := s.pay.TransferFrom(context.Background(), escrow, "treasury", escrowed)
		s.Require().NoError(err)
		s.Require().True(ok)

		later := s.now.Add(minHold)
		_, err = s.engine.SellShares(s.ctxFor("alice", later), s.asset.ID, 100)
		s.True(dErrors.HasCode(err, dErrors.CodeInsufficientFunds))

		balance, _ := s.engine.BalanceOf(context.Background(), s.asset.ID, "alice")
		s.Equal(domain.Shares(500), balance)
		s.assertConservation()
	})
}

func (s *TradingEngineSuite) TestRepurchaseResetsHoldClock() {
	s.pay.Mint("bob", 1_000_000)

	_, err := s.engine.PurchaseShares(s.ctxFor("bob", s.now), s.asset.ID, 100)
	s.Require().NoError(err)

	// A second purchase just before the first lock expires re-locks the
	// whole position.
	almostFree := s.now.Add(minHold - time.Minute)
	_, err = s.engine.PurchaseShares(s.ctxFor("bob", almostFree), s.asset.ID, 100)
	s.Require().NoError(err)

	_, err = s.engine.SellShares(s.ctxFor("bob", s.now.Add(minHold)), s.asset.ID, 100)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))

	_, err = s.engine.SellShares(s.ctxFor("bob", almostFree.Add(minHold)), s.asset.ID, 100)
	s.NoError(err)
}

func (s *TradingEngineSuite) TestPortfolioSummary() {
	second, err := regmodels.NewAsset("Vineyard", "agriculture", "Douro",
		domain.USDFromCents(50_000_000), "doc", "REG-2", custodian, s.now)
	s.Require().NoError(err)
	second.ID = 1
	second.ApplyTokenization(domain.Shares(100_000)) // 500 cents per share
	s.assets.assets[second.ID] = second
	s.Require().NoError(s.balances.Credit(context.Background(), second.ID, custodian, second.TotalShares))

	s.pay.Mint("carol", 1_000_000)
	_, err = s.engine.PurchaseShares(s.ctxFor("carol", s.now), s.asset.ID, 1000)
	s.Require().NoError(err)
	_, err = s.engine.PurchaseShares(s.ctxFor("carol", s.now), second.ID, 200)
	s.Require().NoError(err)

	portfolio, err := s.engine.PortfolioSummary(context.Background(), "carol")
	s.Require().NoError(err)

	s.Require().Len(portfolio.Positions, 2)
	s.Equal(int64(100_000), portfolio.Positions[0].Value.Cents())
	s.Equal(int64(100_000), portfolio.Positions[1].Value.Cents())
	s.Equal(int64(200_000), portfolio.TotalValue.Cents())
	s.Equal(domain.TokenUnits(800_000), portfolio.TokenBalance)
}

// TestFailedSettlementCompensates covers the store failing mid-settlement:
// payments already moved must come back, never strand in escrow or with the
// counterparty.
func (s *TradingEngineSuite) TestFailedSettlementCompensates() {
	faulty := &faultyBalances{InMemory: s.balances}
	engine := New(s.assets, s.gate, faulty, s.pay, ledger.NewGuard(), escrow, minHold)

	s.Run("failed share delivery refunds the payment pull", func() {
		s.pay.Mint("dana", 200_000)
		faulty.failTransfer = true

		_, err := engine.PurchaseShares(s.ctxFor("dana", s.now), s.asset.ID, 1000)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
		faulty.failTransfer = false

		tokens, _ := s.pay.BalanceOf(context.Background(), "dana")
		s.Equal(domain.TokenUnits(200_000), tokens)
		escrowed, _ := s.pay.BalanceOf(context.Background(), escrow)
		s.Equal(domain.TokenUnits(0), escrowed)

		balance, _ := s.balances.BalanceOf(context.Background(), s.asset.ID, "dana")
		s.Equal(domain.Shares(0), balance)
		s.assertConservation()
	})

	s.Run("failed clock update rolls back shares and payment", func() {
		s.pay.Mint("erin", 200_000)
		faulty.failClock = true

		_, err := engine.PurchaseShares(s.ctxFor("erin", s.now), s.asset.ID, 1000)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
		faulty.failClock = false

		tokens, _ := s.pay.BalanceOf(context.Background(), "erin")
		s.Equal(domain.TokenUnits(200_000), tokens)
		balance, _ := s.balances.BalanceOf(context.Background(), s.asset.ID, "erin")
		s.Equal(domain.Shares(0), balance)
		s.assertConservation()
	})

	s.Run("failed share return reclaims sale proceeds", func() {
		s.pay.Mint("frank", 1_000_000)
		_, err := engine.PurchaseShares(s.ctxFor("frank", s.now), s.asset.ID, 1000)
		s.Require().NoError(err)

		faulty.failTransfer = true
		_, err = engine.SellShares(s.ctxFor("frank", s.now.Add(minHold)), s.asset.ID, 500)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
		faulty.failTransfer = false

		tokens, _ := s.pay.BalanceOf(context.Background(), "frank")
		s.Equal(domain.TokenUnits(900_000), tokens)
		escrowed, _ := s.pay.BalanceOf(context.Background(), escrow)
		s.Equal(domain.TokenUnits(100_000), escrowed)

		balance, _ := s.balances.BalanceOf(context.Background(), s.asset.ID, "frank")
		s.Equal(domain.Shares(1000), balance)
		s.assertConservation()
	})
}

// TestConcurrentPurchasesRespectCeiling races two buys that each clear the
// ceiling in isolation but together overshoot it. The check reads the balance
// under the engine lock, so exactly one order may settle.
func (s *TradingEngineSuite) TestConcurrentPurchasesRespectCeiling() {
	gate := &ceilingGate{balances: s.balances, ceiling: 1000}
	engine := New(s.assets, gate, s.balances, s.pay, ledger.NewGuard(), escrow, minHold)

	s.pay.Mint("grace", 1_000_000)

	var wg sync.WaitGroup
	var succeeded atomic.Int32
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := engine.PurchaseShares(s.ctxFor("grace", s.now), s.asset.ID, 600); err == nil {
				succeeded.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), succeeded.Load())
	balance, _ := s.balances.BalanceOf(context.Background(), s.asset.ID, "grace")
	s.Equal(domain.Shares(600), balance)
	s.assertConservation()
}
