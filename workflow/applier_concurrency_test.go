package workflow

import (
	"errors"
	"sync"
	"testing"

	"github.com/alkholigroup2020/stock-management-system-sub004/models"
	"github.com/shopspring/decimal"
)

// NOTE: These tests are intentionally DB-free. They validate the optimistic
// protocol the appliers run against MySQL: read the position at a revision,
// compute the outcome, and commit only if the revision is unchanged, reloading
// and recomputing on conflict. An interleaving that loses an update or drives
// on-hand negative would show up here as a broken invariant.

type fakePositionStore struct {
	mu       sync.Mutex
	position models.StockPosition
}

func (s *fakePositionStore) load() models.StockPosition {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.position
}

func (s *fakePositionStore) compareAndSwap(read models.StockPosition, newOnHand, newWac decimal.Decimal) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.position.Revision != read.Revision {
		return false
	}
	s.position.OnHand = newOnHand
	s.position.Wac = newWac
	s.position.Revision++
	return true
}

// apply retries the read-compute-swap cycle until it commits or the outcome
// reports a domain error, mirroring mutateStockPosition.
func (s *fakePositionStore) apply(t *testing.T, outcome positionOutcome) error {
	t.Helper()
	for {
		read := s.load()
		newOnHand, newWac, err := outcome(&read)
		if err != nil {
			return err
		}
		if s.compareAndSwap(read, newOnHand, newWac) {
			return nil
		}
	}
}

func TestConcurrentReceiptsAndIssues_NeverLoseAnUpdate(t *testing.T) {
	store := &fakePositionStore{
		position: models.StockPosition{LocationId: 1, ItemId: 1, OnHand: dec("100"), Wac: dec("2.00")},
	}

	const (
		receipts = 50
		issues   = 50
	)
	var wg sync.WaitGroup
	var insufficientCount int64
	var countMu sync.Mutex

	for i := 0; i < receipts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.apply(t, func(p *models.StockPosition) (decimal.Decimal, decimal.Decimal, error) {
				return ReceiptOutcome(p, dec("1"), dec("2.00"))
			})
			if err != nil {
				t.Errorf("receipt failed: %v", err)
			}
		}()
	}
	for i := 0; i < issues; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.apply(t, func(p *models.StockPosition) (decimal.Decimal, decimal.Decimal, error) {
				newOnHand, newWac, _, err := IssueOutcome(p, dec("2"))
				if err != nil {
					return decimal.Zero, decimal.Zero, err
				}
				return newOnHand, newWac, nil
			})
			var insufficient *models.InsufficientStockError
			if errors.As(err, &insufficient) {
				countMu.Lock()
				insufficientCount++
				countMu.Unlock()
			} else if err != nil {
				t.Errorf("issue failed: %v", err)
			}
		}()
	}
	wg.Wait()

	final := store.load()
	if final.OnHand.IsNegative() {
		t.Fatalf("on_hand went negative: %s", final.OnHand)
	}
	// 100 + 50*1 - succeededIssues*2 must match exactly: no update lost.
	succeededIssues := int64(issues) - insufficientCount
	want := dec("100").Add(dec("50")).Sub(decimal.NewFromInt(succeededIssues).Mul(dec("2")))
	if !final.OnHand.Equal(want) {
		t.Fatalf("on_hand = %s, want %s (insufficient=%d)", final.OnHand, want, insufficientCount)
	}
	// All receipts at the existing wac: wac must still be 2.00.
	if !final.Wac.Equal(dec("2.00")) {
		t.Fatalf("wac = %s, want 2.00", final.Wac)
	}
	// Every committed mutation bumped the revision exactly once.
	wantRevision := int64(receipts) + succeededIssues
	if final.Revision != wantRevision {
		t.Fatalf("revision = %d, want %d", final.Revision, wantRevision)
	}
}

func TestConcurrentIssues_DrainExactlyToZero(t *testing.T) {
	store := &fakePositionStore{
		position: models.StockPosition{LocationId: 1, ItemId: 1, OnHand: dec("10"), Wac: dec("3.00")},
	}

	const workers = 20
	var wg sync.WaitGroup
	var succeeded int64
	var countMu sync.Mutex

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.apply(t, func(p *models.StockPosition) (decimal.Decimal, decimal.Decimal, error) {
				newOnHand, newWac, _, err := IssueOutcome(p, dec("1"))
				if err != nil {
					return decimal.Zero, decimal.Zero, err
				}
				return newOnHand, newWac, nil
			})
			if err == nil {
				countMu.Lock()
				succeeded++
				countMu.Unlock()
			}
		}()
	}
	wg.Wait()

	final := store.load()
	if succeeded != 10 {
		t.Fatalf("succeeded issues = %d, want exactly 10", succeeded)
	}
	if !final.OnHand.IsZero() {
		t.Fatalf("on_hand = %s, want 0", final.OnHand)
	}
	if !final.Wac.IsZero() {
		t.Fatalf("wac = %s, want reset to 0 when drained", final.Wac)
	}
}
