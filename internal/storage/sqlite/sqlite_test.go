package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/tkhr/ecopoints/internal/models"
	"github.com/tkhr/ecopoints/internal/storage"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return store
}

func mustCreateUser(t *testing.T, store *SQLiteStore, externalID, name string) *models.User {
	t.Helper()

	user := &models.User{ExternalID: externalID, Name: name}
	if err := store.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("CreateUser(%s) failed: %v", externalID, err)
	}
	return user
}

func balanceOf(t *testing.T, store *SQLiteStore, externalID string) int64 {
	t.Helper()

	user, err := store.GetUserByExternalID(context.Background(), externalID)
	if err != nil {
		t.Fatalf("GetUserByExternalID failed: %v", err)
	}
	if user == nil {
		t.Fatalf("user %s not found", externalID)
	}
	return user.Points
}

func TestCreateUser(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("valid signup starts at zero points", func(t *testing.T) {
		user := &models.User{ExternalID: "123456789", Name: "Alice", Points: 42}
		if err := store.CreateUser(ctx, user); err != nil {
			t.Fatalf("CreateUser failed: %v", err)
		}
		if user.ID == "" {
			t.Error("Expected user ID to be generated")
		}
		if user.CreatedAt == 0 {
			t.Error("Expected CreatedAt to be set")
		}
		if got := balanceOf(t, store, "123456789"); got != 0 {
			t.Errorf("New user balance = %d, want 0", got)
		}
	})

	t.Run("rejects malformed external IDs", func(t *testing.T) {
		for _, id := range []string{"", "12345678", "1234567890", "12345678a", "abcdefghi", "12 456789"} {
			err := store.CreateUser(ctx, &models.User{ExternalID: id, Name: "Bob"})
			if !errors.Is(err, storage.ErrInvalidUserID) {
				t.Errorf("CreateUser(%q) error = %v, want ErrInvalidUserID", id, err)
			}
		}
	})

	t.Run("rejects duplicate external IDs", func(t *testing.T) {
		err := store.CreateUser(ctx, &models.User{ExternalID: "123456789", Name: "Impostor"})
		if !errors.Is(err, storage.ErrDuplicateUser) {
			t.Errorf("CreateUser error = %v, want ErrDuplicateUser", err)
		}
	})

	t.Run("lookup of unknown ID returns nil", func(t *testing.T) {
		user, err := store.GetUserByExternalID(ctx, "000000000")
		if err != nil {
			t.Fatalf("GetUserByExternalID failed: %v", err)
		}
		if user != nil {
			t.Errorf("Expected nil user, got %+v", user)
		}
	})
}

func TestListUsersByRank(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// Explicit timestamps pin the tie-break order.
	a := &models.User{ExternalID: "100000001", Name: "A", CreatedAt: 1}
	b := &models.User{ExternalID: "100000002", Name: "B", CreatedAt: 2}
	c := &models.User{ExternalID: "100000003", Name: "C", CreatedAt: 3}
	for _, u := range []*models.User{a, b, c} {
		if err := store.CreateUser(ctx, u); err != nil {
			t.Fatalf("CreateUser failed: %v", err)
		}
	}

	for _, credit := range []struct {
		userID string
		points int64
	}{{a.ID, 100}, {b.ID, 100}, {c.ID, 50}} {
		if _, err := store.Recycle(ctx, credit.userID, credit.points); err != nil {
			t.Fatalf("Recycle failed: %v", err)
		}
	}

	users, err := store.ListUsersByRank(ctx)
	if err != nil {
		t.Fatalf("ListUsersByRank failed: %v", err)
	}
	if len(users) != 3 {
		t.Fatalf("ListUsersByRank returned %d users, want 3", len(users))
	}

	want := []string{"A", "B", "C"}
	for i, u := range users {
		if u.Name != want[i] {
			t.Errorf("position %d = %s, want %s", i, u.Name, want[i])
		}
	}
}

func TestSeedItems(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	defaults := []models.Item{
		{Name: "Water", PricePoints: 10},
		{Name: "Drink", PricePoints: 15},
	}

	if err := store.SeedItems(ctx, defaults); err != nil {
		t.Fatalf("SeedItems failed: %v", err)
	}

	t.Run("seeded items are retrievable", func(t *testing.T) {
		item, err := store.GetItemByName(ctx, "Water")
		if err != nil {
			t.Fatalf("GetItemByName failed: %v", err)
		}
		if item == nil {
			t.Fatal("Water not found after seeding")
		}
		if item.PricePoints != 10 {
			t.Errorf("Water price = %d, want 10", item.PricePoints)
		}
	})

	t.Run("reseeding never overwrites a price", func(t *testing.T) {
		bumped := []models.Item{{Name: "Water", PricePoints: 99}, {Name: "Can", PricePoints: 20}}
		if err := store.SeedItems(ctx, bumped); err != nil {
			t.Fatalf("SeedItems failed: %v", err)
		}

		water, err := store.GetItemByName(ctx, "Water")
		if err != nil {
			t.Fatalf("GetItemByName failed: %v", err)
		}
		if water.PricePoints != 10 {
			t.Errorf("Water price after reseed = %d, want 10", water.PricePoints)
		}

		items, err := store.ListItems(ctx)
		if err != nil {
			t.Fatalf("ListItems failed: %v", err)
		}
		if len(items) != 3 {
			t.Errorf("ListItems returned %d items, want 3", len(items))
		}
	})

	t.Run("unknown item lookup returns nil", func(t *testing.T) {
		item, err := store.GetItemByName(ctx, "Gold Bar")
		if err != nil {
			t.Fatalf("GetItemByName failed: %v", err)
		}
		if item != nil {
			t.Errorf("Expected nil item, got %+v", item)
		}
	})
}

func TestRecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	user := mustCreateUser(t, store, "123456789", "Alice")

	t.Run("credits balance and appends entry", func(t *testing.T) {
		entry, err := store.Recycle(ctx, user.ID, 50)
		if err != nil {
			t.Fatalf("Recycle failed: %v", err)
		}
		if entry.Kind != models.KindRecycle {
			t.Errorf("Kind = %s, want %s", entry.Kind, models.KindRecycle)
		}
		if entry.PointsChange != 50 {
			t.Errorf("PointsChange = %d, want 50", entry.PointsChange)
		}
		if entry.ItemName != "" {
			t.Errorf("ItemName = %q, want empty", entry.ItemName)
		}
		if got := balanceOf(t, store, "123456789"); got != 50 {
			t.Errorf("Balance = %d, want 50", got)
		}
	})

	t.Run("rejects zero and negative amounts without state change", func(t *testing.T) {
		for _, points := range []int64{0, -5} {
			if _, err := store.Recycle(ctx, user.ID, points); !errors.Is(err, storage.ErrNonPositivePoints) {
				t.Errorf("Recycle(%d) error = %v, want ErrNonPositivePoints", points, err)
			}
		}
		if got := balanceOf(t, store, "123456789"); got != 50 {
			t.Errorf("Balance after rejected recycles = %d, want 50", got)
		}
		entries, err := store.ListTransactions(ctx, user.ID)
		if err != nil {
			t.Fatalf("ListTransactions failed: %v", err)
		}
		if len(entries) != 1 {
			t.Errorf("Ledger has %d entries, want 1", len(entries))
		}
	})

	t.Run("rejects unknown users", func(t *testing.T) {
		if _, err := store.Recycle(ctx, "no-such-id", 10); !errors.Is(err, storage.ErrUserNotFound) {
			t.Errorf("Recycle error = %v, want ErrUserNotFound", err)
		}
	})
}

func TestPurchase(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.SeedItems(ctx, []models.Item{{Name: "Water", PricePoints: 10}}); err != nil {
		t.Fatalf("SeedItems failed: %v", err)
	}
	user := mustCreateUser(t, store, "123456789", "Alice")

	t.Run("rejects unknown items", func(t *testing.T) {
		if _, err := store.Purchase(ctx, user.ID, "Unicorn"); !errors.Is(err, storage.ErrItemNotFound) {
			t.Errorf("Purchase error = %v, want ErrItemNotFound", err)
		}
	})

	t.Run("insufficient balance leaves state untouched", func(t *testing.T) {
		if _, err := store.Recycle(ctx, user.ID, 5); err != nil {
			t.Fatalf("Recycle failed: %v", err)
		}

		if _, err := store.Purchase(ctx, user.ID, "Water"); !errors.Is(err, storage.ErrInsufficientBalance) {
			t.Errorf("Purchase error = %v, want ErrInsufficientBalance", err)
		}
		if got := balanceOf(t, store, "123456789"); got != 5 {
			t.Errorf("Balance = %d, want 5", got)
		}
		entries, err := store.ListTransactions(ctx, user.ID)
		if err != nil {
			t.Fatalf("ListTransactions failed: %v", err)
		}
		if len(entries) != 1 {
			t.Errorf("Ledger has %d entries, want 1 (the recycle only)", len(entries))
		}
	})

	t.Run("debits balance and appends entry", func(t *testing.T) {
		if _, err := store.Recycle(ctx, user.ID, 45); err != nil {
			t.Fatalf("Recycle failed: %v", err)
		}

		entry, err := store.Purchase(ctx, user.ID, "Water")
		if err != nil {
			t.Fatalf("Purchase failed: %v", err)
		}
		if entry.Kind != models.KindBuy {
			t.Errorf("Kind = %s, want %s", entry.Kind, models.KindBuy)
		}
		if entry.ItemName != "Water" {
			t.Errorf("ItemName = %q, want Water", entry.ItemName)
		}
		if entry.PointsChange != -10 {
			t.Errorf("PointsChange = %d, want -10", entry.PointsChange)
		}
		if got := balanceOf(t, store, "123456789"); got != 40 {
			t.Errorf("Balance = %d, want 40", got)
		}
	})
}

// TestLedgerScenario walks the full signup-recycle-buy sequence: recycle 50,
// buy Water four times, then watch the fifth attempt bounce at 10 points.
func TestLedgerScenario(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.SeedItems(ctx, []models.Item{{Name: "Water", PricePoints: 10}}); err != nil {
		t.Fatalf("SeedItems failed: %v", err)
	}
	user := mustCreateUser(t, store, "123456789", "Alice")

	if _, err := store.Recycle(ctx, user.ID, 50); err != nil {
		t.Fatalf("Recycle failed: %v", err)
	}

	for i := 0; i < 4; i++ {
		if _, err := store.Purchase(ctx, user.ID, "Water"); err != nil {
			t.Fatalf("Purchase %d failed: %v", i+1, err)
		}
	}
	if got := balanceOf(t, store, "123456789"); got != 10 {
		t.Errorf("Balance after four purchases = %d, want 10", got)
	}

	if _, err := store.Purchase(ctx, user.ID, "Water"); !errors.Is(err, storage.ErrInsufficientBalance) {
		t.Errorf("Fifth purchase error = %v, want ErrInsufficientBalance", err)
	}
	if got := balanceOf(t, store, "123456789"); got != 10 {
		t.Errorf("Balance after rejected purchase = %d, want 10", got)
	}

	// The denormalized balance must equal the ledger sum at every boundary.
	entries, err := store.ListTransactions(ctx, user.ID)
	if err != nil {
		t.Fatalf("ListTransactions failed: %v", err)
	}
	if len(entries) != 5 {
		t.Fatalf("Ledger has %d entries, want 5", len(entries))
	}
	var sum int64
	for _, e := range entries {
		sum += e.PointsChange
	}
	if sum != 10 {
		t.Errorf("Ledger sum = %d, want 10", sum)
	}

	// Newest first.
	for i := 1; i < len(entries); i++ {
		if entries[i-1].CreatedAt < entries[i].CreatedAt {
			t.Errorf("entries out of order at %d: %d before %d", i, entries[i-1].CreatedAt, entries[i].CreatedAt)
		}
	}
	if entries[len(entries)-1].Kind != models.KindRecycle {
		t.Errorf("Oldest entry kind = %s, want %s", entries[len(entries)-1].Kind, models.KindRecycle)
	}
}

// TestConcurrentPurchases races two purchases against a balance that covers
// exactly one of them. Exactly one may win.
func TestConcurrentPurchases(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.SeedItems(ctx, []models.Item{{Name: "Water", PricePoints: 10}}); err != nil {
		t.Fatalf("SeedItems failed: %v", err)
	}
	user := mustCreateUser(t, store, "123456789", "Alice")
	if _, err := store.Recycle(ctx, user.ID, 10); err != nil {
		t.Fatalf("Recycle failed: %v", err)
	}

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Purchase(ctx, user.ID, "Water")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var successes, insufficient int
	for err := range results {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, storage.ErrInsufficientBalance):
			insufficient++
		default:
			t.Errorf("Unexpected purchase error: %v", err)
		}
	}
	if successes != 1 || insufficient != 1 {
		t.Errorf("Got %d successes and %d insufficient-balance errors, want 1 and 1", successes, insufficient)
	}

	if got := balanceOf(t, store, "123456789"); got != 0 {
		t.Errorf("Final balance = %d, want 0", got)
	}
	entries, err := store.ListTransactions(ctx, user.ID)
	if err != nil {
		t.Fatalf("ListTransactions failed: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("Ledger has %d entries, want 2 (one recycle, one buy)", len(entries))
	}
}
