package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/danmuck/deskctl/internal/config"
	"github.com/danmuck/deskctl/internal/db"
	"github.com/danmuck/deskctl/internal/testutil/testlog"
)

func storesUnderTest(t *testing.T, now func() time.Time) map[string]Store {
	t.Helper()
	mem := NewMemoryStore()
	mem.now = now

	handle, err := db.Open(context.Background(), config.DatabaseConfig{Driver: "sqlite", DSN: ":memory:"})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { handle.Close() })
	sqlStore := NewSQLStore(handle)
	sqlStore.now = now

	return map[string]Store{"memory": mem, "sql": sqlStore}
}

func TestActiveCountsByTypeAndIdle(t *testing.T) {
	testlog.Start(t)
	base := time.Unix(1_700_000_000, 0)
	now := func() time.Time { return base }

	for name, store := range storesUnderTest(t, now) {
		ctx := context.Background()
		fresh, err := store.Create(ctx, Session{UserLogin: "alice"})
		if err != nil {
			t.Fatalf("%s create: %v", name, err)
		}
		if _, err := store.Create(ctx, Session{UserLogin: "bob", LastAccess: base.Add(-3 * time.Hour)}); err != nil {
			t.Fatalf("%s create stale: %v", name, err)
		}
		if _, err := store.Create(ctx, Session{UserLogin: "carol", UserType: UserTypeCustomer}); err != nil {
			t.Fatalf("%s create customer: %v", name, err)
		}

		n, err := store.Active(ctx, UserTypeAgent, 2*time.Hour)
		if err != nil || n != 1 {
			t.Fatalf("%s: expected 1 active agent, got %d err=%v", name, n, err)
		}
		n, err = store.Active(ctx, UserTypeAgent, 0)
		if err != nil || n != 2 {
			t.Fatalf("%s: expected 2 agents without idle limit, got %d err=%v", name, n, err)
		}
		n, err = store.Active(ctx, UserTypeCustomer, 2*time.Hour)
		if err != nil || n != 1 {
			t.Fatalf("%s: expected 1 customer, got %d err=%v", name, n, err)
		}

		if err := store.Delete(ctx, fresh); err != nil {
			t.Fatalf("%s delete: %v", name, err)
		}
		if err := store.Delete(ctx, fresh); !errors.Is(err, ErrSessionNotFound) {
			t.Fatalf("%s: expected ErrSessionNotFound, got %v", name, err)
		}
		n, _ = store.Active(ctx, UserTypeAgent, 2*time.Hour)
		if n != 0 {
			t.Fatalf("%s: expected 0 active agents after delete, got %d", name, n)
		}
	}
}

func TestTouchRevivesSession(t *testing.T) {
	testlog.Start(t)
	base := time.Unix(1_700_000_000, 0)
	now := func() time.Time { return base }

	for name, store := range storesUnderTest(t, now) {
		ctx := context.Background()
		id, err := store.Create(ctx, Session{UserLogin: "dave", LastAccess: base.Add(-5 * time.Hour)})
		if err != nil {
			t.Fatalf("%s create: %v", name, err)
		}
		if err := store.Touch(ctx, id, base); err != nil {
			t.Fatalf("%s touch: %v", name, err)
		}
		n, _ := store.Active(ctx, UserTypeAgent, time.Hour)
		if n != 1 {
			t.Fatalf("%s: expected touched session active, got %d", name, n)
		}
		if err := store.Touch(ctx, "missing", base); !errors.Is(err, ErrSessionNotFound) {
			t.Fatalf("%s: expected ErrSessionNotFound, got %v", name, err)
		}
	}
}

func TestCreateValidates(t *testing.T) {
	testlog.Start(t)
	store := NewMemoryStore()
	ctx := context.Background()
	if _, err := store.Create(ctx, Session{UserLogin: "  "}); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession for blank login, got %v", err)
	}
	if _, err := store.Create(ctx, Session{UserLogin: "eve", UserType: "Robot"}); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession for bad type, got %v", err)
	}
	id, err := store.Create(ctx, Session{UserLogin: "eve"})
	if err != nil || len(id) != 36 {
		t.Fatalf("expected uuid session id, got %q err=%v", id, err)
	}
	if got := store.List(); len(got) != 1 || got[0].UserType != UserTypeAgent {
		t.Fatalf("unexpected sessions %+v", got)
	}
}
