package credstore

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
)

func testRecord(deviceID string) *Record {
	return &Record{
		DeviceID:     deviceID,
		AccessToken:  "access-" + deviceID,
		RefreshToken: "refresh-" + deviceID,
		ExpiresIn:    3600,
		Timestamp:    1700000000,
	}
}

func TestMemoryStoreCRUD(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	deviceID := uuid.NewString()

	if _, err := store.Get(ctx, deviceID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get on empty store: want ErrNotFound, got %v", err)
	}
	if err := store.Update(ctx, testRecord(deviceID)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Update on empty store: want ErrNotFound, got %v", err)
	}
	if err := store.Delete(ctx, deviceID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Delete on empty store: want ErrNotFound, got %v", err)
	}

	record := testRecord(deviceID)
	if err := store.Put(ctx, record); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := store.Get(ctx, deviceID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if *got != *record {
		t.Errorf("Get: got %+v, want %+v", got, record)
	}

	record.AccessToken = "rotated-access"
	if err := store.Update(ctx, record); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, err = store.Get(ctx, deviceID)
	if err != nil {
		t.Fatalf("Get after Update: %v", err)
	}
	if got.AccessToken != "rotated-access" {
		t.Errorf("Update not applied: got %q", got.AccessToken)
	}

	if err := store.Delete(ctx, deviceID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Get(ctx, deviceID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get after Delete: want ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	deviceID := uuid.NewString()

	if err := store.Put(ctx, testRecord(deviceID)); err != nil {
		t.Fatal(err)
	}

	first, err := store.Get(ctx, deviceID)
	if err != nil {
		t.Fatal(err)
	}
	first.AccessToken = "mutated by caller"

	second, err := store.Get(ctx, deviceID)
	if err != nil {
		t.Fatal(err)
	}
	if second.AccessToken != "access-"+deviceID {
		t.Errorf("caller mutation leaked into store: got %q", second.AccessToken)
	}
}

func TestMemoryStoreCancelledContext(t *testing.T) {
	store := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := store.Get(ctx, "any"); !errors.Is(err, context.Canceled) {
		t.Errorf("Get: want context.Canceled, got %v", err)
	}
	if err := store.Put(ctx, testRecord("any")); !errors.Is(err, context.Canceled) {
		t.Errorf("Put: want context.Canceled, got %v", err)
	}
}
