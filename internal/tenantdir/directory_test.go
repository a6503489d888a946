package tenantdir

import (
	"context"
	"errors"
	"testing"
	"time"

	tenantdomain "equiplink/internal/tenant/domain"
)

type fakeStore struct {
	kinds map[string]tenantdomain.Kind
	err   error
	calls int
}

func (s *fakeStore) GetKind(ctx context.Context, id string) (tenantdomain.Kind, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.kinds[id], nil
}

func TestDirectory_Kind_StoreFallthrough(t *testing.T) {
	store := &fakeStore{kinds: map[string]tenantdomain.Kind{"t-1": tenantdomain.KindHospital}}
	d := New(store, nil, time.Minute, time.Second, nil)

	kind, err := d.Kind(context.Background(), "t-1")
	if err != nil {
		t.Fatalf("Kind: %v", err)
	}
	if kind != tenantdomain.KindHospital {
		t.Errorf("kind = %q, want hospital", kind)
	}
}

func TestDirectory_Kind_MissingTenant(t *testing.T) {
	d := New(&fakeStore{kinds: map[string]tenantdomain.Kind{}}, nil, time.Minute, time.Second, nil)

	kind, err := d.Kind(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("Kind: %v", err)
	}
	if kind != "" {
		t.Errorf("kind = %q, want empty", kind)
	}
}

func TestDirectory_Kind_StoreErrorSurfaces(t *testing.T) {
	d := New(&fakeStore{err: errors.New("connection refused")}, nil, time.Minute, time.Second, nil)

	if _, err := d.Kind(context.Background(), "t-1"); err == nil {
		t.Fatal("want error, got nil")
	}
}

func TestDirectory_Kind_EmptyIDShortCircuits(t *testing.T) {
	store := &fakeStore{}
	d := New(store, nil, time.Minute, time.Second, nil)

	kind, err := d.Kind(context.Background(), "")
	if err != nil || kind != "" {
		t.Fatalf("kind = %q, err = %v", kind, err)
	}
	if store.calls != 0 {
		t.Errorf("store calls = %d, want 0", store.calls)
	}
}
