package shortlink

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/fpang/ig-link-hub/internal/errutil"
	"github.com/fpang/ig-link-hub/internal/store"
)

// fakeLinkStore keeps links in a map and can be told to fail per method.
// Guarded by a mutex so tests can resolve concurrently.
type fakeLinkStore struct {
	store.Store
	mu          sync.Mutex
	links       map[string]*store.Link
	getErr      error
	putErr      error
	clickErr    error
	clickCalls  int
	listErr     error
	listByOwner []*store.Link
}

func newFakeLinkStore() *fakeLinkStore {
	return &fakeLinkStore{links: map[string]*store.Link{}}
}

func (f *fakeLinkStore) GetLink(_ context.Context, code string) (*store.Link, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.links[code], nil
}

func (f *fakeLinkStore) PutLink(_ context.Context, link *store.Link) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return f.putErr
	}
	f.links[link.Code] = link
	return nil
}

func (f *fakeLinkStore) RecordClick(_ context.Context, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clickCalls++
	if f.clickErr != nil {
		return f.clickErr
	}
	f.links[code].Clicks++
	return nil
}

func (f *fakeLinkStore) LinksByOwner(_ context.Context, _ string) ([]*store.Link, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.listByOwner, nil
}

func fixedNow() int64 { return 1756400000 }

func newTestService(st store.Store) *Service {
	return NewService(st, fixedNow)
}

func TestShorten_CreatesLink(t *testing.T) {
	st := newFakeLinkStore()
	svc := newTestService(st)

	link, err := svc.Shorten(context.Background(), "owner-1", "https://example.com/page")
	if err != nil {
		t.Fatalf("Shorten: %v", err)
	}
	if len(link.Code) != defaultCodeLength {
		t.Errorf("expected %d-char code, got %q", defaultCodeLength, link.Code)
	}
	for _, c := range link.Code {
		if !strings.ContainsRune(charset, c) {
			t.Errorf("code contains character outside charset: %q", c)
		}
	}
	if link.CreatedAt != fixedNow() {
		t.Errorf("expected createdAt %d, got %d", fixedNow(), link.CreatedAt)
	}
	if stored := st.links[link.Code]; stored == nil || stored.DestinationURL != "https://example.com/page" {
		t.Errorf("link not persisted correctly: %+v", stored)
	}
}

func TestShorten_RejectsInvalidDestinations(t *testing.T) {
	svc := newTestService(newFakeLinkStore())

	for _, dest := range []string{
		"",
		"not-a-url",
		"ftp://example.com/file",
		"javascript:alert(1)",
		"/relative/path",
	} {
		_, err := svc.Shorten(context.Background(), "owner", dest)
		if err == nil {
			t.Errorf("expected error for destination %q", dest)
			continue
		}
		if kind, ok := errutil.KindOf(err); !ok || kind != errutil.KindBadRequest {
			t.Errorf("expected KindBadRequest for %q, got %v", dest, err)
		}
	}
}

func TestShorten_StoreError(t *testing.T) {
	st := newFakeLinkStore()
	st.putErr = errors.New("dynamo down")
	svc := newTestService(st)

	_, err := svc.Shorten(context.Background(), "owner", "https://example.com")
	if err == nil {
		t.Fatal("expected error")
	}
	if kind, _ := errutil.KindOf(err); kind != errutil.KindStore {
		t.Errorf("expected KindStore, got %v", err)
	}
}

func TestResolve_RedirectsAndCounts(t *testing.T) {
	st := newFakeLinkStore()
	st.links["abc123"] = &store.Link{Code: "abc123", DestinationURL: "https://example.com/x"}
	svc := newTestService(st)

	res, err := svc.Resolve(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Status != Redirect || res.Destination != "https://example.com/x" {
		t.Errorf("unexpected resolution: %+v", res)
	}
	if st.links["abc123"].Clicks != 1 {
		t.Errorf("expected 1 click, got %d", st.links["abc123"].Clicks)
	}
}

func TestResolve_ConcurrentClicksAllCounted(t *testing.T) {
	st := newFakeLinkStore()
	st.links["abc123"] = &store.Link{Code: "abc123", DestinationURL: "https://example.com/x"}
	svc := newTestService(st)

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := svc.Resolve(context.Background(), "abc123")
			if err != nil || res.Status != Redirect {
				t.Errorf("Resolve: %v %+v", err, res)
			}
		}()
	}
	wg.Wait()

	if st.links["abc123"].Clicks != n {
		t.Errorf("expected %d clicks, got %d", n, st.links["abc123"].Clicks)
	}
}

func TestResolve_UnknownCode(t *testing.T) {
	svc := newTestService(newFakeLinkStore())

	res, err := svc.Resolve(context.Background(), "doesnotexist")
	if err != nil {
		t.Fatalf("expected no error for unknown code, got %v", err)
	}
	if res.Status != NotFound {
		t.Errorf("expected NotFound, got %+v", res)
	}
}

func TestResolve_IncrementFailureStillRedirects(t *testing.T) {
	st := newFakeLinkStore()
	st.links["abc123"] = &store.Link{Code: "abc123", DestinationURL: "https://example.com/x"}
	st.clickErr = errors.New("conditional check failed")
	svc := newTestService(st)

	res, err := svc.Resolve(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Status != Redirect || res.Destination != "https://example.com/x" {
		t.Errorf("expected redirect despite click failure, got %+v", res)
	}
	if st.clickCalls != 1 {
		t.Errorf("expected click attempt, got %d", st.clickCalls)
	}
}

func TestResolve_InvalidStoredDestination(t *testing.T) {
	st := newFakeLinkStore()
	st.links["bad"] = &store.Link{Code: "bad", DestinationURL: "javascript:alert(1)"}
	svc := newTestService(st)

	res, err := svc.Resolve(context.Background(), "bad")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Status != InvalidDestination {
		t.Errorf("expected InvalidDestination, got %+v", res)
	}
	if st.clickCalls != 0 {
		t.Errorf("expected no click for invalid destination, got %d", st.clickCalls)
	}
}

func TestGenerateCode_Distinct(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		code, err := generateCode(defaultCodeLength)
		if err != nil {
			t.Fatalf("generateCode: %v", err)
		}
		if len(code) != defaultCodeLength {
			t.Fatalf("expected length %d, got %d", defaultCodeLength, len(code))
		}
		seen[code] = true
	}
	// 100 draws from a 62^6 space colliding would point at a broken generator.
	if len(seen) != 100 {
		t.Errorf("expected 100 distinct codes, got %d", len(seen))
	}
}
