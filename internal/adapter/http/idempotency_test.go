package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmandke/vending-machine/internal/adapter/http/middleware"
	"github.com/vmandke/vending-machine/internal/directory"
	domain "github.com/vmandke/vending-machine/internal/entity"
	"github.com/vmandke/vending-machine/internal/usecase"
	"golang.org/x/crypto/bcrypt"
)

type fakeIdemStore struct {
	locks  map[string]bool
	values map[string]string
}

func newFakeIdemStore() *fakeIdemStore {
	return &fakeIdemStore{locks: map[string]bool{}, values: map[string]string{}}
}

func (s *fakeIdemStore) TryLock(_ context.Context, scope, key string) (bool, error) {
	k := scope + ":" + key
	if s.locks[k] {
		return false, nil
	}
	s.locks[k] = true
	return true, nil
}

func (s *fakeIdemStore) Remember(_ context.Context, scope, key, value string) error {
	s.values[scope+":"+key] = value
	return nil
}

func (s *fakeIdemStore) Recall(_ context.Context, scope, key string) (string, bool, error) {
	v, ok := s.values[scope+":"+key]
	return v, ok, nil
}

type fakeCatalog struct {
	entries map[string]domain.Product
	hits    int
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{entries: map[string]domain.Product{}}
}

func (f *fakeCatalog) SetProduct(_ context.Context, p domain.Product) error {
	f.entries[p.Name] = p
	return nil
}

func (f *fakeCatalog) GetProduct(_ context.Context, name string) (domain.Product, bool, error) {
	p, ok := f.entries[name]
	if ok {
		f.hits++
	}
	return p, ok, nil
}

func (f *fakeCatalog) Invalidate(_ context.Context, name string) error {
	delete(f.entries, name)
	return nil
}

func newCachedRouter(t *testing.T) (*gin.Engine, *fakeIdemStore, *fakeCatalog) {
	t.Helper()
	cfg := testConfig()
	machine := usecase.NewMachine(directory.New(bcrypt.MinCost), nil)
	idem := newFakeIdemStore()
	catalog := newFakeCatalog()
	exit := func() { t.Fatal("machine shut down unexpectedly") }
	h := NewMachineHandler(machine, catalog, idem, exit)
	oh := NewOperatorHandler(machine)
	th := NewTokenHandler(cfg)
	return NewRouter(h, oh, th, middleware.NewAuthz(cfg), exit), idem, catalog
}

func TestBuyIdempotency(t *testing.T) {
	r, _, _ := newCachedRouter(t)
	registerUser(t, r, "seller", "seller", "pw")
	registerUser(t, r, "buyer", "buyer", "pw")
	doJSON(r, http.MethodPut, "/v1/products", `{"name":"cola","price":15,"stock":10}`, "seller", "pw")
	doJSON(r, http.MethodPut, "/v1/users/deposit",
		`{"n5":1,"n10":1,"n20":1,"n50":0,"n100":0}`, "buyer", "pw")

	buy := func(key string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/v1/products/buy?product_name=cola&count=1", nil)
		req.SetBasicAuth("buyer", "pw")
		req.Header.Set("X-Idempotency-Key", key)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	first := buy("key-1")
	require.Equal(t, http.StatusOK, first.Code)
	assert.JSONEq(t, `{"n5":0,"n10":0,"n20":1,"n50":0,"n100":0}`, first.Body.String())

	// the replay returns the original wallet without vending again
	second := buy("key-1")
	require.Equal(t, http.StatusOK, second.Code)
	assert.JSONEq(t, first.Body.String(), second.Body.String())

	w := doJSON(r, http.MethodGet, "/v1/products/cola", "")
	var p domain.Product
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
	assert.Equal(t, 9, p.Stock)
}

func TestCatalogCache(t *testing.T) {
	r, _, catalog := newCachedRouter(t)
	registerUser(t, r, "seller", "seller", "pw")
	doJSON(r, http.MethodPut, "/v1/products", `{"name":"cola","price":15,"stock":10}`, "seller", "pw")

	// miss, fill, then hit
	doJSON(r, http.MethodGet, "/v1/products/cola", "")
	assert.Equal(t, 0, catalog.hits)
	doJSON(r, http.MethodGet, "/v1/products/cola", "")
	assert.Equal(t, 1, catalog.hits)

	// restocking invalidates the entry
	doJSON(r, http.MethodPut, "/v1/products", `{"name":"cola","price":15,"stock":5}`, "seller", "pw")
	w := doJSON(r, http.MethodGet, "/v1/products/cola", "")
	assert.Equal(t, 1, catalog.hits)
	assert.Contains(t, w.Body.String(), `"stock":15`)
}
