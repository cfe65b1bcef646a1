package model

import (
	"net/http"
	"testing"

	apperrors "mongodb-rest/internal/shared/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouter_Route_Shapes(t *testing.T) {
	r := NewRouter("", "")

	tests := []struct {
		name   string
		method string
		path   string
		want   Address
	}{
		{"database list", http.MethodGet, "/databases", Address{Kind: KindDatabaseList}},
		{"collection list", http.MethodGet, "/shop", Address{Kind: KindCollectionList, Database: "shop"}},
		{"collection get", http.MethodGet, "/shop/orders", Address{Kind: KindCollection, Database: "shop", Collection: "orders"}},
		{"collection post", http.MethodPost, "/shop/orders", Address{Kind: KindCollection, Database: "shop", Collection: "orders"}},
		{"document get", http.MethodGet, "/shop/orders/abc", Address{Kind: KindDocument, Database: "shop", Collection: "orders", ID: "abc"}},
		{"document put", http.MethodPut, "/shop/orders/abc", Address{Kind: KindDocument, Database: "shop", Collection: "orders", ID: "abc"}},
		{"document delete", http.MethodDelete, "/shop/orders/abc", Address{Kind: KindDocument, Database: "shop", Collection: "orders", ID: "abc"}},
		{"trailing slash", http.MethodGet, "/shop/orders/", Address{Kind: KindCollection, Database: "shop", Collection: "orders"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Route(tt.method, tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRouter_Route_NotARoute(t *testing.T) {
	r := NewRouter("", "")

	for _, path := range []string{"", "/", "//", "/a//b", "/a/b/c/d", "/a/b/c/d/e", "//a"} {
		t.Run(path, func(t *testing.T) {
			_, err := r.Route(http.MethodGet, path)
			require.Error(t, err)
			assert.True(t, apperrors.IsNotARoute(err))
			assert.Equal(t, http.StatusNotFound, apperrors.HTTPStatus(err))
		})
	}
}

func TestRouter_Route_MethodNotAllowed(t *testing.T) {
	r := NewRouter("", "")

	tests := []struct {
		method  string
		path    string
		allowed []string
	}{
		{http.MethodPost, "/databases", []string{http.MethodGet}},
		{http.MethodDelete, "/shop", []string{http.MethodGet}},
		{http.MethodPut, "/shop/orders", []string{http.MethodGet, http.MethodPost}},
		{http.MethodDelete, "/shop/orders", []string{http.MethodGet, http.MethodPost}},
		{http.MethodPost, "/shop/orders/abc", []string{http.MethodGet, http.MethodPut, http.MethodDelete}},
		{http.MethodPatch, "/shop/orders/abc", []string{http.MethodGet, http.MethodPut, http.MethodDelete}},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			addr, err := r.Route(tt.method, tt.path)
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrMethodNotAllowed)
			assert.Equal(t, http.StatusMethodNotAllowed, apperrors.HTTPStatus(err))
			assert.Equal(t, tt.allowed, addr.AllowedMethods())
		})
	}
}

func TestRouter_Route_DoesNotValidateIdentifier(t *testing.T) {
	r := NewRouter("", "")

	addr, err := r.Route(http.MethodGet, "/db/c/not-an-object-id")
	require.NoError(t, err)
	assert.Equal(t, "not-an-object-id", addr.ID)
}

func TestRouter_Prefix(t *testing.T) {
	r := NewRouter("/api/v1/", "")

	addr, err := r.Route(http.MethodGet, "/api/v1/shop/orders")
	require.NoError(t, err)
	assert.Equal(t, Address{Kind: KindCollection, Database: "shop", Collection: "orders"}, addr)

	_, err = r.Route(http.MethodGet, "/api/v1")
	assert.True(t, apperrors.IsNotARoute(err))

	_, err = r.Route(http.MethodGet, "/shop/orders")
	assert.True(t, apperrors.IsNotARoute(err))

	_, err = r.Route(http.MethodGet, "/api/v10/shop")
	assert.True(t, apperrors.IsNotARoute(err))
}

func TestRouter_CustomKeyword(t *testing.T) {
	r := NewRouter("", "_all")
	assert.Equal(t, "_all", r.Keyword())

	addr, err := r.Route(http.MethodGet, "/_all")
	require.NoError(t, err)
	assert.Equal(t, KindDatabaseList, addr.Kind)

	addr, err = r.Route(http.MethodGet, "/databases")
	require.NoError(t, err)
	assert.Equal(t, KindCollectionList, addr.Kind)
	assert.Equal(t, "databases", addr.Database)
}

func TestAddress_Path(t *testing.T) {
	assert.Equal(t, "/databases", Address{Kind: KindDatabaseList}.Path("databases"))
	assert.Equal(t, "/shop", Address{Kind: KindCollectionList, Database: "shop"}.Path("databases"))
	assert.Equal(t, "/shop/orders", Address{Kind: KindCollection, Database: "shop", Collection: "orders"}.Path("databases"))
	assert.Equal(t, "/shop/orders/x", Address{Kind: KindDocument, Database: "shop", Collection: "orders", ID: "x"}.Path("databases"))
	assert.Equal(t, "document", KindDocument.String())
	assert.Equal(t, "unknown", AddressKind(0).String())
}
