package model

import (
	"net/http"
	"strings"

	apperrors "mongodb-rest/internal/shared/errors"
)

// AddressKind tags the resource an address refers to
type AddressKind int

const (
	// KindDatabaseList addresses the set of databases known to the store
	KindDatabaseList AddressKind = iota + 1
	// KindCollectionList addresses the collection names of one database
	KindCollectionList
	// KindCollection addresses the documents of one collection
	KindCollection
	// KindDocument addresses a single document by identifier
	KindDocument
)

// DefaultDatabasesKeyword is the single path segment that lists databases
const DefaultDatabasesKeyword = "databases"

func (k AddressKind) String() string {
	switch k {
	case KindDatabaseList:
		return "database_list"
	case KindCollectionList:
		return "collection_list"
	case KindCollection:
		return "collection"
	case KindDocument:
		return "document"
	default:
		return "unknown"
	}
}

// allowedMethods per address kind
var allowedMethods = map[AddressKind][]string{
	KindDatabaseList:   {http.MethodGet},
	KindCollectionList: {http.MethodGet},
	KindCollection:     {http.MethodGet, http.MethodPost},
	KindDocument:       {http.MethodGet, http.MethodPut, http.MethodDelete},
}

// Address is a parsed resource location. ID holds the raw identifier text;
// it is decoded by the dispatcher, not the router.
type Address struct {
	Kind       AddressKind
	Database   string
	Collection string
	ID         string
}

// AllowedMethods lists the HTTP methods the address supports
func (a Address) AllowedMethods() []string {
	return allowedMethods[a.Kind]
}

// Path renders the address back into its URL path
func (a Address) Path(keyword string) string {
	switch a.Kind {
	case KindDatabaseList:
		return "/" + keyword
	case KindCollectionList:
		return "/" + a.Database
	case KindCollection:
		return "/" + a.Database + "/" + a.Collection
	case KindDocument:
		return "/" + a.Database + "/" + a.Collection + "/" + a.ID
	default:
		return "/"
	}
}

// Router turns request paths into addresses
type Router struct {
	prefix  string
	keyword string
}

// NewRouter creates a router. prefix is stripped before parsing; keyword is
// the single segment that lists databases.
func NewRouter(prefix, keyword string) *Router {
	if keyword == "" {
		keyword = DefaultDatabasesKeyword
	}
	return &Router{
		prefix:  "/" + strings.Trim(prefix, "/"),
		keyword: keyword,
	}
}

// Keyword returns the database listing keyword
func (r *Router) Keyword() string {
	return r.keyword
}

// Route resolves method and path into an address. A path with no resource
// shape fails with a not-a-route error; a valid shape with an unsupported
// method fails with method-not-allowed.
func (r *Router) Route(method, path string) (Address, error) {
	segments, ok := r.split(path)
	if !ok {
		return Address{}, apperrors.NewNotARouteError(path)
	}

	var addr Address
	switch len(segments) {
	case 1:
		if segments[0] == r.keyword {
			addr = Address{Kind: KindDatabaseList}
		} else {
			addr = Address{Kind: KindCollectionList, Database: segments[0]}
		}
	case 2:
		addr = Address{Kind: KindCollection, Database: segments[0], Collection: segments[1]}
	case 3:
		addr = Address{Kind: KindDocument, Database: segments[0], Collection: segments[1], ID: segments[2]}
	default:
		return Address{}, apperrors.NewNotARouteError(path)
	}

	allowed := addr.AllowedMethods()
	for _, m := range allowed {
		if m == method {
			return addr, nil
		}
	}
	return addr, apperrors.NewMethodNotAllowedError(method, allowed)
}

// split strips the prefix and returns the non-empty segments. Empty inner
// segments make the path invalid; a single trailing slash is tolerated.
func (r *Router) split(path string) ([]string, bool) {
	if r.prefix != "/" {
		if path != r.prefix && !strings.HasPrefix(path, r.prefix+"/") {
			return nil, false
		}
		path = strings.TrimPrefix(path, r.prefix)
	}

	path = strings.TrimPrefix(path, "/")
	path = strings.TrimSuffix(path, "/")
	if path == "" {
		return nil, false
	}

	segments := strings.Split(path, "/")
	for _, s := range segments {
		if s == "" {
			return nil, false
		}
	}
	return segments, true
}
