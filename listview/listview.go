// Package listview provides handlers that combine object lists with append
// forms, direct deletion, and create-then-edit redirects.
package listview

import (
	"context"
	"fmt"
	"strings"

	"github.com/louisbranch/viewkit/routes"
	"github.com/louisbranch/viewkit/weberror"
)

// Query describes one page of a list request.
type Query struct {
	Filter   string
	OrderBy  string
	Page     int
	PageSize int
	Expand   []string
}

// PageDefaults configures page size normalization.
type PageDefaults struct {
	Size    int
	MaxSize int
}

// Clamp applies defaults and limits to a requested page size.
func (d PageDefaults) Clamp(size int) int {
	if size <= 0 {
		size = d.Size
	}
	if d.MaxSize > 0 && size > d.MaxSize {
		size = d.MaxSize
	}
	if size <= 0 {
		size = 1
	}
	return size
}

// NormalizeOrderBy validates order_by against the allowed list. An empty
// value resolves to the first allowed entry.
func NormalizeOrderBy(orderBy string, allowed []string) (string, error) {
	if orderBy == "" {
		if len(allowed) == 0 {
			return "", nil
		}
		return allowed[0], nil
	}
	for _, candidate := range allowed {
		if orderBy == candidate {
			return orderBy, nil
		}
	}
	return "", weberror.EK(weberror.KindInvalidInput, "list.invalid_order_by", fmt.Sprintf("invalid order_by: %s", orderBy))
}

// Source loads one page of items for a list view.
type Source[T any] interface {
	List(ctx context.Context, q Query) (Result[T], error)
}

// Result is one page of items plus the pre-pagination total.
type Result[T any] struct {
	Items      []T
	TotalCount int
}

// RouteRef names a registered route. IDParam, when set, is the route
// parameter that receives a created object's id during reversal.
type RouteRef struct {
	Registry *routes.Registry
	Name     string
	IDParam  string
}

func (ref RouteRef) isZero() bool {
	return ref.Registry == nil && strings.TrimSpace(ref.Name) == ""
}

func (ref RouteRef) validate() error {
	if ref.Registry == nil {
		return weberror.Config("listview", "a route registry is required")
	}
	if strings.TrimSpace(ref.Name) == "" {
		return weberror.Config("listview", "a route name is required")
	}
	return nil
}

func (ref RouteRef) reverse(id string) (string, error) {
	param := strings.TrimSpace(ref.IDParam)
	if param == "" {
		return ref.Registry.Reverse(ref.Name, nil)
	}
	return ref.Registry.Reverse(ref.Name, map[string]string{param: id})
}
