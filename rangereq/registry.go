package rangereq

import (
	"github.com/elliotchance/orderedmap/v3"

	"github.com/tsawler/rangeload/fetch"
)

// Registry maps identifiers to outstanding requests.
type Registry struct {
	requests *orderedmap.OrderedMap[Identifier, *Request]
	byFetch  map[fetch.Handle]Identifier
	nextID   Identifier
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		requests: orderedmap.NewOrderedMap[Identifier, *Request](),
		byFetch:  make(map[fetch.Handle]Identifier),
	}
}

// Create registers a new request under a fresh identifier.
func (g *Registry) Create(offset int64, count int, cont Continuation) *Request {
	g.nextID++
	r := newRequest(g.nextID, offset, count, cont)
	g.requests.Set(r.id, r)
	return r
}

// Get returns the request with the given identifier.
func (g *Registry) Get(id Identifier) (*Request, bool) {
	return g.requests.Get(id)
}

// Len returns the number of outstanding requests.
func (g *Registry) Len() int {
	return g.requests.Len()
}

// Pending returns the outstanding requests in creation order. The slice is a
// copy, so callers may complete and remove requests while ranging over it.
func (g *Registry) Pending() []*Request {
	out := make([]*Request, 0, g.requests.Len())
	for el := g.requests.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value)
	}
	return out
}

// FindContaining returns the oldest request whose window contains
// [offset, offset+count).
func (g *Registry) FindContaining(offset int64, count int) (*Request, bool) {
	for el := g.requests.Front(); el != nil; el = el.Next() {
		if el.Value.Contains(offset, count) {
			return el.Value, true
		}
	}
	return nil, false
}

// BindFetch records that h serves the request with the given identifier.
// It reports false when no such request is outstanding.
func (g *Registry) BindFetch(id Identifier, h fetch.Handle) bool {
	if _, ok := g.requests.Get(id); !ok {
		return false
	}
	g.byFetch[h] = id
	return true
}

// IdentifierForFetch returns the identifier bound to h.
func (g *Registry) IdentifierForFetch(h fetch.Handle) (Identifier, bool) {
	id, ok := g.byFetch[h]
	return id, ok
}

// RequestForFetch returns the outstanding request bound to h.
func (g *Registry) RequestForFetch(h fetch.Handle) (*Request, bool) {
	id, ok := g.byFetch[h]
	if !ok {
		return nil, false
	}
	return g.requests.Get(id)
}

// ForgetFetch drops the binding for h. The request itself stays registered.
func (g *Registry) ForgetFetch(h fetch.Handle) {
	delete(g.byFetch, h)
}

// CancelAndForgetFetch cancels h and drops its binding.
func (g *Registry) CancelAndForgetFetch(h fetch.Handle) {
	if h == nil {
		return
	}
	h.Cancel()
	g.ForgetFetch(h)
}

// Remove unregisters the request and any fetch binding it still holds.
func (g *Registry) Remove(id Identifier) (*Request, bool) {
	r, ok := g.requests.Get(id)
	if !ok {
		return nil, false
	}
	g.requests.Delete(id)
	if r.handle != nil {
		delete(g.byFetch, r.handle)
	}
	return r, true
}

// Clear unregisters every request and returns them in creation order.
func (g *Registry) Clear() []*Request {
	out := g.Pending()
	g.requests = orderedmap.NewOrderedMap[Identifier, *Request]()
	g.byFetch = make(map[fetch.Handle]Identifier)
	return out
}

// FetchCount returns the number of bound fetch handles.
func (g *Registry) FetchCount() int {
	return len(g.byFetch)
}
