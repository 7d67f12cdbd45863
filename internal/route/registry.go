package route

import (
	"fmt"
	"sort"
	"sync"
)

// Key identifies a resolver in the registry.
type Key struct {
	RouteType RouteType
	Provider  Provider
}

func (k Key) String() string {
	if k.Provider == AnyProvider {
		return string(k.RouteType)
	}
	return fmt.Sprintf("%s/%s", k.RouteType, k.Provider)
}

// Registry maps (route type, provider) pairs to resolvers. Resolvers registered
// under AnyProvider serve every provider for their route type.
type Registry struct {
	mu        sync.RWMutex
	resolvers map[Key]Resolver
}

// NewRegistry returns a registry holding the geometric resolvers.
func NewRegistry() *Registry {
	r := &Registry{resolvers: make(map[Key]Resolver)}
	r.Register(Euclidean2D, AnyProvider, Euclidean{})
	r.Register(Manhattan, AnyProvider, ManhattanRoute{})
	return r
}

// Register adds or replaces the resolver for the pair.
func (r *Registry) Register(rt RouteType, p Provider, res Resolver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolvers[Key{RouteType: rt, Provider: p}] = res
}

// Lookup returns the resolver for the pair, falling back to a provider-agnostic one.
func (r *Registry) Lookup(rt RouteType, p Provider) (Resolver, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if res, ok := r.resolvers[Key{RouteType: rt, Provider: p}]; ok {
		return res, nil
	}
	if res, ok := r.resolvers[Key{RouteType: rt, Provider: AnyProvider}]; ok {
		return res, nil
	}
	return nil, fmt.Errorf("%w: routeType=%q dataProvider=%q", ErrUnsupportedRoute, rt, p)
}

// Keys lists the registered pairs in a stable order.
func (r *Registry) Keys() []Key {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]Key, 0, len(r.resolvers))
	for k := range r.resolvers {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys
}
