package social

import (
	"sort"
	"strings"
)

// Provider describes an OAuth provider offered on the sign in page.
type Provider struct {
	// Name is the identifier used in routes, e.g. "microsoft".
	Name string `json:"name"`
	// Label is shown on the sign in button.
	Label string `json:"label"`
	// Upstream is the identifier the identity server knows the provider
	// by. Defaults to Name.
	Upstream string `json:"-"`
	// Scopes is a space separated scope list sent with the authorize call.
	Scopes string `json:"-"`
	// Order controls the button order, lowest first.
	Order int `json:"-"`
}

func (p Provider) upstream() string {
	if p.Upstream != "" {
		return p.Upstream
	}
	return p.Name
}

// DefaultProviders returns the providers shown on the sign in page.
func DefaultProviders() []Provider {
	return []Provider{
		{Name: "microsoft", Label: "Microsoft", Upstream: "azure", Scopes: "email", Order: 0},
		{Name: "google", Label: "Google", Order: 1},
		{Name: "github", Label: "GitHub", Order: 2},
	}
}

// Registry holds the configured providers.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry creates a registry with the given providers.
func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: map[string]Provider{}}
	for _, p := range providers {
		r.Register(p)
	}
	return r
}

// Register adds or replaces a provider. Entries without a name are ignored.
func (r *Registry) Register(p Provider) {
	name := strings.ToLower(strings.TrimSpace(p.Name))
	if name == "" {
		return
	}
	p.Name = name
	if p.Label == "" {
		p.Label = p.Name
	}
	r.providers[name] = p
}

// Get returns the named provider.
func (r *Registry) Get(name string) (Provider, error) {
	p, ok := r.providers[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Provider{}, ErrProviderNotFound
	}
	return p, nil
}

// List returns providers in display order.
func (r *Registry) List() []Provider {
	out := make([]Provider, 0, len(r.providers))
	for _, p := range r.providers {
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].Name < out[j].Name
	})
	return out
}
