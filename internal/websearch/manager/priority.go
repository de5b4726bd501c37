package manager

import (
	"sort"
	"strings"

	"github.com/lk2023060901/market-research-backend/internal/websearch/types"
	"github.com/lk2023060901/market-research-backend/internal/websearch/urlresolver"
)

// Score components
const (
	BaseScore      = 1.0
	PreferredBoost = 3.0
	BrazilianBoost = 2.0
)

// DefaultPreferredDomains are Brazilian business and tech news outlets
var DefaultPreferredDomains = []string{
	"g1.globo.com",
	"exame.com",
	"valor.globo.com",
	"estadao.com.br",
	"folha.uol.com.br",
	"canaltech.com.br",
	"tecmundo.com.br",
	"olhardigital.com.br",
	"infomoney.com.br",
	"startse.com",
	"revistapegn.globo.com",
	"epocanegocios.globo.com",
	"istoedinheiro.com.br",
}

// Prioritizer flags Brazilian and preferred sources and scores them
type Prioritizer struct {
	preferred []string
}

// NewPrioritizer builds a prioritizer; an empty list uses DefaultPreferredDomains
func NewPrioritizer(domains []string) *Prioritizer {
	if len(domains) == 0 {
		domains = DefaultPreferredDomains
	}
	p := &Prioritizer{preferred: make([]string, 0, len(domains))}
	for _, d := range domains {
		d = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(d)), "www.")
		if d != "" {
			p.preferred = append(p.preferred, d)
		}
	}
	return p
}

// IsPreferred reports whether host is, or is a subdomain of, a preferred domain
func (p *Prioritizer) IsPreferred(host string) bool {
	host = strings.ToLower(host)
	for _, d := range p.preferred {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

// IsBrazilian reports whether host looks Brazilian
func (p *Prioritizer) IsBrazilian(host string) bool {
	host = strings.ToLower(host)
	return strings.HasSuffix(host, ".br") || strings.Contains(host, "brasil") || p.IsPreferred(host)
}

// Annotate sets the locale flags and priority score of r
func (p *Prioritizer) Annotate(r *types.SearchResult) {
	host := urlresolver.Host(r.URL)
	r.IsPreferred = p.IsPreferred(host)
	r.IsBrazilian = p.IsBrazilian(host)

	r.PriorityScore = BaseScore
	switch {
	case r.IsPreferred:
		r.PriorityScore += PreferredBoost
	case r.IsBrazilian:
		r.PriorityScore += BrazilianBoost
	}
}

// Rank sorts results by descending score; ties keep their order
func Rank(results []*types.SearchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].PriorityScore > results[j].PriorityScore
	})
}

// Dedup keeps the first result of every exact URL and drops results whose
// URL is empty or lacks a scheme and host.
func Dedup(results []*types.SearchResult) []*types.SearchResult {
	seen := make(map[string]struct{}, len(results))
	out := make([]*types.SearchResult, 0, len(results))
	for _, r := range results {
		if r == nil || !urlresolver.IsValid(r.URL) {
			continue
		}
		if _, dup := seen[r.URL]; dup {
			continue
		}
		seen[r.URL] = struct{}{}
		out = append(out, r)
	}
	return out
}
