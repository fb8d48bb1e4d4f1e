package scanner

import (
	"context"
	"fmt"
	"time"

	"ThreatDigest/internal/domain"
)

// Request carries all parameters required to execute a scan.
type Request struct {
	Since  time.Time
	Source domain.SourceDescriptor
}

// Scanner captures a single fetch strategy (arXiv listing, RSS feed, ...).
type Scanner interface {
	Name() string
	Scan(ctx context.Context, req Request) ([]domain.RawItem, error)
}

// Registry keeps a mapping from scanner names to their implementations.
type Registry struct {
	scanners map[string]Scanner
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{scanners: map[string]Scanner{}}
}

// Register adds or replaces a scanner implementation.
func (r *Registry) Register(scanner Scanner) {
	if r.scanners == nil {
		r.scanners = map[string]Scanner{}
	}
	r.scanners[scanner.Name()] = scanner
}

// Resolve returns a scanner by name or an error if it is absent.
func (r *Registry) Resolve(name string) (Scanner, error) {
	if scanner, ok := r.scanners[name]; ok {
		return scanner, nil
	}
	return nil, fmt.Errorf("scanner %s is not registered", name)
}

// RawItemFor stamps source metadata onto a scanned record.
func RawItemFor(src domain.SourceDescriptor, item domain.RawItem) domain.RawItem {
	if item.SourceName == "" {
		item.SourceName = src.Name
	}
	if item.Category == "" {
		item.Category = src.Category
	}
	if item.Tier == "" {
		item.Tier = string(src.Tier)
	}
	return item
}
