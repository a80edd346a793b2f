// Package stub provides an in-memory Hasura metadata store.
package stub

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"asset-tokenization-kit/internal/domain"
	"asset-tokenization-kit/internal/hasura"
)

// Metadata implements hasura.Metadata in memory.
type Metadata struct {
	mu      sync.RWMutex
	assets  map[string]domain.AssetMetadata
	configs map[string]*domain.RegulationConfig // id -> config
}

// NewMetadata creates an empty store.
func NewMetadata() *Metadata {
	return &Metadata{
		assets:  make(map[string]domain.AssetMetadata),
		configs: make(map[string]*domain.RegulationConfig),
	}
}

// AssetMetadata returns metadata for asset or nil.
func (s *Metadata) AssetMetadata(ctx context.Context, asset string) (*domain.AssetMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.assets[strings.ToLower(asset)]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

// AssetMetadataBatch returns metadata for assets keyed by lower-case address.
func (s *Metadata) AssetMetadataBatch(ctx context.Context, assets []string) (map[string]domain.AssetMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]domain.AssetMetadata, len(assets))
	for _, a := range assets {
		if m, ok := s.assets[strings.ToLower(a)]; ok {
			out[strings.ToLower(a)] = m
		}
	}
	return out, nil
}

// UpsertAssetMetadata inserts or replaces the metadata row.
func (s *Metadata) UpsertAssetMetadata(ctx context.Context, m domain.AssetMetadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m.ID = strings.ToLower(m.ID)
	s.assets[m.ID] = m
	return nil
}

// RegulationConfigs returns configs of asset.
func (s *Metadata) RegulationConfigs(ctx context.Context, asset string) ([]domain.RegulationConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.RegulationConfig
	for _, c := range s.configs {
		if c.Asset == strings.ToLower(asset) {
			cp := *c
			cp.Documents = append([]domain.Document(nil), c.Documents...)
			out = append(out, cp)
		}
	}
	return out, nil
}

// UpsertRegulationConfig inserts or updates the config for (asset, type).
func (s *Metadata) UpsertRegulationConfig(ctx context.Context, cfg domain.RegulationConfig) (*domain.RegulationConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	cfg.Asset = strings.ToLower(cfg.Asset)
	for _, existing := range s.configs {
		if existing.Asset == cfg.Asset && existing.Type == cfg.Type {
			existing.Status = cfg.Status
			if cfg.ReserveStatus != "" {
				existing.ReserveStatus = cfg.ReserveStatus
			}
			if cfg.LastAuditDate != nil {
				existing.LastAuditDate = cfg.LastAuditDate
			}
			existing.UpdatedAt = now
			cp := *existing
			return &cp, nil
		}
	}
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	cfg.CreatedAt, cfg.UpdatedAt = now, now
	s.configs[cfg.ID] = &cfg
	cp := cfg
	return &cp, nil
}

// AddRegulationDocument attaches doc to the config.
func (s *Metadata) AddRegulationDocument(ctx context.Context, configID string, doc domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.configs[configID]
	if !ok {
		return hasura.ErrNotFound
	}
	doc.Asset = c.Asset
	c.Documents = append([]domain.Document{doc}, c.Documents...)
	return nil
}

// RemoveRegulationDocument deletes a document by id.
func (s *Metadata) RemoveRegulationDocument(ctx context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.configs {
		for i, d := range c.Documents {
			if d.ID == documentID {
				c.Documents = append(c.Documents[:i], c.Documents[i+1:]...)
				return nil
			}
		}
	}
	return hasura.ErrNotFound
}

var _ hasura.Metadata = (*Metadata)(nil)
