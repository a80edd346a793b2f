package hasura

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"asset-tokenization-kit/internal/domain"
	"asset-tokenization-kit/internal/graphql"
)

// Client implements Metadata over Hasura's GraphQL API.
type Client struct {
	gql *graphql.Client
}

// NewClient wraps a GraphQL client pointed at Hasura. Build gql with
// graphql.WithHeader(AdminSecretHeader, secret).
func NewClient(gql *graphql.Client) *Client {
	return &Client{gql: gql}
}

type wireAsset struct {
	ID                  string           `json:"id"`
	Private             bool             `json:"private"`
	ISIN                *string          `json:"isin"`
	ValueInBaseCurrency *decimal.Decimal `json:"value_in_base_currency"`
}

func (w wireAsset) toMetadata() domain.AssetMetadata {
	m := domain.AssetMetadata{
		ID:                  w.ID,
		Private:             w.Private,
		ValueInBaseCurrency: w.ValueInBaseCurrency,
	}
	if w.ISIN != nil {
		m.ISIN = *w.ISIN
	}
	return m
}

// AssetMetadata returns metadata for asset or nil.
func (c *Client) AssetMetadata(ctx context.Context, asset string) (*domain.AssetMetadata, error) {
	var out struct {
		Asset *wireAsset `json:"asset_by_pk"`
	}
	if err := c.gql.Do(ctx, "AssetMetadata", assetMetadataQuery, map[string]any{"id": strings.ToLower(asset)}, &out); err != nil {
		return nil, fmt.Errorf("asset metadata: %w", err)
	}
	if out.Asset == nil {
		return nil, nil
	}
	m := out.Asset.toMetadata()
	return &m, nil
}

// AssetMetadataBatch returns metadata for assets keyed by lower-case address.
func (c *Client) AssetMetadataBatch(ctx context.Context, assets []string) (map[string]domain.AssetMetadata, error) {
	result := make(map[string]domain.AssetMetadata, len(assets))
	if len(assets) == 0 {
		return result, nil
	}
	ids := make([]string, len(assets))
	for i, a := range assets {
		ids[i] = strings.ToLower(a)
	}
	var out struct {
		Assets []wireAsset `json:"asset"`
	}
	if err := c.gql.Do(ctx, "AssetMetadataBatch", assetMetadataBatchQuery, map[string]any{"ids": ids}, &out); err != nil {
		return nil, fmt.Errorf("asset metadata batch: %w", err)
	}
	for _, a := range out.Assets {
		result[strings.ToLower(a.ID)] = a.toMetadata()
	}
	return result, nil
}

// UpsertAssetMetadata inserts or replaces the metadata row.
func (c *Client) UpsertAssetMetadata(ctx context.Context, m domain.AssetMetadata) error {
	object := map[string]any{
		"id":      strings.ToLower(m.ID),
		"private": m.Private,
	}
	if m.ISIN != "" {
		object["isin"] = m.ISIN
	} else {
		object["isin"] = nil
	}
	if m.ValueInBaseCurrency != nil {
		object["value_in_base_currency"] = m.ValueInBaseCurrency.String()
	} else {
		object["value_in_base_currency"] = nil
	}
	if err := c.gql.Do(ctx, "UpsertAssetMetadata", upsertAssetMetadataMutation, map[string]any{"object": object}, nil); err != nil {
		return fmt.Errorf("upsert asset metadata: %w", err)
	}
	return nil
}

type wireDocument struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	ObjectKey   string    `json:"object_key"`
	UploadedBy  string    `json:"uploaded_by"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

type wireRegulationConfig struct {
	ID             string         `json:"id"`
	AssetID        string         `json:"asset_id"`
	RegulationType string         `json:"regulation_type"`
	Status         string         `json:"status"`
	ReserveStatus  *string        `json:"reserve_status"`
	LastAuditDate  *time.Time     `json:"last_audit_date"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	Documents      []wireDocument `json:"documents"`
}

func (w wireRegulationConfig) toConfig() domain.RegulationConfig {
	cfg := domain.RegulationConfig{
		ID:            w.ID,
		Asset:         w.AssetID,
		Type:          domain.RegulationType(w.RegulationType),
		Status:        domain.RegulationStatus(w.Status),
		LastAuditDate: w.LastAuditDate,
		CreatedAt:     w.CreatedAt,
		UpdatedAt:     w.UpdatedAt,
		Documents:     make([]domain.Document, len(w.Documents)),
	}
	if w.ReserveStatus != nil {
		cfg.ReserveStatus = domain.ReserveStatus(*w.ReserveStatus)
	}
	for i, d := range w.Documents {
		cfg.Documents[i] = domain.Document{
			ID:          d.ID,
			Asset:       w.AssetID,
			Kind:        domain.DocumentKind(d.Kind),
			FileName:    d.FileName,
			ContentType: d.ContentType,
			Size:        d.Size,
			ObjectKey:   d.ObjectKey,
			UploadedBy:  d.UploadedBy,
			UploadedAt:  d.UploadedAt,
		}
	}
	return cfg
}

// RegulationConfigs returns the regulation configs of asset.
func (c *Client) RegulationConfigs(ctx context.Context, asset string) ([]domain.RegulationConfig, error) {
	var out struct {
		Configs []wireRegulationConfig `json:"regulation_configs"`
	}
	if err := c.gql.Do(ctx, "RegulationConfigs", regulationConfigsQuery, map[string]any{"asset": strings.ToLower(asset)}, &out); err != nil {
		return nil, fmt.Errorf("regulation configs: %w", err)
	}
	configs := make([]domain.RegulationConfig, len(out.Configs))
	for i, w := range out.Configs {
		configs[i] = w.toConfig()
	}
	return configs, nil
}

// UpsertRegulationConfig inserts or updates the config for (asset, type).
func (c *Client) UpsertRegulationConfig(ctx context.Context, cfg domain.RegulationConfig) (*domain.RegulationConfig, error) {
	object := map[string]any{
		"asset_id":        strings.ToLower(cfg.Asset),
		"regulation_type": string(cfg.Type),
		"status":          string(cfg.Status),
		"updated_at":      time.Now().UTC(),
	}
	if cfg.ID != "" {
		object["id"] = cfg.ID
	}
	if cfg.ReserveStatus != "" {
		object["reserve_status"] = string(cfg.ReserveStatus)
	}
	if cfg.LastAuditDate != nil {
		object["last_audit_date"] = cfg.LastAuditDate.UTC()
	}
	var out struct {
		Config wireRegulationConfig `json:"insert_regulation_configs_one"`
	}
	if err := c.gql.Do(ctx, "UpsertRegulationConfig", upsertRegulationConfigMutation, map[string]any{"object": object}, &out); err != nil {
		return nil, fmt.Errorf("upsert regulation config: %w", err)
	}
	saved := out.Config.toConfig()
	return &saved, nil
}

// AddRegulationDocument attaches doc to the config.
func (c *Client) AddRegulationDocument(ctx context.Context, configID string, doc domain.Document) error {
	object := map[string]any{
		"id":                   doc.ID,
		"regulation_config_id": configID,
		"kind":                 string(doc.Kind),
		"file_name":            doc.FileName,
		"content_type":         doc.ContentType,
		"size":                 doc.Size,
		"object_key":           doc.ObjectKey,
		"uploaded_by":          doc.UploadedBy,
		"uploaded_at":          doc.UploadedAt.UTC(),
	}
	if err := c.gql.Do(ctx, "AddRegulationDocument", addRegulationDocumentMutation, map[string]any{"object": object}, nil); err != nil {
		return fmt.Errorf("add regulation document: %w", err)
	}
	return nil
}

// RemoveRegulationDocument deletes a document by id.
func (c *Client) RemoveRegulationDocument(ctx context.Context, documentID string) error {
	var out struct {
		Deleted *struct {
			ID string `json:"id"`
		} `json:"delete_regulation_documents_by_pk"`
	}
	if err := c.gql.Do(ctx, "RemoveRegulationDocument", removeRegulationDocumentMutation, map[string]any{"id": documentID}, &out); err != nil {
		return fmt.Errorf("remove regulation document: %w", err)
	}
	if out.Deleted == nil {
		return ErrNotFound
	}
	return nil
}

var _ Metadata = (*Client)(nil)
