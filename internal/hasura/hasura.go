// Package hasura reads and writes off-chain asset metadata and regulation
// records kept in Hasura.
package hasura

import (
	"context"
	"errors"

	"asset-tokenization-kit/internal/domain"
)

// AdminSecretHeader authenticates server-side Hasura calls.
const AdminSecretHeader = "X-Hasura-Admin-Secret"

// ErrNotFound is returned when a regulation document does not exist.
var ErrNotFound = errors.New("hasura: not found")

// Metadata defines the off-chain store used by the asset services.
type Metadata interface {
	// AssetMetadata returns metadata for one asset, or nil if none is stored.
	AssetMetadata(ctx context.Context, asset string) (*domain.AssetMetadata, error)

	// AssetMetadataBatch returns metadata for the given assets keyed by
	// lower-case address. Missing assets are absent from the map.
	AssetMetadataBatch(ctx context.Context, assets []string) (map[string]domain.AssetMetadata, error)

	// UpsertAssetMetadata inserts or replaces the metadata row.
	UpsertAssetMetadata(ctx context.Context, m domain.AssetMetadata) error

	// RegulationConfigs returns every regulation config of an asset with its documents.
	RegulationConfigs(ctx context.Context, asset string) ([]domain.RegulationConfig, error)

	// UpsertRegulationConfig inserts or updates a config keyed by asset and type.
	UpsertRegulationConfig(ctx context.Context, cfg domain.RegulationConfig) (*domain.RegulationConfig, error)

	// AddRegulationDocument attaches a document to a config.
	AddRegulationDocument(ctx context.Context, configID string, doc domain.Document) error

	// RemoveRegulationDocument deletes a document by id.
	RemoveRegulationDocument(ctx context.Context, documentID string) error
}
