// Package documents manages regulatory files: object storage for the bytes,
// Postgres for the records and Hasura for the regulation configs they
// belong to.
package documents

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"asset-tokenization-kit/internal/domain"
	"asset-tokenization-kit/internal/hasura"
	"asset-tokenization-kit/internal/logging"
	"asset-tokenization-kit/internal/objectstore"
	"asset-tokenization-kit/internal/storage"
)

// DefaultMaxSize is the largest accepted upload.
const DefaultMaxSize = 10 << 20

var (
	ErrForbidden       = errors.New("not allowed for this user")
	ErrNotFound        = errors.New("document not found")
	ErrTooLarge        = errors.New("document exceeds the size limit")
	ErrContentType     = errors.New("unsupported document content type")
	ErrInvalidFileName = errors.New("invalid file name")
)

var allowedTypes = map[string]bool{
	"application/pdf": true,
	"image/png":       true,
	"image/jpeg":      true,
	"text/plain":      true,
	"text/csv":        true,
}

// Service uploads, lists and removes documents.
type Service struct {
	objects       objectstore.Store
	docs          storage.DocumentStore
	metadata      hasura.Metadata
	maxSize       int64
	presignExpiry time.Duration
	now           func() time.Time
	log           *logrus.Entry
}

// Options contains configuration for creating a Service.
type Options struct {
	Objects       objectstore.Store     // required
	Documents     storage.DocumentStore // required
	Metadata      hasura.Metadata       // required
	MaxSize       int64                 // Default: 10 MiB
	PresignExpiry time.Duration         // Default: objectstore.DefaultPresignExpiry
	Logger        logrus.FieldLogger
	Now           func() time.Time
}

// NewService creates a document Service.
func NewService(opts Options) *Service {
	maxSize := opts.MaxSize
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	expiry := opts.PresignExpiry
	if expiry <= 0 {
		expiry = objectstore.DefaultPresignExpiry
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		objects:       opts.Objects,
		docs:          opts.Documents,
		metadata:      opts.Metadata,
		maxSize:       maxSize,
		presignExpiry: expiry,
		now:           func() time.Time { return now().UTC() },
		log:           logging.Component(opts.Logger, "documents"),
	}
}

// MaxSize returns the upload limit in bytes.
func (s *Service) MaxSize() int64 {
	return s.maxSize
}

// UploadInput describes one file. Body must yield exactly Size bytes.
type UploadInput struct {
	Asset       string              `json:"asset" validate:"required,evmaddress"`
	Kind        domain.DocumentKind `json:"kind" validate:"required,oneof=audit policy governance procedure whitepaper other"`
	FileName    string              `json:"fileName" validate:"required,max=255"`
	ContentType string              `json:"contentType" validate:"required"`
	Size        int64               `json:"size" validate:"min=1"`
	Body        io.Reader           `json:"-"`
}

func canManage(u *domain.User) bool {
	return u.IsAdmin() || u.Role == domain.UserRoleIssuer
}

// ObjectKey is the storage key of a document: <asset>/<id>/<file>.
func ObjectKey(asset, id, fileName string) string {
	return strings.ToLower(asset) + "/" + id + "/" + fileName
}

func cleanFileName(name string) (string, error) {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if name == "" || name == "." || name == "/" || name == ".." {
		return "", ErrInvalidFileName
	}
	return name, nil
}

// Upload stores the file, records it and attaches it to the asset's MiCA
// config when one exists.
func (s *Service) Upload(ctx context.Context, user *domain.User, in UploadInput) (*domain.Document, error) {
	if !canManage(user) {
		return nil, ErrForbidden
	}
	if !in.Kind.IsValid() {
		return nil, fmt.Errorf("unknown document kind %q", in.Kind)
	}
	if in.Size > s.maxSize {
		return nil, fmt.Errorf("%w: %d > %d bytes", ErrTooLarge, in.Size, s.maxSize)
	}
	contentType := strings.ToLower(strings.TrimSpace(strings.SplitN(in.ContentType, ";", 2)[0]))
	if !allowedTypes[contentType] {
		return nil, fmt.Errorf("%w: %s", ErrContentType, in.ContentType)
	}
	name, err := cleanFileName(in.FileName)
	if err != nil {
		return nil, err
	}

	doc := &domain.Document{
		ID:          uuid.NewString(),
		Asset:       strings.ToLower(in.Asset),
		Kind:        in.Kind,
		FileName:    name,
		ContentType: contentType,
		Size:        in.Size,
		UploadedBy:  user.ID,
		UploadedAt:  s.now(),
	}
	doc.ObjectKey = ObjectKey(doc.Asset, doc.ID, name)
	log := logging.FromContext(ctx, s.log).WithFields(logrus.Fields{"document": doc.ID, "asset": doc.Asset})

	if err := s.objects.Put(ctx, doc.ObjectKey, io.LimitReader(in.Body, s.maxSize+1), in.Size, contentType); err != nil {
		return nil, fmt.Errorf("upload %s: %w", name, err)
	}
	if err := s.docs.Insert(ctx, doc); err != nil {
		if rmErr := s.objects.Remove(ctx, doc.ObjectKey); rmErr != nil {
			log.WithError(rmErr).Warn("remove orphaned object")
		}
		return nil, fmt.Errorf("record document: %w", err)
	}

	if cfg, err := s.mica(ctx, doc.Asset); err != nil {
		log.WithError(err).Warn("load regulation config")
	} else if cfg != nil {
		if err := s.metadata.AddRegulationDocument(ctx, cfg.ID, *doc); err != nil {
			log.WithError(err).Warn("attach document to regulation config")
		}
	}

	log.WithField("size", doc.Size).Info("document uploaded")
	return s.withURL(ctx, doc)
}

func (s *Service) mica(ctx context.Context, asset string) (*domain.RegulationConfig, error) {
	configs, err := s.metadata.RegulationConfigs(ctx, asset)
	if err != nil {
		return nil, err
	}
	for i := range configs {
		if configs[i].Type == domain.RegulationMiCA {
			return &configs[i], nil
		}
	}
	return nil, nil
}

func (s *Service) withURL(ctx context.Context, doc *domain.Document) (*domain.Document, error) {
	u, err := s.objects.PresignedGet(ctx, doc.ObjectKey, s.presignExpiry)
	if err != nil {
		return nil, fmt.Errorf("presign %s: %w", doc.ObjectKey, err)
	}
	doc.URL = u
	return doc, nil
}

// List returns the documents of an asset with presigned download URLs.
// Documents whose object is gone are skipped.
func (s *Service) List(ctx context.Context, asset string) ([]*domain.Document, error) {
	docs, err := s.docs.ListByAsset(ctx, strings.ToLower(asset))
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	out := make([]*domain.Document, 0, len(docs))
	for _, d := range docs {
		withURL, err := s.withURL(ctx, d)
		if errors.Is(err, objectstore.ErrNotFound) {
			s.log.WithField("document", d.ID).Warn("document object missing")
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, withURL)
	}
	return out, nil
}

// Get returns one document with a presigned download URL.
func (s *Service) Get(ctx context.Context, id string) (*domain.Document, error) {
	d, err := s.docs.Get(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}
	return s.withURL(ctx, d)
}

// Delete removes a document from storage, the records and its regulation config.
func (s *Service) Delete(ctx context.Context, user *domain.User, id string) error {
	d, err := s.docs.Get(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("load document: %w", err)
	}
	if !user.IsAdmin() && d.UploadedBy != user.ID {
		return ErrForbidden
	}

	if err := s.objects.Remove(ctx, d.ObjectKey); err != nil {
		return fmt.Errorf("remove object: %w", err)
	}
	if err := s.docs.Delete(ctx, id); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("delete document: %w", err)
	}
	if err := s.metadata.RemoveRegulationDocument(ctx, id); err != nil && !errors.Is(err, hasura.ErrNotFound) {
		s.log.WithError(err).WithField("document", id).Warn("detach document from regulation config")
	}
	return nil
}

// RegulationInput updates the MiCA record of an asset.
type RegulationInput struct {
	Asset         string                  `json:"asset" validate:"required,evmaddress"`
	Status        domain.RegulationStatus `json:"status" validate:"required,oneof=not_applicable pending compliant"`
	ReserveStatus domain.ReserveStatus    `json:"reserveStatus,omitempty" validate:"omitempty,oneof=pending compliant deficient"`
	LastAuditDate *time.Time              `json:"lastAuditDate,omitempty"`
}

// UpsertRegulation creates or updates the asset's MiCA config. Admins only.
func (s *Service) UpsertRegulation(ctx context.Context, user *domain.User, in RegulationInput) (*domain.RegulationConfig, error) {
	if !user.IsAdmin() {
		return nil, ErrForbidden
	}
	cfg, err := s.metadata.UpsertRegulationConfig(ctx, domain.RegulationConfig{
		Asset:         strings.ToLower(in.Asset),
		Type:          domain.RegulationMiCA,
		Status:        in.Status,
		ReserveStatus: in.ReserveStatus,
		LastAuditDate: in.LastAuditDate,
	})
	if err != nil {
		return nil, fmt.Errorf("store regulation config: %w", err)
	}
	return cfg, nil
}

// Regulations returns the regulation configs of an asset.
func (s *Service) Regulations(ctx context.Context, asset string) ([]domain.RegulationConfig, error) {
	configs, err := s.metadata.RegulationConfigs(ctx, strings.ToLower(asset))
	if err != nil {
		return nil, fmt.Errorf("regulation configs: %w", err)
	}
	return configs, nil
}
