package domain

import "time"

// DocumentKind classifies uploaded regulatory files.
type DocumentKind string

const (
	DocumentAudit      DocumentKind = "audit"
	DocumentPolicy     DocumentKind = "policy"
	DocumentGovernance DocumentKind = "governance"
	DocumentProcedure  DocumentKind = "procedure"
	DocumentWhitepaper DocumentKind = "whitepaper"
	DocumentOther      DocumentKind = "other"
)

// IsValid checks if the document kind is a known value.
func (k DocumentKind) IsValid() bool {
	switch k {
	case DocumentAudit, DocumentPolicy, DocumentGovernance, DocumentProcedure, DocumentWhitepaper, DocumentOther:
		return true
	}
	return false
}

// Document is a regulatory file stored in object storage.
type Document struct {
	ID          string       `json:"id"`
	Asset       string       `json:"asset"`
	Kind        DocumentKind `json:"kind"`
	FileName    string       `json:"fileName"`
	ContentType string       `json:"contentType"`
	Size        int64        `json:"size"`
	ObjectKey   string       `json:"objectKey"`
	UploadedBy  string       `json:"uploadedBy"`
	UploadedAt  time.Time    `json:"uploadedAt"`
	URL         string       `json:"url,omitempty"` // presigned, filled on read
}
