package interfaces

import (
	"context"
	"time"
)

// BlockReference is a resolved transclusion target.
type BlockReference struct {
	BlockID     string `json:"blockId"`
	Content     string `json:"content"`
	DisplayText string `json:"displayText,omitempty"`
	RefCount    int    `json:"refCount"`
}

// UploadedAsset records an asset stored in the object store.
type UploadedAsset struct {
	LocalPath         string `json:"localPath"`
	ObjectKey         string `json:"s3Key"`
	PublicURL         string `json:"s3Url"`
	ContentType       string `json:"contentType"`
	SizeBytes         int64  `json:"size"`
	ContentHash       string `json:"hash"`
	UploadedAtEpochMs int64  `json:"uploadedAt"`
}

// UploadStatus enumerates the per-file upload lifecycle.
type UploadStatus string

const (
	UploadPending   UploadStatus = "pending"
	UploadUploading UploadStatus = "uploading"
	UploadSuccess   UploadStatus = "success"
	UploadError     UploadStatus = "error"
)

// UploadProgress is emitted while a file is being uploaded.
type UploadProgress struct {
	FileName   string
	BytesSent  int64
	TotalBytes int64
	Percentage int
	Status     UploadStatus
	Error      string
}

// ProgressFunc receives upload progress notifications. Implementations must
// not block for long; they run on the uploading goroutine.
type ProgressFunc func(UploadProgress)

// SharePayload is the document package handed to the share registry.
type SharePayload struct {
	DocID           string           `json:"docId"`
	DocTitle        string           `json:"docTitle"`
	Content         string           `json:"content"`
	RequirePassword bool             `json:"requirePassword"`
	Password        string           `json:"password,omitempty"`
	ExpireDays      int              `json:"expireDays"`
	IsPublic        bool             `json:"isPublic"`
	References      []BlockReference `json:"references,omitempty"`
	Assets          []UploadedAsset  `json:"assets,omitempty"`
}

// ShareAck is the registry acknowledgement for a submitted share.
type ShareAck struct {
	ShareID         string    `json:"shareId"`
	ShareURL        string    `json:"shareUrl"`
	DocID           string    `json:"docId"`
	DocTitle        string    `json:"docTitle"`
	RequirePassword bool      `json:"requirePassword"`
	IsPublic        bool      `json:"isPublic"`
	Reused          bool      `json:"reused"`
	ExpireAt        time.Time `json:"expireAt"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// BatchDeleteResult reports the outcome of a batch share removal.
type BatchDeleteResult struct {
	Deleted  []string          `json:"deleted"`
	NotFound []string          `json:"notFound"`
	Failed   map[string]string `json:"failed,omitempty"`
}

// ShareListItem is one share as the registry lists it.
type ShareListItem struct {
	ShareID         string    `json:"id"`
	DocID           string    `json:"docId"`
	DocTitle        string    `json:"docTitle"`
	ShareURL        string    `json:"shareUrl"`
	RequirePassword bool      `json:"requirePassword"`
	IsPublic        bool      `json:"isPublic"`
	ViewCount       int       `json:"viewCount"`
	ExpireAt        time.Time `json:"expireAt"`
	CreatedAt       time.Time `json:"createdAt"`
}

// ShareListPage is one page of the registry listing, newest share first.
type ShareListPage struct {
	Items []ShareListItem `json:"items"`
	Page  int             `json:"page"`
	Size  int             `json:"size"`
	Total int             `json:"total"`
}

// ShareRegistry is the remote backend that stores share metadata and serves
// the public viewer.
type ShareRegistry interface {
	Submit(ctx context.Context, payload SharePayload) (ShareAck, error)
	Delete(ctx context.Context, shareID string) error
	DeleteMany(ctx context.Context, shareIDs []string) (BatchDeleteResult, error)
	// List returns page (1-based) of the shares owned by the token.
	List(ctx context.Context, page, size int) (ShareListPage, error)
}
