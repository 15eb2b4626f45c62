package entity

import "time"

// Attachment is a stored document referenced by a cost entry, trip or invoice
type Attachment struct {
	ID          string    `json:"id"`
	OwnerType   string    `json:"owner_type"`
	OwnerID     string    `json:"owner_id"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	FileSize    int64     `json:"file_size"`
	StoragePath string    `json:"storage_path"`
	UploadedBy  string    `json:"uploaded_by"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// Attachment owner types
const (
	AttachmentOwnerCost    = "cost"
	AttachmentOwnerTrip    = "trip"
	AttachmentOwnerInvoice = "invoice"
)
