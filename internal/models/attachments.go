package models

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// AttachmentType is the attachments[].type discriminator.
type AttachmentType string

const (
	AttachmentImage    AttachmentType = "image"
	AttachmentVideo    AttachmentType = "video"
	AttachmentDocument AttachmentType = "document"
	AttachmentVoice    AttachmentType = "voice"
	AttachmentLocation AttachmentType = "location"
	AttachmentContact  AttachmentType = "contact"
	AttachmentLink     AttachmentType = "link"
	AttachmentSticker  AttachmentType = "sticker"
)

// Attachment is one of the inline attachment variants.
type Attachment interface {
	AttachmentType() AttachmentType
}

// Opaque is a record whose type the parser did not recognise. It is kept
// verbatim so it can be forwarded or inspected.
type Opaque interface {
	TypeName() string
	RawJSON() json.RawMessage
}

// FileAttachment covers image, video, document and voice attachments. The
// content is a data URL.
type FileAttachment struct {
	Type     AttachmentType `json:"-"`
	FileName string         `json:"file_name"`
	Content  string         `json:"content"`
	Duration *int           `json:"duration,omitempty"`
}

func (a *FileAttachment) AttachmentType() AttachmentType { return a.Type }

// LocationAttachment is a shared map point.
type LocationAttachment struct {
	Name      string `json:"location_name"`
	Address   string `json:"location_address"`
	Latitude  string `json:"location_lat"`
	Longitude string `json:"location_lng"`
}

func (a *LocationAttachment) AttachmentType() AttachmentType { return AttachmentLocation }

// ContactAttachment is a shared contact card.
type ContactAttachment struct {
	Name     string `json:"contact_name"`
	FileName string `json:"file_name"`
	Content  string `json:"content"`
}

func (a *ContactAttachment) AttachmentType() AttachmentType { return AttachmentContact }

// LinkAttachment is a link with its preview.
type LinkAttachment struct {
	URL     string `json:"url"`
	Title   string `json:"url_title"`
	Preview string `json:"url_preview"`
	Text    string `json:"url_text"`
}

func (a *LinkAttachment) AttachmentType() AttachmentType { return AttachmentLink }

// StickerAttachment references a sticker from a pack.
type StickerAttachment struct {
	ID     uuid.UUID `json:"id"`
	PackID uuid.UUID `json:"pack_id"`
	Link   string    `json:"link"`
}

func (a *StickerAttachment) AttachmentType() AttachmentType { return AttachmentSticker }

// UnknownAttachment preserves an attachment of an unrecognised type.
type UnknownAttachment struct {
	Type string
	Raw  json.RawMessage
}

func (a *UnknownAttachment) AttachmentType() AttachmentType { return AttachmentType(a.Type) }
func (a *UnknownAttachment) TypeName() string               { return "attachment:" + a.Type }
func (a *UnknownAttachment) RawJSON() json.RawMessage       { return a.Raw }

type taggedRecord struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func parseAttachment(raw json.RawMessage) (Attachment, error) {
	var rec taggedRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, err
	}

	var target Attachment
	switch t := AttachmentType(rec.Type); t {
	case AttachmentImage, AttachmentVideo, AttachmentDocument, AttachmentVoice:
		target = &FileAttachment{Type: t}
	case AttachmentLocation:
		target = &LocationAttachment{}
	case AttachmentContact:
		target = &ContactAttachment{}
	case AttachmentLink:
		target = &LinkAttachment{}
	case AttachmentSticker:
		target = &StickerAttachment{}
	default:
		return &UnknownAttachment{Type: rec.Type, Raw: append(json.RawMessage(nil), raw...)}, nil
	}

	if len(rec.Data) == 0 {
		return nil, fmt.Errorf("%s attachment has no data", rec.Type)
	}
	if err := json.Unmarshal(rec.Data, target); err != nil {
		return nil, fmt.Errorf("%s attachment: %w", rec.Type, err)
	}
	return target, nil
}

// AsyncFile is a file uploaded to the platform file service and referenced
// by URL rather than inlined.
type AsyncFile struct {
	Type          AttachmentType `json:"type"`
	ID            uuid.UUID      `json:"file_id"`
	URL           string         `json:"file"`
	MimeType      string         `json:"file_mime_type"`
	Name          string         `json:"file_name"`
	Size          int64          `json:"file_size"`
	Hash          string         `json:"file_hash"`
	Preview       string         `json:"file_preview,omitempty"`
	PreviewHeight *int           `json:"file_preview_height,omitempty"`
	PreviewWidth  *int           `json:"file_preview_width,omitempty"`
	Encryption    string         `json:"file_encryption_algo,omitempty"`
	ChunkSize     int64          `json:"chunk_size,omitempty"`
	Caption       string         `json:"caption,omitempty"`
	Duration      *int           `json:"duration,omitempty"`
}
