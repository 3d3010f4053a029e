package models

import (
	"time"
)

// ItemType identifies what a node in the content tree represents.
type ItemType string

const (
	ItemTypeLevel     ItemType = "level"
	ItemTypeSemester  ItemType = "semester"
	ItemTypeSubject   ItemType = "subject"
	ItemTypeFolder    ItemType = "folder"
	ItemTypeFile      ItemType = "file"
	ItemTypeLink      ItemType = "link"
	ItemTypeQuiz      ItemType = "quiz"
	ItemTypeExam      ItemType = "exam"
	ItemTypeFlashcard ItemType = "flashcard"
	ItemTypeNote      ItemType = "note"
)

// IsContainer reports whether items of this type normally hold children.
// Leaf types are not structurally forbidden from having children; this only
// drives copy recursion and UI affordances.
func (t ItemType) IsContainer() bool {
	switch t {
	case ItemTypeLevel, ItemTypeSemester, ItemTypeSubject, ItemTypeFolder:
		return true
	default:
		return false
	}
}

// Valid reports whether t is a known item type.
func (t ItemType) Valid() bool {
	switch t {
	case ItemTypeLevel, ItemTypeSemester, ItemTypeSubject, ItemTypeFolder,
		ItemTypeFile, ItemTypeLink, ItemTypeQuiz, ItemTypeExam,
		ItemTypeFlashcard, ItemTypeNote:
		return true
	default:
		return false
	}
}

// Item is a node in the content tree.
type Item struct {
	ID        string    `json:"id" db:"id"`
	ParentID  *string   `json:"parent_id" db:"parent_id"` // NULL = root level
	Name      string    `json:"name" db:"name"`
	Type      ItemType  `json:"type" db:"item_type"`
	Order     int       `json:"order" db:"sort_order"` // sort key among siblings, not necessarily contiguous
	Metadata  Metadata  `json:"metadata" db:"metadata"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Metadata holds the type-specific attributes of an item. Stored as a single
// JSONB column; unset variants stay nil so unrelated keys survive a partial
// patch.
type Metadata struct {
	IsHidden    bool             `json:"is_hidden,omitempty"`
	Icon        *IconRef         `json:"icon,omitempty"`
	File        *FileMeta        `json:"file,omitempty"`
	Link        *LinkMeta        `json:"link,omitempty"`
	Interactive *InteractiveMeta `json:"interactive,omitempty"`
}

// IconRef references a previously uploaded icon. The upload handle is a
// derived storage artifact and is cleared when an item is copied.
type IconRef struct {
	Name         string `json:"name,omitempty"`
	UploadHandle string `json:"upload_handle,omitempty"`
}

// FileMeta describes an uploaded file item.
type FileMeta struct {
	Size       int64  `json:"size"`
	MimeType   string `json:"mime_type"`
	StorageKey string `json:"storage_key,omitempty"`
}

// LinkMeta describes an external link item.
type LinkMeta struct {
	URL string `json:"url"`
}

// InteractiveMeta carries the generated payload of an interactive document
// (quiz, exam, flashcard deck). Opaque to the core.
type InteractiveMeta struct {
	Payload       string `json:"payload,omitempty"`
	QuestionCount int    `json:"question_count,omitempty"`
}

// MetadataPatch is a partial update of Metadata. Nil fields are left
// untouched; the store merges under read-your-writes so concurrent patches
// of unrelated keys do not clobber each other.
type MetadataPatch struct {
	IsHidden    *bool            `json:"is_hidden,omitempty"`
	Icon        *IconRef         `json:"icon,omitempty"`
	File        *FileMeta        `json:"file,omitempty"`
	Link        *LinkMeta        `json:"link,omitempty"`
	Interactive *InteractiveMeta `json:"interactive,omitempty"`
}

// Apply merges the patch into m.
func (p *MetadataPatch) Apply(m *Metadata) {
	if p.IsHidden != nil {
		m.IsHidden = *p.IsHidden
	}
	if p.Icon != nil {
		m.Icon = p.Icon
	}
	if p.File != nil {
		m.File = p.File
	}
	if p.Link != nil {
		m.Link = p.Link
	}
	if p.Interactive != nil {
		m.Interactive = p.Interactive
	}
}

// CopyForDuplicate returns the metadata an item copy should carry: everything
// duplicated verbatim except derived storage handles.
func (m Metadata) CopyForDuplicate() Metadata {
	out := m
	if m.Icon != nil {
		icon := *m.Icon
		icon.UploadHandle = ""
		out.Icon = &icon
	}
	return out
}

// ItemStub is the minimal projection of an item carried on the change feed:
// enough to rebuild ancestry without loading payloads.
type ItemStub struct {
	ID       string  `json:"id"`
	ParentID *string `json:"parent_id"`
}
