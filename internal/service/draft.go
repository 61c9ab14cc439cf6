package service

import (
	"strings"

	"github.com/pubshare/internal/baas"
)

// Draft is a locally edited item: either New (no id yet) or Persisted.
// The presence of an id is the only thing that decides which.
type Draft[F any] struct {
	id     string
	Fields F
}

// NewDraft creates a draft that will be created on submit.
func NewDraft[F any](fields F) Draft[F] {
	return Draft[F]{Fields: fields}
}

// PersistedDraft wraps an item that already exists remotely.
func PersistedDraft[F any](id string, fields F) Draft[F] {
	return Draft[F]{id: id, Fields: fields}
}

// ID returns the remote id, empty for new drafts.
func (d Draft[F]) ID() string {
	return d.id
}

// IsNew reports whether the draft has never been persisted.
func (d Draft[F]) IsNew() bool {
	return d.id == ""
}

// CoAuthorFields are the editable fields of a co-author.
type CoAuthorFields struct {
	Name            string `json:"name"`
	Email           string `json:"email,omitempty"`
	Institution     string `json:"institution,omitempty"`
	Order           int    `json:"order"`
	IsCorresponding bool   `json:"is_corresponding"`
}

// Form builds the create/update payload tagged with the parent publication.
func (f CoAuthorFields) Form(publicationID string) *baas.Form {
	return baas.NewForm().
		Set("publication", publicationID).
		Set("name", f.Name).
		Set("email", f.Email).
		Set("institution", f.Institution).
		Set("order", f.Order).
		Set("is_corresponding", f.IsCorresponding)
}

// FileFields are the editable fields of a publication file. Upload carries
// the binary of a new draft; StoredName is the name of an existing file.
type FileFields struct {
	Upload      *baas.File `json:"-"`
	StoredName  string     `json:"file,omitempty"`
	FileType    string     `json:"file_type,omitempty"`
	Visibility  string     `json:"visibility,omitempty"`
	Version     string     `json:"version,omitempty"`
	Description string     `json:"description,omitempty"`
}

// HasContent reports whether a binary is attached.
func (f FileFields) HasContent() bool {
	return f.Upload != nil && len(f.Upload.Data) > 0
}

// Form builds the create payload. The upload is attached only when present.
func (f FileFields) Form(publicationID string) *baas.Form {
	form := baas.NewForm().
		Set("publication", publicationID).
		Set("file_type", f.FileType).
		Set("visibility", f.Visibility).
		Set("version", f.Version).
		Set("description", f.Description)
	if f.HasContent() {
		form.AddFile("file", *f.Upload)
	}
	return form
}

// metadataForm is the update payload; the stored binary is never replaced.
func (f FileFields) metadataForm() *baas.Form {
	return baas.NewForm().
		Set("file_type", f.FileType).
		Set("visibility", f.Visibility).
		Set("version", f.Version).
		Set("description", f.Description)
}

func (f FileFields) sameMetadata(other FileFields) bool {
	return f.FileType == other.FileType &&
		f.Visibility == other.Visibility &&
		f.Version == other.Version &&
		f.Description == other.Description
}

// PublicationFields are the scalar fields of the publication form.
type PublicationFields struct {
	Title           string `json:"title"`
	Type            string `json:"type"`
	Abstract        string `json:"abstract"`
	PublicationDate string `json:"publication_date"`
	DOI             string `json:"doi"`
	Journal         string `json:"journal"`
	Conference      string `json:"conference"`
	Volume          string `json:"volume"`
	Issue           string `json:"issue"`
	Pages           string `json:"pages"`
	Publisher       string `json:"publisher"`
	Keywords        string `json:"keywords"`
	Public          bool   `json:"public"`
}

// Form returns the non-empty scalar fields. public is always sent.
func (f PublicationFields) Form() *baas.Form {
	form := baas.NewForm()
	for _, kv := range []struct {
		key, value string
	}{
		{"title", f.Title},
		{"type", f.Type},
		{"abstract", f.Abstract},
		{"publication_date", f.PublicationDate},
		{"doi", f.DOI},
		{"journal", f.Journal},
		{"conference", f.Conference},
		{"volume", f.Volume},
		{"issue", f.Issue},
		{"pages", f.Pages},
		{"publisher", f.Publisher},
		{"keywords", f.Keywords},
	} {
		if strings.TrimSpace(kv.value) != "" {
			form.Set(kv.key, kv.value)
		}
	}
	form.Set("public", f.Public)
	return form
}

// PublicationDraft is the full local state of the publication form.
type PublicationDraft struct {
	Fields        PublicationFields
	PreviewImages []baas.File
	CoAuthors     []Draft[CoAuthorFields]
	Files         []Draft[FileFields]

	// KeepCoAuthors 和 KeepFiles 为 true 时编辑不触碰已保存的子记录，
	// 用于请求中没有提交对应列表的情况
	KeepCoAuthors bool
	KeepFiles     bool
}

// Snapshot is what was loaded for editing; reconciliation diffs against it.
type Snapshot struct {
	Publication Publication       `json:"publication"`
	CoAuthors   []CoAuthor        `json:"co_authors"`
	Files       []PublicationFile `json:"files"`
}

// Draft converts the snapshot into an editable draft whose items are all
// persisted.
func (s Snapshot) Draft() PublicationDraft {
	d := PublicationDraft{Fields: s.Publication.Fields()}
	for _, c := range s.CoAuthors {
		d.CoAuthors = append(d.CoAuthors, PersistedDraft(c.ID, c.Fields()))
	}
	for _, f := range s.Files {
		d.Files = append(d.Files, PersistedDraft(f.ID, f.Fields()))
	}
	return d
}
