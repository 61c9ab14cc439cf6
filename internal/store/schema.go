package store

// FieldKind enumerates the supported column types.
type FieldKind string

const (
	KindText     FieldKind = "text"
	KindEmail    FieldKind = "email"
	KindURL      FieldKind = "url"
	KindNumber   FieldKind = "number"
	KindBool     FieldKind = "bool"
	KindDate     FieldKind = "date"
	KindSelect   FieldKind = "select"
	KindRelation FieldKind = "relation"
	KindFile     FieldKind = "file"
)

// Field describes one column of a collection.
type Field struct {
	Name       string
	Kind       FieldKind
	Required   bool
	Values     []string // select options
	Collection string   // relation target
	Multiple   bool     // relation/file cardinality
	Cascade    bool     // delete this record when the related record is deleted
	Immutable  bool
}

// Schema describes a collection.
type Schema struct {
	Name   string
	Auth   bool
	Fields []Field
	rules  ruleSet
}

// Field returns the field definition by name.
func (s *Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// PublicationTypes 是出版物 type 字段的可选值
var PublicationTypes = []string{
	"Article",
	"Book",
	"Chapter",
	"Code",
	"Conference Paper",
	"Cover Page",
	"Data",
	"Experiment Findings",
	"Method",
	"Negative Results",
	"Patent",
	"Poster",
	"Preprint",
	"Presentation",
	"Raw Data",
	"Research Proposal",
	"Technical Report",
	"Thesis",
}

// DefaultSchemas returns the collections of the publication sharing app.
func DefaultSchemas() []*Schema {
	return []*Schema{
		{
			Name: "users",
			Auth: true,
			Fields: []Field{
				{Name: "email", Kind: KindEmail, Required: true, Immutable: true},
				{Name: "name", Kind: KindText, Required: true},
				{Name: "bio", Kind: KindText},
				{Name: "institution", Kind: KindText},
				{Name: "department", Kind: KindText},
				{Name: "company", Kind: KindText},
				{Name: "position", Kind: KindText},
				{Name: "website", Kind: KindURL},
				{Name: "orcid_id", Kind: KindText},
				{Name: "researcher_type", Kind: KindSelect, Values: []string{"academic", "corporate", "medical", "non_researcher"}},
				{Name: "avatar", Kind: KindFile},
				{Name: "is_scientific", Kind: KindBool},
			},
			rules: userRules,
		},
		{
			Name: "publications",
			Fields: []Field{
				{Name: "user", Kind: KindRelation, Collection: "users", Required: true, Immutable: true, Cascade: true},
				{Name: "title", Kind: KindText, Required: true},
				{Name: "type", Kind: KindSelect, Required: true, Values: PublicationTypes},
				{Name: "abstract", Kind: KindText},
				{Name: "publication_date", Kind: KindDate},
				{Name: "doi", Kind: KindText},
				{Name: "journal", Kind: KindText},
				{Name: "conference", Kind: KindText},
				{Name: "volume", Kind: KindText},
				{Name: "issue", Kind: KindText},
				{Name: "pages", Kind: KindText},
				{Name: "publisher", Kind: KindText},
				{Name: "keywords", Kind: KindText},
				{Name: "public", Kind: KindBool},
				{Name: "preview_img", Kind: KindFile, Multiple: true},
				{Name: "co_authors_list", Kind: KindRelation, Collection: "co_authors", Multiple: true},
				{Name: "views_count", Kind: KindNumber},
				{Name: "downloads_count", Kind: KindNumber},
				{Name: "citations_count", Kind: KindNumber},
			},
			rules: publicationRules,
		},
		{
			Name: "co_authors",
			Fields: []Field{
				{Name: "publication", Kind: KindRelation, Collection: "publications", Required: true, Cascade: true},
				{Name: "name", Kind: KindText, Required: true},
				{Name: "email", Kind: KindEmail},
				{Name: "institution", Kind: KindText},
				{Name: "order", Kind: KindNumber},
				{Name: "is_corresponding", Kind: KindBool},
				{Name: "user", Kind: KindRelation, Collection: "users"},
			},
			rules: childRules,
		},
		{
			Name: "publication_files",
			Fields: []Field{
				{Name: "publication", Kind: KindRelation, Collection: "publications", Required: true, Cascade: true},
				{Name: "file", Kind: KindFile, Required: true},
				{Name: "file_type", Kind: KindSelect, Values: []string{"Main file", "supplementary material", "dataset"}},
				{Name: "visibility", Kind: KindSelect, Values: []string{"Public", "private", "both"}},
				{Name: "version", Kind: KindText},
				{Name: "description", Kind: KindText},
			},
			rules: childRules,
		},
		{
			Name: "comments",
			Fields: []Field{
				{Name: "publication", Kind: KindRelation, Collection: "publications", Required: true, Cascade: true},
				{Name: "user", Kind: KindRelation, Collection: "users", Required: true, Cascade: true},
				{Name: "content", Kind: KindText, Required: true},
			},
			rules: commentRules,
		},
	}
}
