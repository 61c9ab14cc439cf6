package service

import (
	"time"

	"github.com/pubshare/internal/baas"
)

// User 是 users 集合中的公开资料
type User struct {
	ID             string    `json:"id"`
	Email          string    `json:"email,omitempty"`
	Name           string    `json:"name"`
	Bio            string    `json:"bio,omitempty"`
	Institution    string    `json:"institution,omitempty"`
	Department     string    `json:"department,omitempty"`
	Company        string    `json:"company,omitempty"`
	Position       string    `json:"position,omitempty"`
	Website        string    `json:"website,omitempty"`
	OrcidID        string    `json:"orcid_id,omitempty"`
	ResearcherType string    `json:"researcher_type,omitempty"`
	Avatar         string    `json:"avatar,omitempty"`
	AvatarURL      string    `json:"avatar_url,omitempty"`
	IsScientific   bool      `json:"is_scientific"`
	Created        time.Time `json:"created"`
	Updated        time.Time `json:"updated"`
}

// Publication is a research output with its expanded owner and co-authors.
type Publication struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user"`
	Title           string     `json:"title"`
	Type            string     `json:"type"`
	Abstract        string     `json:"abstract,omitempty"`
	AbstractHTML    string     `json:"abstract_html,omitempty"`
	PublicationDate string     `json:"publication_date,omitempty"`
	DOI             string     `json:"doi,omitempty"`
	Journal         string     `json:"journal,omitempty"`
	Conference      string     `json:"conference,omitempty"`
	Volume          string     `json:"volume,omitempty"`
	Issue           string     `json:"issue,omitempty"`
	Pages           string     `json:"pages,omitempty"`
	Publisher       string     `json:"publisher,omitempty"`
	Keywords        string     `json:"keywords,omitempty"`
	Public          bool       `json:"public"`
	PreviewImages   []string   `json:"preview_img"`
	PreviewURLs     []string   `json:"preview_urls,omitempty"`
	ViewsCount      int        `json:"views_count"`
	DownloadsCount  int        `json:"downloads_count"`
	CitationsCount  int        `json:"citations_count"`
	Created         time.Time  `json:"created"`
	Updated         time.Time  `json:"updated"`
	Author          *User      `json:"author,omitempty"`
	CoAuthors       []CoAuthor `json:"co_authors,omitempty"`
}

// Fields returns the editable scalar fields of the publication.
func (p Publication) Fields() PublicationFields {
	return PublicationFields{
		Title:           p.Title,
		Type:            p.Type,
		Abstract:        p.Abstract,
		PublicationDate: p.PublicationDate,
		DOI:             p.DOI,
		Journal:         p.Journal,
		Conference:      p.Conference,
		Volume:          p.Volume,
		Issue:           p.Issue,
		Pages:           p.Pages,
		Publisher:       p.Publisher,
		Keywords:        p.Keywords,
		Public:          p.Public,
	}
}

// CoAuthor 是出版物的合著者
type CoAuthor struct {
	ID              string `json:"id"`
	PublicationID   string `json:"publication"`
	Name            string `json:"name"`
	Email           string `json:"email,omitempty"`
	Institution     string `json:"institution,omitempty"`
	Order           int    `json:"order"`
	IsCorresponding bool   `json:"is_corresponding"`
	UserID          string `json:"user,omitempty"`
	User            *User  `json:"user_profile,omitempty"`
}

// Fields returns the draft fields of the co-author.
func (c CoAuthor) Fields() CoAuthorFields {
	return CoAuthorFields{
		Name:            c.Name,
		Email:           c.Email,
		Institution:     c.Institution,
		Order:           c.Order,
		IsCorresponding: c.IsCorresponding,
	}
}

// PublicationFile is an attachment of a publication.
type PublicationFile struct {
	ID            string    `json:"id"`
	PublicationID string    `json:"publication"`
	File          string    `json:"file"`
	URL           string    `json:"url,omitempty"`
	FileType      string    `json:"file_type,omitempty"`
	Visibility    string    `json:"visibility,omitempty"`
	Version       string    `json:"version,omitempty"`
	Description   string    `json:"description,omitempty"`
	Created       time.Time `json:"created"`
}

// Fields returns the draft fields of the stored file.
func (f PublicationFile) Fields() FileFields {
	return FileFields{
		StoredName:  f.File,
		FileType:    f.FileType,
		Visibility:  f.Visibility,
		Version:     f.Version,
		Description: f.Description,
	}
}

// Comment 创建后不可修改
type Comment struct {
	ID            string    `json:"id"`
	PublicationID string    `json:"publication"`
	UserID        string    `json:"user"`
	Content       string    `json:"content"`
	ContentHTML   string    `json:"content_html,omitempty"`
	Created       time.Time `json:"created"`
	Author        *User     `json:"author,omitempty"`
}

// Page is one page of a list query.
type Page[T any] struct {
	Items      []T  `json:"items"`
	Page       int  `json:"page"`
	PerPage    int  `json:"perPage"`
	TotalItems int  `json:"totalItems"`
	TotalPages int  `json:"totalPages"`
	HasMore    bool `json:"hasMore"`
}

// Listing accumulates pages for "load more" style browsing.
type Listing[T any] struct {
	Items   []T
	Page    int
	HasMore bool
}

// Apply merges p: the first page replaces the accumulated items, later pages
// append to them.
func (l *Listing[T]) Apply(p Page[T]) {
	if p.Page <= 1 {
		l.Items = append([]T(nil), p.Items...)
	} else {
		l.Items = append(l.Items, p.Items...)
	}
	l.Page = p.Page
	l.HasMore = p.HasMore
}

// NextPage is the page to request for "load more".
func (l *Listing[T]) NextPage() int {
	return l.Page + 1
}

func newPage[T any](res *baas.ListResult, decode func(*baas.Record) T) Page[T] {
	items := make([]T, 0, len(res.Items))
	for _, rec := range res.Items {
		items = append(items, decode(rec))
	}
	return Page[T]{
		Items:      items,
		Page:       res.Page,
		PerPage:    res.PerPage,
		TotalItems: res.TotalItems,
		TotalPages: res.TotalPages,
		// 与原应用一致：返回满页即认为还有更多
		HasMore: res.PerPage > 0 && len(items) == res.PerPage,
	}
}

func decodeUser(client baas.Client, rec *baas.Record) *User {
	if rec == nil {
		return nil
	}
	u := &User{
		ID:             rec.ID,
		Email:          rec.GetString("email"),
		Name:           rec.GetString("name"),
		Bio:            rec.GetString("bio"),
		Institution:    rec.GetString("institution"),
		Department:     rec.GetString("department"),
		Company:        rec.GetString("company"),
		Position:       rec.GetString("position"),
		Website:        rec.GetString("website"),
		OrcidID:        rec.GetString("orcid_id"),
		ResearcherType: rec.GetString("researcher_type"),
		Avatar:         rec.GetString("avatar"),
		IsScientific:   rec.GetBool("is_scientific"),
		Created:        rec.Created,
		Updated:        rec.Updated,
	}
	if u.Avatar != "" && client != nil {
		u.AvatarURL = client.FileURL(rec, u.Avatar)
	}
	return u
}

func decodePublication(client baas.Client, rec *baas.Record) Publication {
	p := Publication{
		ID:              rec.ID,
		UserID:          rec.GetString("user"),
		Title:           rec.GetString("title"),
		Type:            rec.GetString("type"),
		Abstract:        rec.GetString("abstract"),
		PublicationDate: rec.GetString("publication_date"),
		DOI:             rec.GetString("doi"),
		Journal:         rec.GetString("journal"),
		Conference:      rec.GetString("conference"),
		Volume:          rec.GetString("volume"),
		Issue:           rec.GetString("issue"),
		Pages:           rec.GetString("pages"),
		Publisher:       rec.GetString("publisher"),
		Keywords:        rec.GetString("keywords"),
		Public:          rec.GetBool("public"),
		PreviewImages:   rec.GetStrings("preview_img"),
		ViewsCount:      rec.GetInt("views_count"),
		DownloadsCount:  rec.GetInt("downloads_count"),
		CitationsCount:  rec.GetInt("citations_count"),
		Created:         rec.Created,
		Updated:         rec.Updated,
		Author:          decodeUser(client, rec.ExpandOne("user")),
	}
	if p.PreviewImages == nil {
		p.PreviewImages = []string{}
	}
	for _, name := range p.PreviewImages {
		p.PreviewURLs = append(p.PreviewURLs, client.FileURL(rec, name))
	}
	for _, co := range rec.ExpandMany("co_authors_list") {
		p.CoAuthors = append(p.CoAuthors, decodeCoAuthor(client, co))
	}
	return p
}

func decodeCoAuthor(client baas.Client, rec *baas.Record) CoAuthor {
	return CoAuthor{
		ID:              rec.ID,
		PublicationID:   rec.GetString("publication"),
		Name:            rec.GetString("name"),
		Email:           rec.GetString("email"),
		Institution:     rec.GetString("institution"),
		Order:           rec.GetInt("order"),
		IsCorresponding: rec.GetBool("is_corresponding"),
		UserID:          rec.GetString("user"),
		User:            decodeUser(client, rec.ExpandOne("user")),
	}
}

func decodeFile(client baas.Client, rec *baas.Record) PublicationFile {
	f := PublicationFile{
		ID:            rec.ID,
		PublicationID: rec.GetString("publication"),
		File:          rec.GetString("file"),
		FileType:      rec.GetString("file_type"),
		Visibility:    rec.GetString("visibility"),
		Version:       rec.GetString("version"),
		Description:   rec.GetString("description"),
		Created:       rec.Created,
	}
	if f.File != "" {
		f.URL = client.FileURL(rec, f.File)
	}
	return f
}

func decodeComment(client baas.Client, rec *baas.Record) Comment {
	return Comment{
		ID:            rec.ID,
		PublicationID: rec.GetString("publication"),
		UserID:        rec.GetString("user"),
		Content:       rec.GetString("content"),
		Created:       rec.Created,
		Author:        decodeUser(client, rec.ExpandOne("user")),
	}
}
