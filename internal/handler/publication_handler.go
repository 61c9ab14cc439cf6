package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pubshare/internal/baas"
	"github.com/pubshare/internal/service"
	"github.com/pubshare/internal/store"
	"go.uber.org/zap"
)

const (
	feedPerPage       = 10
	maxMultipartBytes = 64 << 20
)

// publicationDetail is the detail payload: publication, files and comments.
type publicationDetail struct {
	*service.Publication
	Files    []service.PublicationFile `json:"files"`
	Comments []service.Comment         `json:"comments"`
}

type workflowResponse struct {
	Publication *service.Publication `json:"publication"`
	Report      service.SyncReport   `json:"report"`
}

// coAuthorPayload 是表单中 co_authors JSON 数组的元素
type coAuthorPayload struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Email           string `json:"email"`
	Institution     string `json:"institution"`
	Order           int    `json:"order"`
	IsCorresponding bool   `json:"is_corresponding"`
}

// filePayload 是表单中 files JSON 数组的元素；upload 为附件所在的表单字段名
type filePayload struct {
	ID          string `json:"id"`
	Upload      string `json:"upload"`
	FileType    string `json:"file_type"`
	Visibility  string `json:"visibility"`
	Version     string `json:"version"`
	Description string `json:"description"`
}

type commentRequest struct {
	Content string `json:"content"`
}

// ListPublications returns the public feed.
func (a *API) ListPublications(c *gin.Context) {
	page, err := a.library(c).Publications.List(c.Request.Context(), pageQuery(c), perPageQuery(c, feedPerPage))
	if err != nil {
		a.fail(c, err)
		return
	}
	respond(c, http.StatusOK, page)
}

// SearchPublications 按标题、摘要、关键词搜索公开出版物
func (a *API) SearchPublications(c *gin.Context) {
	page, err := a.library(c).Publications.Search(c.Request.Context(), c.Query("q"), pageQuery(c), perPageQuery(c, feedPerPage))
	if err != nil {
		a.fail(c, err)
		return
	}
	respond(c, http.StatusOK, page)
}

// GetPublication returns the detail view and counts one view.
func (a *API) GetPublication(c *gin.Context) {
	lib := a.library(c)
	ctx := c.Request.Context()
	id := c.Param("id")

	pub, err := lib.Publications.Get(ctx, id)
	if err != nil {
		a.fail(c, notFoundAsDomain(err, id))
		return
	}

	if views, err := lib.Counters.IncrementViews(ctx, id); err != nil {
		a.logger.Warn("increment views", zap.String("publication", id), zap.Error(err))
	} else {
		pub.ViewsCount = views
	}

	coAuthors, err := lib.CoAuthors.List(ctx, id)
	if err != nil {
		a.fail(c, err)
		return
	}
	pub.CoAuthors = coAuthors

	files, err := lib.Files.List(ctx, id)
	if err != nil {
		a.fail(c, err)
		return
	}
	comments, err := lib.Comments.List(ctx, id)
	if err != nil {
		a.fail(c, err)
		return
	}

	if pub.AbstractHTML, err = renderMarkdown(pub.Abstract); err != nil {
		a.logger.Warn("render abstract", zap.String("publication", id), zap.Error(err))
	}
	for i := range comments {
		if comments[i].ContentHTML, err = renderMarkdown(comments[i].Content); err != nil {
			a.logger.Warn("render comment", zap.String("comment", comments[i].ID), zap.Error(err))
		}
	}

	respond(c, http.StatusOK, publicationDetail{Publication: pub, Files: files, Comments: comments})
}

// CreatePublication 处理多段表单：标量字段、preview_img、co_authors 与 files
func (a *API) CreatePublication(c *gin.Context) {
	draft, err := parsePublicationDraft(c)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	pub, report, err := a.library(c).CreatePublication(c.Request.Context(), draft)
	if err != nil {
		a.fail(c, err)
		return
	}
	respond(c, http.StatusCreated, workflowResponse{Publication: pub, Report: report})
}

// UpdatePublication updates the publication and reconciles its children.
func (a *API) UpdatePublication(c *gin.Context) {
	draft, err := parsePublicationDraft(c)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	pub, report, err := a.library(c).EditPublication(c.Request.Context(), c.Param("id"), draft)
	if err != nil {
		a.fail(c, err)
		return
	}
	respond(c, http.StatusOK, workflowResponse{Publication: pub, Report: report})
}

// EditPublication returns the snapshot the edit form starts from.
func (a *API) EditPublication(c *gin.Context) {
	snapshot, err := a.library(c).LoadForEdit(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.fail(c, err)
		return
	}
	respond(c, http.StatusOK, snapshot)
}

// DeletePublication removes a publication owned by the caller.
func (a *API) DeletePublication(c *gin.Context) {
	lib := a.library(c)
	id := c.Param("id")
	if _, err := lib.LoadForEdit(c.Request.Context(), id); err != nil {
		a.fail(c, err)
		return
	}
	if err := lib.Publications.Delete(c.Request.Context(), id); err != nil {
		a.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DownloadFile counts one download and redirects to the stored file.
func (a *API) DownloadFile(c *gin.Context) {
	lib := a.library(c)
	ctx := c.Request.Context()
	id := c.Param("id")

	file, err := lib.Files.Get(ctx, c.Param("fileId"))
	if err != nil {
		a.fail(c, err)
		return
	}
	if file.PublicationID != id || file.URL == "" {
		respondError(c, http.StatusNotFound, "File not found")
		return
	}
	if _, err := lib.Counters.IncrementDownloads(ctx, id); err != nil {
		a.logger.Warn("increment downloads", zap.String("publication", id), zap.Error(err))
	}
	c.Redirect(http.StatusFound, file.URL)
}

// CreateComment posts a comment as the signed in user.
func (a *API) CreateComment(c *gin.Context) {
	var req commentRequest
	if !bindJSON(c, &req, "Invalid comment payload") {
		return
	}
	comment, err := a.library(c).Comments.Create(c.Request.Context(), c.Param("id"), req.Content)
	if err != nil {
		a.fail(c, err)
		return
	}
	if comment.ContentHTML, err = renderMarkdown(comment.Content); err != nil {
		a.logger.Warn("render comment", zap.String("comment", comment.ID), zap.Error(err))
	}
	respond(c, http.StatusCreated, comment)
}

// PublicationTypes lists the accepted values of the type field.
func (a *API) PublicationTypes(c *gin.Context) {
	respond(c, http.StatusOK, store.PublicationTypes)
}

func notFoundAsDomain(err error, id string) error {
	if baas.IsNotFound(err) {
		return fmt.Errorf("%w: %s", service.ErrPublicationNotFound, id)
	}
	return err
}

func parsePublicationDraft(c *gin.Context) (service.PublicationDraft, error) {
	var mf *multipart.Form
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		if err := c.Request.ParseMultipartForm(maxMultipartBytes); err != nil {
			return service.PublicationDraft{}, errors.New("Invalid multipart form")
		}
		mf = c.Request.MultipartForm
	}

	draft := service.PublicationDraft{Fields: service.PublicationFields{
		Title:           strings.TrimSpace(c.PostForm("title")),
		Type:            strings.TrimSpace(c.PostForm("type")),
		Abstract:        c.PostForm("abstract"),
		PublicationDate: strings.TrimSpace(c.PostForm("publication_date")),
		DOI:             strings.TrimSpace(c.PostForm("doi")),
		Journal:         strings.TrimSpace(c.PostForm("journal")),
		Conference:      strings.TrimSpace(c.PostForm("conference")),
		Volume:          strings.TrimSpace(c.PostForm("volume")),
		Issue:           strings.TrimSpace(c.PostForm("issue")),
		Pages:           strings.TrimSpace(c.PostForm("pages")),
		Publisher:       strings.TrimSpace(c.PostForm("publisher")),
		Keywords:        strings.TrimSpace(c.PostForm("keywords")),
		Public:          formBool(c.PostForm("public")),
	}}

	if mf != nil {
		for _, fh := range mf.File["preview_img"] {
			f, err := readUpload(fh)
			if err != nil {
				return service.PublicationDraft{}, err
			}
			draft.PreviewImages = append(draft.PreviewImages, f)
		}
	}

	// 未提交的列表保持原样，提交空数组才表示全部删除
	rawCoAuthors, ok := c.GetPostForm("co_authors")
	draft.KeepCoAuthors = !ok
	if raw := strings.TrimSpace(rawCoAuthors); raw != "" {
		var items []coAuthorPayload
		if err := json.Unmarshal([]byte(raw), &items); err != nil {
			return service.PublicationDraft{}, errors.New("Invalid co_authors payload")
		}
		for _, item := range items {
			fields := service.CoAuthorFields{
				Name:            strings.TrimSpace(item.Name),
				Email:           strings.TrimSpace(item.Email),
				Institution:     strings.TrimSpace(item.Institution),
				Order:           item.Order,
				IsCorresponding: item.IsCorresponding,
			}
			if item.ID != "" {
				draft.CoAuthors = append(draft.CoAuthors, service.PersistedDraft(item.ID, fields))
			} else {
				draft.CoAuthors = append(draft.CoAuthors, service.NewDraft(fields))
			}
		}
	}

	rawFiles, ok := c.GetPostForm("files")
	draft.KeepFiles = !ok
	if raw := strings.TrimSpace(rawFiles); raw != "" {
		var items []filePayload
		if err := json.Unmarshal([]byte(raw), &items); err != nil {
			return service.PublicationDraft{}, errors.New("Invalid files payload")
		}
		for _, item := range items {
			fields := service.FileFields{
				FileType:    item.FileType,
				Visibility:  item.Visibility,
				Version:     strings.TrimSpace(item.Version),
				Description: strings.TrimSpace(item.Description),
			}
			if item.ID != "" {
				draft.Files = append(draft.Files, service.PersistedDraft(item.ID, fields))
				continue
			}
			if item.Upload != "" && mf != nil {
				if headers := mf.File[item.Upload]; len(headers) > 0 {
					f, err := readUpload(headers[0])
					if err != nil {
						return service.PublicationDraft{}, err
					}
					fields.Upload = &f
				}
			}
			draft.Files = append(draft.Files, service.NewDraft(fields))
		}
	}
	return draft, nil
}

func readUpload(fh *multipart.FileHeader) (baas.File, error) {
	src, err := fh.Open()
	if err != nil {
		return baas.File{}, fmt.Errorf("Failed to read upload %s", fh.Filename)
	}
	defer src.Close()
	data, err := io.ReadAll(src)
	if err != nil {
		return baas.File{}, fmt.Errorf("Failed to read upload %s", fh.Filename)
	}
	return baas.File{Name: fh.Filename, ContentType: fh.Header.Get("Content-Type"), Data: data}, nil
}

func formBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "on", "yes":
		return true
	}
	b, _ := strconv.ParseBool(strings.TrimSpace(raw))
	return b
}
