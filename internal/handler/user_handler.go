package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pubshare/internal/baas"
	"github.com/pubshare/internal/service"
)

type profileResponse struct {
	User  *service.User        `json:"user"`
	Stats service.ProfileStats `json:"stats"`
}

// GetUser returns a profile with the totals of the user's publications.
func (a *API) GetUser(c *gin.Context) {
	lib := a.library(c)
	ctx := c.Request.Context()
	id := c.Param("id")

	user, err := lib.Users.Get(ctx, id)
	if err != nil {
		a.fail(c, err)
		return
	}
	stats, err := lib.Users.Stats(ctx, id)
	if err != nil {
		a.fail(c, err)
		return
	}
	respond(c, http.StatusOK, profileResponse{User: user, Stats: stats})
}

// ListUserPublications 返回某个用户对当前访问者可见的出版物
func (a *API) ListUserPublications(c *gin.Context) {
	page, err := a.library(c).Publications.ListByUser(c.Request.Context(), c.Param("id"), pageQuery(c), perPageQuery(c, feedPerPage))
	if err != nil {
		a.fail(c, err)
		return
	}
	respond(c, http.StatusOK, page)
}

// UpdateProfile 更新当前用户资料，avatar 为可选附件
func (a *API) UpdateProfile(c *gin.Context) {
	lib := a.library(c)
	current, err := lib.Auth.RequireUser()
	if err != nil {
		a.fail(c, err)
		return
	}

	in := service.ProfileInput{
		Name:           c.PostForm("name"),
		Bio:            c.PostForm("bio"),
		Institution:    c.PostForm("institution"),
		Department:     c.PostForm("department"),
		Company:        c.PostForm("company"),
		Position:       c.PostForm("position"),
		Website:        c.PostForm("website"),
		OrcidID:        c.PostForm("orcid_id"),
		ResearcherType: c.PostForm("researcher_type"),
		IsScientific:   formBool(c.PostForm("is_scientific")),
	}
	if fh, err := c.FormFile("avatar"); err == nil {
		var avatar baas.File
		if avatar, err = readUpload(fh); err != nil {
			respondError(c, http.StatusBadRequest, err.Error())
			return
		}
		in.Avatar = &avatar
	}

	user, err := lib.Users.UpdateProfile(c.Request.Context(), current.ID, in)
	if err != nil {
		a.fail(c, err)
		return
	}
	respond(c, http.StatusOK, user)
}
