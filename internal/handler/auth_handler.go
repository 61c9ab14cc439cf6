package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pubshare/internal/service"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signupRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
	Name            string `json:"name"`
	ResearcherType  string `json:"researcher_type"`
	Institution     string `json:"institution"`
	Department      string `json:"department"`
	Company         string `json:"company"`
	Position        string `json:"position"`
	Bio             string `json:"bio"`
	OrcidID         string `json:"orcid_id"`
	Website         string `json:"website"`
	IsScientific    bool   `json:"is_scientific"`
}

// Login 使用邮箱和密码登录
func (a *API) Login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req, "Invalid login payload") {
		return
	}
	user, err := a.library(c).Auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		a.fail(c, err)
		return
	}
	if err := sessionError(c); err != nil {
		a.fail(c, fmt.Errorf("persist login session: %w", err))
		return
	}
	respond(c, http.StatusOK, user)
}

// Signup 注册后立即登录
func (a *API) Signup(c *gin.Context) {
	var req signupRequest
	if !bindJSON(c, &req, "Invalid signup payload") {
		return
	}
	user, err := a.library(c).Auth.Signup(c.Request.Context(), service.SignupInput{
		Email:           req.Email,
		Password:        req.Password,
		PasswordConfirm: req.PasswordConfirm,
		Name:            req.Name,
		ResearcherType:  req.ResearcherType,
		Institution:     req.Institution,
		Department:      req.Department,
		Company:         req.Company,
		Position:        req.Position,
		Bio:             req.Bio,
		OrcidID:         req.OrcidID,
		Website:         req.Website,
		IsScientific:    req.IsScientific,
	})
	if err != nil {
		a.fail(c, err)
		return
	}
	if err := sessionError(c); err != nil {
		a.fail(c, fmt.Errorf("persist signup session: %w", err))
		return
	}
	respond(c, http.StatusCreated, user)
}

// Logout clears the session.
func (a *API) Logout(c *gin.Context) {
	a.library(c).Auth.Logout()
	respond(c, http.StatusOK, true)
}

// Me returns the signed in user or null.
func (a *API) Me(c *gin.Context) {
	respond(c, http.StatusOK, a.library(c).Auth.Current())
}
