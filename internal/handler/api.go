package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/pubshare/internal/baas"
	"github.com/pubshare/internal/service"
	"go.uber.org/zap"
)

const (
	libraryContextKey      = "__library"
	sessionErrorContextKey = "__session_error"
	sessionTokenKey        = "auth_token"
	sessionUserKey         = "user_id"
)

// API bundles shared dependencies for HTTP handlers.
type API struct {
	factory baas.ClientFactory
	opts    service.Options
	logger  *zap.Logger
}

// NewAPI constructs a handler set. Every request gets its own client built by
// factory, bound to the auth state stored in the session cookie.
func NewAPI(factory baas.ClientFactory, opts service.Options, logger *zap.Logger) *API {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts.Logger = logger
	return &API{factory: factory, opts: opts, logger: logger}
}

// SessionAuth 从会话恢复认证状态，并在认证状态变化时写回会话。
// 会话只保存令牌和用户 ID，用户资料每次请求重新读取。
func (a *API) SessionAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		auth := baas.NewAuthStore()
		client := a.factory(auth)

		token, _ := session.Get(sessionTokenKey).(string)
		userID, _ := session.Get(sessionUserKey).(string)
		if token != "" && userID != "" {
			if err := restoreAuth(c.Request.Context(), client, auth, token, userID); err != nil {
				if staleSession(err) {
					session.Delete(sessionTokenKey)
					session.Delete(sessionUserKey)
					if err := session.Save(); err != nil {
						a.logger.Warn("save session", zap.Error(err))
					}
				} else {
					a.logger.Warn("restore session", zap.String("user", userID), zap.Error(err))
				}
			}
		}

		unsubscribe := auth.OnChange(func(token string, model *baas.Record) {
			if token == "" || model == nil {
				session.Delete(sessionTokenKey)
				session.Delete(sessionUserKey)
			} else {
				session.Set(sessionTokenKey, token)
				session.Set(sessionUserKey, model.ID)
			}
			if err := session.Save(); err != nil {
				c.Set(sessionErrorContextKey, err)
				a.logger.Warn("save session", zap.Error(err))
			}
		})
		defer unsubscribe()

		c.Set(libraryContextKey, service.New(client, a.opts))
		c.Next()
	}
}

var errSessionExpired = errors.New("session token expired")

// restoreAuth loads the signed in user with the session token. The store is
// left empty when it fails.
func restoreAuth(ctx context.Context, client baas.Client, auth *baas.AuthStore, token, userID string) error {
	stub := baas.NewRecord(service.CollectionUsers)
	stub.ID = userID
	auth.Load(token, stub)
	if !auth.IsValid() {
		auth.Load("", nil)
		return errSessionExpired
	}
	rec, err := client.Get(ctx, service.CollectionUsers, userID, baas.GetOptions{})
	if err != nil {
		auth.Load("", nil)
		return err
	}
	auth.Load(token, rec)
	return nil
}

// staleSession reports whether the stored session can never be restored.
func staleSession(err error) bool {
	if errors.Is(err, errSessionExpired) {
		return true
	}
	if ce, ok := baas.AsClientError(err); ok {
		switch ce.Status {
		case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
			return true
		}
	}
	return false
}

// sessionError returns the error of a failed session write in this request.
func sessionError(c *gin.Context) error {
	if v, ok := c.Get(sessionErrorContextKey); ok {
		if err, ok := v.(error); ok {
			return err
		}
	}
	return nil
}

// library returns the per-request services set up by SessionAuth.
func (a *API) library(c *gin.Context) *service.Library {
	if v, ok := c.Get(libraryContextKey); ok {
		if lib, ok := v.(*service.Library); ok {
			return lib
		}
	}
	lib := service.New(a.factory(baas.NewAuthStore()), a.opts)
	c.Set(libraryContextKey, lib)
	return lib
}

// AuthRequired rejects guests before the handler runs.
func (a *API) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !a.library(c).Auth.IsAuthenticated() {
			a.fail(c, service.ErrNotAuthenticated)
			c.Abort()
			return
		}
		c.Next()
	}
}
