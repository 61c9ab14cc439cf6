package service

import (
	"github.com/pubshare/internal/baas"
	"go.uber.org/zap"
)

// Options configures a Library.
type Options struct {
	CounterMode      CounterMode
	BatchConcurrency int
	Sync             SyncOptions
	Logger           *zap.Logger
}

// Library groups the domain services bound to one client. The HTTP layer
// builds one per request around a per-request client.
type Library struct {
	Client       baas.Client
	Auth         *AuthService
	Publications *PublicationService
	CoAuthors    *CoAuthorService
	Files        *FileService
	Comments     *CommentService
	Users        *UserService
	Counters     *CounterService
	Reconciler   *Reconciler

	sync   SyncOptions
	logger *zap.Logger
}

// New wires every service around client.
func New(client baas.Client, opts Options) *Library {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	coAuthors := NewCoAuthorService(client)
	files := NewFileService(client)
	return &Library{
		Client:       client,
		Auth:         NewAuthService(client),
		Publications: NewPublicationService(client),
		CoAuthors:    coAuthors,
		Files:        files,
		Comments:     NewCommentService(client),
		Users:        NewUserService(client),
		Counters:     NewCounterService(client, opts.CounterMode),
		Reconciler:   NewReconciler(coAuthors, files, NewDispatcher(opts.BatchConcurrency), logger),
		sync:         opts.Sync,
		logger:       logger,
	}
}

// FileURL returns the public URL of a stored file.
func (l *Library) FileURL(record *baas.Record, filename string) string {
	return l.Client.FileURL(record, filename)
}
