package service

import (
	"context"
	"fmt"

	"github.com/pubshare/internal/baas"
	"go.uber.org/zap"
)

// CreatePublication creates the publication and then, in order, every
// co-author and file draft tagged with the new id. Only the publication
// create can fail the workflow; child failures are in the report.
func (l *Library) CreatePublication(ctx context.Context, draft PublicationDraft) (*Publication, SyncReport, error) {
	user, err := l.Auth.RequireUser()
	if err != nil {
		return nil, SyncReport{}, err
	}
	if err := ValidatePreviewImages(draft.PreviewImages); err != nil {
		return nil, SyncReport{}, err
	}

	form := draft.Fields.Form()
	for _, img := range draft.PreviewImages {
		form.AddFile("preview_img", img)
	}
	form.Set("user", user.ID).
		Set("views_count", 0).
		Set("downloads_count", 0).
		Set("citations_count", 0)

	pub, err := l.Publications.Create(ctx, form)
	if err != nil {
		return nil, SyncReport{}, err
	}

	var report SyncReport
	coAuthors := make([]CoAuthorFields, 0, len(draft.CoAuthors))
	for _, d := range draft.CoAuthors {
		coAuthors = append(coAuthors, d.Fields)
	}
	l.Reconciler.createCoAuthors(ctx, &report, pub.ID, coAuthors)

	files := make([]FileFields, 0, len(draft.Files))
	for _, d := range draft.Files {
		files = append(files, d.Fields)
	}
	l.Reconciler.createFiles(ctx, &report, pub.ID, files, false)
	l.Reconciler.logFailures(pub.ID, report)

	l.logger.Info("publication created",
		zap.String("publication", pub.ID),
		zap.String("user", user.ID),
		zap.Int("co_authors", report.Count(KindCoAuthor, ActionCreate)),
		zap.Int("files", report.Count(KindFile, ActionCreate)),
		zap.Int("failed", len(report.Failed())))
	return pub, report, nil
}

// LoadForEdit loads the publication with its co-authors and files. Only the
// owner may edit.
func (l *Library) LoadForEdit(ctx context.Context, id string) (Snapshot, error) {
	user, err := l.Auth.RequireUser()
	if err != nil {
		return Snapshot{}, err
	}
	pub, err := l.Publications.Get(ctx, id)
	if err != nil {
		if baas.IsNotFound(err) {
			return Snapshot{}, fmt.Errorf("%w: %s", ErrPublicationNotFound, id)
		}
		return Snapshot{}, err
	}
	if pub.UserID != user.ID {
		return Snapshot{}, ErrNotOwner
	}
	coAuthors, err := l.CoAuthors.List(ctx, id)
	if err != nil {
		return Snapshot{}, err
	}
	files, err := l.Files.List(ctx, id)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Publication: *pub, CoAuthors: coAuthors, Files: files}, nil
}

// EditPublication updates the scalar fields and preview images, then
// reconciles co-authors and files against the stored state.
func (l *Library) EditPublication(ctx context.Context, id string, draft PublicationDraft) (*Publication, SyncReport, error) {
	snapshot, err := l.LoadForEdit(ctx, id)
	if err != nil {
		return nil, SyncReport{}, err
	}
	return l.ApplyEdit(ctx, snapshot, draft)
}

// ApplyEdit is EditPublication with an already loaded snapshot.
func (l *Library) ApplyEdit(ctx context.Context, snapshot Snapshot, draft PublicationDraft) (*Publication, SyncReport, error) {
	if err := ValidatePreviewImages(draft.PreviewImages); err != nil {
		return nil, SyncReport{}, err
	}
	id := snapshot.Publication.ID

	form := draft.Fields.Form()
	for _, img := range draft.PreviewImages {
		form.AddFile("preview_img", img)
	}
	pub, err := l.Publications.Update(ctx, id, form)
	if err != nil {
		return nil, SyncReport{}, err
	}

	report := l.Reconciler.Sync(ctx, id, snapshot, draft, l.sync)
	l.logger.Info("publication updated",
		zap.String("publication", id),
		zap.Int("deleted", report.Count(KindCoAuthor, ActionDelete)+report.Count(KindFile, ActionDelete)),
		zap.Int("created", report.Count(KindCoAuthor, ActionCreate)+report.Count(KindFile, ActionCreate)),
		zap.Int("failed", len(report.Failed())))
	return pub, report, nil
}
