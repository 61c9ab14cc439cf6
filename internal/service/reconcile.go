package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/pubshare/internal/metrics"
	"go.uber.org/zap"
)

// 同步项目类型与动作
const (
	KindCoAuthor = "co_author"
	KindFile     = "file"

	ActionCreate = "create"
	ActionDelete = "delete"
	ActionUpdate = "update"
	ActionSkip   = "skip"
)

// SyncOptions tunes reconciliation.
type SyncOptions struct {
	// UpdateChanged sends an update for persisted drafts whose fields differ
	// from the loaded snapshot. Off by default: such edits are dropped.
	UpdateChanged bool
}

// Plan lists the remote calls needed to converge a child collection.
type Plan[F any] struct {
	Deletes []string
	Creates []F
	Updates []Draft[F]
}

// Empty reports whether the plan has nothing to do.
func (p Plan[F]) Empty() bool {
	return len(p.Deletes) == 0 && len(p.Creates) == 0 && len(p.Updates) == 0
}

// NewPlan diffs the current drafts against the originally loaded items.
// Every original id missing from current is deleted; every New draft is
// created. changed, when non-nil, selects persisted drafts to update.
func NewPlan[F any](original, current []Draft[F], changed func(before, after F) bool) Plan[F] {
	currentIDs := make(map[string]bool, len(current))
	for _, d := range current {
		if !d.IsNew() {
			currentIDs[d.ID()] = true
		}
	}

	var plan Plan[F]
	originals := make(map[string]F, len(original))
	for _, o := range original {
		originals[o.ID()] = o.Fields
		if !currentIDs[o.ID()] {
			plan.Deletes = append(plan.Deletes, o.ID())
		}
	}
	for _, d := range current {
		if d.IsNew() {
			plan.Creates = append(plan.Creates, d.Fields)
			continue
		}
		if changed == nil {
			continue
		}
		if before, ok := originals[d.ID()]; ok && changed(before, d.Fields) {
			plan.Updates = append(plan.Updates, d)
		}
	}
	return plan
}

// ItemResult is the outcome of one reconciliation call.
type ItemResult struct {
	Kind   string `json:"kind"`
	Action string `json:"action"`
	ID     string `json:"id,omitempty"`
	Error  string `json:"error,omitempty"`
	err    error
}

// Err returns the underlying error.
func (r ItemResult) Err() error {
	return r.err
}

// SyncReport collects the per-item outcomes of a workflow.
type SyncReport struct {
	Items []ItemResult `json:"items"`
}

func (r *SyncReport) add(kind, action, id string, err error) {
	item := ItemResult{Kind: kind, Action: action, ID: id, err: err}
	if err != nil {
		item.Error = ErrorMessage(err)
	}
	r.Items = append(r.Items, item)
	if action != ActionSkip {
		metrics.RecordSync(kind, action, err)
	}
}

// Failed returns the items whose call failed.
func (r SyncReport) Failed() []ItemResult {
	var out []ItemResult
	for _, item := range r.Items {
		if item.err != nil {
			out = append(out, item)
		}
	}
	return out
}

// OK reports whether every call succeeded.
func (r SyncReport) OK() bool {
	return len(r.Failed()) == 0
}

// Err joins the item errors, nil when everything succeeded.
func (r SyncReport) Err() error {
	var errs []error
	for _, item := range r.Failed() {
		errs = append(errs, fmt.Errorf("%s %s %s: %w", item.Action, item.Kind, item.ID, item.err))
	}
	return errors.Join(errs...)
}

// Count returns how many items match kind and action.
func (r SyncReport) Count(kind, action string) int {
	n := 0
	for _, item := range r.Items {
		if item.Kind == kind && item.Action == action {
			n++
		}
	}
	return n
}

// Reconciler converges remote co-authors and files to a local draft.
type Reconciler struct {
	coAuthors  *CoAuthorService
	files      *FileService
	dispatcher *Dispatcher
	logger     *zap.Logger
}

// NewReconciler creates a Reconciler instance.
func NewReconciler(coAuthors *CoAuthorService, files *FileService, dispatcher *Dispatcher, logger *zap.Logger) *Reconciler {
	if dispatcher == nil {
		dispatcher = NewDispatcher(1)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{coAuthors: coAuthors, files: files, dispatcher: dispatcher, logger: logger}
}

// Sync runs co-author deletes and creates, then file deletes and creates.
// Individual failures are recorded and never abort the remaining calls.
// A child kind marked Keep in the draft is left as stored.
func (r *Reconciler) Sync(ctx context.Context, publicationID string, snapshot Snapshot, draft PublicationDraft, opts SyncOptions) SyncReport {
	var report SyncReport
	original := snapshot.Draft()

	var coChanged func(a, b CoAuthorFields) bool
	var fileChanged func(a, b FileFields) bool
	if opts.UpdateChanged {
		coChanged = func(a, b CoAuthorFields) bool { return a != b }
		fileChanged = func(a, b FileFields) bool { return !a.sameMetadata(b) }
	}

	if !draft.KeepCoAuthors {
		coPlan := NewPlan(original.CoAuthors, draft.CoAuthors, coChanged)
		r.deleteAll(ctx, &report, KindCoAuthor, coPlan.Deletes, r.coAuthors.Delete)
		r.createCoAuthors(ctx, &report, publicationID, coPlan.Creates)
		for _, d := range coPlan.Updates {
			_, err := r.coAuthors.Update(ctx, d.ID(), publicationID, d.Fields)
			report.add(KindCoAuthor, ActionUpdate, d.ID(), err)
		}
	}

	if !draft.KeepFiles {
		filePlan := NewPlan(original.Files, draft.Files, fileChanged)
		r.deleteAll(ctx, &report, KindFile, filePlan.Deletes, r.files.Delete)
		r.createFiles(ctx, &report, publicationID, filePlan.Creates, true)
		for _, d := range filePlan.Updates {
			_, err := r.files.UpdateMetadata(ctx, d.ID(), d.Fields)
			report.add(KindFile, ActionUpdate, d.ID(), err)
		}
	}

	r.logFailures(publicationID, report)
	return report
}

// deleteAll always runs sequentially.
func (r *Reconciler) deleteAll(ctx context.Context, report *SyncReport, kind string, ids []string, del func(context.Context, string) error) {
	for _, id := range ids {
		err := ctx.Err()
		if err == nil {
			err = del(ctx, id)
		}
		report.add(kind, ActionDelete, id, err)
	}
}

func (r *Reconciler) createCoAuthors(ctx context.Context, report *SyncReport, publicationID string, drafts []CoAuthorFields) {
	ids := make([]string, len(drafts))
	tasks := make([]Task, len(drafts))
	for i, fields := range drafts {
		i, fields := i, fields // per-iteration copy (go1.21 loop semantics)
		tasks[i] = Task{Kind: KindCoAuthor, Action: ActionCreate, Run: func(ctx context.Context) error {
			created, err := r.coAuthors.Create(ctx, publicationID, fields)
			if err == nil {
				ids[i] = created.ID
			}
			return err
		}}
	}
	for i, err := range r.dispatcher.Run(ctx, tasks) {
		report.add(KindCoAuthor, ActionCreate, ids[i], err)
	}
}

// createFiles uploads file drafts. With skipEmpty, drafts without binary
// content are reported as skipped instead of being sent.
func (r *Reconciler) createFiles(ctx context.Context, report *SyncReport, publicationID string, drafts []FileFields, skipEmpty bool) {
	ids := make([]string, len(drafts))
	var tasks []Task
	var slots []int
	for i, fields := range drafts {
		i, fields := i, fields // per-iteration copy (go1.21 loop semantics)
		if skipEmpty && !fields.HasContent() {
			report.add(KindFile, ActionSkip, "", nil)
			continue
		}
		slots = append(slots, i)
		tasks = append(tasks, Task{Kind: KindFile, Action: ActionCreate, Run: func(ctx context.Context) error {
			created, err := r.files.Create(ctx, publicationID, fields)
			if err == nil {
				ids[i] = created.ID
			}
			return err
		}})
	}
	for j, err := range r.dispatcher.Run(ctx, tasks) {
		report.add(KindFile, ActionCreate, ids[slots[j]], err)
	}
}

func (r *Reconciler) logFailures(publicationID string, report SyncReport) {
	for _, item := range report.Failed() {
		r.logger.Warn("publication sync item failed",
			zap.String("publication", publicationID),
			zap.String("kind", item.Kind),
			zap.String("action", item.Action),
			zap.String("id", item.ID),
			zap.Error(item.err))
	}
}
