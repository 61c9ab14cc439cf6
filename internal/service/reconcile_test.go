package service

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNewPlan(t *testing.T) {
	a := CoAuthorFields{Name: "A", Order: 1}
	b := CoAuthorFields{Name: "B", Order: 2}
	c := CoAuthorFields{Name: "C", Order: 3}
	changed := func(x, y CoAuthorFields) bool { return x != y }

	cases := []struct {
		name     string
		original []Draft[CoAuthorFields]
		current  []Draft[CoAuthorFields]
		changed  func(x, y CoAuthorFields) bool
		want     Plan[CoAuthorFields]
	}{
		{
			name:     "unchanged persisted items",
			original: []Draft[CoAuthorFields]{PersistedDraft("1", a), PersistedDraft("2", b)},
			current:  []Draft[CoAuthorFields]{PersistedDraft("1", a), PersistedDraft("2", b)},
			want:     Plan[CoAuthorFields]{},
		},
		{
			name:     "remove one and add one",
			original: []Draft[CoAuthorFields]{PersistedDraft("1", a), PersistedDraft("2", b)},
			current:  []Draft[CoAuthorFields]{PersistedDraft("1", a), NewDraft(c)},
			want:     Plan[CoAuthorFields]{Deletes: []string{"2"}, Creates: []CoAuthorFields{c}},
		},
		{
			name:     "everything removed",
			original: []Draft[CoAuthorFields]{PersistedDraft("1", a), PersistedDraft("2", b)},
			want:     Plan[CoAuthorFields]{Deletes: []string{"1", "2"}},
		},
		{
			name:    "only new drafts",
			current: []Draft[CoAuthorFields]{NewDraft(a), NewDraft(b)},
			want:    Plan[CoAuthorFields]{Creates: []CoAuthorFields{a, b}},
		},
		{
			name:     "edited persisted item is ignored by default",
			original: []Draft[CoAuthorFields]{PersistedDraft("1", a)},
			current:  []Draft[CoAuthorFields]{PersistedDraft("1", b)},
			want:     Plan[CoAuthorFields]{},
		},
		{
			name:     "edited persisted item is updated when tracked",
			original: []Draft[CoAuthorFields]{PersistedDraft("1", a), PersistedDraft("2", b)},
			current:  []Draft[CoAuthorFields]{PersistedDraft("1", c), PersistedDraft("2", b)},
			changed:  changed,
			want:     Plan[CoAuthorFields]{Updates: []Draft[CoAuthorFields]{PersistedDraft("1", c)}},
		},
	}

	for _, tc := range cases {
		tc := tc // per-iteration copy (go1.21 loop semantics)
		t.Run(tc.name, func(t *testing.T) {
			got := NewPlan(tc.original, tc.current, tc.changed)
			if diff := cmp.Diff(tc.want, got, cmp.AllowUnexported(Draft[CoAuthorFields]{})); diff != "" {
				t.Fatalf("plan mismatch (-want +got):\n%s", diff)
			}
			if got.Empty() != (len(tc.want.Deletes)+len(tc.want.Creates)+len(tc.want.Updates) == 0) {
				t.Fatalf("Empty() = %v for %+v", got.Empty(), got)
			}
		})
	}
}

func TestSnapshotDraftMarksEverythingPersisted(t *testing.T) {
	snap := Snapshot{
		Publication: Publication{ID: "X", Title: "T", Type: "Article", Public: true},
		CoAuthors:   []CoAuthor{{ID: "1", Name: "A"}},
		Files:       []PublicationFile{{ID: "f1", File: "a.pdf", FileType: "dataset"}},
	}
	d := snap.Draft()
	if d.Fields.Title != "T" || !d.Fields.Public {
		t.Fatalf("unexpected fields: %+v", d.Fields)
	}
	if d.CoAuthors[0].IsNew() || d.CoAuthors[0].ID() != "1" {
		t.Fatalf("co-author should be persisted: %+v", d.CoAuthors[0])
	}
	if d.Files[0].IsNew() || d.Files[0].Fields.StoredName != "a.pdf" {
		t.Fatalf("file should be persisted: %+v", d.Files[0])
	}
	if !NewPlan(snap.Draft().CoAuthors, d.CoAuthors, nil).Empty() {
		t.Fatal("plan of an untouched snapshot should be empty")
	}
}

func TestSyncReport(t *testing.T) {
	boom := errors.New("boom")
	var r SyncReport
	r.add(KindCoAuthor, ActionDelete, "1", nil)
	r.add(KindCoAuthor, ActionCreate, "", boom)
	r.add(KindFile, ActionSkip, "", nil)

	if r.OK() {
		t.Fatal("expected report to contain a failure")
	}
	if !errors.Is(r.Err(), boom) {
		t.Fatalf("Err() should wrap the item error, got %v", r.Err())
	}
	if got := r.Failed()[0].Error; got != UnexpectedErrorMessage {
		t.Fatalf("unexpected item message %q", got)
	}
	if r.Count(KindFile, ActionSkip) != 1 || r.Count(KindCoAuthor, ActionDelete) != 1 {
		t.Fatalf("unexpected counts: %+v", r.Items)
	}

	var empty SyncReport
	if !empty.OK() || empty.Err() != nil {
		t.Fatal("empty report should be OK")
	}
}
