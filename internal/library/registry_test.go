package library

import (
	"errors"
	"reflect"
	"testing"
)

func TestAddDeduplicates(t *testing.T) {
	r := NewRegistry()

	id1, isNew := r.Add("/videos/a.mp4")
	if !isNew {
		t.Fatal("first add should be new")
	}
	id2, isNew := r.Add("/videos/a.mp4")
	if isNew {
		t.Error("second add of same path should not be new")
	}
	if id1 != id2 {
		t.Errorf("duplicate should return existing id %d, got %d", id1, id2)
	}
	// Uncleaned spelling of the same path.
	id3, isNew := r.Add("/videos/./a.mp4")
	if isNew || id3 != id1 {
		t.Errorf("cleaned duplicate should map to %d, got %d (new=%v)", id1, id3, isNew)
	}
	if r.Len() != 1 {
		t.Errorf("expected 1 entry, got %d", r.Len())
	}
}

func TestIDsMonotonicAndDuplicatesConsumeNone(t *testing.T) {
	r := NewRegistry()
	drops := []string{"/a.mp4", "/b.mp4", "/a.mp4", "/c.mp4", "/b.mp4", "/d.mp4"}

	var ids []ID
	for _, p := range drops {
		if id, isNew := r.Add(p); isNew {
			ids = append(ids, id)
		}
	}

	want := []ID{1, 2, 3, 4}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("expected ids %v, got %v", want, ids)
	}
	for i := 1; i < len(ids); i++ {
		if ids[i] <= ids[i-1] {
			t.Errorf("ids not strictly increasing: %v", ids)
		}
	}
}

func TestSnapshotKeepsInsertionOrder(t *testing.T) {
	r := NewRegistry()
	r.Add("/z.mp4")
	r.Add("/a.mp4")
	r.Add("/m.mp4")

	snap := r.Snapshot()
	got := []string{snap[0].Path, snap[1].Path, snap[2].Path}
	want := []string{"/z.mp4", "/a.mp4", "/m.mp4"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
	for _, e := range snap {
		if e.Status.Phase != Pending {
			t.Errorf("new entry %s should be pending, got %s", e.Path, e.Status.Phase)
		}
	}

	// Snapshot is a copy.
	snap[0].Path = "/mutated"
	if r.Find(1).Path != "/z.mp4" {
		t.Error("mutating snapshot should not affect registry")
	}
}

func TestContains(t *testing.T) {
	r := NewRegistry()
	r.Add("/a.mp4")
	if !r.Contains("/a.mp4") {
		t.Error("expected Contains true")
	}
	if r.Contains("/b.mp4") {
		t.Error("expected Contains false")
	}
	if r.Len() != 1 {
		t.Error("Contains must not add")
	}
}

func TestCompleteTargetsOnlyID(t *testing.T) {
	r := NewRegistry()
	a, _ := r.Add("/a.mp4")
	b, _ := r.Add("/b.mp4")
	r.Start(a)
	r.Start(b)

	found, err := r.Complete(a, "outcome-a", nil)
	if !found || err != nil {
		t.Fatalf("Complete(a) = %v, %v", found, err)
	}

	if got := r.Find(a).Status; got.Phase != Analyzed || got.Outcome != "outcome-a" {
		t.Errorf("a: unexpected status %+v", got)
	}
	if got := r.Find(b).Status; got.Phase != Analyzing || got.Outcome != nil {
		t.Errorf("b should be untouched, got %+v", got)
	}
}

func TestCompleteUnknownIDIsNoop(t *testing.T) {
	r := NewRegistry()
	r.Add("/a.mp4")
	before := r.Snapshot()

	found, err := r.Complete(99, "x", nil)
	if found || err != nil {
		t.Errorf("unknown id should be (false, nil), got (%v, %v)", found, err)
	}
	if !reflect.DeepEqual(before, r.Snapshot()) {
		t.Error("unknown completion must not mutate the registry")
	}
	if r.Find(99) != nil {
		t.Error("Find on unknown id should be nil")
	}
}

func TestCompleteFailure(t *testing.T) {
	r := NewRegistry()
	id, _ := r.Add("/a.mp4")
	r.Start(id)

	probeErr := errors.New("ffprobe: invalid data")
	if _, err := r.Complete(id, "ignored", probeErr); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	st := r.Find(id).Status
	if st.Phase != Failed || !errors.Is(st.Err, probeErr) {
		t.Errorf("expected Failed with error, got %+v", st)
	}
	if st.Outcome != nil {
		t.Errorf("failed entry should carry no outcome, got %v", st.Outcome)
	}
}

func TestTransitionsOnlyMoveForward(t *testing.T) {
	tests := []struct {
		name string
		from Phase
		to   Phase
		ok   bool
	}{
		{"pending to analyzing", Pending, Analyzing, true},
		{"pending to analyzed", Pending, Analyzed, true},
		{"pending to failed", Pending, Failed, true},
		{"analyzing to analyzed", Analyzing, Analyzed, true},
		{"analyzing to failed", Analyzing, Failed, true},
		{"analyzing to pending", Analyzing, Pending, false},
		{"analyzing to analyzing", Analyzing, Analyzing, false},
		{"analyzed to failed", Analyzed, Failed, false},
		{"analyzed to analyzing", Analyzed, Analyzing, false},
		{"failed to analyzed", Failed, Analyzed, false},
		{"failed to pending", Failed, Pending, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &Entry{ID: 1, Status: Status{Phase: tt.from}}
			err := e.moveTo(tt.to)
			if tt.ok && err != nil {
				t.Errorf("expected ok, got %v", err)
			}
			if !tt.ok {
				if !errors.Is(err, ErrIllegalTransition) {
					t.Errorf("expected ErrIllegalTransition, got %v", err)
				}
				if e.Status.Phase != tt.from {
					t.Errorf("rejected transition changed phase to %s", e.Status.Phase)
				}
			}
		})
	}
}

func TestDoubleCompletionRejected(t *testing.T) {
	r := NewRegistry()
	id, _ := r.Add("/a.mp4")
	r.Start(id)
	r.Complete(id, "first", nil)

	found, err := r.Complete(id, "second", nil)
	if !found || !errors.Is(err, ErrIllegalTransition) {
		t.Errorf("expected illegal transition, got (%v, %v)", found, err)
	}
	if r.Find(id).Status.Outcome != "first" {
		t.Error("second completion must not overwrite the outcome")
	}

	if _, err := r.Start(id); !errors.Is(err, ErrIllegalTransition) {
		t.Errorf("restarting a terminal entry should fail, got %v", err)
	}
}

func TestCompletionOrderIndependence(t *testing.T) {
	build := func() (*Registry, ID, ID) {
		r := NewRegistry()
		a, _ := r.Add("/a.mp4")
		b, _ := r.Add("/b.mkv")
		r.Start(a)
		r.Start(b)
		return r, a, b
	}
	errB := errors.New("probe failed")

	r1, a1, b1 := build()
	r1.Complete(a1, "A", nil)
	r1.Complete(b1, nil, errB)

	r2, a2, b2 := build()
	r2.Complete(b2, nil, errB)
	r2.Complete(a2, "A", nil)

	if !reflect.DeepEqual(r1.Snapshot(), r2.Snapshot()) {
		t.Errorf("final state depends on order:\n%+v\n%+v", r1.Snapshot(), r2.Snapshot())
	}
}

func TestCounts(t *testing.T) {
	r := NewRegistry()
	a, _ := r.Add("/a.mp4")
	b, _ := r.Add("/b.mp4")
	r.Add("/c.mp4")
	r.Start(a)
	r.Start(b)
	r.Complete(b, nil, errors.New("x"))

	c := r.Counts()
	if c[Pending] != 1 || c[Analyzing] != 1 || c[Failed] != 1 || c[Analyzed] != 0 {
		t.Errorf("unexpected counts %v", c)
	}
}

func TestTallyMatchesCounts(t *testing.T) {
	r := NewRegistry()
	a, _ := r.Add("/a.mp4")
	r.Add("/b.mp4")
	r.Start(a)
	r.Complete(a, "ok", nil)

	if !reflect.DeepEqual(Tally(r.Snapshot()), r.Counts()) {
		t.Errorf("Tally %v differs from Counts %v", Tally(r.Snapshot()), r.Counts())
	}
}
