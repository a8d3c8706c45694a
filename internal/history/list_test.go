package history

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/SuLition/CatParse/internal/filestore"
	"github.com/SuLition/CatParse/internal/kvstore"
	"github.com/SuLition/CatParse/internal/model"
)

func memoryStorage() *kvstore.KeyStorage {
	return kvstore.New(kvstore.NewMemoryBackend(), nil).Key(StorageKeyDownloads)
}

func fixedClock() func() time.Time {
	return func() time.Time { return time.Date(2025, 3, 9, 14, 5, 0, 0, time.Local) }
}

// failingStorage reads nothing and refuses every write
type failingStorage struct{}

func (failingStorage) Load(any) bool { return false }
func (failingStorage) Save(any) bool { return false }
func (failingStorage) Remove() bool  { return false }

func TestDownloadHistory_AddStampsRecord(t *testing.T) {
	h := NewDownloadHistory(memoryStorage(), WithClock(fixedClock()))

	id, ok := h.Add(model.DownloadRecord{ID: "ignored", Title: "clip", Platform: "bilibili", Status: "other"})
	if !ok || id == "" {
		t.Fatalf("Add() = %q, %v", id, ok)
	}

	all := h.All()
	if len(all) != 1 {
		t.Fatalf("len(All()) = %d, want 1", len(all))
	}
	r := all[0]
	if r.ID != id {
		t.Errorf("ID = %q, want %q", r.ID, id)
	}
	if r.DownloadTime != "2025-03-09 14:05" {
		t.Errorf("DownloadTime = %q", r.DownloadTime)
	}
	if r.Status != model.DownloadStatusCompleted {
		t.Errorf("Status = %q, want completed", r.Status)
	}
}

func TestHistory_CapInvariant(t *testing.T) {
	const max, extra = 5, 3
	h := NewDownloadHistory(memoryStorage(), WithMaxRecords(func() int { return max }))

	for i := 0; i < max+extra; i++ {
		if _, ok := h.Add(model.DownloadRecord{Title: fmt.Sprintf("r%d", i)}); !ok {
			t.Fatalf("Add(%d) failed", i)
		}
	}

	all := h.All()
	if len(all) != max {
		t.Fatalf("len(All()) = %d, want %d", len(all), max)
	}
	for i, r := range all {
		want := fmt.Sprintf("r%d", max+extra-1-i)
		if r.Title != want {
			t.Errorf("All()[%d].Title = %q, want %q", i, r.Title, want)
		}
	}
}

func TestHistory_UniqueIDs(t *testing.T) {
	h := NewDownloadHistory(memoryStorage())

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		id, _ := h.Add(model.DownloadRecord{})
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}

func TestParseHistory_Dedup(t *testing.T) {
	h := NewParseHistory(filestore.New(t.TempDir(), nil).File(filestore.ParseHistoryFile))

	h.Add(model.ParseRecord{VideoID: "v1", Platform: "bilibili", RewrittenText: "first"})
	h.Add(model.ParseRecord{VideoID: "v1", Platform: "douyin", RewrittenText: "other platform"})
	h.Add(model.ParseRecord{VideoID: "v2", Platform: "bilibili", RewrittenText: "other video"})
	secondID, _ := h.Add(model.ParseRecord{VideoID: "v1", Platform: "bilibili", RewrittenText: "second"})

	all := h.All()
	if len(all) != 3 {
		t.Fatalf("len(All()) = %d, want 3", len(all))
	}
	if all[0].ID != secondID || all[0].RewrittenText != "second" {
		t.Errorf("head = %+v, want the second bilibili v1 record", all[0])
	}
	count := 0
	for _, r := range all {
		if r.VideoID == "v1" && r.Platform == "bilibili" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("entries for (v1, bilibili) = %d, want 1", count)
	}
}

func TestParseHistory_EmptyVideoIDNotDeduped(t *testing.T) {
	h := NewParseHistory(filestore.New(t.TempDir(), nil).File(filestore.ParseHistoryFile))

	h.Add(model.ParseRecord{Platform: "bilibili", Title: "a"})
	h.Add(model.ParseRecord{Platform: "bilibili", Title: "b"})

	if n := len(h.All()); n != 2 {
		t.Errorf("len(All()) = %d, want 2", n)
	}
}

func TestParseHistory_CapFromProvider(t *testing.T) {
	max := 3
	h := NewParseHistory(
		filestore.New(t.TempDir(), nil).File(filestore.ParseHistoryFile),
		WithMaxRecords(func() int { return max }),
	)

	for i := 0; i < 5; i++ {
		h.Add(model.ParseRecord{Title: fmt.Sprint(i)})
	}
	if n := len(h.All()); n != 3 {
		t.Fatalf("len(All()) = %d, want 3", n)
	}

	max = 2
	h.Add(model.ParseRecord{Title: "last"})
	if n := len(h.All()); n != 2 {
		t.Errorf("len(All()) after lowering cap = %d, want 2", n)
	}
}

func TestHistory_Update(t *testing.T) {
	h := NewParseHistory(memoryStorage())
	id, _ := h.Add(model.ParseRecord{Title: "before", Platform: "douyin"})

	if !h.Update(id, map[string]any{"title": "after", "id": "hijack", "rewrittenText": "new"}) {
		t.Fatal("Update() = false")
	}

	r := h.All()[0]
	if r.ID != id {
		t.Errorf("ID = %q, id must not be patched", r.ID)
	}
	if r.Title != "after" || r.RewrittenText != "new" || r.Platform != "douyin" {
		t.Errorf("record after Update = %+v", r)
	}

	if h.Update("missing", map[string]any{"title": "x"}) {
		t.Error("Update() of unknown id = true")
	}
	if h.Update(id, map[string]any{"title": 42}) {
		t.Error("Update() with mistyped field = true")
	}
}

func TestHistory_DeleteAndClear(t *testing.T) {
	h := NewDownloadHistory(memoryStorage())
	a, _ := h.Add(model.DownloadRecord{Title: "a"})
	h.Add(model.DownloadRecord{Title: "b"})

	if !h.Delete(a) {
		t.Fatal("Delete() = false")
	}
	if !h.Delete(a) {
		t.Error("Delete() of absent id should succeed")
	}
	if all := h.All(); len(all) != 1 || all[0].Title != "b" {
		t.Errorf("All() after Delete = %+v", all)
	}

	if !h.Clear() {
		t.Fatal("Clear() = false")
	}
	if all := h.All(); all == nil || len(all) != 0 {
		t.Errorf("All() after Clear = %#v, want empty list", all)
	}
}

func TestHistory_PersistenceFailure(t *testing.T) {
	h := NewDownloadHistory(failingStorage{})

	if id, ok := h.Add(model.DownloadRecord{}); ok || id != "" {
		t.Errorf("Add() = %q, %v, want failure", id, ok)
	}
	if all := h.All(); len(all) != 0 {
		t.Errorf("All() = %v, want empty", all)
	}
}

func TestHistory_ConcurrentAddsInOneInstance(t *testing.T) {
	h := NewDownloadHistory(memoryStorage())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.Add(model.DownloadRecord{})
		}()
	}
	wg.Wait()

	if n := len(h.All()); n != 20 {
		t.Errorf("len(All()) = %d, want 20", n)
	}
}

// gatedStorage lets a test interleave two read-modify-write cycles
type gatedStorage struct {
	inner Storage
	read  chan struct{}
	write chan struct{}
}

func (g *gatedStorage) Load(dst any) bool {
	ok := g.inner.Load(dst)
	g.read <- struct{}{}
	return ok
}

func (g *gatedStorage) Save(v any) bool {
	<-g.write
	return g.inner.Save(v)
}

func (g *gatedStorage) Remove() bool { return g.inner.Remove() }

func TestHistory_TwoInstancesLastWriteWins(t *testing.T) {
	shared := memoryStorage()
	ga := &gatedStorage{inner: shared, read: make(chan struct{}, 1), write: make(chan struct{})}
	gb := &gatedStorage{inner: shared, read: make(chan struct{}, 1), write: make(chan struct{})}
	a := NewDownloadHistory(ga)
	b := NewDownloadHistory(gb)

	done := make(chan struct{}, 2)
	go func() { a.Add(model.DownloadRecord{Title: "from a"}); done <- struct{}{} }()
	go func() { b.Add(model.DownloadRecord{Title: "from b"}); done <- struct{}{} }()

	// both read the empty list before either writes
	<-ga.read
	<-gb.read
	ga.write <- struct{}{}
	<-done
	gb.write <- struct{}{}
	<-done

	all := NewDownloadHistory(shared).All()
	if len(all) != 1 || all[0].Title != "from b" {
		t.Errorf("All() = %+v, want only the last write", all)
	}
}
