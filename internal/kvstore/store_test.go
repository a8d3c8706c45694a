package kvstore

import (
	"errors"
	"math"
	"testing"

	"fyne.io/fyne/v2/test"
)

type failingBackend struct {
	err error
	raw string
}

func (f *failingBackend) Get(string) (string, bool, error) {
	if f.raw != "" {
		return f.raw, true, nil
	}
	return "", false, f.err
}
func (f *failingBackend) Set(string, string) error { return f.err }
func (f *failingBackend) Remove(string) error      { return f.err }
func (f *failingBackend) Clear() error             { return f.err }

type sample struct {
	Name  string   `json:"name"`
	Count int      `json:"count"`
	Tags  []string `json:"tags"`
}

func TestStore_RoundTrip(t *testing.T) {
	backends := map[string]Backend{
		"memory":      NewMemoryBackend(),
		"preferences": NewPreferencesBackend(test.NewApp().Preferences(), "t_"),
	}

	for name, backend := range backends {
		t.Run(name, func(t *testing.T) {
			s := New(backend, nil)

			in := sample{Name: "a", Count: 3, Tags: []string{"x", "y"}}
			if !s.Set("k", in) {
				t.Fatal("Set() = false, want true")
			}

			var out sample
			if !s.Get("k", &out) {
				t.Fatal("Get() = false, want true")
			}
			if out.Name != in.Name || out.Count != in.Count || len(out.Tags) != 2 {
				t.Errorf("Get() = %+v, want %+v", out, in)
			}

			if !s.Has("k") {
				t.Error("Has() = false after Set")
			}

			if !s.Remove("k") {
				t.Fatal("Remove() = false, want true")
			}
			if s.Get("k", &out) {
				t.Error("Get() after Remove = true, want false")
			}
			if !s.Remove("k") {
				t.Error("Remove() of absent key should succeed")
			}
		})
	}
}

func TestStore_GetOrDefault(t *testing.T) {
	s := New(NewMemoryBackend(), nil)

	got := GetOr(s, "missing", []string{"fallback"})
	if len(got) != 1 || got[0] != "fallback" {
		t.Errorf("GetOr() = %v, want [fallback]", got)
	}

	s.Set("list", []string{"a", "b"})
	got = GetOr(s, "list", []string{})
	if len(got) != 2 {
		t.Errorf("GetOr() = %v, want [a b]", got)
	}
}

func TestStore_Clear(t *testing.T) {
	prefs := test.NewApp().Preferences()
	s := New(NewPreferencesBackend(prefs, "c_"), nil)

	s.Set("one", 1)
	s.Set("two", 2)
	prefs.SetString("foreign", "kept")

	if !s.Clear() {
		t.Fatal("Clear() = false, want true")
	}
	if s.Has("one") || s.Has("two") {
		t.Error("Clear() left managed keys behind")
	}
	if prefs.String("foreign") != "kept" {
		t.Error("Clear() removed a key it did not write")
	}
}

func TestPreferencesBackend_KeyNamedLikeIndex(t *testing.T) {
	prefs := test.NewApp().Preferences()
	s := New(NewPreferencesBackend(prefs, "x_"), nil)

	s.Set("one", 1)
	s.Set("_keys", "value")
	s.Set("keys", "value")

	var got string
	if !s.Get("_keys", &got) || got != "value" {
		t.Fatalf("Get(_keys) = %q", got)
	}
	if !s.Clear() {
		t.Fatal("Clear() = false, want true")
	}
	for _, key := range []string{"one", "_keys", "keys"} {
		if s.Has(key) {
			t.Errorf("Clear() left %q behind", key)
		}
	}
}

func TestStore_FailSoft(t *testing.T) {
	s := New(&failingBackend{err: errors.New("disk full")}, nil)

	if got := GetOr(s, "k", 7); got != 7 {
		t.Errorf("GetOr() on failing backend = %d, want 7", got)
	}
	if s.Set("k", 1) {
		t.Error("Set() on failing backend = true, want false")
	}
	if s.Remove("k") {
		t.Error("Remove() on failing backend = true, want false")
	}
	if s.Clear() {
		t.Error("Clear() on failing backend = true, want false")
	}
}

func TestStore_CorruptValue(t *testing.T) {
	s := New(&failingBackend{raw: "{not json"}, nil)

	if got := GetOr(s, "k", "def"); got != "def" {
		t.Errorf("GetOr() on corrupt value = %q, want def", got)
	}
}

func TestStore_UnencodableValue(t *testing.T) {
	s := New(NewMemoryBackend(), nil)

	if s.Set("k", math.Inf(1)) {
		t.Error("Set() with +Inf = true, want false")
	}
	if s.Set("ch", make(chan int)) {
		t.Error("Set() with channel = true, want false")
	}
}

func TestKeyStorage(t *testing.T) {
	s := New(NewMemoryBackend(), nil)
	k := s.Key("doc")

	if k.Name() != "doc" {
		t.Errorf("Name() = %s, want doc", k.Name())
	}

	var v []int
	if k.Load(&v) {
		t.Error("Load() on empty key = true, want false")
	}
	if !k.Save([]int{1, 2, 3}) {
		t.Fatal("Save() = false")
	}
	if !k.Load(&v) || len(v) != 3 {
		t.Errorf("Load() = %v, want [1 2 3]", v)
	}
	if !k.Remove() {
		t.Error("Remove() = false")
	}
}

func TestMemoryBackend_Keys(t *testing.T) {
	m := NewMemoryBackend()
	m.Set("b", "1")
	m.Set("a", "2")

	keys := m.Keys()
	if len(keys) != 2 || keys[0] != "a" || keys[1] != "b" {
		t.Errorf("Keys() = %v, want [a b]", keys)
	}
}
