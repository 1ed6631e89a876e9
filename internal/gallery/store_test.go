package gallery

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// noiseImage returns a PNG of random pixels; different seeds give perceptually
// different images.
func noiseImage(t *testing.T, seed uint64) []byte {
	t.Helper()
	rng := rand.New(rand.NewPCG(seed, seed*7+1))
	img := image.NewGray(image.Rect(0, 0, 64, 64))
	for y := range 64 {
		for x := range 64 {
			img.SetGray(x, y, color.Gray{Y: uint8(rng.IntN(256))})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encoding png: %v", err)
	}
	return buf.Bytes()
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore(filepath.Join(t.TempDir(), "database"))
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s.now = func() time.Time { return fixed }
	return s
}

func TestList_MissingRoot(t *testing.T) {
	people, err := newTestStore(t).List()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(people) != 0 {
		t.Errorf("expected empty list, got %d", len(people))
	}
}

func TestAdd_CreatesPerson(t *testing.T) {
	s := newTestStore(t)

	p, err := s.Add(Details{PersonName: " Jiří Novák ", Age: 42, Email: "jiri@example.com"},
		&AddedBy{Name: "Analyst", Email: "analyst@example.com"}, bytes.NewReader(noiseImage(t, 1)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if p.ID != "jiri_novak" {
		t.Errorf("expected id jiri_novak, got %s", p.ID)
	}
	if p.PersonName != "Jiří Novák" {
		t.Errorf("expected trimmed person name, got %q", p.PersonName)
	}
	if p.Age != 42 || p.Email != "jiri@example.com" {
		t.Errorf("details not stored: %+v", p.Details)
	}
	if p.AddedBy == nil || p.AddedBy.Name != "Analyst" {
		t.Errorf("expected added_by to be recorded, got %+v", p.AddedBy)
	}
	if len(p.Images) != 1 || p.Images[0].PHash == "" {
		t.Fatalf("expected one hashed image, got %+v", p.Images)
	}
	if _, err := os.Stat(p.ImagePath); err != nil {
		t.Errorf("reference image missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(s.Root(), "jiri_novak", "person.yaml")); err != nil {
		t.Errorf("metadata missing: %v", err)
	}

	people, err := s.List()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(people) != 1 || people[0].ID != "jiri_novak" || people[0].Age != 42 {
		t.Errorf("unexpected list %+v", people)
	}
}

func TestAdd_AppendsToExistingPerson(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.Add(Details{PersonName: "Alice", Phone: "123"}, nil, bytes.NewReader(noiseImage(t, 1))); err != nil {
		t.Fatalf("first add: %v", err)
	}
	p, err := s.Add(Details{PersonName: "alice", Notes: "second photo"}, nil, bytes.NewReader(noiseImage(t, 2)))
	if err != nil {
		t.Fatalf("second add: %v", err)
	}

	if len(p.Images) != 2 {
		t.Errorf("expected 2 images, got %d", len(p.Images))
	}
	if p.Phone != "123" || p.Notes != "second photo" {
		t.Errorf("expected merged details, got %+v", p.Details)
	}
}

func TestAdd_RejectsDuplicate(t *testing.T) {
	s := newTestStore(t)
	data := noiseImage(t, 5)

	if _, err := s.Add(Details{PersonName: "Alice"}, nil, bytes.NewReader(data)); err != nil {
		t.Fatalf("first add: %v", err)
	}
	_, err := s.Add(Details{PersonName: "Bob"}, nil, bytes.NewReader(data))
	if !errors.Is(err, ErrDuplicateImage) {
		t.Fatalf("expected ErrDuplicateImage, got %v", err)
	}

	if _, err := s.Get("bob"); !errors.Is(err, ErrPersonNotFound) {
		t.Errorf("rejected add must not create a person, got %v", err)
	}
}

func TestAdd_DuplicateOfUnhashedImage(t *testing.T) {
	s := newTestStore(t)
	data := noiseImage(t, 9)

	dir := filepath.Join(s.Root(), "legacy")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "legacy.png"), data, 0o600); err != nil {
		t.Fatal(err)
	}

	_, err := s.Add(Details{PersonName: "Someone"}, nil, bytes.NewReader(data))
	if !errors.Is(err, ErrDuplicateImage) {
		t.Errorf("expected ErrDuplicateImage against a folder without metadata, got %v", err)
	}
}

func TestAdd_InvalidInput(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.Add(Details{PersonName: "  "}, nil, bytes.NewReader(noiseImage(t, 1))); !errors.Is(err, ErrInvalidPerson) {
		t.Errorf("expected ErrInvalidPerson, got %v", err)
	}
	if _, err := s.Add(Details{PersonName: "Alice"}, nil, bytes.NewReader([]byte("text"))); err == nil {
		t.Error("expected error for non-image data")
	}
}

func TestAdd_InvalidatesRepresentationCache(t *testing.T) {
	s := newTestStore(t)
	if err := os.MkdirAll(s.Root(), 0o755); err != nil {
		t.Fatal(err)
	}
	pkl := filepath.Join(s.Root(), "ds_model_arcface_detector_retinaface.pkl")
	if err := os.WriteFile(pkl, []byte("cache"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := s.Add(Details{PersonName: "Alice"}, nil, bytes.NewReader(noiseImage(t, 1))); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := os.Stat(pkl); !os.IsNotExist(err) {
		t.Errorf("expected representation cache to be removed, stat returned %v", err)
	}
}

func TestUpdate(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Add(Details{PersonName: "Alice", Phone: "123"}, nil, bytes.NewReader(noiseImage(t, 1))); err != nil {
		t.Fatalf("add: %v", err)
	}

	p, err := s.Update("alice", Details{PersonName: "Alice Smith", Age: 30})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if p.ID != "alice" {
		t.Errorf("id must not change, got %s", p.ID)
	}
	if p.PersonName != "Alice Smith" || p.Age != 30 || p.Phone != "" {
		t.Errorf("expected details replaced, got %+v", p.Details)
	}
	if len(p.Images) != 1 {
		t.Errorf("images must be kept, got %d", len(p.Images))
	}

	p, err = s.Update("alice", Details{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.PersonName != "Alice Smith" {
		t.Errorf("empty person name must keep the old one, got %q", p.PersonName)
	}
}

func TestUpdate_NotFound(t *testing.T) {
	_, err := newTestStore(t).Update("ghost", Details{PersonName: "Ghost"})
	if !errors.Is(err, ErrPersonNotFound) {
		t.Errorf("expected ErrPersonNotFound, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Add(Details{PersonName: "Alice"}, nil, bytes.NewReader(noiseImage(t, 1))); err != nil {
		t.Fatalf("add: %v", err)
	}

	if err := s.Delete("alice"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(s.Root(), "alice")); !os.IsNotExist(err) {
		t.Errorf("expected folder removed, stat returned %v", err)
	}
	if err := s.Delete("alice"); !errors.Is(err, ErrPersonNotFound) {
		t.Errorf("expected ErrPersonNotFound on second delete, got %v", err)
	}
}

func TestGet_RejectsPathEscapes(t *testing.T) {
	s := newTestStore(t)
	for _, id := range []string{"", ".", "..", "../etc", "a/b", `a\b`} {
		if _, err := s.Get(id); !errors.Is(err, ErrPersonNotFound) {
			t.Errorf("Get(%q): expected ErrPersonNotFound, got %v", id, err)
		}
	}
}

func TestList_FolderWithoutMetadata(t *testing.T) {
	s := newTestStore(t)
	dir := filepath.Join(s.Root(), "bob")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"b2.png", "b1.jpg", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o600); err != nil {
			t.Fatal(err)
		}
	}

	people, err := s.List()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(people) != 1 {
		t.Fatalf("expected 1 person, got %d", len(people))
	}
	p := people[0]
	if p.ID != "bob" || p.PersonName != "bob" {
		t.Errorf("unexpected person %+v", p)
	}
	if len(p.Images) != 2 || p.Images[0].File != "b1.jpg" || p.Images[1].File != "b2.png" {
		t.Errorf("unexpected images %+v", p.Images)
	}
	if p.ImagePath != filepath.Join(dir, "b1.jpg") {
		t.Errorf("unexpected image path %s", p.ImagePath)
	}
}
