// Package gallery manages the reference database: one folder per person holding
// reference images and a person.yaml with metadata.
package gallery

import (
	"errors"
	"fmt"
	"image"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/corona10/goimagehash"
	"github.com/google/uuid"
	"github.com/kozaktomas/face-matcher/internal/constants"
	"github.com/kozaktomas/face-matcher/internal/facematch"
	"gopkg.in/yaml.v3"
)

// Store reads and writes the reference database rooted at a directory.
type Store struct {
	root string
	mu   sync.Mutex
	now  func() time.Time
}

// NewStore creates a store for the database at root. The directory is created on the
// first Add.
func NewStore(root string) *Store {
	return &Store{root: root, now: time.Now}
}

// Root returns the database directory.
func (s *Store) Root() string {
	return s.root
}

// List returns every person in the database ordered by id. Folders without a
// person.yaml are listed with their folder name and image files.
func (s *Store) List() ([]Person, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.list()
}

func (s *Store) list() ([]Person, error) {
	entries, err := os.ReadDir(s.root)
	if errors.Is(err, fs.ErrNotExist) {
		return []Person{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading database: %w", err)
	}

	people := []Person{}
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		p, err := s.load(e.Name())
		if err != nil {
			return nil, err
		}
		people = append(people, *p)
	}
	return people, nil
}

// Get returns one person.
func (s *Store) Get(id string) (*Person, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(id)
}

func (s *Store) get(id string) (*Person, error) {
	dir, err := s.personDir(id)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrPersonNotFound, id)
	}
	return s.load(id)
}

// Add stores a reference image for the person named in details, creating the person
// when needed. Images that are perceptually identical to one already in the database
// are rejected with ErrDuplicateImage.
func (s *Store) Add(details Details, addedBy *AddedBy, r io.Reader) (*Person, error) {
	details.PersonName = strings.TrimSpace(details.PersonName)
	id := facematch.PersonID(details.PersonName)
	if id == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPerson, details.PersonName)
	}

	img, err := facematch.DecodeImage(r)
	if err != nil {
		return nil, err
	}
	hash, err := goimagehash.PerceptionHash(img)
	if err != nil {
		return nil, fmt.Errorf("hashing image: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkDuplicate(hash); err != nil {
		return nil, err
	}

	dir := filepath.Join(s.root, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating person folder: %w", err)
	}

	p, err := s.load(id)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	if len(p.Images) == 0 && p.AddedAt.IsZero() {
		p.AddedAt = now
		p.AddedBy = addedBy
	}
	mergeDetails(&p.Details, details)

	file := fmt.Sprintf("%s-%s.jpg", id, uuid.NewString()[:8])
	if err := facematch.WriteJPEG(filepath.Join(dir, file), img); err != nil {
		return nil, err
	}
	p.Images = append(p.Images, ReferenceImage{File: file, PHash: hash.ToString(), AddedAt: now})
	p.UpdatedAt = now

	if err := s.save(p); err != nil {
		return nil, err
	}
	s.invalidateRepresentations()
	return s.load(id)
}

// Update replaces the editable details of a person. The folder name does not change.
func (s *Store) Update(id string, details Details) (*Person, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.get(id)
	if err != nil {
		return nil, err
	}
	details.PersonName = strings.TrimSpace(details.PersonName)
	if details.PersonName == "" {
		details.PersonName = p.PersonName
	}
	p.Details = details
	p.UpdatedAt = s.now().UTC()

	if err := s.save(p); err != nil {
		return nil, err
	}
	return s.load(id)
}

// Delete removes a person and all of their reference images.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.get(id); err != nil {
		return err
	}
	dir, _ := s.personDir(id)
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("removing %s: %w", dir, err)
	}
	s.invalidateRepresentations()
	return nil
}

// personDir maps an id to its folder, rejecting ids that could escape the root.
func (s *Store) personDir(id string) (string, error) {
	if id == "" || id != filepath.Base(id) || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return "", fmt.Errorf("%w: %s", ErrPersonNotFound, id)
	}
	return filepath.Join(s.root, id), nil
}

// load reads a person folder. Missing metadata is synthesized from the folder contents,
// and images present on disk but not in the metadata are appended.
func (s *Store) load(id string) (*Person, error) {
	dir := filepath.Join(s.root, id)
	p := &Person{ID: id, Details: Details{PersonName: id}}

	data, err := os.ReadFile(filepath.Join(dir, metadataFile)) //nolint:gosec // inside the database root
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, p); err != nil {
			return nil, fmt.Errorf("parsing %s metadata: %w", id, err)
		}
		p.ID = id
	case !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("reading %s metadata: %w", id, err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}
	onDisk := map[string]bool{}
	for _, e := range entries {
		if !e.IsDir() && isImageFile(e.Name()) {
			onDisk[e.Name()] = true
		}
	}

	images := make([]ReferenceImage, 0, len(onDisk))
	for _, img := range p.Images {
		if onDisk[img.File] {
			images = append(images, img)
			delete(onDisk, img.File)
		}
	}
	extra := make([]string, 0, len(onDisk))
	for name := range onDisk {
		extra = append(extra, name)
	}
	slices.Sort(extra)
	for _, name := range extra {
		images = append(images, ReferenceImage{File: name})
	}
	p.Images = images

	if len(p.Images) > 0 {
		p.ImagePath = filepath.Join(dir, p.Images[0].File)
	}
	return p, nil
}

func (s *Store) save(p *Person) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding metadata: %w", err)
	}
	path := filepath.Join(s.root, p.ID, metadataFile)
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // metadata is not secret
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// checkDuplicate compares hash against every reference image in the database. Images
// without a stored hash are hashed on the fly.
func (s *Store) checkDuplicate(hash *goimagehash.ImageHash) error {
	people, err := s.list()
	if err != nil {
		return err
	}
	for _, p := range people {
		for _, ref := range p.Images {
			other, err := s.referenceHash(p.ID, ref)
			if err != nil {
				log.Printf("Warning: skipping %s/%s in duplicate check: %v", p.ID, ref.File, err)
				continue
			}
			distance, err := hash.Distance(other)
			if err != nil {
				continue
			}
			if distance <= constants.DuplicateHashDistance {
				return fmt.Errorf("%w: matches %s/%s", ErrDuplicateImage, p.ID, ref.File)
			}
		}
	}
	return nil
}

func (s *Store) referenceHash(id string, ref ReferenceImage) (*goimagehash.ImageHash, error) {
	if ref.PHash != "" {
		return goimagehash.ImageHashFromString(ref.PHash)
	}
	f, err := os.Open(filepath.Join(s.root, id, ref.File)) //nolint:gosec // inside the database root
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, err
	}
	return goimagehash.PerceptionHash(img)
}

// invalidateRepresentations removes representation caches the engine keeps in the
// database root so the next search sees the current set of images.
func (s *Store) invalidateRepresentations() {
	matches, err := filepath.Glob(filepath.Join(s.root, "*.pkl"))
	if err != nil {
		return
	}
	for _, m := range matches {
		if err := os.Remove(m); err != nil && !errors.Is(err, fs.ErrNotExist) {
			log.Printf("Warning: failed to remove representation cache %s: %v", m, err)
		}
	}
}

// mergeDetails copies the non-empty fields of src onto dst.
func mergeDetails(dst *Details, src Details) {
	if dst.PersonName == "" || src.PersonName != "" {
		dst.PersonName = src.PersonName
	}
	if src.Name != "" {
		dst.Name = src.Name
	}
	if src.Age != 0 {
		dst.Age = src.Age
	}
	if src.Email != "" {
		dst.Email = src.Email
	}
	if src.Phone != "" {
		dst.Phone = src.Phone
	}
	if src.Notes != "" {
		dst.Notes = src.Notes
	}
}

func isImageFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png":
		return true
	}
	return false
}
