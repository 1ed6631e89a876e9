package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-matcher/internal/config"
	"github.com/kozaktomas/face-matcher/internal/constants"
	"github.com/kozaktomas/face-matcher/internal/facematch"
	"github.com/kozaktomas/face-matcher/internal/gallery"
)

// GalleryHandler handles reference database management endpoints
type GalleryHandler struct {
	config *config.Config
	store  *gallery.Store
}

// NewGalleryHandler creates a new gallery handler
func NewGalleryHandler(cfg *config.Config, store *gallery.Store) *GalleryHandler {
	return &GalleryHandler{
		config: cfg,
		store:  store,
	}
}

// PersonResponse wraps a single person
type PersonResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Person  *gallery.Person `json:"person,omitempty"`
}

// ageValue accepts an age sent either as a number or as a (possibly empty) string,
// which is how HTML forms submit it.
type ageValue int

func (a *ageValue) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*a = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return fmt.Errorf("invalid age %s", data)
	}
	*a = ageValue(n)
	return nil
}

// UpdatePersonRequest represents a person metadata update
type UpdatePersonRequest struct {
	PersonName string   `json:"person_name"`
	Name       string   `json:"name"`
	Age        ageValue `json:"age"`
	Email      string   `json:"email"`
	Phone      string   `json:"phone"`
	Notes      string   `json:"notes"`
}

// List returns all people in the reference database
func (h *GalleryHandler) List(w http.ResponseWriter, r *http.Request) {
	people, err := h.store.List()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"count":         len(people),
		"database_path": h.store.Root(),
		"persons":       people,
	})
}

// Add stores an uploaded reference image for a person
func (h *GalleryHandler) Add(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(constants.MaxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile(constants.UploadFormField)
	if err != nil {
		respondError(w, http.StatusBadRequest, "No image file provided")
		return
	}
	defer file.Close()

	if !h.config.Options.AcceptsUpload(header.Filename) {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("unsupported file type %q", header.Filename))
		return
	}

	details := gallery.Details{
		PersonName: strings.TrimSpace(r.FormValue("person_name")),
		Name:       strings.TrimSpace(r.FormValue("name")),
		Email:      strings.TrimSpace(r.FormValue("email")),
		Phone:      strings.TrimSpace(r.FormValue("phone")),
		Notes:      strings.TrimSpace(r.FormValue("notes")),
	}
	if details.PersonName == "" {
		respondError(w, http.StatusBadRequest, "person_name is required")
		return
	}
	if s := strings.TrimSpace(r.FormValue("age")); s != "" {
		age, err := strconv.Atoi(s)
		if err != nil || age < 0 {
			respondError(w, http.StatusBadRequest, "age must be a non-negative number")
			return
		}
		details.Age = age
	}

	var addedBy *gallery.AddedBy
	if name, email := r.FormValue("added_by_name"), r.FormValue("added_by_email"); name != "" || email != "" {
		addedBy = &gallery.AddedBy{Name: name, Email: email}
	}

	person, err := h.store.Add(details, addedBy, file)
	if err != nil {
		h.respondStoreError(w, err)
		return
	}

	log.Printf("Added reference image for %s", sanitizeForLog(person.ID))
	respondJSON(w, http.StatusOK, PersonResponse{
		Success: true,
		Message: fmt.Sprintf("Added %s to the database", person.PersonName),
		Person:  person,
	})
}

// Update changes a person's metadata
func (h *GalleryHandler) Update(w http.ResponseWriter, r *http.Request) {
	personID := chi.URLParam(r, "person_id")

	var req UpdatePersonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	person, err := h.store.Update(personID, gallery.Details{
		PersonName: req.PersonName,
		Name:       strings.TrimSpace(req.Name),
		Age:        int(req.Age),
		Email:      strings.TrimSpace(req.Email),
		Phone:      strings.TrimSpace(req.Phone),
		Notes:      strings.TrimSpace(req.Notes),
	})
	if err != nil {
		h.respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, PersonResponse{Success: true, Message: "Person updated", Person: person})
}

// Delete removes a person and their images
func (h *GalleryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	personID := chi.URLParam(r, "person_id")

	if err := h.store.Delete(personID); err != nil {
		h.respondStoreError(w, err)
		return
	}

	log.Printf("Deleted %s from the reference database", sanitizeForLog(personID))
	respondJSON(w, http.StatusOK, PersonResponse{Success: true, Message: "Person deleted"})
}

func (h *GalleryHandler) respondStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, gallery.ErrPersonNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, gallery.ErrDuplicateImage):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, gallery.ErrInvalidPerson), errors.Is(err, facematch.ErrUnsupportedImage):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}
