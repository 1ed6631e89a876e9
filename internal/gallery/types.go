package gallery

import (
	"errors"
	"time"
)

var (
	// ErrPersonNotFound is returned for person ids with no folder in the database.
	ErrPersonNotFound = errors.New("person not found")
	// ErrDuplicateImage is returned when a reference image is already in the database.
	ErrDuplicateImage = errors.New("image already in database")
	// ErrInvalidPerson is returned when a person name yields no usable id.
	ErrInvalidPerson = errors.New("invalid person name")
)

const metadataFile = "person.yaml"

// AddedBy identifies who created a gallery entry.
type AddedBy struct {
	Name  string `yaml:"name" json:"name"`
	Email string `yaml:"email" json:"email"`
}

// Details are the editable fields of a person.
type Details struct {
	PersonName string `yaml:"person_name" json:"person_name"`
	Name       string `yaml:"name,omitempty" json:"name,omitempty"`
	Age        int    `yaml:"age,omitempty" json:"age,omitempty"`
	Email      string `yaml:"email,omitempty" json:"email,omitempty"`
	Phone      string `yaml:"phone,omitempty" json:"phone,omitempty"`
	Notes      string `yaml:"notes,omitempty" json:"notes,omitempty"`
}

// ReferenceImage is one image file of a person.
type ReferenceImage struct {
	File    string    `yaml:"file" json:"file"`
	PHash   string    `yaml:"phash,omitempty" json:"-"`
	AddedAt time.Time `yaml:"added_at" json:"added_at"`
}

// Person is a folder in the reference database together with its metadata.
type Person struct {
	ID      string `yaml:"id" json:"id"`
	Details `yaml:",inline"`

	AddedBy   *AddedBy         `yaml:"added_by,omitempty" json:"added_by,omitempty"`
	AddedAt   time.Time        `yaml:"added_at" json:"added_at"`
	UpdatedAt time.Time        `yaml:"updated_at,omitempty" json:"updated_at,omitzero"`
	Images    []ReferenceImage `yaml:"images" json:"images"`

	// ImagePath is the first reference image, relative to the working directory.
	ImagePath string `yaml:"-" json:"image_path"`
}
