package generator

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// GenerationRequest describes the document a user asked for.
type GenerationRequest struct {
	Topic     string `json:"topic" validate:"required"`
	Specialty string `json:"specialty" validate:"required"`
	Pages     int    `json:"pages" validate:"min=10,max=200"`
}

// Normalize trims surrounding whitespace so blank fields fail validation.
func (r GenerationRequest) Normalize() GenerationRequest {
	r.Topic = strings.TrimSpace(r.Topic)
	r.Specialty = strings.TrimSpace(r.Specialty)
	return r
}

// Validate checks the request against its field constraints. Blank topic or
// specialty and page counts outside [10,200] are rejected.
func (r GenerationRequest) Validate() error {
	return validate.Struct(r.Normalize())
}

// SectionSpec is one entry of the ordered section catalogue.
type SectionSpec struct {
	Title       string `json:"title" mapstructure:"title" validate:"required"`
	Instruction string `json:"instruction" mapstructure:"instruction" validate:"required"`
}

// Section is the generated text of one SectionSpec.
type Section struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

// Document is the assembled output of a completed run. Sections keep
// catalogue order.
type Document struct {
	Sections []Section `json:"sections"`
	Text     string    `json:"text"`
}
