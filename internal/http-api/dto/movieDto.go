package dto

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

const (
	MinRating       = 0.0
	MaxRating       = 10.0
	MaxReviewLength = 50
)

// AddMovieForm is the title search submitted from /add
type AddMovieForm struct {
	Title string `form:"title" binding:"required,notblank"`
}

// RateMovieForm is the rating and review submitted from /edit.
// Rating stays a string so that an empty or non-numeric value is a
// validation error instead of silently becoming 0. Surrounding spaces are ignored.
type RateMovieForm struct {
	Rating string `form:"rating" binding:"required,floatnum,score"`
	Review string `form:"review" binding:"required,notblank,max=50"`
}

// Score returns the parsed rating. Only valid after binding succeeded.
func (f RateMovieForm) Score() float64 {
	v, _ := parseRating(f.Rating)
	return v
}

// RegisterValidations adds the custom tags used by the form bindings
func RegisterValidations(v *validator.Validate) error {
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		return err
	}
	if err := v.RegisterValidation("floatnum", validateFloat); err != nil {
		return err
	}
	return v.RegisterValidation("score", validateScore)
}

func parseRating(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

func validateFloat(fl validator.FieldLevel) bool {
	_, err := parseRating(fl.Field().String())
	return err == nil
}

// NaN and infinities parse but fail the range check
func validateScore(fl validator.FieldLevel) bool {
	v, err := parseRating(fl.Field().String())
	if err != nil {
		return false
	}
	return v >= MinRating && v <= MaxRating
}

// FormErrors maps a form field name to the message shown next to it
type FormErrors map[string]string

// FormErrorKey collects errors that are not tied to one field
const FormErrorKey = "form"

// TranslateErrors turns a binding error into per-field messages
func TranslateErrors(err error) FormErrors {
	out := FormErrors{}
	if err == nil {
		return out
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		out[FormErrorKey] = err.Error()
		return out
	}

	for _, fe := range verrs {
		out[strings.ToLower(fe.Field())] = messageFor(fe)
	}
	return out
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return "This field is required"
	case "floatnum":
		return "Not a valid float value"
	case "score":
		return fmt.Sprintf("Rating must be between %g and %g", MinRating, MaxRating)
	case "max":
		return fmt.Sprintf("%s must not exceed %s characters", fe.Field(), fe.Param())
	default:
		return "Invalid value"
	}
}
