package validation

import (
	"errors"
	"testing"
)

type reviewPayload struct {
	MediaType string  `json:"mediaType" validate:"required,mediatype"`
	Rating    float64 `json:"rating" validate:"gte=0.5,lte=10,halfstep"`
	Body      string  `json:"body" validate:"max=10"`
}

func TestValidateStructAcceptsValidPayload(t *testing.T) {
	if err := ValidateStruct(&reviewPayload{MediaType: "tv", Rating: 7.5}); err != nil {
		t.Fatalf("expected valid payload, got %v", err)
	}
}

func TestValidateStructReportsFieldsByJSONName(t *testing.T) {
	err := ValidateStruct(&reviewPayload{MediaType: "book", Rating: 7.3, Body: "far too long body"})
	var validationErr *RequestValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected RequestValidationError, got %T", err)
	}

	tags := map[string]string{}
	for _, field := range validationErr.Fields {
		tags[field.Field] = field.Tag
	}
	if tags["mediaType"] != "mediatype" || tags["rating"] != "halfstep" || tags["body"] != "max" {
		t.Fatalf("unexpected field errors: %+v", validationErr.Fields)
	}
	if validationErr.Error() == "" {
		t.Fatalf("expected combined message")
	}
}

func TestValidateStructRatingBounds(t *testing.T) {
	for _, rating := range []float64{0, 10.5, -1} {
		if err := ValidateStruct(&reviewPayload{MediaType: "movie", Rating: rating}); err == nil {
			t.Fatalf("expected rating %v to fail", rating)
		}
	}
	for _, rating := range []float64{0.5, 1, 9.5, 10} {
		if err := ValidateStruct(&reviewPayload{MediaType: "movie", Rating: rating}); err != nil {
			t.Fatalf("expected rating %v to pass, got %v", rating, err)
		}
	}
}
