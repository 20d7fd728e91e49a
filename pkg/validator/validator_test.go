package validator

import (
	"strings"
	"testing"
)

type registerPayload struct {
	Username string `json:"username" validate:"required,min=3"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

func TestValidateStructPasses(t *testing.T) {
	payload := registerPayload{
		Username: "selene",
		Email:    "selene@example.com",
		Password: "waxing-gibbous",
	}

	if err := ValidateStruct(payload); err != nil {
		t.Fatalf("expected valid payload, got %v", err)
	}
}

func TestValidateStructReportsJSONFieldNames(t *testing.T) {
	err := ValidateStruct(registerPayload{Username: "s", Email: "nope", Password: "short"})
	if err == nil {
		t.Fatal("expected validation failure")
	}

	failures, ok := err.(ValidationErrors)
	if !ok {
		t.Fatalf("expected ValidationErrors, got %T", err)
	}
	if len(failures) != 3 {
		t.Fatalf("expected 3 failures, got %d", len(failures))
	}
	if failures[0].Field != "username" {
		t.Fatalf("expected json tag name, got %q", failures[0].Field)
	}
	if !strings.Contains(err.Error(), "min=3") {
		t.Fatalf("expected parameterised message, got %q", err.Error())
	}
}
