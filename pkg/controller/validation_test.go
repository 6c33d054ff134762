package controller

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

type stateRequest struct {
	CountryID uuid.UUID `json:"country_id" validate:"required"`
	Name      string    `json:"name" validate:"required"`
	Note      string    `json:"note"`
}

type checkedRequest struct {
	Name string `json:"name"`
}

var errChecked = errors.New("name must not be admin")

func (r *checkedRequest) Validate() error {
	if r.Name == "admin" {
		return errChecked
	}
	return nil
}

func TestValidateDTO(t *testing.T) {
	tests := []struct {
		name        string
		dto         interface{}
		wantCode    string
		wantMissing []string
		wantErr     error
	}{
		{name: "valid", dto: &stateRequest{CountryID: uuid.New(), Name: "Bavaria"}},
		{name: "nil pointer", dto: (*stateRequest)(nil), wantCode: "validation.dto_nil"},
		{name: "nil", dto: nil, wantCode: "validation.dto_nil"},
		{name: "missing fields", dto: &stateRequest{Name: "  "}, wantCode: "validation.required", wantMissing: []string{"country_id", "name"}},
		{name: "missing country", dto: &stateRequest{Name: "Bavaria"}, wantCode: "validation.required", wantMissing: []string{"country_id"}},
		{name: "custom validator", dto: &checkedRequest{Name: "admin"}, wantErr: errChecked},
		{name: "custom validator passes", dto: &checkedRequest{Name: "Hesse"}},
		{name: "non struct", dto: "plain"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDTO(tt.dto)
			switch {
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ValidateDTO() = %v, want %v", err, tt.wantErr)
				}
			case tt.wantCode != "":
				var appErr *AppError
				if !errors.As(err, &appErr) || appErr.Code != tt.wantCode {
					t.Fatalf("ValidateDTO() = %v, want code %s", err, tt.wantCode)
				}
				if tt.wantMissing != nil {
					got, _ := appErr.Details["fields"].([]string)
					if len(got) != len(tt.wantMissing) {
						t.Fatalf("missing = %v, want %v", got, tt.wantMissing)
					}
					for i := range got {
						if got[i] != tt.wantMissing[i] {
							t.Fatalf("missing = %v, want %v", got, tt.wantMissing)
						}
					}
				}
			default:
				if err != nil {
					t.Fatalf("ValidateDTO() = %v", err)
				}
			}
		})
	}
}

func TestParseID(t *testing.T) {
	id := uuid.New()
	got, err := ParseID("id", id.String())
	if err != nil || got != id {
		t.Fatalf("ParseID() = %v, %v", got, err)
	}

	_, err = ParseID("id", "not-a-uuid")
	var appErr *AppError
	if !errors.As(err, &appErr) || appErr.Code != "validation.invalid_id" {
		t.Fatalf("ParseID() error = %v", err)
	}
}
