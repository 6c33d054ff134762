package controller

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/google/uuid"
)

// Validator is implemented by request DTOs with checks beyond struct tags.
type Validator interface {
	Validate() error
}

// ValidateDTO checks fields tagged `validate:"required"` and then calls
// Validate when the DTO implements Validator.
func ValidateDTO(dto interface{}) error {
	v := reflect.ValueOf(dto)
	if dto == nil || (v.Kind() == reflect.Ptr && v.IsNil()) {
		return NewValidationError("validation.dto_nil", "request body is required", nil)
	}

	if err := validateStruct(v); err != nil {
		return err
	}

	if validator, ok := dto.(Validator); ok {
		return validator.Validate()
	}
	return nil
}

func validateStruct(v reflect.Value) error {
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil
	}

	t := v.Type()
	var missing []string
	for i := 0; i < v.NumField(); i++ {
		fieldType := t.Field(i)
		if !fieldType.IsExported() {
			continue
		}
		if !strings.Contains(fieldType.Tag.Get("validate"), "required") {
			continue
		}
		if isZeroValue(v.Field(i)) {
			missing = append(missing, jsonName(fieldType))
		}
	}

	if len(missing) > 0 {
		return NewValidationError("validation.required",
			fmt.Sprintf("missing required fields: %s", strings.Join(missing, ", ")),
			map[string]interface{}{"fields": missing})
	}
	return nil
}

func jsonName(field reflect.StructField) string {
	name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return field.Name
	}
	return name
}

var uuidType = reflect.TypeOf(uuid.UUID{})

func isZeroValue(v reflect.Value) bool {
	if v.Type() == uuidType {
		return v.Interface().(uuid.UUID) == uuid.Nil
	}
	switch v.Kind() {
	case reflect.String:
		return strings.TrimSpace(v.String()) == ""
	case reflect.Ptr, reflect.Interface, reflect.Slice, reflect.Map:
		return v.IsNil()
	default:
		return v.IsZero()
	}
}

// ParseID parses a path parameter as a UUID.
func ParseID(name, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, NewValidationError("validation.invalid_id",
			fmt.Sprintf("%s %q is not a valid UUID", name, raw),
			map[string]interface{}{"param": name})
	}
	return id, nil
}
