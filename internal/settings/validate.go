package settings

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var rules = map[string]string{
	KeyAPIKey:        "omitempty,printascii,max=512",
	KeyModel:         "required,oneof=" + strings.Join(ValidModels, " "),
	KeyLanguage:      "dictation_language",
	KeyMicIndex:      "min=-1,max=4096",
	KeyStartShortcut: "omitempty,key_combo",
	KeyStopShortcut:  "omitempty,key_combo",
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New()
		_ = v.RegisterValidation("dictation_language", func(fl validator.FieldLevel) bool {
			return isValidLanguage(fl.Field().String())
		})
		_ = v.RegisterValidation("key_combo", func(fl validator.FieldLevel) bool {
			_, err := ParseShortcut(fl.Field().String())
			return err == nil
		})
		validate = v
	})
	return validate
}

// Validate reports whether value is acceptable for key without storing it.
func Validate(key string, value string) error {
	if _, ok := rules[key]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	return validateValue(key, value)
}

func validateValue(key string, value string) error {
	rule := rules[key]

	var err error
	if key == KeyMicIndex {
		n, convErr := strconv.Atoi(strings.TrimSpace(value))
		if convErr != nil {
			return fmt.Errorf("%w: %s must be an integer, got %q", ErrInvalidValue, key, value)
		}
		err = validatorInstance().Var(n, rule)
	} else {
		err = validatorInstance().Var(value, rule)
	}
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("%w: %s: %v", ErrInvalidValue, key, err)
	}
	return fmt.Errorf("%w: %s %s", ErrInvalidValue, key, describeFailure(key, value, fieldErrs[0]))
}

func describeFailure(key string, value string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "oneof":
		return fmt.Sprintf("must be one of [%s], got %q", strings.ReplaceAll(fe.Param(), " ", ", "), value)
	case "required":
		return "must not be empty"
	case "min", "max":
		return fmt.Sprintf("must be between -1 and 4096, got %s", value)
	case "dictation_language":
		return fmt.Sprintf("must be auto or one of [%s], got %q", strings.Join(ValidLanguages[2:], ", "), value)
	case "key_combo":
		_, err := ParseShortcut(value)
		return fmt.Sprintf("is not a valid shortcut: %v", err)
	case "printascii":
		return "must contain printable ASCII only"
	default:
		return fmt.Sprintf("failed %q validation", fe.Tag())
	}
}

func isValidLanguage(value string) bool {
	for _, lang := range ValidLanguages {
		if value == lang {
			return true
		}
	}
	return false
}
