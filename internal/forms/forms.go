// Package forms validates user input with struct-tag schemas and returns
// localized per-field messages.
package forms

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/pelletier/go-toml/v2"
	"golang.org/x/text/language"

	"taskboard/internal/models"
)

//go:embed locales/*.toml
var localeFS embed.FS

// FieldErrors maps a form field name to its message. It is empty when the
// input is valid.
type FieldErrors map[string]string

func (e FieldErrors) OK() bool { return len(e) == 0 }

// Validator checks forms and renders messages in one language.
type Validator struct {
	validate  *validator.Validate
	localizer *i18n.Localizer
}

var (
	bundleOnce sync.Once
	bundle     *i18n.Bundle
	bundleErr  error
)

func loadBundle() (*i18n.Bundle, error) {
	bundleOnce.Do(func() {
		b := i18n.NewBundle(language.English)
		b.RegisterUnmarshalFunc("toml", toml.Unmarshal)
		files, err := fs.Glob(localeFS, "locales/*.toml")
		if err != nil {
			bundleErr = err
			return
		}
		for _, f := range files {
			if _, err := b.LoadMessageFileFS(localeFS, f); err != nil {
				bundleErr = fmt.Errorf("load %s: %w", f, err)
				return
			}
		}
		bundle = b
	})
	return bundle, bundleErr
}

// New returns a validator whose messages are in lang, falling back to
// English.
func New(lang string) (*Validator, error) {
	b, err := loadBundle()
	if err != nil {
		return nil, err
	}

	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("form"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	for tag, fn := range map[string]validator.Func{
		"notblank": func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		},
		"category": func(fl validator.FieldLevel) bool {
			return models.TaskCategory(fl.Field().String()).Valid()
		},
		"duedate": func(fl validator.FieldLevel) bool {
			_, ok := models.ParseDueDate(fl.Field().String())
			return ok
		},
	} {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return nil, err
		}
	}

	return &Validator{
		validate:  v,
		localizer: i18n.NewLocalizer(b, lang, "en"),
	}, nil
}

// Check validates a form struct. It never panics on bad input; a value that
// is not a form yields a single "_form" entry.
func (v *Validator) Check(form any) FieldErrors {
	errs := FieldErrors{}
	err := v.validate.Struct(form)
	if err == nil {
		return errs
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		errs["_form"] = err.Error()
		return errs
	}
	formName := formName(form)
	for _, fe := range verrs {
		field := fe.Field()
		if _, seen := errs[field]; seen {
			continue
		}
		errs[field] = v.message(formName, field, fe.Tag(), fe.Param())
	}
	return errs
}

func formName(form any) string {
	t := reflect.TypeOf(form)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return ""
	}
	return strings.ToLower(t.Name())
}

// message tries "<form>.<field>.<rule>", "<field>.<rule>" and "<rule>".
func (v *Validator) message(form, field, rule, param string) string {
	data := map[string]string{"Param": param, "Field": field}
	for _, id := range []string{form + "." + field + "." + rule, field + "." + rule, rule} {
		msg, err := v.localizer.Localize(&i18n.LocalizeConfig{MessageID: id, TemplateData: data})
		if err == nil {
			return msg
		}
	}
	return rule
}

// RequirePriority checks the priority picker, which sits outside the task
// schema. It returns "" when p is acceptable.
func (v *Validator) RequirePriority(p models.TaskPriority) string {
	if p == "" {
		return v.message("task", "priority", "required", "")
	}
	if !p.Valid() {
		return v.message("task", "priority", "oneof", "")
	}
	return ""
}
