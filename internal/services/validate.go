package services

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"vape-market-backend/internal/apperr"
	"vape-market-backend/internal/models"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// draftValidator holds the validator and translator shared by all services
type draftValidator struct {
	validate   *validator.Validate
	translator ut.Translator
}

var (
	vOnce sync.Once
	vSvc  *draftValidator
)

// getValidator returns the singleton validator with english translations and json tag names
func getValidator() *draftValidator {
	vOnce.Do(func() {
		enLoc := en.New()
		uni := ut.New(enLoc, enLoc)
		trans, _ := uni.GetTranslator("en")

		v := validator.New(validator.WithRequiredStructEnabled())

		// prefer json tag names in messages
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			tag := fld.Tag.Get("json")
			if tag == "-" || tag == "" {
				return fld.Name
			}
			if idx := strings.Index(tag, ","); idx >= 0 {
				tag = tag[:idx]
			}
			return tag
		})

		_ = en_translations.RegisterDefaultTranslations(v, trans)

		_ = v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
			return models.IsCategory(fl.Field().String())
		})
		_ = v.RegisterTranslation("category", trans,
			func(ut ut.Translator) error {
				return ut.Add("category", "{0} must be one of pod, mod, liquid, atomizer, accessories", true)
			},
			func(ut ut.Translator, fe validator.FieldError) string {
				t, _ := ut.T("category", fe.Field())
				return t
			},
		)

		vSvc = &draftValidator{validate: v, translator: trans}
	})
	return vSvc
}

// check validates s and maps the first failure to a ValidationFailed error
func (d *draftValidator) check(s any) error {
	err := d.validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return apperr.Field(fe.Field(), fe.Translate(d.translator))
	}
	return apperr.Wrap(err, apperr.ValidationFailed, "invalid input")
}
