package Controllers

import (
	"reflect"
	"strings"

	"ClientMax/Models"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/gofiber/fiber/v2"
)

// Validator checks request bodies against their struct tags and renders
// failures in English.
type Validator struct {
	validate *validator.Validate
	trans    ut.Translator
}

func NewValidator() *Validator {
	english := en.New()
	uni := ut.New(english, english)
	trans, _ := uni.GetTranslator("en")

	validate := validator.New()
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := en_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		panic(err)
	}
	return &Validator{validate: validate, trans: trans}
}

// Struct returns a ValidationError for the first failing field.
func (v *Validator) Struct(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	errs, ok := err.(validator.ValidationErrors)
	if !ok || len(errs) == 0 {
		return &Models.ValidationError{Message: err.Error()}
	}
	first := errs[0]
	return &Models.ValidationError{Field: first.Field(), Message: first.Translate(v.trans)}
}

// parseBody decodes the JSON body into dst and validates it.
func (v *Validator) parseBody(ctx *fiber.Ctx, dst interface{}) error {
	if err := ctx.BodyParser(dst); err != nil {
		return &Models.ValidationError{Message: "invalid request body: " + err.Error()}
	}
	return v.Struct(dst)
}
