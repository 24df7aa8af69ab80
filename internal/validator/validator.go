package validator

import (
	"errors"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	govalidator "github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/stemsi/coursehub-backend/internal/model"
)

// trans is the singleton English translator for validation errors.
var trans ut.Translator

// Custom validation tags.
const (
	tagQuestionType    = "question_type"
	tagAnswerRequired  = "answer_required"
	tagOptionsRequired = "options_required"
	tagAnswerInOptions = "answer_in_options"
	tagTrueFalse       = "true_false"
)

var customMessages = map[string]string{
	tagQuestionType:    "{0} must be one of multiple_choice, true_false, short_answer, scenario_based",
	tagAnswerRequired:  "{0} is required for auto-graded questions",
	tagOptionsRequired: "{0} must list at least two choices for multiple_choice questions",
	tagAnswerInOptions: "{0} must be one of the question options",
	tagTrueFalse:       "{0} must be true or false",
}

// Setup registers the validator with English translations and the quiz
// question rules on Gin's binding engine. Call once during application startup.
func Setup() {
	v, ok := binding.Validator.Engine().(*govalidator.Validate)
	if !ok {
		return
	}
	register(v)
}

func register(v *govalidator.Validate) {
	// Use JSON tag name for field names in error messages.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation(tagQuestionType, func(fl govalidator.FieldLevel) bool {
		return model.QuestionType(fl.Field().String()).Valid()
	})
	v.RegisterStructValidation(validateQuestion, model.QuestionInput{})

	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	trans, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(v, trans)

	for tag, msg := range customMessages {
		_ = v.RegisterTranslation(tag, trans,
			func(ut ut.Translator) error { return ut.Add(tag, msg, true) },
			func(ut ut.Translator, fe govalidator.FieldError) string {
				t, _ := ut.T(fe.Tag(), fe.Field())
				return t
			})
	}
}

// validateQuestion enforces the per-type shape of a quiz question.
func validateQuestion(sl govalidator.StructLevel) {
	q := sl.Current().Interface().(model.QuestionInput)
	qt := model.QuestionType(q.Type)
	if !qt.Valid() || qt.ManualReview() {
		return
	}

	if q.CorrectAnswer == nil || strings.TrimSpace(*q.CorrectAnswer) == "" {
		sl.ReportError(q.CorrectAnswer, "correct_answer", "CorrectAnswer", tagAnswerRequired, "")
		return
	}
	answer := strings.ToLower(strings.TrimSpace(*q.CorrectAnswer))

	switch qt {
	case model.QuestionMultipleChoice:
		if len(q.Options) < 2 {
			sl.ReportError(q.Options, "options", "Options", tagOptionsRequired, "")
			return
		}
		for _, opt := range q.Options {
			if strings.ToLower(strings.TrimSpace(opt)) == answer {
				return
			}
		}
		sl.ReportError(q.CorrectAnswer, "correct_answer", "CorrectAnswer", tagAnswerInOptions, "")
	case model.QuestionTrueFalse:
		if answer != "true" && answer != "false" {
			sl.ReportError(q.CorrectAnswer, "correct_answer", "CorrectAnswer", tagTrueFalse, "")
		}
	}
}

// TranslateErrors takes a binding/validation error and returns a map of
// field name to human-readable error message. If the error is not a
// validation error, it returns a single-key map with "detail".
func TranslateErrors(err error) map[string]string {
	fields := make(map[string]string)

	var ve govalidator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			fields[fieldPath(fe)] = fe.Translate(trans)
		}
		return fields
	}

	// Not a validation error (e.g., JSON syntax error).
	fields["detail"] = err.Error()
	return fields
}

// fieldPath drops the top-level struct name so nested errors read like
// "questions[0].correct_answer".
func fieldPath(fe govalidator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

// Bind binds and validates the request body into dst.
// Returns nil on success or a translated field error map on failure.
func Bind(c *gin.Context, dst interface{}) map[string]string {
	if err := c.ShouldBindJSON(dst); err != nil {
		return TranslateErrors(err)
	}
	return nil
}
