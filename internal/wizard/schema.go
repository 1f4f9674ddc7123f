package wizard

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"github.com/pkordes/travelspot-editor/backend/internal/domain"
)

// The projections below are the per-step schemas. Their json tags name the
// draft fields a step owns; the validate tags are the rules.

type basicInfoFields struct {
	Name             string  `json:"name" validate:"notblank,max=200"`
	Slug             string  `json:"slug" validate:"required,max=220,slug"`
	Categories       []int64 `json:"categories" validate:"min=1,max=5,unique,dive,gt=0"`
	ShortDescription string  `json:"short_description" validate:"notblank,max=300"`
}

type locationFields struct {
	Country     int64  `json:"country" validate:"required"`
	State       int64  `json:"state" validate:"required"`
	District    int64  `json:"district" validate:"required"`
	SubDistrict int64  `json:"sub_district" validate:"required"`
	Village     int64  `json:"village" validate:"required"`
	Pincode     int64  `json:"pincode" validate:"gte=0"`
	FullAddress string `json:"full_address" validate:"notblank,max=500"`
	Latitude    string `json:"latitude" validate:"omitempty,latitude"`
	Longitude   string `json:"longitude" validate:"omitempty,longitude"`
}

type detailsFields struct {
	EntryFee        string `json:"entry_fee" validate:"required,entry_fee"`
	OpeningTime     string `json:"opening_time" validate:"omitempty,hhmm"`
	ClosingTime     string `json:"closing_time" validate:"omitempty,hhmm"`
	BestTimeToVisit string `json:"best_time_to_visit" validate:"max=200"`
	LongDescription string `json:"long_description" validate:"max=5000"`
}

var (
	slugPattern     = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)
	entryFeePattern = regexp.MustCompile(`^(Free|\d+(\.\d{1,2})?)$`)
	hhmmPattern     = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)
)

// newValidator builds the validator shared by all steps. Field errors are
// reported under json names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonName)

	mustRegister(v, "notblank", validators.NotBlank)
	mustRegister(v, "slug", matches(slugPattern))
	mustRegister(v, "entry_fee", matches(entryFeePattern))
	mustRegister(v, "hhmm", matches(hhmmPattern))

	v.RegisterStructValidation(func(sl validator.StructLevel) {
		f := sl.Current().Interface().(locationFields)
		switch {
		case f.Latitude != "" && f.Longitude == "":
			sl.ReportError(f.Longitude, "longitude", "Longitude", "paired", "latitude")
		case f.Latitude == "" && f.Longitude != "":
			sl.ReportError(f.Latitude, "latitude", "Latitude", "paired", "longitude")
		}
	}, locationFields{})

	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("wizard: register %q validation: %v", tag, err))
	}
}

func matches(re *regexp.Regexp) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return re.MatchString(fl.Field().String())
	}
}

func jsonName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	return name
}

// validateStruct runs v over s and converts failures into a
// *domain.ValidationError keyed by json field name.
func validateStruct(v *validator.Validate, s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := domain.FieldErrors{}
	for _, fe := range verrs {
		name, _, _ := strings.Cut(fe.Field(), "[")
		fields.Add(name, message(fe))
	}
	return &domain.ValidationError{Fields: fields}
}

func message(fe validator.FieldError) string {
	isList := fe.Kind() == reflect.Slice
	switch fe.Tag() {
	case "required", "notblank":
		return "this field is required"
	case "min":
		if isList {
			return fmt.Sprintf("select at least %s", fe.Param())
		}
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		if isList {
			return fmt.Sprintf("select at most %s", fe.Param())
		}
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "unique":
		return "must not contain duplicates"
	case "gt", "gte":
		return "must be a valid id"
	case "slug":
		return "use lowercase letters, digits and single hyphens"
	case "latitude":
		return "must be a number between -90 and 90"
	case "longitude":
		return "must be a number between -180 and 180"
	case "paired":
		return "latitude and longitude must both be set or both be empty"
	case "entry_fee":
		return `enter a non-negative amount or "Free"`
	case "hhmm":
		return "use 24-hour HH:MM"
	}
	return "is invalid"
}
