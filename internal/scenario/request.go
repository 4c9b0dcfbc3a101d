package scenario

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidRequest is wrapped by every request validation failure.
var ErrInvalidRequest = errors.New("invalid scenario request")

// validate is a singleton validator instance.
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// ValidationError describes the first invalid field of a request.
type ValidationError struct {
	Field string
	Tag   string
	Param string
	Value any
}

func (e *ValidationError) Error() string {
	switch e.Tag {
	case "required":
		return fmt.Sprintf("%s: field is required", e.Field)
	case "oneof":
		return fmt.Sprintf("%s: must be one of [%s], got %v", e.Field, e.Param, e.Value)
	case "gte":
		return fmt.Sprintf("%s: must be at least %s", e.Field, e.Param)
	case "lte":
		return fmt.Sprintf("%s: must not exceed %s", e.Field, e.Param)
	case "min":
		return fmt.Sprintf("%s: must have at least %s entries", e.Field, e.Param)
	default:
		return fmt.Sprintf("%s: validation failed (%s)", e.Field, e.Tag)
	}
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidRequest
}

// formatValidationError converts validator errors into a *ValidationError
// for the first failing field.
func formatValidationError(err error) error {
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) || len(validationErrs) == 0 {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	e := validationErrs[0]
	return &ValidationError{
		Field: e.Namespace(),
		Tag:   e.Tag(),
		Param: e.Param(),
		Value: e.Value(),
	}
}

// TariffRequest describes a tariff change on goods from one country.
type TariffRequest struct {
	Country            string   `json:"country" yaml:"country" validate:"required"`
	IncreasePercentage float64  `json:"increase_percentage" yaml:"increase_percentage" validate:"gte=0,lte=1000"`
	ComponentTypes     []string `json:"component_types,omitempty" yaml:"component_types,omitempty" validate:"omitempty,dive,required"`
}

// Validate checks the request at the API boundary.
func (r *TariffRequest) Validate() error {
	return formatValidationError(validate.Struct(r))
}

// Disruption levels.
const (
	LevelComplete = "complete"
	LevelPartial  = "partial"
)

// DisruptionRequest describes a supplier outage.
type DisruptionRequest struct {
	SupplierID     string `json:"supplier_id" yaml:"supplier_id" validate:"required"`
	Level          string `json:"disruption_level,omitempty" yaml:"disruption_level,omitempty" validate:"oneof=partial complete"`
	DurationMonths int    `json:"duration_months,omitempty" yaml:"duration_months,omitempty" validate:"gte=0,lte=120"`
}

// ApplyDefaults fills unset fields: a complete outage lasting 3 months.
func (r *DisruptionRequest) ApplyDefaults() {
	if r.Level == "" {
		r.Level = LevelComplete
	}
	if r.DurationMonths == 0 {
		r.DurationMonths = 3
	}
}

// Validate checks the request at the API boundary.
func (r *DisruptionRequest) Validate() error {
	return formatValidationError(validate.Struct(r))
}

// GeopoliticalRequest describes a geopolitical event in one country.
type GeopoliticalRequest struct {
	Country        string `json:"country" yaml:"country" validate:"required"`
	EventType      string `json:"event_type" yaml:"event_type" validate:"required,oneof=trade_restriction conflict natural_disaster political_change"`
	Severity       string `json:"severity,omitempty" yaml:"severity,omitempty" validate:"oneof=low medium high"`
	DurationMonths int    `json:"duration_months,omitempty" yaml:"duration_months,omitempty" validate:"gte=0,lte=120"`
}

// ApplyDefaults fills unset fields: medium severity lasting 6 months.
func (r *GeopoliticalRequest) ApplyDefaults() {
	if r.Severity == "" {
		r.Severity = "medium"
	}
	if r.DurationMonths == 0 {
		r.DurationMonths = 6
	}
}

// Validate checks the request at the API boundary.
func (r *GeopoliticalRequest) Validate() error {
	return formatValidationError(validate.Struct(r))
}

// Shortage levels.
const (
	ShortageSevere   = "severe"
	ShortageModerate = "moderate"
)

// ShortageRequest describes a shortage of one component category.
type ShortageRequest struct {
	ComponentType  string `json:"component_type" yaml:"component_type" validate:"required"`
	Level          string `json:"shortage_level,omitempty" yaml:"shortage_level,omitempty" validate:"oneof=moderate severe"`
	DurationMonths int    `json:"duration_months,omitempty" yaml:"duration_months,omitempty" validate:"gte=0,lte=120"`
}

// ApplyDefaults fills unset fields: a severe shortage lasting 6 months.
func (r *ShortageRequest) ApplyDefaults() {
	if r.Level == "" {
		r.Level = ShortageSevere
	}
	if r.DurationMonths == 0 {
		r.DurationMonths = 6
	}
}

// Validate checks the request at the API boundary.
func (r *ShortageRequest) Validate() error {
	return formatValidationError(validate.Struct(r))
}
