package ordinazione

import (
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/taldoflemis/trattoria/carrello"
)

type Mode string

const (
	ModeDelivery Mode = "delivery"
	ModeDineIn   Mode = "dine_in"
)

type phoneRule struct {
	tag     string
	pattern *regexp.Regexp
	message string
}

// phoneRules holds the accepted phone format of every mode.
var phoneRules = map[Mode]phoneRule{
	ModeDelivery: {
		tag:     "intlphone",
		pattern: regexp.MustCompile(`^[\+]\d{1,3}\s?\(?\d{1,4}\)?[\s.-]?\d{1,4}[\s.-]?\d{1,4}[\s.-]?\d{1,9}$`),
		message: "Enter a valid phone number",
	},
	ModeDineIn: {
		tag:     "byphone",
		pattern: regexp.MustCompile(`^\+375\s?\(?\d{2}\)?[\s.-]?\d{3}[\s.-]?\d{2}[\s.-]?\d{2}$`),
		message: "Enter a valid phone number (+375)",
	},
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	for _, rule := range phoneRules {
		pattern := rule.pattern
		if err := v.RegisterValidation(rule.tag, func(fl validator.FieldLevel) bool {
			return pattern.MatchString(fl.Field().String())
		}); err != nil {
			panic(err)
		}
	}
	return v
}

// Form is one of DeliveryForm or DineInForm.
type Form interface {
	Mode() Mode
	normalized() Form
	request(items []carrello.LineItem) OrderRequest
}

type DeliveryForm struct {
	Address string `validate:"required"`
	Phone   string `validate:"required,intlphone"`
	Notes   string
}

func (DeliveryForm) Mode() Mode { return ModeDelivery }

func (f DeliveryForm) normalized() Form {
	f.Address = strings.TrimSpace(f.Address)
	f.Phone = strings.TrimSpace(f.Phone)
	f.Notes = strings.TrimSpace(f.Notes)
	return f
}

func (f DeliveryForm) request(items []carrello.LineItem) OrderRequest {
	return OrderRequest{
		Items:           items,
		DeliveryAddress: f.Address,
		Phone:           f.Phone,
		Notes:           f.Notes,
	}
}

type DineInForm struct {
	Phone           string    `validate:"required,byphone"`
	ReservationTime time.Time `validate:"required"`
	GuestsCount     int       `validate:"min=1"`
	Notes           string
}

func (DineInForm) Mode() Mode { return ModeDineIn }

func (f DineInForm) normalized() Form {
	f.Phone = strings.TrimSpace(f.Phone)
	f.Notes = strings.TrimSpace(f.Notes)
	return f
}

func (f DineInForm) request(items []carrello.LineItem) OrderRequest {
	reservation := f.ReservationTime
	return OrderRequest{
		Items:           items,
		Phone:           f.Phone,
		Notes:           f.Notes,
		OrderType:       string(ModeDineIn),
		ReservationTime: &reservation,
		GuestsCount:     f.GuestsCount,
	}
}

// check runs the validation steps in order and stops at the first failure.
func check(form Form, items []carrello.LineItem, now time.Time) *SubmitError {
	if len(items) == 0 {
		return newSubmitError(ReasonEmptyCart, MsgEmptyCart, nil)
	}

	if err := validate.Struct(form); err != nil {
		return classify(form.Mode(), err)
	}

	if dineIn, ok := form.(DineInForm); ok && !dineIn.ReservationTime.After(now) {
		return newSubmitError(ReasonPastReservation, MsgPastReservation, nil)
	}
	return nil
}

// classify reports missing fields before malformed phones.
func classify(mode Mode, err error) *SubmitError {
	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return newSubmitError(ReasonMissingField, MsgMissingField, err)
	}

	rule := phoneRules[mode]
	var phoneErr error
	for _, fe := range fieldErrs {
		if fe.Tag() == rule.tag {
			phoneErr = fe
			continue
		}
		return newSubmitError(ReasonMissingField, MsgMissingField, fe)
	}
	return newSubmitError(ReasonInvalidPhone, rule.message, phoneErr)
}
