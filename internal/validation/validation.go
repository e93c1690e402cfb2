// Package validation checks decoded request payloads before anything is
// written. Field failures are deliberately collapsed into one error per
// entity: callers learn that a payload is invalid, not which field.
package validation

import (
	"encoding/json"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var (
	ErrMissingBody     = errors.New("missing body")
	ErrInvalidDevice   = errors.New("invalid device data")
	ErrInvalidAudience = errors.New("invalid data format")
)

// Payload is a decoded JSON object. Numbers are kept as json.Number.
type Payload map[string]any

// Decode reads one JSON object from r. Empty, malformed, non-object and
// empty-object bodies are all ErrMissingBody.
func Decode(r io.Reader) (Payload, error) {
	if r == nil {
		return nil, ErrMissingBody
	}
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, ErrMissingBody
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, ErrMissingBody
	}
	obj, ok := raw.(map[string]any)
	if !ok || len(obj) == 0 {
		return nil, ErrMissingBody
	}
	return Payload(obj), nil
}

// MaxDeviceIDLength matches the device_id column (varchar(191), the longest
// utf8mb4 key MySQL can index). Counted in characters.
const MaxDeviceIDLength = 191

type DeviceInput struct {
	DeviceID string `validate:"notblank,max=191"`
	Type     string `validate:"notblank"`
	User     string `validate:"notblank"`
}

type AudienceInput struct {
	DeviceID   string  `validate:"notblank,max=191"`
	TS         string  `validate:"iso8601"`
	ScreenTime float64 `validate:"gte=0"`
	Volume     int     `validate:"gte=0,lte=100"`
}

type Validator struct {
	v   *validator.Validate
	now func() time.Time
}

type Option func(*Validator)

// WithClock overrides the time source used for server-generated ts.
func WithClock(now func() time.Time) Option {
	return func(v *Validator) { v.now = now }
}

func New(opts ...Option) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.RegisterValidation("iso8601", func(fl validator.FieldLevel) bool {
		_, err := ParseTimestamp(fl.Field().String())
		return err == nil
	})

	out := &Validator{v: v, now: time.Now}
	for _, opt := range opts {
		opt(out)
	}
	return out
}

// Device applies the device rule set. String values are returned as sent.
func (v *Validator) Device(p Payload) (DeviceInput, error) {
	if len(p) == 0 {
		return DeviceInput{}, ErrMissingBody
	}
	var (
		in  DeviceInput
		ok1 bool
		ok2 bool
		ok3 bool
	)
	in.DeviceID, ok1 = str(p, "device_id")
	in.Type, ok2 = str(p, "type")
	in.User, ok3 = str(p, "user")
	if !ok1 || !ok2 || !ok3 {
		return DeviceInput{}, ErrInvalidDevice
	}
	if err := v.v.Struct(in); err != nil {
		return DeviceInput{}, ErrInvalidDevice
	}
	return in, nil
}

// Audience applies the audience rule set. A missing ts is stamped with
// the current UTC time.
func (v *Validator) Audience(p Payload) (AudienceInput, error) {
	if len(p) == 0 {
		return AudienceInput{}, ErrMissingBody
	}
	var in AudienceInput

	if raw, present := p["ts"]; present {
		ts, ok := raw.(string)
		if !ok {
			return AudienceInput{}, ErrInvalidAudience
		}
		in.TS = ts
	} else {
		in.TS = FormatTimestamp(v.now())
	}

	var ok bool
	if in.DeviceID, ok = str(p, "device_id"); !ok {
		return AudienceInput{}, ErrInvalidAudience
	}
	if in.ScreenTime, ok = number(p["screen_time"]); !ok {
		return AudienceInput{}, ErrInvalidAudience
	}
	if in.Volume, ok = integer(p["volume"]); !ok {
		return AudienceInput{}, ErrInvalidAudience
	}
	if err := v.v.Struct(in); err != nil {
		return AudienceInput{}, ErrInvalidAudience
	}
	return in, nil
}

func str(p Payload, key string) (string, bool) {
	s, ok := p[key].(string)
	return s, ok
}

// number accepts any JSON number; booleans and numeric strings are rejected.
func number(v any) (float64, bool) {
	n, ok := v.(json.Number)
	if !ok {
		return 0, false
	}
	f, err := n.Float64()
	if err != nil {
		return 0, false
	}
	return f, true
}

// integer accepts JSON numbers written without fraction or exponent.
func integer(v any) (int, bool) {
	n, ok := v.(json.Number)
	if !ok {
		return 0, false
	}
	i, err := n.Int64()
	if err != nil {
		return 0, false
	}
	if i < -1<<31 || i > 1<<31-1 {
		return 0, false
	}
	return int(i), true
}
