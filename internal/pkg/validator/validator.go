package validator

import (
	"errors"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	validate     = newValidate()
	registerOnce sync.Once
)

func newValidate() *validator.Validate {
	v := validator.New()
	configure(v)
	return v
}

// configure reports json field names and adds the domain tags:
// "isodate" (YYYY-MM-DD) and "timerange" (HH:MM-HH:MM).
func configure(v *validator.Validate) {
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
		_, err := time.Parse("2006-01-02", fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("timerange", func(fl validator.FieldLevel) bool {
		return isTimeRange(fl.Field().String())
	})
}

// RegisterGin installs the domain tags into gin's binding validator. It is
// safe to call more than once.
func RegisterGin() {
	registerOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			configure(v)
		}
	})
}

// Validate struct fields
func Validate(v interface{}) map[string]string {
	return Errors(validate.Struct(v))
}

// Errors flattens validation errors into field -> failed tag. It returns nil
// when err carries no field errors.
func Errors(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}

	out := make(map[string]string, len(verrs))
	for _, e := range verrs {
		out[e.Field()] = e.Tag()
	}
	return out
}

func isTimeRange(s string) bool {
	start, end, ok := strings.Cut(s, "-")
	if !ok {
		return false
	}
	a, okA := clock(start)
	b, okB := clock(end)
	return okA && okB && a < b
}

func clock(s string) (int, bool) {
	if len(s) != 5 || s[2] != ':' {
		return 0, false
	}
	h, m := digits(s[:2]), digits(s[3:])
	if h < 0 || m < 0 || m > 59 || h > 24 || (h == 24 && m != 0) {
		return 0, false
	}
	return h*60 + m, true
}

func digits(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return -1
		}
		n = n*10 + int(r-'0')
	}
	return n
}
