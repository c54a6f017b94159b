package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type slotRequest struct {
	Date      string `json:"date" validate:"required,isodate"`
	TimeRange string `json:"time_range" validate:"required,timerange"`
}

func TestValidate_DomainTags(t *testing.T) {
	assert.Nil(t, Validate(slotRequest{Date: "2026-10-19", TimeRange: "09:00-11:00"}))
	assert.Nil(t, Validate(slotRequest{Date: "2026-10-19", TimeRange: "22:00-24:00"}))

	errs := Validate(slotRequest{Date: "19.10.2026", TimeRange: "11:00-09:00"})
	assert.Equal(t, map[string]string{"date": "isodate", "time_range": "timerange"}, errs)

	errs = Validate(slotRequest{TimeRange: "9:00-10:00"})
	assert.Equal(t, "required", errs["date"])
	assert.Equal(t, "timerange", errs["time_range"])
}

func TestErrors_NonValidationError(t *testing.T) {
	assert.Nil(t, Errors(nil))
	assert.Nil(t, Errors(assert.AnError))
}
