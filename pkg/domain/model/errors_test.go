package model_test

import (
	"errors"
	"testing"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/anzen/pkg/domain/model"
)

func TestValidationError(t *testing.T) {
	t.Run("empty error is nil", func(t *testing.T) {
		var verr model.ValidationError
		gt.NoError(t, verr.OrNil())
	})

	t.Run("lists every field", func(t *testing.T) {
		var verr model.ValidationError
		verr.Add("Date", "2024-13-40", "must be a valid calendar date")
		verr.Add("LostDays", "-1", "must not be negative")

		err := verr.OrNil()
		gt.Value(t, err).NotNil()
		gt.String(t, err.Error()).Contains("Date")
		gt.String(t, err.Error()).Contains("LostDays")
		gt.Bool(t, verr.Has("Date")).True()
		gt.Bool(t, verr.Has("Area")).False()
	})

	t.Run("is ErrValidation through goerr wrapping", func(t *testing.T) {
		verr := &model.ValidationError{}
		verr.Add("Area", "", "is required")
		err := goerr.Wrap(verr, "failed to append incident")

		gt.Error(t, err).Is(model.ErrValidation)

		var got *model.ValidationError
		gt.Bool(t, errors.As(err, &got)).True()
		gt.Array(t, got.Fields).Length(1)
	})
}
