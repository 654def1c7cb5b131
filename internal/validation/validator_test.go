package validation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meur/steamtier/internal/validation"
)

type colorRequest struct {
	Key   string `json:"key" validate:"required,max=32"`
	Color string `json:"color" validate:"required,hexcolor"`
}

type nestedRequest struct {
	Colors []colorRequest `json:"colors" validate:"required,min=1,dive"`
}

func TestValidator_Success(t *testing.T) {
	v := validation.New()
	assert.NoError(t, v.Validate(colorRequest{Key: "S", Color: "#ff7f80"}))
}

func TestValidator_Errors(t *testing.T) {
	v := validation.New()

	tests := []struct {
		name  string
		req   any
		field string
		msg   string
	}{
		{"missing key", colorRequest{Color: "#fff"}, "key", "is required"},
		{"bad color", colorRequest{Key: "S", Color: "red"}, "color", "must be a hex color"},
		{"empty list", nestedRequest{Colors: []colorRequest{}}, "colors", "must be at least 1"},
		{"nested field", nestedRequest{Colors: []colorRequest{{Key: "S"}}}, "colors[0].color", "is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.req)
			require.Error(t, err)

			var verr *validation.Error
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.msg, verr.Fields[tt.field])
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}
