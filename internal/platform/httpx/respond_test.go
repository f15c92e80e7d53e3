package httpx

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRespondErrorMapsSentinels(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("shelves: %w", ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("shelves: %w", ErrDuplicate), http.StatusConflict},
		{fmt.Errorf("shelves: %w", ErrConflict), http.StatusConflict},
		{fmt.Errorf("shelves: %w", ErrGone), http.StatusGone},
		{fmt.Errorf("shelves: %w", ErrValidation), http.StatusBadRequest},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rr := httptest.NewRecorder()
		RespondError(rr, tc.err)
		require.Equal(t, tc.status, rr.Code, tc.err.Error())
	}
}

func TestRespondErrorIncludesFieldErrors(t *testing.T) {
	rr := httptest.NewRecorder()
	RespondError(rr, &ValidationError{Fields: []FieldError{{Field: "code", Message: "is required"}}})

	require.Equal(t, http.StatusBadRequest, rr.Code)
	var body ProblemDetail
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body.Errors, 1)
	require.Equal(t, "code", body.Errors[0].Field)
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	var target struct {
		Name string `json:"name"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"a","extra":1}`))
	require.ErrorIs(t, DecodeJSON(req, &target), ErrValidation)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(``))
	require.ErrorIs(t, DecodeJSON(req, &target), ErrValidation)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"a"}`))
	require.NoError(t, DecodeJSON(req, &target))
	require.Equal(t, "a", target.Name)
}

func TestValidatorUsesJSONNames(t *testing.T) {
	type input struct {
		Code string `json:"code" validate:"required"`
		Rows int    `json:"rows" validate:"min=1"`
	}
	err := NewValidator().Struct(input{})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.ErrorIs(t, err, ErrValidation)
	require.Len(t, verr.Fields, 2)
	require.Equal(t, "code", verr.Fields[0].Field)
	require.Equal(t, "is required", verr.Fields[0].Message)
	require.Equal(t, "rows", verr.Fields[1].Field)

	require.NoError(t, NewValidator().Struct(input{Code: "S1", Rows: 2}))
}
