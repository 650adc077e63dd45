package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type runRequest struct {
	MaxRecords int     `json:"max_records" default:"100" validate:"omitempty,gte=1,lte=5000"`
	MaxAge     string  `json:"max_age" validate:"omitempty,duration"`
	Action     string  `json:"action" validate:"omitempty,oneof=reinforce tune reset"`
	Weight     float64 `json:"weight" validate:"omitempty,gte=0,lte=1"`
}

func bindRun(t *testing.T, body string) interface{} {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/run", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c := e.NewContext(req, httptest.NewRecorder())

	var r runRequest
	return ReadAndValidateRequest(c, &r)
}

func TestReadAndValidateRequestAppliesDefaults(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/run", strings.NewReader(`{"max_age":"24h"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c := e.NewContext(req, httptest.NewRecorder())

	var r runRequest
	require.Nil(t, ReadAndValidateRequest(c, &r))
	assert.Equal(t, 100, r.MaxRecords)
	assert.Equal(t, "24h", r.MaxAge)
}

func TestReadAndValidateRequestFieldErrors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		code    string
		field   string
		message string
	}{
		{"range", `{"max_records":9000}`, "ERR_LTE", "max_records", "max_records must be less than or equal to 5000"},
		{"duration", `{"max_age":"-1h"}`, "ERR_DURATION", "max_age", "max_age must be a non-negative duration such as 24h"},
		{"oneof", `{"action":"drop"}`, "ERR_ONEOF", "action", "action must be one of: reinforce, tune, reset"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			details := bindRun(t, tt.body)
			errs, ok := details.([]ValidationError)
			require.True(t, ok)
			require.Len(t, errs, 1)
			assert.Equal(t, tt.code, errs[0].Code)
			assert.Equal(t, tt.field, errs[0].Field)
			assert.Equal(t, tt.message, errs[0].Message)
		})
	}
}

func TestReadAndValidateRequestMalformedBody(t *testing.T) {
	details := bindRun(t, `{"max_records":`)
	errs, ok := details.([]ValidationError)
	require.True(t, ok)
	require.Len(t, errs, 1)
	assert.Equal(t, "ERR_UNKNOWN", errs[0].Code)
}

func TestValidateStructRequired(t *testing.T) {
	type event struct {
		EventType string `json:"event_type" validate:"required,max=128"`
	}
	assert.Error(t, ValidateStruct(event{}))
	assert.NoError(t, ValidateStruct(event{EventType: "signup"}))
}
