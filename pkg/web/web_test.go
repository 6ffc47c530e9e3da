package web

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.DiscardHandler)

func Test_ParseID(t *testing.T) {
	testCases := []struct {
		name         string
		path         string
		expectedID   int
		expectedOK   bool
		expectedCode int
	}{
		{name: "valid", path: "/items/42", expectedID: 42, expectedOK: true, expectedCode: http.StatusOK},
		{name: "zero", path: "/items/0", expectedCode: http.StatusBadRequest},
		{name: "negative", path: "/items/-3", expectedCode: http.StatusBadRequest},
		{name: "not a number", path: "/items/abc", expectedCode: http.StatusBadRequest},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			var gotID int
			var gotOK bool
			mux := chi.NewRouter()
			mux.Get("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
				gotID, gotOK = ParseID(w, r, discard)
				if gotOK {
					w.WriteHeader(http.StatusOK)
				}
			})
			rec := httptest.NewRecorder()
			// when
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.path, nil))
			// then
			assert.Equal(t, tc.expectedCode, rec.Code)
			assert.Equal(t, tc.expectedOK, gotOK)
			assert.Equal(t, tc.expectedID, gotID)
		})
	}
}

func Test_DecodeAndValidate(t *testing.T) {
	type body struct {
		Quantity int `json:"quantity" validate:"min=1"`
	}
	testCases := []struct {
		name         string
		payload      string
		expectedOK   bool
		expectedCode int
		expectedBody string
	}{
		{name: "valid", payload: `{"quantity":2}`, expectedOK: true, expectedCode: http.StatusOK},
		{name: "malformed", payload: `{"quantity":`, expectedCode: http.StatusBadRequest, expectedBody: `{"error":"Invalid request body"}`},
		{name: "rule violated", payload: `{"quantity":0}`, expectedCode: http.StatusBadRequest, expectedBody: `{"validation_errors":{"Quantity":"failed on rule: min"}}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.payload))
			var dst body
			// when
			ok := DecodeAndValidate(rec, req, discard, validator.New(), &dst)
			if ok {
				rec.WriteHeader(http.StatusOK)
			}
			// then
			assert.Equal(t, tc.expectedOK, ok)
			assert.Equal(t, tc.expectedCode, rec.Code)
			if tc.expectedBody != "" {
				assert.JSONEq(t, tc.expectedBody, rec.Body.String())
			}
		})
	}
}

func Test_RequestIDInjector(t *testing.T) {
	testCases := []struct {
		name   string
		header string
	}{
		{name: "generated"},
		{name: "propagated", header: "abc-123"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			var seen string
			h := RequestIDInjector(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = middleware.GetReqID(r.Context())
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set(RequestIDHeader, tc.header)
			}
			rec := httptest.NewRecorder()
			// when
			h.ServeHTTP(rec, req)
			// then
			require.NotEmpty(t, seen)
			assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))
			if tc.header != "" {
				assert.Equal(t, tc.header, seen)
			}
		})
	}
}

func Test_Recoverer(t *testing.T) {
	// given
	h := Recoverer(discard)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	// when
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	// then
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
