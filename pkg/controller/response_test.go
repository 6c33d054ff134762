package controller

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nimburion/geodir/pkg/middleware/requestid"
	"github.com/nimburion/geodir/pkg/repository"
	"github.com/nimburion/geodir/pkg/server/router"
	"github.com/nimburion/geodir/pkg/server/router/gin"
)

func serve(t *testing.T, target string, handler router.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	r := gin.NewRouter()
	r.Use(requestid.RequestID())
	r.GET("/countries", handler)
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.Header.Set(requestid.RequestIDHeader, "req-1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestSuccessAndCreated(t *testing.T) {
	tests := []struct {
		name   string
		send   func(router.Context, interface{}) error
		status int
	}{
		{"success", Success, http.StatusOK},
		{"created", Created, http.StatusCreated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, "/countries", func(c router.Context) error {
				return tt.send(c, map[string]string{"alpha2": "DE"})
			})
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			var body struct {
				Data      map[string]string `json:"data"`
				RequestID string            `json:"request_id"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("invalid body: %v", err)
			}
			if body.Data["alpha2"] != "DE" || body.RequestID != "req-1" {
				t.Fatalf("body = %+v", body)
			}
		})
	}
}

func TestNoContent(t *testing.T) {
	rec := serve(t, "/countries", NoContent)
	if rec.Code != http.StatusNoContent || rec.Body.Len() != 0 {
		t.Fatalf("got %d with body %q", rec.Code, rec.Body.String())
	}
}

func TestError(t *testing.T) {
	rec := serve(t, "/countries", func(c router.Context) error {
		return Error(c, &repository.UnknownSortFieldError{Token: "population"})
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	var body ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	if body.Code != "validation.unknown_sort_field" || body.RequestID != "req-1" {
		t.Fatalf("body = %+v", body)
	}
}

func TestList(t *testing.T) {
	page := repository.Page[string]{
		Items: []string{"Austria", "Belgium"},
		Info:  repository.NewPageInfo(5, repository.Pagination{Page: 1, Size: 2}),
	}
	rec := serve(t, "/countries?sort=name&page=1&size=2", func(c router.Context) error {
		return List(c, page)
	})

	var body ListResponse[string]
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	if len(body.Data) != 2 || body.Page.TotalPages != 3 || body.Page.TotalElements != 5 {
		t.Fatalf("body = %+v", body)
	}
	if body.Links.Next != "/countries?page=2&size=2&sort=name" {
		t.Fatalf("next = %q", body.Links.Next)
	}
	if body.Links.Prev != "/countries?page=0&size=2&sort=name" {
		t.Fatalf("prev = %q", body.Links.Prev)
	}
}

func TestList_EmptyIsArray(t *testing.T) {
	rec := serve(t, "/countries", func(c router.Context) error {
		return List(c, repository.Page[string]{})
	})

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &raw); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	if string(raw["data"]) != "[]" {
		t.Fatalf("data = %s, want []", raw["data"])
	}
}
