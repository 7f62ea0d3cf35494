package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	pkgerrors "github.com/kineticlab/physio-academy-backend/pkg/errors"
)

type samplePayload struct {
	PlanType  string  `json:"planType" validate:"required,oneof=free_trial monthly lifetime"`
	PromoCode *string `json:"promoCode,omitempty" validate:"omitempty,max=64"`
}

func TestDecodeJSONBodyValidates(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"planType":"weekly"}`))
	var payload samplePayload
	err := DecodeJSONBody(req, &payload)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	details, ok := typed.Details().(map[string]string)
	if !ok || !strings.Contains(details["planType"], "must be one of") {
		t.Fatalf("expected oneof message for planType, got %v", typed.Details())
	}
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"planType":"monthly","price":1}`))
	var payload samplePayload
	if err := DecodeJSONBody(req, &payload); err == nil {
		t.Fatalf("expected unknown field error")
	}
}

func TestDecodeJSONBodyAccepts(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"planType":"monthly","promoCode":"save20"}`))
	var payload samplePayload
	if err := DecodeJSONBody(req, &payload); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payload.PromoCode == nil || *payload.PromoCode != "save20" {
		t.Fatalf("promo code not decoded")
	}
}

func TestParseQueryLocation(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?tz=UTC", nil)
	loc, err := ParseQueryLocation(req, "tz", time.Local)
	if err != nil || loc.String() != "UTC" {
		t.Fatalf("expected UTC, got %v err=%v", loc, err)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	fallback := time.FixedZone("X", 3600)
	if loc, err := ParseQueryLocation(req, "tz", fallback); err != nil || loc != fallback {
		t.Fatalf("expected fallback, got %v err=%v", loc, err)
	}

	req = httptest.NewRequest(http.MethodGet, "/?tz=Mars/Olympus", nil)
	if _, err := ParseQueryLocation(req, "tz", fallback); err == nil {
		t.Fatalf("expected unknown timezone error")
	}
}

func TestCleanText(t *testing.T) {
	if got := CleanText("  save20  ", 4); got != "save" {
		t.Fatalf("unexpected clean result %q", got)
	}
	if got := CleanText("VER\x00ANO\n", 0); got != "VERANO" {
		t.Fatalf("expected control characters stripped, got %q", got)
	}
	if got := CleanText("añoñuevo", 3); got != "año" {
		t.Fatalf("expected rune aware truncation, got %q", got)
	}
}

func TestDecodeJSONBodyRequiresBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	var payload samplePayload
	err := DecodeJSONBody(req, &payload)
	if typed := pkgerrors.As(err); typed == nil || typed.Message() != "request body is required" {
		t.Fatalf("expected missing body error, got %v", err)
	}
}

func TestDecodeJSONBodyRejectsTrailingObjects(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"planType":"monthly"}{"planType":"lifetime"}`))
	var payload samplePayload
	if err := DecodeJSONBody(req, &payload); err == nil {
		t.Fatalf("expected trailing object error")
	}
}

func TestURLParamUUID(t *testing.T) {
	id := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("courseID", id.String())
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	got, err := URLParamUUID(req, "courseID")
	if err != nil || got != id {
		t.Fatalf("expected %s, got %s err=%v", id, got, err)
	}
	if _, err := URLParamUUID(req, "packageID"); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for missing param, got %v", err)
	}
}
