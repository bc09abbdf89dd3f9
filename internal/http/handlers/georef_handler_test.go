package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/paristimemachine/galligeo/internal/gateway"
	"github.com/paristimemachine/galligeo/internal/services"
)

const validSubmitBody = `{"arkUrl":"https://gallica.bnf.fr/ark:/12148/btv1b1","imageWidth":4000,"imageHeight":3000}`

func submit(r *gin.Engine, body, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/maps/m1/georeference", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Owner-ID", "u1")
	if key != "" {
		req.Header.Set(HeaderIdempotencyKey, key)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestGeoreference_Accepted(t *testing.T) {
	geo := &fakeGeoref{url: "https://tiles.example/{z}/{x}/{y}.png"}
	r := newAPIEngine(New(&fakeSync{}, &fakeStore{}, &fakeSnaps{}, &fakeSettings{}, geo, &fakeIIIF{}, &fakeTiles{}))

	w := submit(r, validSubmitBody, "key-1")
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), geo.url) {
		t.Fatalf("tile url missing: %s", w.Body.String())
	}
	if len(geo.keys) != 1 || geo.keys[0] != "key-1" {
		t.Fatalf("idempotency key not forwarded: %v", geo.keys)
	}
}

func TestGeoreference_ReplayIs200(t *testing.T) {
	geo := &fakeGeoref{url: "https://tiles.example/a", replayed: true}
	r := newAPIEngine(New(&fakeSync{}, &fakeStore{}, &fakeSnaps{}, &fakeSettings{}, geo, &fakeIIIF{}, &fakeTiles{}))

	w := submit(r, validSubmitBody, "key-1")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"replayed":true`) {
		t.Fatalf("body = %s", w.Body.String())
	}
}

func TestGeoreference_BadBody(t *testing.T) {
	r := newAPIEngine(New(&fakeSync{}, &fakeStore{}, &fakeSnaps{}, &fakeSettings{}, &fakeGeoref{}, &fakeIIIF{}, &fakeTiles{}))

	w := submit(r, `{"arkUrl":""}`, "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestGeoreference_GatewayErrorTaxonomy(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not signed in", gateway.ErrUnauthorized, http.StatusUnauthorized, `"not_signed_in"`},
		{"timeout", gateway.ErrSubmitTimeout, http.StatusGatewayTimeout, `"submit_timeout"`},
		{"busy", gateway.ErrRemoteUnavailable, http.StatusServiceUnavailable, `"server_busy"`},
		{"too few points", services.ErrNotEnoughPoints, http.StatusUnprocessableEntity, `"not_enough_points"`},
		{"unknown map", services.ErrRecordNotFound, http.StatusNotFound, `"not_found"`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newAPIEngine(New(&fakeSync{}, &fakeStore{}, &fakeSnaps{}, &fakeSettings{}, &fakeGeoref{err: tc.err}, &fakeIIIF{}, &fakeTiles{}))

			w := submit(r, validSubmitBody, "")
			if w.Code != tc.status {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tc.status, w.Body.String())
			}
			if !strings.Contains(w.Body.String(), tc.code) {
				t.Fatalf("body = %s, want code %s", w.Body.String(), tc.code)
			}
		})
	}
}
