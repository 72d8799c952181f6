package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ErlanBelekov/recircular-api/internal/domain"
	"github.com/ErlanBelekov/recircular-api/internal/transport/http/handler"
	"github.com/ErlanBelekov/recircular-api/internal/transport/http/middleware"
	"github.com/ErlanBelekov/recircular-api/internal/usecase"
	"github.com/gin-gonic/gin"
)

const (
	testUserID  = "6f1c1f2e-8f0a-4d4b-9a57-6d1e0f7c9a11"
	testOfferID = "0b6e3c52-2a7f-4c0e-8d3b-5f4a1e9d7c22"
)

type fakeOfferUsecase struct {
	create       func(ctx context.Context, input usecase.CreateOfferInput) (*domain.Offer, error)
	searchNearby func(ctx context.Context, input usecase.NearbyInput) ([]*domain.NearbyOffer, error)
	listPublic   func(ctx context.Context) ([]*domain.Offer, error)
	listMine     func(ctx context.Context, ownerID string) ([]*domain.Offer, error)
	cancel       func(ctx context.Context, ownerID, offerID string) (*usecase.CancelOfferResult, error)
}

func (f *fakeOfferUsecase) Create(ctx context.Context, input usecase.CreateOfferInput) (*domain.Offer, error) {
	return f.create(ctx, input)
}

func (f *fakeOfferUsecase) SearchNearby(ctx context.Context, input usecase.NearbyInput) ([]*domain.NearbyOffer, error) {
	return f.searchNearby(ctx, input)
}

func (f *fakeOfferUsecase) ListPublic(ctx context.Context) ([]*domain.Offer, error) {
	return f.listPublic(ctx)
}

func (f *fakeOfferUsecase) ListMine(ctx context.Context, ownerID string) ([]*domain.Offer, error) {
	return f.listMine(ctx, ownerID)
}

func (f *fakeOfferUsecase) Cancel(ctx context.Context, ownerID, offerID string) (*usecase.CancelOfferResult, error) {
	return f.cancel(ctx, ownerID, offerID)
}

// asUser stands in for the auth middleware.
func asUser(userID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID != "" {
			c.Set(middleware.UserIDKey, userID)
		}
		c.Next()
	}
}

func newOfferEngine(uc *fakeOfferUsecase, userID string) *gin.Engine {
	h := handler.NewOfferHandler(uc, discardLogger())

	r := gin.New()
	r.Use(asUser(userID))
	r.POST("/api/offers", h.Create)
	r.GET("/api/offers", h.List)
	r.GET("/api/offers/nearby", h.Nearby)
	r.GET("/api/offers/my", h.ListMine)
	r.PATCH("/api/offers/:id/cancel", h.Cancel)
	return r
}

func sampleOffer() *domain.Offer {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	return &domain.Offer{
		ID:        testOfferID,
		OwnerID:   testUserID,
		Owner:     &domain.UserSummary{ID: testUserID, Name: "Ana", Email: "ana@example.com"},
		Items:     []domain.Item{{Denomination: 1000, Quantity: 3}},
		Location:  domain.Location{Lat: -33.4489, Lng: -70.6693},
		Status:    domain.OfferActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ---- Create ----

func TestCreateOffer_Success_Returns201(t *testing.T) {
	var got usecase.CreateOfferInput
	uc := &fakeOfferUsecase{
		create: func(_ context.Context, input usecase.CreateOfferInput) (*domain.Offer, error) {
			got = input
			return sampleOffer(), nil
		},
	}
	w := httptest.NewRecorder()
	newOfferEngine(uc, testUserID).ServeHTTP(w, postJSON("/api/offers",
		`{"items":[{"denomination":1000,"quantity":3}],"location":{"lat":-33.4489,"lng":-70.6693,"comuna":"Santiago"}}`))

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body %s)", w.Code, w.Body.String())
	}
	if got.OwnerID != testUserID {
		t.Errorf("owner = %q, want %q", got.OwnerID, testUserID)
	}
	if len(got.Items) != 1 || got.Items[0].Quantity != 3 || got.Lat != -33.4489 || got.Comuna != "Santiago" {
		t.Errorf("usecase input = %+v", got)
	}
	if strings.Contains(w.Body.String(), "ana@example.com") {
		t.Errorf("body %q leaks the owner email", w.Body.String())
	}
}

func TestCreateOffer_InvalidBody_Returns400(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty items", `{"items":[],"location":{"lat":1,"lng":1}}`},
		{"missing items", `{"location":{"lat":1,"lng":1}}`},
		{"zero quantity", `{"items":[{"denomination":1000,"quantity":0}],"location":{"lat":1,"lng":1}}`},
		{"negative denomination", `{"items":[{"denomination":-5,"quantity":1}],"location":{"lat":1,"lng":1}}`},
		{"missing location", `{"items":[{"denomination":1000,"quantity":1}]}`},
		{"latitude out of range", `{"items":[{"denomination":1000,"quantity":1}],"location":{"lat":95,"lng":1}}`},
		{"malformed json", `{items:`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			newOfferEngine(&fakeOfferUsecase{}, testUserID).ServeHTTP(w, postJSON("/api/offers", tt.body))

			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}
}

func TestCreateOffer_ZeroCoordinatesAccepted(t *testing.T) {
	uc := &fakeOfferUsecase{
		create: func(_ context.Context, _ usecase.CreateOfferInput) (*domain.Offer, error) {
			return sampleOffer(), nil
		},
	}
	w := httptest.NewRecorder()
	newOfferEngine(uc, testUserID).ServeHTTP(w, postJSON("/api/offers",
		`{"items":[{"denomination":1000,"quantity":1}],"location":{"lat":0,"lng":0}}`))

	if w.Code != http.StatusCreated {
		t.Errorf("status = %d, want 201", w.Code)
	}
}

// ---- Nearby ----

func TestNearby_InvalidCoordinates_Returns400(t *testing.T) {
	for _, q := range []string{"", "?lat=abc&lng=1", "?lat=1"} {
		w := httptest.NewRecorder()
		newOfferEngine(&fakeOfferUsecase{}, "").ServeHTTP(w,
			httptest.NewRequest(http.MethodGet, "/api/offers/nearby"+q, nil))

		if w.Code != http.StatusBadRequest {
			t.Errorf("query %q: status = %d, want 400", q, w.Code)
		}
	}
}

func TestNearby_PassesViewerAndRadius(t *testing.T) {
	var got usecase.NearbyInput
	uc := &fakeOfferUsecase{
		searchNearby: func(_ context.Context, input usecase.NearbyInput) ([]*domain.NearbyOffer, error) {
			got = input
			return []*domain.NearbyOffer{{Offer: sampleOffer(), DistanceKm: 0.12}}, nil
		},
	}
	w := httptest.NewRecorder()
	newOfferEngine(uc, testUserID).ServeHTTP(w,
		httptest.NewRequest(http.MethodGet, "/api/offers/nearby?lat=-33.4&lng=-70.6&radiusKm=1.5", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if got.Lat != -33.4 || got.Lng != -70.6 || got.RadiusKm != 1.5 || got.ViewerID != testUserID {
		t.Errorf("usecase input = %+v", got)
	}
	body := w.Body.String()
	if !strings.Contains(body, `"distance_km":0.12`) || !strings.Contains(body, `"requested_by_me":false`) {
		t.Errorf("body %q lacks search annotations", body)
	}
}

func TestNearby_UnparsableRadiusFallsBack(t *testing.T) {
	got := usecase.NearbyInput{RadiusKm: -1}
	uc := &fakeOfferUsecase{
		searchNearby: func(_ context.Context, input usecase.NearbyInput) ([]*domain.NearbyOffer, error) {
			got = input
			return nil, nil
		},
	}
	w := httptest.NewRecorder()
	newOfferEngine(uc, "").ServeHTTP(w,
		httptest.NewRequest(http.MethodGet, "/api/offers/nearby?lat=1&lng=1&radiusKm=wide", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if got.RadiusKm != 0 || got.ViewerID != "" {
		t.Errorf("usecase input = %+v, want zero radius and anonymous viewer", got)
	}
	if strings.TrimSpace(w.Body.String()) != "[]" {
		t.Errorf("body = %q, want []", w.Body.String())
	}
}

func TestNearby_RadiusTooLarge_Returns400(t *testing.T) {
	uc := &fakeOfferUsecase{
		searchNearby: func(_ context.Context, _ usecase.NearbyInput) ([]*domain.NearbyOffer, error) {
			return nil, domain.ErrValidation
		},
	}
	w := httptest.NewRecorder()
	newOfferEngine(uc, "").ServeHTTP(w,
		httptest.NewRequest(http.MethodGet, "/api/offers/nearby?lat=1&lng=1&radiusKm=500", nil))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

// ---- List / ListMine ----

func TestListOffers_HidesOwnerEmail(t *testing.T) {
	uc := &fakeOfferUsecase{
		listPublic: func(_ context.Context) ([]*domain.Offer, error) {
			return []*domain.Offer{sampleOffer()}, nil
		},
	}
	w := httptest.NewRecorder()
	newOfferEngine(uc, "").ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/offers", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"name":"Ana"`) {
		t.Errorf("body %q lacks owner name", w.Body.String())
	}
	if strings.Contains(w.Body.String(), "ana@example.com") {
		t.Errorf("body %q leaks the owner email", w.Body.String())
	}
}

func TestListMine_UsesCaller(t *testing.T) {
	var gotOwner string
	uc := &fakeOfferUsecase{
		listMine: func(_ context.Context, ownerID string) ([]*domain.Offer, error) {
			gotOwner = ownerID
			return []*domain.Offer{}, nil
		},
	}
	w := httptest.NewRecorder()
	newOfferEngine(uc, testUserID).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/offers/my", nil))

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if gotOwner != testUserID {
		t.Errorf("owner = %q, want %q", gotOwner, testUserID)
	}
}

// ---- Cancel ----

func TestCancelOffer_MalformedID_Returns404(t *testing.T) {
	w := httptest.NewRecorder()
	newOfferEngine(&fakeOfferUsecase{}, testUserID).ServeHTTP(w,
		httptest.NewRequest(http.MethodPatch, "/api/offers/not-a-uuid/cancel", nil))

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestCancelOffer_Errors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", domain.ErrOfferNotFound, http.StatusNotFound},
		{"not owner", domain.ErrNotOfferOwner, http.StatusForbidden},
		{"not active", domain.ErrOfferNotActive, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := &fakeOfferUsecase{
				cancel: func(_ context.Context, _, _ string) (*usecase.CancelOfferResult, error) {
					return nil, tt.err
				},
			}
			w := httptest.NewRecorder()
			newOfferEngine(uc, testUserID).ServeHTTP(w,
				httptest.NewRequest(http.MethodPatch, "/api/offers/"+testOfferID+"/cancel", nil))

			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestCancelOffer_Success_ReturnsOffer(t *testing.T) {
	uc := &fakeOfferUsecase{
		cancel: func(_ context.Context, ownerID, offerID string) (*usecase.CancelOfferResult, error) {
			if ownerID != testUserID || offerID != testOfferID {
				t.Errorf("cancel(%q, %q)", ownerID, offerID)
			}
			o := sampleOffer()
			o.Status = domain.OfferCancelled
			return &usecase.CancelOfferResult{Offer: o, CancelledRequests: 2}, nil
		},
	}
	w := httptest.NewRecorder()
	newOfferEngine(uc, testUserID).ServeHTTP(w,
		httptest.NewRequest(http.MethodPatch, "/api/offers/"+testOfferID+"/cancel", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"status":"cancelled"`) {
		t.Errorf("body %q lacks cancelled status", w.Body.String())
	}
}
