package ginserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	gin "github.com/gin-gonic/gin"

	"reservations/internal/app/commands"
	"reservations/internal/app/dto"
	"reservations/internal/app/engine"
	availabilityapp "reservations/internal/app/handlers/availability"
	bookingapp "reservations/internal/app/handlers/booking"
	pricingapp "reservations/internal/app/handlers/pricing"
	"reservations/internal/app/middleware"
	"reservations/internal/app/queries"
	domainlistings "reservations/internal/domain/listings"
	domainpricing "reservations/internal/domain/pricing"
	"reservations/internal/domain/shared/clock"
	"reservations/internal/domain/shared/money"
	"reservations/internal/infra/config"
	"reservations/internal/infra/obs"
	"reservations/internal/infra/storage/memory"
)

var testNow = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	ctx := context.Background()
	factory := memory.NewFactory()
	listing, err := domainlistings.NewListing(domainlistings.CreateListingParams{
		ID:               "lst-1",
		Host:             "host-1",
		Title:            "Loft",
		UnitType:         domainlistings.UnitHour,
		AvailabilityMode: domainlistings.AvailableByDefault,
		Currency:         "USD",
		Now:              testNow,
	})
	if err != nil {
		t.Fatalf("listing: %v", err)
	}
	if err := factory.ListingsRepo.Save(ctx, listing); err != nil {
		t.Fatalf("save listing: %v", err)
	}
	option, err := domainpricing.NewOption(domainpricing.NewOptionParams{
		ID: "opt-1", ListingID: listing.ID, UnitType: domainlistings.UnitHour,
		Duration: 1, Price: money.Must(8000, "USD"), IsDefault: true, Now: testNow,
	})
	if err != nil {
		t.Fatalf("option: %v", err)
	}
	if err := factory.PricingRepo.Save(ctx, option); err != nil {
		t.Fatalf("save option: %v", err)
	}

	eng := engine.New(clock.Fixed(testNow), nil)
	box := memory.NewOutbox()

	cmdBus := commands.NewInMemoryBus()
	commands.RegisterHandler[bookingapp.RequestBookingCommand, *bookingapp.RequestBookingResult](cmdBus, bookingapp.RequestBookingCommand{}.Key(),
		&bookingapp.RequestBookingHandler{UoWFactory: factory, Engine: eng, Outbox: box})
	qryBus := queries.NewInMemoryBus()
	queries.RegisterHandler[availabilityapp.CheckAvailabilityQuery, dto.Availability](qryBus, availabilityapp.CheckAvailabilityQuery{}.Key(),
		&availabilityapp.CheckAvailabilityHandler{UoWFactory: factory, Engine: eng})
	queries.RegisterHandler[pricingapp.EffectivePriceQuery, dto.EffectivePrice](qryBus, pricingapp.EffectivePriceQuery{}.Key(),
		&pricingapp.EffectivePriceHandler{UoWFactory: factory, Engine: eng})
	queries.RegisterHandler[bookingapp.ListGuestBookingsQuery, dto.GuestBookingCollection](qryBus, bookingapp.ListGuestBookingsQuery{}.Key(),
		&bookingapp.ListGuestBookingsHandler{UoWFactory: factory, Clock: clock.Fixed(testNow)})

	commandsWithMW := middleware.ChainCommands(cmdBus,
		middleware.Validation(),
		middleware.Idempotency(memory.NewIdempotencyStore(), nil),
		middleware.Transaction(factory, nil),
		middleware.OutboxFlush(box),
	)
	queriesWithMW := middleware.ChainQueries(qryBus, middleware.QueryValidation())

	h := Handlers{
		Booking:      BookingHandler{Commands: commandsWithMW, Queries: queriesWithMW},
		Availability: AvailabilityHandler{Queries: queriesWithMW},
		Listing:      ListingHandler{Queries: queriesWithMW},
	}
	return NewRouter(config.Config{Env: "test"}, obs.Middleware{}, obs.HealthHandlers{Ready: factory.Ping}, h)
}

func do(t *testing.T, r http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestAvailabilityEndpoint(t *testing.T) {
	r := newTestRouter(t)
	cases := []struct {
		name       string
		query      string
		wantStatus int
		wantAvail  bool
	}{
		{"explicit end", "start=2025-03-03T10:00:00Z&end=2025-03-03T12:00:00Z", http.StatusOK, true},
		{"booking period", "start=2025-03-03T10:00:00Z&booking_period=3&unit_type=hour", http.StatusOK, true},
		{"unit type mismatch", "start=2025-03-03T10:00:00Z&booking_period=1&unit_type=day", http.StatusBadRequest, false},
		{"inverted window", "start=2025-03-03T12:00:00Z&end=2025-03-03T10:00:00Z", http.StatusBadRequest, false},
		{"past start", "start=2025-02-01T10:00:00Z&end=2025-02-01T12:00:00Z", http.StatusBadRequest, false},
		{"missing end", "start=2025-03-03T10:00:00Z", http.StatusBadRequest, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, r, http.MethodGet, "/api/v1/listings/lst-1/availability?"+tc.query, nil, nil)
			if rec.Code != tc.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tc.wantStatus, rec.Code, rec.Body.String())
			}
			if rec.Code != http.StatusOK {
				return
			}
			var out dto.Availability
			if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if out.Available != tc.wantAvail {
				t.Fatalf("expected available=%v, got %+v", tc.wantAvail, out)
			}
		})
	}
}

func TestAvailabilityUnknownListing(t *testing.T) {
	r := newTestRouter(t)
	rec := do(t, r, http.MethodGet, "/api/v1/listings/missing/availability?start=2025-03-03T10:00:00Z&end=2025-03-03T11:00:00Z", nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	var body errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Code != "not_found" || body.Retryable {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestPriceEndpoint(t *testing.T) {
	r := newTestRouter(t)
	rec := do(t, r, http.MethodGet, "/api/v1/listings/lst-1/price?date=2025-03-03", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"80.00"`) || !strings.Contains(rec.Body.String(), `"base"`) {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

func TestCreateBookingThenConflict(t *testing.T) {
	r := newTestRouter(t)
	body := map[string]any{
		"listing_id": "lst-1",
		"guest_id":   "guest-1",
		"start":      "2025-03-03T10:00:00Z",
		"end":        "2025-03-03T12:00:00Z",
	}
	first := do(t, r, http.MethodPost, "/api/v1/bookings", body, map[string]string{"Idempotency-Key": "k-1"})
	if first.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", first.Code, first.Body.String())
	}
	var created bookingapp.RequestBookingResult
	if err := json.Unmarshal(first.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	replay := do(t, r, http.MethodPost, "/api/v1/bookings", body, map[string]string{"Idempotency-Key": "k-1"})
	if replay.Code != http.StatusCreated {
		t.Fatalf("replay expected 201, got %d", replay.Code)
	}
	var replayed bookingapp.RequestBookingResult
	if err := json.Unmarshal(replay.Body.Bytes(), &replayed); err != nil {
		t.Fatalf("decode replay: %v", err)
	}
	if replayed.BookingID != created.BookingID {
		t.Fatalf("replay created a new booking: %s vs %s", replayed.BookingID, created.BookingID)
	}

	body["guest_id"] = "guest-2"
	second := do(t, r, http.MethodPost, "/api/v1/bookings", body, nil)
	if second.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", second.Code)
	}
	var rej rejection
	if err := json.Unmarshal(second.Body.Bytes(), &rej); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rej.Retryable || rej.Reason != engine.ReasonConflict || len(rej.Conflicts) != 1 {
		t.Fatalf("unexpected rejection %+v", rej)
	}
}

func TestGuestBookings(t *testing.T) {
	r := newTestRouter(t)
	body := map[string]any{
		"listing_id": "lst-1",
		"guest_id":   "guest-7",
		"start":      "2025-03-03T10:00:00Z",
		"end":        "2025-03-03T12:00:00Z",
	}
	if rec := do(t, r, http.MethodPost, "/api/v1/bookings", body, nil); rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec := do(t, r, http.MethodGet, "/api/v1/guests/guest-7/bookings", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var out dto.GuestBookingCollection
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Items) != 1 || out.Items[0].ListingID != "lst-1" || !out.Items[0].Upcoming {
		t.Fatalf("unexpected guest bookings %+v", out.Items)
	}

	rec = do(t, r, http.MethodGet, "/api/v1/guests/nobody/bookings", nil, nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"items":[]`) {
		t.Fatalf("expected empty list, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestDocsCoverEveryRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := NewRouter(config.Config{Env: "test"}, obs.Middleware{}, obs.HealthHandlers{}, Handlers{
		Booking:      BookingHandler{},
		HostBooking:  HostBookingHandler{},
		Availability: AvailabilityHandler{},
		Listing:      ListingHandler{},
		HostListing:  HostListingHandler{},
	})

	rec := do(t, router, http.MethodGet, docsSpecPath, nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var doc struct {
		Paths map[string]map[string]json.RawMessage `json:"paths"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode openapi: %v", err)
	}
	documented := make(map[string]bool)
	for path, ops := range doc.Paths {
		ginPath := openAPIParam.ReplaceAllString(path, ":$1")
		for method := range ops {
			documented[strings.ToUpper(method)+" "+ginPath] = true
		}
	}
	for _, route := range router.Routes() {
		if !strings.HasPrefix(route.Path, "/api/") {
			continue
		}
		if !documented[route.Method+" "+route.Path] {
			t.Errorf("route %s %s missing from openapi.json", route.Method, route.Path)
		}
	}

	page := do(t, router, http.MethodGet, "/docs", nil, nil)
	if page.Code != http.StatusOK || !strings.Contains(page.Body.String(), docsSpecPath) {
		t.Fatalf("docs page should load %s, got %d", docsSpecPath, page.Code)
	}
}

var openAPIParam = regexp.MustCompile(`\{([A-Za-z]+)\}`)

func TestCreateBookingValidation(t *testing.T) {
	r := newTestRouter(t)
	rec := do(t, r, http.MethodPost, "/api/v1/bookings", map[string]any{
		"listing_id": "lst-1",
		"start":      "2025-03-03T10:00:00Z",
		"end":        "2025-03-03T12:00:00Z",
	}, nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for missing guest, got %d", rec.Code)
	}
}

type stubCounter struct {
	count int64
	err   error
}

func (s *stubCounter) Incr(context.Context, string, time.Duration) (int64, error) {
	s.count++
	return s.count, s.err
}

func TestRateLimiter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		name     string
		counter  *stubCounter
		failOpen bool
		want     []int
	}{
		{"over limit", &stubCounter{}, true, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}},
		{"redis down fail open", &stubCounter{err: errors.New("dial")}, true, []int{http.StatusOK}},
		{"redis down fail closed", &stubCounter{err: errors.New("dial")}, false, []int{http.StatusServiceUnavailable}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.Use(RateLimiter{Counter: tc.counter, Limit: 2, FailOpen: tc.failOpen}.Middleware())
			r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
			for i, want := range tc.want {
				rec := do(t, r, http.MethodGet, "/", nil, nil)
				if rec.Code != want {
					t.Fatalf("request %d: expected %d, got %d", i, want, rec.Code)
				}
			}
		})
	}
}

func TestStatusMapping(t *testing.T) {
	if got := statusFor(errors.New("boom")); got != http.StatusInternalServerError {
		t.Fatalf("unclassified error mapped to %d", got)
	}
	if got := statusFor(domainpricing.ErrPricingNotConfigured); got != http.StatusUnprocessableEntity {
		t.Fatalf("pricing not configured mapped to %d", got)
	}
}
