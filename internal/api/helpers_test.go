package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"testing"
	"time"

	"wardrobe/internal/clock"
	"wardrobe/internal/config"
	"wardrobe/internal/database"
	"wardrobe/internal/domain"
	"wardrobe/internal/events"
	"wardrobe/internal/export"
	"wardrobe/internal/models"
	"wardrobe/internal/repository"
	"wardrobe/internal/service"
	"wardrobe/internal/storage"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)

var (
	testRenter     = domain.Renter{ID: 101}
	otherRenter    = domain.Renter{ID: 102}
	testOwner      = domain.Owner{ID: 201}
	testArbitrator = domain.Arbitrator{ID: 901}
)

type testEnv struct {
	db          *database.DB
	bus         *events.EventBus
	clock       *clock.Manual
	items       *service.ItemService
	bookings    *service.BookingService
	returns     *service.ReturnService
	inspections *service.InspectionService
	tokens      *TokenManager
	hub         *Hub
	server      *HTTPServer
	ts          *httptest.Server
}

func newTestEnv(t *testing.T, mutate ...func(*config.APIConfig)) *testEnv {
	t.Helper()
	logger := zerolog.New(io.Discard)

	db, err := database.NewDB(filepath.Join(t.TempDir(), "wardrobe.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	clk := clock.NewManual(testNow)
	bus := events.NewEventBus()
	env := &testEnv{
		db:          db,
		bus:         bus,
		clock:       clk,
		items:       service.NewItemService(db, &logger),
		bookings:    service.NewBookingService(db, bus, nil, &logger, service.WithClock(clk)),
		returns:     service.NewReturnService(db, bus, nil, &logger, service.WithClock(clk)),
		inspections: service.NewInspectionService(db, bus, nil, &logger, service.WithClock(clk)),
	}

	env.tokens, err = NewTokenManager(config.JWTConfig{Secret: "test-secret", Issuer: "wardrobe-test", TTLHours: 1})
	require.NoError(t, err)

	uploads := t.TempDir()
	photos, err := storage.NewLocalStore(uploads, models.DefaultPhotoPrefix, models.MaxPhotoSize, &logger)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	env.hub = NewHub(&logger)
	env.hub.Subscribe(bus)
	go env.hub.Run(ctx)

	cfg := config.APIConfig{
		Enabled: true,
		HTTP:    config.APIHTTPConfig{Enabled: true, Port: 0},
	}
	for _, m := range mutate {
		m(&cfg)
	}

	env.server = NewHTTPServer(&cfg, Services{
		Items:         env.items,
		Bookings:      env.bookings,
		Returns:       env.returns,
		Inspections:   env.inspections,
		Photos:        photos,
		Reports:       export.NewReporter(env.bookings, env.returns, t.TempDir(), clk, &logger),
		State:         repository.NewMemoryRequestStateRepository(),
		Tokens:        env.tokens,
		Hub:           env.hub,
		Ready:         db,
		UploadsDir:    uploads,
		UploadsPrefix: models.DefaultPhotoPrefix,
	}, &logger)

	env.ts = httptest.NewServer(env.server.Handler())
	t.Cleanup(env.ts.Close)
	return env
}

func (e *testEnv) token(t *testing.T, p domain.Principal) string {
	t.Helper()
	token, err := e.tokens.Issue(p)
	require.NoError(t, err)
	return token
}

func (e *testEnv) seedItem(t *testing.T, name string) *models.Item {
	t.Helper()
	item, err := e.items.CreateItem(context.Background(), testOwner, &models.Item{Name: name, Size: "M", PricePerDay: 40})
	require.NoError(t, err)
	return item
}

type apiResponse struct {
	status int
	header http.Header
	body   []byte
}

func (r apiResponse) decode(t *testing.T, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(r.body, dst), string(r.body))
}

func (r apiResponse) errorCode(t *testing.T) string {
	t.Helper()
	var body errorBody
	r.decode(t, &body)
	return body.Error.Code
}

func (e *testEnv) send(t *testing.T, req *http.Request) apiResponse {
	t.Helper()
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return apiResponse{status: resp.StatusCode, header: resp.Header, body: body}
}

func (e *testEnv) newRequest(t *testing.T, method, path string, p domain.Principal, body io.Reader) *http.Request {
	t.Helper()
	req, err := http.NewRequest(method, e.ts.URL+path, body)
	require.NoError(t, err)
	if p != nil {
		req.Header.Set("Authorization", "Bearer "+e.token(t, p))
	}
	return req
}

func (e *testEnv) doJSON(t *testing.T, method, path string, p domain.Principal, payload any) apiResponse {
	t.Helper()
	var body io.Reader = http.NoBody
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	req := e.newRequest(t, method, path, p, body)
	req.Header.Set("Content-Type", "application/json")
	return e.send(t, req)
}

type upload struct {
	field       string
	name        string
	contentType string
	data        []byte
}

func photo(field, name string) upload {
	return upload{field: field, name: name, contentType: "image/jpeg", data: []byte("\xff\xd8\xff fake jpeg")}
}

func (e *testEnv) doMultipart(t *testing.T, path string, p domain.Principal, fields map[string]string, files ...upload) apiResponse {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, f.field, f.name))
		h.Set("Content-Type", f.contentType)
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := e.newRequest(t, http.MethodPost, path, p, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return e.send(t, req)
}

func (e *testEnv) createBooking(t *testing.T, renter domain.Renter, itemID int64) *models.Booking {
	t.Helper()
	resp := e.doJSON(t, http.MethodPost, "/api/v1/bookings", renter, map[string]any{
		"itemId":    itemID,
		"startDate": "2026-05-11",
		"endDate":   "2026-05-14",
	})
	require.Equal(t, http.StatusCreated, resp.status, string(resp.body))
	var booking models.Booking
	resp.decode(t, &booking)
	return &booking
}

func (e *testEnv) initiateReturn(t *testing.T, renter domain.Renter, bookingID int64) *models.Return {
	t.Helper()
	resp := e.doMultipart(t, "/api/v1/returns", renter, map[string]string{
		"bookingId": fmt.Sprint(bookingID),
		"condition": "good",
		"comments":  "worn once",
	}, photo("photos", "front.jpg"))
	require.Equal(t, http.StatusCreated, resp.status, string(resp.body))
	var ret models.Return
	resp.decode(t, &ret)
	return &ret
}
