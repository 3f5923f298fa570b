package router_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"service-dispatch/internal/auth"
	"service-dispatch/internal/dispatch"
	"service-dispatch/internal/fanout"
	"service-dispatch/internal/gateway/profiles"
	"service-dispatch/internal/http/handlers"
	obs "service-dispatch/internal/http/middleware"
	"service-dispatch/internal/http/middleware/ratelimit"
	"service-dispatch/internal/http/router"
	"service-dispatch/internal/metrics"
	"service-dispatch/internal/repository/memory"
	"service-dispatch/internal/service/bidding"
)

const testSecret = "router-test-secret"

// RouterSuite drives the full HTTP surface over the in-memory store.
type RouterSuite struct {
	suite.Suite
	srv      *httptest.Server
	verifier *auth.Verifier
	hub      *fanout.Hub
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	store := memory.NewStore()
	deliveries := memory.NewDeliveryRepo(store)
	hub := fanout.NewHub(8, nil, nil)
	s.hub = hub
	s.T().Cleanup(hub.Close)
	svc := bidding.NewService(
		deliveries,
		memory.NewBidRepo(store),
		dispatch.New(deliveries, nil),
		hub,
		nil,
		nil,
		bidding.Config{Metrics: metrics.NewDispatch()},
	)
	s.verifier = auth.NewVerifier(testSecret, "")

	reg := prometheus.NewRegistry()
	httpMetrics := obs.NewHTTPMetrics()
	for _, c := range httpMetrics.Collectors() {
		reg.MustRegister(c)
	}

	h := router.New(router.Handlers{
		Base:       handlers.New(nil),
		Deliveries: handlers.NewDeliveryHandler(nil, svc),
		Bids:       handlers.NewBidHandler(nil, svc, profiles.NewDirectory(nil)),
		Events:     handlers.NewEventsHandler(nil, hub),
	}, router.Options{
		Verifier:    s.verifier,
		HTTPMetrics: httpMetrics,
		RateLimit:   ratelimit.New(nil, nil, ratelimit.NewTokenBucket(ratelimit.Config{Rate: 1000, Burst: 1000}, nil)).Handler(),
		Metrics:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})
	s.srv = httptest.NewServer(h)
	s.T().Cleanup(s.srv.Close)
}

func (s *RouterSuite) token(userID string, role auth.Role) string {
	tok, err := s.verifier.Issue(auth.Principal{UserID: userID, Role: role}, time.Hour)
	s.Require().NoError(err)
	return tok
}

func (s *RouterSuite) do(method, path, token, body string) (*http.Response, map[string]any) {
	var req *http.Request
	var err error
	if body == "" {
		req, err = http.NewRequest(method, s.srv.URL+path, nil)
	} else {
		req, err = http.NewRequest(method, s.srv.URL+path, strings.NewReader(body))
	}
	s.Require().NoError(err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	var out map[string]any
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		var raw any
		if err := json.NewDecoder(resp.Body).Decode(&raw); err == nil {
			if m, ok := raw.(map[string]any); ok {
				out = m
			} else {
				out = map[string]any{"list": raw}
			}
		}
	}
	return resp, out
}

const deliveryBody = `{
	"pickup_address":"1 Broad St","pickup_location":{"lat":6.45,"lng":3.39},
	"dropoff_address":"9 Awolowo Rd","dropoff_location":{"lat":6.44,"lng":3.42},
	"package_description":"documents","vehicle_type":"bike","offer_price":"20.00"
}`

func (s *RouterSuite) TestPublicEndpoints() {
	resp, body := s.do(http.MethodGet, "/ping", "", "")
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal("pong", body["message"])

	resp, _ = s.do(http.MethodHead, "/healthcheck", "", "")
	s.Equal(http.StatusNoContent, resp.StatusCode)

	resp, _ = s.do(http.MethodGet, "/metrics", "", "")
	s.Equal(http.StatusOK, resp.StatusCode)

	resp, body = s.do(http.MethodGet, "/nope", "", "")
	s.Equal(http.StatusNotFound, resp.StatusCode)
	s.Equal("route not found", body["error"])
}

func (s *RouterSuite) TestAuthRequired() {
	resp, _ := s.do(http.MethodGet, "/deliveries/available", "", "")
	s.Equal(http.StatusUnauthorized, resp.StatusCode)

	resp, _ = s.do(http.MethodGet, "/deliveries/available", "garbage", "")
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *RouterSuite) TestRoleChecks() {
	resp, _ := s.do(http.MethodPost, "/deliveries", s.token("drv-1", auth.RoleDriver), deliveryBody)
	s.Equal(http.StatusForbidden, resp.StatusCode)

	resp, _ = s.do(http.MethodPost, "/bids", s.token("cust-1", auth.RoleCustomer), `{}`)
	s.Equal(http.StatusForbidden, resp.StatusCode)
}

func (s *RouterSuite) TestBiddingFlow() {
	cust := s.token("cust-1", auth.RoleCustomer)
	drvA := s.token("drv-a", auth.RoleDriver)
	drvB := s.token("drv-b", auth.RoleDriver)

	resp, created := s.do(http.MethodPost, "/deliveries", cust, deliveryBody)
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	deliveryID := created["id"].(string)
	s.Equal("pending", created["status"])

	resp, avail := s.do(http.MethodGet, "/deliveries/available", drvA, "")
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Len(avail["list"], 1)

	resp, bidA := s.do(http.MethodPost, "/bids", drvA, `{"delivery_id":"`+deliveryID+`","amount":"18.00"}`)
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	resp, _ = s.do(http.MethodPost, "/bids", drvB, `{"delivery_id":"`+deliveryID+`","amount":"15.50"}`)
	s.Require().Equal(http.StatusCreated, resp.StatusCode)

	resp, bids := s.do(http.MethodGet, "/deliveries/"+deliveryID+"/bids", cust, "")
	s.Equal(http.StatusOK, resp.StatusCode)
	list := bids["list"].([]any)
	s.Require().Len(list, 2)
	s.Equal("15.5", list[0].(map[string]any)["amount"])

	resp, _ = s.do(http.MethodPost, "/bids/"+bidA["id"].(string)+"/accept", s.token("cust-2", auth.RoleCustomer), "")
	s.Equal(http.StatusForbidden, resp.StatusCode)

	resp, accepted := s.do(http.MethodPost, "/bids/"+bidA["id"].(string)+"/accept", cust, "")
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Equal("accepted", accepted["delivery"].(map[string]any)["status"])
	s.Equal("drv-a", accepted["delivery"].(map[string]any)["driver_id"])

	resp, body := s.do(http.MethodPost, "/bids/"+bidA["id"].(string)+"/accept", cust, "")
	s.Equal(http.StatusConflict, resp.StatusCode)
	s.Equal("delivery no longer available", body["error"])

	resp, body = s.do(http.MethodPost, "/bids", drvB, `{"delivery_id":"`+deliveryID+`","amount":"10"}`)
	s.Equal(http.StatusConflict, resp.StatusCode)
	s.Equal("bidding closed", body["error"])

	resp, _ = s.do(http.MethodPost, "/deliveries/"+deliveryID+"/start", drvB, "")
	s.Equal(http.StatusForbidden, resp.StatusCode)

	resp, started := s.do(http.MethodPost, "/deliveries/"+deliveryID+"/start", drvA, "")
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal("in_progress", started["status"])

	resp, done := s.do(http.MethodPost, "/deliveries/"+deliveryID+"/complete", drvA, "")
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal("completed", done["status"])

	resp, _ = s.do(http.MethodPost, "/deliveries/"+deliveryID+"/cancel", cust, "")
	s.Equal(http.StatusConflict, resp.StatusCode)

	resp, mine := s.do(http.MethodGet, "/deliveries/mine", cust, "")
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Len(mine["list"], 1)
}

func (s *RouterSuite) dial(query string, header http.Header) (*websocket.Conn, *http.Response, error) {
	url := "ws" + strings.TrimPrefix(s.srv.URL, "http") + "/ws" + query
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if conn != nil {
		s.T().Cleanup(func() { _ = conn.Close() })
	}
	return conn, resp, err
}

func (s *RouterSuite) readEvent(conn *websocket.Conn) map[string]any {
	s.Require().NoError(conn.SetReadDeadline(time.Now().Add(2 * time.Second)))
	var got map[string]any
	s.Require().NoError(conn.ReadJSON(&got))
	return got
}

func (s *RouterSuite) TestEventsSubscription() {
	cust := s.token("cust-1", auth.RoleCustomer)

	driverConn, resp, err := s.dial("", http.Header{"Authorization": {"Bearer " + s.token("drv-a", auth.RoleDriver)}})
	s.Require().NoError(err)
	s.Equal(http.StatusSwitchingProtocols, resp.StatusCode)
	watcher, _, err := s.dial("?access_token="+s.token("drv-w", auth.RoleDriver), nil)
	s.Require().NoError(err)
	s.Require().Eventually(func() bool {
		return s.hub.Subscribers(fanout.TopicDrivers) == 2
	}, 2*time.Second, 5*time.Millisecond)

	resp, created := s.do(http.MethodPost, "/deliveries", cust, deliveryBody)
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	deliveryID := created["id"].(string)

	got := s.readEvent(driverConn)
	s.Equal("new_delivery_request", got["type"])
	s.Equal(deliveryID, got["delivery_id"])
	s.Equal("new_delivery_request", s.readEvent(watcher)["type"])

	s.Require().NoError(watcher.WriteJSON(map[string]string{"action": "join", "delivery_id": deliveryID}))
	s.Require().Eventually(func() bool {
		return s.hub.Subscribers("delivery:"+deliveryID) == 1
	}, 2*time.Second, 5*time.Millisecond)

	resp, _ = s.do(http.MethodPost, "/bids", s.token("drv-a", auth.RoleDriver), `{"delivery_id":"`+deliveryID+`","amount":"18.00"}`)
	s.Require().Equal(http.StatusCreated, resp.StatusCode)

	got = s.readEvent(watcher)
	s.Equal("new_bid", got["type"])
	s.Equal(deliveryID, got["delivery_id"])
}

func (s *RouterSuite) TestEventsSubscription_RequiresToken() {
	_, resp, err := s.dial("", nil)
	s.Require().ErrorIs(err, websocket.ErrBadHandshake)
	s.Equal(http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = s.dial("?access_token=garbage", nil)
	s.Require().ErrorIs(err, websocket.ErrBadHandshake)
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *RouterSuite) TestUnknownDelivery() {
	resp, body := s.do(http.MethodGet, "/deliveries/00000000-0000-0000-0000-000000000001/bids", s.token("c", auth.RoleCustomer), "")
	s.Equal(http.StatusNotFound, resp.StatusCode)
	s.Equal("delivery not found", body["error"])
}

func TestNew_RateLimitAppliesPerUser(t *testing.T) {
	t.Parallel()

	verifier := auth.NewVerifier(testSecret, "")
	limiter := ratelimit.NewTokenBucket(ratelimit.Config{Rate: 0.001, Burst: 1}, nil)
	base := handlers.New(nil)
	store := memory.NewStore()
	deliveries := memory.NewDeliveryRepo(store)
	svc := bidding.NewService(deliveries, memory.NewBidRepo(store), dispatch.New(deliveries, nil), fanout.NewHub(1, nil, nil), nil, nil, bidding.Config{})

	h := router.New(router.Handlers{
		Base:       base,
		Deliveries: handlers.NewDeliveryHandler(nil, svc),
		Bids:       handlers.NewBidHandler(nil, svc, profiles.NewDirectory(nil)),
		Events:     handlers.NewEventsHandler(nil, fanout.NewHub(1, nil, nil)),
	}, router.Options{
		Verifier:  verifier,
		RateLimit: ratelimit.New(nil, nil, limiter).Handler(),
	})

	call := func(user string) int {
		tok, err := verifier.Issue(auth.Principal{UserID: user, Role: auth.RoleDriver}, time.Hour)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/deliveries/available", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr.Code
	}

	require.Equal(t, http.StatusOK, call("u1"))
	require.Equal(t, http.StatusTooManyRequests, call("u1"))
	require.Equal(t, http.StatusOK, call("u2"))
}
