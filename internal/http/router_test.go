package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	httpH "github.com/yungbote/studysync-backend/internal/http/handlers"
	httpMW "github.com/yungbote/studysync-backend/internal/http/middleware"
	"github.com/yungbote/studysync-backend/internal/data/repos"
	"github.com/yungbote/studysync-backend/internal/data/repos/testutil"
	types "github.com/yungbote/studysync-backend/internal/domain"
	"github.com/yungbote/studysync-backend/internal/observability"
	"github.com/yungbote/studysync-backend/internal/realtime"
	"github.com/yungbote/studysync-backend/internal/services"
)

const testSecret = "test-secret"

type stack struct {
	engine      *gin.Engine
	hub         *realtime.SSEHub
	week        *types.Week
	leaderToken string
	viewerToken string
}

func newStack(t *testing.T) *stack {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.DB(t)
	log := testutil.Logger(t)
	ctx := context.Background()

	series := testutil.SeedSeries(t, ctx, db, "made-for-more", true)
	week := testutil.SeedWeek(t, ctx, db, series.ID, 1, testutil.TwoSectionOutline)
	leader := testutil.SeedLeader(t, ctx, db)
	viewer := testutil.SeedUser(t, ctx, db, "viewer@example.com", types.RoleViewer)

	userRepo := repos.NewUserRepo(db, log)
	weekRepo := repos.NewWeekRepo(db, log)
	hub := realtime.NewSSEHub(log)

	authService := services.NewAuthService(log, userRepo, testSecret, time.Hour)
	presentation := services.NewPresentationService(db, log, weekRepo, repos.NewPresentationStateRepo(db, log),
		services.NewPresentationBroadcaster(log, &services.HubEmitter{Hub: hub}))
	outlines := services.NewOutlineService(log, repos.NewSeriesRepo(db, log), weekRepo, presentation)

	engine := NewRouter(RouterConfig{
		Log:                 log,
		AuthHandler:         httpH.NewAuthHandler(authService),
		AuthMiddleware:      httpMW.NewAuthMiddleware(log, authService),
		UserHandler:         httpH.NewUserHandler(services.NewUserService(log, userRepo)),
		RealtimeHandler:     httpH.NewRealtimeHandler(log, hub, services.RealtimeConfig{AppKey: "app-key", Host: "0.0.0.0", Port: 8080}),
		SeriesHandler:       httpH.NewSeriesHandler(outlines),
		PresentationHandler: httpH.NewPresentationHandler(presentation),
		HealthHandler:       httpH.NewHealthHandler(),
	})

	leaderToken, _, err := authService.IssueToken(leader)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	viewerToken, _, err := authService.IssueToken(viewer)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return &stack{engine: engine, hub: hub, week: week, leaderToken: leaderToken, viewerToken: viewerToken}
}

func (s *stack) do(t *testing.T, method, path, token, body string, header ...string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var rdr *bytes.Reader
	if body != "" {
		rdr = bytes.NewReader([]byte(body))
	} else {
		rdr = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 && strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return rec, out
}

func (s *stack) presentation(action string) string {
	return "/api/weeks/" + s.week.ID.String() + "/presentation/" + action
}

func errorCode(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func TestHealthcheck(t *testing.T) {
	s := newStack(t)
	rec, _ := s.do(t, http.MethodGet, "/healthcheck", "", "")
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("unexpected healthcheck: %d %q", rec.Code, rec.Body.String())
	}
}

func TestPresentationNextReturnsCursor(t *testing.T) {
	s := newStack(t)

	rec, body := s.do(t, http.MethodPost, s.presentation("jump"), s.leaderToken, `{"section_index":0,"item_index":2}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("jump: status=%d body=%s", rec.Code, rec.Body.String())
	}

	rec, body = s.do(t, http.MethodPost, s.presentation("next"), s.leaderToken, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("next: status=%d body=%s", rec.Code, rec.Body.String())
	}
	if body["success"] != true {
		t.Fatalf("missing success flag: %v", body)
	}
	state := body["state"].(map[string]any)
	if state["sectionIndex"] != float64(1) || state["itemIndex"] != float64(0) {
		t.Fatalf("unexpected cursor: %v", state)
	}
	if _, ok := state["active"]; ok {
		t.Fatalf("cursor moves must not report active: %v", state)
	}
	if refs, ok := state["revealedRefs"].([]any); !ok || len(refs) != 0 {
		t.Fatalf("revealedRefs should be an empty list: %v", state["revealedRefs"])
	}
}

func TestPresentationMutationsRequireLeader(t *testing.T) {
	s := newStack(t)

	rec, body := s.do(t, http.MethodPost, s.presentation("next"), "", "")
	if rec.Code != http.StatusUnauthorized || errorCode(body) != "unauthorized" {
		t.Fatalf("anonymous: status=%d body=%v", rec.Code, body)
	}

	rec, body = s.do(t, http.MethodPost, s.presentation("next"), s.viewerToken, "")
	if rec.Code != http.StatusForbidden || errorCode(body) != "forbidden" {
		t.Fatalf("viewer: status=%d body=%v", rec.Code, body)
	}

	rec, body = s.do(t, http.MethodPost, s.presentation("next"), "not-a-jwt", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: status=%d body=%v", rec.Code, body)
	}
}

func TestPresentationValidationErrors(t *testing.T) {
	s := newStack(t)

	cases := []struct {
		name   string
		action string
		body   string
		status int
		code   string
	}{
		{"unparsable body", "jump", `{"section_index":`, http.StatusBadRequest, "invalid_request"},
		{"missing item", "jump", `{"section_index":0}`, http.StatusUnprocessableEntity, "validation_error"},
		{"negative index", "jump", `{"section_index":-1,"item_index":0}`, http.StatusUnprocessableEntity, "validation_error"},
		{"out of range", "jump", `{"section_index":9,"item_index":0}`, http.StatusUnprocessableEntity, "cursor_out_of_range"},
		{"negative prompt", "highlight", `{"prompt_index":-2}`, http.StatusUnprocessableEntity, "validation_error"},
		{"wrong type", "state", `{"is_active":"yes"}`, http.StatusUnprocessableEntity, "validation_error"},
		{"null cursor", "state", `{"section_index":null}`, http.StatusUnprocessableEntity, "validation_error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, body := s.do(t, http.MethodPost, s.presentation(tc.action), s.leaderToken, tc.body)
			if rec.Code != tc.status || errorCode(body) != tc.code {
				t.Fatalf("status=%d code=%q want %d %q", rec.Code, errorCode(body), tc.status, tc.code)
			}
		})
	}
}

func TestPresentationToggleAndHighlightShapes(t *testing.T) {
	s := newStack(t)

	rec, body := s.do(t, http.MethodPost, s.presentation("toggle-reveal"), s.leaderToken, `{"section_index":0,"item_index":2}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("toggle: status=%d body=%s", rec.Code, rec.Body.String())
	}
	refs := body["revealedRefs"].([]any)
	if len(refs) != 1 || refs[0] != "0-2" {
		t.Fatalf("unexpected refs: %v", refs)
	}

	rec, body = s.do(t, http.MethodPost, s.presentation("highlight"), s.leaderToken, `{"prompt_index":1}`)
	if rec.Code != http.StatusOK || body["highlightedPromptIndex"] != float64(1) {
		t.Fatalf("highlight: status=%d body=%v", rec.Code, body)
	}

	rec, body = s.do(t, http.MethodPost, s.presentation("highlight"), s.leaderToken, `{"prompt_index":null}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("clear highlight: status=%d", rec.Code)
	}
	if v, ok := body["highlightedPromptIndex"]; !ok || v != nil {
		t.Fatalf("highlight should be null: %v", body)
	}
}

func TestPresentationUpdateStateKeepsAbsentFields(t *testing.T) {
	s := newStack(t)

	rec, _ := s.do(t, http.MethodPost, s.presentation("highlight"), s.leaderToken, `{"prompt_index":0}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("highlight: status=%d", rec.Code)
	}

	rec, body := s.do(t, http.MethodPost, s.presentation("state"), s.leaderToken, `{"is_active":true,"revealed_refs":["1-0","0-3"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("state: status=%d body=%s", rec.Code, rec.Body.String())
	}
	state := body["state"].(map[string]any)
	if state["active"] != true || state["highlightedPromptIndex"] != float64(0) {
		t.Fatalf("unexpected state: %v", state)
	}
	if refs := state["revealedRefs"].([]any); len(refs) != 2 || refs[0] != "1-0" {
		t.Fatalf("refs should keep request order: %v", refs)
	}

	rec, body = s.do(t, http.MethodPost, s.presentation("state"), s.leaderToken, `{"highlighted_prompt_index":null}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("state: status=%d", rec.Code)
	}
	state = body["state"].(map[string]any)
	if state["highlightedPromptIndex"] != nil || state["active"] != true {
		t.Fatalf("null should clear only the highlight: %v", state)
	}

	rec, body = s.do(t, http.MethodGet, s.presentation("state"), "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get state: status=%d", rec.Code)
	}
	if got := body["state"].(map[string]any); got["active"] != true {
		t.Fatalf("public read disagrees with last write: %v", got)
	}
}

func TestPresentationUnknownWeek(t *testing.T) {
	s := newStack(t)

	rec, body := s.do(t, http.MethodGet, "/api/weeks/not-a-uuid/presentation/state", "", "")
	if rec.Code != http.StatusNotFound || errorCode(body) != "not_found" {
		t.Fatalf("bad id: status=%d body=%v", rec.Code, body)
	}
	rec, body = s.do(t, http.MethodPost, "/api/weeks/6f1c1b8e-7c4e-4a43-9d7b-0c2d5d8f1e11/presentation/next", s.leaderToken, "")
	if rec.Code != http.StatusNotFound || errorCode(body) != "not_found" {
		t.Fatalf("missing week: status=%d body=%v", rec.Code, body)
	}
}

func TestSeriesReadViews(t *testing.T) {
	s := newStack(t)

	rec, body := s.do(t, http.MethodGet, "/api/series", "", "")
	if rec.Code != http.StatusOK || len(body["series"].([]any)) != 1 {
		t.Fatalf("list: status=%d body=%v", rec.Code, body)
	}

	rec, body = s.do(t, http.MethodGet, "/api/series/made-for-more/weeks/1", "", "")
	if rec.Code != http.StatusOK || body["view"] != "participant" {
		t.Fatalf("week: status=%d body=%v", rec.Code, body)
	}
	if items := body["sections"].([]any)[0].(map[string]any)["content"].([]any); len(items) != 3 {
		t.Fatalf("participant view should drop leader notes: %v", items)
	}

	rec, body = s.do(t, http.MethodGet, "/api/series/made-for-more/weeks/1/present", "", "")
	if rec.Code != http.StatusOK || body["state"] == nil {
		t.Fatalf("present: status=%d body=%v", rec.Code, body)
	}

	rec, _ = s.do(t, http.MethodGet, "/api/series/made-for-more/weeks/1/control", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("control without token: status=%d", rec.Code)
	}
	rec, body = s.do(t, http.MethodGet, "/api/series/made-for-more/weeks/1/control", s.leaderToken, "")
	if rec.Code != http.StatusOK || body["view"] != "full" || body["total_weeks"] != float64(1) {
		t.Fatalf("control: status=%d body=%v", rec.Code, body)
	}

	rec, _ = s.do(t, http.MethodGet, "/api/series/made-for-more/weeks/x", "", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("bad week number: status=%d", rec.Code)
	}
}

func TestMeRequiresToken(t *testing.T) {
	s := newStack(t)

	rec, _ := s.do(t, http.MethodGet, "/api/me", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status=%d", rec.Code)
	}
	rec, body := s.do(t, http.MethodGet, "/api/me", s.viewerToken, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	me := body["me"].(map[string]any)
	if me["email"] != "viewer@example.com" || me["role"] != "viewer" {
		t.Fatalf("unexpected me: %v", me)
	}
	if _, leaked := me["password"]; leaked {
		t.Fatalf("password must not be serialised")
	}
}

func TestRealtimeConfigReflectsRequestHost(t *testing.T) {
	s := newStack(t)

	req := httptest.NewRequest(http.MethodGet, "/api/realtime/config", nil)
	req.Host = "study.example.org:443"
	req.Header.Set("X-Forwarded-Proto", "https, http")
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)

	var meta services.RealtimeMetadata
	if err := json.Unmarshal(rec.Body.Bytes(), &meta); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := services.RealtimeMetadata{Key: "app-key", Host: "study.example.org", Port: 8080, Scheme: "https"}
	if meta != want {
		t.Fatalf("metadata: got=%+v want=%+v", meta, want)
	}
}

func TestRealtimeRejectsBadKeyAndPrivateChannels(t *testing.T) {
	s := newStack(t)

	rec, body := s.do(t, http.MethodGet, "/api/realtime/ws?key=wrong", "", "")
	if rec.Code != http.StatusUnauthorized || errorCode(body) != "invalid_app_key" {
		t.Fatalf("ws key: status=%d body=%v", rec.Code, body)
	}
	rec, _ = s.do(t, http.MethodGet, "/api/realtime/ws?key=app-key&channel=private.x", "", "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("ws channel: status=%d", rec.Code)
	}
	rec, _ = s.do(t, http.MethodGet, "/api/realtime/sse", "", "")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("sse without channel: status=%d", rec.Code)
	}
}

func TestLeaderMutationReachesViewerSocketButNotItsOwn(t *testing.T) {
	s := newStack(t)
	srv := httptest.NewServer(s.engine)
	defer srv.Close()

	channel := realtime.PresentationChannel(s.week.ID)
	dial := func() (*websocket.Conn, string) {
		url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/realtime/ws?key=app-key&channel=" + channel
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		if err != nil {
			t.Fatalf("dial: %v", err)
		}
		_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
		var hello struct {
			Event realtime.SSEEvent `json:"event"`
			Data  struct {
				SocketID string `json:"socket_id"`
			} `json:"data"`
		}
		if err := conn.ReadJSON(&hello); err != nil || hello.Event != realtime.SSEEventConnectionEstablished {
			t.Fatalf("hello: %+v err=%v", hello, err)
		}
		var ack realtime.Frame
		if err := conn.ReadJSON(&ack); err != nil || ack.Event != realtime.SSEEventSubscribed {
			t.Fatalf("ack: %+v err=%v", ack, err)
		}
		return conn, hello.Data.SocketID
	}

	leaderConn, leaderSocket := dial()
	defer leaderConn.Close()
	viewerConn, _ := dial()
	defer viewerConn.Close()

	rec, _ := s.do(t, http.MethodPost, s.presentation("next"), s.leaderToken, "", httpMW.HeaderSocketID, leaderSocket)
	if rec.Code != http.StatusOK {
		t.Fatalf("next: status=%d", rec.Code)
	}

	var got struct {
		Channel string            `json:"channel"`
		Event   realtime.SSEEvent `json:"event"`
		Data    struct {
			Action string         `json:"action"`
			State  map[string]any `json:"state"`
		} `json:"data"`
	}
	if err := viewerConn.ReadJSON(&got); err != nil {
		t.Fatalf("viewer read: %v", err)
	}
	if got.Channel != channel || got.Event != realtime.SSEEventStateUpdated || got.Data.Action != "next" {
		t.Fatalf("unexpected frame: %+v", got)
	}
	if got.Data.State["itemIndex"] != float64(1) || got.Data.State["active"] != false {
		t.Fatalf("broadcast should carry the full state: %v", got.Data.State)
	}

	_ = leaderConn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	var echo realtime.Frame
	if err := leaderConn.ReadJSON(&echo); err == nil {
		t.Fatalf("leader socket should be excluded, got %+v", echo)
	}
}

func TestMetricsEndpointCountsRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := observability.NewMetrics()
	engine := NewRouter(RouterConfig{Metrics: m, HealthHandler: httpH.NewHealthHandler()})

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthcheck", nil))
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	want := `ss_api_requests_total{method="GET",route="/healthcheck",status="200"} 2`
	if !strings.Contains(rec.Body.String(), want) {
		t.Fatalf("missing %q in:\n%s", want, rec.Body.String())
	}
}

func TestReadyzReportsFailingProbes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ok := httpH.ReadinessCheck{Name: "database", Probe: func(context.Context) error { return nil }}
	down := httpH.ReadinessCheck{Name: "redis", Probe: func(context.Context) error { return context.DeadlineExceeded }}

	engine := NewRouter(RouterConfig{HealthHandler: httpH.NewHealthHandler(ok)})
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("ready: status %d body %s", rec.Code, rec.Body.String())
	}

	engine = NewRouter(RouterConfig{HealthHandler: httpH.NewHealthHandler(ok, down)})
	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("unready: status %d", rec.Code)
	}
	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Status != "unavailable" || body.Checks["database"] != "ok" || body.Checks["redis"] == "ok" {
		t.Fatalf("unexpected body %+v", body)
	}
}
