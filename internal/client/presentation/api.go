package presentation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/studysync-backend/internal/client/connection"
	"github.com/yungbote/studysync-backend/internal/domain/outline"
	"github.com/yungbote/studysync-backend/internal/navigation"
)

// HeaderSocketID tells the server which socket to leave out of the
// broadcast caused by a request.
const HeaderSocketID = "X-Socket-Id"

// APIError is a non-2xx response decoded from the error envelope.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("http %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("http %d %s: %s", e.Status, e.Code, e.Message)
}

// API is the request/response side of the presentation endpoints.
type API struct {
	baseURL *url.URL
	token   string
	http    *http.Client
}

func NewAPI(baseURL string, token string) (*API, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}
	return &API{baseURL: u, token: token, http: &http.Client{Timeout: 15 * time.Second}}, nil
}

// Origin is the base URL, used as the last configuration source for the
// broadcast transport.
func (a *API) Origin() *url.URL {
	u := *a.baseURL
	return &u
}

func (a *API) SetToken(token string) { a.token = token }

// WeekScreen is what a screen loads before subscribing.
type WeekScreen struct {
	Series struct {
		Slug  string `json:"slug"`
		Title string `json:"title"`
	} `json:"series"`
	Week struct {
		ID         uuid.UUID `json:"id"`
		WeekNumber int       `json:"week_number"`
		Title      string    `json:"title"`
	} `json:"week"`
	View       outline.View     `json:"view"`
	Sections   outline.Outline  `json:"sections"`
	State      navigation.State `json:"state"`
	TotalWeeks int64            `json:"total_weeks,omitempty"`
}

func (a *API) Login(ctx context.Context, email, password string) (string, error) {
	var out struct {
		AccessToken string `json:"access_token"`
	}
	body := map[string]string{"email": email, "password": password}
	if err := a.do(ctx, http.MethodPost, "/api/login", "", body, &out); err != nil {
		return "", err
	}
	return out.AccessToken, nil
}

func (a *API) RealtimeConfig(ctx context.Context) (*connection.Settings, error) {
	var out connection.Settings
	if err := a.do(ctx, http.MethodGet, "/api/realtime/config", "", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Present loads the participant screen of a week.
func (a *API) Present(ctx context.Context, slug string, number int) (*WeekScreen, error) {
	return a.screen(ctx, slug, number, "/present")
}

// Control loads the leader console of a week.
func (a *API) Control(ctx context.Context, slug string, number int) (*WeekScreen, error) {
	return a.screen(ctx, slug, number, "/control")
}

func (a *API) screen(ctx context.Context, slug string, number int, suffix string) (*WeekScreen, error) {
	var out WeekScreen
	path := "/api/series/" + url.PathEscape(slug) + "/weeks/" + strconv.Itoa(number) + suffix
	if err := a.do(ctx, http.MethodGet, path, "", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *API) State(ctx context.Context, weekID uuid.UUID) (navigation.State, error) {
	var out struct {
		State navigation.State `json:"state"`
	}
	if err := a.do(ctx, http.MethodGet, statePath(weekID, "state"), "", nil, &out); err != nil {
		return navigation.State{}, err
	}
	return out.State, nil
}

func (a *API) Next(ctx context.Context, weekID uuid.UUID, socketID string) (navigation.Cursor, error) {
	return a.cursor(ctx, weekID, "next", socketID, nil)
}

func (a *API) Previous(ctx context.Context, weekID uuid.UUID, socketID string) (navigation.Cursor, error) {
	return a.cursor(ctx, weekID, "previous", socketID, nil)
}

func (a *API) Jump(ctx context.Context, weekID uuid.UUID, socketID string, section, item int) (navigation.Cursor, error) {
	return a.cursor(ctx, weekID, "jump", socketID, indexBody(section, item))
}

func (a *API) ToggleReveal(ctx context.Context, weekID uuid.UUID, socketID string, section, item int) ([]navigation.RevealKey, error) {
	var out struct {
		RevealedRefs []navigation.RevealKey `json:"revealedRefs"`
	}
	if err := a.do(ctx, http.MethodPost, statePath(weekID, "toggle-reveal"), socketID, indexBody(section, item), &out); err != nil {
		return nil, err
	}
	if out.RevealedRefs == nil {
		out.RevealedRefs = []navigation.RevealKey{}
	}
	return out.RevealedRefs, nil
}

func (a *API) Highlight(ctx context.Context, weekID uuid.UUID, socketID string, prompt *int) (*int, error) {
	var out struct {
		HighlightedPromptIndex *int `json:"highlightedPromptIndex"`
	}
	body := map[string]*int{"prompt_index": prompt}
	if err := a.do(ctx, http.MethodPost, statePath(weekID, "highlight"), socketID, body, &out); err != nil {
		return nil, err
	}
	return out.HighlightedPromptIndex, nil
}

// UpdateState sends only the fields set in f.
func (a *API) UpdateState(ctx context.Context, weekID uuid.UUID, socketID string, f navigation.SetFields) (navigation.State, error) {
	var out struct {
		State navigation.State `json:"state"`
	}
	if err := a.do(ctx, http.MethodPost, statePath(weekID, "state"), socketID, fieldsBody(f), &out); err != nil {
		return navigation.State{}, err
	}
	return out.State, nil
}

func (a *API) cursor(ctx context.Context, weekID uuid.UUID, action, socketID string, body any) (navigation.Cursor, error) {
	var out struct {
		State navigation.Cursor `json:"state"`
	}
	if err := a.do(ctx, http.MethodPost, statePath(weekID, action), socketID, body, &out); err != nil {
		return navigation.Cursor{}, err
	}
	return out.State, nil
}

func statePath(weekID uuid.UUID, action string) string {
	return "/api/weeks/" + weekID.String() + "/presentation/" + action
}

func indexBody(section, item int) map[string]int {
	return map[string]int{"section_index": section, "item_index": item}
}

func fieldsBody(f navigation.SetFields) map[string]any {
	out := map[string]any{}
	if f.SectionIndex.Set {
		out["section_index"] = f.SectionIndex.Value
	}
	if f.ItemIndex.Set {
		out["item_index"] = f.ItemIndex.Value
	}
	if f.RevealedRefs.Set {
		refs := f.RevealedRefs.Value
		if refs == nil {
			refs = []navigation.RevealKey{}
		}
		out["revealed_refs"] = refs
	}
	if f.HighlightedPromptIndex.Set {
		out["highlighted_prompt_index"] = f.HighlightedPromptIndex.Value
	}
	if f.Active.Set {
		out["is_active"] = f.Active.Value
	}
	return out
}

func (a *API) do(ctx context.Context, method, path, socketID string, body any, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, a.baseURL.String()+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}
	if socketID != "" {
		req.Header.Set(HeaderSocketID, socketID)
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp.StatusCode, raw)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func decodeError(status int, raw []byte) error {
	var env struct {
		Error struct {
			Message string `json:"message"`
			Code    string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &env); err != nil || env.Error.Message == "" {
		return &APIError{Status: status, Message: strings.TrimSpace(string(raw))}
	}
	return &APIError{Status: status, Code: env.Error.Code, Message: env.Error.Message}
}
