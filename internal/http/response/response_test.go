package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/studysync-backend/internal/platform/apierr"
)

func run(t *testing.T, err error) (*httptest.ResponseRecorder, ErrorEnvelope) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	RespondAPIError(c, err)

	var env ErrorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return rec, env
}

func TestRespondAPIErrorUsesCarriedStatus(t *testing.T) {
	rec, env := run(t, fmt.Errorf("jump: %w", apierr.Validation("cursor_out_of_range", errors.New("section 9 out of range"))))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status: got=%d", rec.Code)
	}
	if env.Error.Code != "cursor_out_of_range" || env.Error.Message != "section 9 out of range" {
		t.Fatalf("envelope: %+v", env)
	}
}

func TestRespondAPIErrorHidesUnknownErrors(t *testing.T) {
	rec, env := run(t, errors.New("pq: connection refused"))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status: got=%d", rec.Code)
	}
	if env.Error.Code != "internal_error" || env.Error.Message != "internal server error" {
		t.Fatalf("envelope: %+v", env)
	}
}
