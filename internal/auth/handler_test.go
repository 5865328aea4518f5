package auth

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"meal-planner/internal/api"
	"meal-planner/internal/config"
	"meal-planner/internal/store/storetest"
)

const testSecret = "test-secret"

func newAuthApp(t *testing.T) (*fiber.App, *Users) {
	t.Helper()
	users := NewUsers(storetest.New(t))
	h := NewAuthHandler(users, testSecret, config.AuthConfig{
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
	})
	app := fiber.New(fiber.Config{ErrorHandler: api.ErrorHandler})
	RegisterAuthRoutes(app, h, AuthMiddleware(testSecret))
	return app, users
}

func post(t *testing.T, app *fiber.App, path, body string) (*http.Response, map[string]any) {
	t.Helper()
	req, _ := http.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return do(t, app, req)
}

func do(t *testing.T, app *fiber.App, req *http.Request) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	raw, _ := io.ReadAll(resp.Body)
	var out map[string]any
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			t.Fatalf("decode %s: %v", raw, err)
		}
	}
	return resp, out
}

func errorCode(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func TestLoginRefreshLogout(t *testing.T) {
	app, users := newAuthApp(t)
	if _, err := users.Create(context.Background(), "cook@example.com", "hunter2"); err != nil {
		t.Fatalf("create user: %v", err)
	}

	resp, body := post(t, app, "/api/auth/login", `{"email":"cook@example.com","password":"wrong"}`)
	if resp.StatusCode != 401 || errorCode(body) != "UNAUTHORIZED" {
		t.Fatalf("expected 401 UNAUTHORIZED, got %d %v", resp.StatusCode, body)
	}
	resp, _ = post(t, app, "/api/auth/login", `{"email":"nobody@example.com","password":"x"}`)
	if resp.StatusCode != 401 {
		t.Fatalf("expected 401 for unknown user, got %d", resp.StatusCode)
	}
	resp, body = post(t, app, "/api/auth/login", `not json`)
	if resp.StatusCode != 400 || errorCode(body) != "INVALID_PAYLOAD" {
		t.Fatalf("expected 400 INVALID_PAYLOAD, got %d %v", resp.StatusCode, body)
	}

	resp, body = post(t, app, "/api/auth/login", `{"email":"cook@example.com","password":"hunter2"}`)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d %v", resp.StatusCode, body)
	}
	data := body["data"].(map[string]any)
	access := data["access_token"].(string)
	refresh := data["refresh_token"].(string)
	if data["expires_in"].(float64) != 60 {
		t.Fatalf("expected expires_in 60, got %v", data["expires_in"])
	}

	req, _ := http.NewRequest("GET", "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	resp, body = do(t, app, req)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200 from /me, got %d %v", resp.StatusCode, body)
	}
	me := body["data"].(map[string]any)
	if me["email"] != "cook@example.com" {
		t.Fatalf("unexpected user %v", me)
	}
	if _, leaked := me["password_hash"]; leaked {
		t.Fatal("password hash must not be serialized")
	}

	resp, body = post(t, app, "/api/auth/refresh", `{"refresh_token":"`+refresh+`"}`)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200 from refresh, got %d %v", resp.StatusCode, body)
	}
	rotated := body["data"].(map[string]any)["refresh_token"].(string)
	if rotated == refresh {
		t.Fatal("expected refresh token rotation")
	}
	resp, _ = post(t, app, "/api/auth/refresh", `{"refresh_token":"`+refresh+`"}`)
	if resp.StatusCode != 401 {
		t.Fatalf("expected reused refresh token to be rejected, got %d", resp.StatusCode)
	}

	resp, _ = post(t, app, "/api/auth/logout", `{"refresh_token":"`+rotated+`"}`)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200 from logout, got %d", resp.StatusCode)
	}
	resp, _ = post(t, app, "/api/auth/refresh", `{"refresh_token":"`+rotated+`"}`)
	if resp.StatusCode != 401 {
		t.Fatalf("expected logged-out token to be rejected, got %d", resp.StatusCode)
	}
}

func TestRefresh_Expired(t *testing.T) {
	app, users := newAuthApp(t)
	ctx := context.Background()
	u, _ := users.Create(ctx, "cook@example.com", "pw")
	if err := users.SaveRefreshToken(ctx, u.ID, "stale", time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("save: %v", err)
	}

	resp, body := post(t, app, "/api/auth/refresh", `{"refresh_token":"stale"}`)
	if resp.StatusCode != 401 {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	if msg := body["error"].(map[string]any)["message"]; msg != "Refresh token expired" {
		t.Fatalf("unexpected message %v", msg)
	}
}

func TestAuthMiddleware(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: api.ErrorHandler})
	app.Get("/private", AuthMiddleware(testSecret), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"data": GetUser(c)})
	})

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", 401},
		{"wrong scheme", "Basic abc", 401},
		{"garbage token", "Bearer nope", 401},
	}
	for _, tc := range cases {
		req, _ := http.NewRequest("GET", "/private", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		resp, _ := do(t, app, req)
		if resp.StatusCode != tc.want {
			t.Errorf("%s: expected %d, got %d", tc.name, tc.want, resp.StatusCode)
		}
	}

	token, _ := GenerateAccessToken("u1", "cook@example.com", testSecret, time.Minute)
	req, _ := http.NewRequest("GET", "/private", nil)
	req.Header.Set("Authorization", "bearer "+token)
	resp, body := do(t, app, req)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if body["data"].(map[string]any)["id"] != "u1" {
		t.Fatalf("unexpected user %v", body)
	}
}
