package api

import (
	"encoding/json"
	"io"
	"math/rand/v2"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"meal-planner/internal/catalog"
	"meal-planner/internal/config"
	"meal-planner/internal/generation"
	"meal-planner/internal/plans"
	"meal-planner/internal/store/storetest"
)

const missingID = "00000000-0000-0000-0000-000000000000"

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	s := storetest.New(t)
	cat := catalog.NewRepository(s)
	repo := plans.NewRepository(s)
	presets := generation.DefaultCatalog()
	schedule, err := plans.NewSchedule(config.DefaultSchedule, presets)
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	svc := plans.NewService(repo, cat, presets, schedule, generation.NewEngine(rand.New(rand.NewPCG(1, 2))))
	// Sunday 2025-01-12 falls in plan week 2025-W02.
	svc.SetClock(func() time.Time { return time.Date(2025, 1, 12, 9, 0, 0, 0, time.UTC) })

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	RegisterRoutes(app, NewHandler(cat, repo, svc), func(c *fiber.Ctx) error { return c.Next() })
	return app
}

func call(t *testing.T, app *fiber.App, method, path, body string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, _ := http.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	raw, _ := io.ReadAll(resp.Body)
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("%s %s: decode %q: %v", method, path, raw, err)
	}
	return resp.StatusCode, out
}

func data(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	d, ok := body["data"].(map[string]any)
	if !ok {
		t.Fatalf("expected object data, got %v", body)
	}
	return d
}

func errOf(body map[string]any) (code, msg string) {
	e, _ := body["error"].(map[string]any)
	code, _ = e["code"].(string)
	msg, _ = e["message"].(string)
	return code, msg
}

func TestTagRoutes(t *testing.T) {
	app := newTestApp(t)

	status, body := call(t, app, "POST", "/api/tags", `{"name":"pasta"}`)
	if status != 201 {
		t.Fatalf("expected 201, got %d %v", status, body)
	}
	id := data(t, body)["id"].(string)

	status, body = call(t, app, "POST", "/api/tags", `{"name":"pasta"}`)
	if code, msg := errOf(body); status != 409 || code != "CONFLICT" || msg != "A tag with this name already exists" {
		t.Fatalf("expected 409 conflict, got %d %v", status, body)
	}
	status, body = call(t, app, "POST", "/api/tags", `{"name":"  "}`)
	if code, _ := errOf(body); status != 422 || code != "VALIDATION_FAILED" {
		t.Fatalf("expected 422, got %d %v", status, body)
	}

	status, body = call(t, app, "PUT", "/api/tags/"+id, `{"name":"noodles"}`)
	if status != 200 || data(t, body)["name"] != "noodles" {
		t.Fatalf("expected rename, got %d %v", status, body)
	}
	status, body = call(t, app, "GET", "/api/tags", "")
	if list := body["data"].([]any); status != 200 || len(list) != 1 {
		t.Fatalf("expected one tag, got %d %v", status, body)
	}

	status, _ = call(t, app, "GET", "/api/tags/not-a-uuid", "")
	if status != 404 {
		t.Fatalf("expected 404 for malformed id, got %d", status)
	}
	status, _ = call(t, app, "DELETE", "/api/tags/"+id, "")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	status, body = call(t, app, "GET", "/api/tags/"+id, "")
	if code, _ := errOf(body); status != 404 || code != "NOT_FOUND" {
		t.Fatalf("expected 404, got %d %v", status, body)
	}
}

func TestMealRoutes(t *testing.T) {
	app := newTestApp(t)

	_, body := call(t, app, "POST", "/api/tags", `{"name":"rice"}`)
	rice := data(t, body)["id"].(string)

	status, body := call(t, app, "POST", "/api/meals", `{"name":"Paella","tag_ids":["`+rice+`"]}`)
	if status != 201 {
		t.Fatalf("expected 201, got %d %v", status, body)
	}
	meal := data(t, body)
	mealID := meal["id"].(string)
	if tags := meal["tags"].([]any); len(tags) != 1 {
		t.Fatalf("expected one tag, got %v", tags)
	}

	status, body = call(t, app, "POST", "/api/meals", `{"name":"Paella"}`)
	if _, msg := errOf(body); status != 409 || msg != "A meal with this name already exists" {
		t.Fatalf("expected 409, got %d %v", status, body)
	}
	status, _ = call(t, app, "POST", "/api/meals", `{"name":"Risotto","tag_ids":["`+missingID+`"]}`)
	if status != 422 {
		t.Fatalf("expected 422 for unknown tag, got %d", status)
	}
	status, _ = call(t, app, "POST", "/api/meals", `{"name":"Risotto","tag_ids":["bogus"]}`)
	if status != 422 {
		t.Fatalf("expected 422 for malformed tag id, got %d", status)
	}

	status, body = call(t, app, "PUT", "/api/meals/"+mealID, `{"name":"Paella royale","tag_ids":[]}`)
	if status != 200 {
		t.Fatalf("expected 200, got %d %v", status, body)
	}
	if updated := data(t, body); updated["name"] != "Paella royale" || len(updated["tags"].([]any)) != 0 {
		t.Fatalf("unexpected update %v", updated)
	}
	status, _ = call(t, app, "PUT", "/api/meals/"+missingID, `{"name":"x"}`)
	if status != 404 {
		t.Fatalf("expected 404, got %d", status)
	}

	status, _ = call(t, app, "DELETE", "/api/meals/"+mealID, "")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	status, _ = call(t, app, "DELETE", "/api/meals/"+mealID, "")
	if status != 404 {
		t.Fatalf("expected 404 on second delete, got %d", status)
	}
}

func TestPresetRoutes(t *testing.T) {
	app := newTestApp(t)

	status, body := call(t, app, "GET", "/api/presets", "")
	list, _ := body["data"].([]any)
	if status != 200 || len(list) != 2 {
		t.Fatalf("expected two presets, got %d %v", status, body)
	}
	if first := list[0].(map[string]any); first["key"] != "winter" {
		t.Fatalf("expected winter first, got %v", first)
	}

	status, body = call(t, app, "GET", "/api/presets/default?week=2025-W27", "")
	if status != 200 || data(t, body)["preset"] != "summer" {
		t.Fatalf("expected summer, got %d %v", status, body)
	}
	status, body = call(t, app, "GET", "/api/presets/default", "")
	if d := data(t, body); status != 200 || d["week_number"] != "2025-W03" || d["preset"] != "winter" {
		t.Fatalf("expected winter for 2025-W03, got %d %v", status, body)
	}
	status, _ = call(t, app, "GET", "/api/presets/default?week=2025-W99", "")
	if status != 422 {
		t.Fatalf("expected 422, got %d", status)
	}
}

func TestGeneratePlanRoute(t *testing.T) {
	app := newTestApp(t)

	if status, body := call(t, app, "POST", "/api/meals", `{"name":"Commande"}`); status != 201 {
		t.Fatalf("create meal: %d %v", status, body)
	}

	status, body := call(t, app, "POST", "/api/plans/generate", `{"week_number":"2025-W02"}`)
	if status != 201 {
		t.Fatalf("expected 201, got %d %v", status, body)
	}
	gen := data(t, body)
	if gen["preset"] != "winter" || gen["week_number"] != "2025-W02" || gen["id"] == "" {
		t.Fatalf("unexpected generation %v", gen)
	}
	warnings := gen["warnings"].([]any)
	// Five missing fixed meals and five unfilled rules.
	if len(warnings) != 10 {
		t.Fatalf("expected 10 warnings, got %v", warnings)
	}
	if warnings[0] != `Fixed meal "Soupe pour tous" not found` {
		t.Fatalf("unexpected first warning %v", warnings[0])
	}
	if warnings[5] != `Could only find 0/1 meals with tag "long" (missing 1)` {
		t.Fatalf("unexpected rule warning %v", warnings[5])
	}

	status, body = call(t, app, "POST", "/api/plans/generate", `{"week_number":"2025-W02","preset":"summer"}`)
	if _, msg := errOf(body); status != 409 || msg != "A plan for this week already exists" {
		t.Fatalf("expected 409, got %d %v", status, body)
	}
	status, _ = call(t, app, "POST", "/api/plans/generate", `{"week_number":"2025-W03","preset":"autumn"}`)
	if status != 422 {
		t.Fatalf("expected 422 for unknown preset, got %d", status)
	}
	status, body = call(t, app, "POST", "/api/plans/generate", `{"week_number":"W03"}`)
	if _, msg := errOf(body); status != 422 || msg != "Validation failed" {
		t.Fatalf("expected 422 for bad week, got %d %v", status, body)
	}

	status, body = call(t, app, "GET", "/api/plans/current", "")
	if status != 200 {
		t.Fatalf("expected current plan, got %d %v", status, body)
	}
	current := data(t, body)
	if current["week_number"] != "2025-W02" || current["start_date"] != "2025-01-11" {
		t.Fatalf("unexpected current plan %v", current)
	}
	meals := current["meals"].([]any)
	if len(meals) != 1 || meals[0].(map[string]any)["meal_name"] != "Commande" {
		t.Fatalf("unexpected meals %v", meals)
	}

	status, body = call(t, app, "GET", "/api/plans/next-week", "")
	if status != 200 || data(t, body)["week_number"] != "2025-W03" {
		t.Fatalf("expected 2025-W03, got %d %v", status, body)
	}
}

func TestPlanRoutes(t *testing.T) {
	app := newTestApp(t)

	status, body := call(t, app, "GET", "/api/plans/current", "")
	if status != 404 {
		t.Fatalf("expected 404 without a current plan, got %d %v", status, body)
	}

	_, body = call(t, app, "POST", "/api/meals", `{"name":"Soupe"}`)
	soup := data(t, body)["id"].(string)
	_, body = call(t, app, "POST", "/api/meals", `{"name":"Quiche"}`)
	quiche := data(t, body)["id"].(string)

	status, body = call(t, app, "POST", "/api/plans", `{"week_number":"2025-W05","meal_ids":["`+soup+`"]}`)
	if status != 201 {
		t.Fatalf("expected 201, got %d %v", status, body)
	}
	plan := data(t, body)
	planID := plan["id"].(string)
	if len(plan["meals"].([]any)) != 1 {
		t.Fatalf("expected one meal, got %v", plan)
	}

	status, body = call(t, app, "POST", "/api/plans/"+planID+"/meals", `{"meal_id":"`+quiche+`"}`)
	if status != 201 {
		t.Fatalf("expected 201, got %d %v", status, body)
	}
	plannedID := data(t, body)["id"].(string)

	status, body = call(t, app, "POST", "/api/planned-meals/"+plannedID+"/toggle", "")
	if status != 200 || data(t, body)["done"] != true {
		t.Fatalf("expected done=true, got %d %v", status, body)
	}

	status, body = call(t, app, "GET", "/api/plans", "")
	list := body["data"].([]any)
	if status != 200 || len(list) != 1 {
		t.Fatalf("expected one plan, got %d %v", status, body)
	}
	if summary := list[0].(map[string]any); summary["done_count"].(float64) != 1 {
		t.Fatalf("expected one done meal, got %v", summary)
	}

	status, body = call(t, app, "PUT", "/api/plans/"+planID, `{"week_number":"2025-W06","meal_ids":["`+quiche+`"]}`)
	if status != 200 {
		t.Fatalf("expected 200, got %d %v", status, body)
	}
	updated := data(t, body)
	if updated["week_number"] != "2025-W06" || len(updated["meals"].([]any)) != 1 {
		t.Fatalf("unexpected update %v", updated)
	}

	status, _ = call(t, app, "POST", "/api/plans", `{"week_number":"2025-W06"}`)
	if status != 409 {
		t.Fatalf("expected 409 for duplicate week, got %d", status)
	}
	status, _ = call(t, app, "POST", "/api/plans", `{"week_number":"2025-W07","meal_ids":["`+missingID+`"]}`)
	if status != 422 {
		t.Fatalf("expected 422 for unknown meal, got %d", status)
	}

	status, _ = call(t, app, "DELETE", "/api/planned-meals/"+plannedID, "")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	status, _ = call(t, app, "POST", "/api/planned-meals/"+plannedID+"/toggle", "")
	if status != 404 {
		t.Fatalf("expected 404 after removal, got %d", status)
	}

	status, _ = call(t, app, "DELETE", "/api/plans/"+planID, "")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	status, _ = call(t, app, "GET", "/api/plans/"+planID, "")
	if status != 404 {
		t.Fatalf("expected 404 after delete, got %d", status)
	}
}
