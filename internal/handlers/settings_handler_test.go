package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Aninda2000/Royal-Media-sub001/internal/models"
	"github.com/labstack/echo/v4"
)

// memSettingsRepository materializes defaults on first access like the
// Postgres implementation, minus the database.
type memSettingsRepository struct {
	rows map[string]*models.NotificationSettings
}

func newMemSettingsRepo() *memSettingsRepository {
	return &memSettingsRepository{rows: make(map[string]*models.NotificationSettings)}
}

func (r *memSettingsRepository) Get(userID string) (*models.NotificationSettings, error) {
	if s, ok := r.rows[userID]; ok {
		return s, nil
	}
	s := models.DefaultSettings(userID)
	r.rows[userID] = s
	return s, nil
}

func (r *memSettingsRepository) Update(userID string, patch *models.SettingsPatch) (*models.NotificationSettings, error) {
	s, err := r.Get(userID)
	if err != nil {
		return nil, err
	}
	if err := s.Apply(patch); err != nil {
		return nil, err
	}
	return s, nil
}

func patchRequest(t *testing.T, e *echo.Echo, body, userID string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if userID != "" {
		c.Set("user", &models.JwtCustomClaims{UserID: userID})
	}
	return c, rec
}

func TestGetSettingsMaterializesDefaults(t *testing.T) {
	e := echo.New()
	h := NewSettingsHandler(newMemSettingsRepo())

	c, rec := newRequestContext(t, e, http.MethodGet, "/", "u1")
	if err := h.GetSettings(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"frequency":"immediate"`) {
		t.Errorf("default frequency missing from %s", rec.Body.String())
	}
}

func TestUpdateSettingsMergesPartialPatch(t *testing.T) {
	e := echo.New()
	repo := newMemSettingsRepo()
	h := NewSettingsHandler(repo)

	c, rec := patchRequest(t, e, `{"push_notifications":{"comment":false}}`, "u1")
	if err := h.UpdateSettings(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}

	s, _ := repo.Get("u1")
	if s.PushNotifications[models.CategoryComment] {
		t.Error("patched key not applied")
	}
	if !s.PushNotifications[models.CategoryMention] {
		t.Error("untouched key was dropped")
	}
	if !s.EmailNotifications[models.CategoryComment] {
		t.Error("patch leaked into a different channel")
	}
}

func TestUpdateSettingsRejectsUnknownCategory(t *testing.T) {
	e := echo.New()
	h := NewSettingsHandler(newMemSettingsRepo())

	c, _ := patchRequest(t, e, `{"push_notifications":{"bogus":true}}`, "u1")
	err := h.UpdateSettings(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Fatalf("err=%v, want 400", err)
	}
}
