package handlers

import (
	"net/http"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/sofemci/predictive/internal/engine"
	"github.com/sofemci/predictive/internal/notify"
	"github.com/sofemci/predictive/internal/services"
	"github.com/sofemci/predictive/internal/testhelpers"
)

type testServer struct {
	db  *gorm.DB
	mux *http.ServeMux
	now time.Time
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db := testhelpers.SetupTestDB(t)
	eng, err := engine.New(engine.DefaultConfig())
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}

	analysis := services.NewAnalysisService(db, eng)
	apiHandler := NewAPIHandler(
		services.NewAlertService(db),
		analysis,
		services.NewMachineService(db, analysis),
		services.NewReportService(db, analysis),
	)

	mux := http.NewServeMux()
	NewHTTPHandler(db, notify.NewHub()).SetupRoutes(mux)
	apiHandler.SetupRoutes(mux)
	return &testServer{db: db, mux: mux, now: time.Now().UTC()}
}

func (s *testServer) do(t *testing.T, method, path, body string) *testhelpers.HTTPTestContext {
	t.Helper()
	ctx := testhelpers.NewHTTPTestContext(t, method, path, reader(body))
	if body != "" {
		ctx.WithHeader("Content-Type", "application/json")
	}
	return ctx.Execute(s.mux)
}
