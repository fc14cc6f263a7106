package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/netops-tools/welcome-wizard/internal/utils"
	"github.com/netops-tools/welcome-wizard/pkg/auth"
	"github.com/netops-tools/welcome-wizard/pkg/dashboard"
	"github.com/netops-tools/welcome-wizard/pkg/importer"
	"github.com/netops-tools/welcome-wizard/pkg/library"
	"github.com/netops-tools/welcome-wizard/pkg/metrics"
	"github.com/netops-tools/welcome-wizard/pkg/storage"
)

type Config struct {
	// InventoryURL is the base URL of the inventory UI that list and add links point into.
	InventoryURL string
	// EnableLibrarySync fires a library pull when a wizard list is empty.
	EnableLibrarySync bool
}

type Server struct {
	DB      *storage.DB
	Policy  *auth.Policy
	Metrics *metrics.Collector

	cfg           Config
	trigger       *library.Trigger
	reconciler    *dashboard.Reconciler
	manufacturers *importer.Dispatcher
	deviceTypes   *importer.Dispatcher
}

func New(db *storage.DB, policy *auth.Policy, queue importer.Enqueuer, trigger *library.Trigger, m *metrics.Collector, cfg Config) *Server {
	return &Server{
		DB:            db,
		Policy:        policy,
		Metrics:       m,
		cfg:           cfg,
		trigger:       trigger,
		reconciler:    dashboard.New(db),
		manufacturers: importer.New(importer.ManufacturerImport, db, queue, policy),
		deviceTypes:   importer.New(importer.DeviceTypeImport, db, queue, policy),
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, mustRoute("plugins:welcome_wizard:dashboard"), http.StatusFound)
	})
	mux.HandleFunc("GET /health", s.handleHealth)
	if s.Metrics != nil {
		mux.Handle("GET /metrics", s.Metrics.Handler())
	}

	// Dashboard
	mux.HandleFunc("GET "+pluginPrefix+"/dashboard/{$}", s.authorize("view", "welcome_wizard.statusentry", s.handleDashboard))
	mux.HandleFunc("POST "+pluginPrefix+"/dashboard/{name}/ignore", s.authorize("change", "welcome_wizard.statusentry", s.handleToggleIgnored))

	// Import wizards
	for _, d := range []*importer.Dispatcher{s.manufacturers, s.deviceTypes} {
		base := mustRoute(d.Kind().ReturnRoute)
		perm := "welcome_wizard." + d.Kind().Name + "import"
		mux.HandleFunc("GET "+base+"{$}", s.authorize("view", perm, s.handleList(d)))
		mux.HandleFunc("GET "+base+"import/", s.authorize("view", perm, s.handleImportConfirm(d)))
		mux.HandleFunc("POST "+base+"import/", s.authenticated(s.handleImportSubmit(d)))
		mux.HandleFunc("GET "+base+"{id}/", s.authorize("view", perm, s.handleDetail(d)))
	}

	// API
	mux.HandleFunc("GET /api/status", s.authorize("view", "welcome_wizard.statusentry", s.handleStatusAPI))
	mux.HandleFunc("GET /api/jobs", s.authorize("view", "welcome_wizard.jobresult", s.handleJobsAPI))

	return s.instrument(mux)
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		utils.Log.Infof("Starting server on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
