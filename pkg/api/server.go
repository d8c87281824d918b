// Package api exposes the meet administration over JSON HTTP.
package api

import (
	"encoding/json"
	"expvar"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/timoknapp/sports-meet/pkg/logger"
	"github.com/timoknapp/sports-meet/pkg/meet"
	"github.com/timoknapp/sports-meet/pkg/metrics"
	"github.com/timoknapp/sports-meet/pkg/models"
	"github.com/timoknapp/sports-meet/pkg/session"
)

const maxBodyBytes = 8 << 20

type Server struct {
	svc     *meet.Service
	auth    *session.Authenticator
	tokens  *session.TokenIssuer
	origins []string
	log     *logger.Logger
}

func NewServer(svc *meet.Service, auth *session.Authenticator, tokens *session.TokenIssuer, corsOrigins []string) *Server {
	return &Server{
		svc:     svc,
		auth:    auth,
		tokens:  tokens,
		origins: corsOrigins,
		log:     svc.Store().Logger("api"),
	}
}

// handlerFunc returns the status and body to write, or an error mapped by writeError.
type handlerFunc func(r *http.Request, sess session.Session) (int, interface{}, error)

func (s *Server) handle(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, _ := SessionFromContext(r.Context())
		status, body, err := h(r, sess)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if body == nil {
			w.WriteHeader(status)
			return
		}
		writeJSON(w, status, body)
	}
}

var errBadBody = &meet.ValidationError{Field: "body", Reason: "invalid JSON request body"}

func readJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes)).Decode(v); err != nil {
		return errBadBody
	}
	return nil
}

// Router builds the HTTP handler with instrumentation and CORS applied.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/api/login", s.login).Methods(http.MethodPost)
	r.HandleFunc(metrics.StatsPath, metrics.StatsHandler).Methods(http.MethodGet)
	r.Handle(metrics.DebugVarsPath, expvar.Handler()).Methods(http.MethodGet)

	admin := r.PathPrefix("/admin").Subrouter()
	admin.Use(s.authMiddleware)
	admin.HandleFunc("/env", requireRole(metrics.EnvHandler, models.RoleSuperAdmin)).Methods(http.MethodGet, http.MethodPost, http.MethodPut)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.authMiddleware)
	api.HandleFunc("/logout", s.handle(s.logout)).Methods(http.MethodPost)
	api.HandleFunc("/me", s.handle(s.me)).Methods(http.MethodGet)

	api.HandleFunc("/meet", s.handle(s.getMeetInfo)).Methods(http.MethodGet)
	api.HandleFunc("/meet", s.handle(s.saveMeetInfo)).Methods(http.MethodPut)

	api.HandleFunc("/classes", s.handle(s.listClasses)).Methods(http.MethodGet)
	api.HandleFunc("/classes", s.handle(s.createClass)).Methods(http.MethodPost)
	api.HandleFunc("/classes/{id}", s.handle(s.updateClass)).Methods(http.MethodPut, http.MethodPatch)
	api.HandleFunc("/classes/{id}", s.handle(s.deleteClass)).Methods(http.MethodDelete)

	api.HandleFunc("/students", s.handle(s.listStudents)).Methods(http.MethodGet)
	api.HandleFunc("/students", s.handle(s.createStudent)).Methods(http.MethodPost)
	api.HandleFunc("/students/{id}", s.handle(s.updateStudent)).Methods(http.MethodPut, http.MethodPatch)
	api.HandleFunc("/students/{id}", s.handle(s.deleteStudent)).Methods(http.MethodDelete)

	api.HandleFunc("/events", s.handle(s.listEvents)).Methods(http.MethodGet)
	api.HandleFunc("/events", s.handle(s.createEvent)).Methods(http.MethodPost)
	api.HandleFunc("/events/{id}", s.handle(s.updateEvent)).Methods(http.MethodPut, http.MethodPatch)
	api.HandleFunc("/events/{id}", s.handle(s.deleteEvent)).Methods(http.MethodDelete)
	api.HandleFunc("/events/{id}/recompute", s.handle(s.recomputeEvent)).Methods(http.MethodPost)

	api.HandleFunc("/schedules", s.handle(s.listSchedules)).Methods(http.MethodGet)
	api.HandleFunc("/schedules", s.handle(s.createSchedule)).Methods(http.MethodPost)
	api.HandleFunc("/schedules/{id}", s.handle(s.updateSchedule)).Methods(http.MethodPut, http.MethodPatch)
	api.HandleFunc("/schedules/{id}/status", s.handle(s.setScheduleStatus)).Methods(http.MethodPut)
	api.HandleFunc("/schedules/{id}", s.handle(s.deleteSchedule)).Methods(http.MethodDelete)

	api.HandleFunc("/users", s.handle(s.listUsers)).Methods(http.MethodGet)
	api.HandleFunc("/users", s.handle(s.createUser)).Methods(http.MethodPost)
	api.HandleFunc("/users/{id}", s.handle(s.updateUser)).Methods(http.MethodPut, http.MethodPatch)
	api.HandleFunc("/users/{id}", s.handle(s.deleteUser)).Methods(http.MethodDelete)

	api.HandleFunc("/registrations", s.handle(s.listRegistrations)).Methods(http.MethodGet)
	api.HandleFunc("/registrations", s.handle(s.register)).Methods(http.MethodPost)
	api.HandleFunc("/registrations/{id}", s.handle(s.editRegistration)).Methods(http.MethodPut)
	api.HandleFunc("/registrations/{id}/approve", s.handle(s.approve)).Methods(http.MethodPost)
	api.HandleFunc("/registrations/{id}/reject", s.handle(s.reject)).Methods(http.MethodPost)
	api.HandleFunc("/registrations/{id}", s.handle(s.deleteRegistration)).Methods(http.MethodDelete)

	api.HandleFunc("/results", s.handle(s.listResults)).Methods(http.MethodGet)
	api.HandleFunc("/results", s.handle(s.recordResult)).Methods(http.MethodPost)
	api.HandleFunc("/results/{id}", s.handle(s.updateScore)).Methods(http.MethodPut)
	api.HandleFunc("/results/{id}", s.handle(s.deleteResult)).Methods(http.MethodDelete)

	api.HandleFunc("/certificate-templates", s.handle(s.listTemplates)).Methods(http.MethodGet)
	api.HandleFunc("/certificate-templates", s.handle(s.createTemplate)).Methods(http.MethodPost)
	api.HandleFunc("/certificate-templates/{id}", s.handle(s.updateTemplate)).Methods(http.MethodPut, http.MethodPatch)
	api.HandleFunc("/certificate-templates/{id}", s.handle(s.deleteTemplate)).Methods(http.MethodDelete)

	api.HandleFunc("/certificates", s.handle(s.listCertificates)).Methods(http.MethodGet)
	api.HandleFunc("/certificates", s.handle(s.generateCertificate)).Methods(http.MethodPost)
	api.HandleFunc("/certificates/batch", s.handle(s.batchGenerate)).Methods(http.MethodPost)
	api.HandleFunc("/certificates/{id}/image", s.certificateImage).Methods(http.MethodGet)
	api.HandleFunc("/certificates/{id}", s.handle(s.deleteCertificate)).Methods(http.MethodDelete)

	api.HandleFunc("/dashboard", s.handle(s.dashboard)).Methods(http.MethodGet)
	api.HandleFunc("/statistics/classes", s.handle(s.classStatistics)).Methods(http.MethodGet)
	api.HandleFunc("/statistics/events", s.handle(s.eventStatistics)).Methods(http.MethodGet)
	api.HandleFunc("/logs", s.handle(s.logs)).Methods(http.MethodGet)

	api.HandleFunc("/export", s.handle(s.exportJSON)).Methods(http.MethodGet)
	api.HandleFunc("/export/{kind:[a-z-]+}.csv", s.exportCSV).Methods(http.MethodGet)
	api.HandleFunc("/import", s.handle(s.importJSON)).Methods(http.MethodPost)
	api.HandleFunc("/reset", s.handle(s.reset)).Methods(http.MethodPost)

	return metrics.Instrument(corsHandler(s.origins)(r))
}
