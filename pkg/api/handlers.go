package api

import (
	"bytes"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/timoknapp/sports-meet/pkg/certificate"
	"github.com/timoknapp/sports-meet/pkg/export"
	"github.com/timoknapp/sports-meet/pkg/meet"
	"github.com/timoknapp/sports-meet/pkg/models"
	"github.com/timoknapp/sports-meet/pkg/session"
	"github.com/timoknapp/sports-meet/pkg/store"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token   string          `json:"token"`
	Session session.Session `json:"session"`
}

// login is the only unauthenticated API route.
func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := readJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	sess, err := s.auth.Login(req.Username, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	token, err := s.tokens.Issue(sess)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: token, Session: sess})
}

func (s *Server) logout(r *http.Request, sess session.Session) (int, interface{}, error) {
	s.auth.Logout(sess)
	return http.StatusNoContent, nil, nil
}

func (s *Server) me(r *http.Request, sess session.Session) (int, interface{}, error) {
	return http.StatusOK, sess, nil
}

func id(r *http.Request) string {
	return mux.Vars(r)["id"]
}

func created(v interface{}, err error) (int, interface{}, error) {
	if err != nil {
		return 0, nil, err
	}
	return http.StatusCreated, v, nil
}

func ok(v interface{}, err error) (int, interface{}, error) {
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, v, nil
}

func noContent(err error) (int, interface{}, error) {
	if err != nil {
		return 0, nil, err
	}
	return http.StatusNoContent, nil, nil
}

func readPatch(r *http.Request) (store.Patch, error) {
	var patch store.Patch
	if err := readJSON(r, &patch); err != nil {
		return nil, err
	}
	return patch, nil
}

func (s *Server) getMeetInfo(r *http.Request, sess session.Session) (int, interface{}, error) {
	info, found := s.svc.MeetInfo()
	if !found {
		return 0, nil, meet.ErrMeetInfoMissing
	}
	return http.StatusOK, info, nil
}

func (s *Server) saveMeetInfo(r *http.Request, sess session.Session) (int, interface{}, error) {
	var info models.MeetInfo
	if err := readJSON(r, &info); err != nil {
		return 0, nil, err
	}
	return ok(s.svc.SaveMeetInfo(sess, info))
}

func (s *Server) listClasses(r *http.Request, sess session.Session) (int, interface{}, error) {
	return http.StatusOK, s.svc.Classes(), nil
}

func (s *Server) createClass(r *http.Request, sess session.Session) (int, interface{}, error) {
	var c models.Class
	if err := readJSON(r, &c); err != nil {
		return 0, nil, err
	}
	return created(s.svc.CreateClass(sess, c))
}

func (s *Server) updateClass(r *http.Request, sess session.Session) (int, interface{}, error) {
	patch, err := readPatch(r)
	if err != nil {
		return 0, nil, err
	}
	return ok(s.svc.UpdateClass(sess, id(r), patch))
}

func (s *Server) deleteClass(r *http.Request, sess session.Session) (int, interface{}, error) {
	return noContent(s.svc.DeleteClass(sess, id(r)))
}

func (s *Server) listStudents(r *http.Request, sess session.Session) (int, interface{}, error) {
	return http.StatusOK, s.svc.Students(r.URL.Query().Get("classId")), nil
}

func (s *Server) createStudent(r *http.Request, sess session.Session) (int, interface{}, error) {
	var st models.Student
	if err := readJSON(r, &st); err != nil {
		return 0, nil, err
	}
	return created(s.svc.CreateStudent(sess, st))
}

func (s *Server) updateStudent(r *http.Request, sess session.Session) (int, interface{}, error) {
	patch, err := readPatch(r)
	if err != nil {
		return 0, nil, err
	}
	return ok(s.svc.UpdateStudent(sess, id(r), patch))
}

func (s *Server) deleteStudent(r *http.Request, sess session.Session) (int, interface{}, error) {
	return noContent(s.svc.DeleteStudent(sess, id(r)))
}

func (s *Server) listEvents(r *http.Request, sess session.Session) (int, interface{}, error) {
	return http.StatusOK, s.svc.Events(), nil
}

func (s *Server) createEvent(r *http.Request, sess session.Session) (int, interface{}, error) {
	var e models.Event
	if err := readJSON(r, &e); err != nil {
		return 0, nil, err
	}
	return created(s.svc.CreateEvent(sess, e))
}

func (s *Server) updateEvent(r *http.Request, sess session.Session) (int, interface{}, error) {
	patch, err := readPatch(r)
	if err != nil {
		return 0, nil, err
	}
	return ok(s.svc.UpdateEvent(sess, id(r), patch))
}

func (s *Server) deleteEvent(r *http.Request, sess session.Session) (int, interface{}, error) {
	return noContent(s.svc.DeleteEvent(sess, id(r)))
}

func (s *Server) recomputeEvent(r *http.Request, sess session.Session) (int, interface{}, error) {
	changed, err := s.svc.RecomputeEvent(sess, id(r))
	return ok(map[string]int{"changed": changed}, err)
}

func (s *Server) listSchedules(r *http.Request, sess session.Session) (int, interface{}, error) {
	q := r.URL.Query()
	return http.StatusOK, s.svc.Schedules(meet.ScheduleFilter{
		Date:   q.Get("date"),
		Status: models.ScheduleStatus(q.Get("status")),
	}), nil
}

func (s *Server) createSchedule(r *http.Request, sess session.Session) (int, interface{}, error) {
	var sc models.Schedule
	if err := readJSON(r, &sc); err != nil {
		return 0, nil, err
	}
	return created(s.svc.CreateSchedule(sess, sc))
}

func (s *Server) updateSchedule(r *http.Request, sess session.Session) (int, interface{}, error) {
	patch, err := readPatch(r)
	if err != nil {
		return 0, nil, err
	}
	return ok(s.svc.UpdateSchedule(sess, id(r), patch))
}

func (s *Server) setScheduleStatus(r *http.Request, sess session.Session) (int, interface{}, error) {
	var req struct {
		Status models.ScheduleStatus `json:"status"`
	}
	if err := readJSON(r, &req); err != nil {
		return 0, nil, err
	}
	return ok(s.svc.SetScheduleStatus(sess, id(r), req.Status))
}

func (s *Server) deleteSchedule(r *http.Request, sess session.Session) (int, interface{}, error) {
	return noContent(s.svc.DeleteSchedule(sess, id(r)))
}

func (s *Server) listUsers(r *http.Request, sess session.Session) (int, interface{}, error) {
	return ok(s.svc.Users(sess))
}

func (s *Server) createUser(r *http.Request, sess session.Session) (int, interface{}, error) {
	var u models.User
	if err := readJSON(r, &u); err != nil {
		return 0, nil, err
	}
	return created(s.svc.CreateUser(sess, u))
}

func (s *Server) updateUser(r *http.Request, sess session.Session) (int, interface{}, error) {
	patch, err := readPatch(r)
	if err != nil {
		return 0, nil, err
	}
	return ok(s.svc.UpdateUser(sess, id(r), patch))
}

func (s *Server) deleteUser(r *http.Request, sess session.Session) (int, interface{}, error) {
	return noContent(s.svc.DeleteUser(sess, id(r)))
}

type registrationRequest struct {
	StudentID string `json:"studentId"`
	EventID   string `json:"eventId"`
}

func (s *Server) listRegistrations(r *http.Request, sess session.Session) (int, interface{}, error) {
	q := r.URL.Query()
	return http.StatusOK, s.svc.Registrations(sess, meet.RegistrationFilter{
		ClassID: q.Get("classId"),
		EventID: q.Get("eventId"),
		Status:  models.RegistrationStatus(q.Get("status")),
	}), nil
}

func (s *Server) register(r *http.Request, sess session.Session) (int, interface{}, error) {
	var req registrationRequest
	if err := readJSON(r, &req); err != nil {
		return 0, nil, err
	}
	return created(s.svc.Register(sess, req.StudentID, req.EventID))
}

func (s *Server) editRegistration(r *http.Request, sess session.Session) (int, interface{}, error) {
	var req registrationRequest
	if err := readJSON(r, &req); err != nil {
		return 0, nil, err
	}
	return ok(s.svc.EditRegistration(sess, id(r), req.StudentID, req.EventID))
}

func (s *Server) approve(r *http.Request, sess session.Session) (int, interface{}, error) {
	return ok(s.svc.Approve(sess, id(r)))
}

func (s *Server) reject(r *http.Request, sess session.Session) (int, interface{}, error) {
	var req struct {
		Reason string `json:"reason"`
	}
	if err := readJSON(r, &req); err != nil {
		return 0, nil, err
	}
	return ok(s.svc.Reject(sess, id(r), req.Reason))
}

func (s *Server) deleteRegistration(r *http.Request, sess session.Session) (int, interface{}, error) {
	return noContent(s.svc.DeleteRegistration(sess, id(r)))
}

func (s *Server) listResults(r *http.Request, sess session.Session) (int, interface{}, error) {
	q := r.URL.Query()
	return http.StatusOK, s.svc.Results(sess, meet.ResultFilter{
		ClassID: q.Get("classId"),
		EventID: q.Get("eventId"),
	}), nil
}

func (s *Server) recordResult(r *http.Request, sess session.Session) (int, interface{}, error) {
	var req struct {
		RegistrationID string `json:"registrationId"`
		Score          string `json:"score"`
	}
	if err := readJSON(r, &req); err != nil {
		return 0, nil, err
	}
	return created(s.svc.RecordResult(sess, req.RegistrationID, req.Score))
}

func (s *Server) updateScore(r *http.Request, sess session.Session) (int, interface{}, error) {
	var req struct {
		Score string `json:"score"`
	}
	if err := readJSON(r, &req); err != nil {
		return 0, nil, err
	}
	return ok(s.svc.UpdateScore(sess, id(r), req.Score))
}

func (s *Server) deleteResult(r *http.Request, sess session.Session) (int, interface{}, error) {
	return noContent(s.svc.DeleteResult(sess, id(r)))
}

func (s *Server) listTemplates(r *http.Request, sess session.Session) (int, interface{}, error) {
	return http.StatusOK, s.svc.CertificateTemplates(), nil
}

func (s *Server) createTemplate(r *http.Request, sess session.Session) (int, interface{}, error) {
	var t models.CertificateTemplate
	if err := readJSON(r, &t); err != nil {
		return 0, nil, err
	}
	return created(s.svc.CreateTemplate(sess, t))
}

func (s *Server) updateTemplate(r *http.Request, sess session.Session) (int, interface{}, error) {
	patch, err := readPatch(r)
	if err != nil {
		return 0, nil, err
	}
	return ok(s.svc.UpdateTemplate(sess, id(r), patch))
}

func (s *Server) deleteTemplate(r *http.Request, sess session.Session) (int, interface{}, error) {
	return noContent(s.svc.DeleteTemplate(sess, id(r)))
}

// certificateFilter reads classId, eventId and rank query parameters.
func certificateFilter(r *http.Request) meet.CertificateFilter {
	q := r.URL.Query()
	rank, _ := strconv.Atoi(q.Get("rank"))
	return meet.CertificateFilter{ClassID: q.Get("classId"), EventID: q.Get("eventId"), Rank: rank}
}

func (s *Server) listCertificates(r *http.Request, sess session.Session) (int, interface{}, error) {
	return http.StatusOK, s.svc.Certificates(sess, certificateFilter(r)), nil
}

func (s *Server) generateCertificate(r *http.Request, sess session.Session) (int, interface{}, error) {
	var req struct {
		ResultID   string `json:"resultId"`
		TemplateID string `json:"templateId"`
	}
	if err := readJSON(r, &req); err != nil {
		return 0, nil, err
	}
	return created(s.svc.GenerateCertificate(sess, req.ResultID, req.TemplateID))
}

func (s *Server) batchGenerate(r *http.Request, sess session.Session) (int, interface{}, error) {
	var req struct {
		ClassID    string `json:"classId"`
		EventID    string `json:"eventId"`
		Rank       int    `json:"rank"`
		TemplateID string `json:"templateId"`
	}
	if err := readJSON(r, &req); err != nil {
		return 0, nil, err
	}
	return created(s.svc.BatchGenerate(sess, meet.CertificateFilter{
		ClassID: req.ClassID, EventID: req.EventID, Rank: req.Rank, TemplateID: req.TemplateID,
	}))
}

// certificateImage serves the stored certificate as an SVG download.
func (s *Server) certificateImage(w http.ResponseWriter, r *http.Request) {
	sess, _ := SessionFromContext(r.Context())
	var found *models.Certificate
	for _, c := range s.svc.Certificates(sess, meet.CertificateFilter{}) {
		if c.ID == id(r) {
			found = c
			break
		}
	}
	if found == nil {
		writeJSONError(w, http.StatusNotFound, "certificate not found")
		return
	}
	svg, err := certificate.Decode(found.CertificateImage)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="certificate_`+found.ID+`.svg"`)
	_, _ = io.WriteString(w, svg)
}

func (s *Server) deleteCertificate(r *http.Request, sess session.Session) (int, interface{}, error) {
	return noContent(s.svc.DeleteCertificate(sess, id(r)))
}

func (s *Server) dashboard(r *http.Request, sess session.Session) (int, interface{}, error) {
	return http.StatusOK, s.svc.Dashboard(), nil
}

func (s *Server) classStatistics(r *http.Request, sess session.Session) (int, interface{}, error) {
	return http.StatusOK, s.svc.ClassScores(sess), nil
}

func (s *Server) eventStatistics(r *http.Request, sess session.Session) (int, interface{}, error) {
	return http.StatusOK, s.svc.EventStats(sess), nil
}

func (s *Server) logs(r *http.Request, sess session.Session) (int, interface{}, error) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	return ok(s.svc.Logs(sess, limit))
}

func (s *Server) exportJSON(r *http.Request, sess session.Session) (int, interface{}, error) {
	return ok(s.svc.Export(sess))
}

func (s *Server) importJSON(r *http.Request, sess session.Session) (int, interface{}, error) {
	data, err := io.ReadAll(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	if err != nil {
		return 0, nil, errBadBody
	}
	imported, err := s.svc.Import(sess, data)
	return ok(map[string][]string{"imported": imported}, err)
}

func (s *Server) reset(r *http.Request, sess session.Session) (int, interface{}, error) {
	return noContent(s.svc.Reset(sess))
}

// exportCSV buffers the file so a failure still produces a JSON error.
func (s *Server) exportCSV(w http.ResponseWriter, r *http.Request) {
	sess, _ := SessionFromContext(r.Context())
	kind, known := export.ParseKind(mux.Vars(r)["kind"])
	if !known {
		writeJSONError(w, http.StatusNotFound, "unknown export")
		return
	}
	var buf bytes.Buffer
	if err := s.svc.ExportCSV(sess, kind, &buf); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename(kind, s.svc.Store().Now())+`"`)
	_, _ = w.Write(buf.Bytes())
}
