package http

import (
	"net/http"
	"strconv"

	"spendlog/internal/core"
	applog "spendlog/internal/log"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	NewJSONResponse().Body(map[string]string{"status": "ok"}).Write(w)
}

// requireSession rejects requests while nobody is signed in.
func (s *Server) requireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := s.sessions.CurrentUserID(); !ok {
			ErrorFor(core.ErrNoSession).Write(w)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := s.decodeJSON(r, &req); err != nil {
		ErrorFor(err).Write(w)
		return
	}
	if err := s.sessions.SignIn(req.UserID); err != nil {
		ErrorFor(err).Write(w)
		return
	}
	if err := s.logs.Hydrate(r.Context()); err != nil {
		s.fail(w, r, "Failed to load logs after sign-in", err)
		return
	}

	applog.FromContext(r.Context()).InfoContext(r.Context(), "User signed in", applog.FieldOwnerID, req.UserID)
	NewJSONResponse().
		Body(sessionView{UserID: req.UserID, LogCount: len(s.logs.Logs())}).
		Write(w)
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	s.sessions.SignOut()
	applog.FromContext(r.Context()).InfoContext(r.Context(), "User signed out")
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

// handleListLogs lists the loaded logs, newest first. refresh=true reloads
// them from the repository first.
func (s *Server) handleListLogs(w http.ResponseWriter, r *http.Request) {
	if refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh")); refresh {
		if err := s.logs.Hydrate(r.Context()); err != nil {
			s.fail(w, r, "Failed to refresh logs", err)
			return
		}
	}
	currentID := ""
	if current, ok := s.logs.CurrentLog(); ok {
		currentID = current.ID
	}
	NewJSONResponse().Body(newLogListView(s.logs.Logs(), currentID)).Write(w)
}

func (s *Server) handleCreateLog(w http.ResponseWriter, r *http.Request) {
	var req createLogRequest
	if err := s.decodeJSON(r, &req); err != nil {
		ErrorFor(err).Write(w)
		return
	}
	l, err := s.logs.CreateLog(r.Context(), req.Title)
	if err != nil {
		s.fail(w, r, "Failed to create log", err)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/logs/"+l.ID).
		Body(newLogView(l, false)).
		Write(w)
}

func (s *Server) handleCurrentLog(w http.ResponseWriter, _ *http.Request) {
	l, ok := s.logs.CurrentLog()
	if !ok {
		ErrorFor(core.ErrNoCurrentLog).Write(w)
		return
	}
	NewJSONResponse().Body(newLogView(l, true)).Write(w)
}

func (s *Server) handleSelectLog(w http.ResponseWriter, r *http.Request) {
	var req selectLogRequest
	if err := s.decodeJSON(r, &req); err != nil {
		ErrorFor(err).Write(w)
		return
	}
	if err := s.logs.SelectLog(req.LogID); err != nil {
		s.fail(w, r, "Failed to select log", err)
		return
	}
	l, _ := s.logs.CurrentLog()
	NewJSONResponse().Body(newLogView(l, true)).Write(w)
}

func (s *Server) handleRecordTransaction(w http.ResponseWriter, r *http.Request) {
	var req recordTransactionRequest
	if err := s.decodeJSON(r, &req); err != nil {
		ErrorFor(err).Write(w)
		return
	}

	date := core.DateOf(s.now())
	if req.Date != "" {
		d, err := core.ParseDate(req.Date)
		if err != nil {
			ErrorFor(&requestError{Field: "date", Reason: "must be a date formatted as 2006-01-02"}).Write(w)
			return
		}
		date = d
	}

	l, err := s.logs.RecordTransaction(r.Context(), core.TransactionInput{
		Amount:      amountText(req.Amount),
		Description: req.Description,
		Category:    req.Category,
		Date:        date,
	})
	if err != nil {
		s.fail(w, r, "Failed to record transaction", err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(newLogView(l, true)).Write(w)
}

func (s *Server) handleDeleteLog(w http.ResponseWriter, r *http.Request) {
	if err := s.logs.DeleteLog(r.Context(), r.PathValue("id")); err != nil {
		s.fail(w, r, "Failed to delete log", err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

// fail logs err at a level matching its status and writes the error response.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	resp := ErrorFor(err)
	logger := applog.FromContext(r.Context())
	if resp.statusCode >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), msg, applog.FieldError, err.Error())
	} else {
		logger.InfoContext(r.Context(), msg, applog.FieldError, err.Error(), applog.FieldStatusCode, resp.statusCode)
	}
	resp.Write(w)
}
