package adapthttp

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"weightlog/internal/adapter/auth"
	"weightlog/internal/app"
)

type sessionView struct {
	State   string             `json:"state"`
	Outcome string             `json:"outcome,omitempty"`
	Error   string             `json:"error,omitempty"`
	Device  *auth.DeviceNotice `json:"device,omitempty"`
}

func (s *Server) sessionView(state app.SessionState, last app.UnlockResult) sessionView {
	v := sessionView{State: state.String()}
	switch state {
	case app.StatePending:
		if s.notices != nil {
			if n, ok := s.notices.Current(); ok {
				v.Device = &n
			}
		}
	case app.StateLocked:
		if last.Outcome.Reason != nil || last.LoadErr != nil {
			v.Outcome = last.Outcome.Kind.String()
			v.Error = errors.Join(last.Outcome.Reason, last.LoadErr).Error()
		}
	case app.StateUnlocked:
		v.Outcome = app.OutcomeGranted.String()
	}
	return v
}

func (s *Server) handleSessionState(w http.ResponseWriter, r *http.Request) {
	state, last := s.session.State()
	writeJSON(w, http.StatusOK, s.sessionView(state, last))
}

func (s *Server) handleUnlock(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Passphrase string `json:"passphrase"`
	}
	if err := parseJSON(r, &body); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	// The attempt outlives this request when it is still pending after unlockWait.
	ctx := auth.WithPassphrase(context.WithoutCancel(r.Context()), body.Passphrase)
	ctx, cancel := context.WithTimeout(ctx, s.authTimeout)
	results, err := s.session.Unlock(ctx)
	if err != nil {
		cancel()
		writeError(w, statusFor(err), err)
		return
	}

	select {
	case res := <-results:
		cancel()
		s.writeUnlockResult(w, res)
	case <-time.After(s.unlockWait):
		go func() {
			<-results
			cancel()
		}()
		state, last := s.session.State()
		writeJSON(w, http.StatusAccepted, s.sessionView(state, last))
	}
}

func (s *Server) writeUnlockResult(w http.ResponseWriter, res app.UnlockResult) {
	state, last := s.session.State()
	view := s.sessionView(state, last)
	switch {
	case res.Unlocked():
		writeJSON(w, http.StatusOK, view)
	case res.LoadErr != nil:
		writeJSON(w, http.StatusInternalServerError, view)
	default:
		view.Outcome = res.Outcome.Kind.String()
		if res.Outcome.Reason != nil {
			view.Error = res.Outcome.Reason.Error()
		}
		writeJSON(w, http.StatusUnauthorized, view)
	}
}

func (s *Server) handleLock(w http.ResponseWriter, r *http.Request) {
	s.session.Lock()
	state, last := s.session.State()
	writeJSON(w, http.StatusOK, s.sessionView(state, last))
}
