package adapthttp

import (
	"net/http"

	"weightlog/internal/domain"
)

type entryView struct {
	ID    string  `json:"id"`
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

func viewOf(e domain.Entry) entryView {
	return entryView{ID: e.ID, Date: e.Day(), Value: e.Value}
}

type entryBody struct {
	Date  string `json:"date"`
	Value string `json:"value"`
}

func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	entries, diff, err := s.session.Entries()
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	items := make([]entryView, 0, len(entries))
	for _, e := range entries {
		items = append(items, viewOf(e))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "difference": diff})
}

func (s *Server) handleAddEntry(w http.ResponseWriter, r *http.Request) {
	var body entryBody
	if err := parseJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	date, err := domain.ParseDay(body.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	entry, err := s.session.Add(r.Context(), date, body.Value)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"entry": viewOf(entry)})
}

func (s *Server) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	entry, ok, err := s.session.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "entry not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entry": viewOf(entry)})
}

func (s *Server) handleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var body entryBody
	if err := parseJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	date, err := domain.ParseDay(body.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	updated, err := s.session.Update(r.Context(), id, date, body.Value)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if !updated {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "entry not found"})
		return
	}
	entry, _, err := s.session.Get(id)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entry": viewOf(entry)})
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	n, err := s.session.Delete(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": n})
}

func (s *Server) handleDeleteEntries(w http.ResponseWriter, r *http.Request) {
	var body struct {
		IDs       []string `json:"ids"`
		Positions []int    `json:"positions"`
	}
	if err := parseJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	total, err := s.session.DeleteMatching(r.Context(), body.IDs, body.Positions)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": total})
}

func (s *Server) handleDifference(w http.ResponseWriter, r *http.Request) {
	diff, err := s.session.Difference()
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"difference": diff})
}
