package rest

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/praxida/careflow/model"
)

func (s *Server) HandleEvent(w http.ResponseWriter, r *http.Request) {
	var ev model.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		respondWithError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	defer r.Body.Close()
	if len(ev.TriggerType) == 0 {
		respondWithError(w, http.StatusBadRequest, "event triggerType can not be empty")
		return
	}
	s.intake.Submit(&ev)
	respondWithJSON(w, http.StatusAccepted, map[string]any{"eventId": ev.Id})
}

func (s *Server) HandleGetEnrollment(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	enrollment, err := s.enrollments.Get(vars["workflow"], vars["id"])
	if err != nil {
		respondWithError(w, http.StatusNotFound, "enrollment does not exist")
		return
	}
	respondWithJSON(w, http.StatusOK, model.EnrollmentView{
		Id:                enrollment.Id,
		WorkflowName:      enrollment.WorkflowName,
		WorkflowVersion:   enrollment.WorkflowVersion,
		State:             enrollment.State.String(),
		Cursor:            enrollment.Cursor,
		ScheduledResumeAt: enrollment.ScheduledResumeAt,
		Occurrences:       enrollment.Occurrences,
	})
}
