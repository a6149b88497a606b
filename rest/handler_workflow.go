package rest

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/praxida/careflow/logger"
	"github.com/praxida/careflow/model"
	"github.com/praxida/careflow/persistence"
)

func (s *Server) HandleCreateWorkflow(w http.ResponseWriter, r *http.Request) {
	var req model.WorkflowCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	defer r.Body.Close()
	def, err := s.metadataService.Create(req)
	if err != nil {
		logger.Error("error creating workflow", zap.String("name", req.Name), zap.Error(err))
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, def)
}

func (s *Server) HandleGetWorkflow(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	def, err := s.metadataService.Get(name)
	if err != nil {
		logger.Info("workflow does not exist", zap.String("name", name))
		respondWithError(w, http.StatusNotFound, "workflow does not exist")
		return
	}
	respondWithJSON(w, http.StatusOK, def)
}

func (s *Server) HandleListWorkflows(w http.ResponseWriter, r *http.Request) {
	defs, err := s.metadataService.ListLatest()
	if err != nil {
		logger.Error("error listing workflows", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "error listing workflows")
		return
	}
	respondWithJSON(w, http.StatusOK, defs)
}

func (s *Server) HandleDeleteWorkflow(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if err := s.metadataService.Delete(name); err != nil {
		if _, ok := err.(persistence.NotFoundError); ok {
			respondWithError(w, http.StatusNotFound, "workflow does not exist")
			return
		}
		logger.Error("error deleting workflow", zap.String("name", name), zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "error deleting workflow")
		return
	}
	respondOKWithoutBody(w)
}

func (s *Server) HandleActivateWorkflow(w http.ResponseWriter, r *http.Request) {
	s.setActive(w, r, true)
}

func (s *Server) HandleDeactivateWorkflow(w http.ResponseWriter, r *http.Request) {
	s.setActive(w, r, false)
}

func (s *Server) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	name := mux.Vars(r)["name"]
	if err := s.metadataService.SetActive(name, active); err != nil {
		logger.Error("error changing workflow active flag", zap.String("name", name),
			zap.Bool("active", active), zap.Error(err))
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondOK(w, map[string]any{"name": name, "active": active})
}
