package rest

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/praxida/careflow/logger"
	"github.com/praxida/careflow/model"
)

func (s *Server) HandleInsertNode(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	var req model.NodeInsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	defer r.Body.Close()
	nodeId, version, err := s.metadataService.InsertNode(name, req)
	if err != nil {
		logger.Error("error inserting node", zap.String("workflow", name), zap.Error(err))
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, model.NodeInsertResponse{NodeId: nodeId, Version: version})
}

func (s *Server) HandleUpdateNode(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	name := vars["name"]
	nodeId := vars["nodeId"]
	var partial map[string]any
	if err := json.NewDecoder(r.Body).Decode(&partial); err != nil {
		respondWithError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	defer r.Body.Close()
	version, err := s.metadataService.UpdateNodePayload(name, nodeId, partial)
	if err != nil {
		logger.Error("error updating node", zap.String("workflow", name),
			zap.String("node", nodeId), zap.Error(err))
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondOK(w, map[string]any{"nodeId": nodeId, "version": version})
}

func (s *Server) HandleDeleteNode(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	name := vars["name"]
	nodeId := vars["nodeId"]
	version, err := s.metadataService.DeleteNode(name, nodeId)
	if err != nil {
		logger.Error("error deleting node", zap.String("workflow", name),
			zap.String("node", nodeId), zap.Error(err))
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondOK(w, map[string]any{"version": version})
}
