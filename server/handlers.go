package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"feedback_agent/feedback"
	"feedback_agent/intake"
	"feedback_agent/storage"
)

// runCreateReq takes either a normalized request or raw intake fields.
type runCreateReq struct {
	intake.Request
	Packet *feedback.RequestContext `json:"request,omitempty"`
}

type runCreateResp struct {
	feedback.RunResult
	Request feedback.RequestContext `json:"input_packet"`
	Files   []string                `json:"files,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRunCreate(w http.ResponseWriter, r *http.Request) {
	var req runCreateReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
	defer cancel()

	var packet feedback.RequestContext
	if req.Packet != nil {
		packet = *req.Packet
	} else {
		if req.RawText == "" && req.Topic == "" {
			writeError(w, http.StatusBadRequest, "raw_text or topic is required")
			return
		}
		var err error
		packet, err = s.intake.Process(ctx, req.Request)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	result, err := s.runner.Run(ctx, packet)
	if errors.Is(err, feedback.ErrInvalidRequest) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := runCreateResp{RunResult: result, Request: packet}
	if s.pub != nil {
		doc, err := s.pub.Publish(ctx, result, packet.Persona.Preferences.Format)
		if err != nil {
			s.log.WithError(err).WithField("run_id", result.RunID).Warn("publish failed")
		} else {
			resp.Files = doc.Files
		}
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleRunList(w http.ResponseWriter, r *http.Request) {
	runs, err := s.runs.ListRuns(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *Server) handleRunGet(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.loadRun(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleRunDocument(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.loadRun(w, r)
	if !ok {
		return
	}
	layout := rec.Request.Persona.Preferences.Format
	if l := r.URL.Query().Get("layout"); l != "" {
		if !feedback.IsValidFormat(l) {
			writeError(w, http.StatusBadRequest, "layout must be bullet, narrative or hybrid")
			return
		}
		layout = feedback.Format(l)
	}
	if s.pub == nil {
		writeError(w, http.StatusNotImplemented, "publishing is disabled")
		return
	}
	doc, err := s.pub.Render(rec.Final, layout)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	switch r.URL.Query().Get("format") {
	case "", "markdown":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		_, _ = w.Write([]byte(doc.Markdown))
	case "html":
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(doc.HTML))
	default:
		writeError(w, http.StatusBadRequest, "format must be markdown or html")
	}
}

func (s *Server) loadRun(w http.ResponseWriter, r *http.Request) (feedback.RunRecord, bool) {
	rec, err := s.runs.LoadRun(r.Context(), r.PathValue("id"))
	if errors.Is(err, storage.ErrRunNotFound) {
		writeError(w, http.StatusNotFound, "run not found")
		return feedback.RunRecord{}, false
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return feedback.RunRecord{}, false
	}
	return rec, true
}
