package server

import (
	"encoding/base64"
	"errors"
	"io"
	"net/http"

	"github.com/m-mizutani/claimpilot/pkg/model"
	"github.com/m-mizutani/claimpilot/pkg/usecase/orchestrator"
	"github.com/m-mizutani/goerr/v2"
)

type chatRequest struct {
	Message string        `json:"message"`
	ClaimID model.ClaimID `json:"claim_id"`
	// FileData is a base64 encoded attachment
	FileData string            `json:"file_data"`
	FileName string            `json:"file_name"`
	Context  map[string]string `json:"context"`
}

func (x *chatRequest) toMessage() (*orchestrator.Message, error) {
	msg := &orchestrator.Message{
		Text:    x.Message,
		ClaimID: x.ClaimID,
		Context: x.Context,
	}
	// a file name alone still counts as an attachment, so the document path reports the missing content
	if x.FileData == "" && x.FileName == "" {
		return msg, nil
	}

	data, err := base64.StdEncoding.DecodeString(x.FileData)
	if err != nil {
		return nil, goerr.Wrap(model.ErrValidation, "file_data is not valid base64", goerr.V("error", err.Error()))
	}
	name := x.FileName
	if name == "" {
		name = "upload.txt"
	}
	msg.Attachment = &model.Document{Name: name, Data: data}
	return msg, nil
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	msg, err := req.toMessage()
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, s.orch.ProcessMessage(r.Context(), msg))
}

// readUpload parses a multipart or url-encoded form and returns the "file" part, or nil when absent
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (*model.Document, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadSize)
	if err := r.ParseMultipartForm(s.maxUploadSize); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return nil, goerr.Wrap(model.ErrValidation, "failed to parse form", goerr.V("error", err.Error()))
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, goerr.Wrap(model.ErrValidation, "failed to read uploaded file", goerr.V("error", err.Error()))
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read uploaded file", goerr.V("file_name", header.Filename))
	}
	return &model.Document{Name: header.Filename, Data: data}, nil
}

func formValue(r *http.Request, key, fallback string) string {
	if v := r.FormValue(key); v != "" {
		return v
	}
	return fallback
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	doc, err := s.readUpload(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if doc == nil {
		writeError(w, r, goerr.Wrap(model.ErrInputMissing, "file is required"))
		return
	}

	msg := &orchestrator.Message{
		Text:       formValue(r, "message", "Process this document"),
		Attachment: doc,
	}
	writeJSON(w, http.StatusOK, s.orch.ProcessMessage(r.Context(), msg))
}

func (s *Server) handleProcessClaim(w http.ResponseWriter, r *http.Request) {
	doc, err := s.readUpload(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if doc == nil {
		text := r.FormValue("text")
		if text == "" {
			writeError(w, r, goerr.Wrap(model.ErrInputMissing, "either file or text must be provided"))
			return
		}
		doc = model.NewTextDocument(text)
	}

	claim, err := s.claims.Process(r.Context(), doc)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, claim)
}

func (s *Server) handleProcessFullClaim(w http.ResponseWriter, r *http.Request) {
	doc, err := s.readUpload(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if doc == nil {
		writeError(w, r, goerr.Wrap(model.ErrInputMissing, "file is required"))
		return
	}

	msg := &orchestrator.Message{
		Text:       formValue(r, "message", "Process full claim workflow"),
		Attachment: doc,
	}
	writeJSON(w, http.StatusOK, s.orch.ProcessFullClaim(r.Context(), msg))
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"history": s.orch.History(),
	})
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	s.orch.ClearHistory()
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Conversation history cleared",
	})
}
