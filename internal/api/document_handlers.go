package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"asset-tokenization-kit/internal/apperr"
	"asset-tokenization-kit/internal/documents"
	"asset-tokenization-kit/internal/domain"
	"asset-tokenization-kit/internal/validate"
)

// multipartOverhead is allowed on top of the file size for form fields
// and part headers.
const multipartOverhead = 1 << 20

func (s *Server) uploadDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.documents.MaxSize()+multipartOverhead)
	if err := r.ParseMultipartForm(s.documents.MaxSize()); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, r, documents.ErrTooLarge)
			return
		}
		s.writeError(w, r, apperr.Wrap(apperr.CodeBadRequest, "invalid multipart form", err))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, r, apperr.BadRequest("file is required").WithDetails("field", "file"))
		return
	}
	defer file.Close()

	in := documents.UploadInput{
		Asset:       r.FormValue("asset"),
		Kind:        domain.DocumentKind(r.FormValue("kind")),
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	}
	if err := validate.Struct(&in); err != nil {
		s.writeError(w, r, err)
		return
	}
	doc, err := s.documents.Upload(r.Context(), currentUser(r), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

func (s *Server) listDocuments(w http.ResponseWriter, r *http.Request) {
	asset := r.URL.Query().Get("asset")
	if !validate.IsAddress(asset) {
		s.writeError(w, r, apperr.BadRequest("invalid asset address").WithDetails("field", "asset"))
		return
	}
	docs, err := s.documents.List(r.Context(), asset)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

func (s *Server) getDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.documents.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) deleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := s.documents.Delete(r.Context(), currentUser(r), mux.Vars(r)["id"]); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) upsertRegulation(w http.ResponseWriter, r *http.Request) {
	var in documents.RegulationInput
	if err := decode(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	cfg, err := s.documents.UpsertRegulation(r.Context(), currentUser(r), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) listRegulations(w http.ResponseWriter, r *http.Request) {
	asset := r.URL.Query().Get("asset")
	if !validate.IsAddress(asset) {
		s.writeError(w, r, apperr.BadRequest("invalid asset address").WithDetails("field", "asset"))
		return
	}
	configs, err := s.documents.Regulations(r.Context(), asset)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, configs)
}
