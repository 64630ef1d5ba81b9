package web

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"mime"
	"net/http"

	"github.com/mailtriage/mailtriage/internal/classifier"
	"github.com/mailtriage/mailtriage/internal/extract"
	"github.com/mailtriage/mailtriage/internal/reply"
	"github.com/mailtriage/mailtriage/internal/triage"
)

const (
	msgMissingText  = "Informe o texto do email no campo email_text."
	msgMissingFile  = "Envie um arquivo no campo file."
	msgUnsupported  = "Formato não suportado. Use .txt, .eml, .html, .pdf ou imagem."
	msgNoText       = "Não foi possível extrair texto do arquivo."
	msgTooLarge     = "Arquivo muito grande."
	msgInternal     = "Erro interno ao processar o email."
	msgInvalidJSON  = "JSON inválido."
	formFieldText   = "email_text"
	formFieldUpload = "file"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func (s *Server) maxUploadBytes() int64 {
	return int64(s.config.Server.MaxUploadMB) << 20
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "index.html", map[string]interface{}{
		"Keywords":    classifier.Keywords(),
		"Subtypes":    reply.AllSubtypes,
		"MaxUploadMB": s.config.Server.MaxUploadMB,
	})
}

// handleProcess classifies the email_text field of a browser form post.
func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	text, ok, err := s.formText(w, r)
	if err != nil {
		s.writeRequestError(w, err)
		return
	}
	if !ok {
		writeError(w, http.StatusBadRequest, msgMissingText)
		return
	}
	s.respondAnalysis(w, text, false)
}

// handleAPIProcess accepts either {"email_text": "..."} or a form post.
func (s *Server) handleAPIProcess(w http.ResponseWriter, r *http.Request) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		s.handleProcess(w, r)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes())
	var req struct {
		EmailText *string `json:"email_text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, msgTooLarge)
			return
		}
		writeError(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}
	if req.EmailText == nil {
		writeError(w, http.StatusBadRequest, msgMissingText)
		return
	}
	s.respondAnalysis(w, *req.EmailText, false)
}

// handleUpload extracts text from the uploaded file and classifies it.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	// Multipart framing needs a little room beyond the file itself
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes()+maxFormMemory)
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		s.writeRequestError(w, err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(formFieldUpload)
	if err != nil {
		writeError(w, http.StatusBadRequest, msgMissingFile)
		return
	}
	defer file.Close()

	if header.Size > s.maxUploadBytes() {
		writeError(w, http.StatusRequestEntityTooLarge, msgTooLarge)
		return
	}

	text, err := s.extractor.Extract(r.Context(), header.Filename, header.Header.Get("Content-Type"), file)
	switch {
	case errors.Is(err, extract.ErrUnsupportedFormat):
		log.Printf("Rejected upload %q (%s): %v", header.Filename, header.Header.Get("Content-Type"), err)
		writeError(w, http.StatusBadRequest, msgUnsupported)
		return
	case errors.Is(err, extract.ErrNoText):
		writeError(w, http.StatusBadRequest, msgNoText)
		return
	case err != nil:
		log.Printf("Failed to extract text from %q: %v", header.Filename, err)
		writeError(w, http.StatusInternalServerError, msgInternal)
		return
	}

	s.respondAnalysis(w, text, true)
}

// handleAPIKeywords lists the phrases that short-circuit to Unproductive.
func (s *Server) handleAPIKeywords(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"keywords":   classifier.Keywords(),
		"confidence": classifier.OverrideConfidence,
	})
}

// formText reads email_text from a urlencoded or multipart body. The
// second result reports whether the field was present at all.
func (s *Server) formText(w http.ResponseWriter, r *http.Request) (string, bool, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes())
	if err := r.ParseMultipartForm(maxFormMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return "", false, err
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}
	values, ok := r.PostForm[formFieldText]
	if !ok || len(values) == 0 {
		return "", false, nil
	}
	return values[0], true, nil
}

func (s *Server) writeRequestError(w http.ResponseWriter, err error) {
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		writeError(w, http.StatusRequestEntityTooLarge, msgTooLarge)
	case errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, http.ErrNotMultipart), errors.Is(err, http.ErrMissingBoundary):
		writeError(w, http.StatusBadRequest, msgMissingFile)
	default:
		writeError(w, http.StatusBadRequest, err.Error())
	}
}

func (s *Server) respondAnalysis(w http.ResponseWriter, text string, document bool) {
	var (
		analysis *triage.Analysis
		err      error
	)
	if document {
		analysis, err = s.analyzer.AnalyzeDocument(text)
	} else {
		analysis, err = s.analyzer.Analyze(text)
	}
	if err != nil {
		log.Printf("Failed to analyze email: %v", err)
		writeError(w, http.StatusInternalServerError, msgInternal)
		return
	}

	log.Printf("Analysis %s: %s (%.3f) subtype=%s", analysis.ID, analysis.Category, analysis.Confidence, analysis.Subtype)
	writeJSON(w, http.StatusOK, analysis)
}
