package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/zombor/receipt-scanner/internal/receipt"
	"github.com/zombor/receipt-scanner/internal/scanning"
)

const (
	// maxUploadSize fits high-resolution phone photos
	maxUploadSize = int64(50 << 20)
	// maxBodySize bounds JSON request bodies
	maxBodySize = int64(5 << 20)

	defaultHintCount = 5
	xlsxContentType  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// writeJSON writes v with the given status
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Error encoding response", "error", err)
	}
}

// writeError writes a JSON error body
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// handleScan recognizes an uploaded image or an image reference
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	var (
		img scanning.Image
		err error
	)
	if mediaType == "multipart/form-data" {
		img, err = s.readUpload(w, r)
	} else {
		img, err = s.readReference(r)
	}
	if err != nil {
		s.logger.Error("Error reading scan request", "error", err)
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result := s.recognizer.Recognize(r.Context(), img)
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (scanning.Image, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return scanning.Image{}, errors.New("file is too large, maximum size is 50MB")
		}
		return scanning.Image{}, fmt.Errorf("parsing form: %w", err)
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		return scanning.Image{}, errors.New("no file provided")
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return scanning.Image{}, fmt.Errorf("reading file: %w", err)
	}
	if len(data) == 0 {
		return scanning.Image{}, errors.New("uploaded file is empty")
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = contentTypeFromExt(header.Filename)
	}
	return scanning.NewImage(data, contentType, header.Filename), nil
}

func contentTypeFromExt(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".pdf":
		return "application/pdf"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	default:
		return ""
	}
}

func (s *Server) readReference(r *http.Request) (scanning.Image, error) {
	var req struct {
		Ref string `json:"ref"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(&req); err != nil {
		return scanning.Image{}, errors.New("invalid request body")
	}
	if strings.TrimSpace(req.Ref) == "" {
		return scanning.Image{}, errors.New("ref is required")
	}
	if s.imageDir == "" {
		return scanning.Image{}, errors.New("image references are disabled, upload the file instead")
	}

	img, err := scanning.LoadImageIn(s.imageDir, req.Ref)
	if err != nil {
		// the caller only learns that the reference is unusable
		s.logger.Warn("Rejected image reference", "ref", req.Ref, "error", err)
		return scanning.Image{}, errors.New("image not available")
	}
	return img, nil
}

// handleRecordCorrection stores an (original, corrected) pair
func (s *Server) handleRecordCorrection(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Original  *receipt.ReceiptData `json:"original"`
		Corrected *receipt.ReceiptData `json:"corrected"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Original == nil || req.Corrected == nil {
		s.writeError(w, http.StatusBadRequest, "original and corrected are required")
		return
	}

	if err := s.learner.Record(*req.Original, *req.Corrected); err != nil {
		s.logger.Error("Error recording correction", "error", err)
		s.writeError(w, http.StatusInternalServerError, "could not record correction")
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]int{"count": s.learner.Stats().Count})
}

// handleHints returns the most recent corrections rendered as hints
func (s *Server) handleHints(w http.ResponseWriter, r *http.Request) {
	n := defaultHintCount
	if v := r.URL.Query().Get("n"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			s.writeError(w, http.StatusBadRequest, "n must be a non-negative integer")
			return
		}
		n = parsed
	}

	hints := s.learner.RecentHints(n)
	if hints == nil {
		hints = []string{}
	}
	s.writeJSON(w, http.StatusOK, map[string][]string{"hints": hints})
}

// handleStats returns the correction summary
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.learner.Stats())
}

// handleImport parses an export back into a record
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "could not read body")
		return
	}

	data, err := receipt.Import(body)
	if err != nil {
		var parseErr *receipt.ImportParseError
		if errors.As(err, &parseErr) {
			s.writeError(w, http.StatusBadRequest, parseErr.Error())
			return
		}
		s.logger.Error("Error importing receipt", "error", err)
		s.writeError(w, http.StatusInternalServerError, "import failed")
		return
	}
	s.writeJSON(w, http.StatusOK, data)
}

// handleExport serializes the posted record as JSON or XLSX
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "could not read body")
		return
	}
	data, err := receipt.Import(body)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var (
		out         []byte
		contentType string
		ext         string
	)
	switch format := r.URL.Query().Get("format"); format {
	case "", "json":
		out, err = receipt.Export(data)
		contentType, ext = "application/json", "json"
	case "xlsx":
		out, err = receipt.ExportXLSX(data)
		contentType, ext = xlsxContentType, "xlsx"
	default:
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unsupported format %q", format))
		return
	}
	if err != nil {
		s.logger.Error("Error exporting receipt", "error", err)
		s.writeError(w, http.StatusInternalServerError, "export failed")
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="receipt-%s.%s"`, data.Date, ext))
	w.Write(out)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
