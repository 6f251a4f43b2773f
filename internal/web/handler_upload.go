package web

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// allowedImageTypes is the set of MIME types accepted for uploaded photos.
// net/http.DetectContentType handles JPEG, PNG, and GIF via magic-byte
// sniffing. WebP is detected separately because the WHATWG sniffing rules (and
// therefore the stdlib) do not include a WebP signature.
var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
}

// isWebP reports whether data is a WebP image (RIFF container with "WEBP" at
// offset 8).
func isWebP(data []byte) bool {
	return len(data) >= 12 &&
		string(data[0:4]) == "RIFF" &&
		string(data[8:12]) == "WEBP"
}

// allowedImageMIME returns the detected MIME type and true if the data is an
// accepted image format, or ("", false) otherwise.
func allowedImageMIME(data []byte) (string, bool) {
	if isWebP(data) {
		return "image/webp", true
	}
	mime := http.DetectContentType(data)
	if allowedImageTypes[mime] {
		return mime, true
	}
	return "", false
}

// readImage reads the "image" form file, enforcing the upload limit and the
// accepted formats. It writes the error response itself and returns ok=false
// on failure.
func (s *Server) readImage(w http.ResponseWriter, r *http.Request) (data []byte, mimeType string, ok bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxPhotoBytes+1<<20)
	if err := r.ParseMultipartForm(s.maxPhotoBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: "image too large", Code: codeInvalid})
			return nil, "", false
		}
		s.writeBadRequest(w, "failed to parse form")
		return nil, "", false
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		s.writeBadRequest(w, "image file required")
		return nil, "", false
	}
	defer closeWithLog(file, "upload file", s.log(r))

	if header.Size > s.maxPhotoBytes {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: "image too large", Code: codeInvalid})
		return nil, "", false
	}
	data, err = io.ReadAll(file)
	if err != nil {
		s.log(r).Error("read upload failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "failed to read file", Code: codeInternal})
		return nil, "", false
	}

	mimeType, ok = allowedImageMIME(data)
	if !ok {
		s.writeBadRequest(w, "unsupported image format")
		return nil, "", false
	}
	return data, mimeType, true
}

func (s *Server) handleUploadImage(w http.ResponseWriter, r *http.Request) {
	data, mimeType, ok := s.readImage(w, r)
	if !ok {
		return
	}
	url, err := s.appliances.UploadImage(r.Context(), identity(r), chi.URLParam(r, "id"), data, mimeType)
	if err != nil {
		s.writeError(w, r, "upload image", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"url": url})
}

func (s *Server) handleDeleteImage(w http.ResponseWriter, r *http.Request) {
	if err := s.appliances.DeleteImage(r.Context(), identity(r), ImageURLPrefix+chi.URLParam(r, "key")); err != nil {
		s.writeError(w, r, "delete image", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleDescribe suggests a name and description for an uploaded photo. The
// photo itself is not stored.
func (s *Server) handleDescribe(w http.ResponseWriter, r *http.Request) {
	data, mimeType, ok := s.readImage(w, r)
	if !ok {
		return
	}
	suggestion, err := s.appliances.SuggestItem(r.Context(), data, mimeType)
	if err != nil {
		s.writeError(w, r, "describe image", err)
		return
	}
	writeJSON(w, http.StatusOK, suggestion)
}

func (s *Server) handleGetImage(w http.ResponseWriter, r *http.Request) {
	reader, mimeType, err := s.appliances.OpenImage(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		s.writeError(w, r, "get image", err)
		return
	}
	defer closeWithLog(reader, "photo reader", s.log(r))

	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Cache-Control", "private, max-age=86400")
	if _, err := io.Copy(w, reader); err != nil {
		s.log(r).Error("write photo failed", "error", err)
	}
}
