package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"dreamlab/internal/domain"
	"dreamlab/internal/metrics"
	"dreamlab/internal/providers/analysis"
)

// multipart framing and the text fields ride on top of the file itself.
const multipartOverhead = 1 << 20

// CreateAnalysis accepts a multipart upload (file, notes, style) and returns
// the structured creative analysis.
func (a *App) CreateAnalysis(w http.ResponseWriter, r *http.Request) {
	if a.Analyzer == nil {
		a.error(w, http.StatusServiceUnavailable, "configuration", "media analysis is not configured")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, analysis.MaxInlineBytes+multipartOverhead)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			a.error(w, http.StatusRequestEntityTooLarge, "too_large", fmt.Sprintf("upload exceeds %d MiB", analysis.MaxInlineBytes>>20))
			return
		}
		a.error(w, http.StatusBadRequest, "bad_request", "expected multipart form")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, analysis.MaxInlineBytes+1))
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "failed to read upload")
		return
	}
	if len(data) > analysis.MaxInlineBytes {
		a.error(w, http.StatusRequestEntityTooLarge, "too_large", fmt.Sprintf("upload exceeds %d MiB", analysis.MaxInlineBytes>>20))
		return
	}

	contentType := uploadContentType(header.Header.Get("Content-Type"), data)
	mediaType, ok := domain.MediaTypeFromMIME(contentType)
	if !ok {
		a.error(w, http.StatusUnsupportedMediaType, "unsupported_media", fmt.Sprintf("unsupported media type %q", contentType))
		return
	}

	in := analysis.Input{
		Data:      data,
		MIMEType:  contentType,
		Filename:  header.Filename,
		MediaType: mediaType,
		Notes:     strings.TrimSpace(r.FormValue("notes")),
		Style:     strings.TrimSpace(r.FormValue("style")),
	}
	res, err := a.Analyzer.Analyze(r.Context(), in)
	if err != nil {
		metrics.AnalysesTotal.WithLabelValues(a.Analyzer.Name(), string(mediaType), "error").Inc()
		a.fail(w, r, err)
		return
	}
	outcome := "ok"
	if res.Demo {
		outcome = "demo"
	}
	metrics.AnalysesTotal.WithLabelValues(res.Provider, string(mediaType), outcome).Inc()
	a.json(w, http.StatusOK, res)
}

// uploadContentType prefers the declared part type and sniffs when the
// client sent none or a generic one.
func uploadContentType(declared string, data []byte) string {
	if declared != "" {
		if parsed, _, err := mime.ParseMediaType(declared); err == nil && parsed != "application/octet-stream" {
			return parsed
		}
	}
	sniffed := http.DetectContentType(data)
	if parsed, _, err := mime.ParseMediaType(sniffed); err == nil {
		return parsed
	}
	return sniffed
}
