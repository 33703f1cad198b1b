// Package httpapi exposes the scan-and-win HTTP API.
package httpapi

import (
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/and161185/scanwin/internal/model"
	"github.com/and161185/scanwin/internal/service"
)

// maxUploadBytes caps receipt image uploads.
const maxUploadBytes = 10 << 20

// Server wires services into HTTP handlers.
type Server struct {
	scan     service.ScanService
	progress service.ProgressService
	signKey  []byte
	log      *zap.Logger
}

// New constructs the HTTP server with injected services.
func New(scan service.ScanService, progress service.ProgressService, signKey []byte, log *zap.Logger) *Server {
	return &Server{scan: scan, progress: progress, signKey: signKey, log: log}
}

// Router builds the route tree with middleware applied.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(Recover(s.log))
	r.Use(Logging(s.log))
	r.Use(s.Authenticate)

	r.Get("/healthz", s.handleHealthz)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/scan/verify", s.handleVerify)

		r.Group(func(r chi.Router) {
			r.Use(RequireAuth)
			r.Post("/receipts", s.handleSubmitReceipt)
			r.Post("/progress/content-viewed", s.handleContentViewed)
			r.Post("/progress/social-shares", s.handleShareRecorded)
			r.Post("/progress/referrals", s.handleReferralGenerated)
			r.Get("/progress", s.handleProgress)
		})
	})
	return r
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// remoteIP strips the port from RemoteAddr so the limiter keys on the host
// alone; an ephemeral port per connection would defeat per-IP throttling.
func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// handleVerify authenticates a scanned payload without claiming it.
// Works both anonymous and authenticated; the limiter keys on whichever
// identity is available.
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json", categoryNewInput)
		return
	}
	if req.Payload == "" {
		writeError(w, http.StatusBadRequest, "empty payload", categoryNewInput)
		return
	}

	subject := ""
	if id, ok := UserIDFromCtx(r.Context()); ok {
		subject = id.String()
	}
	tok, err := s.scan.VerifyScan(r.Context(), req.Payload, toGeoPoint(req.Device), subject, remoteIP(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toVerifyResponse(tok))
}

// handleSubmitReceipt runs the full claim pipeline on a multipart upload:
// payload and device fields plus the receipt image.
func (s *Server) handleSubmitReceipt(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromCtx(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "bad multipart form", categoryNewInput)
		return
	}
	payload := r.FormValue("payload")
	if payload == "" {
		writeError(w, http.StatusBadRequest, "empty payload", categoryNewInput)
		return
	}

	var device *model.GeoPoint
	if latStr, lngStr := r.FormValue("lat"), r.FormValue("lng"); latStr != "" && lngStr != "" {
		lat, latErr := strconv.ParseFloat(latStr, 64)
		lng, lngErr := strconv.ParseFloat(lngStr, 64)
		if latErr != nil || lngErr != nil {
			writeError(w, http.StatusBadRequest, "bad coordinates", categoryNewInput)
			return
		}
		device = &model.GeoPoint{Lat: lat, Lng: lng}
	}

	file, _, err := r.FormFile("receipt")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing receipt image", categoryNewInput)
		return
	}
	defer file.Close()
	image, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable upload", categoryNewInput)
		return
	}

	res, err := s.scan.SubmitReceipt(r.Context(), userID, payload, device, image, remoteIP(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAwardResponse(res))
}

func (s *Server) handleContentViewed(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromCtx(r.Context())

	var req scopeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json", categoryNewInput)
		return
	}
	if req.TokenScope == "" {
		writeError(w, http.StatusBadRequest, "empty tokenScope", categoryNewInput)
		return
	}

	res, err := s.progress.ContentViewed(r.Context(), userID, req.TokenScope)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAwardResponse(res))
}

func (s *Server) handleShareRecorded(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromCtx(r.Context())

	var req shareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json", categoryNewInput)
		return
	}
	if req.TokenScope == "" || req.Platform == "" {
		writeError(w, http.StatusBadRequest, "empty tokenScope/platform", categoryNewInput)
		return
	}

	res, err := s.progress.ShareRecorded(r.Context(), userID, req.TokenScope, service.ShareEvent{
		Platform: req.Platform,
		Content:  req.Content,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAwardResponse(res))
}

func (s *Server) handleReferralGenerated(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromCtx(r.Context())

	var req scopeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json", categoryNewInput)
		return
	}
	if req.TokenScope == "" {
		writeError(w, http.StatusBadRequest, "empty tokenScope", categoryNewInput)
		return
	}

	res, err := s.progress.ReferralGenerated(r.Context(), userID, req.TokenScope)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAwardResponse(res))
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromCtx(r.Context())

	scope := r.URL.Query().Get("scope")
	if scope == "" {
		writeError(w, http.StatusBadRequest, "missing scope", categoryNewInput)
		return
	}

	p, err := s.progress.Progress(r.Context(), userID, scope)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProgressResponse(p))
}
