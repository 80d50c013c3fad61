package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/dmitrijs2005/wipecert/internal/common"
	"github.com/dmitrijs2005/wipecert/internal/server/models"
)

// maxPayloadBytes bounds a submitted certificate body.
const maxPayloadBytes = 1 << 20

const defaultListLimit = 50

type registerRequest struct {
	Name   string `json:"name"`
	Secret string `json:"secret"`
}

type registerResponse struct {
	StationID string `json:"station_id"`
	Name      string `json:"name"`
}

type loginRequest struct {
	Name   string `json:"name"`
	Secret string `json:"secret"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
}

type certificateResponse struct {
	CertificateID      string          `json:"certificate_id"`
	StationID          string          `json:"station_id"`
	Version            string          `json:"version"`
	DevicePath         string          `json:"device_path"`
	DeviceType         string          `json:"device_type"`
	Mode               string          `json:"mode"`
	VerificationPassed bool            `json:"verification_passed"`
	IssuedAt           time.Time       `json:"issued_at"`
	StorageKey         *string         `json:"storage_key,omitempty"`
	Payload            json.RawMessage `json:"payload,omitempty"`
}

type listResponse struct {
	Certificates []certificateResponse `json:"certificates"`
}

type archiveUploadResponse struct {
	Key       string `json:"key"`
	UploadURL string `json:"upload_url"`
}

type archiveDownloadResponse struct {
	DownloadURL string `json:"download_url"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeServiceError maps service-layer sentinel errors to HTTP status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, common.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, common.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, common.ErrCertificateVerification):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func toCertificateResponse(rec *models.CertificateRecord, includePayload bool) certificateResponse {
	resp := certificateResponse{
		CertificateID:      rec.ID,
		StationID:          rec.StationID,
		Version:            rec.Version,
		DevicePath:         rec.DevicePath,
		DeviceType:         rec.DeviceType,
		Mode:               rec.Mode,
		VerificationPassed: rec.VerificationPassed,
		IssuedAt:           rec.IssuedAt,
		StorageKey:         rec.StorageKey,
	}
	if includePayload {
		resp.Payload = json.RawMessage(rec.Payload)
	}
	return resp
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.Secret == "" {
		writeError(w, http.StatusBadRequest, "name and secret are required")
		return
	}

	st, err := s.stations.Register(r.Context(), req.Name, req.Secret)
	if err != nil {
		s.logger.Error(r.Context(), "station registration failed", "error", err.Error())
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, registerResponse{StationID: st.ID, Name: st.Name})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, err := s.stations.Login(r.Context(), req.Name, req.Secret)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{AccessToken: token})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read request body")
		return
	}

	rec, err := s.certificates.Submit(r.Context(), stationIDFrom(r.Context()), payload)
	if err != nil {
		s.logger.Warn(r.Context(), "certificate submission rejected", "error", err.Error())
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toCertificateResponse(rec, false))
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	recs, err := s.certificates.List(r.Context(), stationIDFrom(r.Context()), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := listResponse{Certificates: []certificateResponse{}}
	for _, rec := range recs {
		resp.Certificates = append(resp.Certificates, toCertificateResponse(rec, false))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	rec, err := s.certificates.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toCertificateResponse(rec, true))
}

func (s *Server) handleArchiveUpload(w http.ResponseWriter, r *http.Request) {
	key, url, err := s.certificates.GetArchiveUploadURL(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, archiveUploadResponse{Key: key, UploadURL: url})
}

func (s *Server) handleArchiveDownload(w http.ResponseWriter, r *http.Request) {
	url, err := s.certificates.GetArchiveDownloadURL(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, archiveDownloadResponse{DownloadURL: url})
}
