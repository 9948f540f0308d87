package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dienynas/attendapi/internal/core/domain"
	"github.com/dienynas/attendapi/internal/core/usecase"
	"github.com/go-chi/chi/v5"
	santhosh "github.com/santhosh-tekuri/jsonschema/v5"
)

type ctxKey string

const (
	timeFormat             = "2006-01-02T15:04:05.999999999Z07:00"
	identityCtxKey  ctxKey = "identity"
	maxJSONBodySize        = 1 << 20
	maxPhotoSize           = 5 << 20
)

type Handler struct {
	attendance *usecase.AttendanceService
	users      *usecase.UserService
	auth       *usecase.AuthService
	audit      *usecase.AuditService
	schemas    *requestSchemas
}

func NewHandler(attendance *usecase.AttendanceService, users *usecase.UserService, auth *usecase.AuthService, audit *usecase.AuditService) (*Handler, error) {
	schemas, err := compileRequestSchemas()
	if err != nil {
		return nil, err
	}
	return &Handler{
		attendance: attendance,
		users:      users,
		auth:       auth,
		audit:      audit,
		schemas:    schemas,
	}, nil
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", h.healthz)
	r.Post("/v1/auth/register", h.register)
	r.Post("/v1/auth/login", h.login)

	r.Group(func(pr chi.Router) {
		pr.Use(h.requireAuth)
		pr.Post("/v1/attendance/check-in", h.checkIn)
		pr.Post("/v1/attendance/check-out", h.checkOut)
		pr.Get("/v1/attendance/today", h.todayAttendance)
		pr.Get("/v1/attendance/me", h.myAttendance)
		pr.Get("/v1/users/me", h.me)
		pr.Put("/v1/users/me", h.updateMe)
		pr.Put("/v1/users/me/photo", h.updateMyPhoto)
		pr.Delete("/v1/users/me/photo", h.removeMyPhoto)

		pr.Group(func(ar chi.Router) {
			ar.Use(h.requireAdmin)
			ar.Get("/v1/attendance", h.adminAttendance)
			ar.Get("/v1/audit-logs", h.auditLogs)
			ar.Get("/v1/users", h.listUsers)
			ar.Put("/v1/users/{id}", h.adminUpdateUser)
		})
	})

	return r
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type updateMeRequest struct {
	PhoneNumber *string `json:"phoneNumber"`
	Position    *string `json:"position"`
	OldPassword string  `json:"oldPassword"`
	NewPassword string  `json:"newPassword"`
}

type adminUpdateUserRequest struct {
	Name        *string `json:"name"`
	PhoneNumber *string `json:"phoneNumber"`
}

type userResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Role        string `json:"role"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
	Photo       string `json:"photo,omitempty"`
	Position    string `json:"position,omitempty"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
}

type attendanceResponse struct {
	ID           int64   `json:"id"`
	UserID       int64   `json:"userId"`
	Date         string  `json:"date"`
	CheckInTime  *string `json:"checkInTime"`
	CheckOutTime *string `json:"checkOutTime"`
	CreatedAt    string  `json:"createdAt"`
}

type attendanceUserResponse struct {
	attendanceResponse
	User struct {
		ID    int64  `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"user"`
}

type auditEntryResponse struct {
	ID          int64           `json:"id"`
	EventID     string          `json:"eventId"`
	ActorUserID *int64          `json:"actorUserId"`
	Action      string          `json:"action"`
	Payload     json.RawMessage `json:"payload"`
	CreatedAt   string          `json:"createdAt"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !h.decodeBody(w, r, h.schemas.register, &req) {
		return
	}

	user, err := h.auth.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toUserResponse(user))
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decodeBody(w, r, h.schemas.login, &req) {
		return
	}

	token, _, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"accessToken": token})
}

func (h *Handler) checkIn(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())

	rec, err := h.attendance.CheckIn(r.Context(), identity.UserID)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAttendanceResponse(rec))
}

func (h *Handler) checkOut(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())

	rec, err := h.attendance.CheckOut(r.Context(), identity.UserID)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAttendanceResponse(rec))
}

func (h *Handler) todayAttendance(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())

	rec, err := h.attendance.Today(r.Context(), identity.UserID)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAttendanceResponse(rec))
}

func (h *Handler) myAttendance(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")

	records, err := h.attendance.MyAttendance(r.Context(), identity.UserID, from, to)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	out := make([]attendanceResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, toAttendanceResponse(rec))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) adminAttendance(w http.ResponseWriter, r *http.Request) {
	filter := domain.AttendanceFilter{Date: r.URL.Query().Get("date")}
	if raw := r.URL.Query().Get("userId"); raw != "" {
		userID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "userId must be integer")
			return
		}
		filter.UserID = userID
	}

	records, err := h.attendance.AdminList(r.Context(), filter)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	out := make([]attendanceUserResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, toAttendanceUserResponse(rec))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) auditLogs(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be integer")
			return
		}
		limit = parsed
	}

	entries, err := h.audit.List(r.Context(), limit)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	out := make([]auditEntryResponse, 0, len(entries))
	for _, entry := range entries {
		out = append(out, toAuditEntryResponse(entry))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())

	user, err := h.users.Me(r.Context(), identity.UserID)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}

func (h *Handler) updateMe(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())

	var req updateMeRequest
	if !h.decodeBody(w, r, h.schemas.updateMe, &req) {
		return
	}

	user, err := h.users.UpdateMe(r.Context(), identity.UserID, usecase.UpdateProfileInput{
		PhoneNumber: req.PhoneNumber,
		Position:    req.Position,
		OldPassword: req.OldPassword,
		NewPassword: req.NewPassword,
	})
	if err != nil {
		handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}

func (h *Handler) updateMyPhoto(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxPhotoSize)
	if err := r.ParseMultipartForm(maxPhotoSize); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	file, header, err := r.FormFile("photo")
	if err != nil {
		writeError(w, http.StatusBadRequest, "photo file is required")
		return
	}
	defer file.Close()

	user, err := h.users.SetPhoto(r.Context(), identity.UserID, header.Filename, file)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}

func (h *Handler) removeMyPhoto(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())

	user, err := h.users.RemovePhoto(r.Context(), identity.UserID)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	filter := domain.UserFilter{Name: r.URL.Query().Get("name")}
	if raw := r.URL.Query().Get("id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "id must be integer")
			return
		}
		filter.ID = id
	}

	users, err := h.users.List(r.Context(), filter)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	out := make([]userResponse, 0, len(users))
	for _, user := range users {
		out = append(out, toUserResponse(user))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) adminUpdateUser(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "id must be integer")
		return
	}

	var req adminUpdateUserRequest
	if !h.decodeBody(w, r, h.schemas.adminUpdateUser, &req) {
		return
	}

	user, err := h.users.AdminUpdate(r.Context(), userID, usecase.AdminUpdateInput{
		Name:        req.Name,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := ""
		auth := strings.TrimSpace(r.Header.Get("Authorization"))
		if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
			token = strings.TrimSpace(auth[7:])
		}

		identity, err := h.auth.Authenticate(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		ctx := context.WithValue(r.Context(), identityCtxKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := identityFromContext(r.Context())
		if identity.Role != domain.RoleAdmin {
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) decodeBody(w http.ResponseWriter, r *http.Request, sch *santhosh.Schema, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodySize)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return false
	}
	if msgs := validateBody(sch, data); msgs != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid request body", "details": msgs})
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return false
	}
	return true
}

func identityFromContext(ctx context.Context) usecase.Identity {
	identity, _ := ctx.Value(identityCtxKey).(usecase.Identity)
	return identity
}

func toUserResponse(user domain.User) userResponse {
	return userResponse{
		ID:          user.ID,
		Name:        user.Name,
		Email:       user.Email,
		Role:        string(user.Role),
		PhoneNumber: user.PhoneNumber,
		Photo:       user.Photo,
		Position:    user.Position,
		CreatedAt:   user.CreatedAt.UTC().Format(timeFormat),
		UpdatedAt:   user.UpdatedAt.UTC().Format(timeFormat),
	}
}

func toAttendanceResponse(rec domain.Attendance) attendanceResponse {
	return attendanceResponse{
		ID:           rec.ID,
		UserID:       rec.UserID,
		Date:         rec.Date,
		CheckInTime:  formatTimePtr(rec.CheckInTime),
		CheckOutTime: formatTimePtr(rec.CheckOutTime),
		CreatedAt:    rec.CreatedAt.UTC().Format(timeFormat),
	}
}

func toAttendanceUserResponse(rec domain.AttendanceWithUser) attendanceUserResponse {
	out := attendanceUserResponse{attendanceResponse: toAttendanceResponse(rec.Attendance)}
	out.User.ID = rec.UserID
	out.User.Name = rec.UserName
	out.User.Email = rec.UserEmail
	return out
}

func toAuditEntryResponse(entry domain.AuditEntry) auditEntryResponse {
	return auditEntryResponse{
		ID:          entry.ID,
		EventID:     entry.EventID,
		ActorUserID: entry.ActorUserID,
		Action:      entry.Action,
		Payload:     json.RawMessage(entry.Payload),
		CreatedAt:   entry.CreatedAt.UTC().Format(timeFormat),
	}
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	formatted := t.UTC().Format(timeFormat)
	return &formatted
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	data, err := json.Marshal(body)
	if err != nil {
		log.Printf("encode json response: %v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(append(data, '\n')); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}

func handleDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrAlreadyCheckedIn),
		errors.Is(err, domain.ErrNoCheckInFound),
		errors.Is(err, domain.ErrAlreadyCheckedOut),
		errors.Is(err, domain.ErrInvalidDate),
		errors.Is(err, domain.ErrInvalidEmail),
		errors.Is(err, domain.ErrInvalidName),
		errors.Is(err, domain.ErrUnsupportedPhoto),
		errors.Is(err, usecase.ErrPasswordPairRequired),
		errors.Is(err, usecase.ErrPasswordMismatch):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, usecase.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, domain.ErrEmailTaken):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
