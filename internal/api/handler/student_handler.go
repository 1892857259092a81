package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"progresstracker/internal/common"
	"progresstracker/internal/database"
	"progresstracker/internal/models"
	"progresstracker/internal/queue"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type StudentHandler struct {
	studentRepo    *database.StudentRepository
	contestRepo    *database.ContestRepository
	submissionRepo *database.SubmissionRepository
	syncQueue      *queue.SyncQueue
}

func NewStudentHandler(
	studentRepo *database.StudentRepository,
	contestRepo *database.ContestRepository,
	submissionRepo *database.SubmissionRepository,
	syncQueue *queue.SyncQueue,
) *StudentHandler {
	return &StudentHandler{
		studentRepo:    studentRepo,
		contestRepo:    contestRepo,
		submissionRepo: submissionRepo,
		syncQueue:      syncQueue,
	}
}

func (h *StudentHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.listStudents)
	r.Post("/", h.createStudent)
	r.Get("/{studentID}", h.getStudent)
	r.Put("/{studentID}", h.updateStudent)
	r.Delete("/{studentID}", h.deleteStudent)
	r.Post("/{studentID}/sync", h.requestSync)
	r.Get("/{studentID}/contests", h.listContests)
	r.Get("/{studentID}/submissions", h.listSubmissions)
	r.Get("/{studentID}/problem-stats", h.problemStats)
}

type studentRequest struct {
	Name             string `json:"name"`
	Email            string `json:"email"`
	PhoneNumber      string `json:"phone_number"`
	Handle           string `json:"handle"`
	RemindersEnabled *bool  `json:"reminders_enabled"`
	Active           *bool  `json:"active"`
}

func (h *StudentHandler) listStudents(w http.ResponseWriter, r *http.Request) {
	students, err := h.studentRepo.ListStudents(r.Context())
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), "Failed to fetch students")
		return
	}
	common.RespondWithJSON(w, http.StatusOK, students)
}

func (h *StudentHandler) createStudent(w http.ResponseWriter, r *http.Request) {
	var req studentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	if req.Name == "" || req.Email == "" || req.Handle == "" {
		common.RespondWithError(w, http.StatusBadRequest, "Missing required fields: name, email, handle")
		return
	}

	student := &models.Student{
		Name:             req.Name,
		Email:            req.Email,
		PhoneNumber:      req.PhoneNumber,
		Handle:           req.Handle,
		RemindersEnabled: true,
		Active:           true,
	}
	if req.RemindersEnabled != nil {
		student.RemindersEnabled = *req.RemindersEnabled
	}

	if err := h.studentRepo.CreateStudent(r.Context(), student); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			common.RespondWithError(w, http.StatusConflict, "A student with this email or handle already exists")
			return
		}
		common.RespondWithError(w, common.HTTPStatusFromError(err), "Failed to create student")
		return
	}

	// Fetch remote data off the request path.
	if err := h.syncQueue.Enqueue(r.Context(), student.ID, "student created"); err != nil {
		common.RespondWithError(w, http.StatusInternalServerError, "Student created but sync could not be queued")
		return
	}

	common.RespondWithJSON(w, http.StatusCreated, student)
}

func (h *StudentHandler) getStudent(w http.ResponseWriter, r *http.Request) {
	student, ok := h.loadStudent(w, r)
	if !ok {
		return
	}
	common.RespondWithJSON(w, http.StatusOK, student)
}

func (h *StudentHandler) updateStudent(w http.ResponseWriter, r *http.Request) {
	student, ok := h.loadStudent(w, r)
	if !ok {
		return
	}

	var req studentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	handleChanged := req.Handle != "" && req.Handle != student.Handle

	if req.Name != "" {
		student.Name = req.Name
	}
	if req.Email != "" {
		student.Email = req.Email
	}
	if req.PhoneNumber != "" {
		student.PhoneNumber = req.PhoneNumber
	}
	if req.Handle != "" {
		student.Handle = req.Handle
	}
	if req.RemindersEnabled != nil {
		student.RemindersEnabled = *req.RemindersEnabled
	}
	if req.Active != nil {
		student.Active = *req.Active
	}

	if err := h.studentRepo.SaveStudent(r.Context(), student); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			common.RespondWithError(w, http.StatusConflict, "A student with this email or handle already exists")
			return
		}
		common.RespondWithError(w, common.HTTPStatusFromError(err), "Failed to update student")
		return
	}

	if handleChanged {
		if err := h.syncQueue.Enqueue(r.Context(), student.ID, "handle changed"); err != nil {
			common.RespondWithError(w, http.StatusInternalServerError, "Student updated but sync could not be queued")
			return
		}
	}

	common.RespondWithJSON(w, http.StatusOK, student)
}

func (h *StudentHandler) deleteStudent(w http.ResponseWriter, r *http.Request) {
	id, ok := parseStudentID(w, r)
	if !ok {
		return
	}

	if err := h.studentRepo.DeleteStudent(r.Context(), id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.RespondWithError(w, http.StatusNotFound, "Student not found")
			return
		}
		common.RespondWithError(w, common.HTTPStatusFromError(err), "Failed to delete student")
		return
	}

	common.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "Student deleted successfully"})
}

func (h *StudentHandler) requestSync(w http.ResponseWriter, r *http.Request) {
	student, ok := h.loadStudent(w, r)
	if !ok {
		return
	}

	if err := h.syncQueue.Enqueue(r.Context(), student.ID, "manual request"); err != nil {
		common.RespondWithError(w, http.StatusInternalServerError, "Failed to queue sync")
		return
	}

	common.RespondWithJSON(w, http.StatusAccepted, map[string]string{"message": "Sync queued"})
}

func (h *StudentHandler) listContests(w http.ResponseWriter, r *http.Request) {
	id, ok := parseStudentID(w, r)
	if !ok {
		return
	}
	since, ok := parseDaysWindow(w, r, 365)
	if !ok {
		return
	}

	contests, err := h.contestRepo.GetResultsByStudent(r.Context(), id, since)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), "Failed to fetch contest history")
		return
	}
	common.RespondWithJSON(w, http.StatusOK, contests)
}

func (h *StudentHandler) listSubmissions(w http.ResponseWriter, r *http.Request) {
	id, ok := parseStudentID(w, r)
	if !ok {
		return
	}
	since, ok := parseDaysWindow(w, r, 90)
	if !ok {
		return
	}

	records, err := h.submissionRepo.GetRecordsByStudent(r.Context(), id, since, 50)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), "Failed to fetch submissions")
		return
	}
	common.RespondWithJSON(w, http.StatusOK, records)
}

func (h *StudentHandler) problemStats(w http.ResponseWriter, r *http.Request) {
	id, ok := parseStudentID(w, r)
	if !ok {
		return
	}

	days := 90
	if daysStr := r.URL.Query().Get("days"); daysStr != "" {
		parsed, err := strconv.Atoi(daysStr)
		if err != nil || parsed <= 0 {
			common.RespondWithError(w, http.StatusBadRequest, "Invalid days parameter")
			return
		}
		days = parsed
	}

	stats, err := h.submissionRepo.GetProblemStats(r.Context(), id, days)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), "Failed to fetch problem solving data")
		return
	}
	common.RespondWithJSON(w, http.StatusOK, stats)
}

func (h *StudentHandler) loadStudent(w http.ResponseWriter, r *http.Request) (*models.Student, bool) {
	id, ok := parseStudentID(w, r)
	if !ok {
		return nil, false
	}

	student, err := h.studentRepo.GetStudent(r.Context(), id)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), "Failed to fetch student")
		return nil, false
	}
	if student == nil {
		common.RespondWithError(w, http.StatusNotFound, "Student not found")
		return nil, false
	}
	return student, true
}

func parseStudentID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "studentID"))
	if err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid student ID format")
		return uuid.Nil, false
	}
	return id, true
}

func parseDaysWindow(w http.ResponseWriter, r *http.Request, defaultDays int) (*time.Time, bool) {
	days := defaultDays
	if daysStr := r.URL.Query().Get("days"); daysStr != "" {
		parsed, err := strconv.Atoi(daysStr)
		if err != nil || parsed <= 0 {
			common.RespondWithError(w, http.StatusBadRequest, "Invalid days parameter")
			return nil, false
		}
		days = parsed
	}
	since := time.Now().AddDate(0, 0, -days)
	return &since, true
}
