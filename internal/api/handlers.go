package api

import (
	"net/http"
	"strings"

	"bookable/internal/domain"
	"bookable/internal/models"
)

func (s *HTTPServer) handleListServices(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("all") != "true"
	services, err := s.svc.Catalog.ListServices(r.Context(), activeOnly)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"services": services})
}

func (s *HTTPServer) handleGetService(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	svc, err := s.svc.Catalog.GetService(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, svc)
}

func (s *HTTPServer) handleCreateService(w http.ResponseWriter, r *http.Request) {
	svc := models.NewServiceDefinition()
	if err := decodeJSON(r, &svc); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	svc.ID = 0
	if err := s.svc.Catalog.CreateService(r.Context(), &svc); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, svc)
}

func (s *HTTPServer) handleUpdateService(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	// fields left out of the body keep their stored values
	svc, err := s.svc.Catalog.GetService(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if err := decodeJSON(r, svc); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	svc.ID = id
	if err := s.svc.Catalog.UpdateService(r.Context(), svc); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, svc)
}

func (s *HTTPServer) handleDeactivateService(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if err := s.svc.Catalog.DeactivateService(r.Context(), id); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) handleListStaff(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	members, err := s.svc.Catalog.ListStaffMembers(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"staff": members})
}

func (s *HTTPServer) handleAddStaff(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	var body struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(r, &body); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	member := &models.StaffMember{ServiceID: id, Name: strings.TrimSpace(body.Name)}
	if err := s.svc.Catalog.AddStaffMember(r.Context(), member); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, member)
}

func (s *HTTPServer) handleDeactivateStaff(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if err := s.svc.Catalog.DeactivateStaffMember(r.Context(), id); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type windowRequest struct {
	DayOfWeek     int              `json:"day_of_week"`
	StartTime     models.ClockTime `json:"start_time"`
	EndTime       models.ClockTime `json:"end_time"`
	StaffMemberID *int64           `json:"staff_member_id,omitempty"`
	IsActive      *bool            `json:"is_active,omitempty"`
}

func (s *HTTPServer) handleListWindows(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	windows, err := s.svc.Calendar.ListWindows(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"windows": windows})
}

func (s *HTTPServer) handleAddWindow(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	var body windowRequest
	if err := decodeJSON(r, &body); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	window := &models.AvailabilityWindow{
		ServiceID:     id,
		DayOfWeek:     body.DayOfWeek,
		StartTime:     body.StartTime,
		EndTime:       body.EndTime,
		StaffMemberID: body.StaffMemberID,
	}
	if err := s.svc.Calendar.AddWindow(r.Context(), window); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, window)
}

func (s *HTTPServer) handleUpdateWindow(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	existing, err := s.svc.Calendar.GetWindow(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	var body windowRequest
	if err := decodeJSON(r, &body); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	existing.DayOfWeek = body.DayOfWeek
	existing.StartTime = body.StartTime
	existing.EndTime = body.EndTime
	existing.StaffMemberID = body.StaffMemberID
	if body.IsActive != nil {
		existing.IsActive = *body.IsActive
	}
	if err := s.svc.Calendar.UpdateWindow(r.Context(), existing); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, existing)
}

func (s *HTTPServer) handleRemoveWindow(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	softDeleted, err := s.svc.Calendar.RemoveWindow(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "soft_deleted": softDeleted})
}

func (s *HTTPServer) handleSlots(w http.ResponseWriter, r *http.Request) {
	id, staffID, err := serviceScope(r)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	date, err := queryDate(r, "date", true)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	slots, err := s.svc.Availability.ListAvailableSlots(r.Context(), id, staffID, date)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"date": date.Format(models.DateFormat), "slots": slots})
}

func (s *HTTPServer) handleCheckSlot(w http.ResponseWriter, r *http.Request) {
	id, staffID, err := serviceScope(r)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	date, err := queryDate(r, "date", true)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	at, err := models.ParseClockTime(strings.TrimSpace(r.URL.Query().Get("time")))
	if err != nil {
		s.writeDomainError(w, r, domain.Invalid("time", "expected HH:MM or HH:MM:SS"))
		return
	}
	check, err := s.svc.Availability.CheckSlot(r.Context(), id, staffID, date, at)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, check)
}

func (s *HTTPServer) handlePeriod(w http.ResponseWriter, r *http.Request) {
	id, staffID, err := serviceScope(r)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	start, err := queryDate(r, "start", true)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	days, err := queryInt(r, "days", 7)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	period, err := s.svc.Availability.GetAvailabilityForPeriod(r.Context(), id, staffID, start, days)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"days": period})
}

func serviceScope(r *http.Request) (int64, *int64, error) {
	id, err := pathID(r, "id")
	if err != nil {
		return 0, nil, err
	}
	staffID, err := queryID(r, "staff_id")
	if err != nil {
		return 0, nil, err
	}
	return id, staffID, nil
}
