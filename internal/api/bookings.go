package api

import (
	"bytes"
	"fmt"
	"net/http"

	"bookable/internal/domain"
	"bookable/internal/export"
	"bookable/internal/models"
	"bookable/internal/service"
)

const (
	maxExportRows = 10000
	xlsxMediaType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

func (s *HTTPServer) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	var req service.CreateBookingRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	booking, err := s.svc.Ledger.Create(r.Context(), req)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, booking)
}

func (s *HTTPServer) handleGetBooking(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	booking, err := s.svc.Ledger.Get(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func bookingFilter(r *http.Request) (models.BookingFilter, error) {
	var filter models.BookingFilter
	serviceID, err := queryID(r, "service_id")
	if err != nil {
		return filter, err
	}
	if serviceID != nil {
		filter.ServiceID = *serviceID
	}
	if filter.StaffMemberID, err = queryID(r, "staff_id"); err != nil {
		return filter, err
	}
	if filter.From, err = queryDate(r, "from", false); err != nil {
		return filter, err
	}
	if filter.To, err = queryDate(r, "to", false); err != nil {
		return filter, err
	}
	if filter.Limit, err = queryInt(r, "limit", 0); err != nil {
		return filter, err
	}
	filter.Statuses = splitCSV(r.URL.Query().Get("status"))
	return filter, nil
}

func (s *HTTPServer) handleListBookings(w http.ResponseWriter, r *http.Request) {
	filter, err := bookingFilter(r)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	bookings, err := s.svc.Ledger.List(r.Context(), filter)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings})
}

type transitionFunc func(r *http.Request, id int64) (*models.Booking, error)

func (s *HTTPServer) transition(w http.ResponseWriter, r *http.Request, fn transitionFunc) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	booking, err := fn(r, id)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *HTTPServer) handleConfirm(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, func(r *http.Request, id int64) (*models.Booking, error) {
		return s.svc.Ledger.Confirm(r.Context(), id)
	})
}

func (s *HTTPServer) handleCancel(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, func(r *http.Request, id int64) (*models.Booking, error) {
		var body struct {
			Reason string `json:"reason"`
		}
		if r.ContentLength != 0 {
			if err := decodeJSON(r, &body); err != nil {
				return nil, err
			}
		}
		return s.svc.Ledger.Cancel(r.Context(), id, body.Reason)
	})
}

func (s *HTTPServer) handleComplete(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, func(r *http.Request, id int64) (*models.Booking, error) {
		return s.svc.Ledger.Complete(r.Context(), id)
	})
}

func (s *HTTPServer) handleNoShow(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, func(r *http.Request, id int64) (*models.Booking, error) {
		return s.svc.Ledger.MarkNoShow(r.Context(), id)
	})
}

func (s *HTTPServer) handleExportBookings(w http.ResponseWriter, r *http.Request) {
	from, err := queryDate(r, "from", true)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	to, err := queryDate(r, "to", true)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if to.Before(from) {
		s.writeDomainError(w, r, domain.Invalid("to", "must not be before from"))
		return
	}
	if days := int(to.Sub(from).Hours()/24) + 1; days > models.MaxPeriodDays {
		s.writeDomainError(w, r, domain.Invalid("to", fmt.Sprintf("range must not exceed %d days", models.MaxPeriodDays)))
		return
	}

	bookings, err := s.svc.Ledger.List(r.Context(), models.BookingFilter{From: from, To: to, Limit: maxExportRows})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	services, err := s.svc.Catalog.ListServices(r.Context(), false)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	report := export.Report{From: from, To: to, Bookings: bookings, Services: services}
	var buf bytes.Buffer
	if err := export.WriteBookings(&buf, report); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", xlsxMediaType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.FileName()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
