package api

import (
	"net/http"

	"wardrobe/internal/domain"
	"wardrobe/internal/models"
)

type createItemRequest struct {
	Name        string `json:"name"`
	Size        string `json:"size"`
	Color       string `json:"color"`
	Category    string `json:"category"`
	PricePerDay int64  `json:"pricePerDay"`
}

func (s *HTTPServer) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerFrom(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	var req createItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, err)
		return
	}

	item, err := s.svc.Items.CreateItem(r.Context(), owner, &models.Item{
		Name:        req.Name,
		Size:        req.Size,
		Color:       req.Color,
		Category:    req.Category,
		PricePerDay: req.PricePerDay,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (s *HTTPServer) handleGetItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeDomainError(w, err)
		return
	}
	item, err := s.svc.Items.GetItem(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *HTTPServer) handleListOwnerItems(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerFrom(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	items, err := s.svc.Items.ListForOwner(r.Context(), owner)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": nonNil(items)})
}

type createBookingRequest struct {
	ItemID    int64  `json:"itemId"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

func (s *HTTPServer) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	renter, err := renterFrom(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	var req createBookingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, err)
		return
	}
	start, err := parseDate("startDate", req.StartDate)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	end, err := parseDate("endDate", req.EndDate)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	booking, err := s.svc.Bookings.CreateBooking(r.Context(), renter, domain.CreateBookingInput{
		ItemID:    req.ItemID,
		StartDate: start,
		EndDate:   end,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, booking)
}

func (s *HTTPServer) handleCancelBooking(w http.ResponseWriter, r *http.Request) {
	renter, err := renterFrom(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeDomainError(w, err)
		return
	}
	booking, err := s.svc.Bookings.CancelBooking(r.Context(), renter, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *HTTPServer) handleListRenterBookings(w http.ResponseWriter, r *http.Request) {
	renter, err := renterFrom(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	bookings, err := s.svc.Bookings.ListForRenter(r.Context(), renter)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": nonNil(bookings)})
}

func (s *HTTPServer) handleListOwnerBookings(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerFrom(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	bookings, err := s.svc.Bookings.ListForOwner(r.Context(), owner)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": nonNil(bookings)})
}

// nonNil keeps empty lists rendering as [] rather than null.
func nonNil[T any](list []T) []T {
	if list == nil {
		return []T{}
	}
	return list
}
