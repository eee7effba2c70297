package api

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"mime/multipart"
	"net/http"
	"time"

	"wardrobe/internal/domain"
)

const (
	multipartMemory = 8 << 20
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

func (s *HTTPServer) parseMultipart(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, int64(s.maxPhotos)*s.maxPhotoSize+maxJSONBody)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return fmt.Errorf("%w: invalid multipart form: %v", domain.ErrValidation, err)
	}
	return nil
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

func formFiles(r *http.Request, field string) []*multipart.FileHeader {
	if r.MultipartForm == nil {
		return nil
	}
	return r.MultipartForm.File[field]
}

// savePhotos hands every uploaded file to photo storage and returns the
// issued references, each described as "<label> - <file name>".
func (s *HTTPServer) savePhotos(ctx context.Context, files []*multipart.FileHeader, label string) ([]domain.PhotoInput, error) {
	if len(files) > s.maxPhotos {
		return nil, fmt.Errorf("%w: at most %d photos per upload", domain.ErrValidation, s.maxPhotos)
	}
	if len(files) > 0 && s.svc.Photos == nil {
		return nil, fmt.Errorf("photo storage is not configured")
	}

	photos := make([]domain.PhotoInput, 0, len(files))
	for _, fh := range files {
		url, err := s.savePhoto(ctx, fh)
		if err != nil {
			return nil, err
		}
		photos = append(photos, domain.PhotoInput{
			URL:         url,
			Description: fmt.Sprintf("%s - %s", label, fh.Filename),
		})
	}
	return photos, nil
}

func (s *HTTPServer) savePhoto(ctx context.Context, fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("%w: open upload %s: %v", domain.ErrValidation, fh.Filename, err)
	}
	defer f.Close()

	return s.svc.Photos.Save(ctx, domain.PhotoUpload{
		FileName:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Body:        f,
	})
}

func (s *HTTPServer) handleInitiateReturn(w http.ResponseWriter, r *http.Request) {
	renter, err := renterFrom(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := s.parseMultipart(w, r); err != nil {
		writeDomainError(w, err)
		return
	}
	bookingID, err := parseFormInt("bookingId", r.FormValue("bookingId"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	files := formFiles(r, "photos")
	if len(files) == 0 {
		writeDomainError(w, fmt.Errorf("%w: at least one photo is required", domain.ErrValidation))
		return
	}
	photos, err := s.savePhotos(r.Context(), files, "Return photo")
	if err != nil {
		writeDomainError(w, err)
		return
	}

	ret, err := s.svc.Returns.InitiateReturn(r.Context(), renter, domain.InitiateReturnInput{
		BookingID: bookingID,
		Condition: r.FormValue("condition"),
		Comments:  r.FormValue("comments"),
		Photos:    photos,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ret)
}

func (s *HTTPServer) handleAddPhotos(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := s.parseMultipart(w, r); err != nil {
		writeDomainError(w, err)
		return
	}
	files := formFiles(r, "photos")
	if len(files) == 0 {
		writeDomainError(w, fmt.Errorf("%w: at least one photo is required", domain.ErrValidation))
		return
	}
	photos, err := s.savePhotos(r.Context(), files, "Additional photo")
	if err != nil {
		writeDomainError(w, err)
		return
	}

	ret, err := s.svc.Returns.AddPhotos(r.Context(), p, id, photos)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ret)
}

func (s *HTTPServer) handleGetReturn(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeDomainError(w, err)
		return
	}
	ret, err := s.svc.Returns.GetByID(r.Context(), p, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ret)
}

func (s *HTTPServer) handleGetReturnByBooking(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	bookingID, err := pathID(r, "bookingId")
	if err != nil {
		writeDomainError(w, err)
		return
	}
	ret, err := s.svc.Returns.GetByBooking(r.Context(), p, bookingID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ret)
}

func (s *HTTPServer) handleListRenterReturns(w http.ResponseWriter, r *http.Request) {
	renter, err := renterFrom(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	returns, err := s.svc.Returns.ListForRenter(r.Context(), renter)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"returns": nonNil(returns)})
}

func (s *HTTPServer) handleListOwnerReturns(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerFrom(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	returns, err := s.svc.Returns.ListForOwner(r.Context(), owner)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"returns": nonNil(returns)})
}

func (s *HTTPServer) handleBeginInspection(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerFrom(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeDomainError(w, err)
		return
	}
	ret, err := s.svc.Inspections.BeginInspection(r.Context(), owner, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ret)
}

// reviewRequest is the JSON form of a review. The multipart form uses the
// same field names and adds damagePhotos files.
type reviewRequest struct {
	Condition           string `json:"condition"`
	Comments            string `json:"comments"`
	HasDamage           bool   `json:"hasDamage"`
	DamageDetails       string `json:"damageDetails"`
	EstimatedRepairCost int64  `json:"estimatedRepairCost"`
	DeductAmount        int64  `json:"deductAmount"`
	AdditionalNotes     string `json:"additionalNotes"`
	Resolution          string `json:"resolution"`
	OwnerAddress        string `json:"ownerAddress"`
	ReturnMethod        string `json:"returnMethod"`
}

func (s *HTTPServer) readReview(w http.ResponseWriter, r *http.Request) (reviewRequest, []domain.PhotoInput, error) {
	var req reviewRequest
	if !isMultipart(r) {
		err := decodeJSON(w, r, &req)
		return req, nil, err
	}

	if err := s.parseMultipart(w, r); err != nil {
		return req, nil, err
	}
	var err error
	if req.HasDamage, err = parseFormBool("hasDamage", r.FormValue("hasDamage")); err != nil {
		return req, nil, err
	}
	if req.EstimatedRepairCost, err = parseFormInt("estimatedRepairCost", r.FormValue("estimatedRepairCost")); err != nil {
		return req, nil, err
	}
	if req.DeductAmount, err = parseFormInt("deductAmount", r.FormValue("deductAmount")); err != nil {
		return req, nil, err
	}
	req.Condition = r.FormValue("condition")
	req.Comments = r.FormValue("comments")
	req.DamageDetails = r.FormValue("damageDetails")
	req.AdditionalNotes = r.FormValue("additionalNotes")
	req.Resolution = r.FormValue("resolution")
	req.OwnerAddress = r.FormValue("ownerAddress")
	req.ReturnMethod = r.FormValue("returnMethod")

	photos, err := s.savePhotos(r.Context(), formFiles(r, "damagePhotos"), "Damage photo")
	return req, photos, err
}

func (s *HTTPServer) handleReviewReturn(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerFrom(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeDomainError(w, err)
		return
	}
	req, photos, err := s.readReview(w, r)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	ret, err := s.svc.Inspections.ReviewReturn(r.Context(), owner, domain.ReviewReturnInput{
		ReturnID:            id,
		Condition:           req.Condition,
		Comments:            req.Comments,
		HasDamage:           req.HasDamage,
		DamageDetails:       req.DamageDetails,
		DamagePhotos:        photos,
		EstimatedRepairCost: req.EstimatedRepairCost,
		DeductAmount:        req.DeductAmount,
		AdditionalNotes:     req.AdditionalNotes,
		Resolution:          req.Resolution,
		OwnerAddress:        req.OwnerAddress,
		ReturnMethod:        req.ReturnMethod,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ret)
}

type resolveRequest struct {
	Resolution   string `json:"resolution"`
	RefundAmount *int64 `json:"refundAmount"`
	Notes        string `json:"notes"`
}

func (s *HTTPServer) handleResolveDispute(w http.ResponseWriter, r *http.Request) {
	arbitrator, err := arbitratorFrom(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeDomainError(w, err)
		return
	}
	var req resolveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, err)
		return
	}

	ret, err := s.svc.Inspections.ResolveDispute(r.Context(), arbitrator, domain.ResolveDisputeInput{
		ReturnID:     id,
		Resolution:   req.Resolution,
		RefundAmount: req.RefundAmount,
		Notes:        req.Notes,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ret)
}

func (s *HTTPServer) handleListDisputed(w http.ResponseWriter, r *http.Request) {
	arbitrator, err := arbitratorFrom(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	returns, err := s.svc.Inspections.ListDisputed(r.Context(), arbitrator)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"returns": nonNil(returns)})
}

func (s *HTTPServer) handleDeskReport(w http.ResponseWriter, r *http.Request) {
	if _, err := arbitratorFrom(r); err != nil {
		writeDomainError(w, err)
		return
	}
	if s.svc.Reports == nil {
		writeError(w, http.StatusNotFound, domain.KindNotFound, "reports are not configured")
		return
	}

	var buf bytes.Buffer
	if err := s.svc.Reports.Write(r.Context(), &buf); err != nil {
		s.log.Error().Err(err).Str("request_id", RequestIDFrom(r.Context())).Msg("build desk report")
		writeDomainError(w, err)
		return
	}

	name := fmt.Sprintf("desk_report_%s.xlsx", time.Now().UTC().Format("20060102"))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
