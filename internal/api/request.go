package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"wardrobe/internal/domain"

	"github.com/gorilla/mux"
)

const maxJSONBody = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", domain.ErrValidation, err)
	}
	return nil
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid %s", domain.ErrValidation, name)
	}
	return id, nil
}

// parseDate accepts a calendar date or an RFC 3339 timestamp.
func parseDate(field, raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("%w: %s is required", domain.ErrValidation, field)
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid %s; expected YYYY-MM-DD", domain.ErrValidation, field)
	}
	return t.UTC(), nil
}

func parseFormInt(field, raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", domain.ErrValidation, field)
	}
	return v, nil
}

func parseFormBool(field, raw string) (bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%w: %s must be a boolean", domain.ErrValidation, field)
	}
	return v, nil
}

func principal(r *http.Request) (domain.Principal, error) {
	p, ok := PrincipalFrom(r.Context())
	if !ok {
		return nil, fmt.Errorf("%w: no principal", domain.ErrForbidden)
	}
	return p, nil
}

func renterFrom(r *http.Request) (domain.Renter, error) {
	p, err := principal(r)
	if err != nil {
		return domain.Renter{}, err
	}
	return domain.AsRenter(p)
}

func ownerFrom(r *http.Request) (domain.Owner, error) {
	p, err := principal(r)
	if err != nil {
		return domain.Owner{}, err
	}
	return domain.AsOwner(p)
}

func arbitratorFrom(r *http.Request) (domain.Arbitrator, error) {
	p, err := principal(r)
	if err != nil {
		return domain.Arbitrator{}, err
	}
	return domain.AsArbitrator(p)
}
