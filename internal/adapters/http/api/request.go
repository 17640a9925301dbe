package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/okian/castle/internal/domain/filter"
)

const maxBodyBytes = 1 << 20

// Query parameters that are never filter dimensions.
var reserved = map[string]bool{"limit": true, "offset": true, "format": true}

// filterRequest mirrors the OpenAPI schema for a filter state.
type filterRequest struct {
	Filters map[string][]string `json:"filters" validate:"dive,keys,oneof=Department TenureGroup Company_Origin,endkeys,dive,required"`
}

// pageRequest mirrors the paging query parameters of GET /api/rows.
type pageRequest struct {
	Offset int `json:"offset" validate:"gte=0"`
	Limit  int `json:"limit" validate:"gte=0"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func (f filterRequest) validate() error {
	return validationError(validate.Struct(f))
}

func (f filterRequest) state() filter.State {
	return filter.State{Selections: f.Filters}
}

func validationError(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	msgs := make([]string, len(verrs))
	for i, fe := range verrs {
		switch fe.Tag() {
		case "oneof":
			msgs[i] = fmt.Sprintf("%s is not a filter; use one of: %s", fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", "))
		case "required":
			msgs[i] = fmt.Sprintf("%s must not be empty", fe.Field())
		case "gte":
			msgs[i] = fmt.Sprintf("%s must be >= %s", fe.Field(), fe.Param())
		default:
			msgs[i] = fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}

// parseState reads the filter state from repeated query keys, or from a JSON
// body on POST.
func parseState(r *http.Request) (filter.State, error) {
	var req filterRequest
	if r.Method == http.MethodPost {
		body := io.LimitReader(r.Body, maxBodyBytes)
		if err := json.NewDecoder(body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			return filter.State{}, fmt.Errorf("invalid JSON body: %w", err)
		}
	} else {
		for key, vals := range r.URL.Query() {
			if reserved[key] {
				continue
			}
			if req.Filters == nil {
				req.Filters = make(map[string][]string)
			}
			req.Filters[key] = vals
		}
	}
	if err := req.validate(); err != nil {
		return filter.State{}, err
	}
	return req.state(), nil
}

// parsePage reads offset and limit from the query string.
func parsePage(r *http.Request) (pageRequest, error) {
	var p pageRequest
	q := r.URL.Query()
	for name, dst := range map[string]*int{"offset": &p.Offset, "limit": &p.Limit} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return p, fmt.Errorf("%s must be an integer", name)
		}
		*dst = n
	}
	return p, validationError(validate.Struct(p))
}
