package http

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-viper/mapstructure/v2"

	apierrors "hilirisasi/internal/errors"
	"hilirisasi/internal/middleware"
	api "hilirisasi/pkg/contracts/api/v1"
	"hilirisasi/pkg/contracts/domain"
)

// QueryDecoder decodes URL query strings into the api query structs and
// validates them.
type QueryDecoder struct {
	validator *middleware.QueryValidator
}

// NewQueryDecoder creates a decoder.
func NewQueryDecoder() *QueryDecoder {
	return &QueryDecoder{validator: middleware.NewQueryValidator()}
}

// Decode fills dst, a pointer to a query struct, from r's query string.
// Numbers are parsed from text; comma lists fill slices.
func (d *QueryDecoder) Decode(r *http.Request, dst interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "query",
		Squash:           true,
		WeaklyTypedInput: true,
		ErrorUnused:      false,
		DecodeHook:       mapstructure.StringToSliceHookFunc(","),
		Result:           dst,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(flatten(r.URL.Query())); err != nil {
		return apierrors.NewWithDetails(http.StatusBadRequest, "INVALID_PARAMETER", "Invalid query parameter", err.Error())
	}
	return d.validator.ValidateStruct(dst)
}

// flatten keeps single values as strings so weak typing can parse them.
func flatten(values url.Values) map[string]interface{} {
	out := make(map[string]interface{}, len(values))
	for k, v := range values {
		switch len(v) {
		case 0:
		case 1:
			if strings.TrimSpace(v[0]) == "" {
				continue
			}
			out[k] = v[0]
		default:
			out[k] = v
		}
	}
	return out
}

// toFilter maps the API filter onto the domain filter.
func toFilter(q api.FilterQuery) (domain.Filter, error) {
	f := domain.Filter{Year: q.Year, Period: q.Period, Entity: q.Entity, Product: q.Product}
	if q.Semester != "" {
		s, ok := domain.ParseSemester(q.Semester)
		if !ok {
			return f, apierrors.ErrValidation("semester", fmt.Sprintf("unknown semester %q", q.Semester))
		}
		f.Semester = &s
	}
	return f, nil
}

func parseMeasure(field, s string) (domain.Measure, error) {
	m, err := domain.ParseMeasure(s)
	if err != nil {
		return "", apierrors.ErrValidation(field, err.Error())
	}
	return m, nil
}

func parseGroupKey(s string) (domain.GroupKey, error) {
	k, err := domain.ParseGroupKey(s)
	if err != nil {
		return "", apierrors.ErrValidation("by", err.Error())
	}
	return k, nil
}
