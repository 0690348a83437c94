package wizard

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Recommendation is the result payload returned by the recommendation service.
type Recommendation struct {
	RecommendedCrop string `json:"recommended_crop"`
	Fertilizer      string `json:"fertilizer"`
}

// Recommender is the remote recommendation collaborator.
type Recommender interface {
	Recommend(ctx context.Context, req Request) (Recommendation, error)
}

// RecommenderFunc adapts a function to the Recommender interface.
type RecommenderFunc func(ctx context.Context, req Request) (Recommendation, error)

// Recommend calls f(ctx, req).
func (f RecommenderFunc) Recommend(ctx context.Context, req Request) (Recommendation, error) {
	return f(ctx, req)
}

// Parsed is a draft whose numeric text has been coerced.
type Parsed struct {
	Location    string
	Rainfall    float64
	Temperature float64
	SoilType    SoilType
	Nitrogen    int
	Phosphorus  int
	Potassium   int
}

// ParseDraft coerces rainfall and temperature to finite floats. The nutrient
// fields are already integers. A *ParseError names every field that failed.
func ParseDraft(d Draft) (Parsed, error) {
	p := Parsed{
		Location:   strings.TrimSpace(d.Location),
		SoilType:   d.SoilType,
		Nitrogen:   d.Nitrogen,
		Phosphorus: d.Phosphorus,
		Potassium:  d.Potassium,
	}

	errs := map[Field]error{}
	var err error
	if p.Rainfall, err = parseFinite(d.Rainfall); err != nil {
		errs[FieldRainfall] = err
	}
	if p.Temperature, err = parseFinite(d.Temperature); err != nil {
		errs[FieldTemperature] = err
	}
	if len(errs) > 0 {
		return p, &ParseError{Fields: errs}
	}
	return p, nil
}

func parseFinite(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", s)
	}
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, fmt.Errorf("%q is not finite", s)
	}
	return v, nil
}

// Number is a numeric request value. When the draft text parsed it encodes as
// a JSON number; otherwise the raw text is forwarded as a JSON string and the
// remote service decides.
type Number struct {
	Value float64
	Raw   string
	Valid bool
}

// MarshalJSON implements json.Marshaler.
func (n Number) MarshalJSON() ([]byte, error) {
	if n.Valid {
		return json.Marshal(n.Value)
	}
	return json.Marshal(n.Raw)
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(data []byte) error {
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*n = Number{Value: f, Raw: strconv.FormatFloat(f, 'f', -1, 64), Valid: true}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*n = Number{Raw: s}
	return nil
}

// Request is the body sent to the recommendation service.
type Request struct {
	Location    string   `json:"location"`
	Rainfall    Number   `json:"rainfall"`
	Temperature Number   `json:"temperature"`
	SoilType    SoilType `json:"soil_type"`
	N           int      `json:"n"`
	P           int      `json:"p"`
	K           int      `json:"k"`
}

// NewRequest builds the request for a draft. It never fails: fields that do
// not parse are carried as raw text.
func NewRequest(d Draft) Request {
	parsed, err := ParseDraft(d)
	var bad map[Field]error
	if pe, ok := err.(*ParseError); ok {
		bad = pe.Fields
	}

	number := func(f Field, raw string, v float64) Number {
		if _, failed := bad[f]; failed {
			return Number{Raw: raw}
		}
		return Number{Value: v, Raw: raw, Valid: true}
	}

	return Request{
		Location:    parsed.Location,
		Rainfall:    number(FieldRainfall, d.Rainfall, parsed.Rainfall),
		Temperature: number(FieldTemperature, d.Temperature, parsed.Temperature),
		SoilType:    parsed.SoilType,
		N:           parsed.Nitrogen,
		P:           parsed.Phosphorus,
		K:           parsed.Potassium,
	}
}
