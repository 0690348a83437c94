package wizard

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// SoilType is one of the four soil classes offered on step 2.
type SoilType string

const (
	SoilRed   SoilType = "red"
	SoilBlack SoilType = "black"
	SoilClay  SoilType = "clay"
	SoilSandy SoilType = "sandy"
)

// SoilTypes lists the soil classes in display order.
var SoilTypes = []SoilType{SoilRed, SoilBlack, SoilClay, SoilSandy}

// ParseSoilType validates a soil type value.
func ParseSoilType(s string) (SoilType, error) {
	st := SoilType(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range SoilTypes {
		if st == known {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: soil type %q", ErrInvalidValue, s)
}

// Field names a single draft input. The string values match the request keys.
type Field string

const (
	FieldLocation    Field = "location"
	FieldRainfall    Field = "rainfall"
	FieldTemperature Field = "temperature"
	FieldSoilType    Field = "soil_type"
	FieldNitrogen    Field = "n"
	FieldPhosphorus  Field = "p"
	FieldPotassium   Field = "k"
)

var allFields = []Field{
	FieldLocation, FieldRainfall, FieldTemperature,
	FieldSoilType,
	FieldNitrogen, FieldPhosphorus, FieldPotassium,
}

var fieldAliases = map[string]Field{
	"location":    FieldLocation,
	"rainfall":    FieldRainfall,
	"temperature": FieldTemperature,
	"temp":        FieldTemperature,
	"soil_type":   FieldSoilType,
	"soiltype":    FieldSoilType,
	"soil":        FieldSoilType,
	"n":           FieldNitrogen,
	"nitrogen":    FieldNitrogen,
	"p":           FieldPhosphorus,
	"phosphorus":  FieldPhosphorus,
	"k":           FieldPotassium,
	"potassium":   FieldPotassium,
}

// ParseField resolves a field name or one of its aliases ("soilType", "nitrogen").
func ParseField(s string) (Field, error) {
	if f, ok := fieldAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownField, s)
}

// Step returns the input step that shows the field.
func (f Field) Step() Step {
	switch f {
	case FieldLocation, FieldRainfall, FieldTemperature:
		return StepLocation
	case FieldSoilType:
		return StepSoil
	case FieldNitrogen, FieldPhosphorus, FieldPotassium:
		return StepNutrients
	}
	return 0
}

// FieldsFor returns the fields shown on an input step, in display order.
func FieldsFor(step Step) []Field {
	var out []Field
	for _, f := range allFields {
		if f.Step() == step {
			out = append(out, f)
		}
	}
	return out
}

// Nutrient slider bounds.
const (
	NutrientMin = 0
	NutrientMax = 200
)

// Draft is the in-progress input record. Text inputs are kept exactly as
// received; coercion happens only at submission.
type Draft struct {
	Location    string   `json:"location"`
	Rainfall    string   `json:"rainfall"`
	Temperature string   `json:"temperature"`
	SoilType    SoilType `json:"soil_type"`
	Nitrogen    int      `json:"n"`
	Phosphorus  int      `json:"p"`
	Potassium   int      `json:"k"`
}

// NewDraft returns a draft with every field at its default.
func NewDraft() Draft {
	return Draft{SoilType: SoilRed}
}

// Sanitized returns a default draft carrying every valid field of d.
func (d Draft) Sanitized() Draft {
	out := NewDraft()
	for _, f := range allFields {
		if v := d.Get(f); v != "" {
			_ = out.Set(f, v)
		}
	}
	return out
}

// Set stores value in field, leaving every other field untouched.
// Text fields take strings (numbers are formatted); nutrient fields take
// integers, integral floats or numeric strings within [0, 200].
func (d *Draft) Set(field Field, value any) error {
	switch field {
	case FieldLocation:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("%w: location must be text", ErrInvalidValue)
		}
		d.Location = norm.NFC.String(s)
	case FieldRainfall, FieldTemperature:
		s, err := numericText(value)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidValue, field, err)
		}
		if field == FieldRainfall {
			d.Rainfall = s
		} else {
			d.Temperature = s
		}
	case FieldSoilType:
		s, ok := value.(string)
		if !ok {
			if st, isSoil := value.(SoilType); isSoil {
				s = string(st)
			} else {
				return fmt.Errorf("%w: soil type must be text", ErrInvalidValue)
			}
		}
		st, err := ParseSoilType(s)
		if err != nil {
			return err
		}
		d.SoilType = st
	case FieldNitrogen, FieldPhosphorus, FieldPotassium:
		n, err := nutrientValue(value)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidValue, field, err)
		}
		switch field {
		case FieldNitrogen:
			d.Nitrogen = n
		case FieldPhosphorus:
			d.Phosphorus = n
		default:
			d.Potassium = n
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	return nil
}

// Get returns the stored value of a field for display.
func (d Draft) Get(field Field) string {
	switch field {
	case FieldLocation:
		return d.Location
	case FieldRainfall:
		return d.Rainfall
	case FieldTemperature:
		return d.Temperature
	case FieldSoilType:
		return string(d.SoilType)
	case FieldNitrogen:
		return strconv.Itoa(d.Nitrogen)
	case FieldPhosphorus:
		return strconv.Itoa(d.Phosphorus)
	case FieldPotassium:
		return strconv.Itoa(d.Potassium)
	}
	return ""
}

// Missing returns the required fields of step that are still blank.
// Only step 1 has required text inputs; the other widgets always hold a value.
func (d Draft) Missing(step Step) []Field {
	var missing []Field
	if step != StepLocation {
		return nil
	}
	if strings.TrimSpace(d.Location) == "" {
		missing = append(missing, FieldLocation)
	}
	if strings.TrimSpace(d.Rainfall) == "" {
		missing = append(missing, FieldRainfall)
	}
	if strings.TrimSpace(d.Temperature) == "" {
		missing = append(missing, FieldTemperature)
	}
	return missing
}

func numericText(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32), nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case json.Number:
		return v.String(), nil
	}
	return "", fmt.Errorf("unsupported type %T", value)
}

func nutrientValue(value any) (int, error) {
	var n int
	switch v := value.(type) {
	case int:
		n = v
	case int64:
		n = int(v)
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("%v is not an integer", v)
		}
		n = int(v)
	case json.Number:
		i, err := v.Int64()
		if err != nil {
			return 0, err
		}
		n = int(i)
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, err
		}
		n = i
	default:
		return 0, fmt.Errorf("unsupported type %T", value)
	}
	if n < NutrientMin || n > NutrientMax {
		return 0, fmt.Errorf("%d outside [%d, %d]", n, NutrientMin, NutrientMax)
	}
	return n, nil
}
