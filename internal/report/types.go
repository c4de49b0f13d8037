package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ValidationReport is the report document produced by the FMR validation
// service (report.json in a synchronous response, or the body of a
// completed load status). Every scalar is a pointer so that "absent" and
// "zero" stay distinguishable. Fields of an unexpected JSON type decode to
// their zero value instead of failing the whole document.
type ValidationReport struct {
	Errors      *Flag                `json:"Errors,omitempty"`
	InvalidData *DatasetGroup        `json:"InvalidData,omitempty"`
	ValidData   *DatasetGroup        `json:"ValidData,omitempty"`
	Datasets    List[DatasetSummary] `json:"Datasets,omitempty"`
}

type DatasetGroup struct {
	Datasets List[Dataset] `json:"Datasets,omitempty"`
}

func (g *DatasetGroup) UnmarshalJSON(b []byte) error {
	type plain DatasetGroup
	return decodeObject(b, (*plain)(g))
}

type Dataset struct {
	Structure    *Text  `json:"Structure,omitempty"`
	Series       *Count `json:"Series,omitempty"`
	Observations *Count `json:"Observations,omitempty"`
	Groups       *Count `json:"Groups,omitempty"`
}

func (d *Dataset) UnmarshalJSON(b []byte) error {
	type plain Dataset
	return decodeObject(b, (*plain)(d))
}

type DatasetSummary struct {
	DSD              *Text                      `json:"DSD,omitempty"`
	Dataflow         *Text                      `json:"Dataflow,omitempty"`
	KeysCount        *Count                     `json:"KeysCount,omitempty"`
	ObsCount         *Count                     `json:"ObsCount,omitempty"`
	GroupsCount      *Count                     `json:"GroupsCount,omitempty"`
	ReportedPeriods  Periods                    `json:"ReportedPeriods,omitempty"`
	ValidationReport List[ValidationRuleReport] `json:"ValidationReport,omitempty"`
}

func (s *DatasetSummary) UnmarshalJSON(b []byte) error {
	type plain DatasetSummary
	return decodeObject(b, (*plain)(s))
}

type ValidationRuleReport struct {
	Type   *Text                 `json:"Type,omitempty"`
	Errors List[ValidationError] `json:"Errors,omitempty"`
}

func (r *ValidationRuleReport) UnmarshalJSON(b []byte) error {
	type plain ValidationRuleReport
	return decodeObject(b, (*plain)(r))
}

type ValidationError struct {
	ErrorCode *Text      `json:"ErrorCode,omitempty"`
	Message   *Text      `json:"Message,omitempty"`
	Dataset   *Text      `json:"Dataset,omitempty"`
	Position  *Text      `json:"Position,omitempty"`
	Keys      List[Text] `json:"Keys,omitempty"`
	// ComponentId and ReportedValue are kept raw so that an explicit null
	// stays distinguishable from an absent field.
	ComponentId   json.RawMessage `json:"ComponentId,omitempty"`
	ReportedValue json.RawMessage `json:"ReportedValue,omitempty"`
}

func (e *ValidationError) UnmarshalJSON(b []byte) error {
	type plain ValidationError
	return decodeObject(b, (*plain)(e))
}

// Period is one entry of the ReportedPeriods mapping.
type Period struct {
	Key         string
	Name        *Text
	StartPeriod *Text
	EndPeriod   *Text
}

// Periods keeps ReportedPeriods in document order. Anything but an object
// decodes to no periods.
type Periods []Period

func (p *Periods) UnmarshalJSON(b []byte) error {
	*p = nil
	if !isObject(b) {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(b))
	if _, err := dec.Token(); err != nil {
		return err
	}
	var periods Periods
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("reported period %q: %w", key, err)
		}
		var value struct {
			Name        *Text
			StartPeriod *Text
			EndPeriod   *Text
		}
		if err := decodeObject(raw, &value); err != nil {
			return fmt.Errorf("reported period %q: %w", key, err)
		}
		periods = append(periods, Period{
			Key:         key,
			Name:        value.Name,
			StartPeriod: value.StartPeriod,
			EndPeriod:   value.EndPeriod,
		})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*p = periods
	return nil
}

// List is a JSON array of T. Anything but an array decodes to an empty
// list.
type List[T any] []T

func (l *List[T]) UnmarshalJSON(b []byte) error {
	*l = nil
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return err
	}
	list := make(List[T], 0, len(items))
	for _, item := range items {
		var v T
		if err := json.Unmarshal(item, &v); err != nil {
			return err
		}
		list = append(list, v)
	}
	*l = list
	return nil
}

// Text is a string that also accepts a JSON number or boolean, kept as
// its literal text. Error positions and codes come back either way.
// Objects and arrays decode to the placeholder.
type Text string

func (t *Text) UnmarshalJSON(b []byte) error {
	*t = Text(scalarText(b))
	return nil
}

// Count is a numeric field. The service sends integers, but strings
// holding a number and fractional values are accepted too.
type Count struct {
	text  string
	value float64
	valid bool
}

func (c *Count) UnmarshalJSON(b []byte) error {
	*c = Count{text: placeholder}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return nil
	}
	switch value := v.(type) {
	case float64:
		*c = Count{text: string(bytes.TrimSpace(b)), value: value, valid: true}
	case string:
		c.text = value
		if n, err := strconv.ParseFloat(value, 64); err == nil {
			c.value, c.valid = n, true
		}
	}
	return nil
}

// String returns the count as it appeared in the document.
func (c Count) String() string {
	if c.text == "" {
		return placeholder
	}
	return c.text
}

// Value returns the numeric value, false when the field held no number.
func (c Count) Value() (float64, bool) {
	return c.value, c.valid
}

// Flag is a boolean decoded with JSON truthiness: true, a non-zero number
// and a non-empty string, array or object are all true.
type Flag bool

func (f *Flag) UnmarshalJSON(b []byte) error {
	t, err := truthy(b)
	if err != nil {
		return err
	}
	*f = Flag(t)
	return nil
}

// Parse decodes a report document. The document must be a JSON object.
func Parse(doc []byte) (*ValidationReport, error) {
	if _, err := asObject(doc); err != nil {
		return nil, err
	}
	r := &ValidationReport{}
	if err := json.Unmarshal(doc, r); err != nil {
		return nil, fmt.Errorf("decoding validation report: %w", err)
	}
	return r, nil
}

// HasErrors reports whether the Errors flag is present and set.
func (r *ValidationReport) HasErrors() bool {
	if r == nil || r.Errors == nil {
		return false
	}
	return bool(*r.Errors)
}

// decodeObject decodes b into v when b is a JSON object and leaves v
// untouched otherwise.
func decodeObject(b []byte, v any) error {
	if !isObject(b) {
		return nil
	}
	return json.Unmarshal(b, v)
}

func isObject(b []byte) bool {
	trimmed := bytes.TrimSpace(b)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

// scalarText returns a JSON string as is, any other scalar as its literal
// text, and the placeholder for objects, arrays and null.
func scalarText(b []byte) string {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 || trimmed[0] == '{' || trimmed[0] == '[' || bytes.Equal(trimmed, []byte("null")) {
		return placeholder
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		return s
	}
	return string(trimmed)
}
