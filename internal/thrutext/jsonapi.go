package thrutext

import (
	"encoding/json/jsontext"
	"encoding/json/v2"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// MediaType is the JSON:API content type ThruText speaks.
const MediaType = "application/vnd.api+json"

// TimeLayout is the timestamp format ThruText writes and expects.
const TimeLayout = "2006-01-02T15:04:05.000000Z"

// ID is a resource identifier. ThruText sends ids as strings in resource
// objects and as numbers inside attributes; both decode to the same value.
type ID string

// UnmarshalJSON accepts a JSON string, an integer or null.
func (id *ID) UnmarshalJSON(data []byte) error {
	switch {
	case string(data) == "null":
		*id = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
	default:
		if _, err := strconv.ParseInt(string(data), 10, 64); err != nil {
			return fmt.Errorf("id must be a string or integer, got %s", data)
		}
		*id = ID(data)
	}
	return nil
}

// Time is a ThruText timestamp. The zero value encodes as null.
type Time struct {
	time.Time
}

// MarshalJSON implements json.Marshaler.
func (t Time) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + t.UTC().Format(TimeLayout) + `"`), nil
}

// UnmarshalJSON accepts any RFC 3339 timestamp, an empty string or null.
func (t *Time) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		t.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

// ResourceIdentifier points at another resource.
type ResourceIdentifier struct {
	Type string `json:"type"`
	ID   ID     `json:"id"`
}

// Relationship holds zero or more linked resources. To-one and to-many
// relationships both decode into Data.
type Relationship struct {
	Data []ResourceIdentifier
}

// UnmarshalJSON accepts {"data": null|{...}|[...]}, a bare object, or null.
func (r *Relationship) UnmarshalJSON(data []byte) error {
	r.Data = nil
	if string(data) == "null" {
		return nil
	}

	var wrapper struct {
		Data jsontext.Value `json:"data"`
	}
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return err
	}
	raw := strings.TrimSpace(string(wrapper.Data))
	switch {
	case raw == "" || raw == "null":
		return nil
	case raw[0] == '[':
		return json.Unmarshal(wrapper.Data, &r.Data)
	default:
		var one ResourceIdentifier
		if err := json.Unmarshal(wrapper.Data, &one); err != nil {
			return err
		}
		r.Data = []ResourceIdentifier{one}
		return nil
	}
}

// IDs returns the linked resource ids.
func (r Relationship) IDs() []string {
	out := make([]string, 0, len(r.Data))
	for _, d := range r.Data {
		out = append(out, string(d.ID))
	}
	return out
}

// resource is one JSON:API resource object with typed attributes.
type resource[A any] struct {
	ID            ID                      `json:"id"`
	Type          string                  `json:"type"`
	Attributes    A                       `json:"attributes"`
	Relationships map[string]Relationship `json:"relationships,omitempty"`
	Links         map[string]any          `json:"links,omitempty"`
}

// included is a sideloaded resource of any type.
type included struct {
	ID         ID             `json:"id"`
	Type       string         `json:"type"`
	Attributes map[string]any `json:"attributes"`
}

type document[A any] struct {
	Data     resource[A] `json:"data"`
	Included []included  `json:"included,omitempty"`
}

type listDocument[A any] struct {
	Data     []resource[A] `json:"data"`
	Included []included    `json:"included,omitempty"`
}

// payload is a request body: {"data": {"id", "type", "attributes", "relationships"}}.
type payload struct {
	Data payloadData `json:"data"`
}

type payloadData struct {
	ID            string         `json:"id,omitempty"`
	Type          string         `json:"type,omitempty"`
	Attributes    any            `json:"attributes"`
	Relationships map[string]any `json:"relationships,omitempty"`
}

func newPayload(attributes any) payload {
	return payload{Data: payloadData{Attributes: attributes}}
}

// Params are the query options shared by list and get calls.
type Params struct {
	Include []string
	Filter  map[string]string
}

// Values encodes p as include and filter[key] query parameters.
func (p *Params) Values() url.Values {
	v := url.Values{}
	if p == nil {
		return v
	}
	if len(p.Include) > 0 {
		v.Set("include", strings.Join(p.Include, ","))
	}
	for key, value := range p.Filter {
		v.Set("filter["+key+"]", value)
	}
	return v
}

func decodeDocument[A any](body []byte) (*document[A], error) {
	var doc document[A]
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	return &doc, nil
}

func decodeList[A any](body []byte) (*listDocument[A], error) {
	var doc listDocument[A]
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	return &doc, nil
}
