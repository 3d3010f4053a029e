package httputil

import "encoding/json"

// OptionalString distinguishes an absent JSON field from an explicit null,
// which a bare *string cannot do:
//   - Present=false: the field was omitted (leave as is)
//   - Present=true, Value=nil: the field was JSON null (clear)
//   - Present=true, Value=&s: the field carries a string
//
// Handlers use it for merge-patch style bodies, e.g. the move destination
// where null means "to the root level".
type OptionalString struct {
	Present bool
	Value   *string
}

// UnmarshalJSON implements json.Unmarshaler. It only runs when the field
// appears in the document, so Present is unconditionally set.
func (o *OptionalString) UnmarshalJSON(data []byte) error {
	o.Present = true
	return json.Unmarshal(data, &o.Value)
}
