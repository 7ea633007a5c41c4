package visual

import (
	"encoding/json"
	"fmt"
)

// Scenario is one page comparison. Label and URL are the only fields the
// workflow reads; everything else (selectors, interaction steps, viewports)
// is kept verbatim in Extra and handed back to the diff engine.
type Scenario struct {
	Label      string
	URL        string
	CookiePath string
	Count      string
	Extra      map[string]json.RawMessage
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Scenario) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		return fmt.Errorf("scenario must be an object")
	}

	take := func(key string, dst *string) error {
		v, ok := raw[key]
		if !ok {
			return nil
		}
		delete(raw, key)
		if err := json.Unmarshal(v, dst); err != nil {
			return fmt.Errorf("field %q: %w", key, err)
		}
		return nil
	}

	if _, ok := raw["url"]; !ok {
		return fmt.Errorf("scenario has no url")
	}
	for key, dst := range map[string]*string{
		"label":      &s.Label,
		"url":        &s.URL,
		"cookiePath": &s.CookiePath,
		"count":      &s.Count,
	} {
		if err := take(key, dst); err != nil {
			return err
		}
	}
	s.Extra = raw
	return nil
}

// MarshalJSON implements json.Marshaler.
func (s Scenario) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(s.Extra)+4)
	for k, v := range s.Extra {
		out[k] = v
	}
	if s.Label != "" {
		out["label"] = s.Label
	}
	out["url"] = s.URL
	if s.CookiePath != "" {
		out["cookiePath"] = s.CookiePath
	}
	if s.Count != "" {
		out["count"] = s.Count
	}
	return json.Marshal(out)
}
