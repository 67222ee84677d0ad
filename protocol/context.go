// ABOUTME: The schema-tagged context payload broadcast between windows.
// ABOUTME: Preserves application-defined fields beyond the standard envelope.

package protocol

import "encoding/json"

// Context is an application-defined payload identified by its Type tag.
// Fields outside the standard envelope are kept verbatim in Extra so that
// application payloads survive a round trip through the service untouched.
type Context struct {
	Type string            `json:"-" validate:"required,min=1,max=256"`
	Name string            `json:"-"`
	ID   map[string]string `json:"-"`

	// Extra holds any non-standard top-level fields.
	Extra map[string]json.RawMessage `json:"-"`
}

// MarshalJSON flattens the standard fields and Extra into one object.
// Standard fields win over same-named Extra entries.
func (c Context) MarshalJSON() ([]byte, error) {
	obj := make(map[string]json.RawMessage, len(c.Extra)+3)
	for k, v := range c.Extra {
		obj[k] = v
	}

	typeRaw, err := json.Marshal(c.Type)
	if err != nil {
		return nil, err
	}
	obj["type"] = typeRaw

	if c.Name != "" {
		nameRaw, err := json.Marshal(c.Name)
		if err != nil {
			return nil, err
		}
		obj["name"] = nameRaw
	} else {
		delete(obj, "name")
	}

	if len(c.ID) > 0 {
		idRaw, err := json.Marshal(c.ID)
		if err != nil {
			return nil, err
		}
		obj["id"] = idRaw
	} else {
		delete(obj, "id")
	}

	return json.Marshal(obj)
}

// UnmarshalJSON splits the standard envelope out of the object and stashes
// everything else in Extra.
func (c *Context) UnmarshalJSON(data []byte) error {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}

	if raw, ok := obj["type"]; ok {
		if err := json.Unmarshal(raw, &c.Type); err != nil {
			return err
		}
		delete(obj, "type")
	}
	if raw, ok := obj["name"]; ok {
		if err := json.Unmarshal(raw, &c.Name); err != nil {
			return err
		}
		delete(obj, "name")
	}
	if raw, ok := obj["id"]; ok {
		if err := json.Unmarshal(raw, &c.ID); err != nil {
			return err
		}
		delete(obj, "id")
	}

	if len(obj) > 0 {
		c.Extra = obj
	} else {
		c.Extra = nil
	}
	return nil
}
