package knowledge

import (
	"bytes"
	"encoding/json"

	"gopkg.in/yaml.v3"
)

// Options holds the caller-supplied additions to the default tables.
// Every field is decoded leniently: entries of the wrong shape become
// inert values instead of decode errors, so a configuration mistake
// never aborts an analysis run.
type Options struct {
	NamedStaticMembers StaticMembers `yaml:"namedStaticMembers" toml:"namedStaticMembers" json:"namedStaticMembers"`
	SyncFunctions      Names         `yaml:"syncFunctions" toml:"syncFunctions" json:"syncFunctions"`
	SyncMethods        Names         `yaml:"syncMethods" toml:"syncMethods" json:"syncMethods"`
}

// StaticMember is an (object identifier, member name) pair such as console.log.
type StaticMember struct {
	Object string
	Member string
}

// Names is a list of function or method names. A non-scalar entry
// decodes to the empty name, which never matches a callee.
type Names []string

// StaticMembers is a list of [object, member] pairs. Anything other than
// a two-element list of scalars decodes to the zero pair.
type StaticMembers []StaticMember

// UnmarshalYAML decodes a mapping; any other value leaves o empty.
func (o *Options) UnmarshalYAML(value *yaml.Node) error {
	*o = Options{}
	if value.Kind != yaml.MappingNode {
		return nil
	}
	type plain Options
	return value.Decode((*plain)(o))
}

func (n *Names) UnmarshalYAML(value *yaml.Node) error {
	*n = nil
	if value.Kind != yaml.SequenceNode {
		return nil
	}
	for _, item := range value.Content {
		*n = append(*n, yamlScalar(item))
	}
	return nil
}

func (m *StaticMembers) UnmarshalYAML(value *yaml.Node) error {
	*m = nil
	if value.Kind != yaml.SequenceNode {
		return nil
	}
	for _, item := range value.Content {
		var pair StaticMember
		if item.Kind == yaml.SequenceNode && len(item.Content) == 2 {
			obj, member := yamlScalar(item.Content[0]), yamlScalar(item.Content[1])
			if obj != "" && member != "" {
				pair = StaticMember{Object: obj, Member: member}
			}
		}
		*m = append(*m, pair)
	}
	return nil
}

func yamlScalar(node *yaml.Node) string {
	if node.Kind != yaml.ScalarNode || node.Tag == "!!null" {
		return ""
	}
	return node.Value
}

// UnmarshalTOML implements toml.Unmarshaler. A value that is not a table
// leaves o empty.
func (o *Options) UnmarshalTOML(data interface{}) error {
	*o = Options{}
	table, ok := data.(map[string]interface{})
	if !ok {
		return nil
	}
	if v, ok := table["namedStaticMembers"]; ok {
		_ = o.NamedStaticMembers.UnmarshalTOML(v)
	}
	if v, ok := table["syncFunctions"]; ok {
		_ = o.SyncFunctions.UnmarshalTOML(v)
	}
	if v, ok := table["syncMethods"]; ok {
		_ = o.SyncMethods.UnmarshalTOML(v)
	}
	return nil
}

// UnmarshalTOML implements toml.Unmarshaler.
func (n *Names) UnmarshalTOML(data interface{}) error {
	*n = nil
	items, ok := data.([]interface{})
	if !ok {
		return nil
	}
	for _, item := range items {
		s, _ := item.(string)
		*n = append(*n, s)
	}
	return nil
}

// UnmarshalTOML implements toml.Unmarshaler.
func (m *StaticMembers) UnmarshalTOML(data interface{}) error {
	*m = nil
	items, ok := data.([]interface{})
	if !ok {
		return nil
	}
	for _, item := range items {
		var pair StaticMember
		if parts, ok := item.([]interface{}); ok && len(parts) == 2 {
			obj, _ := parts[0].(string)
			member, _ := parts[1].(string)
			if obj != "" && member != "" {
				pair = StaticMember{Object: obj, Member: member}
			}
		}
		*m = append(*m, pair)
	}
	return nil
}

func (o *Options) UnmarshalJSON(b []byte) error {
	*o = Options{}
	if trimmed := bytes.TrimSpace(b); len(trimmed) == 0 || trimmed[0] != '{' {
		return nil
	}
	type plain Options
	return json.Unmarshal(b, (*plain)(o))
}

func (n *Names) UnmarshalJSON(b []byte) error {
	*n = nil
	var items []json.RawMessage
	if err := json.Unmarshal(b, &items); err != nil {
		return nil
	}
	for _, item := range items {
		var s string
		if err := json.Unmarshal(item, &s); err != nil {
			s = ""
		}
		*n = append(*n, s)
	}
	return nil
}

func (m *StaticMembers) UnmarshalJSON(b []byte) error {
	*m = nil
	var items []json.RawMessage
	if err := json.Unmarshal(b, &items); err != nil {
		return nil
	}
	for _, item := range items {
		var pair StaticMember
		var parts []string
		if err := json.Unmarshal(item, &parts); err == nil && len(parts) == 2 && parts[0] != "" && parts[1] != "" {
			pair = StaticMember{Object: parts[0], Member: parts[1]}
		}
		*m = append(*m, pair)
	}
	return nil
}

// MarshalYAML writes pairs back in their [object, member] list form.
func (p StaticMember) MarshalYAML() (interface{}, error) {
	return []string{p.Object, p.Member}, nil
}

func (p StaticMember) MarshalJSON() ([]byte, error) {
	return json.Marshal([]string{p.Object, p.Member})
}
