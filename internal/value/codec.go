package value

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// EncodeOpts mirrors §4.6's option record for to_json_string/to_yaml_string.
type EncodeOpts struct {
	SortKeys      bool
	Indent        int // 0 means single-line output
	IgnorePrivate bool
	IgnoreNone    bool

	// YAML-only; present in the original option record but currently
	// unused by decoding (§9 open question: use_fold/use_block/width
	// "present... but unused").
	UseFold  bool
	UseBlock bool
	Width    int

	StreamSeparator string // default "---"
}

func (o EncodeOpts) sep() string {
	if o.StreamSeparator == "" {
		return "---"
	}
	return o.StreamSeparator
}

func (o EncodeOpts) skip(key string, v *Value) bool {
	if o.IgnorePrivate && strings.HasPrefix(key, "_") {
		return true
	}
	if o.IgnoreNone && v != nil && v.Kind == KNone {
		return true
	}
	return false
}

// ToJSONString implements §4.6's to_json_string(opts).
func ToJSONString(v *Value, opts EncodeOpts) (string, error) {
	var sb strings.Builder
	writeJSON(&sb, v, opts, 0)
	return sb.String(), nil
}

func writeJSON(sb *strings.Builder, v *Value, opts EncodeOpts, depth int) {
	nl, pad, padIn := jsonLayout(opts, depth)
	if v == nil {
		sb.WriteString("null")
		return
	}
	switch v.Kind {
	case KNone, KUndefined:
		sb.WriteString("null")
	case KBool:
		sb.WriteString(strconv.FormatBool(v.B))
	case KInt:
		sb.WriteString(strconv.FormatInt(v.I, 10))
	case KFloat:
		b, _ := json.Marshal(v.F)
		sb.Write(b)
	case KStr:
		b, _ := json.Marshal(v.S)
		sb.Write(b)
	case KNumberMultiplier:
		sb.WriteString(strconv.FormatInt(v.NM.Value, 10))
	case KList:
		if len(v.List.Elems) == 0 {
			sb.WriteString("[]")
			return
		}
		sb.WriteString("[")
		sb.WriteString(nl)
		for i, e := range v.List.Elems {
			sb.WriteString(padIn)
			writeJSON(sb, e, opts, depth+1)
			if i != len(v.List.Elems)-1 {
				sb.WriteString(",")
			}
			sb.WriteString(nl)
		}
		sb.WriteString(pad)
		sb.WriteString("]")
	case KDict, KSchema:
		d := v.AsDict()
		keys := orderedKeys(d, opts)
		if len(keys) == 0 {
			sb.WriteString("{}")
			return
		}
		sb.WriteString("{")
		sb.WriteString(nl)
		for i, k := range keys {
			e := d.Entries[k]
			sb.WriteString(padIn)
			kb, _ := json.Marshal(k)
			sb.Write(kb)
			sb.WriteString(":")
			if opts.Indent > 0 {
				sb.WriteString(" ")
			}
			writeJSON(sb, e.Value, opts, depth+1)
			if i != len(keys)-1 {
				sb.WriteString(",")
			}
			sb.WriteString(nl)
		}
		sb.WriteString(pad)
		sb.WriteString("}")
	default:
		sb.WriteString("null")
	}
}

func jsonLayout(opts EncodeOpts, depth int) (nl, pad, padIn string) {
	if opts.Indent <= 0 {
		return "", "", ""
	}
	unit := strings.Repeat(" ", opts.Indent)
	return "\n", strings.Repeat(unit, depth), strings.Repeat(unit, depth+1)
}

func orderedKeys(d *DictValue, opts EncodeOpts) []string {
	var keys []string
	for _, k := range d.Order {
		if opts.skip(k, d.Entries[k].Value) {
			continue
		}
		keys = append(keys, k)
	}
	if opts.SortKeys {
		sort.Strings(keys)
	}
	return keys
}

// FromJSON parses s into a Value, preserving key insertion order (§4.6).
// JSON is a syntactic subset of YAML 1.2, so this reuses the YAML
// decoder's order-preserving yaml.Node to avoid a second hand-rolled
// parser; encoding/json.Marshal is still used for leaf-value escaping
// on the encode side above.
func FromJSON(s string) (*Value, error) {
	var n yaml.Node
	if err := yaml.Unmarshal([]byte(s), &n); err != nil {
		return nil, fmt.Errorf("from_json: %w", err)
	}
	if len(n.Content) == 0 {
		return NewDictValue(), nil
	}
	return nodeToValue(n.Content[0]), nil
}

// ToYAMLString implements §4.6's to_yaml_string(opts) for one document.
func ToYAMLString(v *Value, opts EncodeOpts) (string, error) {
	node := valueToNode(v, opts)
	var sb strings.Builder
	enc := yaml.NewEncoder(&sb)
	enc.SetIndent(yamlIndent(opts))
	if err := enc.Encode(node); err != nil {
		return "", err
	}
	enc.Close()
	return sb.String(), nil
}

// ToYAMLStream encodes docs as a multi-document YAML stream separated by
// opts.StreamSeparator (default "---"), the encode-side counterpart of
// from_yaml's N>1-document handling (§4.6).
func ToYAMLStream(docs []*Value, opts EncodeOpts) (string, error) {
	parts := make([]string, len(docs))
	for i, d := range docs {
		s, err := ToYAMLString(d, opts)
		if err != nil {
			return "", err
		}
		parts[i] = strings.TrimRight(s, "\n")
	}
	return strings.Join(parts, "\n"+opts.sep()+"\n") + "\n", nil
}

func yamlIndent(opts EncodeOpts) int {
	if opts.Indent <= 0 {
		return 2
	}
	return opts.Indent
}

// FromYAML parses a single- or multi-document YAML stream. Per §4.6
// (supplemented from original_source/kclvm/runtime/src/value/val_yaml.rs,
// which the distilled spec dropped): 0 documents decode to an empty
// dict; exactly 1 document decodes to that document directly, not
// wrapped in a list; N>1 documents decode to a list of configs.
func FromYAML(s string) (*Value, error) {
	dec := yaml.NewDecoder(strings.NewReader(s))
	var docs []*yaml.Node
	for {
		var n yaml.Node
		err := dec.Decode(&n)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("from_yaml: %w", err)
		}
		docs = append(docs, &n)
	}
	switch len(docs) {
	case 0:
		return NewDictValue(), nil
	case 1:
		if len(docs[0].Content) == 0 {
			return NewDictValue(), nil
		}
		return nodeToValue(docs[0].Content[0]), nil
	default:
		elems := make([]*Value, len(docs))
		for i, d := range docs {
			if len(d.Content) == 0 {
				elems[i] = NewDictValue()
				continue
			}
			elems[i] = nodeToValue(d.Content[0])
		}
		return NewList(elems...), nil
	}
}

func nodeToValue(n *yaml.Node) *Value {
	if n == nil {
		return None()
	}
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return NewDictValue()
		}
		return nodeToValue(n.Content[0])
	case yaml.ScalarNode:
		return scalarNodeToValue(n)
	case yaml.SequenceNode:
		elems := make([]*Value, len(n.Content))
		for i, c := range n.Content {
			elems[i] = nodeToValue(c)
		}
		return NewList(elems...)
	case yaml.MappingNode:
		d := NewDict()
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i].Value
			d.Set(key, nodeToValue(n.Content[i+1]), 0)
		}
		return &Value{Kind: KDict, Dict: d}
	case yaml.AliasNode:
		return nodeToValue(n.Alias)
	}
	return None()
}

func scalarNodeToValue(n *yaml.Node) *Value {
	switch n.Tag {
	case "!!null":
		return None()
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err == nil {
			return Bool(b)
		}
	case "!!int":
		var i int64
		if err := n.Decode(&i); err == nil {
			return Int(i)
		}
	case "!!float":
		var f float64
		if err := n.Decode(&f); err == nil {
			return Float(f)
		}
	}
	return Str(n.Value)
}

func valueToNode(v *Value, opts EncodeOpts) *yaml.Node {
	if v == nil {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	}
	switch v.Kind {
	case KNone, KUndefined:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	case KBool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(v.B)}
	case KInt:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatInt(v.I, 10)}
	case KFloat:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: strconv.FormatFloat(v.F, 'g', -1, 64)}
	case KStr:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v.S}
	case KNumberMultiplier:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatInt(v.NM.Value, 10)}
	case KList:
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, e := range v.List.Elems {
			n.Content = append(n.Content, valueToNode(e, opts))
		}
		return n
	case KDict, KSchema:
		d := v.AsDict()
		n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, k := range orderedKeys(d, opts) {
			n.Content = append(n.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k},
				valueToNode(d.Entries[k].Value, opts))
		}
		return n
	default:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	}
}
