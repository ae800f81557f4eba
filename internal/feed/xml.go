package feed

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"golang.org/x/text/encoding/ianaindex"

	"github.com/roach88/sorsync/internal/ir"
)

// Keys used for XML attributes and for text that sits next to child elements.
const (
	AttrKey = "$"
	TextKey = "_"
)

// rootKinds maps the record tag found under the extract root to its kind.
var rootKinds = []struct {
	tag  string
	kind Kind
}{
	{"student", KindStudent},
	{"department", KindEmployee},
	{"course", KindInstructor},
}

// ParseXML decodes an XML extract and detects its kind.
func ParseXML(r io.Reader, sources Sources) (Feed, error) {
	root, err := DecodeXML(r)
	if err != nil {
		return Feed{}, err
	}

	var timestamp string
	if attrs, ok := root.Obj(AttrKey); ok {
		timestamp, _ = attrs.Text("Timestamp")
	}

	for _, rk := range rootKinds {
		v, ok := root[rk.tag]
		if !ok {
			continue
		}
		return Feed{
			Kind:      rk.kind,
			Source:    sources.For(rk.kind),
			Timestamp: timestamp,
			Records:   objects(rk.tag, v),
		}, nil
	}
	return Feed{}, ErrUnrecognized
}

// objects flattens a one-or-many value into its object members. Empty
// elements decode to "" and carry nothing, so they are skipped.
func objects(tag string, v ir.Value) []ir.Object {
	list := ir.AsList(v)
	out := make([]ir.Object, 0, len(list))
	for i, item := range list {
		obj, ok := item.(ir.Object)
		if !ok {
			slog.Warn("skipping non-element record", "tag", tag, "index", i)
			continue
		}
		out = append(out, obj)
	}
	return out
}

type xmlNode struct {
	name     string
	attrs    ir.Object
	children []xmlChild
	text     strings.Builder
}

type xmlChild struct {
	name  string
	value ir.Value
}

// DecodeXML decodes a document into the value of its root element.
// Unknown entities such as a bare "&" in a name are passed through.
func DecodeXML(r io.Reader) (ir.Object, error) {
	dec := xml.NewDecoder(r)
	dec.Strict = false
	dec.CharsetReader = charsetReader

	var stack []*xmlNode
	var root ir.Value

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			node := &xmlNode{name: strings.ToLower(t.Name.Local)}
			for _, a := range t.Attr {
				if a.Name.Space == "xmlns" || a.Name.Local == "xmlns" {
					continue
				}
				if node.attrs == nil {
					node.attrs = ir.Object{}
				}
				node.attrs[a.Name.Local] = ir.String(a.Value)
			}
			stack = append(stack, node)

		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text.Write(t)
			}

		case xml.EndElement:
			if len(stack) == 0 {
				return nil, fmt.Errorf("decode xml: unbalanced end element %q", t.Name.Local)
			}
			node := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				root = node.value()
				continue
			}
			parent := stack[len(stack)-1]
			parent.children = append(parent.children, xmlChild{name: node.name, value: node.value()})
		}
	}

	if len(stack) > 0 {
		return nil, fmt.Errorf("decode xml: unexpected end of document inside %q", stack[len(stack)-1].name)
	}
	obj, ok := root.(ir.Object)
	if !ok {
		return nil, fmt.Errorf("decode xml: document has no root element content")
	}
	return obj, nil
}

func (n *xmlNode) value() ir.Value {
	text := strings.TrimSpace(n.text.String())
	if len(n.children) == 0 && len(n.attrs) == 0 {
		return ir.String(text)
	}

	obj := ir.Object{}
	if len(n.attrs) > 0 {
		obj[AttrKey] = n.attrs
	}
	for _, c := range n.children {
		switch existing := obj[c.name].(type) {
		case nil:
			obj[c.name] = c.value
		case ir.Array:
			obj[c.name] = append(existing, c.value)
		default:
			obj[c.name] = ir.Array{existing, c.value}
		}
	}
	if text != "" {
		obj[TextKey] = ir.String(text)
	}
	return obj
}

func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := ianaindex.IANA.Encoding(label)
	if err != nil {
		return nil, fmt.Errorf("unsupported charset %q: %w", label, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("unsupported charset %q", label)
	}
	return enc.NewDecoder().Reader(input), nil
}
