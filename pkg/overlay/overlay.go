package overlay

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Document accumulates overlays for one node role. Structured overlays are
// merged into a key tree; literal overlays are kept as raw text and emitted
// after the serialized tree.
type Document struct {
	tree     map[string]any
	literals [][]byte
	applied  []string
}

// NewDocument creates an empty document
func NewDocument() *Document {
	return &Document{tree: make(map[string]any)}
}

// Overlay is one incremental change applied on top of a document
type Overlay interface {
	// Name identifies the overlay in logs and errors
	Name() string

	// Apply merges the overlay into doc
	Apply(doc *Document) error
}

// Apply applies overlays to the document in order
func (d *Document) Apply(overlays ...Overlay) error {
	for _, o := range overlays {
		if o == nil {
			continue
		}
		if err := o.Apply(d); err != nil {
			return fmt.Errorf("failed to apply overlay %s: %w", o.Name(), err)
		}
		d.applied = append(d.applied, o.Name())
	}
	return nil
}

// Applied lists the names of the overlays applied so far
func (d *Document) Applied() []string {
	return append([]string(nil), d.applied...)
}

// Get returns the structured value stored under a top-level key
func (d *Document) Get(key string) (any, bool) {
	v, ok := d.tree[key]
	return v, ok
}

// Render serializes the document. Map keys are sorted, so identical input
// always renders byte-identical output.
func (d *Document) Render() ([]byte, error) {
	var buf bytes.Buffer

	if len(d.tree) > 0 {
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(d.tree); err != nil {
			return nil, fmt.Errorf("failed to encode settings: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("failed to encode settings: %w", err)
		}
	}

	for _, lit := range d.literals {
		if len(lit) == 0 {
			continue
		}
		buf.Write(lit)
		if !bytes.HasSuffix(lit, []byte("\n")) {
			buf.WriteByte('\n')
		}
	}

	return buf.Bytes(), nil
}

// Structured is a key/value overlay merged key by key. On collision the
// overlay's value wins; nested maps are merged recursively.
type Structured struct {
	Label  string
	Values map[string]any
}

// NewStructured creates a structured overlay
func NewStructured(label string, values map[string]any) *Structured {
	return &Structured{Label: label, Values: values}
}

// ParseStructured decodes a YAML mapping into a structured overlay
func ParseStructured(label string, data []byte) (*Structured, error) {
	values := make(map[string]any)
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, &TemplateError{Path: label, Err: err}
	}
	return &Structured{Label: label, Values: values}, nil
}

func (s *Structured) Name() string { return s.Label }

func (s *Structured) Apply(doc *Document) error {
	merge(doc.tree, s.Values)
	return nil
}

// Literal is raw text appended verbatim after everything else. It is never
// parsed or merged, so a key it repeats shadows the structured value under
// last-occurrence-wins parsing.
type Literal struct {
	Label string
	Text  string
}

// NewLiteral creates a literal overlay
func NewLiteral(label, text string) *Literal {
	return &Literal{Label: label, Text: text}
}

func (l *Literal) Name() string { return l.Label }

func (l *Literal) Apply(doc *Document) error {
	doc.literals = append(doc.literals, []byte(l.Text))
	return nil
}

func merge(dst, src map[string]any) {
	for k, v := range src {
		srcMap, srcIsMap := v.(map[string]any)
		dstMap, dstIsMap := dst[k].(map[string]any)
		if srcIsMap && dstIsMap {
			merge(dstMap, srcMap)
			continue
		}
		if srcIsMap {
			v = cloneMap(srcMap)
		}
		dst[k] = v
	}
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	merge(out, m)
	return out
}
