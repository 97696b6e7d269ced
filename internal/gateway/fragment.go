package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/lazypower/starfield/internal/graph"
)

// Fragment is a partial graph to merge into a user's stored graph. Nodes
// are addressed by name; the store derives ids.
type Fragment struct {
	Nodes []FragmentNode `json:"nodes" validate:"dive"`
	Edges []FragmentEdge `json:"edges" validate:"dive"`
}

// FragmentNode is a concept to add or touch.
type FragmentNode struct {
	Name  string `json:"name" validate:"required,max=200"`
	Level *int   `json:"level,omitempty" validate:"omitempty,min=0"`
}

// FragmentEdge relates two concepts by name.
type FragmentEdge struct {
	From string         `json:"from" validate:"required,max=200"`
	To   string         `json:"to" validate:"required,max=200"`
	Type graph.EdgeType `json:"type" validate:"oneof=PREREQ REL"`
}

var validate = validator.New()

// ParseFragment decodes and validates upload text. Any problem yields a
// *ValidationError.
func ParseFragment(raw []byte) (Fragment, error) {
	f, err := DecodeFragment(raw)
	if err != nil {
		return Fragment{}, err
	}
	if err := f.Validate(); err != nil {
		return Fragment{}, err
	}
	return f, nil
}

// DecodeFragment checks the shape of upload text and decodes it without
// validating field values. Besides the canonical shape it accepts "title"
// for a node name and "source"/"target" for edge endpoints. Edge types
// normalize like graph.ParseEdgeType.
func DecodeFragment(raw []byte) (Fragment, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return Fragment{}, invalid(fmt.Sprintf("malformed JSON: %v", err))
	}

	var problems []string
	nodesRaw, err := array(top, "nodes")
	if err != nil {
		problems = append(problems, err.Error())
	}
	edgesRaw, err := array(top, "edges")
	if err != nil {
		problems = append(problems, err.Error())
	}
	if len(problems) > 0 {
		return Fragment{}, invalid(problems...)
	}

	var f Fragment
	for i, r := range nodesRaw {
		var n struct {
			Name  string   `json:"name"`
			Title string   `json:"title"`
			Level *float64 `json:"level"`
		}
		if err := json.Unmarshal(r, &n); err != nil {
			problems = append(problems, fmt.Sprintf("nodes[%d]: %v", i, err))
			continue
		}
		node := FragmentNode{Name: firstNonBlank(n.Name, n.Title)}
		if n.Level != nil {
			lv := int(*n.Level)
			node.Level = &lv
		}
		f.Nodes = append(f.Nodes, node)
	}
	for i, r := range edgesRaw {
		var e struct {
			From   string `json:"from"`
			To     string `json:"to"`
			Source string `json:"source"`
			Target string `json:"target"`
			Type   string `json:"type"`
		}
		if err := json.Unmarshal(r, &e); err != nil {
			problems = append(problems, fmt.Sprintf("edges[%d]: %v", i, err))
			continue
		}
		f.Edges = append(f.Edges, FragmentEdge{
			From: firstNonBlank(e.From, e.Source),
			To:   firstNonBlank(e.To, e.Target),
			Type: graph.ParseEdgeType(e.Type),
		})
	}
	if len(problems) > 0 {
		return Fragment{}, invalid(problems...)
	}
	return f, nil
}

// Validate checks field constraints on an already decoded fragment.
func (f Fragment) Validate() error {
	err := validate.Struct(f)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return invalid(err.Error())
	}
	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		problems = append(problems, fmt.Sprintf("%s: failed %q", fieldPath(fe.Namespace()), fe.Tag()))
	}
	return invalid(problems...)
}

// fieldPath turns "Fragment.Nodes[0].Name" into "nodes[0].name".
func fieldPath(ns string) string {
	ns = strings.TrimPrefix(ns, "Fragment.")
	return strings.ToLower(ns)
}

func array(top map[string]json.RawMessage, key string) ([]json.RawMessage, error) {
	r, ok := top[key]
	if !ok {
		return nil, fmt.Errorf("%s: missing", key)
	}
	if t := bytes.TrimSpace(r); len(t) == 0 || t[0] != '[' {
		return nil, fmt.Errorf("%s: must be an array", key)
	}
	var out []json.RawMessage
	if err := json.Unmarshal(r, &out); err != nil {
		return nil, fmt.Errorf("%s: %v", key, err)
	}
	return out, nil
}

func firstNonBlank(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

// UploadText parses raw upload text and hands the fragment to gw. Parse
// failures return before gw is called.
func UploadText(ctx context.Context, gw Gateway, userID string, raw []byte) (Fragment, error) {
	f, err := ParseFragment(raw)
	if err != nil {
		return Fragment{}, err
	}
	if err := gw.UploadGraphFragment(ctx, userID, f); err != nil {
		return f, err
	}
	return f, nil
}
