// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package maven

import (
	"encoding/xml"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
)

// Node is a generic XML element with namespace prefixes stripped. POM and
// maven-metadata.xml documents are decoded into a tree of Nodes once; all
// path-based navigation (Value/Values/Elements) walks this tree rather than
// relying on encoding/xml struct tags, because POMs may declare arbitrary
// namespace prefixes that must be ignored uniformly (spec 3, "XML parsing").
type Node struct {
	Name     string
	Attrs    []xml.Attr
	Children []*Node
	Text     string
}

// decodeNode reads a full XML document from r and returns its root element
// as a Node tree, with namespace prefixes normalized away.
func decodeNode(r io.Reader) (*Node, error) {
	dec := newDecoder(r)

	var stack []*Node
	var root *Node
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			n := &Node{Name: t.Name.Local, Attrs: t.Attr}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, n)
			} else {
				root = n
			}
			stack = append(stack, n)
		case xml.EndElement:
			if len(stack) > 0 {
				cur := stack[len(stack)-1]
				cur.Text = strings.TrimSpace(cur.Text)
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].Text += string(t)
			}
		}
	}
	return root, nil
}

// newDecoder returns an xml.Decoder configured to tolerate non-UTF-8
// charsets and non-standard HTML entities, matching the decoder the teacher
// constructs for every Maven registry fetch.
func newDecoder(r io.Reader) *xml.Decoder {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charset.NewReaderLabel
	dec.Entity = xml.HTMLEntity
	dec.Strict = false
	return dec
}

// child returns the first direct child element named name, or nil.
func (n *Node) child(name string) *Node {
	if n == nil {
		return nil
	}
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// childrenNamed returns all direct children named name.
func (n *Node) childrenNamed(name string) []*Node {
	if n == nil {
		return nil
	}
	var out []*Node
	for _, c := range n.Children {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// Elements navigates a "/"-separated path, expanding every matching sibling
// at each segment, and returns every Node that matches the full path.
func (n *Node) Elements(path string) []*Node {
	if n == nil || path == "" {
		return nil
	}
	segs := strings.Split(path, "/")
	cur := []*Node{n}
	for _, seg := range segs {
		var next []*Node
		for _, c := range cur {
			next = append(next, c.childrenNamed(seg)...)
		}
		cur = next
		if len(cur) == 0 {
			return nil
		}
	}
	return cur
}

// Value returns the trimmed text of the first element matching path, or ""
// if there is no match.
func (n *Node) Value(path string) string {
	els := n.Elements(path)
	if len(els) == 0 {
		return ""
	}
	return strings.TrimSpace(els[0].Text)
}

// Values returns the trimmed text of every element matching path.
func (n *Node) Values(path string) []string {
	els := n.Elements(path)
	out := make([]string, len(els))
	for i, e := range els {
		out[i] = strings.TrimSpace(e.Text)
	}
	return out
}

// PropertyMap reads a <properties> style element's direct children as a
// name/value map (one of the few places where arbitrary unknown child
// element names carry data rather than structure).
func (n *Node) PropertyMap(path string) map[string]string {
	els := n.Elements(path)
	if len(els) == 0 {
		return nil
	}
	out := make(map[string]string)
	for _, child := range els[0].Children {
		out[child.Name] = strings.TrimSpace(child.Text)
	}
	return out
}
