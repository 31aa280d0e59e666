// Package svgdoc parses captured vector frames into a small element tree and
// exposes the structural measurements the scoring and detection engines use:
// element counts by tag, text content, root attributes and style presence.
//
// Tags are compared by local name, so namespaced documents
// (xmlns="http://www.w3.org/2000/svg") and bare documents measure the same.
package svgdoc

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"
)

// Namespace is the SVG XML namespace.
const Namespace = "http://www.w3.org/2000/svg"

// RootTag is the expected container tag of a vector frame.
const RootTag = "svg"

// ErrEncoding reports content that is not valid UTF-8.
var ErrEncoding = errors.New("svgdoc: content is not valid UTF-8")

// SyntaxError wraps an XML well-formedness failure.
type SyntaxError struct {
	Err error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("svgdoc: malformed XML: %v", e.Err)
}

func (e *SyntaxError) Unwrap() error {
	return e.Err
}

// Element is one node of the parsed tree. Text holds the character data that
// precedes the first child element, mirroring how XML tree APIs expose it.
type Element struct {
	Tag      string
	Space    string
	Attrs    map[string]string
	Text     string
	Children []*Element

	sawChild bool
}

// Attr reports an attribute value by local name.
func (e *Element) Attr(name string) (string, bool) {
	v, ok := e.Attrs[name]
	return v, ok
}

// Document is a parsed vector frame.
type Document struct {
	Root *Element
}

// ParseFile reads and parses the document at path.
func ParseFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse builds a Document from raw bytes. Invalid UTF-8 yields ErrEncoding;
// anything that is not a single well-formed element tree yields *SyntaxError.
func Parse(data []byte) (*Document, error) {
	if !utf8.Valid(data) {
		return nil, ErrEncoding
	}

	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = true

	var (
		root  *Element
		stack []*Element
	)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &SyntaxError{Err: err}
		}

		switch t := tok.(type) {
		case xml.StartElement:
			el := &Element{
				Tag:   t.Name.Local,
				Space: t.Name.Space,
				Attrs: make(map[string]string, len(t.Attr)),
			}
			for _, a := range t.Attr {
				name := a.Name.Local
				if a.Name.Space == "xmlns" {
					name = "xmlns:" + name
				}
				el.Attrs[name] = a.Value
			}

			if len(stack) == 0 {
				if root != nil {
					return nil, &SyntaxError{Err: errors.New("junk after document element")}
				}
				root = el
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, el)
				parent.sawChild = true
			}
			stack = append(stack, el)

		case xml.EndElement:
			stack = stack[:len(stack)-1]

		case xml.CharData:
			if len(stack) == 0 {
				if strings.TrimSpace(string(t)) != "" {
					return nil, &SyntaxError{Err: errors.New("text outside document element")}
				}
				continue
			}
			current := stack[len(stack)-1]
			if !current.sawChild {
				current.Text += string(t)
			}
		}
	}

	if root == nil {
		return nil, &SyntaxError{Err: errors.New("no element found")}
	}

	return &Document{Root: root}, nil
}

// Walk visits every element in document order, root first.
func (d *Document) Walk(fn func(*Element)) {
	var visit func(*Element)
	visit = func(e *Element) {
		fn(e)
		for _, c := range e.Children {
			visit(c)
		}
	}
	visit(d.Root)
}

// ElementCount returns the number of elements including the root.
func (d *Document) ElementCount() int {
	n := 0
	d.Walk(func(*Element) { n++ })
	return n
}

// TagCounts counts elements by local tag name, root included.
func (d *Document) TagCounts() map[string]int {
	counts := make(map[string]int)
	d.Walk(func(e *Element) { counts[e.Tag]++ })
	return counts
}

// TextElements returns every <text> element.
func (d *Document) TextElements() []*Element {
	var out []*Element
	d.Walk(func(e *Element) {
		if e.Tag == "text" {
			out = append(out, e)
		}
	})
	return out
}

// VisibleTextCount counts <text> elements whose text is not blank.
func (d *Document) VisibleTextCount() int {
	n := 0
	for _, e := range d.TextElements() {
		if strings.TrimSpace(e.Text) != "" {
			n++
		}
	}
	return n
}

// TextLength is the total number of characters held by <text> elements.
func (d *Document) TextLength() int {
	n := 0
	for _, e := range d.TextElements() {
		n += utf8.RuneCountInString(e.Text)
	}
	return n
}

// HasTag reports whether any element (root excluded) has one of the tags.
func (d *Document) HasTag(tags ...string) bool {
	found := false
	d.Walk(func(e *Element) {
		if found || e == d.Root {
			return
		}
		for _, t := range tags {
			if e.Tag == t {
				found = true
				return
			}
		}
	})
	return found
}

// HasStyles reports a style attribute anywhere in the tree or a <style> element.
func (d *Document) HasStyles() bool {
	found := false
	d.Walk(func(e *Element) {
		if found {
			return
		}
		if _, ok := e.Attrs["style"]; ok || e.Tag == "style" {
			found = true
		}
	})
	return found
}

// IsSVGRoot reports whether the root is the <svg> container.
func (d *Document) IsSVGRoot() bool {
	return d.Root.Tag == RootTag
}

// HasNamespace reports an xmlns declaration or a root in the SVG namespace.
func (d *Document) HasNamespace() bool {
	if _, ok := d.Root.Attrs["xmlns"]; ok {
		return true
	}
	return d.Root.Space == Namespace
}

// HasViewBox reports the root bounding declaration.
func (d *Document) HasViewBox() bool {
	_, ok := d.Root.Attrs["viewBox"]
	return ok
}

// HasDimensions reports whether the root declares both width and height.
func (d *Document) HasDimensions() (width, height bool) {
	_, width = d.Root.Attrs["width"]
	_, height = d.Root.Attrs["height"]
	return width, height
}
