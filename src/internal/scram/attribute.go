// FILE: src/internal/scram/attribute.go
package scram

import (
	"fmt"
	"strings"
)

// Attribute is a single name=value pair of a SCRAM message.
type Attribute struct {
	Name  string
	Value string
}

func (a Attribute) String() string {
	return a.Name + "=" + a.Value
}

// Attributes is an ordered attribute list. Its String form is the wire form.
type Attributes []Attribute

// ParseAttributes splits raw on commas and each pair on its first '='.
// Order is preserved so that String reproduces raw byte for byte.
func ParseAttributes(raw string) (Attributes, error) {
	if raw == "" {
		return nil, fmt.Errorf("%w: empty message", ErrDecoding)
	}

	parts := strings.Split(raw, ",")
	attrs := make(Attributes, 0, len(parts))
	for i, part := range parts {
		name, value, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("%w: pair %d %q has no '='", ErrDecoding, i, part)
		}
		if name == "" {
			return nil, fmt.Errorf("%w: pair %d has an empty name", ErrDecoding, i)
		}
		attrs = append(attrs, Attribute{Name: name, Value: value})
	}
	return attrs, nil
}

// First returns the value of the first attribute called name.
func (a Attributes) First(name string) (string, bool) {
	for _, attr := range a {
		if attr.Name == name {
			return attr.Value, true
		}
	}
	return "", false
}

// All returns the values of every attribute called name, in message order.
func (a Attributes) All(name string) []string {
	var values []string
	for _, attr := range a {
		if attr.Name == name {
			values = append(values, attr.Value)
		}
	}
	return values
}

// String joins the attributes with commas in their stored order.
func (a Attributes) String() string {
	var sb strings.Builder
	for i, attr := range a {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(attr.Name)
		sb.WriteByte('=')
		sb.WriteString(attr.Value)
	}
	return sb.String()
}

func (a Attributes) require(name string) (string, error) {
	v, ok := a.First(name)
	if !ok {
		return "", decodeError(name, "missing")
	}
	return v, nil
}

// escapeSaslName encodes a username for the n= attribute.
func escapeSaslName(s string) string {
	if !strings.ContainsAny(s, ",=") {
		return s
	}
	s = strings.ReplaceAll(s, "=", "=3D")
	return strings.ReplaceAll(s, ",", "=2C")
}

// unescapeSaslName reverses escapeSaslName, rejecting stray '=' sequences.
func unescapeSaslName(s string) (string, error) {
	if !strings.Contains(s, "=") {
		return s, nil
	}
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '=' {
			sb.WriteByte(s[i])
			continue
		}
		if i+3 > len(s) {
			return "", decodeError("n", "truncated escape")
		}
		switch s[i+1 : i+3] {
		case "2C":
			sb.WriteByte(',')
		case "3D":
			sb.WriteByte('=')
		default:
			return "", decodeError("n", "invalid escape %q", s[i:i+3])
		}
		i += 2
	}
	return sb.String(), nil
}
