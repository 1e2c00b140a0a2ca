// Package routes names HTTP route patterns and reverses them into concrete
// paths.
package routes

import (
	"net/url"
	"strings"

	"github.com/louisbranch/viewkit/weberror"
)

// Registry maps route names to ServeMux patterns so handlers and redirects
// derive paths from a single declaration. Register routes during wiring; the
// registry is not safe for concurrent mutation.
type Registry struct {
	routes map[string]route
}

type route struct {
	pattern  string
	segments []segment
	params   []string
}

type segment struct {
	literal string
	param   string
	rest    bool
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{routes: make(map[string]route)}
}

// Add registers a named pattern. Patterns start with "/", use `{param}` for
// path parameters, and may end with `{param...}` to capture the remainder or
// `{$}` to match the exact path without its subtree.
func (reg *Registry) Add(name, pattern string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return weberror.Config("routes", "route name is required")
	}
	if reg.routes == nil {
		reg.routes = make(map[string]route)
	}
	if _, exists := reg.routes[name]; exists {
		return weberror.Configf("routes", "route %q is already registered", name)
	}
	parsed, err := parsePattern(name, pattern)
	if err != nil {
		return err
	}
	reg.routes[name] = parsed
	return nil
}

// MustAdd registers a named pattern and returns the pattern so mux wiring can
// register the handler in the same statement. It panics on invalid patterns.
func (reg *Registry) MustAdd(name, pattern string) string {
	if err := reg.Add(name, pattern); err != nil {
		panic(err)
	}
	return strings.TrimSpace(pattern)
}

// Pattern returns the registered pattern for name.
func (reg *Registry) Pattern(name string) (string, bool) {
	parsed, ok := reg.lookup(name)
	if !ok {
		return "", false
	}
	return parsed.pattern, true
}

// Reverse builds the concrete path for a named route. Every `{param}` segment
// requires a non-empty value; values are path-escaped. A `{param...}` segment
// keeps slashes and escapes each sub-segment individually.
func (reg *Registry) Reverse(name string, params map[string]string) (string, error) {
	parsed, ok := reg.lookup(name)
	if !ok {
		return "", weberror.Configf("routes", "route %q is not registered", name)
	}
	var b strings.Builder
	for _, seg := range parsed.segments {
		b.WriteString("/")
		if seg.param == "" {
			b.WriteString(seg.literal)
			continue
		}
		value := strings.TrimSpace(params[seg.param])
		if value == "" {
			return "", weberror.Configf("routes", "route %q: parameter %q is required", name, seg.param)
		}
		if seg.rest {
			b.WriteString(escapeRest(value))
			continue
		}
		b.WriteString(escapeSegment(value))
	}
	if b.Len() == 0 {
		return "/", nil
	}
	return b.String(), nil
}

// ReverseArgs builds the concrete path with positional parameter values in
// pattern declaration order.
func (reg *Registry) ReverseArgs(name string, args ...string) (string, error) {
	parsed, ok := reg.lookup(name)
	if !ok {
		return "", weberror.Configf("routes", "route %q is not registered", name)
	}
	if len(args) != len(parsed.params) {
		return "", weberror.Configf("routes", "route %q takes %d parameters, got %d", name, len(parsed.params), len(args))
	}
	params := make(map[string]string, len(args))
	for idx, value := range args {
		params[parsed.params[idx]] = value
	}
	return reg.Reverse(name, params)
}

func (reg *Registry) lookup(name string) (route, bool) {
	if reg == nil || reg.routes == nil {
		return route{}, false
	}
	parsed, ok := reg.routes[strings.TrimSpace(name)]
	return parsed, ok
}

func parsePattern(name, raw string) (route, error) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "/") {
		return route{}, weberror.Configf("routes", "route %q: pattern must start with /", name)
	}
	parts := strings.Split(raw[1:], "/")
	parsed := route{pattern: raw}
	seen := make(map[string]bool)
	for idx, part := range parts {
		last := idx == len(parts)-1
		switch {
		case part == "":
			// A trailing empty segment keeps the pattern's trailing slash.
			if !last {
				return route{}, weberror.Configf("routes", "route %q: empty path segment", name)
			}
			parsed.segments = append(parsed.segments, segment{})
		case part == "{$}":
			// ServeMux's end-of-path marker stays in the pattern but adds
			// nothing to the reversed path.
			if !last {
				return route{}, weberror.Configf("routes", "route %q: {$} must be the final segment", name)
			}
		case strings.HasPrefix(part, "{") && strings.HasSuffix(part, "}"):
			inner := part[1 : len(part)-1]
			rest := strings.HasSuffix(inner, "...")
			paramName := strings.TrimSuffix(inner, "...")
			if paramName == "" || strings.ContainsAny(paramName, "{}/.") {
				return route{}, weberror.Configf("routes", "route %q: invalid parameter segment %q", name, part)
			}
			if rest && !last {
				return route{}, weberror.Configf("routes", "route %q: {%s...} must be the final segment", name, paramName)
			}
			if seen[paramName] {
				return route{}, weberror.Configf("routes", "route %q: duplicate parameter %q", name, paramName)
			}
			seen[paramName] = true
			parsed.segments = append(parsed.segments, segment{param: paramName, rest: rest})
			parsed.params = append(parsed.params, paramName)
		case strings.ContainsAny(part, "{}"):
			return route{}, weberror.Configf("routes", "route %q: malformed segment %q", name, part)
		default:
			parsed.segments = append(parsed.segments, segment{literal: part})
		}
	}
	return parsed, nil
}

func escapeSegment(raw string) string {
	return url.PathEscape(strings.TrimSpace(raw))
}

func escapeRest(raw string) string {
	raw = strings.TrimPrefix(strings.TrimSpace(raw), "/")
	parts := strings.Split(raw, "/")
	for idx, part := range parts {
		parts[idx] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}
