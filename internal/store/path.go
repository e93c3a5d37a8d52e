package store

import (
	"strings"

	"github.com/robert-malhotra/go-h5pp/h5err"
)

// CleanPath normalizes a path, ensuring it starts with "/" and has no
// trailing slash. Empty components are dropped.
func CleanPath(path string) string {
	parts := SplitPath(path)
	if len(parts) == 0 {
		return "/"
	}
	return "/" + strings.Join(parts, "/")
}

// SplitPath splits a path into its components.
//
// Examples:
//   - "/" -> []string{}
//   - "/foo" -> []string{"foo"}
//   - "/foo//bar/" -> []string{"foo", "bar"}
func SplitPath(path string) []string {
	var parts []string
	for _, p := range strings.Split(path, "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// parents returns the ancestors of a clean path, outermost first, excluding
// the root.
func parents(path string) []string {
	parts := SplitPath(path)
	out := make([]string, 0, len(parts))
	for i := 1; i < len(parts); i++ {
		out = append(out, "/"+strings.Join(parts[:i], "/"))
	}
	return out
}

// JoinAttrPath creates an attribute path from object path and attribute name.
// Path format: /group/object@attribute_name
func JoinAttrPath(objectPath, attrName string) string {
	if objectPath == "/" {
		return "/@" + attrName
	}
	return objectPath + "@" + attrName
}

// ParseAttrPath splits an attribute path into object path and attribute name.
//
// Examples:
//   - "/@root_attr" -> "/", "root_attr"
//   - "/sensors/temp@calibration" -> "/sensors/temp", "calibration"
func ParseAttrPath(path string) (objectPath, attrName string, err error) {
	at := strings.LastIndex(path, "@")
	if at == -1 {
		return "", "", h5err.New(h5err.InvalidConfig, "attribute path must contain '@' separator: %s", path)
	}
	attrName = path[at+1:]
	if attrName == "" {
		return "", "", h5err.New(h5err.InvalidConfig, "attribute name cannot be empty: %s", path)
	}
	return CleanPath(path[:at]), attrName, nil
}
