package capture

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// PathParam describes one templated path segment.
type PathParam struct {
	Name   string
	Type   string
	Format string
}

// Template replaces every numeric or UUID segment of path with {argN},
// numbering from 1.
func Template(path string) (string, []PathParam) {
	var params []PathParam

	parts := strings.Split(path, "/")
	res := make([]string, len(parts))
	for i, p := range parts {
		name := fmt.Sprintf("arg%d", len(params)+1)
		if _, err := strconv.Atoi(p); err == nil {
			res[i] = "{" + name + "}"
			params = append(params, PathParam{Name: name, Type: "integer"})
		} else if _, err := uuid.Parse(p); err == nil {
			res[i] = "{" + name + "}"
			params = append(params, PathParam{Name: name, Type: "string", Format: "uuid"})
		} else {
			res[i] = p
		}
	}

	return strings.Join(res, "/"), params
}
