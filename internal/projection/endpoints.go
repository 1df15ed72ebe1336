package projection

import (
	"fmt"
	"path"
	"slices"

	"github.com/happyvertical/smrt-sub009/internal/manifest"
	"github.com/happyvertical/smrt-sub009/internal/names"
)

// Standard CRUD actions, in the order surfaces list them.
const (
	ActionList   = "list"
	ActionGet    = "get"
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// StandardActions lists the CRUD actions every surface can generate.
var StandardActions = []string{ActionList, ActionGet, ActionCreate, ActionUpdate, ActionDelete}

// Endpoint is one generated REST route.
type Endpoint struct {
	Method string `json:"method"`
	Path   string `json:"path"`
	Action string `json:"action"`
	// Custom is true for routes that call a declared method.
	Custom bool `json:"custom,omitempty"`
}

func (e Endpoint) String() string {
	return fmt.Sprintf("%-6s %s", e.Method, e.Path)
}

// Endpoints lists the REST routes the api config allows for def, under
// prefix (e.g. "/api/v1"). Declared methods named in api.include become
// POST /<collection>/:id/<kebab-name>.
func Endpoints(def *manifest.SmartObjectDefinition, prefix string) []Endpoint {
	api := def.DecoratorConfig.API
	if !api.Enabled {
		return nil
	}

	base := path.Join("/", prefix, def.Collection)
	item := base + "/:id"

	var out []Endpoint
	for _, action := range StandardActions {
		if !api.Allows(action) {
			continue
		}
		switch action {
		case ActionList:
			out = append(out, Endpoint{Method: "GET", Path: base, Action: action})
		case ActionGet:
			out = append(out, Endpoint{Method: "GET", Path: item, Action: action})
		case ActionCreate:
			out = append(out, Endpoint{Method: "POST", Path: base, Action: action})
		case ActionUpdate:
			out = append(out, Endpoint{Method: "PUT", Path: item, Action: action})
		case ActionDelete:
			out = append(out, Endpoint{Method: "DELETE", Path: item, Action: action})
		}
	}

	for _, method := range customActions(def, api) {
		out = append(out, Endpoint{
			Method: "POST",
			Path:   item + "/" + names.ToKebabCase(method),
			Action: method,
			Custom: true,
		})
	}
	return out
}

// customActions returns declared methods explicitly included on a surface,
// in declaration order.
func customActions(def *manifest.SmartObjectDefinition, s manifest.SurfaceConfig) []string {
	var out []string
	for pair := def.Methods.Oldest(); pair != nil; pair = pair.Next() {
		name := pair.Key
		if slices.Contains(StandardActions, name) || !pair.Value.IsPublic {
			continue
		}
		if s.Includes(name) {
			out = append(out, name)
		}
	}
	return out
}
