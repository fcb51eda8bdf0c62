package extension

import (
	"context"
	"fmt"
	"regexp"

	"apex-dashboard/internal/common/models"
	"apex-dashboard/internal/features/widget"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
	"go.uber.org/zap"
)

// initDefinition matches a top-level `init := func(...)`.
var initDefinition = regexp.MustCompile(`(?m)^init\s*:?=\s*func\s*\(`)

var scriptModules = []string{"fmt", "math", "text", "times", "json"}

// runScript executes a tengo plugin with a `dashboard` handle in scope.
// Scripts defining init get init(dashboard) called after their top level
// has run. It reports whether init was invoked.
func runScript(ctx context.Context, src []byte, host Host, log *zap.Logger) (bool, error) {
	hasInit := initDefinition.Match(src)
	if hasInit {
		src = append(append([]byte{}, src...), []byte("\ninit(dashboard)\n")...)
	}

	script := tengo.NewScript(src)
	script.SetImports(stdlib.GetModuleMap(scriptModules...))

	if err := script.Add("dashboard", dashboardObject(ctx, host, log)); err != nil {
		return false, err
	}
	if err := script.Add("log", logFunction(log)); err != nil {
		return false, err
	}

	if _, err := script.RunContext(ctx); err != nil {
		return hasInit, fmt.Errorf("running script: %w", err)
	}
	return hasInit, nil
}

func logFunction(log *zap.Logger) *tengo.UserFunction {
	return &tengo.UserFunction{
		Name: "log",
		Value: func(args ...tengo.Object) (tengo.Object, error) {
			parts := make([]any, 0, len(args))
			for _, arg := range args {
				if s, ok := tengo.ToString(arg); ok {
					parts = append(parts, s)
				} else {
					parts = append(parts, arg.String())
				}
			}
			log.Info(fmt.Sprint(parts...))
			return tengo.UndefinedValue, nil
		},
	}
}

// toError turns a Go error into a tengo error value so scripts can test
// it with is_error.
func toError(err error) tengo.Object {
	if err == nil {
		return tengo.UndefinedValue
	}
	return &tengo.Error{Value: &tengo.String{Value: err.Error()}}
}

func stringArg(args []tengo.Object, i int, name string) (string, error) {
	s, ok := tengo.ToString(args[i])
	if !ok {
		return "", tengo.ErrInvalidArgumentType{Name: name, Expected: "string", Found: args[i].TypeName()}
	}
	return s, nil
}

func dashboardObject(ctx context.Context, host Host, log *zap.Logger) *tengo.ImmutableMap {
	return &tengo.ImmutableMap{Value: map[string]tengo.Object{
		"active_dashboard": &tengo.UserFunction{
			Name: "active_dashboard",
			Value: func(args ...tengo.Object) (tengo.Object, error) {
				return &tengo.String{Value: host.ActiveDashboardID()}, nil
			},
		},
		"active_role": &tengo.UserFunction{
			Name: "active_role",
			Value: func(args ...tengo.Object) (tengo.Object, error) {
				return &tengo.String{Value: string(host.ActiveRole())}, nil
			},
		},
		"can_edit": &tengo.UserFunction{
			Name: "can_edit",
			Value: func(args ...tengo.Object) (tengo.Object, error) {
				if host.CanEdit() {
					return tengo.TrueValue, nil
				}
				return tengo.FalseValue, nil
			},
		},
		"set_dashboard": &tengo.UserFunction{
			Name: "set_dashboard",
			Value: func(args ...tengo.Object) (tengo.Object, error) {
				if len(args) != 1 {
					return nil, tengo.ErrWrongNumArguments
				}
				id, err := stringArg(args, 0, "id")
				if err != nil {
					return nil, err
				}
				return toError(host.SetDashboard(ctx, id)), nil
			},
		},
		"set_role": &tengo.UserFunction{
			Name: "set_role",
			Value: func(args ...tengo.Object) (tengo.Object, error) {
				if len(args) != 1 {
					return nil, tengo.ErrWrongNumArguments
				}
				role, err := stringArg(args, 0, "role")
				if err != nil {
					return nil, err
				}
				return toError(host.SetRole(ctx, models.Role(role))), nil
			},
		},
		// register_widget(type, content) adds a widget type whose body is
		// the given static content.
		"register_widget": &tengo.UserFunction{
			Name: "register_widget",
			Value: func(args ...tengo.Object) (tengo.Object, error) {
				if len(args) != 2 {
					return nil, tengo.ErrWrongNumArguments
				}
				t, err := stringArg(args, 0, "type")
				if err != nil {
					return nil, err
				}
				if t == "" {
					return toError(fmt.Errorf("widget type must not be empty")), nil
				}
				host.RegisterWidget(models.WidgetType(t), widget.StaticFactory(tengo.ToInterface(args[1])))
				log.Info("widget type registered", zap.String("type", t))
				return tengo.TrueValue, nil
			},
		},
		"publish": &tengo.UserFunction{
			Name: "publish",
			Value: func(args ...tengo.Object) (tengo.Object, error) {
				if len(args) != 2 {
					return nil, tengo.ErrWrongNumArguments
				}
				typ, err := stringArg(args, 0, "type")
				if err != nil {
					return nil, err
				}
				host.Publish(models.Event{Type: models.EventType(typ), Data: tengo.ToInterface(args[1])})
				return tengo.UndefinedValue, nil
			},
		},
	}}
}
