package gateway

import (
	"fmt"
	"time"

	"realtime-gateway/internal/shared/logger"

	"github.com/google/cel-go/cel"
)

// maxSubscriptionLimit clamps an unbounded or excessive query.limit on a
// SUBSCRIBE, per spec §4.4's query-sanitization step.
const maxSubscriptionLimit = 500

// Sanitizer clamps and rewrites a subscription's query before it ever
// reaches the data service, and evaluates per-collection CEL permission
// expressions. Grounded on security_rules_engine.go's
// cel.NewEnv(cel.Declarations(...)) / env.Compile / env.Program / Eval
// pipeline, narrowed to the three accountability fields a permission
// expression can reference.
type Sanitizer struct {
	env         *cel.Env
	permissions map[string]cel.Program
	log         logger.Logger
}

func NewSanitizer(log logger.Logger) (*Sanitizer, error) {
	env, err := cel.NewEnv(
		cel.Variable("user", cel.StringType),
		cel.Variable("role", cel.StringType),
		cel.Variable("admin", cel.BoolType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build CEL environment: %w", err)
	}
	return &Sanitizer{
		env:         env,
		permissions: make(map[string]cel.Program),
		log:         log.WithComponent("sanitize"),
	}, nil
}

// RegisterPermission compiles and caches a boolean CEL expression that
// gates subscription access to collection, evaluated against the
// connection's accountability on every SUBSCRIBE and dispatch.
func (s *Sanitizer) RegisterPermission(collection, expression string) error {
	ast, issues := s.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return fmt.Errorf("failed to compile permission expression for %s: %w", collection, issues.Err())
	}
	program, err := s.env.Program(ast)
	if err != nil {
		return fmt.Errorf("failed to build CEL program for %s: %w", collection, err)
	}
	s.permissions[collection] = program
	return nil
}

// Allows evaluates the registered permission expression for collection
// against acc. A collection with no registered expression is allowed by
// default; collection exposure itself is still separately governed by the
// SchemaResolver.
func (s *Sanitizer) Allows(collection string, acc Accountability) bool {
	program, ok := s.permissions[collection]
	if !ok {
		return true
	}
	out, _, err := program.Eval(map[string]interface{}{
		"user":  acc.User,
		"role":  acc.Role,
		"admin": acc.Admin,
	})
	if err != nil {
		s.log.Warnf("permission expression for %s failed to evaluate: %v", collection, err)
		return false
	}
	allowed, ok := out.Value().(bool)
	return ok && allowed
}

// Sanitize clones q, clamps its limit to [1, maxSubscriptionLimit], and
// resolves $CURRENT_USER/$NOW placeholders anywhere in its filter, per spec
// §4.4's query-sanitization step.
func (s *Sanitizer) Sanitize(q *Query, acc Accountability) *Query {
	clone := q.Clone()

	switch {
	case clone.Limit <= 0:
		clone.Limit = maxSubscriptionLimit
	case clone.Limit > maxSubscriptionLimit:
		clone.Limit = maxSubscriptionLimit
	}

	if clone.Filter != nil {
		clone.Filter = resolvePlaceholders(clone.Filter, acc).(map[string]interface{})
	}
	return clone
}

// resolvePlaceholders recurses through a filter value tree, replacing the
// string sentinels $CURRENT_USER and $NOW with the requesting connection's
// own identity and the current time. This is plain value substitution, not
// a CEL evaluation — CEL is reserved for the boolean permission
// expressions above.
func resolvePlaceholders(value interface{}, acc Accountability) interface{} {
	switch v := value.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, inner := range v {
			out[k] = resolvePlaceholders(inner, acc)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, inner := range v {
			out[i] = resolvePlaceholders(inner, acc)
		}
		return out
	case string:
		switch v {
		case "$CURRENT_USER":
			return acc.User
		case "$NOW":
			return time.Now().UTC().Format(time.RFC3339)
		default:
			return v
		}
	default:
		return v
	}
}
