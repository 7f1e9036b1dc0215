package guard

// Policy maps permission kinds to a default decision, with explicit
// allow/deny overlays taking precedence over the default. Overlay
// precedence is allow > deny > default, mirroring Require's own
// precedence rule.
type Policy struct {
	Default Decision
	Allow   map[Kind]bool
	Deny    map[Kind]bool
}

// decide resolves the policy's decision for kind before any consent
// callback runs.
func (p Policy) decide(kind Kind) Decision {
	if p.Allow[kind] {
		return DecisionAllow
	}
	if p.Deny[kind] {
		return DecisionDeny
	}
	return p.Default
}

func allowSet(kinds ...Kind) map[Kind]bool {
	m := make(map[Kind]bool, len(kinds))
	for _, k := range kinds {
		m[k] = true
	}
	return m
}

// PermissivePolicy grants every permission kind by default.
func PermissivePolicy() Policy {
	return Policy{Default: DecisionAllow}
}

// RestrictivePolicy denies every permission kind by default.
func RestrictivePolicy() Policy {
	return Policy{Default: DecisionDeny}
}

// SafeDefaultsPolicy asks for anything not explicitly covered, but
// pre-allows read-only introspection and pre-denies the two kinds with
// the widest blast radius.
func SafeDefaultsPolicy() Policy {
	return Policy{
		Default: DecisionAsk,
		Allow:   allowSet(KindFileRead, KindEnvRead, KindSystemInfoRead),
		Deny:    allowSet(KindFileExecute, KindProcessSpawn),
	}
}

// ReadOnlyPolicy denies everything except read-only operations (file
// read, env read, system info) and outbound HTTP, which it allows
// outright (no prompting).
func ReadOnlyPolicy() Policy {
	return Policy{
		Default: DecisionDeny,
		Allow:   allowSet(KindFileRead, KindEnvRead, KindSystemInfoRead, KindNetworkHTTP),
	}
}
