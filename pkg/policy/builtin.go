package policy

import (
	"time"
)

// GetBuiltinPolicies returns all built-in policies.
func GetBuiltinPolicies() []Policy {
	return []Policy{
		instructionNamingPolicy(),
		contextReservedKeysPolicy(),
		contextNonEmptyPolicy(),
	}
}

// instructionNamingPolicy enforces instruction naming conventions.
func instructionNamingPolicy() Policy {
	return Policy{
		Name:        "instruction-naming",
		Description: "Enforces instruction naming conventions (non-empty, no leading or trailing whitespace)",
		Severity:    SeverityError,
		Enabled:     true,
		Tags:        []string{"naming", "conventions"},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Rego: `package agentflow.policies.naming

import rego.v1

# Instructions must carry a name
deny contains violation if {
	input.instruction
	not input.instruction.name
	violation := {
		"message": "Instruction must have a name",
		"severity": "error",
	}
}

deny contains violation if {
	input.instruction
	name := input.instruction.name
	name == ""
	violation := {
		"message": "Instruction name must not be empty",
		"severity": "error",
	}
}

deny contains violation if {
	input.instruction
	name := input.instruction.name
	trim_space(name) != name
	violation := {
		"message": sprintf("Instruction name '%s' must not have leading or trailing whitespace", [name]),
		"severity": "error",
	}
}
`,
	}
}

// contextReservedKeysPolicy blocks context keys in the reserved namespace.
func contextReservedKeysPolicy() Policy {
	return Policy{
		Name:        "context-reserved-keys",
		Description: "Rejects execution context keys starting with an underscore; that namespace is reserved for the engine",
		Severity:    SeverityError,
		Enabled:     true,
		Tags:        []string{"context", "conventions"},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Rego: `package agentflow.policies.reserved

import rego.v1

deny contains violation if {
	some key, _ in input.context
	startswith(key, "_")
	violation := {
		"message": sprintf("Context key '%s' uses the reserved underscore namespace", [key]),
		"severity": "error",
	}
}
`,
	}
}

// contextNonEmptyPolicy warns when an instruction runs against an empty context.
func contextNonEmptyPolicy() Policy {
	return Policy{
		Name:        "context-non-empty",
		Description: "Warns when an instruction is validated against an empty execution context",
		Severity:    SeverityWarning,
		Enabled:     false,
		Tags:        []string{"context"},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Rego: `package agentflow.policies.nonempty

import rego.v1

deny contains violation if {
	count(input.context) == 0
	violation := {
		"message": "Execution context is empty",
		"severity": "warning",
	}
}
`,
	}
}
