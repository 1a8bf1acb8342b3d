// Package policy provides Open Policy Agent (OPA) integration for AgentFlow.
//
// This package implements policy-backed validation for instruction execution
// contexts using the Rego policy language. It includes built-in policies for
// common governance requirements, supports custom policy loading with hot
// reload, and bridges policies into the engine as validation rules.
//
// # Architecture
//
// The policy system consists of four main components:
//
//  1. Engine - Compiles and evaluates Rego policies
//  2. Loader - Loads policies from files, directories, and bundles
//  3. Types - Data structures for policies, violations, and results
//  4. Built-in Policies - Pre-defined policies for common requirements
//
// # Usage
//
// Creating a policy engine:
//
//	logger := zerolog.New(os.Stdout)
//	engine, err := policy.NewEngine(logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Evaluating an execution context:
//
//	info := &policy.InstructionInfo{Name: "pipeline", Kind: "composite"}
//	result, err := engine.EvaluateContext(ctx, info, ec)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if !result.Allowed {
//	    for _, violation := range result.Violations {
//	        fmt.Printf("Policy %s violated: %s\n", violation.Policy, violation.Message)
//	    }
//	}
//
// Attaching policies to an instruction as a validation rule:
//
//	inst.AddValidationRule(engine.ValidationRule(info))
//
// Loading custom policies:
//
//	paths := []string{
//	    "/etc/agentflow/policies",
//	    "/opt/policies/custom.rego",
//	}
//
//	err = engine.LoadPolicies(ctx, paths)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Built-in Policies
//
// The following policies are included by default:
//
//  1. instruction-naming - Enforces instruction naming conventions
//  2. context-reserved-keys - Rejects context keys in the reserved underscore namespace
//  3. context-non-empty - Warns on empty execution contexts (disabled by default)
//
// # Custom Policies
//
// Custom policies can be written in Rego and loaded from files. The input
// document carries the instruction identity and a snapshot of the execution
// context:
//
//	# Require a data source before processing
//	# severity: error
//	package custom.policies.datasource
//
//	import rego.v1
//
//	deny contains violation if {
//	    input.instruction.kind == "dataproc"
//	    not input.context.data
//
//	    violation := {
//	        "message": "Data processing requires a 'data' context entry",
//	        "severity": "error",
//	    }
//	}
//
// # Severity Levels
//
// Violations have four severity levels:
//
//   - info: Informational messages
//   - warning: Issues that should be reviewed but don't block execution
//   - error: Issues that block execution
//   - critical: Severe issues requiring immediate attention
//
// # Hot Reload
//
// The loader supports watching policy files for changes and reloading
// automatically:
//
//	loader := policy.NewLoader(logger)
//	err = loader.Watch(ctx, paths, func(policies []policy.Policy) error {
//	    return engine.ApplyPolicies(ctx, policies)
//	})
//
// # Performance
//
// Policies are compiled once and reused for multiple evaluations. Caching is
// implemented at both the loader and engine levels.
package policy
