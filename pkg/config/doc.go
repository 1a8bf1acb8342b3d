// Package config loads and validates application configuration.
//
// Configuration starts from built-in defaults, is optionally overlaid
// with a YAML file, then with AGENTFLOW_* environment variables, and is
// finally validated against struct tags. Sections map onto the packages
// they configure: server, store, telemetry, engine, and policy.
//
// Example file:
//
//	server:
//	  listen_addr: ":8080"
//	store:
//	  path: "/var/lib/agentflow/agentflow.db"
//	telemetry:
//	  log_level: debug
//	  log_format: json
//	engine:
//	  max_parallel: 4
//	policy:
//	  enabled: true
//	  paths:
//	    - /etc/agentflow/policies
//	  watch: true
package config
