// Relay is a resilience layer between an application and interchangeable
// third-party inference back-ends.
//
// It exposes task-oriented HTTP endpoints and, per request, decides which
// back-end and which credential serve each attempt:
//   - Credential pools with daily capacity tracking and rotation
//   - Per-back-end circuit breakers with automatic recovery probes
//   - Capability-based routing with ordered fallback across back-ends
//   - An attempt journal for after-the-fact routing diagnostics
//
// Usage:
//
//	# Start the relay with the default configuration
//	relay run
//
//	# Start with a custom configuration file
//	relay run --config /etc/relay/relay.yaml
//
//	# Validate a configuration file
//	relay validate --config relay.yaml
//
//	# Inspect resolved credentials
//	relay keys list
//	relay keys check
//
//	# Query the attempt journal
//	relay journal list --task chat --outcome transient
package main

func main() {
	Execute()
}
