// Package config defines the YAML configuration for the relay, applies
// defaults, and validates the result.
//
// Configuration is loaded from a YAML file, defaults are applied to any
// zero-valued fields, and environment variables with the RELAY_ prefix
// override file values (RELAY_SERVER_LISTEN_ADDRESS,
// RELAY_TELEMETRY_LOGGING_LEVEL, and so on). Validation collects every
// problem into a single ValidationError instead of stopping at the
// first, so a bad config file reports all of its mistakes at once.
//
// The nine known back-ends (groq, deepseek, openrouter, huggingface,
// gemini, ocrspace, brave, serpapi, elevenlabs) ship with built-in
// endpoint URLs, auth styles, and environment key names. A config file
// only needs to mention a back-end to change something about it.
package config
