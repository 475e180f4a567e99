package main

import (
	"testing"
)

func TestRunDryRun(t *testing.T) {
	clearCredentialEnv(t)
	t.Setenv("GROQ_API_KEY", "gsk_unit_test_key_000001")
	writeTestConfig(t, minimalConfig)

	runFlags.dryRun = true
	defer func() { runFlags.dryRun = false }()

	if err := runServer(nil, nil); err != nil {
		t.Errorf("runServer() dry run error = %v", err)
	}
}

func TestRunDryRunNoCredentials(t *testing.T) {
	clearCredentialEnv(t)
	writeTestConfig(t, minimalConfig)

	runFlags.dryRun = true
	defer func() { runFlags.dryRun = false }()

	// A keyless start is allowed; requests fail until keys arrive.
	if err := runServer(nil, nil); err != nil {
		t.Errorf("runServer() dry run without credentials error = %v", err)
	}
}

func TestRunRejectsBadLogLevel(t *testing.T) {
	clearCredentialEnv(t)
	writeTestConfig(t, minimalConfig)

	runFlags.dryRun = true
	runFlags.logLevel = "shout"
	defer func() {
		runFlags.dryRun = false
		runFlags.logLevel = ""
	}()

	if err := runServer(nil, nil); err == nil {
		t.Error("runServer() should reject an unknown log level")
	}
}

func TestRunCommandExists(t *testing.T) {
	if runCmd.Use != "run" {
		t.Errorf("runCmd.Use = %q, want %q", runCmd.Use, "run")
	}
	for _, name := range []string{"listen", "log-level", "dry-run"} {
		if runCmd.Flags().Lookup(name) == nil {
			t.Errorf("runCmd is missing flag --%s", name)
		}
	}
}
