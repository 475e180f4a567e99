/*
Package cli provides command-line utilities shared by the relay command.

The cli package includes output rendering, typed command errors, and the
signal handling used by the relay's subcommands.

Output Rendering:

Commands that list things support table and JSON output:

	format, err := cli.ParseFormat(outputFlag)
	if err != nil {
		return err
	}
	if format == cli.FormatJSON {
		return cli.WriteJSON(os.Stdout, rows)
	}
	table := &cli.Table{Headers: []string{"BACKEND", "KEYS"}}
	table.AddRow("groq", "2")
	return table.Render(os.Stdout)

Signal Handling:

For graceful shutdown on SIGINT/SIGTERM:

	ctx := cli.SetupSignalHandler()
	// ctx is cancelled on the first signal; a second signal exits.

Exit Codes:

Commands that need a specific process exit status return an ExitError;
the top level maps any command error to its status with ExitCode.
*/
package cli
