/*
Package cli provides helpers shared by the keygate commands.

Command results are written with a Formatter. Results that implement Table
render as an aligned text table or CSV; every result can be written as JSON:

	formatter := cli.NewFormatter(cli.FormatText)
	if err := formatter.FormatTo(os.Stdout, keys); err != nil {
		return err
	}

SignalContext ties a command's lifetime to SIGINT and SIGTERM.
*/
package cli
