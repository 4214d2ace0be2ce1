// Package cmd implements the command-line interface for inboxplan.
//
// This package provides the following commands:
//   - run: Execute one pipeline pass: fetch tracked email, extract tasks,
//     deduplicate against prior runs and sync due tasks to the calendar
//   - version: Display version information
//
// The run command is the default command when no subcommand is specified.
package cmd
