// Runs external system utilities.
//
// A [Cmd] describes one invocation: program, arguments, extra environment,
// working directory, timeout and the argument values that must never be
// shown. Its String form is a shell-quoted command line with those values
// replaced by "***", suitable for logs and dry-run reports.
//
// Callers depend on the [Runner] interface; [ExecRunner] is the real
// implementation and tests substitute a recording fake.
package system
