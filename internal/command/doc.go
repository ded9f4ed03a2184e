// Parses control requests and runs the workflow behind each command.
//
// The [Registry] is a static table built once at startup. Every entry names
// a handler and a scope: instance commands take a configured server name as
// their first argument, global commands do not. The [Dispatcher] tokenizes
// a request, resolves the command and the server before any handler runs,
// and hands the handler an [Env] holding exactly one configuration snapshot.
//
// Handlers never return errors. Every outcome, including a recovered panic,
// becomes a [result.Result]. In simulate-only mode each side effect is
// described instead of performed and the final result ends with the dry-run
// marker.
//
// Requests follow the grammar
//
//	<command> [<server>] [args...]
//	<server> <command> [args...]
//
// where the second form is rewritten to the first when the leading token is
// a configured server and the next one an instance command.
package command
