// Package runtime provides the execution context for backport commands.
//
// It loads configuration, opens the logger and builds the engine with the
// session store and workspace manager that configuration selects.
package runtime
