// Package cli provides the evalbox command line interface.
//
// The cli package wires configuration, logging, the sandbox backend and the
// evaluation runner into cobra commands:
//
//	evalbox run   — evaluate one or more implementations and exit
//	evalbox watch — evaluate implementations as they arrive in the imps directory
//	evalbox serve — expose the runner over MCP (stdio or HTTP)
//
// The run command exits zero when every test case of every requested
// implementation was attempted, regardless of individual pass/fail; a
// non-zero exit means the runner itself could not complete.
package cli
