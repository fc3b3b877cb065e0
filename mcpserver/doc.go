// Package mcpserver provides the Model Context Protocol (MCP) server implementation.
//
// The mcpserver package implements an MCP-compliant server that exposes the
// evaluation runner over the protocol. It uses the mark3labs/mcp-go library
// to handle the protocol details and provides two tools: evaluate, which
// runs an implementation against every test case, and list_results, which
// returns the recorded report of a previous run.
//
// The server supports both stdio and HTTP transports as configured by the
// application configuration.
//
// Usage:
//
//	server, err := mcpserver.New(cfg, logger, evalRunner)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = server.ServeStdio() // or server.ServeHTTP()
package mcpserver
