package daybook

// Version is the release version reported by the CLI and the MCP server.
const Version = "0.1.0"
