package types

// Version is the canonical project version.
// The CLI, the HTTP API and the progress wire format share this version.
const Version = "0.3.0"
