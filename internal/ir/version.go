package ir

// Version is the sorsync release reported by the CLI.
const Version = "0.1.0"
