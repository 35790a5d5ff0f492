package agentservice

// Version is overridden at build time with -ldflags "-X".
var Version = "dev"
