// Package logging carries request-scoped logrus entries through contexts
// and writes the startup overview of uptainer's configuration.
package logging
