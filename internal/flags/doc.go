// Package flags manages command-line flags and environment variables for uptainer configuration.
// It configures the run behavior, HTTP API, logging, and notifications via Cobra and Viper.
// Every flag mirrors an UPTAINER_* environment variable.
//
// Key components:
//   - RegisterSystemFlags: Adds configuration, run and HTTP API flags.
//   - RegisterNotificationFlags: Adds notification settings.
//   - ReadRunParams: Turns flags into validated types.RunParams.
//   - SetupLogging: Configures logrus based on flags.
//
// Usage example:
//
//	cmd := &cobra.Command{}
//	flags.SetDefaults()
//	flags.RegisterSystemFlags(cmd)
//	err := flags.SetupLogging(cmd.PersistentFlags())
//	if err != nil {
//	    logrus.WithError(err).Fatal("Logging setup failed")
//	}
package flags
