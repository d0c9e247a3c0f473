// Package app bootstraps the command line tools.
//
// Every tool starts the same way: load configuration, resolve and create the
// working directories, start the JSON logger and telemetry, and stamp the run
// with a fresh run ID. Commands then do their work inside Run so the outcome is
// logged, traced and counted the same way everywhere.
//
// Example usage:
//
//	application, err := app.New("fetchweekly", app.Options{})
//	if err != nil {
//		fmt.Fprintf(os.Stderr, "startup failed: %v\n", err)
//		os.Exit(1)
//	}
//	defer application.Close()
//
//	ctx, stop := application.Context()
//	defer stop()
//	err = application.Run(ctx, func(ctx context.Context) error { ... })
package app
