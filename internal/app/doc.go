// Package app assembles the trialmerge web service: services, chi router,
// middleware chain and the HTTP server lifecycle.
//
// # Usage
//
//	application, err := app.NewApplication(cfg, logger, telemetry)
//	if err != nil {
//	    return err
//	}
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
//	defer stop()
//	return application.Run(ctx)
//
// Run returns once ctx is cancelled and in-flight requests have drained, or
// when the listener fails. It never calls os.Exit.
package app
