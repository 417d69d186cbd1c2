// Package bootstrap runs the service lifecycle: validated typed config,
// start hooks, background workers and graceful shutdown on SIGINT/SIGTERM.
//
//	app, err := bootstrap.NewApp(&cfg)
//	app.OnStart(srv.Start)
//	app.Go("monitor", mon.Run)
//	app.OnStop(srv.Stop)
//	if err := app.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// Stop hooks run in reverse registration order.
package bootstrap
