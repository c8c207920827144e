package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/ignite/bootstrap/core"
	"github.com/spaghettifunk/ignite/demo"
)

func main() {
	app, err := demo.New("ignite.toml")
	if err != nil {
		core.LogFatal(err.Error())
	}

	if err := app.Initialize(); err != nil {
		core.LogFatal(err.Error())
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)

	// stop the frame loop on sigterm and friends; teardown has to happen
	// on the main thread
	go func() {
		s := <-sigCh
		core.LogInfo("received signal %s, shutting down", s)
		app.RequestShutdown()
	}()

	if err := app.Run(); err != nil {
		core.LogError(err.Error())
	}

	if err := app.Shutdown(); err != nil {
		core.LogFatal(err.Error())
	}
}
