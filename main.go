/*
Interactive scene demo: hilly terrain, a simulated water surface, a crate
maze with picking, and billboarded trees, driven by the engine package.
*/
package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/lagoon/engine"
	"github.com/spaghettifunk/lagoon/testbed"
)

func main() {
	tg := testbed.NewTestGame()

	engine, err := engine.New(tg.Game)
	if err != nil {
		panic(err)
	}

	if err := engine.Initialize(); err != nil {
		panic(err)
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)

	// start shutdown goroutine
	go func() {
		<-sigCh
		_ = engine.Shutdown()
	}()

	if err := engine.Run(); err != nil {
		panic(err)
	}
}
