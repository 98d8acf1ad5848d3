// Command lgrdemo runs a counter worker logging through a registry built from
// an optional YAML setup, and re-applies the filters of that setup when the
// file changes. It stops after -duration or on SIGINT/SIGTERM.
//
//	lgrdemo -config lgr.yaml -duration 30s
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/abyssdigger/lgrkit/config"
	"github.com/abyssdigger/lgrkit/lgr"
	"github.com/abyssdigger/lgrkit/worker"
)

func main() {
	cfgPath := flag.String("config", "", "YAML logging setup (colored console if empty)")
	duration := flag.Duration("duration", 3*time.Second, "run time, 0 to wait for a signal")
	tick := flag.Duration("tick", 100*time.Millisecond, "counter period")
	flag.Parse()
	os.Exit(run(*cfgPath, *duration, *tick))
}

func run(cfgPath string, duration, tick time.Duration) int {
	reg := lgr.Acquire()
	defer lgr.Release()

	cfg := config.Default()
	cfg.AppName = "lgrdemo"
	cfg.Console.Colors = true
	cfg.Console.TimeFormat = "15:04:05.000"
	if len(cfgPath) > 0 {
		var err error
		if cfg, err = config.Load(cfgPath); err != nil {
			fmt.Fprintln(os.Stderr, "lgrdemo:", err)
			return 1
		}
	}
	setup, err := config.Build(reg, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "lgrdemo:", err)
		return 1
	}
	defer setup.Close()

	// the standard logger of libraries goes to the registry too
	log.SetFlags(0)
	log.SetOutput(reg.Writer(lgr.SEV_DEBUG))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}

	onExit := func(name string, err error) {
		if err != nil {
			lgr.Err(err)
			return
		}
		lgr.Info("worker `" + name + "` finished")
	}

	var ticks atomic.Uint64
	counter := worker.New(worker.TaskFunc(func(s *worker.Signal) error {
		var msg lgr.Stream
		for s.Sleep(tick) {
			n := ticks.Add(1)
			fmt.Fprintf(&msg, "counter at %d", n)
			sev := lgr.SEV_DEBUG
			if n%10 == 0 {
				sev = lgr.SEV_INFO
			}
			msg.Sync(reg, sev)
		}
		return nil
	}), worker.WithName("counter"), worker.WithExitHook(onExit))
	if err := counter.Start(); err != nil {
		lgr.Err(err)
		return 1
	}
	defer counter.Close()

	if len(cfgPath) > 0 {
		watcher := worker.New(config.NewWatcher(cfgPath, reg, 0), worker.WithName("config"), worker.WithExitHook(onExit))
		if err := watcher.Start(); err != nil {
			lgr.Err(err)
			return 1
		}
		defer watcher.Close()
	}

	log.Print("demo started")
	<-ctx.Done()
	lgr.Warning("shutting down: " + ctx.Err().Error())
	if err := counter.StopAndJoin(); err != nil {
		return 1
	}
	lgr.LogCode("ticks counted", uint32(ticks.Load()))
	if n := reg.Faults(); n > 0 {
		lgr.Error(fmt.Sprintf("%d delivery faults, last: %v", n, reg.LastFault()))
	}
	return 0
}
