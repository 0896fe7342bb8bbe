package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/fx"

	"github.com/matheus3301/huddle/internal/app"
	"github.com/matheus3301/huddle/internal/config"
	"github.com/matheus3301/huddle/internal/lock"
	"github.com/matheus3301/huddle/internal/profile"
	"github.com/matheus3301/huddle/internal/tui"
)

func main() {
	profileFlag := pflag.StringP("profile", "p", "", "profile name (overrides config default)")
	configFlag := pflag.StringP("config", "c", "", "config file (default ~/.huddle/config.toml)")
	headless := pflag.Bool("headless", false, "serve the control socket without the terminal UI")
	writeConfig := pflag.Bool("write-config", false, "write the effective config to the config file and exit")
	pflag.Parse()

	cfgPath := *configFlag
	if cfgPath == "" {
		cfgPath = profile.ConfigPath()
	}
	cfg, err := config.LoadOrDefault(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v (using defaults)\n", err)
	}
	if err := cfg.ApplyEnv(profile.EnvPath()); err != nil {
		fatal(err)
	}

	if *writeConfig {
		if err := config.Save(cfgPath, cfg); err != nil {
			fatal(err)
		}
		fmt.Printf("wrote %s\n", cfgPath)
		return
	}

	name := profile.Resolve(*profileFlag, cfg.DefaultProfile)
	if err := profile.ValidateName(name); err != nil {
		fatal(err)
	}

	params := app.Params{Profile: name, Config: cfg, Console: *headless}
	var ui *tui.App
	fxApp := fx.New(app.Module(params), fx.Populate(&ui))
	if err := fxApp.Err(); err != nil {
		fatal(err)
	}

	startCtx, cancel := context.WithTimeout(context.Background(), fxApp.StartTimeout())
	defer cancel()
	if err := fxApp.Start(startCtx); err != nil {
		fatal(err)
	}

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer stopSignals()

	var runErr error
	if *headless {
		<-sigCtx.Done()
	} else {
		go func() {
			<-sigCtx.Done()
			ui.Stop()
		}()
		runErr = ui.Run()
	}

	stopCtx, cancelStop := context.WithTimeout(context.Background(), fxApp.StopTimeout())
	defer cancelStop()
	if err := fxApp.Stop(stopCtx); err != nil {
		fmt.Fprintf(os.Stderr, "error: shutdown: %v\n", err)
	}
	if runErr != nil {
		fatal(runErr)
	}
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, errorMessage(err))
	os.Exit(1)
}

// errorMessage turns a lock conflict, however deeply fx wrapped it, into a
// hint naming the holder.
func errorMessage(err error) string {
	var held *lock.HeldError
	if errors.As(err, &held) {
		if held.PID == 0 {
			return fmt.Sprintf("error: profile is already open (lock %s)", held.Path)
		}
		return fmt.Sprintf("error: profile is already open (pid %d, lock %s)", held.PID, held.Path)
	}
	return fmt.Sprintf("error: %v", err)
}
