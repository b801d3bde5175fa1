package main

import (
	"fmt"
	"os"

	"github.com/flo-mic/replenish/internal/cmd"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "run":
		err = cmd.Run(os.Args[2:], os.Stdout)
	case "stock":
		err = cmd.Stock(os.Args[2:], os.Stdout)
	case "history":
		err = cmd.History(os.Args[2:], os.Stdout)
	case "init":
		err = cmd.Init(os.Args[2:], os.Stdout)
	case "install-service":
		err = cmd.InstallService(os.Args[2:], os.Stdout)
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "Usage: replenish <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  run [--config path] [--headless] [--debug]       Start the kiosk")
	fmt.Fprintln(os.Stderr, "  stock [--config path] [--model code] [--below]    Print stock levels")
	fmt.Fprintln(os.Stderr, "  history [--config path] [--limit n]               List recent replenishments")
	fmt.Fprintln(os.Stderr, "  init [--reinit] [path]                            Write a starter kiosk.yaml")
	fmt.Fprintln(os.Stderr, "  install-service [--config path] [--tty tty1]      Install the kiosk systemd unit")
}
