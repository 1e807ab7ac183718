//go:build linux

// Command sc16is752ctl drives an SC16IS752 on a Linux I²C adapter.
//
//	sc16is752ctl [-sim] [-bus i2cN] [-addr 0x4d] [-poll N] [COMMAND ARGS...]
//
// With no command it prompts on a terminal, or reads a script from stdin one
// command per line.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"

	"sc16is752-go/drivers/sc16is752"
	"sc16is752-go/drivers/sc16is752/sim"
	"sc16is752-go/services/hal"

	"github.com/google/shlex"
	"github.com/mattn/go-isatty"
	"github.com/platinasystems/flags"
	"github.com/platinasystems/liner"
	"github.com/platinasystems/log"
	"github.com/platinasystems/parms"
	"tinygo.org/x/drivers"
)

func usage() {
	fmt.Fprintln(os.Stderr, "usage: sc16is752ctl [-sim] [-bus i2cN] [-addr ADDR] [-poll N] [COMMAND ARGS...]")
	for _, c := range commands {
		fmt.Fprintln(os.Stderr, "\t"+c.usage)
	}
}

func main() {
	flag, args := flags.New(os.Args[1:], "-sim", "-h", "--help")
	parm, args := parms.New(args, "-bus", "-addr", "-poll")
	if flag.ByName["-h"] || flag.ByName["--help"] {
		usage()
		return
	}

	addr := uint64(sc16is752.AddressDefault)
	if s := parm.ByName["-addr"]; s != "" {
		v, err := strconv.ParseUint(s, 0, 16)
		if err != nil {
			log.Print("sc16is752ctl: -addr: ", err)
			os.Exit(2)
		}
		addr = v
	}
	poll := 1000
	if s := parm.ByName["-poll"]; s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			log.Print("sc16is752ctl: -poll: ", err)
			os.Exit(2)
		}
		poll = v
	}
	busID := parm.ByName["-bus"]
	if busID == "" {
		busID = "i2c1"
	}

	var i2c drivers.I2C
	if flag.ByName["-sim"] {
		a, _ := sc16is752.ResolveAddress(uint16(addr))
		chip := sim.New(a)
		chip.SetLoopback(true)
		i2c = chip
	} else {
		b, ok := hal.DefaultBuses().ByID(busID)
		if !ok {
			log.Print("sc16is752ctl: no such bus: ", busID)
			os.Exit(2)
		}
		i2c = b
	}

	dev, err := sc16is752.New(i2c, sc16is752.Config{Address: uint16(addr), PollLimit: poll})
	if err != nil {
		log.Print("sc16is752ctl: ", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	s := newSession(dev, i2c, os.Stdout)
	switch {
	case len(args) > 0:
		err = s.exec(ctx, args)
	case isatty.IsTerminal(os.Stdin.Fd()):
		err = interactive(ctx, s)
	default:
		err = s.runScript(ctx, os.Stdin)
	}
	if err != nil {
		log.Print("sc16is752ctl: ", err)
		os.Exit(1)
	}
}

// interactive runs a prompt with history. Command errors are logged and the
// prompt continues; quit, exit or ^D ends it.
func interactive(ctx context.Context, s *session) error {
	l := liner.NewLiner()
	defer l.Close()
	l.SetCtrlCAborts(true)
	for ctx.Err() == nil {
		line, err := l.Prompt("sc16is752> ")
		if err == io.EOF || err == liner.ErrPromptAborted {
			return nil
		}
		if err != nil {
			return err
		}
		args, err := shlex.Split(line)
		if err != nil {
			log.Print("sc16is752ctl: ", err)
			continue
		}
		if len(args) == 0 {
			continue
		}
		l.AppendHistory(line)
		switch args[0] {
		case "quit", "exit":
			return nil
		case "help":
			usage()
			continue
		}
		if err := s.exec(ctx, args); err != nil {
			log.Print("sc16is752ctl: ", err)
		}
	}
	return nil
}
