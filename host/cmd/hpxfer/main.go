package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"

	"hpxfer/host/calc"
	"hpxfer/host/serial"
	"hpxfer/protocol"
)

var (
	device  = flag.String("port", serial.DefaultDevice, "Serial device path")
	baud    = flag.Int("baud", 9600, "Baud rate (must match IOPAR on the calculator)")
	finish  = flag.Bool("finish", false, "Finish remote server after file transfer")
	verbose = flag.Bool("verbose", false, "Log every packet")
)

func main() {
	flag.Usage = usage
	flag.Parse()

	log.SetFormatter(&log.TextFormatter{DisableTimestamp: true})
	if *verbose {
		log.SetLevel(log.DebugLevel)
	}

	if flag.NArg() < 1 {
		usage()
		os.Exit(2)
	}

	if err := run(flag.Arg(0), flag.Args()[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintf(out, "hpxfer %s - transfer files to and from an HP 48\n\n", protocol.Version)
	fmt.Fprintf(out, "Usage: %s [flags] <command> [command flags] <path>\n\n", os.Args[0])
	fmt.Fprintln(out, "Commands:")
	fmt.Fprintln(out, "  ksend <path>                       Send file to Kermit server")
	fmt.Fprintln(out, "  kget [-overwrite] <path>           Get file from Kermit server")
	fmt.Fprintln(out, "  xsend [-direct] <path>             Send file to XModem server (or XRECV)")
	fmt.Fprintln(out, "  xget [-direct] [-overwrite] <path> Get file from XModem server (or XSEND)")
	fmt.Fprintln(out, "  info <path>                        Print ROM revision, checksum and size of an object file")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Flags:")
	flag.PrintDefaults()
}

func run(command string, args []string) error {
	fs := flag.NewFlagSet(command, flag.ContinueOnError)
	direct := false
	overwrite := false
	switch command {
	case "xsend":
		fs.BoolVar(&direct, "direct", false, "Send to XRECV, not the server (128-byte XModem)")
	case "xget":
		fs.BoolVar(&direct, "direct", false, "Get from XSEND, not the server")
		fs.BoolVar(&overwrite, "overwrite", false, "Overwrite an existing local file")
	case "kget":
		fs.BoolVar(&overwrite, "overwrite", false, "Overwrite an existing local file")
	case "ksend", "info":
	default:
		return fmt.Errorf("unknown command %q (run with -h for usage)", command)
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%s needs exactly one path", command)
	}
	path := fs.Arg(0)

	if command == "info" {
		d, err := calc.Info(path)
		if err != nil {
			return err
		}
		fmt.Println(d.Report())
		return nil
	}

	cfg := calc.DefaultConfig()
	cfg.Finish = *finish
	c := calc.NewCalculator(cfg)

	portCfg := serial.DefaultConfig(*device)
	portCfg.Baud = *baud
	log.WithFields(log.Fields{"device": portCfg.Device, "baud": portCfg.Baud}).Info("Connecting to calculator")
	if err := c.ConnectWithConfig(portCfg); err != nil {
		return err
	}
	defer c.Close()

	switch command {
	case "ksend":
		return c.KermitSend(path)
	case "kget":
		written, err := c.KermitGet(path, overwrite)
		if err != nil {
			return err
		}
		fmt.Printf("Saved %s\n", written)
	case "xsend":
		return c.XModemSend(path, direct)
	case "xget":
		written, err := c.XModemGet(path, direct, overwrite)
		if err != nil {
			return err
		}
		fmt.Printf("Saved %s\n", written)
	}
	return nil
}
