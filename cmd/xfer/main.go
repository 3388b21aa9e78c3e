package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"go.uber.org/zap"

	"github.com/ryandielhenn/ringsim/internal/logging"
	"github.com/ryandielhenn/ringsim/pkg/xfer"
)

const outputFile = "transmitted.txt"

func main() {
	fs := flag.NewFlagSet("xfer", flag.ContinueOnError)
	var (
		port     int
		filename string
		client   bool
		server   bool
		host     string
	)
	fs.IntVar(&port, "p", 5000, "port of the socket")
	fs.IntVar(&port, "port", 5000, "port of the socket")
	fs.StringVar(&filename, "f", "", "file to send (client)")
	fs.StringVar(&filename, "filename", "", "file to send (client)")
	fs.BoolVar(&client, "c", false, "run the client")
	fs.BoolVar(&client, "client", false, "run the client")
	fs.BoolVar(&server, "s", false, "run the server")
	fs.BoolVar(&server, "server", false, "run the server")
	fs.StringVar(&host, "host", "localhost", "host to bind or dial")
	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if err := checkArgs(client, server, filename); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		fmt.Fprintln(os.Stderr, "Use -h to print usage")
		os.Exit(1)
	}

	log, err := logging.New("info", true)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := net.JoinHostPort(host, strconv.Itoa(port))
	if server {
		err = runServer(ctx, addr, log)
	} else {
		err = runClient(ctx, addr, filename, log)
	}
	if err != nil {
		log.Error("transfer failed", zap.Error(err))
		os.Exit(1)
	}
}

func checkArgs(client, server bool, filename string) error {
	switch {
	case client && server:
		return errors.New("cannot be client and server at once")
	case !client && !server:
		return errors.New("specify client (-c) or server (-s)")
	case client && filename == "":
		return errors.New("specify the file to send with -f")
	}
	return nil
}

func runServer(ctx context.Context, addr string, log *zap.Logger) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	defer ln.Close()
	log.Info("waiting for a connection", zap.String("addr", ln.Addr().String()))

	f, err := os.Create(outputFile)
	if err != nil {
		return err
	}
	if _, err := xfer.Receive(ctx, ln, f, log); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func runClient(ctx context.Context, addr, filename string, log *zap.Logger) error {
	f, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("%s: %w", filename, err)
	}
	defer f.Close()
	_, err = xfer.Send(ctx, addr, f, log)
	return err
}
