// Command httpcorecat is a debug tool that issues a single HTTP/1.1
// request through pkg httpcore and dumps the response to stdout. It
// exists to exercise the Connection API end to end the way the
// teacher's examples/ directory exercised the Sender API, trimmed to one
// flow since this core has no HTTP/2 or connection-pooling surface to
// demonstrate.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/go-ipp/httpcore"
	"github.com/go-ipp/httpcore/pkg/field"
)

func main() {
	host := flag.String("host", "", "target host")
	port := flag.Int("port", 80, "target port")
	method := flag.String("method", "GET", "request method")
	uri := flag.String("uri", "/", "request target")
	tlsMode := flag.Bool("tls", false, "connect with TLS from the first byte")
	timeout := flag.Duration("timeout", 10*time.Second, "connect and I/O timeout")
	flag.Parse()

	if *host == "" {
		fmt.Fprintln(os.Stderr, "usage: httpcorecat -host=example.com [-port=443 -tls -method=GET -uri=/]")
		os.Exit(2)
	}

	encryption := httpcore.EncryptionIfRequested
	if *tlsMode {
		encryption = httpcore.EncryptionAlways
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	conn, err := httpcore.ConnectClient(ctx, httpcore.ClientConfig{
		Host:        *host,
		Port:        *port,
		Encryption:  encryption,
		ConnTimeout: *timeout,
		IOTimeout:   *timeout,
	})
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer conn.Close()

	if err := conn.SetDefaultField(field.UserAgent.Name(), "httpcorecat/1.0"); err != nil {
		log.Fatalf("set default field: %v", err)
	}
	if err := conn.SetField(field.AcceptEncoding.Name(), "gzip, deflate"); err != nil {
		log.Fatalf("set field: %v", err)
	}

	if err := conn.Send(*method, *uri, httpcore.TransferLength, 0); err != nil {
		log.Fatalf("send: %v", err)
	}
	if err := conn.FlushWrite(); err != nil {
		log.Fatalf("flush: %v", err)
	}

	if err := conn.Update(); err != nil {
		log.Fatalf("read response: %v", err)
	}

	fmt.Printf("%d %s\n", conn.StatusCode(), conn.StatusText())
	for _, e := range []field.ID{field.ContentType, field.ContentLength, field.ContentEncoding, field.TransferEncoding} {
		if v := conn.GetField(e.Name()); v != "" {
			fmt.Printf("%s: %s\n", e.Name(), v)
		}
	}
	fmt.Println()

	if _, err := io.Copy(os.Stdout, conn); err != nil && err != io.EOF {
		log.Fatalf("read body: %v", err)
	}
}
