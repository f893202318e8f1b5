// Command alertwatch keeps a live view of the signed-in user's alerts over
// gRPC and reprints it whenever it changes.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"liyu1981.xyz/roomwatch-service/pkg/auth"
	"liyu1981.xyz/roomwatch-service/pkg/common"
	rwGrpc "liyu1981.xyz/roomwatch-service/pkg/grpc"
	"liyu1981.xyz/roomwatch-service/pkg/models"
	"liyu1981.xyz/roomwatch-service/pkg/reconcile"
)

const envKeyToken = "ROOMWATCH_TOKEN"

func main() {
	_ = godotenv.Load()

	addr := flag.String("addr", os.Getenv(common.EnvKeyRoomwatchGrpcHostPort), "gRPC server host:port")
	token := flag.String("token", os.Getenv(envKeyToken), "bearer token from /auth/login")
	filter := flag.String("filter", string(models.AlertFilterUnhandled), "all | unhandled | handled")
	flag.Parse()

	alertFilter, err := models.ParseAlertFilter(*filter)
	if err != nil {
		log.Fatal(err)
	}
	if *addr == "" {
		log.Fatalf("no server address, pass -addr or set %s", common.EnvKeyRoomwatchGrpcHostPort)
	}

	if err := run(*addr, *token, alertFilter); err != nil {
		log.Print(err)
		os.Exit(1)
	}
}

// run returns instead of exiting so the connection and the subscription are
// released on every path.
func run(addr, token string, filter models.AlertFilter) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, conn, err := rwGrpc.Dial(addr, token)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer conn.Close()

	r := reconcile.New(reconcile.Config{
		Sessions: auth.TokenSession{Token: token},
		Loader:   client,
		Writer:   client,
		Feed:     client,
		Filter:   filter,
	})
	defer r.Close()

	r.OnChange(func(v reconcile.View) {
		printView(os.Stdout, v)
	})

	if err := r.Start(ctx); err != nil {
		return fmt.Errorf("failed to load alerts: %w", err)
	}

	<-ctx.Done()
	return nil
}

func printView(w io.Writer, v reconcile.View) {
	fmt.Fprintf(w, "\n[%s] %s alerts: %d\n", v.State, v.Filter, len(v.Alerts))
	if v.Err != nil {
		fmt.Fprintf(w, "warning: %v\n", v.Err)
	}
	if len(v.Alerts) == 0 {
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tROOM\tTYPE\tHANDLED\tMESSAGE")
	for _, a := range v.Alerts {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%v\t%s\n",
			a.ID, a.CreatedAt.Local().Format("2006-01-02 15:04:05"), a.RoomName, a.Type, a.Handled, a.Message)
	}
	_ = tw.Flush()
}
