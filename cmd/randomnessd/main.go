package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/switchboard-xyz/solana-randomness-go/client"
	"github.com/switchboard-xyz/solana-randomness-go/oracle/config"
	"github.com/switchboard-xyz/solana-randomness-go/oracle/daemon"
	"github.com/switchboard-xyz/solana-randomness-go/oracle/log"
	"github.com/switchboard-xyz/solana-randomness-go/randomness"
)

var oneShot = flag.Uint("request", 0, "request N random bytes once, print the result, and exit")

func main() {
	log.InitLogger()
	config.Load()
	config.Print()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *oneShot > 0 {
		if err := requestOnce(ctx, uint8(*oneShot)); err != nil {
			log.Fatalf("Failed to request randomness: %v", err)
		}
		return
	}

	daemon, err := daemon.New(ctx)
	if err != nil {
		log.Fatalf("Failed to create daemon: %v", err)
	}

	if err := daemon.Start(); err != nil {
		log.Fatalf("Failed to start daemon: %v", err)
	}

	go daemon.Monitor()
	go daemon.Serve()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	<-c
	cancel()
	daemon.Stop()
	time.Sleep(3 * time.Second)
}

// requestOnce submits a single randomness request and blocks until it settles.
func requestOnce(ctx context.Context, numBytes uint8) error {
	cli, err := client.New(ctx, config.RPCEndpoint(), config.WSEndpoint(), config.Payer(),
		client.WithCommitment(config.Commitment()),
		client.WithComputeBudget(config.ComputeUnits(), config.ComputeUnitPrice()),
	)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	defer cli.Close()

	waitCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	_, event, err := cli.RequestAndAwait(waitCtx, numBytes, randomness.Callback{}, nil)
	if err != nil {
		return err
	}

	if !event.IsSuccess {
		return fmt.Errorf("request %s settled as failed", event.Request)
	}

	fmt.Printf("request:     %s\n", event.Request)
	fmt.Printf("randomness:  %s\n", hex.EncodeToString(event.Randomness))
	fmt.Printf("latency:     %d slots\n", event.SettledSlot-event.RequestSlot)

	return nil
}
