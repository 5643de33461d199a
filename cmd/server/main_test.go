package main

import (
	"context"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestRunningServer(t *testing.T) {
	log := zap.NewNop().Sugar()
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	port := 10000 + rand.Intn(1000)
	go func() {
		defer wg.Done()
		if err := run(ctx, log, filepath.Join(t.TempDir(), "tmp"), port, port+1, false, false, false, "", ""); err != nil {
			panic(err)
		}
	}()

	cancel()
	wg.Wait()
	time.Sleep(50 * time.Millisecond)
	listener, err := net.Listen("tcp", net.JoinHostPort("localhost", strconv.Itoa(port)))
	if err != nil {
		t.Fatalf("the port should be free, we should have shut down the server, got %v instead", err)
	}
	listener.Close()
}

func TestLoadingSamples(t *testing.T) {
	log := zap.NewNop().Sugar()
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := run(ctx, log, filepath.Join(t.TempDir(), "tmp"), 1236, 1237, false, true, false, "", ""); err != nil {
			panic(err)
		}
	}()

	cancel()
	wg.Wait()
}

func TestBusyPort(t *testing.T) {
	log := zap.NewNop().Sugar()
	listener, err := net.Listen("tcp", "localhost:1235")
	if err != nil {
		t.Fatal(err)
	}
	defer listener.Close()

	if err := run(context.Background(), log, filepath.Join(t.TempDir(), "tmp"), 1235, 1236, false, false, false, "", ""); err == nil {
		t.Fatal("expected launching with a busy port to error, it did not")
	}
}

func TestRunningHTTP(t *testing.T) {
	log := zap.NewNop().Sugar()
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	port := 10000 + rand.Intn(1000)
	go func() {
		defer wg.Done()
		if err := run(ctx, log, filepath.Join(t.TempDir(), "tmp"), port, port+1, false, true, false, "", ""); err != nil {
			panic(err)
		}
	}()

	time.Sleep(150 * time.Millisecond)
	for _, path := range []string{"/status", "/api/tables"} {
		turl := url.URL{
			Scheme: "http",
			Host:   net.JoinHostPort("localhost", strconv.Itoa(port)),
			Path:   path,
		}
		resp, err := http.Get(turl.String())
		if err != nil {
			t.Fatal(err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%v: expected status OK, got %v", turl.String(), resp.StatusCode)
		}
	}

	cancel()
	wg.Wait()
}
