// Command hubsyncd runs the sync core's gRPC façade over a durable (or,
// for development, in-memory) message store: it rebuilds the merkle
// trie from whatever is already on disk, starts a round-robin scheduler
// against any peers named in --config, and serves hubrpc.SyncServer to
// remote hubs. It plays the role cmd/thor/main.go plays for a full
// VeChainThor node, scaled down to this module's one binary.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	isatty "github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	pb "gopkg.in/cheggaaa/pb.v1"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/hubswarm/syncd/co"
	"github.com/hubswarm/syncd/hubrpc"
	"github.com/hubswarm/syncd/hubstore"
	"github.com/hubswarm/syncd/kv"
	"github.com/hubswarm/syncd/log"
	"github.com/hubswarm/syncd/metrics"
	"github.com/hubswarm/syncd/peerclient"
	"github.com/hubswarm/syncd/rpcserver"
	"github.com/hubswarm/syncd/syncengine"
)

var (
	version   string
	gitCommit string
)

func fullVersion() string {
	if gitCommit == "" {
		return version + "-dev"
	}
	return fmt.Sprintf("%s-%s", version, gitCommit)
}

func main() {
	app := cli.App{
		Version: fullVersion(),
		Name:    "hubsyncd",
		Usage:   "peer-to-peer hub synchronization core",
		Flags: []cli.Flag{
			dataDirFlag,
			listenAddrFlag,
			metricsAddrFlag,
			nicknameFlag,
			configFlag,
			syncIntervalFlag,
			peerCacheSizeFlag,
			dbCacheSizeFlag,
			openFilesLimitFlag,
			verbosityFlag,
		},
		Action: defaultAction,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func defaultAction(ctx *cli.Context) error {
	initLogger(ctx)
	defer log.Info("exited")

	exitCtx := handleExitSignal()

	store, closeStore, err := openStore(ctx)
	if err != nil {
		return errors.Wrap(err, "open store")
	}
	defer func() {
		log.Info("closing store")
		if err := closeStore(); err != nil {
			log.Warn("close store", "err", err)
		}
	}()

	engine := syncengine.New(store)
	if err := rebuildTrie(engine); err != nil {
		return errors.Wrap(err, "rebuild trie")
	}

	cfg, err := loadConfig(ctx.String(configFlag.Name))
	if err != nil {
		return err
	}
	peers, closePeers, err := dialPeers(cfg.Peers, ctx.Int(peerCacheSizeFlag.Name))
	if err != nil {
		return errors.Wrap(err, "dial peers")
	}
	defer closePeers()

	interval := time.Duration(ctx.Int(syncIntervalFlag.Name)) * time.Second
	if interval <= 0 {
		interval = 10 * time.Second
	}
	runner := syncengine.NewRoundRunner(engine, peers, interval)

	metrics.InitializePrometheusMetrics()
	var goes co.Goes
	if addr := ctx.String(metricsAddrFlag.Name); addr != "" {
		goes.Go(func() { serveMetrics(exitCtx, addr) })
	}

	goes.Go(func() { runner.Run(exitCtx) })

	build := rpcserver.BuildInfo{
		Version:  fullVersion(),
		Commit:   gitCommit,
		Nickname: ctx.String(nicknameFlag.Name),
	}
	srv := rpcserver.New(engine, store, runner, build)

	grpcServer := grpc.NewServer()
	hubrpc.RegisterSyncServer(grpcServer, srv)

	listenAddr := ctx.String(listenAddrFlag.Name)
	listener, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return errors.Wrapf(err, "listen %v", listenAddr)
	}
	log.Info("hubsyncd listening", "addr", listener.Addr().String(), "nickname", build.Nickname)

	goes.Go(func() {
		if err := grpcServer.Serve(listener); err != nil {
			log.Error("grpc serve", "err", err)
		}
	})

	<-exitCtx.Done()
	log.Info("stopping")
	grpcServer.GracefulStop()
	goes.Wait()
	return nil
}

// handleExitSignal returns a context canceled on SIGINT/SIGTERM, the
// signal-to-context idiom every long-running hub goroutine (RoundRunner,
// the gRPC server, the metrics server) shuts down against.
func handleExitSignal() context.Context {
	exitCtx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info("received signal", "signal", sig)
		cancel()
	}()
	return exitCtx
}

func initLogger(ctx *cli.Context) {
	lvl := slog.Level(ctx.Int(verbosityFlag.Name))
	useColor := isatty.IsTerminal(os.Stderr.Fd())
	log.SetDefault(log.NewLogger(log.NewTerminalHandlerWithLevel(os.Stderr, lvl, useColor)))
}

func openStore(ctx *cli.Context) (*hubstore.Store, func() error, error) {
	dataDir := ctx.String(dataDirFlag.Name)

	opts := kv.Options{
		CacheSize:      ctx.Int(dbCacheSizeFlag.Name),
		OpenFilesLimit: ctx.Int(openFilesLimitFlag.Name),
	}

	var (
		db  kv.ClosableStore
		err error
	)
	if dataDir == "" || dataDir == "memory" {
		log.Info("opening in-memory store")
		db, err = kv.NewMem(opts)
	} else {
		log.Info("opening on-disk store", "dir", dataDir)
		if err := os.MkdirAll(dataDir, 0700); err != nil {
			return nil, nil, errors.Wrapf(err, "create data dir %v", dataDir)
		}
		db, err = kv.NewLevelDB(dataDir, opts)
	}
	if err != nil {
		return nil, nil, err
	}

	store, err := hubstore.NewStore(db)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return store, db.Close, nil
}

// rebuildTrie drives syncengine.SyncEngine.Rebuild, attaching a pb.v1
// progress bar when stderr is a terminal (SUPPLEMENTED FEATURE #5): the
// bar's total is unknown ahead of time, so it runs in pb's open-ended
// "just count up" mode, ticking in step with the same
// rebuildLogInterval-driven OnRebuildProgress callback the log line uses.
func rebuildTrie(engine *syncengine.SyncEngine) error {
	if isatty.IsTerminal(os.Stderr.Fd()) {
		bar := pb.New(0)
		bar.ShowBar = false
		bar.ShowPercent = false
		bar.ShowTimeLeft = false
		bar.SetMaxWidth(80)
		bar.Start()
		defer bar.Finish()
		engine.OnRebuildProgress = func(n uint64) { bar.Set(int(n)) }
	}
	return engine.Rebuild()
}

func dialPeers(cfgPeers []PeerConfig, cacheSize int) ([]syncengine.Peer, func(), error) {
	var (
		peers []syncengine.Peer
		conns []*grpc.ClientConn
	)
	for _, pc := range cfgPeers {
		cc, err := grpc.Dial(pc.Address, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			for _, c := range conns {
				c.Close()
			}
			return nil, nil, errors.Wrapf(err, "dial peer %v (%v)", pc.Nickname, pc.Address)
		}
		conns = append(conns, cc)

		rpc := peerclient.NewCachedPeerRPC(peerclient.NewGRPCPeerRPC(hubrpc.NewClient(cc)), cacheSize)
		peers = append(peers, syncengine.Peer{Nickname: pc.Nickname, RPC: rpc, Snapshot: rpc})
	}
	closeAll := func() {
		for _, c := range conns {
			c.Close()
		}
	}
	return peers, closeAll, nil
}

func serveMetrics(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.HTTPHandler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
	}()
	log.Info("metrics server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("metrics server", "err", err)
	}
}

