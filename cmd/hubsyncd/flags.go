package main

import (
	"log/slog"

	cli "gopkg.in/urfave/cli.v1"
)

var (
	dataDirFlag = cli.StringFlag{
		Name:  "data-dir",
		Value: "",
		Usage: "directory for the message store database (\"memory\" for a non-durable in-memory store)",
	}
	listenAddrFlag = cli.StringFlag{
		Name:  "listen-addr",
		Value: ":13579",
		Usage: "gRPC listening address for the sync service",
	}
	metricsAddrFlag = cli.StringFlag{
		Name:  "metrics-addr",
		Value: "",
		Usage: "HTTP listening address for /metrics (disabled if empty)",
	}
	nicknameFlag = cli.StringFlag{
		Name:  "nickname",
		Value: "",
		Usage: "this hub's nickname, reported by GetInfo",
	}
	configFlag = cli.StringFlag{
		Name:  "config",
		Value: "",
		Usage: "YAML file listing peers to sync against",
	}
	syncIntervalFlag = cli.IntFlag{
		Name:  "sync-interval",
		Value: 10,
		Usage: "seconds between sync rounds per configured peer",
	}
	peerCacheSizeFlag = cli.IntFlag{
		Name:  "peer-metadata-cache-size",
		Value: 0,
		Usage: "entries kept in a peer's metadata cache (0 uses the package default)",
	}
	dbCacheSizeFlag = cli.IntFlag{
		Name:  "cache-size",
		Value: 256,
		Usage: "LevelDB block+write cache size in MB (ignored for an in-memory store)",
	}
	openFilesLimitFlag = cli.IntFlag{
		Name:  "open-files-limit",
		Value: 500,
		Usage: "LevelDB open files cache capacity (ignored for an in-memory store)",
	}
	verbosityFlag = cli.IntFlag{
		Name:  "verbosity",
		Value: int(slog.LevelInfo),
		Usage: "log verbosity, using slog levels (-8=trace -4=debug 0=info 4=warn 8=error 12=crit)",
	}
)
