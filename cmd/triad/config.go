package main

import (
	"flag"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/watt-labs/triad/pkg/engine/common"
)

// fileConfig is the properties-file shape BurntSushi/toml decodes into,
// per spec.md §6's configuration precedence (flag > properties file >
// env > default). Pointer fields distinguish "absent from the file"
// from "explicitly set to the zero value".
type fileConfig struct {
	Engine            string `toml:"engine"`
	Port              int    `toml:"port"`
	WorkerCap         int    `toml:"workerCap"`
	Backlog           int    `toml:"backlog"`
	MaxConnections    int    `toml:"maxConnections"`
	MonitoringEnabled *bool  `toml:"monitoringEnabled"`
	HybridDeadlineMs  int    `toml:"hybridDeadlineMs"`
	OffloadPoolSize   int    `toml:"offloadPoolSize"`
}

// resolved is the outcome of layering all four configuration sources.
type resolved struct {
	engineName string
	cfg        common.Config
}

// loadConfig applies spec.md §6's precedence — command line > properties
// file > environment variables > built-in defaults — reading each layer
// on top of the previous one, ending with whatever flags the caller
// explicitly passed on argv.
func loadConfig(args []string) (resolved, error) {
	r := resolved{engineName: "threaded", cfg: common.DefaultConfig()}

	applyEnv(&r)

	fs := flag.NewFlagSet("triad", flag.ContinueOnError)
	engineFlag := fs.String("engine", r.engineName, "concurrency architecture: threaded, hybrid, or eventloop")
	portFlag := fs.Int("port", addrPort(r.cfg.Addr), "TCP port to listen on")
	workerCapFlag := fs.Int("workerCap", r.cfg.WorkerCap, "worker/IO-pool cap")
	backlogFlag := fs.Int("backlog", r.cfg.Backlog, "accept backlog")
	maxConnFlag := fs.Int("maxConnections", r.cfg.MaxConnections, "concurrent connection ceiling")
	monitoringFlag := fs.Bool("monitoringEnabled", r.cfg.MonitoringEnabled, "enable /metrics/prom and Prometheus latency metrics")
	hybridDeadlineFlag := fs.Int("hybridDeadlineMs", int(r.cfg.HybridDeadline.Milliseconds()), "Hybrid engine per-request deadline, ms")
	offloadPoolFlag := fs.Int("offloadPoolSize", r.cfg.OffloadPoolSize, "EventLoop offload-pool size")
	configFlag := fs.String("config", "", "path to a TOML properties file")

	if err := fs.Parse(args); err != nil {
		return r, err
	}

	if *configFlag != "" {
		var fc fileConfig
		if _, err := toml.DecodeFile(*configFlag, &fc); err != nil {
			return r, err
		}
		applyFile(&r, fc)
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "engine":
			r.engineName = *engineFlag
		case "port":
			r.cfg.Addr = portToAddr(*portFlag)
		case "workerCap":
			r.cfg.WorkerCap = *workerCapFlag
		case "backlog":
			r.cfg.Backlog = *backlogFlag
		case "maxConnections":
			r.cfg.MaxConnections = *maxConnFlag
		case "monitoringEnabled":
			r.cfg.MonitoringEnabled = *monitoringFlag
		case "hybridDeadlineMs":
			r.cfg.HybridDeadline = msToDuration(*hybridDeadlineFlag)
		case "offloadPoolSize":
			r.cfg.OffloadPoolSize = *offloadPoolFlag
		}
	})

	return r, nil
}

// applyEnv reads TRIAD_* environment variables, the third-highest
// precedence layer.
func applyEnv(r *resolved) {
	if v := os.Getenv("TRIAD_ENGINE"); v != "" {
		r.engineName = v
	}
	if v := os.Getenv("TRIAD_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			r.cfg.Addr = portToAddr(n)
		}
	}
	if v := os.Getenv("TRIAD_WORKER_CAP"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			r.cfg.WorkerCap = n
		}
	}
	if v := os.Getenv("TRIAD_BACKLOG"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			r.cfg.Backlog = n
		}
	}
	if v := os.Getenv("TRIAD_MAX_CONNECTIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			r.cfg.MaxConnections = n
		}
	}
	if v := os.Getenv("TRIAD_MONITORING_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			r.cfg.MonitoringEnabled = b
		}
	}
	if v := os.Getenv("TRIAD_HYBRID_DEADLINE_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			r.cfg.HybridDeadline = msToDuration(n)
		}
	}
	if v := os.Getenv("TRIAD_OFFLOAD_POOL_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			r.cfg.OffloadPoolSize = n
		}
	}
}

// applyFile layers a decoded TOML properties file on top of whatever env
// already set — the second-highest precedence layer, only overriding
// fields the file actually set (zero-value int fields are ambiguous
// with "absent", so this module documents that a properties file should
// not set a field to 0 unless it means it; MonitoringEnabled uses a
// pointer specifically to avoid that ambiguity).
func applyFile(r *resolved, fc fileConfig) {
	if fc.Engine != "" {
		r.engineName = fc.Engine
	}
	if fc.Port != 0 {
		r.cfg.Addr = portToAddr(fc.Port)
	}
	if fc.WorkerCap != 0 {
		r.cfg.WorkerCap = fc.WorkerCap
	}
	if fc.Backlog != 0 {
		r.cfg.Backlog = fc.Backlog
	}
	if fc.MaxConnections != 0 {
		r.cfg.MaxConnections = fc.MaxConnections
	}
	if fc.MonitoringEnabled != nil {
		r.cfg.MonitoringEnabled = *fc.MonitoringEnabled
	}
	if fc.HybridDeadlineMs != 0 {
		r.cfg.HybridDeadline = msToDuration(fc.HybridDeadlineMs)
	}
	if fc.OffloadPoolSize != 0 {
		r.cfg.OffloadPoolSize = fc.OffloadPoolSize
	}
}

func msToDuration(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// portToAddr turns a bare port number into a ":port" listen address on all
// interfaces; any host part of a previously configured Addr is dropped.
func portToAddr(port int) string {
	return ":" + strconv.Itoa(port)
}

// addrPort extracts the port number from an "host:port" address, for
// seeding the --port flag's default from the layered config built so
// far.
func addrPort(addr string) int {
	idx := strings.LastIndex(addr, ":")
	if idx < 0 {
		return 8080
	}
	n, err := strconv.Atoi(addr[idx+1:])
	if err != nil {
		return 8080
	}
	return n
}
