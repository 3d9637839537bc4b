// Command anttp runs the gateway: an HTTP surface in front of the
// hybrid-cached chunk/pointer/register/scratchpad/graph-entry clients,
// the archive and PNR composite services, and the bounded write-command
// executor, all wired from a single internal/config.AppConfig.
package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/traktion/anttp/internal/addr"
	"github.com/traktion/anttp/internal/client"
	"github.com/traktion/anttp/internal/codec"
	"github.com/traktion/anttp/internal/command"
	"github.com/traktion/anttp/internal/config"
	"github.com/traktion/anttp/internal/keyderive"
	"github.com/traktion/anttp/internal/kv"
	"github.com/traktion/anttp/internal/logger"
	"github.com/traktion/anttp/internal/metrics"
	"github.com/traktion/anttp/internal/netclient"
	"github.com/traktion/anttp/internal/resolver"
	"github.com/traktion/anttp/internal/service/archiveload"
	"github.com/traktion/anttp/internal/service/archiveupload"
	"github.com/traktion/anttp/internal/service/pnr"
	"github.com/traktion/anttp/internal/service/tarbuild"
	transporthttp "github.com/traktion/anttp/internal/transport/http"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "anttp",
		Short: "anttp is an HTTP gateway fronting a content-addressed storage network",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to a config file (optional; env and defaults otherwise)")
	return cmd
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if err := logger.Configure(cfg.LogLevel, cfg.LogJSON, os.Stderr); err != nil {
		return err
	}
	log := logger.Named("main")

	if err := os.MkdirAll(cfg.DiskPath, 0o755); err != nil {
		return fmt.Errorf("main: create disk path %s: %w", cfg.DiskPath, err)
	}

	harness := netclient.New(netclient.NewUnconfiguredDialer(cfg.BootstrapPeers), cfg.IdleDisconnect)
	enc := codec.IdentitySelfEncryption{}

	deps, err := buildDeps(cfg, harness, enc)
	if err != nil {
		return err
	}

	router := transporthttp.NewRouter(deps)

	log.Infof("listening on %s", cfg.ListenAddress)
	return router.Run(cfg.ListenAddress)
}

// buildDeps opens every per-record-kind disk tier and wires the
// caching clients, composite services and resolver into a single
// transporthttp.Deps, the gateway's full dependency graph.
func buildDeps(cfg config.AppConfig, harness *netclient.Harness, enc codec.SelfEncryption) (transporthttp.Deps, error) {
	diskPath := func(name string) string { return filepath.Join(cfg.DiskPath, name+".db") }

	chunkDisk, err := kv.Open(diskPath("chunk"), "chunk")
	if err != nil {
		return transporthttp.Deps{}, err
	}
	pointerDisk, err := kv.Open(diskPath("pointer"), "pointer")
	if err != nil {
		return transporthttp.Deps{}, err
	}
	registerDisk, err := kv.Open(diskPath("register"), "register")
	if err != nil {
		return transporthttp.Deps{}, err
	}
	scratchpadDisk, err := kv.Open(diskPath("scratchpad"), "scratchpad")
	if err != nil {
		return transporthttp.Deps{}, err
	}
	graphDisk, err := kv.Open(diskPath("graph_entry"), "graph_entry")
	if err != nil {
		return transporthttp.Deps{}, err
	}
	publicDataDisk, err := kv.Open(diskPath("public_data"), "public_data")
	if err != nil {
		return transporthttp.Deps{}, err
	}

	negTTL := cfg.NegativeTTL()
	mutableTTL := cfg.CachedMutableTTL()
	metricsReg := metrics.New()

	chunks, err := client.NewChunkClient(cfg.MemorySlots, chunkDisk, harness)
	if err != nil {
		return transporthttp.Deps{}, err
	}
	chunks.WithMetrics(metricsReg)

	pointers, err := client.NewPointerClient(cfg.MemorySlots, pointerDisk, mutableTTL, negTTL, harness)
	if err != nil {
		return transporthttp.Deps{}, err
	}
	pointers.WithMetrics(metricsReg)

	registers, err := client.NewRegisterClient(cfg.MemorySlots, registerDisk, mutableTTL, negTTL, harness)
	if err != nil {
		return transporthttp.Deps{}, err
	}
	registers.WithMetrics(metricsReg)

	scratchpad, err := client.NewScratchpadClient(cfg.MemorySlots, scratchpadDisk, mutableTTL, negTTL, harness)
	if err != nil {
		return transporthttp.Deps{}, err
	}
	scratchpad.WithMetrics(metricsReg)

	graphEntry, err := client.NewGraphEntryClient(cfg.MemorySlots, graphDisk, harness)
	if err != nil {
		return transporthttp.Deps{}, err
	}
	graphEntry.WithMetrics(metricsReg)

	publicData, err := client.NewPublicDataClient(cfg.MemorySlots, publicDataDisk, harness, enc)
	if err != nil {
		return transporthttp.Deps{}, err
	}
	publicData.WithMetrics(metricsReg)

	exec := command.NewExecutor(cfg.QueueBufferSize, cfg.MaxRetryAttempts, cfg.QueueBufferSize*128).WithMetrics(metricsReg)

	uploader := archiveupload.NewUploader(harness, enc)
	tarBuilder := tarbuild.NewBuilder(harness, enc)
	archiveLoader := archiveload.NewLoader(harness, enc)

	analyzer := resolver.NewMutableAnalyzer(pointers, registers, mutableTTL)
	bookmarks := resolver.NewBookmarks()
	access := resolver.NewAccessChecker()

	if cfg.AccessListAddress != "" {
		if _, err := resolver.WatchFile(cfg.AccessListAddress, loadAccessList(cfg.AccessListAddress), access.Replace); err != nil {
			return transporthttp.Deps{}, fmt.Errorf("main: watch access list: %w", err)
		}
	}

	// No config field names a PNR root yet - the zone starts rooted at
	// the zero address, which is never published to, so PNR name
	// lookups simply miss until a real root is provisioned through the
	// same out-of-band process that seeds the access list file.
	pnrZone := pnr.NewZone(addr.Address{}, pointers, exec, mutableTTL)

	res := resolver.New(bookmarks, access, analyzer, archiveLoader, pnrZone)

	return transporthttp.Deps{
		Chunks:           chunks,
		PublicData:       publicData,
		Pointers:         pointers,
		Registers:        registers,
		Scratchpad:       scratchpad,
		GraphEntry:       graphEntry,
		Uploader:         uploader,
		TarBuilder:       tarBuilder,
		Resolver:         res,
		Executor:         exec,
		Deriver:          keyderive.ContentAddressDeriver{},
		Net:              harness,
		Enc:              enc,
		PNR:              pnrZone,
		Metrics:          metricsReg,
		CachedMutableTTL: mutableTTL,
		DownloadThreads:  cfg.DownloadThreads,
	}, nil
}

// loadAccessList returns a resolver.Reloader reading path as a flat
// "<key> allow|deny" list, one entry per line, <key> being either an
// address string or the "all" sentinel. The file itself is expected to
// be synced locally by an out-of-band process watching the network's
// own access-list record; this function only ever parses what's
// already on disk.
func loadAccessList(path string) resolver.Reloader[map[string]resolver.Decision] {
	return func() (map[string]resolver.Decision, error) {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		out := make(map[string]resolver.Decision)
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			fields := strings.Fields(line)
			if len(fields) != 2 {
				continue
			}
			switch strings.ToLower(fields[1]) {
			case "allow":
				out[fields[0]] = resolver.Allow
			case "deny":
				out[fields[0]] = resolver.Deny
			}
		}
		return out, scanner.Err()
	}
}
