package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dd0wney/fluxstore/pkg/logging"
	"github.com/dd0wney/fluxstore/pkg/metrics"
	"github.com/dd0wney/fluxstore/pkg/persist"
	"github.com/dd0wney/fluxstore/pkg/uarr"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	dataDir := flag.String("data", "./data", "Data directory (ignored when -config is set)")
	metricsAddr := flag.String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	demo := flag.Bool("demo", false, "Write a small demo graph before loading")
	flag.Parse()

	cfg := persist.DefaultConfig()
	cfg.Dir = *dataDir
	if *configPath != "" {
		var err error
		cfg, err = persist.LoadConfig(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}

	logger := logging.NewJSONLogger(os.Stderr, logging.ParseLevel(cfg.LogLevel))

	reg := metrics.DefaultRegistry()
	if *metricsAddr != "" {
		go func() {
			http.Handle("/metrics", promhttp.HandlerFor(reg.GetPrometheusRegistry(), promhttp.HandlerOpts{}))
			if err := http.ListenAndServe(*metricsAddr, nil); err != nil {
				log.Fatalf("Metrics server failed: %v", err)
			}
		}()
		fmt.Printf("📊 Metrics on http://%s/metrics\n", *metricsAddr)
	}

	fmt.Println("🚀 FluxStore - Starting...")

	coord, err := persist.Open(cfg, persist.WithLogger(logger), persist.WithMetrics(reg))
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer coord.Close()

	fmt.Printf("✅ Log open at sequence %d (%d bytes)\n", coord.LastSequence(), coord.LogSize())

	if *demo {
		if err := writeDemoGraph(coord); err != nil {
			log.Fatalf("Demo save failed: %v", err)
		}
	}

	graph, warn, err := coord.Load()
	if err != nil {
		log.Fatalf("Load failed: %v", err)
	}
	if warn != nil {
		fmt.Printf("⚠️  Partial recovery: %s\n", warn)
	}

	stats, err := coord.Stats()
	if err != nil {
		log.Fatalf("Stats failed: %v", err)
	}
	fmt.Printf("\n📦 Graph: root=%q nodes=%d links=%d snippets=%d views=%d\n",
		graph.Root, stats.Nodes, stats.Links, stats.Snippets, stats.Views)
}

func writeDemoGraph(coord *persist.Coordinator) error {
	fmt.Println("\n📝 Writing demo graph...")

	g := persist.NewGraph()
	g.Root = "workspace"
	g.Nodes["workspace"] = &persist.NodeSnapshot{
		ID: "workspace",
		Value: uarr.Object(
			uarr.F("type", uarr.String("view")),
			uarr.F("name", uarr.String("Workspace")),
		),
		Meta: uarr.Null(),
		Children: []persist.Link{
			{Key: "greeting", ChildID: "snip-1"},
			{Key: "counter", ChildID: "snip-2"},
		},
	}
	g.Nodes["snip-1"] = &persist.NodeSnapshot{
		ID:       "snip-1",
		ParentID: "workspace",
		Value: uarr.Object(
			uarr.F("type", uarr.String("snippet")),
			uarr.F("text", uarr.String("hello, flux")),
		),
		Meta: uarr.Null(),
	}
	g.Nodes["snip-2"] = &persist.NodeSnapshot{
		ID:       "snip-2",
		ParentID: "workspace",
		Value: uarr.Object(
			uarr.F("type", uarr.String("snippet")),
			uarr.F("count", uarr.Int(0)),
		),
		Meta: uarr.Null(),
	}

	stats, err := coord.Save(g)
	if err != nil {
		return err
	}
	fmt.Printf("  Saved %d nodes, %d links\n", stats.Nodes, stats.Links)

	seq, err := coord.PatchNode("snip-2", uarr.Object(
		uarr.F("type", uarr.String("snippet")),
		uarr.F("count", uarr.Int(1)),
	))
	if err != nil {
		return err
	}
	fmt.Printf("  Patched counter at sequence %d\n", seq)
	return nil
}
