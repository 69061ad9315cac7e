package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sigpwny/sveltia-github-auth/internal"
	"github.com/sigpwny/sveltia-github-auth/internal/config"
	"github.com/sigpwny/sveltia-github-auth/internal/log"
)

var BuildVersion = "dev"

func main() {
	addr := flag.String("addr", "", "listen address (overrides ADDR)")
	version := flag.Bool("version", false, "print version and exit")
	help := flag.Bool("help", false, "print help and exit")
	flag.Parse()

	if *help {
		flag.Usage()
		return
	}
	if *version {
		fmt.Println(BuildVersion)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.LogError("Failed to load config: %v", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Addr = *addr
	}

	if !cfg.HasCredentials() {
		log.LogWarn("GITHUB_CLIENT_ID or GITHUB_CLIENT_SECRET is not set; login attempts will fail with MISCONFIGURED_CLIENT")
	}

	log.LogInfoWithFields("main", "Starting sveltia-github-auth", map[string]any{
		"version": BuildVersion,
		"addr":    cfg.Addr,
	})

	app := internal.New(cfg)
	if err := app.Run(); err != nil {
		log.LogError("Failed to run server: %v", err)
		os.Exit(1)
	}
}
