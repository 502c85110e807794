// Command rtspd runs the RTSP live-streaming server.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/wangyl/rtspd/internal/config"
	"github.com/wangyl/rtspd/internal/logging"
	"github.com/wangyl/rtspd/internal/rtspserver"
)

var (
	configPath string
	devMode    bool
)

func main() {
	a := kingpin.New(filepath.Base(os.Args[0]), "RTSP live-streaming server")
	a.HelpFlag.Short('h')
	a.Flag("config", "config file path").Short('c').StringVar(&configPath)
	a.Flag("dev", "log to stderr instead of rotating files").Short('d').BoolVar(&devMode)
	if _, err := a.Parse(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "rtspd: flag parse error:", err)
		os.Exit(1)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "rtspd: config error:", err)
		os.Exit(1)
	}

	log, err := logging.New(logging.Options{
		Dir:         cfg.LogDir,
		FileName:    "rtspd",
		Level:       cfg.LogLevel,
		Development: devMode,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "rtspd: logger init error:", err)
		os.Exit(1)
	}

	srv, err := rtspserver.New(rtspserver.Options{
		ListenAddress: cfg.ListenAddress,
		ListenPort:    cfg.ListenPort,
		RtpPortMin:    cfg.RtpPortMin,
		RtpPortMax:    cfg.RtpPortMax,
		ReadTimeout:   time.Duration(cfg.ReadTimeoutSeconds) * time.Second,
		Logger:        log,
	})
	if err != nil {
		log.Errorf("rtspd: server init: %v", err)
		os.Exit(1)
	}

	if err := srv.Listen(); err != nil {
		log.Errorf("rtspd: %v", err)
		os.Exit(2)
	}
	go srv.Serve()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	<-quit
	log.Infof("rtspd: shutting down")
	srv.Close()
}
