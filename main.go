package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"git.fiblab.net/sim/raptor/loader"
	"git.fiblab.net/sim/raptor/router"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	easy "github.com/t-tomalak/logrus-easy-formatter"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

var log = logrus.WithField("module", "main")

var (
	// 配置信息，命令行参数覆盖配置文件
	configPath = flag.String("config", "", "yaml config file path (optional)")
	networkStr = flag.String("network", "", "network file or database and collection [format: {fspath} or {db}.{col}]")
	mongoURI   = flag.String("mongo_uri", "", "mongo db uri (default: $MONGO_URI)")
	cacheDir   = flag.String("cache", "", "input cache dir path (empty means disable cache)")
	listen     = flag.String("listen", "localhost:52101", "connect (gRPC compatible) listening address")
	restAddr   = flag.String("rest", "", "REST listening address (empty means disable)")
	logLevel   = flag.String("log-level", "info", "log level [debug, info, warn, error, fatal, panic]")
	exportStr  = flag.String("export", "", "write the loaded network to a file or {db}.{col} and exit")

	// 性能测试
	benchmark = flag.Bool("benchmark", false, "benchmark mode")
	pprofAddr = flag.String("pprof", "localhost:52102", "pprof listening address")

	LOG_LEVELS = map[string]logrus.Level{
		"debug": logrus.DebugLevel,
		"info":  logrus.InfoLevel,
		"warn":  logrus.WarnLevel,
		"error": logrus.ErrorLevel,
		"fatal": logrus.FatalLevel,
		"panic": logrus.PanicLevel,
	}
)

// 合并配置文件、环境变量与显式设置的命令行参数
func buildConfig() (Config, error) {
	cfg, err := LoadConfig(*configPath)
	if err != nil {
		return cfg, err
	}
	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	override := func(name string, dst *string, value string) {
		if set[name] || *dst == "" {
			*dst = value
		}
	}
	override("network", &cfg.Network, *networkStr)
	override("mongo_uri", &cfg.MongoURI, *mongoURI)
	override("cache", &cfg.Cache, *cacheDir)
	override("listen", &cfg.Listen, *listen)
	override("rest", &cfg.Rest, *restAddr)
	override("pprof", &cfg.Pprof, *pprofAddr)
	if cfg.MongoURI == "" {
		cfg.MongoURI = os.Getenv("MONGO_URI")
	}
	return cfg, cfg.Validate()
}

func main() {
	logrus.SetFormatter(&easy.Formatter{
		TimestampFormat: "2006-01-02 15:04:05.0000",
		LogFormat:       "[%module%] [%time%] [%lvl%] %msg%\n",
	})
	flag.Parse()
	if level, ok := LOG_LEVELS[*logLevel]; ok {
		logrus.SetLevel(level)
	} else {
		logrus.Fatalf("invalid log level: %s", *logLevel)
	}
	// .env不存在时忽略
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warnf("failed to load .env: %v", err)
	}

	cfg, err := buildConfig()
	if err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	if *exportStr != "" {
		exportNetwork(&cfg, *exportStr)
		return
	}

	net, err := loadNetwork(context.Background(), &cfg)
	if err != nil {
		log.Fatalf("failed to build network: %v", err)
	}
	// 启动导航服务
	server := NewRoutingServer(router.New(net, cfg.RouterOptions()))

	if cfg.Pprof != "" {
		// 启动pprof
		startHTTPDebugger(cfg.Pprof, server)
	}

	if *benchmark {
		// 性能测试
		runBenchmark(server)
		return
	}

	// 使用HTTP/2 w.o. TLS
	s := &http.Server{
		Addr:    cfg.Listen,
		Handler: h2c.NewHandler(server.Handler(), &http2.Server{}),
	}
	var rest *http.Server
	if cfg.Rest != "" {
		rest = &http.Server{Addr: cfg.Rest, Handler: server.RestHandler()}
		go func() {
			log.Infof("REST listening at %v", rest.Addr)
			if err := rest.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatalf("failed to serve REST: %v", err)
			}
		}()
	}

	// SIGHUP重新加载网络
	reloadCh := make(chan os.Signal, 1)
	signal.Notify(reloadCh, syscall.SIGHUP)
	go func() {
		for range reloadCh {
			log.Info("reloading network...")
			if err := server.Reload(context.Background(), &cfg); err != nil {
				log.Errorf("reload failed, keep the previous network: %v", err)
			}
		}
	}()

	// 优雅退出
	// 创建监听退出chan
	signalCh := make(chan os.Signal, 1)
	//监听指定信号 ctrl+c kill
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signalCh
		log.Info("stopping...")
		go func() {
			<-signalCh
			os.Exit(1) // 强制结束
		}()
		if rest != nil {
			rest.Close()
		}
		s.Close()
		// 退出导航服务
		server.Close()
		os.Exit(0)
	}()

	log.Infof("server listening at %v", s.Addr)
	if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("failed to serve: %v", err)
	}
	time.Sleep(1 * time.Second) // 延迟等待"优雅退出"
	log.Info("routing closes")
}

func exportNetwork(cfg *Config, target string) {
	ctx := context.Background()
	src, err := cfg.Source()
	if err != nil {
		log.Fatalf("invalid network path: %v", err)
	}
	in, err := loader.Load(ctx, src)
	if err != nil {
		log.Fatalf("failed to load network: %v", err)
	}
	// 导出前检查数据完整性
	if _, err := router.BuildNetwork(in, cfg.ProximityOptions()); err != nil {
		log.Fatalf("refuse to export invalid network: %v", err)
	}
	p, err := loader.NewPath(target)
	if err != nil {
		log.Fatalf("invalid export path: %v", err)
	}
	if err := loader.Export(ctx, cfg.MongoURI, p, in); err != nil {
		log.Fatalf("failed to export network to %s: %v", p, err)
	}
	log.Infof("network exported to %s", p)
}
