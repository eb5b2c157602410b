// Command server runs the SafeCloud file-management server: it accepts
// connections, drives the STSM handshake against registered clients, and
// serves upload/download/delete/rename/list requests out of a per-user
// storage pool.
package main

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/safecloud-project/safecloud/internal/constants"
	"github.com/safecloud-project/safecloud/pkg/connection"
	"github.com/safecloud-project/safecloud/pkg/cryptoutil"
	"github.com/safecloud-project/safecloud/pkg/metrics"
	"github.com/safecloud-project/safecloud/pkg/userregistry"
	"github.com/safecloud-project/safecloud/pkg/version"
)

var (
	flagIP         string
	flagPort       int
	flagKeyPath    string
	flagCertPath   string
	flagPubkeysDir string
	flagPoolRoot   string
	flagObsAddr    string
	flagMaxPerIP   int
	flagHSRate     float64
	flagLogLevel   string
	flagLogFormat  string
)

var rootCmd = &cobra.Command{
	Use:     "server",
	Short:   "SafeCloud secure file server",
	Version: version.Full(),
	RunE:    runServer,
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVar(&flagIP, "ip", constants.DefaultServerIP, "address to bind")
	flags.IntVar(&flagPort, "port", constants.DefaultServerPort, "port to listen on")
	flags.StringVar(&flagKeyPath, "key", "server.key.pem", "path to the server's long-term RSA private key")
	flags.StringVar(&flagCertPath, "cert", "server.cert.pem", "path to the server's X.509 certificate")
	flags.StringVar(&flagPubkeysDir, "pubkeys", "pubkeys", "directory of per-user RSA public key files")
	flags.StringVar(&flagPoolRoot, "pool", "pool", "directory holding per-user storage pools")
	flags.StringVar(&flagObsAddr, "obs-addr", "", "observability server address (metrics/health); empty disables")
	flags.IntVar(&flagMaxPerIP, "max-per-ip", 0, "max concurrent connections per remote IP (0 = unlimited)")
	flags.Float64Var(&flagHSRate, "handshake-rate", 0, "max handshakes per second, globally (0 = unlimited)")
	flags.StringVar(&flagLogLevel, "log-level", "info", "log level: debug, info, warn, error, silent")
	flags.StringVar(&flagLogFormat, "log-format", "text", "log format: text or json")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "safecloud-server: %v\n", err)
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	if flagPort < constants.MinServerPort || flagPort > constants.MaxServerPort {
		return fmt.Errorf("port %d out of range [%d, %d]", flagPort, constants.MinServerPort, constants.MaxServerPort)
	}

	logger := metrics.NewLogger(
		metrics.WithLevel(metrics.ParseLevel(flagLogLevel)),
		metrics.WithFormat(parseLogFormat(flagLogFormat)),
		metrics.WithName("server"),
	)

	privateKey, err := cryptoutil.LoadRSAPrivateKey(flagKeyPath)
	if err != nil {
		return fmt.Errorf("loading server private key: %w", err)
	}
	certPEM, err := os.ReadFile(flagCertPath)
	if err != nil {
		return fmt.Errorf("loading server certificate: %w", err)
	}

	resolver := userregistry.NewRegistry(flagPubkeysDir)

	addr := net.JoinHostPort(flagIP, strconv.Itoa(flagPort))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("binding %s: %w", addr, err)
	}
	defer ln.Close()

	collector := metrics.Global()
	srv := connection.NewServer(ln, connection.ServerConfig{
		PrivateKey:       privateKey,
		CertPEM:          certPEM,
		Resolver:         resolver,
		PoolRoot:         flagPoolRoot,
		IPLimiter:        connection.NewIPRateLimiter(flagMaxPerIP),
		HandshakeLimiter: connection.NewHandshakeLimiter(flagHSRate, 0),
		Observer:         metrics.NewRateLimitObserver(collector, logger),
		Logger:           metrics.NewConnectionLogger(logger),
	})

	logger.Info("listening", metrics.Fields{"addr": ln.Addr().String()})

	if flagObsAddr != "" {
		obsServer := metrics.NewServer(metrics.ServerConfig{
			Collector:        collector,
			Namespace:        "safecloud",
			EnablePrometheus: true,
			EnableHealth:     true,
		})
		go func() {
			if err := obsServer.ListenAndServe(flagObsAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("observability server failed", metrics.Fields{"error": err.Error()})
			}
		}()
		logger.Info("observability server listening", metrics.Fields{"addr": flagObsAddr})
	}

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		return fmt.Errorf("accept loop stopped: %w", err)
	case <-sigCh:
		logger.Info("shutting down", nil)
		return ln.Close()
	}
}

func parseLogFormat(s string) metrics.Format {
	if s == "json" {
		return metrics.FormatJSON
	}
	return metrics.FormatText
}
