// Command webforge is the example binary that wires the core library
// packages together: it loads YAML config, sets up logging, parses CLI
// flags, and runs either a plain routed server or a load-balancer. It is
// the "external collaborator" the core spec deliberately excludes.
package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/webforge/webforge/handler"
	"github.com/webforge/webforge/handlers"
	"github.com/webforge/webforge/internal/config"
	"github.com/webforge/webforge/lb"
	"github.com/webforge/webforge/request"
	"github.com/webforge/webforge/response"
	"github.com/webforge/webforge/router"
	"github.com/webforge/webforge/server"
)

var logger = logrus.StandardLogger()

func main() {
	root := &cobra.Command{
		Use:   "webforge",
		Short: "HTTP/1.1 routing server and reverse-proxy load balancer",
	}
	root.AddCommand(newServeCmd(), newLBCmd())

	if err := root.Execute(); err != nil {
		logger.Fatal(err)
	}
}

func newServeCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "run a routed HTTP server from a YAML config",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "webforge.yaml", "path to server config")
	return cmd
}

func newLBCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "lb",
		Short: "run a load-balancing reverse proxy from a YAML config",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLB(configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "lb.yaml", "path to load-balancer config")
	return cmd
}

func runServe(configPath string) error {
	cfg, err := config.LoadServer(configPath)
	if err != nil {
		return err
	}

	r := router.New()
	for _, route := range cfg.Routes {
		h, err := buildHandler(route.Handler)
		if err != nil {
			return fmt.Errorf("route %s: %w", route.Pattern, err)
		}
		methods := parseMethods(route.Methods)
		r.Handle(route.Pattern, h, methods...)
	}
	r.Default(handlers.NewStatus(response.StatusNotFound, []byte("not found"), nil))

	s := server.New(cfg.Listen, r, logger)
	return runUntilSignal(s)
}

func runLB(configPath string) error {
	cfg, err := config.LoadBalancer(configPath)
	if err != nil {
		return err
	}

	backends := make([]lb.Backend, 0, len(cfg.Backends))
	weights := make([]int, 0, len(cfg.Backends))
	for _, bc := range cfg.Backends {
		b := lb.NewHTTPBackend(bc.Addr)
		b.TLSServerName = bc.TLSServerName
		backends = append(backends, b)
		weights = append(weights, bc.Weight)
	}

	var picker lb.Picker
	switch cfg.Picker {
	case config.PickerRandom:
		picker = lb.NewRandom(rand.Uint64(), rand.Uint64())
	case config.PickerWeighted:
		p, err := lb.NewWeightedRoundRobin(weights, len(backends))
		if err != nil {
			return err
		}
		picker = p
	default:
		picker = lb.NewRoundRobin()
	}

	balancer := lb.New(backends, picker, cfg.Rewrites)

	r := router.New()
	r.Handle("/*", balancer)

	s := server.New(cfg.Listen, r, logger)
	return runUntilSignal(s)
}

func runUntilSignal(s *server.Server) error {
	if err := s.Start(); err != nil {
		return err
	}
	<-s.Ready()
	logger.WithField("addr", s.Addr()).Info("webforge: listening")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	logger.Info("webforge: shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return s.Shutdown(ctx)
}

// buildHandler resolves a config-declared handler string ("file:<root>",
// "status:<code>:<body>", "redirect:<to>") into a Handler. This tiny
// grammar is entirely the example binary's concern, not the core's.
func buildHandler(spec string) (handler.Handler, error) {
	parts := strings.SplitN(spec, ":", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("malformed handler spec %q", spec)
	}
	switch parts[0] {
	case "file":
		return handlers.NewFile(parts[1]), nil
	case "redirect":
		return handlers.NewRedirect(parts[1]), nil
	case "status":
		sub := strings.SplitN(parts[1], ":", 2)
		code, err := strconv.Atoi(sub[0])
		if err != nil {
			return nil, fmt.Errorf("malformed status spec %q", spec)
		}
		body := ""
		if len(sub) == 2 {
			body = sub[1]
		}
		status := response.Status{Code: code, Text: http.StatusText(code)}
		return handlers.NewStatus(status, []byte(body), nil), nil
	default:
		return nil, fmt.Errorf("unknown handler kind %q", parts[0])
	}
}

func parseMethods(names []string) []request.Method {
	out := make([]request.Method, 0, len(names))
	for _, n := range names {
		if m, ok := request.MethodFromString(n); ok {
			out = append(out, m)
		}
	}
	return out
}
