package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fjod/go_cart/storefront/internal/app"
	"github.com/fjod/go_cart/storefront/internal/config"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/logger"
	"go.uber.org/zap"
)

const usage = `usage: storefront [-config file] <command> [args]

commands:
  register -username u -email e -password p -confirm p [-phone n] [-avatar file]
  login -email e -password p
  admin-login -email e -password p
  logout
  whoami
  products [-q text] [-tag t] [-sort popular|newest|price-asc|price-desc|name] [-page n] [-limit n] [-offline]
  product <slug>
  add <slug> [attr=value...]
  cart
  qty <line-key> <n>
  remove <line-key>
  clear
  favorites [-sync]
  fav-add <product-id>
  fav-remove <product-id>
  checkout
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error [%s]: %v\n", domain.Kind(err), err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	global := flag.NewFlagSet("storefront", flag.ContinueOnError)
	configPath := global.String("config", os.Getenv("STOREFRONT_CONFIG"), "path to YAML config")
	global.Usage = func() { fmt.Fprint(global.Output(), usage) }
	if err := global.Parse(args); err != nil {
		return err
	}
	if global.NArg() == 0 {
		global.Usage()
		return fmt.Errorf("%w: no command given", domain.ErrValidation)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn("failed to close storage", zap.Error(err))
		}
	}()

	name, rest := global.Arg(0), global.Args()[1:]
	cmd, ok := commands[name]
	if !ok {
		global.Usage()
		return fmt.Errorf("%w: unknown command %q", domain.ErrValidation, name)
	}
	return cmd(ctx, &cli{app: a, out: out}, rest)
}
