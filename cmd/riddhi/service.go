package main

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/kardianos/service"
	"github.com/spf13/cobra"

	"github.com/ashutoshgairola/Riddhi-sub001/pkg/app"
)

// program adapts app.Run to the service manager's Start/Stop contract.
type program struct {
	params app.RunParams
	run    func(context.Context, app.RunParams) error

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan error
}

func (p *program) Start(_ service.Service) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return fmt.Errorf("service: already running")
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan error, 1)
	go func() { p.done <- p.run(ctx, p.params) }()
	return nil
}

func (p *program) Stop(_ service.Service) error {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	return <-done
}

func serviceConfig(flags runFlags) (*service.Config, error) {
	args := []string{"service", "run"}
	if flags.config != "" {
		abs, err := filepath.Abs(flags.config)
		if err != nil {
			return nil, fmt.Errorf("service: config path: %w", err)
		}
		args = append(args, "-c", abs)
	}
	if flags.dataDir != "" {
		args = append(args, "--data-dir", flags.dataDir)
	}
	args = append(args, "--log-level", flags.logLevel, "--log-format", flags.logFormat)

	return &service.Config{
		Name:        "riddhi",
		DisplayName: "Riddhi scheduler",
		Description: "Runs Riddhi's recurring finance jobs.",
		Arguments:   args,
	}, nil
}

func serviceCmd() *cobra.Command {
	var flags runFlags
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Manage riddhi as a system service",
	}
	flags.register(cmd, true)

	newService := func() (service.Service, *program, error) {
		params, err := flags.params()
		if err != nil {
			return nil, nil, err
		}
		cfg, err := serviceConfig(flags)
		if err != nil {
			return nil, nil, err
		}
		prg := &program{params: params, run: app.Run}
		svc, err := service.New(prg, cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("service: %w", err)
		}
		return svc, prg, nil
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Run under the service manager (used by the installed unit)",
		RunE: func(_ *cobra.Command, _ []string) error {
			svc, _, err := newService()
			if err != nil {
				return err
			}
			return svc.Run()
		},
	})

	for _, action := range []string{"install", "uninstall", "start", "stop", "restart"} {
		cmd.AddCommand(&cobra.Command{
			Use:   action,
			Short: fmt.Sprintf("%s the riddhi service", action),
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				svc, _, err := newService()
				if err != nil {
					return err
				}
				if err := service.Control(svc, action); err != nil {
					return fmt.Errorf("service %s: %w", action, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "service %s: ok\n", action)
				return nil
			},
		})
	}
	return cmd
}
