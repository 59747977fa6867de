// Package platform wires osal into a host program.
//
// New applies the configuration: it initializes the global logger, installs
// OpenTelemetry providers when enabled, builds the process launcher and
// makes it the package default, and ensures the lock directory exists.
// Locks and directory handles created through the Platform live on its
// arena and are released by Close.
//
//	cfg, err := config.Load()
//	p, err := platform.New(ctx, cfg)
//	defer p.Close(ctx)
//	h, err := p.Launcher().Launch(ctx, "make", []string{"make", "all"}, nil, nil)
package platform
